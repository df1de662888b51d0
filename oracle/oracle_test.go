package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"theme-miner/config"
	"theme-miner/models"
)

// fakeCompletionServer spielt einen OpenAI-kompatiblen Endpunkt, der pro
// Request eine feste Tool-Call-Antwort liefert. lastBody hält den letzten
// Request-Body für Assertions fest.
type fakeCompletionServer struct {
	toolName  string
	arguments string
	content   string
	lastBody  map[string]interface{}
}

func (f *fakeCompletionServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)

		message := map[string]interface{}{"role": "assistant"}
		if f.toolName != "" {
			message["tool_calls"] = []map[string]interface{}{
				{
					"id":   "call_1",
					"type": "function",
					"function": map[string]interface{}{
						"name":      f.toolName,
						"arguments": f.arguments,
					},
				},
			}
		} else {
			message["content"] = f.content
		}

		resp := map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{"index": 0, "message": message, "finish_reason": "stop"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestClient(t *testing.T, fake *fakeCompletionServer) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		OpenAIAPIKey:       "test-key",
		OpenAIBaseURL:      srv.URL + "/v1",
		ExtractionModel:    "gpt-4o-mini",
		ConsolidationModel: "gpt-4o-mini",
	}
	client, err := NewClient(cfg, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.Config{}, zap.NewNop())
	require.Error(t, err)
}

func TestExtractPaperParsesToolCall(t *testing.T) {
	args, err := json.Marshal(map[string]interface{}{
		"paper_title":      "Paper One",
		"authors":          "Doe, J.",
		"reference_number": 3,
		"themes": []map[string]interface{}{
			{
				"name":        "Coping Strategies",
				"description": "d",
				"subthemes": []map[string]interface{}{
					{
						"name":        "Social Support",
						"description": "d",
						"codes": []interface{}{
							map[string]string{"name": "peer support", "quote": "my friends carried me"},
							"bare code",
						},
					},
				},
			},
		},
	})
	require.NoError(t, err)

	fake := &fakeCompletionServer{toolName: "insert_paper", arguments: string(args)}
	client := newTestClient(t, fake)

	result, err := client.ExtractPaper(context.Background(), models.ExtractionInput{
		Filename:        "a.pdf",
		Text:            "full text",
		ReferenceNumber: 3,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Paper One", result.PaperTitle)
	assert.Equal(t, 3, result.ReferenceNumber)
	require.Len(t, result.Themes, 1)
	require.Len(t, result.Themes[0].Subthemes, 1)
	codes := result.Themes[0].Subthemes[0].Codes
	require.Len(t, codes, 2)
	require.NotNil(t, codes[0].Quote)
	assert.Equal(t, "my friends carried me", *codes[0].Quote)
	assert.Equal(t, "bare code", codes[1].Name)
	assert.Nil(t, codes[1].Quote)

	// Der Request enthält das Tool und den Dokument-Text.
	tools, ok := fake.lastBody["tools"].([]interface{})
	require.True(t, ok)
	require.Len(t, tools, 1)
	messages := fake.lastBody["messages"].([]interface{})
	user := messages[len(messages)-1].(map[string]interface{})
	assert.Contains(t, user["content"], "full text")
}

func TestExtractPaperNoToolCallMeansNotRelevant(t *testing.T) {
	fake := &fakeCompletionServer{content: "This paper is out of scope."}
	client := newTestClient(t, fake)

	result, err := client.ExtractPaper(context.Background(), models.ExtractionInput{Filename: "a.pdf"})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestExtractPaperUnexpectedToolName(t *testing.T) {
	fake := &fakeCompletionServer{toolName: "delete_everything", arguments: "{}"}
	client := newTestClient(t, fake)

	result, err := client.ExtractPaper(context.Background(), models.ExtractionInput{Filename: "a.pdf"})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestExtractPaperMalformedArguments(t *testing.T) {
	fake := &fakeCompletionServer{toolName: "insert_paper", arguments: "{not json"}
	client := newTestClient(t, fake)

	_, err := client.ExtractPaper(context.Background(), models.ExtractionInput{Filename: "a.pdf"})
	require.Error(t, err)
}

func TestProposeThemeMergesParsesGroups(t *testing.T) {
	fake := &fakeCompletionServer{
		toolName: "consolidate_themes",
		arguments: `{"consolidation_groups": [
			{
				"primary": {"id": 1, "name": "Coping", "description": "merged"},
				"merge": [{"id": 2, "name": "Coping Strategies"}],
				"justification": "same concept"
			}
		]}`,
	}
	client := newTestClient(t, fake)

	chunk := []models.Entity{
		{ID: 1, Name: "Coping", Description: "d"},
		{ID: 2, Name: "Coping Strategies", Description: "d"},
	}
	groups, err := client.ProposeThemeMerges(context.Background(), chunk, 1, 1)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, uint(1), groups[0].Primary.ID)
	require.Len(t, groups[0].Merge, 1)
	assert.Equal(t, uint(2), groups[0].Merge[0].ID)
}

func TestProposeSubthemeMergesEmptyAnswer(t *testing.T) {
	fake := &fakeCompletionServer{content: "Nothing to merge."}
	client := newTestClient(t, fake)

	groups, err := client.ProposeSubthemeMerges(context.Background(), nil, 2, 1)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "lon...", truncate("long text", 3))
}
