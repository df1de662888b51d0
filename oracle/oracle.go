// Package oracle spricht das semantische Orakel (LLM) über einen
// OpenAI-kompatiblen Chat-Completions-Endpunkt mit Function Calling an.
// Antwortet das Modell mit Freitext statt eines Tool-Aufrufs, gilt das als
// "nichts extrahiert" bzw. "nichts zu verschmelzen".
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"theme-miner/config"
	"theme-miner/models"
)

// Client ist die go-openai-Anbindung des Orakels.
type Client struct {
	api    *openai.Client
	cfg    *config.Config
	logger *zap.Logger
}

// NewClient erstellt den Oracle-Client. Ein fehlender API-Key ist ein
// fataler Startfehler.
func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY ist nicht gesetzt")
	}
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// ExtractPaper schickt das komplette Dokument plus Anweisungs-Prompt an das
// Orakel und erwartet genau einen insert_paper-Aufruf. Kommt kein
// Tool-Aufruf zurück, ist das Paper nicht relevant: (nil, nil).
func (c *Client) ExtractPaper(ctx context.Context, input models.ExtractionInput) (*models.PaperExtraction, error) {
	log := c.logger.With(zap.String("file", input.Filename))

	prompt := extractionPrompt(input.ReferenceNumber)
	req := openai.ChatCompletionRequest{
		Model: c.cfg.ExtractionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt + "\n\n" + input.Text},
		},
		Tools: []openai.Tool{insertPaperTool()},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("oracle-aufruf fehlgeschlagen: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("oracle lieferte keine choices")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		log.Info("Kein Tool-Aufruf in der Antwort, Paper vermutlich nicht relevant.",
			zap.String("text", truncate(msg.Content, 200)))
		return nil, nil
	}

	call := msg.ToolCalls[0]
	if call.Function.Name != "insert_paper" {
		log.Warn("Unerwarteter Tool-Name in der Antwort", zap.String("name", call.Function.Name))
		return nil, nil
	}

	var result models.PaperExtraction
	if err := json.Unmarshal([]byte(call.Function.Arguments), &result); err != nil {
		return nil, fmt.Errorf("insert_paper-argumente unlesbar: %w", err)
	}
	return &result, nil
}

// ProposeThemeMerges legt dem Orakel einen Theme-Chunk vor und sammelt die
// vorgeschlagenen Merge-Gruppen ein.
func (c *Client) ProposeThemeMerges(ctx context.Context, chunk []models.Entity, pass, chunkNo int) ([]models.MergeGroup, error) {
	return c.proposeMerges(ctx, "consolidate_themes", "themes", chunk, pass, chunkNo)
}

// ProposeSubthemeMerges ist das Subtheme-Gegenstück zu ProposeThemeMerges.
func (c *Client) ProposeSubthemeMerges(ctx context.Context, chunk []models.Entity, pass, chunkNo int) ([]models.MergeGroup, error) {
	return c.proposeMerges(ctx, "consolidate_subthemes", "subthemes", chunk, pass, chunkNo)
}

func (c *Client) proposeMerges(ctx context.Context, tool, kind string, chunk []models.Entity, pass, chunkNo int) ([]models.MergeGroup, error) {
	req := openai.ChatCompletionRequest{
		Model: c.cfg.ConsolidationModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: consolidationPrompt(kind, chunk, pass, chunkNo)},
		},
		Tools: []openai.Tool{consolidateTool(tool, kind)},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("oracle-aufruf fehlgeschlagen: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("oracle lieferte keine choices")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		c.logger.Info("Kein Tool-Aufruf in der Konsolidierungs-Antwort, nichts zu verschmelzen.",
			zap.String("kind", kind), zap.Int("pass", pass), zap.Int("chunk", chunkNo))
		return nil, nil
	}

	call := msg.ToolCalls[0]
	if call.Function.Name != tool {
		c.logger.Warn("Unerwarteter Tool-Name in der Antwort", zap.String("name", call.Function.Name))
		return nil, nil
	}

	var args struct {
		ConsolidationGroups []models.MergeGroup `json:"consolidation_groups"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return nil, fmt.Errorf("%s-argumente unlesbar: %w", tool, err)
	}
	return args.ConsolidationGroups, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
