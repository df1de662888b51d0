package oracle

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"theme-miner/models"
)

const extractionSystemPrompt = `You are an expert research assistant analyzing research papers related to AI-assisted software development and GitHub Copilot.`

// extractionPrompt baut die Anweisung für einen insert_paper-Aufruf. Die
// Referenznummer wird vorgegeben; weicht das Orakel davon ab, gewinnt später
// die des Aufrufers.
func extractionPrompt(referenceNumber int) string {
	return fmt.Sprintf(`IMPORTANT: Use reference_number: %d for this paper.

ANALYZE THIS PAPER AND INCLUDE IT if it discusses ANY AI-related software development topics:

INCLUDE if the paper mentions:
- GitHub Copilot, AI coding assistants, AI programming tools
- Code completion with AI, AI code generation, automated code writing with AI/ML
- LLMs for code, language models in programming
- Developer productivity with AI tools, AI adoption in software engineering
- Novice programmers using AI coding assistants
- Code quality with AI, AI-powered testing, AI code review
- Programming education with AI support

ALSO INCLUDE papers about any AI/ML system applied to programming or software
development, even if not specifically Copilot.

EXTRACT THEMES AND SUB-THEMES FROM THE PAPER:
Read the paper carefully and identify the main themes and sub-themes that
emerge from its content. Use terminology and concepts that actually appear in
the paper, but group them into coherent categories that could accommodate
other related papers.

For each code you identify, provide a direct quote from the paper that
supports it (1-3 sentences that explain, mention, or demonstrate the concept).

REQUIREMENT: The paper must mention AI, ML, LLMs, or intelligent systems in
the context of programming/software development. If it does not, respond with
plain text instead of calling the function.`, referenceNumber)
}

// consolidationPrompt listet einen Entity-Chunk fürs Orakel auf.
func consolidationPrompt(kind string, chunk []models.Entity, pass, chunkNo int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `ITERATION %d - CHUNK %d: Analyze the following %s and identify groups of similar %s that should be merged together. Look for:
1. Entries with very similar meanings (e.g., "Software Development" and "Software Engineering")
2. Entries where one is a subset of another (e.g., "Vulnerability" and "Vulnerability Detection")
3. Entries with different wording but the same concept
4. Entries that are variations of the same core concept
5. Entries that could be logically grouped under a broader category

For each group, choose the most comprehensive and clear entry as the primary,
and list the others to merge into it. Be aggressive in consolidation - it is
better to merge similar concepts than to keep them separate.

%s to analyze:
`, pass, chunkNo, kind, kind, strings.ToUpper(kind[:1])+kind[1:])
	for _, e := range chunk {
		desc := e.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&b, "ID: %d, Name: %q, Description: %q\n", e.ID, e.Name, desc)
	}
	return b.String()
}

// insertPaperTool ist die Function Declaration für die Extraktion. Das
// Schema erzwingt Paper-Identität, mindestens ein Theme und die
// Referenznummer.
func insertPaperTool() openai.Tool {
	codeSchema := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"name": {
				Type:        jsonschema.String,
				Description: "Code or keyword (e.g., GitHub Copilot, code generation, developer productivity)",
			},
			"quote": {
				Type:        jsonschema.String,
				Description: "Direct quote from the paper that supports this code (1-3 sentences)",
			},
		},
		Required: []string{"name", "quote"},
	}
	subthemeSchema := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"name": {
				Type:        jsonschema.String,
				Description: "Sub-theme name - a specific aspect within the main theme that this paper addresses",
			},
			"description": {Type: jsonschema.String, Description: "Sub-theme description"},
			"codes": {
				Type:        jsonschema.Array,
				Description: "Codes/keywords found in this paper for this sub-theme, each with supporting evidence",
				Items:       &codeSchema,
			},
		},
		Required: []string{"name", "description", "codes"},
	}
	themeSchema := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"name": {
				Type:        jsonschema.String,
				Description: "Theme name - the main thematic area the paper is fundamentally about",
			},
			"description": {Type: jsonschema.String, Description: "Theme description"},
			"subthemes": {
				Type:        jsonschema.Array,
				Description: "Sub-themes within this theme",
				Items:       &subthemeSchema,
			},
		},
		Required: []string{"name", "description", "subthemes"},
	}

	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"paper_title":  {Type: jsonschema.String, Description: "The title of the research paper"},
			"authors":      {Type: jsonschema.String, Description: "The authors of the paper"},
			"year":         {Type: jsonschema.String, Description: "Publication year"},
			"doi":          {Type: jsonschema.String, Description: "DOI if available"},
			"abstract":     {Type: jsonschema.String, Description: "Paper abstract or summary"},
			"key_findings": {Type: jsonschema.String, Description: "Key findings from the paper"},
			"methodology":  {Type: jsonschema.String, Description: "Research methodology used"},
			"reference_number": {
				Type:        jsonschema.Integer,
				Description: "Sequential reference number for this paper, as stated in the instructions",
			},
			"themes": {
				Type:        jsonschema.Array,
				Description: "Main themes identified in the paper",
				Items:       &themeSchema,
			},
		},
		Required: []string{"paper_title", "authors", "themes", "reference_number"},
	}

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        "insert_paper",
			Description: "Insert research paper analysis results with themes, sub-themes, codes, and reference number for thematic analysis",
			Parameters:  params,
		},
	}
}

// consolidateTool ist die gemeinsame Function Declaration für beide
// Konsolidierungs-Arten; nur Name und Beschreibungstexte unterscheiden sich.
func consolidateTool(name, kind string) openai.Tool {
	groupSchema := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"primary": {
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"id":   {Type: jsonschema.Integer, Description: "ID of the entry to keep as primary"},
					"name": {Type: jsonschema.String, Description: "Name of the primary entry"},
					"description": {
						Type:        jsonschema.String,
						Description: "Consolidated description that subsumes all merged entries",
					},
				},
				Required: []string{"id", "name", "description"},
			},
			"merge": {
				Type:        jsonschema.Array,
				Description: "Similar entries to merge into the primary",
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"id":   {Type: jsonschema.Integer, Description: "ID of the entry to merge into the primary"},
						"name": {Type: jsonschema.String, Description: "Name of the entry to merge"},
					},
					Required: []string{"id", "name"},
				},
			},
			"justification": {
				Type:        jsonschema.String,
				Description: "Reason why these entries should be merged",
			},
		},
		Required: []string{"primary", "merge", "justification"},
	}

	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"consolidation_groups": {
				Type:        jsonschema.Array,
				Description: fmt.Sprintf("Groups of similar %s that should be consolidated", kind),
				Items:       &groupSchema,
			},
		},
		Required: []string{"consolidation_groups"},
	}

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: fmt.Sprintf("Identify groups of similar %s that should be merged together", kind),
			Parameters:  params,
		},
	}
}
