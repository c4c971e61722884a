// Package gemini extracts templates with Gemini structured JSON output.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"legaldraft/internal/extract"
)

const systemPrompt = `You are an expert legal tech assistant. Your task is to analyze a legal document and convert it into a reusable Markdown template.
Follow these steps precisely:
1. Read the document to create a "title" and a one-sentence "description".
2. Identify all key entities (names, dates, amounts, addresses, etc.) as "variables".
3. For each variable, define its snake_case "key", a human readable "label", a "description", an "example" taken from the text, and whether it is "required".
4. Generate 5-7 relevant "similaritytags" for future searches.
5. Rewrite the entire document as "bodymd" in Markdown, replacing every variable occurrence with a {{variable_key}} placeholder.
Respond ONLY with the structured JSON object.`

// maxDocumentChars bounds the prompt size for very long uploads.
const maxDocumentChars = 200_000

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures the Gemini extractor.
type Config struct {
	APIKeyEnv   string
	Model       string
	Temperature float32
}

// Extractor implements extract.Extractor on the google.golang.org/genai SDK.
type Extractor struct {
	models      contentGenerator
	model       string
	temperature float32
}

// New creates a Gemini API client using the key from cfg.APIKeyEnv.
func New(ctx context.Context, cfg Config) (*Extractor, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Extractor{models: client.Models, model: model, temperature: cfg.Temperature}, nil
}

func (e *Extractor) Name() string { return "gemini" }

// Extract asks the model for a DocumentTemplate and validates the answer.
func (e *Extractor) Extract(ctx context.Context, documentText string) (*extract.DocumentTemplate, error) {
	documentText = cutAtRune(documentText, maxDocumentChars)
	resp, err := e.models.GenerateContent(ctx,
		e.model,
		[]*genai.Content{
			{Parts: []*genai.Part{{Text: "Here is the document text:\n\n---\n\n" + documentText}}, Role: "user"},
		},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: systemPrompt}},
			},
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema(),
			Temperature:      genai.Ptr[float32](e.temperature),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("generate template: %w", err)
	}

	text := stripFence(resp.Text())
	var dt extract.DocumentTemplate
	if err := json.Unmarshal([]byte(text), &dt); err != nil {
		return nil, fmt.Errorf("parse template response: %w (raw: %s)", err, truncate(text, 200))
	}
	extract.Normalize(&dt)
	if err := extract.Validate(&dt); err != nil {
		return nil, err
	}
	return &dt, nil
}

func responseSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	variable := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"key":         str("The snake_case variable name, e.g. claimant_full_name"),
			"label":       str("A human-readable label, e.g. Claimant's Full Name"),
			"description": str("A brief explanation of what this variable represents"),
			"example":     str("A clear example value found in the text"),
			"required":    {Type: genai.TypeBoolean, Description: "Whether this variable is mandatory for the document"},
		},
		Required: []string{"key", "label", "description", "required"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":          str("A concise, descriptive title for the legal document"),
			"description":    str("A one-sentence description of the document's purpose"),
			"similaritytags": {Type: genai.TypeArray, Items: str("keyword"), Description: "5-7 relevant keywords for search"},
			"variables":      {Type: genai.TypeArray, Items: variable},
			"bodymd":         str("The full document as Markdown with placeholders like {{key}}"),
		},
		Required:         []string{"title", "description", "similaritytags", "variables", "bodymd"},
		PropertyOrdering: []string{"title", "description", "similaritytags", "variables", "bodymd"},
	}
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return cutAtRune(s, maxLen) + "..."
}

// cutAtRune returns at most n bytes of s without splitting a UTF-8 sequence.
func cutAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
