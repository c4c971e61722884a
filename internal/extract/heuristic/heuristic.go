// Package heuristic builds templates offline, without a language model.
//
// The document text becomes the body as is. Placeholders already written as
// {{key}} are declared as required variables.
package heuristic

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"legaldraft/internal/extract"
	"legaldraft/internal/summarizer"
)

const (
	maxTitleRunes = 120
	maxTags       = 7
)

// Extractor derives title, description and tags from word statistics.
type Extractor struct {
	summarizer       *summarizer.FrequencySummarizer
	summarySentences int
}

func New(summarySentences int) *Extractor {
	if summarySentences <= 0 {
		summarySentences = 2
	}
	return &Extractor{summarizer: summarizer.NewFrequencySummarizer(), summarySentences: summarySentences}
}

func (e *Extractor) Name() string { return "heuristic" }

func (e *Extractor) Extract(ctx context.Context, documentText string) (*extract.DocumentTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(documentText)
	if text == "" {
		return nil, errors.New("document has no text")
	}
	// placeholders must not leak into the summary or the tags
	plain := strings.NewReplacer("{{", " ", "}}", " ").Replace(text)
	desc, err := e.summarizer.Summarize(plain, e.summarySentences)
	if err != nil {
		return nil, err
	}
	dt := &extract.DocumentTemplate{
		Title:          title(text),
		Description:    desc,
		SimilarityTags: e.summarizer.Keywords(plain, maxTags),
		BodyMD:         text,
	}
	for _, key := range extract.PlaceholderKeys(text) {
		dt.Variables = append(dt.Variables, extract.Variable{
			Key:      key,
			Label:    label(key),
			Required: true,
		})
	}
	extract.Normalize(dt)
	if err := extract.Validate(dt); err != nil {
		return nil, err
	}
	return dt, nil
}

// title is the first non-empty line without Markdown heading marks.
func title(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line == "" {
			continue
		}
		r := []rune(line)
		if len(r) > maxTitleRunes {
			return strings.TrimSpace(string(r[:maxTitleRunes]))
		}
		return line
	}
	return "Untitled document"
}

// label turns tenant_full_name into "Tenant full name".
func label(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	if len(words) == 0 {
		return key
	}
	s := strings.ToLower(strings.Join(words, " "))
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
