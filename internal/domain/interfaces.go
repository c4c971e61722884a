package domain

import (
	"fmt"
	"strings"
	"time"
)

// Template is a reusable Markdown document body with named {{key}} placeholders.
type Template struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DocType      string     `json:"doctype"`
	Jurisdiction string     `json:"jurisdiction"`
	Tags         []string   `json:"similarity_tags"`
	Body         string     `json:"bodymd"`
	CreatedAt    time.Time  `json:"created_at"`
	Variables    []Variable `json:"variables"`
}

// Variable describes one placeholder of a template. Key is unique within its template.
type Variable struct {
	ID          int64    `json:"id"`
	TemplateID  int64    `json:"template_id"`
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Example     string   `json:"example,omitempty"`
	Required    bool     `json:"required"`
	Type        string   `json:"dtype,omitempty"`
	Pattern     string   `json:"regex,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Projection is the text a template is indexed under for similarity search.
func (t *Template) Projection() string {
	return fmt.Sprintf("Title: %s\nDescription: %s\nTags: %s", t.Title, t.Description, strings.Join(t.Tags, ", "))
}

// Keys returns the variable keys in declaration order.
func (t *Template) Keys() []string {
	keys := make([]string, len(t.Variables))
	for i, v := range t.Variables {
		keys[i] = v.Key
	}
	return keys
}

// IndexEntry is the derived, non-authoritative projection of a template kept by the similarity index.
type IndexEntry struct {
	TemplateID int64
	Text       string
}

// SearchResult represents a matching index entry with a relevance score.
type SearchResult struct {
	Entry IndexEntry
	Score float64
}

// Hit is a single (template id, score) pair returned by a similarity query, highest score first.
type Hit struct {
	ID    int64
	Score float64
}

// Document represents a single uploaded file loaded into the system.
type Document struct {
	Path    string
	Ext     string
	Content string
}
