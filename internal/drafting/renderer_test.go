package drafting

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRender_Basic(t *testing.T) {
	got := Render("Hi {{name}}, dated {{date}}. Bye {{name}}.", map[string]any{
		"name": "Alice",
		"date": "2024-01-01",
	})
	assert.Equal(t, "Hi Alice, dated 2024-01-01. Bye Alice.", got)
}

func TestRender_NotRecursive(t *testing.T) {
	answers := map[string]any{"a": "{{b}}", "b": "X"}
	for i := 0; i < 50; i++ {
		assert.Equal(t, "{{b}}", Render("{{a}}", answers))
	}
	assert.Equal(t, "{{b}} X", Render("{{a}} {{b}}", answers))
}

func TestRender_LeavesUnresolvedPlaceholders(t *testing.T) {
	body := "Party {{party}} owes {{unresolved}} and {{ spaced }}."
	got := Render(body, map[string]any{"party": "Acme"})
	assert.Equal(t, "Party Acme owes {{unresolved}} and {{ spaced }}.", got)
	assert.Equal(t, body, Render(body, nil))
}

func TestRender_IgnoresKeysAbsentFromBody(t *testing.T) {
	assert.Equal(t, "plain", Render("plain", map[string]any{"x": "y"}))
}

func TestRender_IndependentOfAnswerOrder(t *testing.T) {
	body := "{{a}}{{ab}}{{b}} {{abc}}-{{c}}{{a}}"
	base := map[string]any{"a": "{{ab}}", "ab": "{{b}}", "b": "B", "abc": "{{a}}", "c": "}}{{"}
	want := Render(body, base)
	assert.Equal(t, "{{ab}}{{b}}B {{a}}-}}{{{{ab}}", want)

	keys := []string{"a", "ab", "b", "abc", "c"}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 100; i++ {
		r.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		shuffled := make(map[string]any, len(keys))
		for _, k := range keys {
			shuffled[k] = base[k]
		}
		assert.Equal(t, want, Render(body, shuffled))
	}
}

func TestValueText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "text", "text"},
		{"nil", nil, ""},
		{"json number", json.Number("1500.50"), "1500.50"},
		{"float", 1000000.0, "1000000"},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"list", []any{"a", 1.5}, `["a",1.5]`},
		{"object", map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValueText(tt.in))
		})
	}
}
