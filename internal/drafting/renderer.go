package drafting

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Placeholder returns the body token for key.
func Placeholder(key string) string {
	return "{{" + key + "}}"
}

// Render substitutes {{key}} for every key in answers in a single pass.
// Substituted values are never rescanned, and tokens for keys absent from
// answers are left as they are.
func Render(body string, answers map[string]any) string {
	if len(answers) == 0 {
		return body
	}
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	// strings.Replacer prefers earlier pairs at the same position; fix the order
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, Placeholder(k), ValueText(answers[k]))
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

// ValueText is the textual form a context value takes in a draft.
func ValueText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}
