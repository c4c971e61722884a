package drafting

import (
	"fmt"

	"legaldraft/internal/domain"
)

const noExample = "..."

// Questions produces one prompt per missing variable, in order.
func Questions(missing []domain.Variable) []string {
	out := make([]string, 0, len(missing))
	for _, v := range missing {
		out = append(out, Question(v))
	}
	return out
}

// Question phrases the prompt for a single variable.
func Question(v domain.Variable) string {
	label := v.Label
	if label == "" {
		label = v.Key
	}
	example := v.Example
	if example == "" {
		example = noExample
	}
	return fmt.Sprintf("Regarding '%s', what is the value? (For example: %s)", label, example)
}
