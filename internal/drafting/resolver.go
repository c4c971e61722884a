package drafting

import "legaldraft/internal/domain"

// Missing returns, in declaration order, the variables whose key is not a key of ctx.
// Values are not inspected; an empty string still counts as provided.
func Missing(vars []domain.Variable, ctx map[string]any) []domain.Variable {
	out := make([]domain.Variable, 0, len(vars))
	for _, v := range vars {
		if _, ok := ctx[v.Key]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// MissingRequired is Missing restricted to variables flagged as required.
func MissingRequired(vars []domain.Variable, ctx map[string]any) []domain.Variable {
	out := make([]domain.Variable, 0, len(vars))
	for _, v := range vars {
		if !v.Required {
			continue
		}
		if _, ok := ctx[v.Key]; !ok {
			out = append(out, v)
		}
	}
	return out
}
