package show

import "strings"

// ResolveTokens returns a copy of payload with every "(token)" placeholder replaced
// by its value from tokens. Strings, map keys and values, and slice elements are
// walked recursively; other values are returned unchanged. The input is never
// modified.
func ResolveTokens(payload any, tokens map[string]string) any {
	if len(tokens) == 0 {
		return payload
	}
	replacer := newTokenReplacer(tokens)
	return resolve(payload, replacer)
}

func newTokenReplacer(tokens map[string]string) *strings.Replacer {
	pairs := make([]string, 0, len(tokens)*2)
	for name, value := range tokens {
		pairs = append(pairs, "("+name+")", value)
	}
	return strings.NewReplacer(pairs...)
}

func resolve(v any, r *strings.Replacer) any {
	switch t := v.(type) {
	case string:
		return r.Replace(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[r.Replace(k)] = resolve(val, r)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			out[r.Replace(k)] = r.Replace(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = resolve(val, r)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, val := range t {
			out[i] = r.Replace(val)
		}
		return out
	default:
		return v
	}
}
