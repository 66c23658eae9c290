package params

import "strings"

// Normalize returns a cleaned copy of the parameter mapping: nil values and
// empty strings are dropped, booleans become the literal strings
// "true"/"false", slices are cleaned element-wise and dropped when empty,
// trend_interval values are lowercased, and lens/sub_lens values are
// canonicalized. The input mapping is never mutated.
//
// Normalize never fails; values of unexpected types pass through unchanged.
func Normalize(p Params) Params {
	normalized := make(Params, len(p))
	for key, raw := range p {
		cleaned, ok := cleanValue(raw)
		if !ok {
			continue
		}
		if s, isString := cleaned.(string); isString {
			switch key {
			case "trend_interval":
				cleaned = strings.ToLower(s)
			case "lens", "sub_lens":
				cleaned = formatLens(s)
			}
		}
		normalized[key] = cleaned
	}
	return normalized
}

// cleanValue canonicalizes a single parameter value. The second return value
// reports whether the value survives normalization.
func cleanValue(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case bool:
		if v {
			return "true", true
		}
		return "false", true
	case string:
		cleaned := strings.TrimSpace(v)
		if cleaned == "" {
			return nil, false
		}
		lowered := strings.ToLower(cleaned)
		if lowered == "true" || lowered == "false" {
			return lowered, true
		}
		return cleaned, true
	case []string:
		items := make([]any, 0, len(v))
		for _, item := range v {
			if cleaned, ok := cleanValue(item); ok {
				items = append(items, cleaned)
			}
		}
		if len(items) == 0 {
			return nil, false
		}
		return items, true
	case []any:
		items := make([]any, 0, len(v))
		for _, item := range v {
			if cleaned, ok := cleanValue(item); ok {
				items = append(items, cleaned)
			}
		}
		if len(items) == 0 {
			return nil, false
		}
		return items, true
	default:
		// Numbers and other scalars pass through untouched.
		return value, true
	}
}
