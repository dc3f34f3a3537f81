package host

import "strings"

// markup neutralizes tag delimiters the way the host stores free text.
var markup = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// Sanitize returns a copy of fields with tag delimiters in string values escaped.
// Nested maps and slices are walked. Other values are kept as is.
func Sanitize(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return markup.Replace(t)
	case Fields:
		return Sanitize(t)
	case map[string]any:
		return map[string]any(Sanitize(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sanitizeValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = markup.Replace(e)
		}
		return out
	default:
		return v
	}
}
