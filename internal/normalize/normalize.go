// Package normalize rewrites the key casing of decoded JSON values so that
// every backend presents the same schema to the data-access layer. Hosted
// backends built on spreadsheet exports return PascalCase column headers;
// the rest of the system speaks camelCase.
package normalize

import "unicode"

// Normalize recursively rewrites every map key by lower-casing its first
// rune. The literal key "ID" maps to "id" exactly; that is a quirk of one
// upstream export, not a general acronym rule. Sequences are walked,
// scalars pass through. Normalize is idempotent.
func Normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[normalizeKey(k)] = Normalize(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = Normalize(child)
		}
		return out
	default:
		return v
	}
}

func normalizeKey(key string) string {
	if key == "ID" {
		return "id"
	}
	if key == "" {
		return key
	}
	runes := []rune(key)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
