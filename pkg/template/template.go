// Package template renders step inputs against the accumulating execution
// context. Templates use {{key}} references; missing keys render as the
// empty string so a sparse context never aborts a run.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.\-]+)\s*\}\}`)

// Render substitutes every {{key}} in input with the context value. Dotted
// keys descend into nested maps. Unknown keys become the empty string.
func Render(input string, context map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		key := strings.TrimSpace(strings.Trim(match, "{}"))

		value, found := Lookup(context, key)
		if !found {
			return ""
		}

		return formatValue(value)
	})
}

// RenderInputs renders every template in a step's inputs map.
func RenderInputs(inputs map[string]string, context map[string]any) map[string]string {
	if len(inputs) == 0 {
		return nil
	}

	rendered := make(map[string]string, len(inputs))
	for key, tmpl := range inputs {
		rendered[key] = Render(tmpl, context)
	}

	return rendered
}

// Lookup resolves a dotted path against nested map[string]any values.
func Lookup(data map[string]any, path string) (any, bool) {
	current := any(data)

	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	}
}
