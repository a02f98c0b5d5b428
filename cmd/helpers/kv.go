package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseData builds a request body from K=V arguments or, when the only
// argument is "-", from JSON read on stdin. A value prefixed with "@" is
// replaced by the content of the referenced file (similar to curl's @
// syntax).
func ParseData(args []string, stdin io.Reader) (map[string]any, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		var data map[string]any
		if err := json.Unmarshal(b, &data); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return data, nil
	}

	data := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid key=value format: %s", arg)
		}
		if strings.HasPrefix(value, "@") {
			b, err := os.ReadFile(value[1:])
			if err != nil {
				return nil, fmt.Errorf("failed to read file for key %q: %w", key, err)
			}
			data[key] = string(b)
			continue
		}
		data[key] = inferType(value)
	}
	return data, nil
}

// ParseStringMap parses K=V arguments without type inference, as auth
// methods expect strings.
func ParseStringMap(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid key=value format: %s", arg)
		}
		out[key] = value
	}
	return out, nil
}

// inferType attempts to infer the type of a string value
func inferType(value string) any {
	if strings.HasPrefix(value, "[") || strings.HasPrefix(value, "{") {
		var jsonValue any
		if err := json.Unmarshal([]byte(value), &jsonValue); err == nil {
			return jsonValue
		}
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
