package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Output writes data in the format selected by --format. Tables are only
// drawn for maps; other values fall back to one line per element.
func Output(w io.Writer, data any) error {
	switch strings.ToLower(FlagFormat) {
	case "", FormatTable:
		return outputTable(w, data)
	case FormatJSON:
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		fmt.Fprintln(w, string(b))
		return nil
	case FormatYAML:
		// Round trip through JSON so the json tags of API types apply.
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown output format: %s", FlagFormat)
	}
}

func outputTable(w io.Writer, data any) error {
	switch v := data.(type) {
	case map[string]any:
		return PrintMapAsTable(w, v)
	case []string:
		if len(v) == 0 {
			fmt.Fprintln(w, "No data to display")
			return nil
		}
		rows := make([][]any, 0, len(v))
		for _, s := range v {
			rows = append(rows, []any{s})
		}
		return PrintTable(w, []string{"Keys"}, rows)
	case string:
		fmt.Fprintln(w, v)
		return nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			fmt.Fprintln(w, string(b))
			return nil
		}
		return PrintMapAsTable(w, m)
	}
}

// FormatValue renders a value for a table cell.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "n/a"
	case time.Duration:
		return FormatDuration(v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s:%v", k, v[k]))
		}
		return "map[" + strings.Join(parts, " ") + "]"
	case []any:
		return fmt.Sprintf("%v", v)
	case float64:
		// JSON numbers arrive as float64; print integers without a fraction.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatDuration renders a TTL the way an operator reads it, e.g. "768h" or
// "1w4d". Zero is printed as "0s".
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	return str2duration.String(d)
}

// ParseDuration accepts the human forms printed by FormatDuration as well as
// plain Go durations, e.g. "1w", "2d12h" or "90m".
func ParseDuration(s string) (time.Duration, error) {
	return str2duration.ParseDuration(s)
}
