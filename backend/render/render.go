// Package render turns an extracted field set into operator-readable text.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// NormalizeFormat maps user input to a supported format; anything unknown is YAML.
func NormalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Fields renders the mapping as key/value text. Keys come out sorted.
func Fields(fields map[string]any, format string) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}

	switch NormalizeFormat(format) {
	case FormatJSON:
		out, err := json.MarshalIndent(fields, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to render json: %w", err)
		}
		return string(out), nil
	default:
		if len(fields) == 0 {
			return "", nil
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(fields); err != nil {
			return "", fmt.Errorf("failed to render yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("failed to render yaml: %w", err)
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	}
}
