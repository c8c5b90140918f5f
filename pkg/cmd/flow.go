package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/retrace-dev/retrace/pkg/models"
)

// LoadFlow reads a flow definition from a JSON or YAML file, picking the
// codec by extension.
func LoadFlow(path string) (*models.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading flow file: %w", err)
	}

	var flow models.Flow

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		// Round-trip through JSON so the models' json tags apply to YAML
		// documents too.
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing yaml flow: %w", err)
		}

		jsonData, err := json.Marshal(normalizeYAML(raw))
		if err != nil {
			return nil, fmt.Errorf("converting yaml flow: %w", err)
		}

		if err := json.Unmarshal(jsonData, &flow); err != nil {
			return nil, fmt.Errorf("decoding yaml flow: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &flow); err != nil {
			return nil, fmt.Errorf("decoding json flow: %w", err)
		}
	}

	return &flow, nil
}

// normalizeYAML rewrites map[any]any nodes into map[string]any so the
// structure survives json.Marshal.
func normalizeYAML(v any) any {
	switch value := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}

		return out
	case map[string]any:
		for k, item := range value {
			value[k] = normalizeYAML(item)
		}

		return value
	case []any:
		for i, item := range value {
			value[i] = normalizeYAML(item)
		}

		return value
	default:
		return v
	}
}
