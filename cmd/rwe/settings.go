package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aalemi-dev/rwe/rwe"
)

// readSettingsFile decodes a YAML mapping of module settings.
func readSettingsFile(path string) (rwe.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	var settings map[string]any
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", path, err)
	}
	return rwe.Settings(settings), nil
}

// applyAssignments sets every key=value pair on settings. Dotted keys address nested
// settings (paging.limit=10) and values are read as YAML, so 10 is a number, true a
// bool and [a, b] a list; anything that is not valid YAML stays a string.
func applyAssignments(settings rwe.Settings, assignments []string) error {
	for _, a := range assignments {
		key, raw, ok := strings.Cut(a, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid setting %q, expected key=value", a)
		}

		path := strings.Split(key, ".")
		target := settings
		for _, part := range path[:len(path)-1] {
			switch next := target[part].(type) {
			case rwe.Settings:
				target = next
			case map[string]any:
				target = next
			default:
				created := rwe.Settings{}
				target[part] = created
				target = created
			}
		}
		target[path[len(path)-1]] = parseValue(raw)
	}
	return nil
}

func parseValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}
