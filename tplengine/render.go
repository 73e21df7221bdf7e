package tplengine

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Format selects how Render and Encode print values.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts table, json and yaml, case-insensitively. "" means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: table, json, yaml)", s)
	}
}

// Encode writes v to w in format. A table renders v as a single value cell, or one
// row per key when v is a string-keyed map.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		if m, ok := v.(map[string]any); ok {
			vars := make([]Variable, 0, len(m))
			for k, val := range m {
				vars = append(vars, Variable{Name: k, Value: val})
			}
			sortVariables(vars)
			return renderVariables(w, vars)
		}
		_, err := fmt.Fprintln(w, formatValue(v))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderVariables(w io.Writer, vars []Variable) error {
	if len(vars) == 0 {
		_, err := fmt.Fprintln(w, "(0 variables)")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Variable", "Value"})
	for _, v := range vars {
		t.AppendRow(table.Row{v.Name, formatValue(v.Value)})
	}
	t.Render()
	return nil
}

// formatValue prints scalars as is and composite values as compact JSON.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(val)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func sortVariables(vars []Variable) {
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
}
