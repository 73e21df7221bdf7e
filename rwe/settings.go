package rwe

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// VariablePrefixKey is the setting every module honours, whether or not its schema
// lists it.
const VariablePrefixKey = "variablePrefix"

// Settings is a module's settings mapping. Nested settings are Settings values.
type Settings map[string]any

// Clone copies s and its nested mappings.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		if nested, ok := asMapping(v); ok {
			v = nested.Clone()
		}
		out[k] = v
	}
	return out
}

// Kind constrains the values a setting accepts. Overrides are converted with weak
// typing, so "10" is a valid KindInt value and "1" a valid KindBool one.
type Kind int

const (
	// KindAny accepts every value unchanged.
	KindAny Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	// KindStringList accepts a list or a single scalar, stored as []string.
	KindStringList
	// KindMap accepts a mapping with string keys, stored as Settings.
	KindMap
)

var kindNames = map[Kind]string{
	KindAny:        "any",
	KindString:     "string",
	KindInt:        "int",
	KindFloat:      "float",
	KindBool:       "bool",
	KindStringList: "string list",
	KindMap:        "map",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind %d", int(k))
}

// Field is one whitelisted setting. A Field with a Nested schema is a mapping whose
// sub-keys are whitelisted in turn; Default and Kind are then unused. Nesting is one
// level deep.
type Field struct {
	Default any
	Kind    Kind
	Nested  Schema
}

// Schema whitelists the settings of a module.
type Schema map[string]Field

// Defaults returns a fresh live mapping holding every default.
func (s Schema) Defaults() Settings {
	out := make(Settings, len(s))
	for key, f := range s {
		if f.Nested != nil {
			out[key] = f.Nested.Defaults()
			continue
		}
		out[key] = cloneValue(f.Default)
	}
	return out
}

// Apply merges overrides into live.
//
// Only keys in the schema are considered and unknown keys are dropped. A nested
// override must be a mapping and only its whitelisted sub-keys are merged, leaving
// the other sub-keys untouched. Every override is converted to its field's kind
// first; if any conversion fails live is left unchanged and the first failure, in
// key order, is returned as a *SettingsError. A non-empty variablePrefix override is
// always applied.
func (s Schema) Apply(live Settings, overrides Settings) error {
	if live == nil {
		return fmt.Errorf("%w: nil live settings", ErrInvalidSetting)
	}

	type change struct {
		key, sub string
		value    any
	}
	var changes []change

	for _, key := range sortedKeys(overrides) {
		f, ok := s[key]
		if !ok {
			continue
		}
		raw := overrides[key]

		if f.Nested != nil {
			nested, ok := asMapping(raw)
			if !ok {
				return &SettingsError{Key: key, Reason: fmt.Sprintf("expected a mapping, got %T", raw)}
			}
			for _, sub := range sortedKeys(nested) {
				sf, ok := f.Nested[sub]
				if !ok {
					continue
				}
				v, err := coerce(sf.Kind, nested[sub])
				if err != nil {
					return &SettingsError{Key: key + "." + sub, Reason: err.Error()}
				}
				changes = append(changes, change{key: key, sub: sub, value: v})
			}
			continue
		}

		v, err := coerce(f.Kind, raw)
		if err != nil {
			return &SettingsError{Key: key, Reason: err.Error()}
		}
		changes = append(changes, change{key: key, value: v})
	}

	for _, c := range changes {
		if c.sub == "" {
			live[c.key] = c.value
			continue
		}
		nested, ok := asMapping(live[c.key])
		if !ok {
			nested = Settings{}
		}
		nested[c.sub] = c.value
		live[c.key] = nested
	}

	if prefix, ok := overrides[VariablePrefixKey]; ok && prefix != nil {
		if p := fmt.Sprint(prefix); p != "" {
			live[VariablePrefixKey] = p
		}
	}
	return nil
}

func coerce(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindString:
		var out string
		err := weakDecode(v, &out)
		return out, err
	case KindInt:
		var out int
		err := weakDecode(v, &out)
		return out, err
	case KindFloat:
		var out float64
		err := weakDecode(v, &out)
		return out, err
	case KindBool:
		var out bool
		err := weakDecode(v, &out)
		return out, err
	case KindStringList:
		var out []string
		err := weakDecode(v, &out)
		return out, err
	case KindMap:
		m, ok := asMapping(v)
		if !ok {
			return nil, fmt.Errorf("expected a mapping, got %T", v)
		}
		return m.Clone(), nil
	default:
		return cloneValue(v), nil
	}
}

func weakDecode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("cannot use %v (%T): %w", in, in, err)
	}
	return nil
}

// asMapping accepts Settings, string-keyed maps and the map[any]any some YAML
// decoders produce.
func asMapping(v any) (Settings, bool) {
	switch m := v.(type) {
	case Settings:
		return m, true
	case map[string]any:
		return Settings(m), true
	case map[any]any:
		out := make(Settings, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func cloneValue(v any) any {
	if m, ok := asMapping(v); ok {
		return m.Clone()
	}
	if l, ok := v.([]string); ok {
		return append([]string(nil), l...)
	}
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// settingToString renders v for embedding in SQL text or messages. Empty values
// (nil, "", "0", false, zero numbers, empty lists and mappings) yield def. Lists
// are joined with elemSep; with keysToo each element is preceded by its index or
// key and kvSep. Mappings are rendered in key order.
func settingToString(v any, def string, keysToo bool, kvSep, elemSep string) string {
	if isEmpty(v) {
		return def
	}

	if m, ok := asMapping(v); ok {
		parts := make([]string, 0, len(m))
		for _, k := range sortedKeys(m) {
			if keysToo {
				parts = append(parts, k+kvSep+fmt.Sprint(m[k]))
			} else {
				parts = append(parts, fmt.Sprint(m[k]))
			}
		}
		return strings.Join(parts, elemSep)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			elem := fmt.Sprint(rv.Index(i).Interface())
			if keysToo {
				elem = fmt.Sprint(i) + kvSep + elem
			}
			parts[i] = elem
		}
		return strings.Join(parts, elemSep)
	}

	return fmt.Sprint(v)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return val == "" || val == "0"
	case bool:
		return !val
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
