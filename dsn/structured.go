package dsn

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// structured mirrors Descriptor for decoding; unknown keys are collected in Extra.
type structured struct {
	Descriptor `mapstructure:",squash"`
	Extra      map[string]any `mapstructure:",remain"`
}

// FromMap builds a Descriptor from an already structured mapping. The mapping is
// decoded over the defaults (protocol "tcp"); keys that do not name a field become
// Options. The legacy keys phptype, dbsyntax and hostspec fill Engine, Dialect and
// Host when those are not given. Scalar values of any kind are accepted for string
// fields, so a port may be given as a number. Dialect defaults to Engine.
func FromMap(m map[string]any) (Descriptor, error) {
	out := structured{Descriptor: Descriptor{Protocol: ProtocolTCP}}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	if err := decoder.Decode(m); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	d := out.Descriptor
	applyAliases(&d, out.Extra)
	if d.Protocol == "" {
		d.Protocol = ProtocolTCP
	}
	if d.Dialect == "" {
		d.Dialect = d.Engine
	}
	for k, v := range out.Extra {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		if k == "options" {
			if err := d.mergeOptions(v); err != nil {
				return Descriptor{}, err
			}
			continue
		}
		d.setOption(k, fmt.Sprint(v))
	}
	return d, nil
}

// applyAliases fills empty fields from the legacy keys phptype, dbsyntax and hostspec.
// A hostspec of "host:port" also sets an empty Port.
func applyAliases(d *Descriptor, extra map[string]any) {
	legacy := func(key string) (string, bool) {
		v, ok := extra[key]
		if !ok || v == nil {
			return "", false
		}
		return fmt.Sprint(v), true
	}

	if v, ok := legacy("phptype"); ok && d.Engine == "" {
		d.Engine = v
	}
	if v, ok := legacy("dbsyntax"); ok && d.Dialect == "" {
		d.Dialect = v
	}
	if v, ok := legacy("hostspec"); ok && d.Host == "" {
		host, port, _ := strings.Cut(v, ":")
		d.Host = host
		if d.Port == "" {
			d.Port, _, _ = strings.Cut(port, ":")
		}
	}
}

func (d *Descriptor) mergeOptions(v any) error {
	switch opts := v.(type) {
	case map[string]string:
		for k, val := range opts {
			d.setOption(k, val)
		}
	case map[string]any:
		for k, val := range opts {
			d.setOption(k, fmt.Sprint(val))
		}
	default:
		return fmt.Errorf("%w: options must be a mapping, got %T", ErrInvalidMapping, v)
	}
	return nil
}

func (d *Descriptor) setOption(k, v string) {
	if d.Options == nil {
		d.Options = make(map[string]string)
	}
	d.Options[k] = v
}
