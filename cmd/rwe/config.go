package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/logger"
	"github.com/aalemi-dev/rwe/metrics"
	"github.com/aalemi-dev/rwe/rwe"
	"github.com/aalemi-dev/rwe/tracer"
)

// envPrefix marks the environment variables read into the config. A double
// underscore separates levels: RWE_DATABASE__DSN sets database.dsn.
const envPrefix = "RWE_"

// Config is the whole CLI configuration.
type Config struct {
	Output   string          `koanf:"output" validate:"omitempty,oneof=table json yaml"`
	Log      logger.Config   `koanf:"log"`
	Database database.Config `koanf:"database"`
	Host     rwe.Config      `koanf:"host"`
	Metrics  metrics.Config  `koanf:"metrics"`
	Tracer   tracer.Config   `koanf:"tracer"`
}

// flagKeys maps command-line flags to config keys. Flags not listed are command
// arguments and never reach the config.
var flagKeys = map[string]string{
	"dsn":                "database.dsn",
	"persistent":         "database.persistent",
	"module-dir":         "host.module_dirs",
	"no-cache":           "host.disable_module_cache",
	"debug":              "host.debug",
	"exception-template": "host.exception_template",
	"output":             "output",
	"log-level":          "log.level",
	"metrics-addr":       "metrics.address",
	"trace-export":       "tracer.enable_export",
	"trace-endpoint":     "tracer.endpoint",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"output":               "table",
		"log.level":            logger.Warning,
		"log.encoding":         logger.EncodingConsole,
		"log.service_name":     "rwe",
		"log.enable_tracing":   true,
		"log.output_paths":     []string{"stderr"},
		"metrics.service_name": "rwe",
		"tracer.service_name":  "rwe",
		"tracer.insecure":      true,
	}
}

// loadConfig merges, lowest precedence first, the defaults, the YAML file at path,
// the RWE_ environment and the flags that were set.
func loadConfig(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
