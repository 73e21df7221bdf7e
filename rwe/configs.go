package rwe

// Config is the declarative part of a Host, loaded by the CLI.
type Config struct {
	// ModuleDirs are searched recursively for Module.<name>.so plugins.
	ModuleDirs []string `koanf:"module_dirs"`

	// DisableModuleCache builds a fresh module instance for every execution.
	DisableModuleCache bool `koanf:"disable_module_cache"`

	// ExceptionTemplate is displayed through the template engine on failure instead
	// of the built-in page.
	ExceptionTemplate string `koanf:"exception_template"`

	// Debug adds loader errors to failure messages.
	Debug bool `koanf:"debug"`

	// WebRootDir is handed to modules that resolve web paths.
	WebRootDir string `koanf:"web_root_dir"`
}

// Options returns the host options equivalent to c.
func (c Config) Options() []Option {
	opts := []Option{
		WithModuleCaching(!c.DisableModuleCache),
		WithDebug(c.Debug),
	}
	if len(c.ModuleDirs) > 0 {
		opts = append(opts, WithModuleDirs(c.ModuleDirs...))
	}
	if c.ExceptionTemplate != "" {
		opts = append(opts, WithExceptionTemplate(c.ExceptionTemplate))
	}
	if c.WebRootDir != "" {
		opts = append(opts, WithWebRootDir(c.WebRootDir))
	}
	return opts
}
