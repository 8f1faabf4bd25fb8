package config

import "go.uber.org/fx"

// Module provides *Config loaded from path; an empty path falls back to CONFIG_FILE.
func Module(path string) fx.Option {
	return fx.Module("config",
		fx.Provide(func() (*Config, error) {
			if path == "" {
				return NewConfig()
			}
			return Load(path)
		}),
	)
}
