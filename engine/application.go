package engine

import (
	"github.com/spaghettifunk/kiln/engine/config"
)

type ApplicationConfig struct {
	// The application name used in windowing. Overrides the config title when set.
	Name string
	// TOML file to load the configuration from. Empty uses the defaults.
	ConfigPath string
	// Used as is when set, ConfigPath is then ignored.
	Config *config.Config
}

// load resolves the configuration of the application.
func (ac *ApplicationConfig) load() (*config.Config, error) {
	cfg := ac.Config
	if cfg == nil {
		if ac.ConfigPath == "" {
			cfg = config.Default()
		} else {
			loaded, err := config.Load(ac.ConfigPath)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
	}
	if ac.Name != "" {
		cfg.Window.Title = ac.Name
	}
	return cfg, cfg.Validate()
}
