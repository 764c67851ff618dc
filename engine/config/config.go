package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

type WindowConfig struct {
	// The application name used in windowing.
	Title string `toml:"title"`
	// Window starting width.
	Width uint32 `toml:"width"`
	// Window starting height.
	Height uint32 `toml:"height"`
	// Window starting position x axis.
	X int32 `toml:"x"`
	// Window starting position y axis.
	Y int32 `toml:"y"`
}

type RendererConfig struct {
	Quality Quality `toml:"quality"`
	// One of "disabled", "4", "8", "16". Empty keeps the preset.
	Msaa       string `toml:"msaa"`
	Vsync      bool   `toml:"vsync"`
	Validation bool   `toml:"validation"`
	// Zero keeps the preset.
	ShadowMapSize uint32 `toml:"shadow_map_size"`
	// Zero keeps the preset.
	Anisotropy float32 `toml:"anisotropy"`
}

type AssetsConfig struct {
	// Directory holding the builtin compiled shaders.
	ShaderDir string `toml:"shader_dir"`
	// Reload shaders created with watch enabled when their file changes.
	Watch bool `toml:"watch"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	Log      LogConfig      `toml:"log"`
}

// QualitySettings are the renderer settings resolved from the preset and overrides.
type QualitySettings struct {
	ShadowMapSize uint32
	Anisotropy    float32
	Msaa          metadata.Msaa
	Pcf           metadata.Pcf
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Kiln",
			Width:  1280,
			Height: 720,
			X:      100,
			Y:      100,
		},
		Renderer: RendererConfig{
			Quality: QualityMedium,
			Vsync:   true,
		},
		Assets: AssetsConfig{
			ShaderDir: "assets/shaders",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and validates the TOML file at path. Keys missing from the file
// keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "malformed toml"), ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Wrapf(ErrInvalidConfig, "window size %dx%d", c.Window.Width, c.Window.Height)
	}
	c.Renderer.Quality = Quality(strings.ToLower(string(c.Renderer.Quality)))
	if _, err := preset(c.Renderer.Quality); err != nil {
		return err
	}
	if _, err := parseMsaa(c.Renderer.Msaa); err != nil {
		return err
	}
	if size := c.Renderer.ShadowMapSize; size != 0 && (size&(size-1) != 0 || size > 16384) {
		return errors.Wrapf(ErrInvalidConfig, "shadow_map_size %d must be a power of two up to 16384", size)
	}
	if a := c.Renderer.Anisotropy; a < 0 || a > 16 {
		return errors.Wrapf(ErrInvalidConfig, "anisotropy %v must be within [0, 16]", a)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown log level %q", c.Log.Level)
	}
	return nil
}

// Settings resolves the quality preset with the explicit overrides applied.
func (c *Config) Settings() (QualitySettings, error) {
	s, err := preset(c.Renderer.Quality)
	if err != nil {
		return s, err
	}
	if c.Renderer.Msaa != "" {
		if s.Msaa, err = parseMsaa(c.Renderer.Msaa); err != nil {
			return s, err
		}
	}
	if c.Renderer.ShadowMapSize != 0 {
		s.ShadowMapSize = c.Renderer.ShadowMapSize
	}
	if c.Renderer.Anisotropy != 0 {
		s.Anisotropy = c.Renderer.Anisotropy
	}
	return s, nil
}

func preset(q Quality) (QualitySettings, error) {
	switch q {
	case QualityLow:
		return QualitySettings{ShadowMapSize: 1024, Anisotropy: 1, Msaa: metadata.MsaaDisabled, Pcf: metadata.PcfDisabled}, nil
	case QualityMedium:
		return QualitySettings{ShadowMapSize: 2048, Anisotropy: 4, Msaa: metadata.MsaaX4, Pcf: metadata.PcfX16}, nil
	case QualityHigh:
		return QualitySettings{ShadowMapSize: 4096, Anisotropy: 16, Msaa: metadata.MsaaX4, Pcf: metadata.PcfX16}, nil
	}
	return QualitySettings{}, errors.Wrapf(ErrInvalidConfig, "unknown quality %q", q)
}

func parseMsaa(value string) (metadata.Msaa, error) {
	switch strings.ToLower(value) {
	case "", "disabled", "off", "1":
		return metadata.MsaaDisabled, nil
	case "4":
		return metadata.MsaaX4, nil
	case "8":
		return metadata.MsaaX8, nil
	case "16":
		return metadata.MsaaX16, nil
	}
	return metadata.MsaaDisabled, errors.Wrapf(ErrInvalidConfig, "unknown msaa %q", value)
}
