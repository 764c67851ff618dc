package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    QualitySettings
		wantErr bool
	}{
		{
			name:  "defaults",
			input: ``,
			want:  QualitySettings{ShadowMapSize: 2048, Anisotropy: 4, Msaa: metadata.MsaaX4, Pcf: metadata.PcfX16},
		},
		{
			name:  "low preset",
			input: "[renderer]\nquality = \"low\"\n",
			want:  QualitySettings{ShadowMapSize: 1024, Anisotropy: 1, Msaa: metadata.MsaaDisabled, Pcf: metadata.PcfDisabled},
		},
		{
			name:  "high preset is case insensitive",
			input: "[renderer]\nquality = \"HIGH\"\n",
			want:  QualitySettings{ShadowMapSize: 4096, Anisotropy: 16, Msaa: metadata.MsaaX4, Pcf: metadata.PcfX16},
		},
		{
			name: "overrides",
			input: `[renderer]
quality = "medium"
msaa = "16"
shadow_map_size = 512
anisotropy = 8.0
`,
			want: QualitySettings{ShadowMapSize: 512, Anisotropy: 8, Msaa: metadata.MsaaX16, Pcf: metadata.PcfX16},
		},
		{
			name:  "msaa disabled over preset",
			input: "[renderer]\nquality = \"high\"\nmsaa = \"disabled\"\n",
			want:  QualitySettings{ShadowMapSize: 4096, Anisotropy: 16, Msaa: metadata.MsaaDisabled, Pcf: metadata.PcfX16},
		},
		{name: "unknown quality", input: "[renderer]\nquality = \"ultra\"\n", wantErr: true},
		{name: "unknown msaa", input: "[renderer]\nmsaa = \"2\"\n", wantErr: true},
		{name: "shadow map not power of two", input: "[renderer]\nshadow_map_size = 1000\n", wantErr: true},
		{name: "anisotropy too high", input: "[renderer]\nanisotropy = 32.0\n", wantErr: true},
		{name: "bad log level", input: "[log]\nlevel = \"verbose\"\n", wantErr: true},
		{name: "zero window", input: "[window]\nwidth = 0\n", wantErr: true},
		{name: "malformed", input: "[renderer\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			got, err := cfg.Settings()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Settings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiln.toml")
	content := `[window]
title = "Testbed"
width = 800
height = 600

[assets]
shader_dir = "shaders/bin"
watch = true

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Window.Title != "Testbed" || cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Window.X != 100 {
		t.Errorf("unset key lost its default: x = %d", cfg.Window.X)
	}
	if !cfg.Assets.Watch || cfg.Assets.ShaderDir != "shaders/bin" {
		t.Errorf("assets = %+v", cfg.Assets)
	}
	if !cfg.Renderer.Vsync {
		t.Error("vsync default lost")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
