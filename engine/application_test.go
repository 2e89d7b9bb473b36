package engine

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadApplicationConfigMissingFile(t *testing.T) {
	cfg, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadApplicationConfig() error = %v", err)
	}
	def := DefaultApplicationConfig()
	if cfg.Name != def.Name || cfg.Renderer != def.Renderer || cfg.Window != def.Window {
		t.Errorf("config = %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadApplicationConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
name = "Triangle"
log_level = "info"

[window]
width = 640
height = 480

[renderer]
frames_in_flight = 3
fence_timeout = "250ms"
present_mode = "mailbox"
clear_color = "#336699"
`)
	cfg, err := LoadApplicationConfig(path)
	if err != nil {
		t.Fatalf("LoadApplicationConfig() error = %v", err)
	}

	if cfg.Name != "Triangle" || cfg.Window.StartWidth != 640 || cfg.Window.StartHeight != 480 {
		t.Errorf("window = %+v, name = %q", cfg.Window, cfg.Name)
	}
	// Keys that are absent keep their defaults.
	if cfg.Window.StartPosX != 100 || cfg.AssetsDir != "assets" || !cfg.Renderer.Validation {
		t.Errorf("defaults lost: %+v", cfg)
	}

	shaders := metadata.ShaderSet{Vertex: &metadata.Resource{Name: "v"}, Fragment: &metadata.Resource{Name: "f"}}
	rc, err := cfg.RendererBackendConfig(shaders)
	if err != nil {
		t.Fatalf("RendererBackendConfig() error = %v", err)
	}
	if rc.FramesInFlight != 3 || rc.FenceTimeout != 250*time.Millisecond || rc.PresentMode != metadata.PresentModeMailbox {
		t.Errorf("renderer config = %+v", rc)
	}
	if rc.ApplicationName != "Triangle" || rc.Shaders.Vertex.Name != "v" {
		t.Errorf("renderer config = %+v", rc)
	}
	want := metadata.ClearColor{R: 0x33 / 255.0, G: 0x66 / 255.0, B: 0x99 / 255.0, A: 1}
	if rc.ClearColor != want {
		t.Errorf("clear color = %+v, want %+v", rc.ClearColor, want)
	}
}

func TestLoadApplicationConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "frames = 2\n"},
		{"zero frames in flight", "[renderer]\nframes_in_flight = 0\n"},
		{"negative timeout", "[renderer]\nfence_timeout = \"-1s\"\n"},
		{"bad duration", "[renderer]\nfence_timeout = \"soon\"\n"},
		{"unknown present mode", "[renderer]\npresent_mode = \"vsync\"\n"},
		{"unknown color", "[renderer]\nclear_color = \"ultraviolet\"\n"},
		{"unknown log level", "log_level = \"chatty\"\n"},
		{"zero width", "[window]\nwidth = 0\n"},
		{"missing shader", "[renderer]\nvertex_shader = \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadApplicationConfig(writeConfig(t, tt.body))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("LoadApplicationConfig() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestParseClearColor(t *testing.T) {
	tests := []struct {
		in      string
		want    metadata.ClearColor
		wantErr bool
	}{
		{in: "black", want: metadata.ClearColor{A: 1}},
		{in: "White", want: metadata.ClearColor{R: 1, G: 1, B: 1, A: 1}},
		{in: "#ff000080", want: metadata.ClearColor{R: 1, A: 128 / 255.0}},
		{in: "#00ff00", want: metadata.ClearColor{G: 1, A: 1}},
		{in: "#fff", wantErr: true},
		{in: "#gggggg", wantErr: true},
		{in: "nope", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseClearColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClearColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseClearColor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
