package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
	"golang.org/x/image/colornames"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type WindowConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"height"`
}

type RendererConfig struct {
	Validation     bool     `toml:"validation"`
	FramesInFlight int      `toml:"frames_in_flight"`
	FenceTimeout   Duration `toml:"fence_timeout"`
	// One of immediate, mailbox, fifo, fifo_relaxed.
	PresentMode string `toml:"present_mode"`
	// A color name or #rrggbb / #rrggbbaa.
	ClearColor string `toml:"clear_color"`
	// Shader binaries, relative to the assets directory.
	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`
}

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name      string         `toml:"name"`
	LogLevel  string         `toml:"log_level"`
	AssetsDir string         `toml:"assets_dir"`
	Window    WindowConfig   `toml:"window"`
	Renderer  RendererConfig `toml:"renderer"`
}

// Duration is a time.Duration written as a string such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:      "Vulkan Playground",
		LogLevel:  "debug",
		AssetsDir: "assets",
		Window: WindowConfig{
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
		},
		Renderer: RendererConfig{
			Validation:     true,
			FramesInFlight: 2,
			FenceTimeout:   Duration{10 * time.Second},
			PresentMode:    metadata.PresentModeImmediate.String(),
			ClearColor:     "black",
			VertexShader:   "shaders/triangle.vert.spv",
			FragmentShader: "shaders/triangle.frag.spv",
		},
	}
}

// LoadApplicationConfig reads a TOML file over the defaults. A missing file
// yields the defaults.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	cfg := DefaultApplicationConfig()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		core.LogInfo("No configuration at %s, using defaults.", path)
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var details *toml.StrictMissingError
		if errors.As(err, &details) {
			return nil, fmt.Errorf("%s: %w: %s", path, ErrInvalidConfig, details.String())
		}
		return nil, fmt.Errorf("%s: %w: %w", path, ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *ApplicationConfig) Validate() error {
	var problems []string
	if c.Window.StartWidth == 0 || c.Window.StartHeight == 0 {
		problems = append(problems, "window size must be positive")
	}
	if c.Renderer.FramesInFlight < 1 {
		problems = append(problems, fmt.Sprintf("frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight))
	}
	if c.Renderer.FenceTimeout.Duration <= 0 {
		problems = append(problems, fmt.Sprintf("fence_timeout must be positive, got %s", c.Renderer.FenceTimeout))
	}
	if _, err := metadata.ParsePresentMode(c.Renderer.PresentMode); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := ParseClearColor(c.Renderer.ClearColor); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Renderer.VertexShader == "" || c.Renderer.FragmentShader == "" {
		problems = append(problems, "both shader paths are required")
	}
	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// RendererBackendConfig converts a validated configuration.
func (c *ApplicationConfig) RendererBackendConfig(shaders metadata.ShaderSet) (metadata.RendererBackendConfig, error) {
	mode, err := metadata.ParsePresentMode(c.Renderer.PresentMode)
	if err != nil {
		return metadata.RendererBackendConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	clear, err := ParseClearColor(c.Renderer.ClearColor)
	if err != nil {
		return metadata.RendererBackendConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return metadata.RendererBackendConfig{
		ApplicationName: c.Name,
		Validation:      c.Renderer.Validation,
		FramesInFlight:  c.Renderer.FramesInFlight,
		FenceTimeout:    c.Renderer.FenceTimeout.Duration,
		PresentMode:     mode,
		ClearColor:      clear,
		Shaders:         shaders,
	}, nil
}

// ParseClearColor accepts an SVG color name or #rrggbb / #rrggbbaa.
func ParseClearColor(s string) (metadata.ClearColor, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 6 {
			hex += "ff"
		}
		if len(hex) != 8 {
			return metadata.ClearColor{}, fmt.Errorf("color %q must be #rrggbb or #rrggbbaa", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return metadata.ClearColor{}, fmt.Errorf("color %q: %w", s, err)
		}
		return metadata.ClearColor{
			R: float32(v>>24&0xff) / 255,
			G: float32(v>>16&0xff) / 255,
			B: float32(v>>8&0xff) / 255,
			A: float32(v&0xff) / 255,
		}, nil
	}

	c, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return metadata.ClearColor{}, fmt.Errorf("unknown color %q", s)
	}
	return metadata.ClearColor{
		R: float32(c.R) / 255,
		G: float32(c.G) / 255,
		B: float32(c.B) / 255,
		A: float32(c.A) / 255,
	}, nil
}
