package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

const (
	configFileName = "config.toml"
	configHomeDir  = ".simplegfx"
)

type Config struct {
	Application ApplicationSection `toml:"application"`
	Renderer    RendererSection    `toml:"renderer"`
	Camera      CameraSection      `toml:"camera"`
	Models      []ModelSection     `toml:"models"`
}

type ApplicationSection struct {
	Name      string `toml:"name"`
	PosX      uint32 `toml:"pos_x"`
	PosY      uint32 `toml:"pos_y"`
	Width     uint32 `toml:"width"`
	Height    uint32 `toml:"height"`
	LogLevel  string `toml:"log_level"`
	AssetsDir string `toml:"assets_dir"`
	// Reload textures when their files change on disk.
	HotReload bool `toml:"hot_reload"`
}

type RendererSection struct {
	TextureCapacity uint32     `toml:"texture_capacity"`
	MSAASamples     uint32     `toml:"msaa_samples"`
	Validation      bool       `toml:"validation"`
	VertexShader    string     `toml:"vertex_shader"`
	FragmentShader  string     `toml:"fragment_shader"`
	ClearColor      [4]float32 `toml:"clear_color"`
}

type CameraSection struct {
	Eye    [3]float32 `toml:"eye"`
	Center [3]float32 `toml:"center"`
	Up     [3]float32 `toml:"up"`
	// Vertical field of view in degrees.
	Fov  float32 `toml:"fov"`
	Near float32 `toml:"near"`
	Far  float32 `toml:"far"`
}

type ModelSection struct {
	Path     string     `toml:"path"`
	Texture  string     `toml:"texture"`
	Location [3]float32 `toml:"location"`
	Rotation [3]float32 `toml:"rotation"`
	Scale    float32    `toml:"scale"`
}

// DefaultConfig is the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationSection{
			Name:      "Simple Graphics",
			PosX:      100,
			PosY:      100,
			Width:     1280,
			Height:    720,
			LogLevel:  "info",
			AssetsDir: "assets",
		},
		Renderer: RendererSection{
			TextureCapacity: 3,
			MSAASamples:     8,
			Validation:      false,
			VertexShader:    "shaders/vert.spv",
			FragmentShader:  "shaders/frag.spv",
			ClearColor:      [4]float32{0, 0, 0, 1},
		},
		Camera: CameraSection{
			Eye:    [3]float32{0, 7, 0},
			Center: [3]float32{0, 0, 0},
			Up:     [3]float32{0, 0, 1},
			Fov:    45,
			Near:   0.1,
			Far:    10,
		},
	}
}

// LoadConfig reads path, or when path is empty the first of ./config.toml
// and ~/.simplegfx/config.toml that exists. Values missing from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		p, err := findConfig()
		if err != nil {
			return nil, err
		}
		if p == "" {
			LogInfo("no configuration file found, using defaults")
			return cfg, cfg.Validate()
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%w: %s:%d:%d: %s", ErrInvalidConfig, path, row, col, derr.Error())
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, path, err.Error())
	}
	LogInfo("configuration loaded from %s", path)
	return cfg, cfg.Validate()
}

func findConfig() (string, error) {
	candidates := []string{configFileName}
	home, err := homedir.Dir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, configHomeDir, configFileName))
	} else {
		LogWarn("cannot resolve home directory: %s", err)
	}
	for _, c := range candidates {
		_, err := os.Stat(c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", nil
}

// Validate reports the first value that would make the renderer unusable.
func (c *Config) Validate() error {
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return fmt.Errorf("%w: window size must be non-zero", ErrInvalidConfig)
	}
	if c.Renderer.TextureCapacity == 0 {
		return fmt.Errorf("%w: texture_capacity must be at least 1", ErrInvalidConfig)
	}
	if c.Renderer.MSAASamples == 0 {
		c.Renderer.MSAASamples = 1
	}
	if c.Renderer.MSAASamples&(c.Renderer.MSAASamples-1) != 0 {
		return fmt.Errorf("%w: msaa_samples must be a power of two", ErrInvalidConfig)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("%w: camera requires 0 < near < far", ErrInvalidConfig)
	}
	if c.Camera.Fov <= 0 || c.Camera.Fov >= 180 {
		return fmt.Errorf("%w: camera fov must be in (0, 180)", ErrInvalidConfig)
	}
	textures := map[string]struct{}{}
	for i := range c.Models {
		m := &c.Models[i]
		if m.Path == "" {
			return fmt.Errorf("%w: models[%d] has no path", ErrInvalidConfig, i)
		}
		if m.Scale == 0 {
			m.Scale = 1
		}
		if m.Texture != "" {
			textures[m.Texture] = struct{}{}
		}
	}
	if uint32(len(textures)) > c.Renderer.TextureCapacity {
		return fmt.Errorf("%w: %d distinct textures exceed texture_capacity %d", ErrTextureCapacityExceeded, len(textures), c.Renderer.TextureCapacity)
	}
	return nil
}
