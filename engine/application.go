package engine

import (
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/math"
	"github.com/spaghettifunk/simplegfx/engine/renderer/components"
	"github.com/spaghettifunk/simplegfx/engine/renderer/vulkan"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32
	// Window starting position y axis, if applicable.
	StartPosY uint32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name     string
	LogLevel string
	// Root for relative asset paths.
	AssetsDir string
	// Reload textures when their files change on disk.
	HotReload bool
	// Enable the Vulkan validation layers.
	Validation bool
	Renderer   vulkan.RendererConfig
}

// NewApplicationConfig maps the configuration file onto the engine settings.
func NewApplicationConfig(cfg *core.Config) *ApplicationConfig {
	app := cfg.Application
	r := cfg.Renderer
	c := cfg.Camera
	return &ApplicationConfig{
		StartPosX:   app.PosX,
		StartPosY:   app.PosY,
		StartWidth:  app.Width,
		StartHeight: app.Height,
		Name:        app.Name,
		LogLevel:    app.LogLevel,
		AssetsDir:   app.AssetsDir,
		HotReload:   app.HotReload,
		Validation:  r.Validation,
		Renderer: vulkan.RendererConfig{
			TextureCapacity: r.TextureCapacity,
			MSAASamples:     r.MSAASamples,
			VertexShader:    r.VertexShader,
			FragmentShader:  r.FragmentShader,
			ClearColor:      r.ClearColor,
			Camera: components.NewCamera(
				math.NewVec3FromArray(c.Eye),
				math.NewVec3FromArray(c.Center),
				math.NewVec3FromArray(c.Up),
				c.Fov, c.Near, c.Far,
			),
		},
	}
}
