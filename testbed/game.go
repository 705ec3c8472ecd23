package testbed

import (
	"fmt"

	"github.com/spaghettifunk/simplegfx/engine"
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/math"
	"github.com/spaghettifunk/simplegfx/engine/renderer/components"
	"github.com/spaghettifunk/simplegfx/engine/renderer/vulkan"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32

	scene    []core.ModelSection
	models   []vulkan.ModelHandle
	textures map[string]uint32
}

// sceneRenderer is the part of the renderer the testbed drives.
type sceneRenderer interface {
	LoadTexture(path string) (vulkan.TextureHandle, error)
	LoadModel(path string) (vulkan.ModelHandle, error)
	SetModelTransform(h vulkan.ModelHandle, transform math.Transform) error
	SetModelTexture(h vulkan.ModelHandle, slot uint32) error
}

// DefaultScene is three spinning models side by side, each with its own
// texture.
func DefaultScene() []core.ModelSection {
	return []core.ModelSection{
		{
			Path:     "models/tire.obj",
			Texture:  "textures/tire.png",
			Location: [3]float32{2.5, 0, 0},
			Rotation: [3]float32{60, 0, 0},
			Scale:    0.05,
		},
		{
			Path:     "models/crypto.obj",
			Texture:  "textures/crypto.png",
			Location: [3]float32{0, 0, 0},
			Rotation: [3]float32{60, 0, 0},
			Scale:    0.04,
		},
		{
			Path:     "models/earth.obj",
			Texture:  "textures/earth.png",
			Location: [3]float32{-2.5, 0, 0},
			Rotation: [3]float32{60, 0, 0},
			Scale:    0.2,
		},
	}
}

func NewTestGame(cfg *core.Config) (*TestGame, error) {
	scene := cfg.Models
	if len(scene) == 0 {
		scene = DefaultScene()
	}
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: engine.NewApplicationConfig(cfg),
			State: &gameState{
				scene:    scene,
				textures: make(map[string]uint32),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Initialize() error {
	core.LogDebug("initializing testbed...")
	state := g.State.(*gameState)

	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, g.gameOnKey)

	if err := loadScene(g.Renderer, state); err != nil {
		return err
	}
	core.LogInfo("Scene ready: %d models, %d textures.", len(state.models), len(state.textures))
	return nil
}

// loadScene uploads every texture once, then every model, in scene order.
func loadScene(r sceneRenderer, state *gameState) error {
	for _, m := range state.scene {
		if m.Texture == "" {
			continue
		}
		if _, ok := state.textures[m.Texture]; ok {
			continue
		}
		h, err := r.LoadTexture(m.Texture)
		if err != nil {
			return fmt.Errorf("scene texture %s: %w", m.Texture, err)
		}
		state.textures[m.Texture] = h.Slot
	}

	for _, m := range state.scene {
		h, err := r.LoadModel(m.Path)
		if err != nil {
			return fmt.Errorf("scene model %s: %w", m.Path, err)
		}
		transform := math.Transform{
			Location: math.NewVec3FromArray(m.Location),
			Rotation: math.NewVec3FromArray(m.Rotation),
			Scale:    math.NewVec3(m.Scale, m.Scale, m.Scale),
		}
		if err := r.SetModelTransform(h, transform); err != nil {
			return err
		}
		if slot, ok := state.textures[m.Texture]; ok {
			if err := r.SetModelTexture(h, slot); err != nil {
				return err
			}
		}
		state.models = append(state.models, h)
	}
	return nil
}

// cameraSpeed is in world units per second.
const cameraSpeed float32 = 2

func (g *TestGame) Update(deltaTime float64) error {
	if g.Renderer == nil {
		return nil
	}
	moveCamera(g.Renderer.Models().Camera(), core.InputIsKeyDown, float32(deltaTime))
	return nil
}

// moveCamera flies the camera with WASD and Q/E for up and down.
func moveCamera(camera *components.Camera, isDown func(core.KeyCode) bool, deltaTime float32) {
	amount := cameraSpeed * deltaTime
	if isDown(core.KEY_W) {
		camera.MoveForward(amount)
	}
	if isDown(core.KEY_S) {
		camera.MoveBackward(amount)
	}
	if isDown(core.KEY_A) {
		camera.MoveLeft(amount)
	}
	if isDown(core.KEY_D) {
		camera.MoveRight(amount)
	}
	if isDown(core.KEY_Q) {
		camera.MoveUp(amount)
	}
	if isDown(core.KEY_E) {
		camera.MoveDown(amount)
	}
}

func (g *TestGame) Render(deltaTime float64) error {
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogDebug("shutting down testbed...")
	return nil
}

func (g *TestGame) gameOnKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		return
	}
	switch ke.KeyCode {
	case core.KEY_ESCAPE:
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_APPLICATION_QUIT,
		})
	case core.KEY_R:
		n, err := g.Renderer.ReloadTexturesWhere(func(string) bool { return true })
		if err != nil {
			core.LogError("reloading textures: %s", err)
			return
		}
		core.LogDebug("%d textures reloaded.", n)
	case core.KEY_HOME:
		g.Renderer.Models().Camera().Reset()
	case core.KEY_F1:
		stats := g.Renderer.Stats()
		core.LogInfo("frames %d, draws %d, rebuilds %d, %s", stats.Frames, stats.Draws, stats.Rebuilds, stats.Allocator)
	}
}
