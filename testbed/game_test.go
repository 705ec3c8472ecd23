package testbed

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/math"
	"github.com/spaghettifunk/simplegfx/engine/renderer/components"
	"github.com/spaghettifunk/simplegfx/engine/renderer/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScene struct {
	textures   []string
	models     []string
	transforms map[vulkan.ModelHandle]math.Transform
	slots      map[vulkan.ModelHandle]uint32
	failModel  string
}

func newFakeScene() *fakeScene {
	return &fakeScene{
		transforms: map[vulkan.ModelHandle]math.Transform{},
		slots:      map[vulkan.ModelHandle]uint32{},
	}
}

func (f *fakeScene) LoadTexture(path string) (vulkan.TextureHandle, error) {
	f.textures = append(f.textures, path)
	return vulkan.TextureHandle{Slot: uint32(len(f.textures) - 1)}, nil
}

func (f *fakeScene) LoadModel(path string) (vulkan.ModelHandle, error) {
	if path == f.failModel {
		return vulkan.ModelHandle{}, errors.New("broken mesh")
	}
	f.models = append(f.models, path)
	return vulkan.ModelHandle{Index: uint32(len(f.models) - 1)}, nil
}

func (f *fakeScene) SetModelTransform(h vulkan.ModelHandle, transform math.Transform) error {
	f.transforms[h] = transform
	return nil
}

func (f *fakeScene) SetModelTexture(h vulkan.ModelHandle, slot uint32) error {
	f.slots[h] = slot
	return nil
}

func TestLoadDefaultScene(t *testing.T) {
	scene := newFakeScene()
	state := &gameState{scene: DefaultScene(), textures: map[string]uint32{}}

	require.NoError(t, loadScene(scene, state))

	assert.Equal(t, []string{"textures/tire.png", "textures/crypto.png", "textures/earth.png"}, scene.textures)
	assert.Equal(t, []string{"models/tire.obj", "models/crypto.obj", "models/earth.obj"}, scene.models)
	require.Len(t, state.models, 3)

	earth := state.models[2]
	assert.Equal(t, uint32(2), scene.slots[earth])
	assert.Equal(t, math.Transform{
		Location: math.NewVec3(-2.5, 0, 0),
		Rotation: math.NewVec3(60, 0, 0),
		Scale:    math.NewVec3(0.2, 0.2, 0.2),
	}, scene.transforms[earth])
}

func TestLoadSceneSharesTextures(t *testing.T) {
	scene := newFakeScene()
	models := DefaultScene()
	models[1].Texture = models[0].Texture
	state := &gameState{scene: models, textures: map[string]uint32{}}

	require.NoError(t, loadScene(scene, state))
	assert.Len(t, scene.textures, 2)
	assert.Equal(t, scene.slots[state.models[0]], scene.slots[state.models[1]])
}

func TestLoadSceneStopsOnModelError(t *testing.T) {
	scene := newFakeScene()
	scene.failModel = "models/crypto.obj"
	state := &gameState{scene: DefaultScene(), textures: map[string]uint32{}}

	err := loadScene(scene, state)
	assert.ErrorContains(t, err, "models/crypto.obj")
	assert.Len(t, state.models, 1)
}

func TestNewTestGameFallsBackToDefaultScene(t *testing.T) {
	tg, err := NewTestGame(core.DefaultConfig())
	require.NoError(t, err)
	state := tg.State.(*gameState)
	assert.Equal(t, DefaultScene(), state.scene)
	assert.Equal(t, uint32(1280), tg.ApplicationConfig.StartWidth)
	assert.Equal(t, uint32(3), tg.ApplicationConfig.Renderer.TextureCapacity)
}

func TestMoveCameraFollowsHeldKeys(t *testing.T) {
	camera := components.NewDefaultCamera()
	held := map[core.KeyCode]bool{core.KEY_W: true}
	moveCamera(camera, func(k core.KeyCode) bool { return held[k] }, 0.5)

	// Half a second at two units per second, straight down -Y.
	assert.True(t, camera.Eye.Compare(math.NewVec3(0, 6, 0), 1e-5))

	held = map[core.KeyCode]bool{core.KEY_W: true, core.KEY_S: true}
	before := camera.Eye
	moveCamera(camera, func(k core.KeyCode) bool { return held[k] }, 1)
	assert.True(t, camera.Eye.Compare(before, 1e-5))
}
