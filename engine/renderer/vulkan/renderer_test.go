package vulkan

import (
	"errors"
	"strconv"
	"testing"

	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRendererConfig() RendererConfig {
	config := DefaultRendererConfig()
	config.VertexShader = "vert.spv"
	config.FragmentShader = "frag.spv"
	return config
}

func newTestRenderer(t *testing.T) (*Renderer, *fakeBackend, *fakeWindow) {
	t.Helper()
	fake := newFakeBackend()
	window := &fakeWindow{width: 1280, height: 720}
	r, err := NewRenderer(fake, window, newFakeAssets(), testRendererConfig())
	require.NoError(t, err)
	return r, fake, window
}

// loadDemoScene loads three textures and three spinning models.
func loadDemoScene(t *testing.T, r *Renderer) []ModelHandle {
	t.Helper()
	for _, path := range []string{"a.png", "b.png", "c.png"} {
		_, err := r.LoadTexture(path)
		require.NoError(t, err)
	}
	var handles []ModelHandle
	for i, x := range []float32{2.5, 0, -2.5} {
		h, err := r.LoadModel("quad.obj")
		require.NoError(t, err)
		require.NoError(t, r.SetModelLocation(h, math.NewVec3(x, 0, 0)))
		require.NoError(t, r.SetModelRotation(h, math.NewVec3(60, 0, 0)))
		require.NoError(t, r.SetModelTexture(h, uint32(i)))
		handles = append(handles, h)
	}
	return handles
}

func TestNewRendererFailsOnSmallPushConstantLimit(t *testing.T) {
	fake := newFakeBackend()
	fake.limits.MaxPushConstantsSize = 128
	_, err := NewRenderer(fake, &fakeWindow{width: 1, height: 1}, newFakeAssets(), testRendererConfig())
	assert.ErrorIs(t, err, core.ErrPushConstantsTooLarge)
	assert.Empty(t, fake.calls, "nothing created")
}

func TestNewRendererCleansUpOnFailure(t *testing.T) {
	fake := newFakeBackend()
	config := testRendererConfig()
	config.FragmentShader = "missing.spv"
	_, err := NewRenderer(fake, &fakeWindow{width: 800, height: 600}, newFakeAssets(), config)
	require.Error(t, err)
	assert.Empty(t, fake.leaks())
}

func TestNewRendererWaitsForNonZeroFramebuffer(t *testing.T) {
	fake := newFakeBackend()
	window := &fakeWindow{width: 640, height: 480, pending: [][2]uint32{{0, 0}, {0, 0}}}
	r, err := NewRenderer(fake, window, newFakeAssets(), testRendererConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, window.waits)
	assert.Equal(t, Extent{Width: 640, Height: 480}, r.Swapchain().Extent())
}

func TestDrawFrameRecordsEveryModel(t *testing.T) {
	r, fake, _ := newTestRenderer(t)
	loadDemoScene(t, r)

	require.NoError(t, r.DrawFrame(0))

	rec := fake.recorders[len(fake.recorders)-1]
	assert.Len(t, rec.draws, 3)
	for _, set := range rec.sets {
		assert.Same(t, r.binder.Set(0), set, "first frame renders image 0")
	}
	submit := fake.submits[len(fake.submits)-1]
	slot := r.sync.Slot(0)
	assert.Same(t, slot.InFlight, submit.fence)
	assert.Same(t, slot.ImageAvailable, submit.wait)
	assert.Same(t, slot.RenderFinished, submit.signal)
	assert.Equal(t, uint64(1), r.Stats().Frames)
	assert.Equal(t, uint32(1), r.sync.CurrentIndex())
}

func TestDrawFrameWaitsOnSlotFenceBeforeReuse(t *testing.T) {
	r, fake, _ := newTestRenderer(t)
	loadDemoScene(t, r)

	require.NoError(t, r.DrawFrame(0))
	require.NoError(t, r.DrawFrame(0.016))
	first := r.sync.Slot(0).InFlight
	require.False(t, first.IsSignaled)

	mark := len(fake.calls)
	require.NoError(t, r.DrawFrame(0.032))
	frame := fake.calls[mark:]
	require.NotEmpty(t, frame)
	assert.Equal(t, "wait fence "+fmtID(fake.fenceID(first)), frame[0], "slot fence waited before anything else")

	reset := indexOf(frame, "reset fence "+fmtID(fake.fenceID(first)))
	submit := indexOf(frame, "submit fence "+fmtID(fake.fenceID(first)))
	assert.Greater(t, reset, 0)
	assert.Greater(t, submit, reset)
}

func TestDrawFrameLeavesFenceSignaledWhenRecordingFails(t *testing.T) {
	r, fake, _ := newTestRenderer(t)
	loadDemoScene(t, r)
	fence := r.sync.Current().InFlight

	fake.endErr = errors.New("out of device memory")
	mark := len(fake.calls)
	submits := len(fake.submits)
	require.Error(t, r.DrawFrame(0))

	assert.True(t, fence.IsSignaled)
	assert.Equal(t, -1, indexOf(fake.calls[mark:], "reset fence "+fmtID(fake.fenceID(fence))))
	assert.Len(t, fake.submits, submits)

	fake.endErr = nil
	require.NoError(t, r.DrawFrame(0.016))
	assert.Len(t, fake.submits, submits+1)
}

func TestDrawFrameRebuildsOnOutOfDateAcquire(t *testing.T) {
	r, fake, _ := newTestRenderer(t)
	handles := loadDemoScene(t, r)
	textures := map[uint32]TextureHandle{}
	for slot := uint32(0); slot < 3; slot++ {
		textures[slot], _ = r.Textures().Handle(slot)
	}
	oldViews := append([]*VulkanImageView(nil), r.Swapchain().Views()...)
	oldFramebuffers := append([]*VulkanFramebuffer(nil), r.Swapchain().Framebuffers()...)
	submits := len(fake.submits)

	fake.acquireErrs = []error{core.ErrSwapchainOutOfDate}
	require.NoError(t, r.DrawFrame(0))

	assert.Len(t, fake.submits, submits, "frame skipped")
	assert.Equal(t, uint64(1), r.Stats().Rebuilds)
	for i := range oldViews {
		assert.NotSame(t, oldViews[i], r.Swapchain().Views()[i])
		assert.NotSame(t, oldFramebuffers[i], r.Swapchain().Framebuffers()[i])
	}
	for _, h := range handles {
		_, ok := r.Models().Get(h)
		assert.True(t, ok, "model handles survive a rebuild")
	}
	for _, h := range textures {
		assert.True(t, r.Textures().Valid(h), "texture handles survive a rebuild")
	}

	require.NoError(t, r.DrawFrame(0.016))
	rec := fake.recorders[len(fake.recorders)-1]
	assert.Len(t, rec.draws, 3)
}

func TestDrawFrameRebuildsAfterSuboptimalPresentAndResize(t *testing.T) {
	r, fake, window := newTestRenderer(t)
	loadDemoScene(t, r)

	fake.presentErrs = []error{core.ErrSwapchainSuboptimal}
	require.NoError(t, r.DrawFrame(0))
	assert.Equal(t, uint64(1), r.Stats().Rebuilds)

	window.width, window.height = 1920, 1080
	r.Resized()
	require.NoError(t, r.DrawFrame(0.016))
	assert.Equal(t, uint64(2), r.Stats().Rebuilds)
	assert.Equal(t, Extent{Width: 1920, Height: 1080}, r.Swapchain().Extent())

	require.NoError(t, r.DrawFrame(0.032))
	assert.Equal(t, uint64(2), r.Stats().Rebuilds)
}

func TestRebuildWithNewImageCountReallocatesDescriptorSets(t *testing.T) {
	r, fake, _ := newTestRenderer(t)
	loadDemoScene(t, r)

	fake.imageCount = 4
	fake.acquireErrs = []error{core.ErrSwapchainOutOfDate}
	require.NoError(t, r.DrawFrame(0))

	assert.Equal(t, uint32(4), r.binder.ImageCount())
	assert.NotNil(t, r.binder.Set(3))
	assert.Nil(t, r.sync.ImageOwner(3))
}

func TestReloadTextureKeepsSlot(t *testing.T) {
	r, fake, _ := newTestRenderer(t)
	loadDemoScene(t, r)
	old, _ := r.Textures().Handle(1)
	before := r.Stats().Allocator

	fresh, err := r.ReloadTexture(1)
	require.NoError(t, err)
	after := r.Stats().Allocator

	assert.Equal(t, old.Slot, fresh.Slot)
	assert.NotEqual(t, old.Generation, fresh.Generation)
	assert.Equal(t, before.ImageFrees+1, after.ImageFrees)
	assert.Equal(t, before.ImageAllocs+1, after.ImageAllocs)

	// The free happened only after the device was idle.
	idle := indexOf(fake.calls, "wait idle")
	assert.GreaterOrEqual(t, idle, 0)

	n, err := r.ReloadTexturePath("c.png")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReloadTextureFailureKeepsCurrentTexture(t *testing.T) {
	r, fake, _ := newTestRenderer(t)
	loadDemoScene(t, r)
	old, _ := r.Textures().Handle(1)
	delete(r.assets.(*fakeAssets).images, "b.png")

	_, err := r.ReloadTexture(1)
	require.Error(t, err)

	assert.True(t, r.Textures().Valid(old))
	require.NoError(t, r.DrawFrame(0))
	assert.Len(t, fake.recorders[len(fake.recorders)-1].draws, 3)
}

func TestFreeTextureSkipsModelsUntilRefilled(t *testing.T) {
	r, fake, _ := newTestRenderer(t)
	loadDemoScene(t, r)

	require.NoError(t, r.FreeTexture(0))
	require.NoError(t, r.DrawFrame(0))
	assert.Len(t, fake.recorders[len(fake.recorders)-1].draws, 2)

	_, err := r.LoadTextureInto(0, "d.png")
	require.NoError(t, err)
	require.NoError(t, r.DrawFrame(0.016))
	assert.Len(t, fake.recorders[len(fake.recorders)-1].draws, 3)
}

func TestShutdownReleasesEverything(t *testing.T) {
	r, fake, _ := newTestRenderer(t)
	handles := loadDemoScene(t, r)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.DrawFrame(float64(i)*0.016))
	}
	require.NoError(t, r.FreeModel(handles[1]))
	fake.acquireErrs = []error{core.ErrSwapchainOutOfDate}
	require.NoError(t, r.DrawFrame(0.1))

	r.Shutdown()
	assert.Empty(t, fake.leaks())
	stats := r.Stats().Allocator
	assert.Equal(t, stats.BufferAllocs, stats.BufferFrees)
	assert.Equal(t, stats.ImageAllocs, stats.ImageFrees)
	assert.Zero(t, stats.LiveBytes)
}

func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

func fmtID(id int) string {
	return strconv.Itoa(id)
}
