package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, capacity uint32) (*TextureRegistry, *fakeBackend, *Allocator) {
	t.Helper()
	fake := newFakeBackend()
	alloc := NewAllocator(fake)
	registry, err := NewTextureRegistry(fake, alloc, newFakeAssets(), capacity)
	require.NoError(t, err)
	return registry, fake, alloc
}

func TestMipLevels(t *testing.T) {
	assert.Equal(t, uint32(1), MipLevels(1, 1))
	assert.Equal(t, uint32(3), MipLevels(4, 4))
	assert.Equal(t, uint32(4), MipLevels(8, 2))
	assert.Equal(t, uint32(11), MipLevels(1024, 768))
}

func TestTextureRegistryRejectsZeroCapacity(t *testing.T) {
	fake := newFakeBackend()
	_, err := NewTextureRegistry(fake, NewAllocator(fake), newFakeAssets(), 0)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestTextureRegistryCapacity(t *testing.T) {
	registry, _, _ := newTestRegistry(t, 3)

	for i, path := range []string{"a.png", "b.png", "c.png"} {
		h, err := registry.Load(path)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), h.Slot)
	}
	_, err := registry.Load("d.png")
	assert.ErrorIs(t, err, core.ErrTextureCapacityExceeded)
	assert.Equal(t, uint32(3), registry.Len())
}

func TestTextureRegistryConfigurableCapacity(t *testing.T) {
	registry, fake, _ := newTestRegistry(t, 5)
	for _, path := range []string{"a.png", "b.png", "c.png", "d.png", "a.png"} {
		_, err := registry.Load(path)
		require.NoError(t, err)
	}
	assert.Equal(t, uint32(5), registry.Capacity())
	_, err := registry.Load("b.png")
	assert.ErrorIs(t, err, core.ErrTextureCapacityExceeded)

	registry.Destroy()
	assert.Empty(t, fake.leaks())
}

func TestTextureRegistryLoadInto(t *testing.T) {
	registry, _, _ := newTestRegistry(t, 3)

	h, err := registry.LoadInto(2, "a.png")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), h.Slot)

	_, err = registry.LoadInto(2, "b.png")
	assert.ErrorIs(t, err, core.ErrTextureSlotOccupied)
	_, err = registry.LoadInto(3, "b.png")
	assert.ErrorIs(t, err, core.ErrTextureSlotOutOfRange)

	next, err := registry.Load("b.png")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), next.Slot, "lowest free slot")
}

func TestTextureUploadBuildsMipChain(t *testing.T) {
	registry, fake, _ := newTestRegistry(t, 3)

	_, err := registry.Load("b.png") // 8x2
	require.NoError(t, err)

	texture, ok := registry.Get(0)
	require.True(t, ok)
	assert.Equal(t, uint32(4), texture.MipLevels)
	assert.Equal(t, uint32(4), texture.Image.MipLevels)

	require.Len(t, fake.recorders, 1)
	rec := fake.recorders[0]
	assert.Equal(t, []fakeBlit{
		{srcLevel: 0, src: Extent{8, 2}, dst: Extent{4, 1}},
		{srcLevel: 1, src: Extent{4, 1}, dst: Extent{2, 1}},
		{srcLevel: 2, src: Extent{2, 1}, dst: Extent{1, 1}},
	}, rec.blits)

	first := rec.barriers[0]
	assert.Equal(t, vk.ImageLayoutUndefined, first.OldLayout)
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, first.NewLayout)
	assert.Equal(t, uint32(4), first.LevelCount)

	// Every level ends up readable by the shader exactly once.
	readable := map[uint32]int{}
	for _, b := range rec.barriers {
		if b.NewLayout == vk.ImageLayoutShaderReadOnlyOptimal {
			readable[b.BaseMipLevel]++
		}
	}
	assert.Equal(t, map[uint32]int{0: 1, 1: 1, 2: 1, 3: 1}, readable)
	assert.Equal(t, "copy buffer to image", rec.ops[1])
}

func TestTextureLoadRequiresLinearBlit(t *testing.T) {
	registry, fake, _ := newTestRegistry(t, 3)
	fake.blitUnsupported = true
	_, err := registry.Load("a.png")
	assert.ErrorIs(t, err, core.ErrLinearBlitUnsupported)
}

func TestTextureLoadMissingFileFreesNothingTwice(t *testing.T) {
	registry, fake, _ := newTestRegistry(t, 3)
	_, err := registry.Load("missing.png")
	require.Error(t, err)
	assert.Equal(t, map[string]int{"sampler": 1}, fake.leaks())
}

func TestTextureFreeEmptySlotIsNoOp(t *testing.T) {
	registry, fake, alloc := newTestRegistry(t, 3)
	before := len(fake.calls)

	require.NoError(t, registry.Free(1))
	assert.Len(t, fake.calls, before)
	assert.Equal(t, AllocatorStats{}, alloc.Stats())

	assert.ErrorIs(t, registry.Free(3), core.ErrTextureSlotOutOfRange)
}

func TestTextureFreeThenReloadIssuesFreshHandle(t *testing.T) {
	registry, fake, alloc := newTestRegistry(t, 3)

	old, err := registry.Load("a.png")
	require.NoError(t, err)
	loaded := alloc.Stats()

	require.NoError(t, registry.Free(old.Slot))
	freed := alloc.Stats()
	assert.Equal(t, loaded.ImageFrees+1, freed.ImageFrees)
	assert.Equal(t, loaded.ImageAllocs, freed.ImageAllocs)

	fresh, err := registry.Load("a.png")
	require.NoError(t, err)
	reloaded := alloc.Stats()
	assert.Equal(t, freed.ImageAllocs+1, reloaded.ImageAllocs)
	assert.Equal(t, freed.ImageFrees, reloaded.ImageFrees)

	assert.Equal(t, old.Slot, fresh.Slot)
	assert.NotEqual(t, old, fresh)
	assert.False(t, registry.Valid(old))
	assert.True(t, registry.Valid(fresh))

	registry.Destroy()
	assert.Empty(t, fake.leaks())
}

func TestTextureLoadRejectsShortPixelData(t *testing.T) {
	registry, fake, _ := newTestRegistry(t, 3)
	assets := registry.images.(*fakeAssets)
	assets.images["short.png"] = &metadata.ImageData{
		Width:        64,
		Height:       64,
		ChannelCount: 4,
		Pixels:       make([]uint8, 16),
	}

	_, err := registry.Load("short.png")
	assert.ErrorIs(t, err, core.ErrEmptyUpload)
	assert.Zero(t, registry.Len())
	assert.Equal(t, map[string]int{"sampler": 1}, fake.leaks())
}

func TestTextureReplaceSwapsUnderFreshHandle(t *testing.T) {
	registry, _, alloc := newTestRegistry(t, 3)
	old, err := registry.Load("a.png")
	require.NoError(t, err)
	before := alloc.Stats()

	fresh, err := registry.Replace(old.Slot, "b.png")
	require.NoError(t, err)
	after := alloc.Stats()

	assert.Equal(t, old.Slot, fresh.Slot)
	assert.False(t, registry.Valid(old))
	assert.True(t, registry.Valid(fresh))
	texture, ok := registry.Get(fresh.Slot)
	require.True(t, ok)
	assert.Equal(t, "b.png", texture.Path)
	assert.Equal(t, before.ImageAllocs+1, after.ImageAllocs)
	assert.Equal(t, before.ImageFrees+1, after.ImageFrees)
}

func TestTextureReplaceKeepsOldTextureOnFailure(t *testing.T) {
	registry, _, alloc := newTestRegistry(t, 3)
	old, err := registry.Load("a.png")
	require.NoError(t, err)
	texture, _ := registry.Get(old.Slot)
	before := alloc.Stats()

	_, err = registry.Replace(old.Slot, "missing.png")
	require.Error(t, err)

	assert.True(t, registry.Valid(old))
	kept, ok := registry.Get(old.Slot)
	require.True(t, ok)
	assert.Same(t, texture, kept)
	assert.Equal(t, before.ImageFrees, alloc.Stats().ImageFrees)

	_, err = registry.Replace(2, "a.png")
	assert.ErrorIs(t, err, core.ErrInvalidHandle)
	_, err = registry.Replace(3, "a.png")
	assert.ErrorIs(t, err, core.ErrTextureSlotOutOfRange)
}
