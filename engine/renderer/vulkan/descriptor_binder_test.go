package vulkan

import (
	"testing"

	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorBinderWritesPopulatedSlotsOnly(t *testing.T) {
	registry, fake, _ := newTestRegistry(t, 3)
	_, err := registry.LoadInto(0, "a.png")
	require.NoError(t, err)
	_, err = registry.LoadInto(2, "b.png")
	require.NoError(t, err)

	binder, err := NewDescriptorBinder(fake, registry.Capacity())
	require.NoError(t, err)
	assert.Equal(t, uint32(3), binder.Layout().Count)
	require.NoError(t, binder.Rebuild(2, registry))

	require.Len(t, fake.descriptorWrites, 1)
	writes := fake.descriptorWrites[0]
	require.Len(t, writes, 4, "two populated slots times two sets")

	for i, set := range []uint32{0, 1} {
		for j, slot := range []uint32{0, 2} {
			w := writes[i*2+j]
			texture, _ := registry.Get(slot)
			assert.Same(t, binder.Set(set), w.Set)
			assert.Equal(t, TextureBinding, w.Binding)
			assert.Equal(t, slot, w.ArrayElement)
			assert.Same(t, texture.View, w.View)
			assert.Same(t, registry.Sampler(), w.Sampler)
		}
	}
	assert.NotSame(t, binder.Set(0), binder.Set(1))
	assert.Nil(t, binder.Set(2))
}

func TestDescriptorBinderRebuildIsIdempotent(t *testing.T) {
	registry, fake, _ := newTestRegistry(t, 3)
	_, err := registry.Load("a.png")
	require.NoError(t, err)

	binder, err := NewDescriptorBinder(fake, 3)
	require.NoError(t, err)
	require.NoError(t, binder.Rebuild(3, registry))
	pools := fake.live["descriptor pool"]
	require.NoError(t, binder.Rebuild(3, registry))

	require.Len(t, fake.descriptorWrites, 2)
	assert.Equal(t, fake.descriptorWrites[0], fake.descriptorWrites[1])
	assert.Equal(t, pools, fake.live["descriptor pool"])
	assert.Len(t, fake.callsWithPrefix("allocate descriptor sets"), 1)
}

func TestDescriptorBinderReallocatesOnImageCountChange(t *testing.T) {
	registry, fake, _ := newTestRegistry(t, 3)
	_, err := registry.Load("a.png")
	require.NoError(t, err)

	binder, err := NewDescriptorBinder(fake, 3)
	require.NoError(t, err)
	require.NoError(t, binder.Rebuild(2, registry))
	before := binder.Set(0)

	require.NoError(t, binder.Rebuild(3, registry))
	assert.Equal(t, uint32(3), binder.ImageCount())
	assert.NotSame(t, before, binder.Set(0))
	assert.Equal(t, 1, fake.live["descriptor pool"])
	assert.Len(t, fake.descriptorWrites[1], 3)

	binder.Destroy()
	registry.Destroy()
	assert.Empty(t, fake.leaks())
}

func TestDescriptorBinderWithEmptyRegistryWritesNothing(t *testing.T) {
	registry, fake, _ := newTestRegistry(t, 3)
	binder, err := NewDescriptorBinder(fake, 3)
	require.NoError(t, err)
	require.NoError(t, binder.Rebuild(3, registry))
	assert.Empty(t, fake.descriptorWrites)

	assert.ErrorIs(t, binder.Rebuild(0, registry), core.ErrInvalidConfig)
}
