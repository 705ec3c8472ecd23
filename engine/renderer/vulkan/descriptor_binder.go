package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
)

// DescriptorBinder keeps one descriptor set per swapchain image. Each set has
// a single binding holding an array of combined image samplers, one element
// per texture slot.
type DescriptorBinder struct {
	backend    Backend
	capacity   uint32
	layout     *VulkanDescriptorSetLayout
	pool       *VulkanDescriptorPool
	sets       []*VulkanDescriptorSet
	imageCount uint32
	// Scratch space reused across rebuilds.
	writes []TextureDescriptorWrite
}

// NewDescriptorBinder creates the set layout. Sets are allocated by Rebuild.
func NewDescriptorBinder(backend Backend, capacity uint32) (*DescriptorBinder, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("descriptor array of zero elements: %w", core.ErrInvalidConfig)
	}
	layout, err := backend.CreateDescriptorSetLayout(TextureBinding, capacity, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, err
	}
	return &DescriptorBinder{
		backend:  backend,
		capacity: capacity,
		layout:   layout,
	}, nil
}

// Rebuild makes sure there is one set per swapchain image, reallocating the
// pool when the image count changed, then points every set at each populated
// texture slot. Empty slots are left unwritten; the shader never indexes them.
func (db *DescriptorBinder) Rebuild(imageCount uint32, textures *TextureRegistry) error {
	if imageCount == 0 {
		return fmt.Errorf("descriptor sets for zero images: %w", core.ErrInvalidConfig)
	}
	if db.pool != nil && db.imageCount == imageCount {
		db.Refresh(textures)
		return nil
	}
	db.releasePool()

	pool, err := db.backend.CreateDescriptorPool(db.capacity*imageCount, imageCount)
	if err != nil {
		return err
	}
	sets, err := db.backend.AllocateDescriptorSets(pool, db.layout, imageCount)
	if err != nil {
		db.backend.DestroyDescriptorPool(pool)
		return err
	}
	db.pool = pool
	db.sets = sets
	db.imageCount = imageCount

	db.Refresh(textures)
	core.LogDebug("Descriptor sets rebuilt for %d images, %d texture slots.", imageCount, db.capacity)
	return nil
}

// Reallocate replaces every set with a freshly allocated one, dropping
// descriptors that point at freed textures. The device must be idle.
func (db *DescriptorBinder) Reallocate(textures *TextureRegistry) error {
	imageCount := db.imageCount
	db.releasePool()
	return db.Rebuild(imageCount, textures)
}

// Refresh rewrites the populated texture slots into the existing sets. The
// sets must not be in use by a pending command buffer.
func (db *DescriptorBinder) Refresh(textures *TextureRegistry) {
	if textures == nil || len(db.sets) == 0 {
		return
	}
	db.writes = db.writes[:0]
	sampler := textures.Sampler()
	for _, set := range db.sets {
		textures.Each(func(slot uint32, texture *Texture) {
			db.writes = append(db.writes, TextureDescriptorWrite{
				Set:          set,
				Binding:      TextureBinding,
				ArrayElement: slot,
				View:         texture.View,
				Sampler:      sampler,
			})
		})
	}
	if len(db.writes) > 0 {
		db.backend.WriteTextureDescriptors(db.writes)
	}
}

// Set returns the descriptor set for a swapchain image.
func (db *DescriptorBinder) Set(imageIndex uint32) *VulkanDescriptorSet {
	if imageIndex >= uint32(len(db.sets)) {
		return nil
	}
	return db.sets[imageIndex]
}

func (db *DescriptorBinder) Layout() *VulkanDescriptorSetLayout {
	return db.layout
}

func (db *DescriptorBinder) ImageCount() uint32 {
	return db.imageCount
}

func (db *DescriptorBinder) Capacity() uint32 {
	return db.capacity
}

func (db *DescriptorBinder) releasePool() {
	if db.pool != nil {
		db.backend.DestroyDescriptorPool(db.pool)
		db.pool = nil
	}
	db.sets = nil
	db.imageCount = 0
}

func (db *DescriptorBinder) Destroy() {
	db.releasePool()
	if db.layout != nil {
		db.backend.DestroyDescriptorSetLayout(db.layout)
		db.layout = nil
	}
}
