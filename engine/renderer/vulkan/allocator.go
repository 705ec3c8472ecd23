package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
)

const (
	hostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) |
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	deviceLocal = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
)

// AllocatorStats counts object/memory pairs handed out and returned.
type AllocatorStats struct {
	BufferAllocs uint64
	BufferFrees  uint64
	ImageAllocs  uint64
	ImageFrees   uint64
	// Bytes of device memory currently allocated.
	LiveBytes uint64
}

func (s AllocatorStats) String() string {
	return fmt.Sprintf("buffers %d/%d, images %d/%d (alloc/free), %d bytes live",
		s.BufferAllocs, s.BufferFrees, s.ImageAllocs, s.ImageFrees, s.LiveBytes)
}

// Allocator creates buffers and images together with their backing memory
// and frees them as a unit.
type Allocator struct {
	backend     Backend
	memoryTypes []MemoryType
	stats       AllocatorStats
}

func NewAllocator(backend Backend) *Allocator {
	return &Allocator{
		backend:     backend,
		memoryTypes: backend.MemoryTypes(),
	}
}

// FindMemoryType returns the first memory type allowed by typeFilter that has
// every flag in properties.
func FindMemoryType(types []MemoryType, typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i, t := range types {
		if typeFilter&(1<<uint(i)) != 0 && t.PropertyFlags&properties == properties {
			return uint32(i), nil
		}
	}
	return 0, core.ErrNoSuitableMemoryType
}

func (a *Allocator) CreateBuffer(size uint64, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, core.ErrEmptyUpload
	}
	buffer, reqs, err := a.backend.CreateBuffer(size, usage)
	if err != nil {
		return nil, err
	}
	memory, err := a.allocate(reqs, properties)
	if err != nil {
		a.backend.DestroyBuffer(buffer)
		return nil, err
	}
	if err := a.backend.BindBufferMemory(buffer, memory); err != nil {
		a.backend.DestroyBuffer(buffer)
		a.release(memory)
		return nil, err
	}
	buffer.Memory = memory
	a.stats.BufferAllocs++
	return buffer, nil
}

func (a *Allocator) DestroyBuffer(buffer *VulkanBuffer) {
	if buffer == nil {
		return
	}
	a.backend.DestroyBuffer(buffer)
	a.release(buffer.Memory)
	buffer.Memory = nil
	a.stats.BufferFrees++
}

func (a *Allocator) CreateImage(config ImageConfig, properties vk.MemoryPropertyFlags) (*VulkanImage, error) {
	image, reqs, err := a.backend.CreateImage(config)
	if err != nil {
		return nil, err
	}
	memory, err := a.allocate(reqs, properties)
	if err != nil {
		a.backend.DestroyImage(image)
		return nil, err
	}
	if err := a.backend.BindImageMemory(image, memory); err != nil {
		a.backend.DestroyImage(image)
		a.release(memory)
		return nil, err
	}
	image.Memory = memory
	a.stats.ImageAllocs++
	return image, nil
}

func (a *Allocator) DestroyImage(image *VulkanImage) {
	if image == nil {
		return
	}
	a.backend.DestroyImage(image)
	a.release(image.Memory)
	image.Memory = nil
	a.stats.ImageFrees++
}

func (a *Allocator) allocate(reqs MemoryRequirements, properties vk.MemoryPropertyFlags) (*VulkanMemory, error) {
	index, err := FindMemoryType(a.memoryTypes, reqs.MemoryTypeBits, properties)
	if err != nil {
		core.LogError("no memory type for filter %b with properties %b", reqs.MemoryTypeBits, properties)
		return nil, err
	}
	memory, err := a.backend.AllocateMemory(reqs.Size, index)
	if err != nil {
		return nil, err
	}
	a.stats.LiveBytes += memory.Size
	return memory, nil
}

func (a *Allocator) release(memory *VulkanMemory) {
	if memory == nil {
		return
	}
	a.backend.FreeMemory(memory)
	a.stats.LiveBytes -= memory.Size
}

// ExecuteSingleUse records a one-shot command buffer, submits it and blocks
// until the GPU has finished with it.
func (a *Allocator) ExecuteSingleUse(record func(CommandRecorder)) error {
	buffers, err := a.backend.AllocateCommandBuffers(1)
	if err != nil {
		return err
	}
	defer a.backend.FreeCommandBuffers(buffers)
	cb := buffers[0]

	fence, err := a.backend.CreateFence(false)
	if err != nil {
		return err
	}
	defer a.backend.DestroyFence(fence)

	rec, err := a.backend.BeginCommandBuffer(cb, true)
	if err != nil {
		return err
	}
	record(rec)
	if err := a.backend.EndCommandBuffer(cb); err != nil {
		return err
	}
	if err := a.backend.Submit(cb, nil, nil, fence); err != nil {
		return err
	}
	if err := a.backend.WaitForFence(fence); err != nil {
		// The submission may still be pending; drain the queue before the
		// deferred frees release the buffer and fence.
		if ierr := a.backend.WaitIdle(); ierr != nil {
			core.LogError("waiting for device idle: %s", ierr)
		}
		return err
	}
	return nil
}

// StageBuffer fills a host visible staging buffer with data. The caller owns
// the result.
func (a *Allocator) StageBuffer(data []byte) (*VulkanBuffer, error) {
	staging, err := a.CreateBuffer(uint64(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisible)
	if err != nil {
		return nil, err
	}
	if err := a.backend.WriteMemory(staging.Memory, data); err != nil {
		a.DestroyBuffer(staging)
		return nil, err
	}
	return staging, nil
}

// UploadBuffer copies data into a new device local buffer through a staging
// buffer. The staging buffer is freed whether or not the copy succeeds.
func (a *Allocator) UploadBuffer(data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	if len(data) == 0 {
		return nil, core.ErrEmptyUpload
	}
	staging, err := a.StageBuffer(data)
	if err != nil {
		return nil, err
	}
	defer a.DestroyBuffer(staging)

	size := uint64(len(data))
	buffer, err := a.CreateBuffer(size, usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), deviceLocal)
	if err != nil {
		return nil, err
	}
	if err := a.ExecuteSingleUse(func(rec CommandRecorder) {
		rec.CopyBuffer(staging, buffer, size)
	}); err != nil {
		a.DestroyBuffer(buffer)
		return nil, err
	}
	return buffer, nil
}

func (a *Allocator) Stats() AllocatorStats {
	return a.stats
}
