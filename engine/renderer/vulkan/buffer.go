package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

func (vc *VulkanContext) MemoryTypes() []MemoryType {
	memory := vc.Device.Memory
	types := make([]MemoryType, memory.MemoryTypeCount)
	for i := range types {
		types[i] = MemoryType{
			PropertyFlags: memory.MemoryTypes[i].PropertyFlags,
			HeapIndex:     memory.MemoryTypes[i].HeapIndex,
		}
	}
	return types
}

func (vc *VulkanContext) CreateBuffer(size uint64, usage vk.BufferUsageFlags) (*VulkanBuffer, MemoryRequirements, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := checkResult("vkCreateBuffer", vk.CreateBuffer(vc.Device.LogicalDevice, &bufferCreateInfo, vc.Allocator, &handle)); err != nil {
		return nil, MemoryRequirements{}, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vc.Device.LogicalDevice, handle, &memReqs)
	memReqs.Deref()

	return &VulkanBuffer{Handle: handle, Size: size, Usage: usage}, MemoryRequirements{
		Size:           uint64(memReqs.Size),
		Alignment:      uint64(memReqs.Alignment),
		MemoryTypeBits: memReqs.MemoryTypeBits,
	}, nil
}

func (vc *VulkanContext) DestroyBuffer(buffer *VulkanBuffer) {
	if buffer == nil || buffer.Handle == vk.NullBuffer {
		return
	}
	vk.DestroyBuffer(vc.Device.LogicalDevice, buffer.Handle, vc.Allocator)
	buffer.Handle = vk.NullBuffer
}

func (vc *VulkanContext) AllocateMemory(size uint64, memoryTypeIndex uint32) (*VulkanMemory, error) {
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryTypeIndex,
	}
	var handle vk.DeviceMemory
	if err := checkResult("vkAllocateMemory", vk.AllocateMemory(vc.Device.LogicalDevice, &allocateInfo, vc.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanMemory{Handle: handle, Size: size}, nil
}

func (vc *VulkanContext) FreeMemory(memory *VulkanMemory) {
	if memory == nil || memory.Handle == vk.NullDeviceMemory {
		return
	}
	vk.FreeMemory(vc.Device.LogicalDevice, memory.Handle, vc.Allocator)
	memory.Handle = vk.NullDeviceMemory
}

func (vc *VulkanContext) BindBufferMemory(buffer *VulkanBuffer, memory *VulkanMemory) error {
	if err := checkResult("vkBindBufferMemory", vk.BindBufferMemory(vc.Device.LogicalDevice, buffer.Handle, memory.Handle, 0)); err != nil {
		return err
	}
	buffer.Memory = memory
	return nil
}

func (vc *VulkanContext) BindImageMemory(image *VulkanImage, memory *VulkanMemory) error {
	if err := checkResult("vkBindImageMemory", vk.BindImageMemory(vc.Device.LogicalDevice, image.Handle, memory.Handle, 0)); err != nil {
		return err
	}
	image.Memory = memory
	return nil
}

func (vc *VulkanContext) WriteMemory(memory *VulkanMemory, data []byte) error {
	if uint64(len(data)) > memory.Size {
		return fmt.Errorf("write of %d bytes into %d byte allocation", len(data), memory.Size)
	}
	var pData unsafe.Pointer
	if err := checkResult("vkMapMemory", vk.MapMemory(vc.Device.LogicalDevice, memory.Handle, 0, vk.DeviceSize(len(data)), 0, &pData)); err != nil {
		return err
	}
	defer vk.UnmapMemory(vc.Device.LogicalDevice, memory.Handle)
	if n := vk.Memcopy(pData, data); n != len(data) {
		return fmt.Errorf("copied %d of %d bytes to device memory", n, len(data))
	}
	return nil
}
