package vulkan

import (
	vk "github.com/goki/vulkan"
)

// The Vulkan* types below wrap raw handles. Components compare them by
// pointer, so every create call returns a fresh value.

type VulkanMemory struct {
	Handle vk.DeviceMemory
	Size   uint64
}

type VulkanBuffer struct {
	Handle vk.Buffer
	Size   uint64
	Usage  vk.BufferUsageFlags
	Memory *VulkanMemory
}

type VulkanImage struct {
	Handle    vk.Image
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    vk.Format
	Samples   vk.SampleCountFlagBits
	Memory    *VulkanMemory
	// Swapchain images belong to the swapchain and are never destroyed directly.
	Swapchain bool
}

type VulkanImageView struct {
	Handle vk.ImageView
	Image  *VulkanImage
}

type VulkanSampler struct {
	Handle vk.Sampler
}

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

type VulkanSemaphore struct {
	Handle vk.Semaphore
}

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	State  CommandBufferState
}

type VulkanDescriptorSetLayout struct {
	Handle vk.DescriptorSetLayout
	Count  uint32
}

type VulkanDescriptorPool struct {
	Handle  vk.DescriptorPool
	MaxSets uint32
}

type VulkanDescriptorSet struct {
	Handle vk.DescriptorSet
	Pool   *VulkanDescriptorPool
}

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Extent      Extent
	Images      []*VulkanImage
}

type VulkanRenderpass struct {
	Handle      vk.RenderPass
	ColorFormat vk.Format
	DepthFormat vk.Format
	Samples     vk.SampleCountFlagBits
	ClearColor  [4]float32
	Depth       float32
	Stencil     uint32
}

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Renderpass  *VulkanRenderpass
	Attachments []*VulkanImageView
	Extent      Extent
}

type VulkanShaderModule struct {
	Handle vk.ShaderModule
}

type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}
