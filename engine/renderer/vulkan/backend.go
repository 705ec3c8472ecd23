package vulkan

import (
	vk "github.com/goki/vulkan"
)

// Extent is a size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// Aspect returns width over height, or 1 for a degenerate extent.
func (e Extent) Aspect() float32 {
	if e.Height == 0 {
		return 1
	}
	return float32(e.Width) / float32(e.Height)
}

func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

type MemoryType struct {
	PropertyFlags vk.MemoryPropertyFlags
	HeapIndex     uint32
}

type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

// DeviceLimits are the physical device properties the renderer depends on.
type DeviceLimits struct {
	MaxPushConstantsSize uint32
	MaxSamplerAnisotropy float32
	// Highest sample count usable for both colour and depth targets.
	MaxSamples  vk.SampleCountFlagBits
	DepthFormat vk.Format
}

type ImageConfig struct {
	Width     uint32
	Height    uint32
	MipLevels uint32
	Samples   vk.SampleCountFlagBits
	Format    vk.Format
	Tiling    vk.ImageTiling
	Usage     vk.ImageUsageFlags
}

// ImageBarrier transitions a range of mip levels of a single-layer image.
type ImageBarrier struct {
	Image        *VulkanImage
	OldLayout    vk.ImageLayout
	NewLayout    vk.ImageLayout
	BaseMipLevel uint32
	LevelCount   uint32
	SrcAccess    vk.AccessFlags
	DstAccess    vk.AccessFlags
	SrcStage     vk.PipelineStageFlags
	DstStage     vk.PipelineStageFlags
}

type SamplerConfig struct {
	MaxAnisotropy float32
	MaxLod        float32
}

type RenderpassConfig struct {
	ColorFormat vk.Format
	DepthFormat vk.Format
	Samples     vk.SampleCountFlagBits
	ClearColor  [4]float32
}

type PushConstantRange struct {
	Stage  vk.ShaderStageFlagBits
	Offset uint32
	Size   uint32
}

type PipelineConfig struct {
	Renderpass           *VulkanRenderpass
	VertexShader         *VulkanShaderModule
	FragmentShader       *VulkanShaderModule
	Stride               uint32
	Attributes           []vk.VertexInputAttributeDescription
	DescriptorSetLayouts []*VulkanDescriptorSetLayout
	PushConstantRanges   []PushConstantRange
	Samples              vk.SampleCountFlagBits
	// Size of the fragment shader texture array, fed through specialization constant 0.
	TextureCount uint32
	CullMode     vk.CullModeFlagBits
}

// TextureDescriptorWrite points one array element of a combined image
// sampler binding at a texture.
type TextureDescriptorWrite struct {
	Set          *VulkanDescriptorSet
	Binding      uint32
	ArrayElement uint32
	View         *VulkanImageView
	Sampler      *VulkanSampler
}

type MemoryBackend interface {
	MemoryTypes() []MemoryType
	CreateBuffer(size uint64, usage vk.BufferUsageFlags) (*VulkanBuffer, MemoryRequirements, error)
	DestroyBuffer(buffer *VulkanBuffer)
	CreateImage(config ImageConfig) (*VulkanImage, MemoryRequirements, error)
	DestroyImage(image *VulkanImage)
	AllocateMemory(size uint64, memoryTypeIndex uint32) (*VulkanMemory, error)
	FreeMemory(memory *VulkanMemory)
	BindBufferMemory(buffer *VulkanBuffer, memory *VulkanMemory) error
	BindImageMemory(image *VulkanImage, memory *VulkanMemory) error
	// WriteMemory copies data to the start of a host visible allocation.
	WriteMemory(memory *VulkanMemory, data []byte) error
}

type ImageBackend interface {
	CreateImageView(image *VulkanImage, aspect vk.ImageAspectFlags) (*VulkanImageView, error)
	DestroyImageView(view *VulkanImageView)
	CreateSampler(config SamplerConfig) (*VulkanSampler, error)
	DestroySampler(sampler *VulkanSampler)
	SupportsLinearBlit(format vk.Format) bool
}

type CommandBackend interface {
	AllocateCommandBuffers(count uint32) ([]*VulkanCommandBuffer, error)
	FreeCommandBuffers(buffers []*VulkanCommandBuffer)
	BeginCommandBuffer(buffer *VulkanCommandBuffer, singleUse bool) (CommandRecorder, error)
	EndCommandBuffer(buffer *VulkanCommandBuffer) error
	// Submit queues buffer on the graphics queue. Any of wait, signal and
	// fence may be nil.
	Submit(buffer *VulkanCommandBuffer, wait *VulkanSemaphore, signal *VulkanSemaphore, fence *VulkanFence) error
	WaitIdle() error
}

type SyncBackend interface {
	CreateFence(signaled bool) (*VulkanFence, error)
	WaitForFence(fence *VulkanFence) error
	ResetFence(fence *VulkanFence) error
	DestroyFence(fence *VulkanFence)
	CreateSemaphore() (*VulkanSemaphore, error)
	DestroySemaphore(semaphore *VulkanSemaphore)
}

type DescriptorBackend interface {
	CreateDescriptorSetLayout(binding uint32, count uint32, stage vk.ShaderStageFlagBits) (*VulkanDescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout *VulkanDescriptorSetLayout)
	CreateDescriptorPool(descriptorCount uint32, maxSets uint32) (*VulkanDescriptorPool, error)
	// DestroyDescriptorPool also releases every set allocated from pool.
	DestroyDescriptorPool(pool *VulkanDescriptorPool)
	AllocateDescriptorSets(pool *VulkanDescriptorPool, layout *VulkanDescriptorSetLayout, count uint32) ([]*VulkanDescriptorSet, error)
	WriteTextureDescriptors(writes []TextureDescriptorWrite)
}

type PresentBackend interface {
	// CreateSwapchain builds a swapchain for the surface. old, when not nil,
	// is handed to the driver for resource reuse and must be destroyed by
	// the caller afterwards.
	CreateSwapchain(width uint32, height uint32, old *VulkanSwapchain) (*VulkanSwapchain, error)
	DestroySwapchain(swapchain *VulkanSwapchain)
	// AcquireNextImage returns core.ErrSwapchainOutOfDate when the swapchain
	// no longer matches the surface.
	AcquireNextImage(swapchain *VulkanSwapchain, signal *VulkanSemaphore) (uint32, error)
	// Present returns core.ErrSwapchainOutOfDate or core.ErrSwapchainSuboptimal
	// when the swapchain should be rebuilt.
	Present(swapchain *VulkanSwapchain, imageIndex uint32, wait *VulkanSemaphore) error
	CreateRenderpass(config RenderpassConfig) (*VulkanRenderpass, error)
	DestroyRenderpass(renderpass *VulkanRenderpass)
	CreateFramebuffer(renderpass *VulkanRenderpass, attachments []*VulkanImageView, extent Extent) (*VulkanFramebuffer, error)
	DestroyFramebuffer(framebuffer *VulkanFramebuffer)
	CreateShaderModule(code []uint32) (*VulkanShaderModule, error)
	DestroyShaderModule(module *VulkanShaderModule)
	CreateGraphicsPipeline(config PipelineConfig) (*VulkanPipeline, error)
	DestroyPipeline(pipeline *VulkanPipeline)
}

// Backend is everything the renderer asks of the GPU. VulkanContext is the
// production implementation.
type Backend interface {
	MemoryBackend
	ImageBackend
	CommandBackend
	SyncBackend
	DescriptorBackend
	PresentBackend
	Limits() DeviceLimits
}

// CommandRecorder records into a command buffer between BeginCommandBuffer
// and EndCommandBuffer.
type CommandRecorder interface {
	CopyBuffer(src *VulkanBuffer, dst *VulkanBuffer, size uint64)
	// CopyBufferToImage fills mip level 0 of dst, which must be in
	// TransferDstOptimal layout.
	CopyBufferToImage(src *VulkanBuffer, dst *VulkanImage)
	PipelineBarrier(barrier ImageBarrier)
	// BlitImage downsamples level srcLevel into level srcLevel+1 with linear filtering.
	BlitImage(image *VulkanImage, srcLevel uint32, src Extent, dst Extent)
	BeginRenderpass(renderpass *VulkanRenderpass, framebuffer *VulkanFramebuffer, extent Extent)
	EndRenderpass()
	SetViewportScissor(extent Extent)
	BindPipeline(pipeline *VulkanPipeline)
	PushConstants(pipeline *VulkanPipeline, stage vk.ShaderStageFlagBits, offset uint32, data []byte)
	BindVertexBuffer(buffer *VulkanBuffer)
	BindIndexBuffer(buffer *VulkanBuffer)
	BindDescriptorSet(pipeline *VulkanPipeline, set *VulkanDescriptorSet)
	DrawIndexed(indexCount uint32)
}

var _ Backend = (*VulkanContext)(nil)
