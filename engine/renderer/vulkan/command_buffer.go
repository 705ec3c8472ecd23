package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

func (vc *VulkanContext) AllocateCommandBuffers(count uint32) ([]*VulkanCommandBuffer, error) {
	handles := make([]vk.CommandBuffer, count)
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        vc.Device.GraphicsCommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	if err := checkResult("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(vc.Device.LogicalDevice, &allocateInfo, handles)); err != nil {
		return nil, err
	}
	buffers := make([]*VulkanCommandBuffer, count)
	for i, handle := range handles {
		buffers[i] = &VulkanCommandBuffer{Handle: handle, State: COMMAND_BUFFER_STATE_READY}
	}
	return buffers, nil
}

func (vc *VulkanContext) FreeCommandBuffers(buffers []*VulkanCommandBuffer) {
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, buffer := range buffers {
		if buffer == nil || buffer.Handle == nil {
			continue
		}
		handles = append(handles, buffer.Handle)
		buffer.Handle = nil
		buffer.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	if len(handles) == 0 {
		return
	}
	vk.FreeCommandBuffers(vc.Device.LogicalDevice, vc.Device.GraphicsCommandPool, uint32(len(handles)), handles)
}

// BeginCommandBuffer resets buffer and starts recording into it.
func (vc *VulkanContext) BeginCommandBuffer(buffer *VulkanCommandBuffer, singleUse bool) (CommandRecorder, error) {
	if buffer.State == COMMAND_BUFFER_STATE_RECORDING {
		return nil, fmt.Errorf("command buffer is already recording")
	}
	if err := checkResult("vkResetCommandBuffer", vk.ResetCommandBuffer(buffer.Handle, 0)); err != nil {
		return nil, err
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if singleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if err := checkResult("vkBeginCommandBuffer", vk.BeginCommandBuffer(buffer.Handle, &beginInfo)); err != nil {
		return nil, err
	}
	buffer.State = COMMAND_BUFFER_STATE_RECORDING
	return &commandRecorder{cmd: buffer.Handle}, nil
}

func (vc *VulkanContext) EndCommandBuffer(buffer *VulkanCommandBuffer) error {
	if err := checkResult("vkEndCommandBuffer", vk.EndCommandBuffer(buffer.Handle)); err != nil {
		return err
	}
	buffer.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (vc *VulkanContext) Submit(buffer *VulkanCommandBuffer, wait *VulkanSemaphore, signal *VulkanSemaphore, fence *VulkanFence) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{buffer.Handle},
	}
	if wait != nil {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{wait.Handle}
		// Each semaphore waits on the corresponding pipeline stage to complete.
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
	}
	if signal != nil {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{signal.Handle}
	}
	fenceHandle := vk.NullFence
	if fence != nil {
		fenceHandle = fence.Handle
		fence.IsSignaled = false
	}
	if err := checkResult("vkQueueSubmit", vk.QueueSubmit(vc.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fenceHandle)); err != nil {
		return err
	}
	buffer.State = COMMAND_BUFFER_STATE_SUBMITTED
	return nil
}

func (vc *VulkanContext) WaitIdle() error {
	return checkResult("vkDeviceWaitIdle", vk.DeviceWaitIdle(vc.Device.LogicalDevice))
}

// commandRecorder issues vkCmd* calls into one command buffer.
type commandRecorder struct {
	cmd vk.CommandBuffer
}

func colorRange(baseMipLevel, levelCount uint32) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   baseMipLevel,
		LevelCount:     levelCount,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func colorLayers(mipLevel uint32) vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevel:       mipLevel,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func (r *commandRecorder) CopyBuffer(src *VulkanBuffer, dst *VulkanBuffer, size uint64) {
	vk.CmdCopyBuffer(r.cmd, src.Handle, dst.Handle, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
}

func (r *commandRecorder) CopyBufferToImage(src *VulkanBuffer, dst *VulkanImage) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource:  colorLayers(0),
		ImageExtent: vk.Extent3D{
			Width:  dst.Width,
			Height: dst.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(r.cmd, src.Handle, dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (r *commandRecorder) PipelineBarrier(barrier ImageBarrier) {
	vk.CmdPipelineBarrier(r.cmd, barrier.SrcStage, barrier.DstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       barrier.SrcAccess,
		DstAccessMask:       barrier.DstAccess,
		OldLayout:           barrier.OldLayout,
		NewLayout:           barrier.NewLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               barrier.Image.Handle,
		SubresourceRange:    colorRange(barrier.BaseMipLevel, barrier.LevelCount),
	}})
}

func (r *commandRecorder) BlitImage(image *VulkanImage, srcLevel uint32, src Extent, dst Extent) {
	blit := vk.ImageBlit{
		SrcSubresource: colorLayers(srcLevel),
		SrcOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(src.Width), Y: int32(src.Height), Z: 1},
		},
		DstSubresource: colorLayers(srcLevel + 1),
		DstOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(dst.Width), Y: int32(dst.Height), Z: 1},
		},
	}
	vk.CmdBlitImage(r.cmd,
		image.Handle, vk.ImageLayoutTransferSrcOptimal,
		image.Handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{blit}, vk.FilterLinear)
}

func (r *commandRecorder) BeginRenderpass(renderpass *VulkanRenderpass, framebuffer *VulkanFramebuffer, extent Extent) {
	clearValues := renderpass.clearValues()
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderpass.Handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(r.cmd, &beginInfo, vk.SubpassContentsInline)
}

func (r *commandRecorder) EndRenderpass() {
	vk.CmdEndRenderPass(r.cmd)
}

func (r *commandRecorder) SetViewportScissor(extent Extent) {
	vk.CmdSetViewport(r.cmd, 0, 1, []vk.Viewport{{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}})
	vk.CmdSetScissor(r.cmd, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
	}})
}

func (r *commandRecorder) BindPipeline(pipeline *VulkanPipeline) {
	vk.CmdBindPipeline(r.cmd, vk.PipelineBindPointGraphics, pipeline.Handle)
}

func (r *commandRecorder) PushConstants(pipeline *VulkanPipeline, stage vk.ShaderStageFlagBits, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(r.cmd, pipeline.PipelineLayout, vk.ShaderStageFlags(stage), offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (r *commandRecorder) BindVertexBuffer(buffer *VulkanBuffer) {
	vk.CmdBindVertexBuffers(r.cmd, 0, 1, []vk.Buffer{buffer.Handle}, []vk.DeviceSize{0})
}

func (r *commandRecorder) BindIndexBuffer(buffer *VulkanBuffer) {
	vk.CmdBindIndexBuffer(r.cmd, buffer.Handle, 0, vk.IndexTypeUint32)
}

func (r *commandRecorder) BindDescriptorSet(pipeline *VulkanPipeline, set *VulkanDescriptorSet) {
	vk.CmdBindDescriptorSets(r.cmd, vk.PipelineBindPointGraphics, pipeline.PipelineLayout, 0, 1, []vk.DescriptorSet{set.Handle}, 0, nil)
}

func (r *commandRecorder) DrawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(r.cmd, indexCount, 1, 0, 0, 0)
}
