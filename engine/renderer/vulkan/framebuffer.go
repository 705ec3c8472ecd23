package vulkan

import (
	vk "github.com/goki/vulkan"
)

func (vc *VulkanContext) CreateFramebuffer(renderpass *VulkanRenderpass, attachments []*VulkanImageView, extent Extent) (*VulkanFramebuffer, error) {
	views := make([]vk.ImageView, len(attachments))
	for i, attachment := range attachments {
		views[i] = attachment.Handle
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if err := checkResult("vkCreateFramebuffer", vk.CreateFramebuffer(vc.Device.LogicalDevice, &framebufferCreateInfo, vc.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanFramebuffer{
		Handle:      handle,
		Renderpass:  renderpass,
		Attachments: append([]*VulkanImageView(nil), attachments...),
		Extent:      extent,
	}, nil
}

func (vc *VulkanContext) DestroyFramebuffer(framebuffer *VulkanFramebuffer) {
	if framebuffer == nil || framebuffer.Handle == nil {
		return
	}
	vk.DestroyFramebuffer(vc.Device.LogicalDevice, framebuffer.Handle, vc.Allocator)
	framebuffer.Handle = nil
	framebuffer.Attachments = nil
	framebuffer.Renderpass = nil
}
