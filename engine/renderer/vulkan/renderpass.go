package vulkan

import (
	vk "github.com/goki/vulkan"
)

// CreateRenderpass builds the single subpass pass used for every frame. With
// more than one sample the colour attachment is a transient multisampled
// target resolved into the swapchain image, which is then attachment 2.
func (vc *VulkanContext) CreateRenderpass(config RenderpassConfig) (*VulkanRenderpass, error) {
	multisampled := config.Samples > vk.SampleCount1Bit

	colorAttachment := vk.AttachmentDescription{
		Format:         config.ColorFormat,
		Samples:        config.Samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		// Do not expect any particular layout before render pass starts.
		InitialLayout: vk.ImageLayoutUndefined,
		FinalLayout:   vk.ImageLayoutPresentSrc,
	}
	if multisampled {
		colorAttachment.StoreOp = vk.AttachmentStoreOpDontCare
		colorAttachment.FinalLayout = vk.ImageLayoutColorAttachmentOptimal
	}

	depthAttachment := vk.AttachmentDescription{
		Format:         config.DepthFormat,
		Samples:        config.Samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	attachments := []vk.AttachmentDescription{colorAttachment, depthAttachment}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
		PDepthStencilAttachment: &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	if multisampled {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         config.ColorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		})
		subpass.PResolveAttachments = []vk.AttachmentReference{{
			Attachment: 2,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}

	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) |
		vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	dependency := vk.SubpassDependency{
		SrcSubpass:   vk.SubpassExternal,
		DstSubpass:   0,
		SrcStageMask: stages,
		DstStageMask: stages,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit) |
			vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if err := checkResult("vkCreateRenderPass", vk.CreateRenderPass(vc.Device.LogicalDevice, &renderpassCreateInfo, vc.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanRenderpass{
		Handle:      handle,
		ColorFormat: config.ColorFormat,
		DepthFormat: config.DepthFormat,
		Samples:     config.Samples,
		ClearColor:  config.ClearColor,
		Depth:       1.0,
		Stencil:     0,
	}, nil
}

func (vc *VulkanContext) DestroyRenderpass(renderpass *VulkanRenderpass) {
	if renderpass == nil || renderpass.Handle == vk.NullRenderPass {
		return
	}
	vk.DestroyRenderPass(vc.Device.LogicalDevice, renderpass.Handle, vc.Allocator)
	renderpass.Handle = vk.NullRenderPass
}

// clearValues returns one clear value per attachment of rp, in attachment order.
func (rp *VulkanRenderpass) clearValues() []vk.ClearValue {
	count := 2
	if rp.Samples > vk.SampleCount1Bit {
		count = 3
	}
	values := make([]vk.ClearValue, count)
	values[0].SetColor(rp.ClearColor[:])
	values[1].SetDepthStencil(rp.Depth, rp.Stencil)
	if count == 3 {
		values[2].SetColor(rp.ClearColor[:])
	}
	return values
}
