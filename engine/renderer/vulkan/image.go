package vulkan

import (
	vk "github.com/goki/vulkan"
)

func (vc *VulkanContext) CreateImage(config ImageConfig) (*VulkanImage, MemoryRequirements, error) {
	samples := config.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}
	mipLevels := config.MipLevels
	if mipLevels == 0 {
		mipLevels = 1
	}
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  config.Width,
			Height: config.Height,
			Depth:  1,
		},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Format:        config.Format,
		Tiling:        config.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         config.Usage,
		Samples:       samples,
		SharingMode:   vk.SharingModeExclusive,
	}

	var handle vk.Image
	if err := checkResult("vkCreateImage", vk.CreateImage(vc.Device.LogicalDevice, &imageCreateInfo, vc.Allocator, &handle)); err != nil {
		return nil, MemoryRequirements{}, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(vc.Device.LogicalDevice, handle, &memReqs)
	memReqs.Deref()

	return &VulkanImage{
			Handle:    handle,
			Width:     config.Width,
			Height:    config.Height,
			MipLevels: mipLevels,
			Format:    config.Format,
			Samples:   samples,
		}, MemoryRequirements{
			Size:           uint64(memReqs.Size),
			Alignment:      uint64(memReqs.Alignment),
			MemoryTypeBits: memReqs.MemoryTypeBits,
		}, nil
}

func (vc *VulkanContext) DestroyImage(image *VulkanImage) {
	if image == nil || image.Swapchain || image.Handle == vk.NullImage {
		return
	}
	vk.DestroyImage(vc.Device.LogicalDevice, image.Handle, vc.Allocator)
	image.Handle = vk.NullImage
}

// CreateImageView creates a 2D view over every mip level of image.
func (vc *VulkanContext) CreateImageView(image *VulkanImage, aspect vk.ImageAspectFlags) (*VulkanImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   image.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     image.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var handle vk.ImageView
	if err := checkResult("vkCreateImageView", vk.CreateImageView(vc.Device.LogicalDevice, &viewCreateInfo, vc.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanImageView{Handle: handle, Image: image}, nil
}

func (vc *VulkanContext) DestroyImageView(view *VulkanImageView) {
	if view == nil || view.Handle == vk.NullImageView {
		return
	}
	vk.DestroyImageView(vc.Device.LogicalDevice, view.Handle, vc.Allocator)
	view.Handle = vk.NullImageView
}

func (vc *VulkanContext) CreateSampler(config SamplerConfig) (*VulkanSampler, error) {
	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           config.MaxAnisotropy,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0.0,
		MinLod:                  0.0,
		MaxLod:                  config.MaxLod,
	}
	if config.MaxAnisotropy <= 1 {
		samplerCreateInfo.AnisotropyEnable = vk.False
		samplerCreateInfo.MaxAnisotropy = 1
	}
	var handle vk.Sampler
	if err := checkResult("vkCreateSampler", vk.CreateSampler(vc.Device.LogicalDevice, &samplerCreateInfo, vc.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanSampler{Handle: handle}, nil
}

func (vc *VulkanContext) DestroySampler(sampler *VulkanSampler) {
	if sampler == nil || sampler.Handle == vk.NullSampler {
		return
	}
	vk.DestroySampler(vc.Device.LogicalDevice, sampler.Handle, vc.Allocator)
	sampler.Handle = vk.NullSampler
}

// SupportsLinearBlit reports whether optimally tiled images of format can be
// the source of a linearly filtered blit.
func (vc *VulkanContext) SupportsLinearBlit(format vk.Format) bool {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(vc.Device.PhysicalDevice, format, &properties)
	properties.Deref()
	flags := vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit)
	return properties.OptimalTilingFeatures&flags == flags
}
