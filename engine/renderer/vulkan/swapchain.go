package vulkan

import (
	stdmath "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/math"
)

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	// FIFO is the only mode every implementation supports.
	return vk.PresentModeFifo
}

func chooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) Extent {
	if capabilities.CurrentExtent.Width != stdmath.MaxUint32 {
		return Extent{Width: capabilities.CurrentExtent.Width, Height: capabilities.CurrentExtent.Height}
	}
	// Clamp to the value allowed by the GPU.
	min := capabilities.MinImageExtent
	max := capabilities.MaxImageExtent
	return Extent{
		Width:  math.Clamp(width, min.Width, max.Width),
		Height: math.Clamp(height, min.Height, max.Height),
	}
}

func chooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func (vc *VulkanContext) CreateSwapchain(width uint32, height uint32, old *VulkanSwapchain) (*VulkanSwapchain, error) {
	// Surface capabilities follow the window, so query them every time.
	support := &vc.Device.SwapchainSupport
	if err := DeviceQuerySwapchainSupport(vc.Device.PhysicalDevice, vc.Surface, support); err != nil {
		return nil, err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return nil, core.ErrSwapchainUnsupported
	}

	format := chooseSurfaceFormat(support.Formats)
	extent := chooseExtent(support.Capabilities, width, height)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         vc.Surface,
		MinImageCount:   chooseImageCount(support.Capabilities),
		ImageFormat:     format.Format,
		ImageColorSpace: format.ColorSpace,
		ImageExtent: vk.Extent2D{
			Width:  extent.Width,
			Height: extent.Height,
		},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      choosePresentMode(support.PresentModes),
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if old != nil {
		swapchainCreateInfo.OldSwapchain = old.Handle
	}

	if vc.Device.GraphicsQueueIndex != vc.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			vc.Device.GraphicsQueueIndex,
			vc.Device.PresentQueueIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if err := checkResult("vkCreateSwapchainKHR", vk.CreateSwapchain(vc.Device.LogicalDevice, &swapchainCreateInfo, vc.Allocator, &handle)); err != nil {
		return nil, err
	}

	var imageCount uint32
	if err := checkResult("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(vc.Device.LogicalDevice, handle, &imageCount, nil)); err != nil {
		vk.DestroySwapchain(vc.Device.LogicalDevice, handle, vc.Allocator)
		return nil, err
	}
	images := make([]vk.Image, imageCount)
	if err := checkResult("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(vc.Device.LogicalDevice, handle, &imageCount, images)); err != nil {
		vk.DestroySwapchain(vc.Device.LogicalDevice, handle, vc.Allocator)
		return nil, err
	}

	swapchain := &VulkanSwapchain{
		Handle:      handle,
		ImageFormat: format,
		Extent:      extent,
		Images:      make([]*VulkanImage, imageCount),
	}
	for i, image := range images[:imageCount] {
		swapchain.Images[i] = &VulkanImage{
			Handle:    image,
			Width:     extent.Width,
			Height:    extent.Height,
			MipLevels: 1,
			Format:    format.Format,
			Samples:   vk.SampleCount1Bit,
			Swapchain: true,
		}
	}

	core.LogInfo("Swapchain created: %dx%d, %d images.", extent.Width, extent.Height, imageCount)
	return swapchain, nil
}

// DestroySwapchain releases the swapchain. Its images go with it, views over
// them must already be destroyed.
func (vc *VulkanContext) DestroySwapchain(swapchain *VulkanSwapchain) {
	if swapchain == nil || swapchain.Handle == vk.NullSwapchain {
		return
	}
	vk.DestroySwapchain(vc.Device.LogicalDevice, swapchain.Handle, vc.Allocator)
	swapchain.Handle = vk.NullSwapchain
	swapchain.Images = nil
}

func (vc *VulkanContext) AcquireNextImage(swapchain *VulkanSwapchain, signal *VulkanSemaphore) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(vc.Device.LogicalDevice, swapchain.Handle, vk.MaxUint64, signal.Handle, vk.NullFence, &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
		// A suboptimal image can still be rendered to. Present reports it.
		return imageIndex, nil
	case vk.ErrorOutOfDate:
		return 0, core.ErrSwapchainOutOfDate
	}
	return 0, checkResult("vkAcquireNextImageKHR", result)
}

func (vc *VulkanContext) Present(swapchain *VulkanSwapchain, imageIndex uint32, wait *VulkanSemaphore) error {
	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{swapchain.Handle},
		PImageIndices:  []uint32{imageIndex},
	}
	if wait != nil {
		presentInfo.WaitSemaphoreCount = 1
		presentInfo.PWaitSemaphores = []vk.Semaphore{wait.Handle}
	}

	result := vk.QueuePresent(vc.Device.PresentQueue, &presentInfo)
	switch result {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return core.ErrSwapchainSuboptimal
	case vk.ErrorOutOfDate:
		return core.ErrSwapchainOutOfDate
	}
	return checkResult("vkQueuePresentKHR", result)
}
