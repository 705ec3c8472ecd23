package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
)

type SwapchainManagerConfig struct {
	// Requested MSAA sample count, lowered to what the device supports.
	Samples    vk.SampleCountFlagBits
	ClearColor [4]float32
}

// RebuildResult tells the caller which dependents of the swapchain need more
// than a framebuffer refresh.
type RebuildResult struct {
	ImageCountChanged bool
	FormatChanged     bool
}

// SwapchainManager owns the swapchain and everything sized or formatted after
// it: image views, colour and depth targets, the render pass and the
// framebuffers. Models and textures are not its business.
type SwapchainManager struct {
	backend   Backend
	allocator *Allocator
	config    SwapchainManagerConfig
	samples   vk.SampleCountFlagBits

	swapchain    *VulkanSwapchain
	renderpass   *VulkanRenderpass
	views        []*VulkanImageView
	colorImage   *VulkanImage
	colorView    *VulkanImageView
	depthImage   *VulkanImage
	depthView    *VulkanImageView
	framebuffers []*VulkanFramebuffer
}

func NewSwapchainManager(backend Backend, allocator *Allocator, config SwapchainManagerConfig) *SwapchainManager {
	samples := config.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}
	if max := backend.Limits().MaxSamples; max != 0 && samples > max {
		core.LogWarn("MSAA x%d requested, device supports x%d.", samples, max)
		samples = max
	}
	return &SwapchainManager{
		backend:   backend,
		allocator: allocator,
		config:    config,
		samples:   samples,
	}
}

// Create builds the swapchain and all of its dependents.
func (sm *SwapchainManager) Create(width, height uint32) error {
	swapchain, err := sm.backend.CreateSwapchain(width, height, nil)
	if err != nil {
		return err
	}
	sm.swapchain = swapchain
	if err := sm.createRenderpass(); err != nil {
		return err
	}
	if err := sm.createDependents(); err != nil {
		return err
	}
	core.LogInfo("Swapchain created: %dx%d, %d images, MSAA x%d.",
		swapchain.Extent.Width, swapchain.Extent.Height, len(swapchain.Images), sm.samples)
	return nil
}

// Rebuild replaces the swapchain after a resize or an out-of-date report.
// The device is idle on return, and every resource built on the old
// swapchain has been destroyed.
func (sm *SwapchainManager) Rebuild(width, height uint32) (RebuildResult, error) {
	var result RebuildResult
	if sm.swapchain == nil {
		return result, sm.Create(width, height)
	}
	if err := sm.backend.WaitIdle(); err != nil {
		return result, err
	}
	sm.destroyDependents()

	old := sm.swapchain
	swapchain, err := sm.backend.CreateSwapchain(width, height, old)
	if err != nil {
		return result, fmt.Errorf("rebuilding swapchain: %w", err)
	}
	sm.backend.DestroySwapchain(old)
	sm.swapchain = swapchain

	result.ImageCountChanged = len(swapchain.Images) != len(old.Images)
	result.FormatChanged = swapchain.ImageFormat.Format != old.ImageFormat.Format
	if result.FormatChanged {
		sm.backend.DestroyRenderpass(sm.renderpass)
		sm.renderpass = nil
		if err := sm.createRenderpass(); err != nil {
			return result, err
		}
	}
	if err := sm.createDependents(); err != nil {
		return result, err
	}
	core.LogDebug("Swapchain rebuilt: %dx%d, %d images.", swapchain.Extent.Width, swapchain.Extent.Height, len(swapchain.Images))
	return result, nil
}

func (sm *SwapchainManager) createRenderpass() error {
	renderpass, err := sm.backend.CreateRenderpass(RenderpassConfig{
		ColorFormat: sm.swapchain.ImageFormat.Format,
		DepthFormat: sm.backend.Limits().DepthFormat,
		Samples:     sm.samples,
		ClearColor:  sm.config.ClearColor,
	})
	if err != nil {
		return err
	}
	sm.renderpass = renderpass
	return nil
}

func (sm *SwapchainManager) createDependents() error {
	extent := sm.swapchain.Extent
	colorAspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)

	sm.views = make([]*VulkanImageView, 0, len(sm.swapchain.Images))
	for _, image := range sm.swapchain.Images {
		view, err := sm.backend.CreateImageView(image, colorAspect)
		if err != nil {
			return err
		}
		sm.views = append(sm.views, view)
	}

	if sm.samples > vk.SampleCount1Bit {
		image, err := sm.allocator.CreateImage(ImageConfig{
			Width:     extent.Width,
			Height:    extent.Height,
			MipLevels: 1,
			Samples:   sm.samples,
			Format:    sm.swapchain.ImageFormat.Format,
			Tiling:    vk.ImageTilingOptimal,
			Usage: vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit) |
				vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		}, deviceLocal)
		if err != nil {
			return fmt.Errorf("creating colour target: %w", err)
		}
		sm.colorImage = image
		if sm.colorView, err = sm.backend.CreateImageView(image, colorAspect); err != nil {
			return err
		}
	}

	depthImage, err := sm.allocator.CreateImage(ImageConfig{
		Width:     extent.Width,
		Height:    extent.Height,
		MipLevels: 1,
		Samples:   sm.samples,
		Format:    sm.backend.Limits().DepthFormat,
		Tiling:    vk.ImageTilingOptimal,
		Usage:     vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
	}, deviceLocal)
	if err != nil {
		return fmt.Errorf("creating depth target: %w", err)
	}
	sm.depthImage = depthImage
	if sm.depthView, err = sm.backend.CreateImageView(depthImage, vk.ImageAspectFlags(vk.ImageAspectDepthBit)); err != nil {
		return err
	}

	sm.framebuffers = make([]*VulkanFramebuffer, 0, len(sm.views))
	for _, view := range sm.views {
		// Attachment order matches the render pass: colour, depth, resolve.
		attachments := []*VulkanImageView{view, sm.depthView}
		if sm.colorView != nil {
			attachments = []*VulkanImageView{sm.colorView, sm.depthView, view}
		}
		framebuffer, err := sm.backend.CreateFramebuffer(sm.renderpass, attachments, extent)
		if err != nil {
			return err
		}
		sm.framebuffers = append(sm.framebuffers, framebuffer)
	}
	return nil
}

func (sm *SwapchainManager) destroyDependents() {
	for _, framebuffer := range sm.framebuffers {
		sm.backend.DestroyFramebuffer(framebuffer)
	}
	sm.framebuffers = nil

	if sm.depthView != nil {
		sm.backend.DestroyImageView(sm.depthView)
		sm.depthView = nil
	}
	if sm.depthImage != nil {
		sm.allocator.DestroyImage(sm.depthImage)
		sm.depthImage = nil
	}
	if sm.colorView != nil {
		sm.backend.DestroyImageView(sm.colorView)
		sm.colorView = nil
	}
	if sm.colorImage != nil {
		sm.allocator.DestroyImage(sm.colorImage)
		sm.colorImage = nil
	}

	for _, view := range sm.views {
		sm.backend.DestroyImageView(view)
	}
	sm.views = nil
}

func (sm *SwapchainManager) Swapchain() *VulkanSwapchain {
	return sm.swapchain
}

func (sm *SwapchainManager) Renderpass() *VulkanRenderpass {
	return sm.renderpass
}

func (sm *SwapchainManager) Framebuffer(imageIndex uint32) *VulkanFramebuffer {
	if imageIndex >= uint32(len(sm.framebuffers)) {
		return nil
	}
	return sm.framebuffers[imageIndex]
}

func (sm *SwapchainManager) Framebuffers() []*VulkanFramebuffer {
	return sm.framebuffers
}

func (sm *SwapchainManager) Views() []*VulkanImageView {
	return sm.views
}

func (sm *SwapchainManager) Extent() Extent {
	if sm.swapchain == nil {
		return Extent{}
	}
	return sm.swapchain.Extent
}

func (sm *SwapchainManager) ImageCount() uint32 {
	if sm.swapchain == nil {
		return 0
	}
	return uint32(len(sm.swapchain.Images))
}

func (sm *SwapchainManager) Samples() vk.SampleCountFlagBits {
	return sm.samples
}

func (sm *SwapchainManager) Destroy() {
	sm.destroyDependents()
	if sm.renderpass != nil {
		sm.backend.DestroyRenderpass(sm.renderpass)
		sm.renderpass = nil
	}
	if sm.swapchain != nil {
		sm.backend.DestroySwapchain(sm.swapchain)
		sm.swapchain = nil
	}
}
