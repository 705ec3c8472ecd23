package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapchainManagerCreate(t *testing.T) {
	fake := newFakeBackend()
	sm := NewSwapchainManager(fake, NewAllocator(fake), SwapchainManagerConfig{})
	require.NoError(t, sm.Create(800, 600))

	assert.Equal(t, uint32(3), sm.ImageCount())
	assert.Equal(t, Extent{Width: 800, Height: 600}, sm.Extent())
	require.Len(t, sm.Framebuffers(), 3)
	for i, fb := range sm.Framebuffers() {
		require.Len(t, fb.Attachments, 2)
		assert.Same(t, sm.Views()[i], fb.Attachments[0])
		assert.Same(t, sm.Renderpass(), fb.Renderpass)
	}
	assert.Equal(t, vk.FormatD32Sfloat, sm.Renderpass().DepthFormat)

	sm.Destroy()
	assert.Empty(t, fake.leaks())
}

func TestSwapchainManagerMultisampledTargets(t *testing.T) {
	fake := newFakeBackend()
	fake.limits.MaxSamples = vk.SampleCount4Bit
	sm := NewSwapchainManager(fake, NewAllocator(fake), SwapchainManagerConfig{Samples: vk.SampleCount8Bit})
	assert.Equal(t, vk.SampleCount4Bit, sm.Samples(), "clamped to the device")

	require.NoError(t, sm.Create(800, 600))
	fb := sm.Framebuffer(1)
	require.Len(t, fb.Attachments, 3)
	assert.Equal(t, vk.SampleCount4Bit, fb.Attachments[0].Image.Samples)
	assert.Same(t, sm.Views()[1], fb.Attachments[2], "swapchain image is the resolve target")
	assert.Same(t, fb.Attachments[0], sm.Framebuffer(0).Attachments[0], "colour target is shared")

	sm.Destroy()
	assert.Empty(t, fake.leaks())
}

func TestSwapchainRebuildReplacesDependents(t *testing.T) {
	fake := newFakeBackend()
	alloc := NewAllocator(fake)
	sm := NewSwapchainManager(fake, alloc, SwapchainManagerConfig{})
	require.NoError(t, sm.Create(800, 600))

	oldSwapchain := sm.Swapchain()
	oldRenderpass := sm.Renderpass()
	oldViews := append([]*VulkanImageView(nil), sm.Views()...)
	oldFramebuffers := append([]*VulkanFramebuffer(nil), sm.Framebuffers()...)
	live := fake.leaks()

	result, err := sm.Rebuild(1024, 768)
	require.NoError(t, err)
	assert.Equal(t, RebuildResult{}, result)

	assert.NotSame(t, oldSwapchain, sm.Swapchain())
	assert.Same(t, oldRenderpass, sm.Renderpass(), "format unchanged")
	for i := range oldViews {
		assert.NotSame(t, oldViews[i], sm.Views()[i])
		assert.NotSame(t, oldFramebuffers[i], sm.Framebuffers()[i])
	}
	assert.Equal(t, Extent{Width: 1024, Height: 768}, sm.Extent())
	assert.Equal(t, live, fake.leaks(), "nothing leaked or double freed")
	assert.NotEmpty(t, fake.callsWithPrefix("wait idle"))

	stats := alloc.Stats()
	assert.Equal(t, uint64(2), stats.ImageAllocs)
	assert.Equal(t, uint64(1), stats.ImageFrees)

	sm.Destroy()
	assert.Empty(t, fake.leaks())
}

func TestSwapchainRebuildReportsChanges(t *testing.T) {
	fake := newFakeBackend()
	sm := NewSwapchainManager(fake, NewAllocator(fake), SwapchainManagerConfig{})
	require.NoError(t, sm.Create(800, 600))
	oldRenderpass := sm.Renderpass()

	fake.imageCount = 2
	fake.surfaceFormat = vk.FormatR8g8b8a8Unorm
	result, err := sm.Rebuild(800, 600)
	require.NoError(t, err)
	assert.Equal(t, RebuildResult{ImageCountChanged: true, FormatChanged: true}, result)
	assert.NotSame(t, oldRenderpass, sm.Renderpass())
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, sm.Renderpass().ColorFormat)
	assert.Len(t, sm.Framebuffers(), 2)

	sm.Destroy()
	assert.Empty(t, fake.leaks())
}
