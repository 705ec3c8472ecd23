package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
)

func (vc *VulkanContext) CreateFence(signaled bool) (*VulkanFence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if err := checkResult("vkCreateFence", vk.CreateFence(vc.Device.LogicalDevice, &fenceCreateInfo, vc.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanFence{Handle: handle, IsSignaled: signaled}, nil
}

func (vc *VulkanContext) DestroyFence(fence *VulkanFence) {
	if fence == nil || fence.Handle == vk.NullFence {
		return
	}
	vk.DestroyFence(vc.Device.LogicalDevice, fence.Handle, vc.Allocator)
	fence.Handle = vk.NullFence
	fence.IsSignaled = false
}

// WaitForFence blocks until the fence is signaled. A fence already seen
// signaled returns immediately.
func (vc *VulkanContext) WaitForFence(fence *VulkanFence) error {
	if fence.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(vc.Device.LogicalDevice, 1, []vk.Fence{fence.Handle}, vk.True, vk.MaxUint64)
	switch result {
	case vk.Success:
		fence.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	}
	return checkResult("vkWaitForFences", result)
}

func (vc *VulkanContext) ResetFence(fence *VulkanFence) error {
	if !fence.IsSignaled {
		return nil
	}
	if err := checkResult("vkResetFences", vk.ResetFences(vc.Device.LogicalDevice, 1, []vk.Fence{fence.Handle})); err != nil {
		return err
	}
	fence.IsSignaled = false
	return nil
}

func (vc *VulkanContext) CreateSemaphore() (*VulkanSemaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var handle vk.Semaphore
	if err := checkResult("vkCreateSemaphore", vk.CreateSemaphore(vc.Device.LogicalDevice, &semaphoreCreateInfo, vc.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanSemaphore{Handle: handle}, nil
}

func (vc *VulkanContext) DestroySemaphore(semaphore *VulkanSemaphore) {
	if semaphore == nil || semaphore.Handle == vk.NullSemaphore {
		return
	}
	vk.DestroySemaphore(vc.Device.LogicalDevice, semaphore.Handle, vc.Allocator)
	semaphore.Handle = vk.NullSemaphore
}
