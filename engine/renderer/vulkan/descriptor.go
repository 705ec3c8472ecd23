package vulkan

import (
	vk "github.com/goki/vulkan"
)

func (vc *VulkanContext) CreateDescriptorSetLayout(binding uint32, count uint32, stage vk.ShaderStageFlagBits) (*VulkanDescriptorSetLayout, error) {
	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         binding,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: count,
			StageFlags:      vk.ShaderStageFlags(stage),
		}},
	}
	var handle vk.DescriptorSetLayout
	if err := checkResult("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(vc.Device.LogicalDevice, &layoutCreateInfo, vc.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanDescriptorSetLayout{Handle: handle, Count: count}, nil
}

func (vc *VulkanContext) DestroyDescriptorSetLayout(layout *VulkanDescriptorSetLayout) {
	if layout == nil || layout.Handle == vk.NullDescriptorSetLayout {
		return
	}
	vk.DestroyDescriptorSetLayout(vc.Device.LogicalDevice, layout.Handle, vc.Allocator)
	layout.Handle = vk.NullDescriptorSetLayout
}

func (vc *VulkanContext) CreateDescriptorPool(descriptorCount uint32, maxSets uint32) (*VulkanDescriptorPool, error) {
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: descriptorCount,
		}},
	}
	var handle vk.DescriptorPool
	if err := checkResult("vkCreateDescriptorPool", vk.CreateDescriptorPool(vc.Device.LogicalDevice, &poolCreateInfo, vc.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanDescriptorPool{Handle: handle, MaxSets: maxSets}, nil
}

func (vc *VulkanContext) DestroyDescriptorPool(pool *VulkanDescriptorPool) {
	if pool == nil || pool.Handle == vk.NullDescriptorPool {
		return
	}
	vk.DestroyDescriptorPool(vc.Device.LogicalDevice, pool.Handle, vc.Allocator)
	pool.Handle = vk.NullDescriptorPool
}

func (vc *VulkanContext) AllocateDescriptorSets(pool *VulkanDescriptorPool, layout *VulkanDescriptorSetLayout, count uint32) ([]*VulkanDescriptorSet, error) {
	sets := make([]*VulkanDescriptorSet, count)
	for i := range sets {
		var handle vk.DescriptorSet
		allocateInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool.Handle,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout.Handle},
		}
		if err := checkResult("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(vc.Device.LogicalDevice, &allocateInfo, &handle)); err != nil {
			return nil, err
		}
		sets[i] = &VulkanDescriptorSet{Handle: handle, Pool: pool}
	}
	return sets, nil
}

func (vc *VulkanContext) WriteTextureDescriptors(writes []TextureDescriptorWrite) {
	if len(writes) == 0 {
		return
	}
	descriptorWrites := make([]vk.WriteDescriptorSet, len(writes))
	for i, w := range writes {
		descriptorWrites[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          w.Set.Handle,
			DstBinding:      w.Binding,
			DstArrayElement: w.ArrayElement,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler:     w.Sampler.Handle,
				ImageView:   w.View.Handle,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		}
	}
	vk.UpdateDescriptorSets(vc.Device.LogicalDevice, uint32(len(descriptorWrites)), descriptorWrites, 0, nil)
}
