package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
)

const shaderEntryPoint = "main"

// CreateShaderModule wraps SPIR-V words in a shader module.
func (vc *VulkanContext) CreateShaderModule(code []uint32) (*VulkanShaderModule, error) {
	if len(code) == 0 {
		return nil, core.ErrEmptyUpload
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var handle vk.ShaderModule
	if err := checkResult("vkCreateShaderModule", vk.CreateShaderModule(vc.Device.LogicalDevice, &createInfo, vc.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanShaderModule{Handle: handle}, nil
}

func (vc *VulkanContext) DestroyShaderModule(module *VulkanShaderModule) {
	if module == nil || module.Handle == vk.NullShaderModule {
		return
	}
	vk.DestroyShaderModule(vc.Device.LogicalDevice, module.Handle, vc.Allocator)
	module.Handle = vk.NullShaderModule
}

func shaderStageInfo(module *VulkanShaderModule, stage vk.ShaderStageFlagBits) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module.Handle,
		PName:  VulkanSafeString(shaderEntryPoint),
	}
}

// textureCountSpecialization feeds count into constant_id 0 of a stage. The
// returned value must stay alive until the pipeline is created.
func textureCountSpecialization(count *uint32) []vk.SpecializationInfo {
	return []vk.SpecializationInfo{{
		MapEntryCount: 1,
		PMapEntries: []vk.SpecializationMapEntry{{
			ConstantID: TextureCountConstantID,
			Offset:     0,
			Size:       uint64(unsafe.Sizeof(*count)),
		}},
		DataSize: uint64(unsafe.Sizeof(*count)),
		PData:    unsafe.Pointer(count),
	}}
}
