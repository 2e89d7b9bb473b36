package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderStage wraps precompiled bytecode into a shader module. The
// bytecode is not inspected here.
func NewShaderStage(context *VulkanContext, resource *metadata.Resource, stage metadata.ShaderStage) (*VulkanShaderStage, error) {
	if resource == nil || len(resource.Code) == 0 {
		return nil, fmt.Errorf("%s shader has no bytecode: %w", stage, core.ErrResourceCreation)
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType: vk.StructureTypeShaderModuleCreateInfo,
		// Use the resource's size and data directly.
		CodeSize: uint(resource.DataSize),
		PCode:    resource.Code,
	}

	shaderStage := &VulkanShaderStage{}
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &shaderStage.Handle); res != vk.Success {
		return nil, resultError(fmt.Sprintf("vkCreateShaderModule(%s)", resource.Name), res, core.ErrResourceCreation)
	}

	// Shader stage info
	shaderStage.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageFlagBits(stage),
		Module: shaderStage.Handle,
		PName:  VulkanSafeString("main"),
	}
	return shaderStage, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}
