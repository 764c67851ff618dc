package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/**
 * @brief A shader program: the two stage modules of a shader binary and the
 * pipelines built from them, one per compatible render pass.
 */
type VulkanShader struct {
	context   *VulkanContext
	Modes     metadata.ShaderModes
	vert      vk.ShaderModule
	frag      vk.ShaderModule
	pipelines map[string]*VulkanPipeline
}

// CodeSize is in bytes, PCode in words.
func shaderModuleInfo(code []byte) vk.ShaderModuleCreateInfo {
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    sliceUint32(code),
	}
}

func createShaderModule(context *VulkanContext, code []byte) (vk.ShaderModule, error) {
	createInfo := shaderModuleInfo(code)
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		return nil, gpuError("vkCreateShaderModule", res)
	}
	return module, nil
}

// ShaderCreate builds the stage modules of a decoded shader binary. The
// pipelines are created on first use with a render pass.
func ShaderCreate(context *VulkanContext, binary *metadata.ShaderBinary) (*VulkanShader, error) {
	shader := &VulkanShader{
		context:   context,
		Modes:     binary.Modes,
		pipelines: make(map[string]*VulkanPipeline),
	}
	var err error
	if shader.vert, err = createShaderModule(context, binary.Vert); err != nil {
		return nil, err
	}
	if shader.frag, err = createShaderModule(context, binary.Frag); err != nil {
		shader.Destroy()
		return nil, err
	}
	return shader, nil
}

func (s *VulkanShader) stages() []vk.PipelineShaderStageCreateInfo {
	return []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: s.vert,
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: s.frag,
			PName:  VulkanSafeString("main"),
		},
	}
}

// Pipeline returns the pipeline for drawing in renderpass, creating it the
// first time a pass of that shape is seen.
func (s *VulkanShader) Pipeline(renderpass *VulkanRenderpass) (*VulkanPipeline, error) {
	if p, ok := s.pipelines[renderpass.Key]; ok {
		return p, nil
	}
	p, err := NewGraphicsPipeline(s.context, &VulkanPipelineConfig{
		Renderpass: renderpass,
		Stages:     s.stages(),
		Modes:      s.Modes,
	})
	if err != nil {
		return nil, err
	}
	s.pipelines[renderpass.Key] = p
	return p, nil
}

// Bind binds the pipeline matching renderpass.
func (s *VulkanShader) Bind(commandBuffer *VulkanCommandBuffer, renderpass *VulkanRenderpass) error {
	p, err := s.Pipeline(renderpass)
	if err != nil {
		return err
	}
	p.Bind(commandBuffer)
	return nil
}

// Reload swaps in the modules of a new binary and rebuilds every pipeline
// already in use. On failure the shader is left untouched. On success the
// returned function releases the previous objects and must only run once
// no frame in flight uses them.
func (s *VulkanShader) Reload(binary *metadata.ShaderBinary, renderpasses []*VulkanRenderpass) (func(), error) {
	next, err := ShaderCreate(s.context, binary)
	if err != nil {
		return nil, err
	}
	for _, rp := range renderpasses {
		if _, used := s.pipelines[rp.Key]; !used {
			continue
		}
		if _, err := next.Pipeline(rp); err != nil {
			next.Destroy()
			return nil, err
		}
	}

	old := &VulkanShader{context: s.context, vert: s.vert, frag: s.frag, pipelines: s.pipelines}
	s.Modes, s.vert, s.frag, s.pipelines = next.Modes, next.vert, next.frag, next.pipelines
	core.LogInfo("shader reloaded (%d pipelines)", len(s.pipelines))
	return old.Destroy, nil
}

func (s *VulkanShader) Destroy() {
	for key, p := range s.pipelines {
		p.Destroy(s.context)
		delete(s.pipelines, key)
	}
	device := s.context.Device.LogicalDevice
	if s.vert != nil {
		vk.DestroyShaderModule(device, s.vert, s.context.Allocator)
		s.vert = nil
	}
	if s.frag != nil {
		vk.DestroyShaderModule(device, s.frag, s.context.Allocator)
		s.frag = nil
	}
}
