package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/**
 * @brief Holds a graphics pipeline. The layout is the shared one of the
 * ShaderLayout and is not owned.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	/** @brief The renderpass the pipeline draws in. */
	Renderpass *VulkanRenderpass
	/** @brief The vertex and fragment stages. */
	Stages []vk.PipelineShaderStageCreateInfo
	/** @brief Fixed function state read from the shader binary. */
	Modes metadata.ShaderModes
}

// rasterState is the part of the pipeline state derived from the shader
// modes.
type rasterState struct {
	polygon    vk.PolygonMode
	topology   vk.PrimitiveTopology
	cull       vk.CullModeFlags
	depthTest  bool
	depthWrite bool
}

func rasterStateOf(modes metadata.ShaderModes) rasterState {
	state := rasterState{
		polygon:    vk.PolygonModeFill,
		topology:   vk.PrimitiveTopologyTriangleList,
		cull:       vk.CullModeFlags(vk.CullModeBackBit),
		depthTest:  modes.Depth.Tests(),
		depthWrite: modes.Depth.Writes(),
	}
	if modes.Shape.Lined() {
		state.polygon = vk.PolygonModeLine
	}
	if modes.Shape == metadata.ShapeLines {
		state.topology = vk.PrimitiveTopologyLineList
	}
	switch modes.Cull {
	case metadata.CullFront:
		state.cull = vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.CullDisabled:
		state.cull = vk.CullModeFlags(vk.CullModeNone)
	}
	return state
}

// vertexAttributes describes metadata.Vertex.
func vertexAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 24},
		{Location: 3, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 32},
		{Location: 4, Binding: 0, Format: vk.FormatR32Uint, Offset: 48},
	}
}

func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{PipelineLayout: context.Layout.PipelineLayout}
	state := rasterStateOf(config.Modes)

	// Viewport and scissor are dynamic, only the counts matter
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             state.polygon,
		LineWidth:               1.0,
		CullMode:                state.cull,
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  config.Renderpass.Samples,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		DepthCompareOp:    vk.CompareOpLessOrEqual,
		StencilTestEnable: vk.False,
	}
	if state.depthTest {
		depthStencil.DepthTestEnable = vk.True
	}
	if state.depthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	var blendAttachments []vk.PipelineColorBlendAttachmentState
	for _, a := range config.Renderpass.Attachments {
		// one blend state per color reference of the subpass
		if a.Role == AttachmentDepth {
			continue
		}
		if a.Role == AttachmentColor && config.Renderpass.Samples != vk.SampleCount1Bit {
			continue
		}
		blendAttachments = append(blendAttachments, colorBlendAttachmentState)
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
		vk.DynamicStateLineWidth,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    metadata.VertexStride,
		InputRate: vk.VertexInputRateVertex,
	}
	attributes := vertexAttributes()
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               state.topology,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		PTessellationState:  nil,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pPipelines := make([]vk.Pipeline, 1)
	if err := context.lockPool.SafeCall(PipelineManagement, func() error {
		if res := vk.CreateGraphicsPipelines(
			context.Device.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			context.Allocator,
			pPipelines); res != vk.Success {
			return gpuError("vkCreateGraphicsPipelines", res)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	outPipeline.Handle = pPipelines[0]

	core.LogDebug("graphics pipeline created (samples=%d, depth=%t/%t)", config.Renderpass.Samples, state.depthTest, state.depthWrite)
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle == nil {
		return
	}
	_ = context.lockPool.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = nil
		return nil
	})
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindPipeline(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)
}
