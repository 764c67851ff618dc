package vulkan

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/** @brief What an attachment slot is used for. */
type AttachmentRole int

const (
	AttachmentDepth AttachmentRole = iota
	/** @brief A single sampled color image that is kept after the pass. */
	AttachmentColor
	/** @brief The multisampled color image resolved into the preceding color attachment. */
	AttachmentMultisampled
)

/** @brief A color output requested from a render pass. */
type AttachmentRequest struct {
	Format vk.Format
	/** @brief The stored image is a swapchain image. */
	Present bool
}

/** @brief The immutable description of one attachment slot. */
type Attachment struct {
	Role    AttachmentRole
	Format  vk.Format
	Samples uint32
	Clear   bool
	Store   bool
	Final   ImageLayout
}

// PlanAttachments orders the attachments of a pass: the depth attachment
// first, then each color output followed by its multisampled image when
// MSAA is on.
func PlanAttachments(depth bool, colors []AttachmentRequest, msaa metadata.Msaa) []Attachment {
	var out []Attachment
	if depth {
		a := Attachment{
			Role:    AttachmentDepth,
			Samples: 1,
			Clear:   true,
			Store:   len(colors) == 0,
			Final:   LayoutDepth,
		}
		if len(colors) == 0 {
			a.Final = LayoutShaderRead
		} else if msaa.Enabled() {
			a.Samples = msaa.Samples()
		}
		out = append(out, a)
	}
	for _, c := range colors {
		base := Attachment{
			Role:    AttachmentColor,
			Format:  c.Format,
			Samples: 1,
			// with msaa this is the resolve target, fully overwritten
			Clear: !msaa.Enabled(),
			Store: true,
			Final: LayoutShaderRead,
		}
		if c.Present {
			base.Final = LayoutPresent
		}
		out = append(out, base)
		if msaa.Enabled() {
			out = append(out, Attachment{
				Role:    AttachmentMultisampled,
				Format:  c.Format,
				Samples: msaa.Samples(),
				Clear:   true,
				Store:   false,
				Final:   LayoutColor,
			})
		}
	}
	return out
}

// planDependencies returns the entry and exit dependencies of the single
// subpass. The entry waits for fragment shaders of earlier passes still
// sampling the attachments, the same image is rendered more than once per
// frame. The exit makes attachments visible to fragment shaders of later
// passes, or to the presentation engine.
func planDependencies(depth, color, present bool) []vk.SubpassDependency {
	if !color {
		return []vk.SubpassDependency{
			{
				SrcSubpass:    vk.SubpassExternal,
				DstSubpass:    0,
				SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit | vk.PipelineStageLateFragmentTestsBit),
				SrcAccessMask: vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
				DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
				DstAccessMask: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			},
			{
				SrcSubpass:      0,
				DstSubpass:      vk.SubpassExternal,
				SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
				SrcAccessMask:   vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
				DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
				DstAccessMask:   vk.AccessFlags(vk.AccessShaderReadBit),
				DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
			},
		}
	}

	entryStages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	entryAccess := vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	if depth {
		entryStages |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
		entryAccess |= vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	}
	exitStage := vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	exitAccess := vk.AccessFlags(vk.AccessShaderReadBit)
	if present {
		exitStage = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
		exitAccess = 0
	}
	return []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  entryStages | vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			SrcAccessMask: 0,
			DstStageMask:  entryStages,
			DstAccessMask: entryAccess,
		},
		{
			SrcSubpass:      0,
			DstSubpass:      vk.SubpassExternal,
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstStageMask:    exitStage,
			DstAccessMask:   exitAccess,
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		},
	}
}

type VulkanRenderpass struct {
	Handle      vk.RenderPass
	Attachments []Attachment
	/** @brief Sample count pipelines drawing in this pass must use. */
	Samples   vk.SampleCountFlagBits
	DepthOnly bool
	Present   bool
	/** @brief Equal for render passes a pipeline can be shared between. */
	Key string
}

// compatibilityKey identifies render passes with the same attachment
// formats and sample counts.
func compatibilityKey(attachments []Attachment) string {
	var sb strings.Builder
	for _, a := range attachments {
		fmt.Fprintf(&sb, "%d:%d:%d;", a.Role, a.Format, a.Samples)
	}
	return sb.String()
}

func RenderpassCreate(context *VulkanContext, depth bool, colors []AttachmentRequest, msaa metadata.Msaa) (*VulkanRenderpass, error) {
	attachments := PlanAttachments(depth, colors, msaa)
	rp := &VulkanRenderpass{
		Attachments: attachments,
		Samples:     vk.SampleCount1Bit,
		DepthOnly:   len(colors) == 0,
	}
	if msaa.Enabled() && len(colors) > 0 {
		rp.Samples = vk.SampleCountFlagBits(msaa.Samples())
	}

	descriptions := make([]vk.AttachmentDescription, len(attachments))
	var colorRefs, resolveRefs []vk.AttachmentReference
	var depthRef *vk.AttachmentReference
	for i := range attachments {
		a := &attachments[i]
		if a.Role == AttachmentDepth {
			a.Format = context.Device.DepthFormat
		}
		loadOp := vk.AttachmentLoadOpDontCare
		if a.Clear {
			loadOp = vk.AttachmentLoadOpClear
		}
		storeOp := vk.AttachmentStoreOpDontCare
		if a.Store {
			storeOp = vk.AttachmentStoreOpStore
		}
		if a.Final == LayoutPresent {
			rp.Present = true
		}
		descriptions[i] = vk.AttachmentDescription{
			Format:         a.Format,
			Samples:        vk.SampleCountFlagBits(a.Samples),
			LoadOp:         loadOp,
			StoreOp:        storeOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    a.Final.Flag(),
		}

		switch a.Role {
		case AttachmentDepth:
			depthRef = &vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
			}
		case AttachmentColor:
			if msaa.Enabled() {
				resolveRefs = append(resolveRefs, vk.AttachmentReference{
					Attachment: uint32(i),
					Layout:     vk.ImageLayoutColorAttachmentOptimal,
				})
			} else {
				colorRefs = append(colorRefs, vk.AttachmentReference{
					Attachment: uint32(i),
					Layout:     vk.ImageLayoutColorAttachmentOptimal,
				})
			}
		case AttachmentMultisampled:
			colorRefs = append(colorRefs, vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			})
		}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}
	if len(resolveRefs) > 0 {
		subpass.PResolveAttachments = resolveRefs
	}
	if depthRef != nil {
		subpass.PDepthStencilAttachment = depthRef
	}

	dependencies := planDependencies(depth, len(colors) > 0, rp.Present)
	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descriptions)),
		PAttachments:    descriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}
	var handle vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, gpuError("vkCreateRenderPass", res)
	}
	rp.Handle = handle
	rp.Key = compatibilityKey(attachments)
	return rp, nil
}

func (vr *VulkanRenderpass) Destroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

// Begin starts the pass on a framebuffer, clearing color attachments to
// clearColor and depth to 1.
func (vr *VulkanRenderpass) Begin(commandBuffer *VulkanCommandBuffer, framebuffer vk.Framebuffer, width, height uint32, clearColor mgl32.Vec4) {
	clearValues := make([]vk.ClearValue, len(vr.Attachments))
	for i, a := range vr.Attachments {
		if a.Role == AttachmentDepth {
			clearValues[i].SetDepthStencil(1.0, 0)
		} else {
			clearValues[i].SetColor(clearColor[:])
		}
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) End(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
