package vulkan

import (
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/**
 * @brief A material: the argument block bound as set 1. Changes reach the
 * GPU lazily, per frame slot.
 */
type VulkanMaterial struct {
	Args *UniformSet[metadata.MaterialArgs]
}

func MaterialCreate(context *VulkanContext, args metadata.MaterialArgs) (*VulkanMaterial, error) {
	uniform, err := UniformSetCreate(context, context.Layout.MaterialLayout, args)
	if err != nil {
		return nil, err
	}
	return &VulkanMaterial{Args: uniform}, nil
}

func (m *VulkanMaterial) Destroy() {
	if m.Args != nil {
		m.Args.Destroy()
		m.Args = nil
	}
}
