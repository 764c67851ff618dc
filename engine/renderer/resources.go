package renderer

import (
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
	"github.com/spaghettifunk/kiln/engine/renderer/vulkan"
	"github.com/spaghettifunk/kiln/engine/systems"
)

/** @brief The live GPU resources, one store per resource type. */
type Resources struct {
	Textures     *systems.Store[*vulkan.VulkanTexture]
	Cubemaps     *systems.Store[*vulkan.VulkanCubemap]
	Meshes       *systems.Store[*vulkan.VulkanMesh]
	Materials    *systems.Store[*vulkan.VulkanMaterial]
	Shaders      *systems.Store[*vulkan.VulkanShader]
	Framebuffers *systems.Store[*vulkan.VulkanFramebuffer]
}

func NewResources() *Resources {
	return &Resources{
		Textures:     systems.NewStore[*vulkan.VulkanTexture](metadata.ResourceTypeTexture),
		Cubemaps:     systems.NewStore[*vulkan.VulkanCubemap](metadata.ResourceTypeCubemap),
		Meshes:       systems.NewStore[*vulkan.VulkanMesh](metadata.ResourceTypeMesh),
		Materials:    systems.NewStore[*vulkan.VulkanMaterial](metadata.ResourceTypeMaterial),
		Shaders:      systems.NewStore[*vulkan.VulkanShader](metadata.ResourceTypeShader),
		Framebuffers: systems.NewStore[*vulkan.VulkanFramebuffer](metadata.ResourceTypeFramebuffer),
	}
}

/**
 * @brief Handles of the resources the renderer creates for itself.
 */
type Builtins struct {
	/** @brief 1x1 white texture, always bindless slot 0. */
	White    metadata.Handle
	Cube     metadata.Handle
	Material metadata.Handle
	/** @brief The default lit shader offered to games. */
	Phong     metadata.Handle
	Shadow    metadata.Handle
	Wireframe metadata.Handle
	Skybox    metadata.Handle
}
