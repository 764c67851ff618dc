package metadata

import (
	"github.com/google/uuid"
)

/** @brief The kind of GPU resource a handle refers to. */
type ResourceType int

const (
	ResourceTypeTexture ResourceType = iota
	ResourceTypeCubemap
	ResourceTypeMesh
	ResourceTypeMaterial
	ResourceTypeShader
	ResourceTypeFramebuffer
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeTexture:
		return "texture"
	case ResourceTypeCubemap:
		return "cubemap"
	case ResourceTypeMesh:
		return "mesh"
	case ResourceTypeMaterial:
		return "material"
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeFramebuffer:
		return "framebuffer"
	}
	return "unknown"
}

/**
 * @brief A typed reference to a resource owned by the renderer. Draw orders
 * only ever carry handles, never the resources themselves.
 */
type Handle struct {
	ID   uuid.UUID
	Type ResourceType
}

// NewHandle returns a fresh handle of the given type.
func NewHandle(t ResourceType) Handle {
	return Handle{ID: uuid.New(), Type: t}
}

// IsNil reports whether the handle was never assigned.
func (h Handle) IsNil() bool {
	return h.ID == uuid.Nil
}

func (h Handle) String() string {
	return h.Type.String() + ":" + h.ID.String()
}
