package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/**
 * @brief One draw request. Orders only reference resources through handles
 * and live for a single frame.
 */
type Order struct {
	Shader   metadata.Handle
	Material metadata.Handle
	Mesh     metadata.Handle
	/** @brief Local to world matrix. */
	Model mgl32.Mat4
	Tint  mgl32.Vec3
	/** @brief Bindless slot of the albedo texture, 0 for plain white. */
	AlbedoIndex  uint32
	SamplerIndex uint32
	/** @brief The mesh casts shadows. */
	Shadows bool
	/** @brief Also draw the mesh edges in the wireframe overlay. */
	Wireframe bool
}

/** @brief Orders sharing a material, as indices into the target's orders. */
type MaterialGroup struct {
	Material metadata.Handle
	Orders   []int
}

/** @brief Orders sharing a shader, grouped by material. */
type ShaderGroup struct {
	Shader    metadata.Handle
	Materials []MaterialGroup
}

/**
 * @brief Collects the draw orders and scene settings of one framebuffer for
 * one frame.
 */
type Target struct {
	Lights       []metadata.Light
	ClearColor   mgl32.Vec4
	AmbientColor mgl32.Vec3
	/** @brief Draw the skybox cubemap behind everything else. */
	Skybox     bool
	LineWidth  float32
	ShadowBias float32

	orders []Order
}

func NewTarget() *Target {
	return &Target{
		ClearColor:   mgl32.Vec4{0, 0, 0, 1},
		AmbientColor: mgl32.Vec3{0.1, 0.1, 0.1},
		LineWidth:    1,
		ShadowBias:   0.005,
	}
}

// Draw queues an order.
func (t *Target) Draw(o Order) {
	t.orders = append(t.orders, o)
}

// DrawMesh queues a mesh with the given shader and material, casting
// shadows and untinted.
func (t *Target) DrawMesh(mesh, shader, material metadata.Handle, model mgl32.Mat4) {
	t.Draw(Order{
		Shader:   shader,
		Material: material,
		Mesh:     mesh,
		Model:    model,
		Tint:     mgl32.Vec3{1, 1, 1},
		Shadows:  true,
	})
}

func (t *Target) AddLight(l metadata.Light) {
	t.Lights = append(t.Lights, l)
}

func (t *Target) Orders() []Order {
	return t.orders
}

// Groups buckets the orders by shader, then by material. Groups keep the
// order in which their key was first seen and orders keep submission order.
func (t *Target) Groups() []ShaderGroup {
	var groups []ShaderGroup
	shaderIndex := make(map[metadata.Handle]int)
	for i, o := range t.orders {
		si, ok := shaderIndex[o.Shader]
		if !ok {
			si = len(groups)
			shaderIndex[o.Shader] = si
			groups = append(groups, ShaderGroup{Shader: o.Shader})
		}
		g := &groups[si]
		mi := -1
		for j := range g.Materials {
			if g.Materials[j].Material == o.Material {
				mi = j
				break
			}
		}
		if mi < 0 {
			mi = len(g.Materials)
			g.Materials = append(g.Materials, MaterialGroup{Material: o.Material})
		}
		g.Materials[mi].Orders = append(g.Materials[mi].Orders, i)
	}
	return groups
}

// HasShadowCasters reports whether any order casts shadows.
func (t *Target) HasShadowCasters() bool {
	for _, o := range t.orders {
		if o.Shadows {
			return true
		}
	}
	return false
}

// ShadowOrders returns the indices of the orders drawn into the shadow map.
func (t *Target) ShadowOrders() []int {
	var out []int
	for i, o := range t.orders {
		if o.Shadows {
			out = append(out, i)
		}
	}
	return out
}

// WireframeOrders returns the indices of the orders drawn in the overlay.
func (t *Target) WireframeOrders() []int {
	var out []int
	for i, o := range t.orders {
		if o.Wireframe {
			out = append(out, i)
		}
	}
	return out
}
