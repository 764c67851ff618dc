package metadata

import "github.com/go-gl/mathgl/mgl32"

/**
 * @brief The argument block of a material, uploaded as its uniform buffer.
 * The meaning of each vector is up to the shader. The phong helpers use A.
 */
type MaterialArgs [8]mgl32.Vec4

/** @brief Size in bytes of the material uniform. */
const MaterialArgsSize = 8 * 4 * 4

// SetPhongColor sets the diffuse color read by the phong shader.
func (m *MaterialArgs) SetPhongColor(color mgl32.Vec3) {
	m[0][0], m[0][1], m[0][2] = color[0], color[1], color[2]
}

// SetPhongTexture sets the bindless slot of the diffuse texture.
func (m *MaterialArgs) SetPhongTexture(slot uint32) {
	m[0][3] = float32(slot)
}

func (m *MaterialArgs) PhongColor() mgl32.Vec3 {
	return m[0].Vec3()
}

func (m *MaterialArgs) PhongTexture() uint32 {
	return uint32(m[0][3])
}

// DefaultMaterialArgs is white, sampling the builtin white texture.
func DefaultMaterialArgs() MaterialArgs {
	var m MaterialArgs
	m.SetPhongColor(mgl32.Vec3{1, 1, 1})
	m.SetPhongTexture(0)
	return m
}
