package math

import "github.com/go-gl/mathgl/mgl32"

const (
	// Half width of the orthographic volume of the shadow map.
	ShadowExtent float32 = 25
	// Distance of the shadow eye from the origin along the light direction.
	ShadowDistance float32 = 50
)

// VulkanClip maps the [-1, 1] depth range produced by mgl32 projections to
// Vulkan's [0, 1]. The y axis is handled by the flipped viewport.
func VulkanClip() mgl32.Mat4 {
	m := mgl32.Ident4()
	m[10] = 0.5
	m[14] = 0.5
	return m
}

// Perspective returns a Vulkan ready perspective projection. fov is in degrees.
func Perspective(fov, aspect, near, far float32) mgl32.Mat4 {
	return VulkanClip().Mul4(mgl32.Perspective(mgl32.DegToRad(fov), aspect, near, far))
}

// Orthographic returns a Vulkan ready orthographic projection centered on the view axis.
func Orthographic(width, height, near, far float32) mgl32.Mat4 {
	return VulkanClip().Mul4(mgl32.Ortho(-width/2, width/2, -height/2, height/2, near, far))
}

// LightView returns the view matrix of a directional light looking at the
// origin from -direction*ShadowDistance.
func LightView(direction mgl32.Vec3) mgl32.Mat4 {
	dir := direction.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	if dir.Y() >= 1 || dir.Y() <= -1 {
		up = mgl32.Vec3{0, 0, 1}
	}
	eye := dir.Mul(-ShadowDistance)
	return mgl32.LookAtV(eye, mgl32.Vec3{}, up)
}

// LightProjection is the orthographic volume covering ShadowExtent around the
// origin and reaching twice ShadowDistance from the eye.
func LightProjection() mgl32.Mat4 {
	return Orthographic(2*ShadowExtent, 2*ShadowExtent, 0, 2*ShadowDistance)
}

// LightViewProjection returns the world to shadow clip matrix of a light.
func LightViewProjection(direction mgl32.Vec3) mgl32.Mat4 {
	return LightProjection().Mul4(LightView(direction))
}
