package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	kmath "github.com/spaghettifunk/kiln/engine/math"
)

// 89 degrees in radians
const pitchLimit float32 = 1.55334306

/**
 * @brief A perspective camera. The view matrix is rebuilt lazily after the
 * position or rotation changes.
 */
type Camera struct {
	/** @brief Position in world space. Use SetPosition so the view is rebuilt. */
	Position mgl32.Vec3
	/**
	 * @brief Rotation in radians as (pitch, yaw, roll).
	 * Use SetEulerRotation so the view is rebuilt.
	 */
	EulerRotation mgl32.Vec3
	/** @brief Vertical field of view in degrees. */
	Fov  float32
	Near float32
	Far  float32

	dirty bool
	view  mgl32.Mat4
}

func NewCamera() *Camera {
	c := &Camera{}
	c.Reset()
	return c
}

func (c *Camera) Reset() {
	c.Position = mgl32.Vec3{}
	c.EulerRotation = mgl32.Vec3{}
	c.Fov = 45
	c.Near = 0.1
	c.Far = 1000
	c.view = mgl32.Ident4()
	c.dirty = false
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.dirty = true
}

func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	c.EulerRotation = rotation
	c.EulerRotation[0] = kmath.Clamp(rotation[0], -pitchLimit, pitchLimit)
	c.dirty = true
}

// View returns the world to view matrix.
func (c *Camera) View() mgl32.Mat4 {
	if c.dirty {
		rotation := mgl32.HomogRotate3DY(c.EulerRotation[1]).
			Mul4(mgl32.HomogRotate3DX(c.EulerRotation[0])).
			Mul4(mgl32.HomogRotate3DZ(c.EulerRotation[2]))
		translation := mgl32.Translate3D(c.Position[0], c.Position[1], c.Position[2])
		c.view = translation.Mul4(rotation).Inv()
		c.dirty = false
	}
	return c.view
}

// Projection returns the Vulkan clip space projection for a viewport of
// the given size.
func (c *Camera) Projection(width, height uint32) mgl32.Mat4 {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return kmath.Perspective(c.Fov, aspect, c.Near, c.Far)
}

func (c *Camera) Forward() mgl32.Vec3 {
	v := c.View()
	return mgl32.Vec3{-v[2], -v[6], -v[10]}.Normalize()
}

func (c *Camera) Backward() mgl32.Vec3 {
	return c.Forward().Mul(-1)
}

func (c *Camera) Right() mgl32.Vec3 {
	v := c.View()
	return mgl32.Vec3{v[0], v[4], v[8]}.Normalize()
}

func (c *Camera) Left() mgl32.Vec3 {
	return c.Right().Mul(-1)
}

func (c *Camera) move(direction mgl32.Vec3, amount float32) {
	c.Position = c.Position.Add(direction.Mul(amount))
	c.dirty = true
}

func (c *Camera) MoveForward(amount float32)  { c.move(c.Forward(), amount) }
func (c *Camera) MoveBackward(amount float32) { c.move(c.Backward(), amount) }
func (c *Camera) MoveLeft(amount float32)     { c.move(c.Left(), amount) }
func (c *Camera) MoveRight(amount float32)    { c.move(c.Right(), amount) }
func (c *Camera) MoveUp(amount float32)       { c.move(mgl32.Vec3{0, 1, 0}, amount) }
func (c *Camera) MoveDown(amount float32)     { c.move(mgl32.Vec3{0, -1, 0}, amount) }

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation[1] += amount
	c.dirty = true
}

func (c *Camera) Pitch(amount float32) {
	// Clamp to avoid gimbal lock.
	c.EulerRotation[0] = kmath.Clamp(c.EulerRotation[0]+amount, -pitchLimit, pitchLimit)
	c.dirty = true
}
