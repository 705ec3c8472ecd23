package components

import (
	"github.com/spaghettifunk/simplegfx/engine/math"
)

// Camera is a look-at camera. The view matrix is cached and rebuilt only
// after one of the setters or movers marks it dirty.
type Camera struct {
	Eye        math.Vec3
	Center     math.Vec3
	Up         math.Vec3
	FovDegrees float32
	Near       float32
	Far        float32

	IsDirty    bool
	ViewMatrix math.Mat4
}

func NewCamera(eye, center, up math.Vec3, fovDegrees, near, far float32) *Camera {
	return &Camera{
		Eye:        eye,
		Center:     center,
		Up:         up,
		FovDegrees: fovDegrees,
		Near:       near,
		Far:        far,
		IsDirty:    true,
	}
}

// NewDefaultCamera looks down at the origin from above, with +Z up on screen.
func NewDefaultCamera() *Camera {
	return NewCamera(math.NewVec3(0, 7, 0), math.NewVec3Zero(), math.NewVec3(0, 0, 1), 45, 0.1, 10)
}

func (c *Camera) Reset() {
	d := NewDefaultCamera()
	*c = *d
}

func (c *Camera) SetEye(eye math.Vec3) {
	c.Eye = eye
	c.IsDirty = true
}

func (c *Camera) SetCenter(center math.Vec3) {
	c.Center = center
	c.IsDirty = true
}

func (c *Camera) GetView() math.Mat4 {
	if c.IsDirty {
		c.ViewMatrix = math.NewMat4LookAt(c.Eye, c.Center, c.Up)
		c.IsDirty = false
	}
	return c.ViewMatrix
}

// Projection returns the perspective matrix for a framebuffer of the given
// width over height.
func (c *Camera) Projection(aspect float32) math.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return math.NewMat4Perspective(math.DegToRad(c.FovDegrees), aspect, c.Near, c.Far)
}

func (c *Camera) Forward() math.Vec3 {
	return c.Center.Sub(c.Eye).Normalized()
}

func (c *Camera) Right() math.Vec3 {
	return c.Forward().Cross(c.Up).Normalized()
}

// move translates eye and center together so the view direction is kept.
func (c *Camera) move(direction math.Vec3, amount float32) {
	delta := direction.MulScalar(amount)
	c.Eye = c.Eye.Add(delta)
	c.Center = c.Center.Add(delta)
	c.IsDirty = true
}

func (c *Camera) MoveForward(amount float32) {
	c.move(c.Forward(), amount)
}

func (c *Camera) MoveBackward(amount float32) {
	c.move(c.Forward(), -amount)
}

func (c *Camera) MoveLeft(amount float32) {
	c.move(c.Right(), -amount)
}

func (c *Camera) MoveRight(amount float32) {
	c.move(c.Right(), amount)
}

func (c *Camera) MoveUp(amount float32) {
	c.move(c.Up.Normalized(), amount)
}

func (c *Camera) MoveDown(amount float32) {
	c.move(c.Up.Normalized(), -amount)
}

// Zoom narrows or widens the field of view, kept within [1, 120] degrees.
func (c *Camera) Zoom(degrees float32) {
	c.FovDegrees = math.Clamp(c.FovDegrees-degrees, 1, 120)
}
