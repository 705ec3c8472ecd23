package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

// Mat4 is a 4x4 matrix stored column major: Data[col*4+row].
type Mat4 struct {
	Data [16]float32
}

// Transform places an object in the world. Rotation holds Euler rates in
// degrees per second; X spins the object about the world Z axis.
type Transform struct {
	Location Vec3
	Rotation Vec3
	Scale    Vec3
}
