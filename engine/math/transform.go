package math

func TransformCreate() Transform {
	return Transform{
		Location: NewVec3Zero(),
		Rotation: NewVec3Zero(),
		Scale:    NewVec3One(),
	}
}

func TransformFromLocationRotationScale(location, rotation Vec3, scale float32) Transform {
	return Transform{
		Location: location,
		Rotation: rotation,
		Scale:    NewVec3(scale, scale, scale),
	}
}

// Angle returns the Z rotation in radians reached after elapsed seconds.
func (t Transform) Angle(elapsed float64) float32 {
	return DegToRad(float32(elapsed) * t.Rotation.X)
}

// Matrix returns translate(Location) * rotateZ(Angle(elapsed)) * scale(Scale):
// the object is scaled, then spun, then moved into place.
func (t Transform) Matrix(elapsed float64) Mat4 {
	return NewMat4Scale(t.Scale).
		Mul(NewMat4EulerZ(t.Angle(elapsed))).
		Mul(NewMat4Translation(t.Location))
}
