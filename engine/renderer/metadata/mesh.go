package metadata

import (
	"github.com/spaghettifunk/simplegfx/engine/math"
)

// MeshIndex references one corner of a triangle by attribute index.
type MeshIndex struct {
	Position int32
	TexCoord int32
}

// MeshData is a triangulated mesh as read from disk. Indices holds three
// entries per triangle. TexCoord is -1 when the corner has none.
type MeshData struct {
	Positions []math.Vec3
	TexCoords []math.Vec2
	Indices   []MeshIndex
}

func (m *MeshData) TriangleCount() int {
	return len(m.Indices) / 3
}
