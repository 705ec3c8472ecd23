package vulkan

import (
	"encoding/binary"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/math"
)

// Vertex is the interleaved layout consumed by the vertex shader: position at
// location 0, texture coordinate at location 1. It is comparable and used
// directly as a deduplication key.
type Vertex struct {
	Position math.Vec3
	TexCoord math.Vec2
}

const vertexSize = uint32(unsafe.Sizeof(Vertex{}))

func vertexAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Position)),
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.TexCoord)),
		},
	}
}

// MatrixBlock mirrors the vertex stage push constant block.
type MatrixBlock struct {
	Model      math.Mat4
	View       math.Mat4
	Projection math.Mat4
}

// Bytes aliases the block's memory, so the slice is only valid while mb is.
func (mb *MatrixBlock) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(mb)), MatrixBlockSize)
}

func vertexBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(vertexSize))
}

func indexBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}

func textureIndexBytes(dst *[4]byte, slot uint32) []byte {
	binary.LittleEndian.PutUint32(dst[:], slot)
	return dst[:]
}
