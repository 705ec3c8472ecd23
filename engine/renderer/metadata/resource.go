package metadata

type ResourceType int

// Pre-defined resource types.
const (
	ResourceTypeNone ResourceType = iota
	// Raw bytes, e.g. compiled SPIR-V.
	ResourceTypeBinary
	// Decoded RGBA8 pixels.
	ResourceTypeImage
	// Triangulated positions, texcoords and index tuples.
	ResourceTypeMesh
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeMesh:
		return "mesh"
	default:
		return "none"
	}
}

// Resource is what every asset loader produces.
type Resource struct {
	// Stable identifier assigned by the asset manager.
	ID string
	// The name of the resource.
	Name string
	// The full file path of the resource.
	FullPath string
	Type     ResourceType
	// The size of the resource data in bytes.
	DataSize uint64
	// *ImageData, *MeshData or []uint32 depending on Type.
	Data interface{}
}
