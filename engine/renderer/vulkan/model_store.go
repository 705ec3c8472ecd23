package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/containers"
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/math"
	"github.com/spaghettifunk/simplegfx/engine/renderer/components"
	"github.com/spaghettifunk/simplegfx/engine/renderer/metadata"
)

// MeshSource decodes mesh files.
type MeshSource interface {
	LoadMesh(path string) (*metadata.MeshData, error)
}

// ModelHandle identifies a loaded model until it is freed.
type ModelHandle struct {
	Index      uint32
	Generation uint32
}

func (h ModelHandle) slab() containers.Handle {
	return containers.Handle{Index: h.Index, Generation: h.Generation}
}

type Model struct {
	Path        string
	Vertices    *VulkanBuffer
	Indices     *VulkanBuffer
	VertexCount uint32
	IndexCount  uint32
	Transform   math.Transform
	Matrices    MatrixBlock
	TextureSlot uint32
}

// BuildGeometry flattens a mesh into a vertex buffer with no repeated
// (position, texcoord) pair and an index buffer into it. Vertices keep the
// order in which they are first referenced.
func BuildGeometry(mesh *metadata.MeshData) ([]Vertex, []uint32, error) {
	if mesh == nil || mesh.TriangleCount() == 0 {
		return nil, nil, core.ErrEmptyMesh
	}
	vertices := make([]Vertex, 0, len(mesh.Positions))
	indices := make([]uint32, 0, len(mesh.Indices))
	unique := make(map[Vertex]uint32, len(mesh.Positions))

	for i, corner := range mesh.Indices[:mesh.TriangleCount()*3] {
		if corner.Position < 0 || int(corner.Position) >= len(mesh.Positions) {
			return nil, nil, fmt.Errorf("corner %d references position %d of %d", i, corner.Position, len(mesh.Positions))
		}
		v := Vertex{Position: mesh.Positions[corner.Position]}
		if corner.TexCoord >= 0 {
			if int(corner.TexCoord) >= len(mesh.TexCoords) {
				return nil, nil, fmt.Errorf("corner %d references texcoord %d of %d", i, corner.TexCoord, len(mesh.TexCoords))
			}
			v.TexCoord = mesh.TexCoords[corner.TexCoord]
		}
		index, ok := unique[v]
		if !ok {
			index = uint32(len(vertices))
			unique[v] = index
			vertices = append(vertices, v)
		}
		indices = append(indices, index)
	}
	return vertices, indices, nil
}

// ModelStore owns every loaded model and its GPU buffers. Iteration follows
// load order.
type ModelStore struct {
	allocator       *Allocator
	meshes          MeshSource
	models          *containers.Slab[*Model]
	camera          *components.Camera
	textureCapacity uint32
}

func NewModelStore(allocator *Allocator, meshes MeshSource, camera *components.Camera, textureCapacity uint32) *ModelStore {
	if camera == nil {
		camera = components.NewDefaultCamera()
	}
	return &ModelStore{
		allocator:       allocator,
		meshes:          meshes,
		models:          containers.NewSlab[*Model](0),
		camera:          camera,
		textureCapacity: textureCapacity,
	}
}

func (ms *ModelStore) Load(path string) (ModelHandle, error) {
	mesh, err := ms.meshes.LoadMesh(path)
	if err != nil {
		return ModelHandle{}, fmt.Errorf("loading model %s: %w", path, err)
	}
	vertices, indices, err := BuildGeometry(mesh)
	if err != nil {
		return ModelHandle{}, fmt.Errorf("loading model %s: %w", path, err)
	}

	vertexBuffer, err := ms.allocator.UploadBuffer(vertexBytes(vertices), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return ModelHandle{}, err
	}
	indexBuffer, err := ms.allocator.UploadBuffer(indexBytes(indices), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		ms.allocator.DestroyBuffer(vertexBuffer)
		return ModelHandle{}, err
	}

	model := &Model{
		Path:        path,
		Vertices:    vertexBuffer,
		Indices:     indexBuffer,
		VertexCount: uint32(len(vertices)),
		IndexCount:  uint32(len(indices)),
		Transform:   math.TransformCreate(),
	}
	h, err := ms.models.Insert(model)
	if err != nil {
		ms.destroy(model)
		return ModelHandle{}, fmt.Errorf("loading model %s: %w", path, err)
	}
	core.LogInfo("Model %s loaded: %d vertices, %d indices.", path, model.VertexCount, model.IndexCount)
	return ModelHandle{Index: h.Index, Generation: h.Generation}, nil
}

func (ms *ModelStore) get(h ModelHandle) (*Model, error) {
	model, ok := ms.models.Get(h.slab())
	if !ok {
		return nil, fmt.Errorf("model %d/%d: %w", h.Index, h.Generation, core.ErrInvalidHandle)
	}
	return model, nil
}

func (ms *ModelStore) Get(h ModelHandle) (*Model, bool) {
	return ms.models.Get(h.slab())
}

func (ms *ModelStore) SetTransform(h ModelHandle, transform math.Transform) error {
	model, err := ms.get(h)
	if err != nil {
		return err
	}
	model.Transform = transform
	return nil
}

func (ms *ModelStore) SetLocation(h ModelHandle, location math.Vec3) error {
	model, err := ms.get(h)
	if err != nil {
		return err
	}
	model.Transform.Location = location
	return nil
}

// SetRotation sets the spin rate. Rotation.X is degrees per second about Z.
func (ms *ModelStore) SetRotation(h ModelHandle, rotation math.Vec3) error {
	model, err := ms.get(h)
	if err != nil {
		return err
	}
	model.Transform.Rotation = rotation
	return nil
}

func (ms *ModelStore) SetScale(h ModelHandle, scale math.Vec3) error {
	model, err := ms.get(h)
	if err != nil {
		return err
	}
	model.Transform.Scale = scale
	return nil
}

func (ms *ModelStore) SetTexture(h ModelHandle, slot uint32) error {
	if slot >= ms.textureCapacity {
		return fmt.Errorf("slot %d of %d: %w", slot, ms.textureCapacity, core.ErrTextureSlotOutOfRange)
	}
	model, err := ms.get(h)
	if err != nil {
		return err
	}
	model.TextureSlot = slot
	return nil
}

// Free releases the model's buffers. The GPU must not be using them.
func (ms *ModelStore) Free(h ModelHandle) error {
	model, err := ms.models.Remove(h.slab())
	if err != nil {
		return fmt.Errorf("model %d/%d: %w", h.Index, h.Generation, core.ErrInvalidHandle)
	}
	ms.destroy(model)
	core.LogDebug("Model %s freed.", model.Path)
	return nil
}

func (ms *ModelStore) destroy(model *Model) {
	ms.allocator.DestroyBuffer(model.Vertices)
	ms.allocator.DestroyBuffer(model.Indices)
	model.Vertices = nil
	model.Indices = nil
}

// Each visits models in load order until fn returns false.
func (ms *ModelStore) Each(fn func(h ModelHandle, model *Model) bool) {
	ms.models.Each(func(h containers.Handle, model *Model) bool {
		return fn(ModelHandle{Index: h.Index, Generation: h.Generation}, model)
	})
}

func (ms *ModelStore) Len() uint32 {
	return ms.models.Len()
}

func (ms *ModelStore) Camera() *components.Camera {
	return ms.camera
}

func (ms *ModelStore) SetCamera(camera *components.Camera) {
	ms.camera = camera
}

// UpdateModels recomputes every model's matrix block for the given time
// since start and framebuffer extent.
func (ms *ModelStore) UpdateModels(elapsed float64, extent Extent) {
	view := ms.camera.GetView()
	projection := ms.camera.Projection(extent.Aspect())
	ms.models.Each(func(_ containers.Handle, model *Model) bool {
		model.Matrices.Model = model.Transform.Matrix(elapsed)
		model.Matrices.View = view
		model.Matrices.Projection = projection
		return true
	})
}

// Destroy frees every model.
func (ms *ModelStore) Destroy() {
	var handles []containers.Handle
	ms.models.Each(func(h containers.Handle, _ *Model) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		if model, err := ms.models.Remove(h); err == nil {
			ms.destroy(model)
		}
	}
}
