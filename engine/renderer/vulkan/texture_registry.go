package vulkan

import (
	"fmt"
	"math/bits"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/containers"
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/renderer/metadata"
)

const textureFormat = vk.FormatR8g8b8a8Srgb

// ImageSource decodes image files into RGBA8 pixels.
type ImageSource interface {
	LoadImage(path string) (*metadata.ImageData, error)
}

// TextureHandle identifies a texture. Slot is the index the shader samples
// with; Generation changes every time the slot is reused.
type TextureHandle struct {
	Slot       uint32
	Generation uint32
}

type Texture struct {
	Path      string
	Image     *VulkanImage
	View      *VulkanImageView
	Width     uint32
	Height    uint32
	MipLevels uint32
}

// MipLevels is floor(log2(max(width, height))) + 1.
func MipLevels(width, height uint32) uint32 {
	return uint32(bits.Len32(max(width, height, 1)))
}

// TextureRegistry is a fixed number of texture slots sharing one sampler.
type TextureRegistry struct {
	backend   Backend
	allocator *Allocator
	images    ImageSource
	slots     *containers.Slab[*Texture]
	sampler   *VulkanSampler
}

func NewTextureRegistry(backend Backend, allocator *Allocator, images ImageSource, capacity uint32) (*TextureRegistry, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("texture capacity must be positive: %w", core.ErrInvalidConfig)
	}
	sampler, err := backend.CreateSampler(SamplerConfig{
		MaxAnisotropy: backend.Limits().MaxSamplerAnisotropy,
		// Generous enough for any texture the device can hold.
		MaxLod: 32,
	})
	if err != nil {
		return nil, err
	}
	return &TextureRegistry{
		backend:   backend,
		allocator: allocator,
		images:    images,
		slots:     containers.NewSlab[*Texture](capacity),
		sampler:   sampler,
	}, nil
}

// Load uploads the image at path into the lowest free slot.
func (tr *TextureRegistry) Load(path string) (TextureHandle, error) {
	if tr.slots.Len() >= tr.slots.Cap() {
		return TextureHandle{}, fmt.Errorf("loading %s: %w", path, core.ErrTextureCapacityExceeded)
	}
	texture, err := tr.create(path)
	if err != nil {
		return TextureHandle{}, err
	}
	h, err := tr.slots.Insert(texture)
	if err != nil {
		tr.destroy(texture)
		return TextureHandle{}, err
	}
	core.LogInfo("Texture %s loaded into slot %d (%dx%d, %d mips).", path, h.Index, texture.Width, texture.Height, texture.MipLevels)
	return TextureHandle{Slot: h.Index, Generation: h.Generation}, nil
}

// LoadInto uploads the image at path into a specific empty slot.
func (tr *TextureRegistry) LoadInto(slot uint32, path string) (TextureHandle, error) {
	if slot >= tr.slots.Cap() {
		return TextureHandle{}, fmt.Errorf("slot %d of %d: %w", slot, tr.slots.Cap(), core.ErrTextureSlotOutOfRange)
	}
	if _, _, ok := tr.slots.At(slot); ok {
		return TextureHandle{}, fmt.Errorf("slot %d: %w", slot, core.ErrTextureSlotOccupied)
	}
	texture, err := tr.create(path)
	if err != nil {
		return TextureHandle{}, err
	}
	h, err := tr.slots.InsertAt(slot, texture)
	if err != nil {
		tr.destroy(texture)
		return TextureHandle{}, err
	}
	core.LogInfo("Texture %s loaded into slot %d (%dx%d, %d mips).", path, h.Index, texture.Width, texture.Height, texture.MipLevels)
	return TextureHandle{Slot: h.Index, Generation: h.Generation}, nil
}

// Replace uploads the image at path and swaps it into a populated slot under
// a fresh handle. The old texture is destroyed only once the new one is on
// the GPU; on error the slot keeps its current texture. The GPU must not be
// using the old texture.
func (tr *TextureRegistry) Replace(slot uint32, path string) (TextureHandle, error) {
	if slot >= tr.slots.Cap() {
		return TextureHandle{}, fmt.Errorf("slot %d of %d: %w", slot, tr.slots.Cap(), core.ErrTextureSlotOutOfRange)
	}
	_, old, ok := tr.slots.At(slot)
	if !ok {
		return TextureHandle{}, fmt.Errorf("replacing slot %d: %w", slot, core.ErrInvalidHandle)
	}
	texture, err := tr.create(path)
	if err != nil {
		return TextureHandle{}, err
	}
	previous, err := tr.slots.Remove(old)
	if err != nil {
		tr.destroy(texture)
		return TextureHandle{}, err
	}
	h, err := tr.slots.InsertAt(slot, texture)
	if err != nil {
		tr.destroy(texture)
		if _, rerr := tr.slots.InsertAt(slot, previous); rerr != nil {
			tr.destroy(previous)
		}
		return TextureHandle{}, err
	}
	tr.destroy(previous)
	core.LogInfo("Texture %s replaced in slot %d (%dx%d, %d mips).", path, h.Index, texture.Width, texture.Height, texture.MipLevels)
	return TextureHandle{Slot: h.Index, Generation: h.Generation}, nil
}

// Free releases the texture in slot. Freeing an empty slot does nothing. The
// GPU must not be using the texture.
func (tr *TextureRegistry) Free(slot uint32) error {
	if slot >= tr.slots.Cap() {
		return fmt.Errorf("slot %d of %d: %w", slot, tr.slots.Cap(), core.ErrTextureSlotOutOfRange)
	}
	_, h, ok := tr.slots.At(slot)
	if !ok {
		return nil
	}
	texture, err := tr.slots.Remove(h)
	if err != nil {
		return err
	}
	tr.destroy(texture)
	core.LogDebug("Texture slot %d freed.", slot)
	return nil
}

func (tr *TextureRegistry) Get(slot uint32) (*Texture, bool) {
	if slot >= tr.slots.Cap() {
		return nil, false
	}
	texture, _, ok := tr.slots.At(slot)
	return texture, ok
}

// Handle returns the current handle of a populated slot.
func (tr *TextureRegistry) Handle(slot uint32) (TextureHandle, bool) {
	if slot >= tr.slots.Cap() {
		return TextureHandle{}, false
	}
	_, h, ok := tr.slots.At(slot)
	return TextureHandle{Slot: h.Index, Generation: h.Generation}, ok
}

// Valid reports whether h still names the texture it was issued for.
func (tr *TextureRegistry) Valid(h TextureHandle) bool {
	return tr.slots.Valid(containers.Handle{Index: h.Slot, Generation: h.Generation})
}

// Each visits populated slots in slot order.
func (tr *TextureRegistry) Each(fn func(slot uint32, texture *Texture)) {
	tr.slots.EachSlot(func(h containers.Handle, texture *Texture) bool {
		fn(h.Index, texture)
		return true
	})
}

func (tr *TextureRegistry) Sampler() *VulkanSampler {
	return tr.sampler
}

func (tr *TextureRegistry) Capacity() uint32 {
	return tr.slots.Cap()
}

func (tr *TextureRegistry) Len() uint32 {
	return tr.slots.Len()
}

// Destroy frees every texture and the sampler.
func (tr *TextureRegistry) Destroy() {
	for slot := uint32(0); slot < tr.slots.Cap(); slot++ {
		if err := tr.Free(slot); err != nil {
			core.LogWarn("freeing texture slot %d: %s", slot, err)
		}
	}
	tr.backend.DestroySampler(tr.sampler)
	tr.sampler = nil
}

func (tr *TextureRegistry) create(path string) (*Texture, error) {
	if !tr.backend.SupportsLinearBlit(textureFormat) {
		return nil, core.ErrLinearBlitUnsupported
	}
	data, err := tr.images.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("loading texture %s: %w", path, err)
	}
	if data.Width == 0 || data.Height == 0 || len(data.Pixels) == 0 {
		return nil, fmt.Errorf("texture %s has no pixels: %w", path, core.ErrEmptyUpload)
	}
	if want := uint64(data.Width) * uint64(data.Height) * 4; uint64(len(data.Pixels)) != want {
		return nil, fmt.Errorf("texture %s has %d pixel bytes, want %d: %w", path, len(data.Pixels), want, core.ErrEmptyUpload)
	}

	staging, err := tr.allocator.StageBuffer(data.Pixels)
	if err != nil {
		return nil, err
	}
	defer tr.allocator.DestroyBuffer(staging)

	mipLevels := MipLevels(data.Width, data.Height)
	image, err := tr.allocator.CreateImage(ImageConfig{
		Width:     data.Width,
		Height:    data.Height,
		MipLevels: mipLevels,
		Samples:   vk.SampleCount1Bit,
		Format:    textureFormat,
		Tiling:    vk.ImageTilingOptimal,
		Usage: vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) |
			vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) |
			vk.ImageUsageFlags(vk.ImageUsageSampledBit),
	}, deviceLocal)
	if err != nil {
		return nil, err
	}

	if err := tr.allocator.ExecuteSingleUse(func(rec CommandRecorder) {
		rec.PipelineBarrier(ImageBarrier{
			Image:        image,
			OldLayout:    vk.ImageLayoutUndefined,
			NewLayout:    vk.ImageLayoutTransferDstOptimal,
			BaseMipLevel: 0,
			LevelCount:   mipLevels,
			SrcAccess:    0,
			DstAccess:    vk.AccessFlags(vk.AccessTransferWriteBit),
			SrcStage:     vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			DstStage:     vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		})
		rec.CopyBufferToImage(staging, image)
		recordMipChain(rec, image)
	}); err != nil {
		tr.allocator.DestroyImage(image)
		return nil, err
	}

	view, err := tr.backend.CreateImageView(image, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		tr.allocator.DestroyImage(image)
		return nil, err
	}
	return &Texture{
		Path:      path,
		Image:     image,
		View:      view,
		Width:     data.Width,
		Height:    data.Height,
		MipLevels: mipLevels,
	}, nil
}

// recordMipChain fills levels 1..n-1 by successive linear blits and leaves
// every level in ShaderReadOnlyOptimal. Level 0 must already hold the pixels
// in TransferDstOptimal.
func recordMipChain(rec CommandRecorder, image *VulkanImage) {
	transfer := vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	fragment := vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)

	size := Extent{Width: image.Width, Height: image.Height}
	for level := uint32(1); level < image.MipLevels; level++ {
		rec.PipelineBarrier(ImageBarrier{
			Image:        image,
			OldLayout:    vk.ImageLayoutTransferDstOptimal,
			NewLayout:    vk.ImageLayoutTransferSrcOptimal,
			BaseMipLevel: level - 1,
			LevelCount:   1,
			SrcAccess:    vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccess:    vk.AccessFlags(vk.AccessTransferReadBit),
			SrcStage:     transfer,
			DstStage:     transfer,
		})

		next := Extent{Width: max(size.Width/2, 1), Height: max(size.Height/2, 1)}
		rec.BlitImage(image, level-1, size, next)

		rec.PipelineBarrier(ImageBarrier{
			Image:        image,
			OldLayout:    vk.ImageLayoutTransferSrcOptimal,
			NewLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
			BaseMipLevel: level - 1,
			LevelCount:   1,
			SrcAccess:    vk.AccessFlags(vk.AccessTransferReadBit),
			DstAccess:    vk.AccessFlags(vk.AccessShaderReadBit),
			SrcStage:     transfer,
			DstStage:     fragment,
		})
		size = next
	}

	// The last level was only ever written to.
	rec.PipelineBarrier(ImageBarrier{
		Image:        image,
		OldLayout:    vk.ImageLayoutTransferDstOptimal,
		NewLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
		BaseMipLevel: image.MipLevels - 1,
		LevelCount:   1,
		SrcAccess:    vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccess:    vk.AccessFlags(vk.AccessShaderReadBit),
		SrcStage:     transfer,
		DstStage:     fragment,
	})
}

func (tr *TextureRegistry) destroy(texture *Texture) {
	tr.backend.DestroyImageView(texture.View)
	tr.allocator.DestroyImage(texture.Image)
	texture.View = nil
	texture.Image = nil
}
