package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/math"
	"github.com/spaghettifunk/simplegfx/engine/renderer/components"
	"github.com/spaghettifunk/simplegfx/engine/renderer/metadata"
)

// Window is the part of the platform the renderer needs to size the
// swapchain.
type Window interface {
	FramebufferSize() (uint32, uint32)
	// WaitEvents blocks until the window receives an event.
	WaitEvents()
}

// AssetSource decodes every file the renderer consumes.
type AssetSource interface {
	LoadMesh(path string) (*metadata.MeshData, error)
	LoadImage(path string) (*metadata.ImageData, error)
	LoadBinary(path string) ([]uint32, error)
}

type RendererConfig struct {
	TextureCapacity uint32
	// MSAASamples is a power of two; 0 or 1 disables multisampling.
	MSAASamples    uint32
	VertexShader   string
	FragmentShader string
	ClearColor     [4]float32
	Camera         *components.Camera
}

func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		TextureCapacity: DefaultTextureCapacity,
		MSAASamples:     8,
		VertexShader:    "shaders/vert.spv",
		FragmentShader:  "shaders/frag.spv",
		ClearColor:      [4]float32{0, 0, 0, 1},
		Camera:          components.NewDefaultCamera(),
	}
}

type RendererStats struct {
	Frames    uint64
	Draws     uint64
	Rebuilds  uint64
	Allocator AllocatorStats
}

// Renderer is the render context. Every GPU object the application creates
// is reachable from it.
type Renderer struct {
	backend Backend
	window  Window
	assets  AssetSource
	config  RendererConfig

	allocator  *Allocator
	textures   *TextureRegistry
	models     *ModelStore
	binder     *DescriptorBinder
	sync       *FrameSynchronizer
	swapchain  *SwapchainManager
	commands   *CommandStreamBuilder
	cmdBuffers []*VulkanCommandBuffer

	vertexShader   *VulkanShaderModule
	fragmentShader *VulkanShaderModule
	pipeline       *VulkanPipeline

	framebufferResized bool
	stats              RendererStats
}

func NewRenderer(backend Backend, window Window, assets AssetSource, config RendererConfig) (*Renderer, error) {
	if config.TextureCapacity == 0 {
		config.TextureCapacity = DefaultTextureCapacity
	}
	commands, err := NewCommandStreamBuilder(backend.Limits())
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		backend:  backend,
		window:   window,
		assets:   assets,
		config:   config,
		commands: commands,
	}
	if err := r.initialize(); err != nil {
		r.Shutdown()
		return nil, err
	}
	core.LogInfo("Renderer initialized with %d texture slots.", config.TextureCapacity)
	return r, nil
}

func (r *Renderer) initialize() error {
	r.allocator = NewAllocator(r.backend)

	textures, err := NewTextureRegistry(r.backend, r.allocator, r.assets, r.config.TextureCapacity)
	if err != nil {
		return err
	}
	r.textures = textures
	r.models = NewModelStore(r.allocator, r.assets, r.config.Camera, r.config.TextureCapacity)

	r.swapchain = NewSwapchainManager(r.backend, r.allocator, SwapchainManagerConfig{
		Samples:    vk.SampleCountFlagBits(r.config.MSAASamples),
		ClearColor: r.config.ClearColor,
	})
	width, height := r.waitForFramebuffer()
	if err := r.swapchain.Create(width, height); err != nil {
		return err
	}

	if r.binder, err = NewDescriptorBinder(r.backend, r.config.TextureCapacity); err != nil {
		return err
	}
	if err := r.binder.Rebuild(r.swapchain.ImageCount(), r.textures); err != nil {
		return err
	}

	if r.vertexShader, err = r.loadShader(r.config.VertexShader); err != nil {
		return err
	}
	if r.fragmentShader, err = r.loadShader(r.config.FragmentShader); err != nil {
		return err
	}
	if err := r.createPipeline(); err != nil {
		return err
	}

	if r.sync, err = NewFrameSynchronizer(r.backend, r.swapchain.ImageCount()); err != nil {
		return err
	}
	if r.cmdBuffers, err = r.backend.AllocateCommandBuffers(MaxFramesInFlight); err != nil {
		return err
	}
	return r.sync.AttachCommandBuffers(r.cmdBuffers)
}

func (r *Renderer) loadShader(path string) (*VulkanShaderModule, error) {
	code, err := r.assets.LoadBinary(path)
	if err != nil {
		return nil, fmt.Errorf("loading shader %s: %w", path, err)
	}
	module, err := r.backend.CreateShaderModule(code)
	if err != nil {
		return nil, fmt.Errorf("creating shader module %s: %w", path, err)
	}
	return module, nil
}

func (r *Renderer) createPipeline() error {
	pipeline, err := r.backend.CreateGraphicsPipeline(PipelineConfig{
		Renderpass:           r.swapchain.Renderpass(),
		VertexShader:         r.vertexShader,
		FragmentShader:       r.fragmentShader,
		Stride:               vertexSize,
		Attributes:           vertexAttributes(),
		DescriptorSetLayouts: []*VulkanDescriptorSetLayout{r.binder.Layout()},
		PushConstantRanges:   PushConstantRanges(),
		Samples:              r.swapchain.Samples(),
		TextureCount:         r.config.TextureCapacity,
		CullMode:             vk.CullModeBackBit,
	})
	if err != nil {
		return fmt.Errorf("creating graphics pipeline: %w", err)
	}
	r.pipeline = pipeline
	return nil
}

// waitForFramebuffer blocks while the window is minimised.
func (r *Renderer) waitForFramebuffer() (uint32, uint32) {
	width, height := r.window.FramebufferSize()
	for width == 0 || height == 0 {
		r.window.WaitEvents()
		width, height = r.window.FramebufferSize()
	}
	return width, height
}

// Resized marks the swapchain for rebuild after the next present.
func (r *Renderer) Resized() {
	r.framebufferResized = true
}

// DrawFrame renders every model with its transform evaluated at elapsed
// seconds since start. A frame lost to swapchain invalidation is not an
// error.
func (r *Renderer) DrawFrame(elapsed float64) error {
	if err := r.sync.WaitForSlot(); err != nil {
		return err
	}
	slot := r.sync.Current()

	imageIndex, err := r.backend.AcquireNextImage(r.swapchain.Swapchain(), slot.ImageAvailable)
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		return r.rebuild()
	}
	if err != nil {
		return fmt.Errorf("acquiring swapchain image: %w", err)
	}
	if err := r.sync.ClaimImage(imageIndex); err != nil {
		return err
	}

	extent := r.swapchain.Extent()
	r.models.UpdateModels(elapsed, extent)

	rec, err := r.backend.BeginCommandBuffer(slot.CommandBuffer, false)
	if err != nil {
		return err
	}
	draws := r.commands.Record(rec, FrameTarget{
		Renderpass:    r.swapchain.Renderpass(),
		Framebuffer:   r.swapchain.Framebuffer(imageIndex),
		Extent:        extent,
		Pipeline:      r.pipeline,
		DescriptorSet: r.binder.Set(imageIndex),
	}, r.models, r.textures)
	if err := r.backend.EndCommandBuffer(slot.CommandBuffer); err != nil {
		return err
	}
	// The fence is reset last so a failed recording leaves it signaled.
	if err := r.sync.PrepareSubmit(); err != nil {
		return err
	}
	if err := r.backend.Submit(slot.CommandBuffer, slot.ImageAvailable, slot.RenderFinished, slot.InFlight); err != nil {
		return fmt.Errorf("submitting frame: %w", err)
	}
	r.sync.MarkSubmitted()

	err = r.backend.Present(r.swapchain.Swapchain(), imageIndex, slot.RenderFinished)
	r.sync.Advance()
	r.stats.Frames++
	r.stats.Draws += uint64(draws)

	switch {
	case errors.Is(err, core.ErrSwapchainOutOfDate), errors.Is(err, core.ErrSwapchainSuboptimal), r.framebufferResized:
		return r.rebuild()
	case err != nil:
		return fmt.Errorf("presenting frame: %w", err)
	}
	return nil
}

func (r *Renderer) rebuild() error {
	r.framebufferResized = false
	width, height := r.waitForFramebuffer()
	result, err := r.swapchain.Rebuild(width, height)
	if err != nil {
		return err
	}
	if result.FormatChanged {
		r.backend.DestroyPipeline(r.pipeline)
		r.pipeline = nil
		if err := r.createPipeline(); err != nil {
			return err
		}
	}
	if result.ImageCountChanged {
		if err := r.binder.Rebuild(r.swapchain.ImageCount(), r.textures); err != nil {
			return err
		}
	}
	r.sync.ResetImages(r.swapchain.ImageCount())
	r.stats.Rebuilds++
	return nil
}

// quiesce waits until no submitted frame can still read the resources about
// to change.
func (r *Renderer) quiesce() error {
	return r.backend.WaitIdle()
}

// LoadTexture loads path into the lowest free texture slot.
func (r *Renderer) LoadTexture(path string) (TextureHandle, error) {
	if err := r.quiesce(); err != nil {
		return TextureHandle{}, err
	}
	h, err := r.textures.Load(path)
	if err != nil {
		return TextureHandle{}, err
	}
	r.binder.Refresh(r.textures)
	return h, nil
}

func (r *Renderer) LoadTextureInto(slot uint32, path string) (TextureHandle, error) {
	if err := r.quiesce(); err != nil {
		return TextureHandle{}, err
	}
	h, err := r.textures.LoadInto(slot, path)
	if err != nil {
		return TextureHandle{}, err
	}
	r.binder.Refresh(r.textures)
	return h, nil
}

// FreeTexture empties slot. Models still pointing at it are skipped until
// the slot is filled again.
func (r *Renderer) FreeTexture(slot uint32) error {
	if err := r.quiesce(); err != nil {
		return err
	}
	if _, ok := r.textures.Get(slot); !ok {
		return r.textures.Free(slot)
	}
	if err := r.textures.Free(slot); err != nil {
		return err
	}
	return r.binder.Reallocate(r.textures)
}

// ReloadTexture reads the file behind slot again and replaces the texture in
// place. If the file cannot be loaded the slot keeps its current texture.
func (r *Renderer) ReloadTexture(slot uint32) (TextureHandle, error) {
	texture, ok := r.textures.Get(slot)
	if !ok {
		return TextureHandle{}, fmt.Errorf("reloading slot %d: %w", slot, core.ErrInvalidHandle)
	}
	path := texture.Path
	if err := r.quiesce(); err != nil {
		return TextureHandle{}, err
	}
	h, err := r.textures.Replace(slot, path)
	if err != nil {
		return TextureHandle{}, err
	}
	r.binder.Refresh(r.textures)
	core.LogInfo("Texture %s reloaded into slot %d.", path, slot)
	return h, nil
}

// ReloadTexturePath reloads every slot holding path and returns how many
// were replaced.
func (r *Renderer) ReloadTexturePath(path string) (int, error) {
	return r.ReloadTexturesWhere(func(p string) bool { return p == path })
}

// ReloadTexturesWhere reloads every slot whose source path satisfies match.
func (r *Renderer) ReloadTexturesWhere(match func(path string) bool) (int, error) {
	var slots []uint32
	r.textures.Each(func(slot uint32, texture *Texture) {
		if match(texture.Path) {
			slots = append(slots, slot)
		}
	})
	for _, slot := range slots {
		if _, err := r.ReloadTexture(slot); err != nil {
			return 0, err
		}
	}
	return len(slots), nil
}

func (r *Renderer) LoadModel(path string) (ModelHandle, error) {
	return r.models.Load(path)
}

func (r *Renderer) FreeModel(h ModelHandle) error {
	if err := r.quiesce(); err != nil {
		return err
	}
	return r.models.Free(h)
}

func (r *Renderer) SetModelTransform(h ModelHandle, transform math.Transform) error {
	return r.models.SetTransform(h, transform)
}

func (r *Renderer) SetModelLocation(h ModelHandle, location math.Vec3) error {
	return r.models.SetLocation(h, location)
}

func (r *Renderer) SetModelRotation(h ModelHandle, rotation math.Vec3) error {
	return r.models.SetRotation(h, rotation)
}

func (r *Renderer) SetModelScale(h ModelHandle, scale math.Vec3) error {
	return r.models.SetScale(h, scale)
}

func (r *Renderer) SetModelTexture(h ModelHandle, slot uint32) error {
	return r.models.SetTexture(h, slot)
}

func (r *Renderer) Models() *ModelStore {
	return r.models
}

func (r *Renderer) Textures() *TextureRegistry {
	return r.textures
}

func (r *Renderer) Swapchain() *SwapchainManager {
	return r.swapchain
}

func (r *Renderer) Stats() RendererStats {
	stats := r.stats
	if r.allocator != nil {
		stats.Allocator = r.allocator.Stats()
	}
	return stats
}

// Shutdown waits for the GPU and destroys everything in reverse creation
// order. It tolerates a partially initialized renderer.
func (r *Renderer) Shutdown() {
	if err := r.backend.WaitIdle(); err != nil {
		core.LogError("waiting for device idle on shutdown: %s", err)
	}
	if r.cmdBuffers != nil {
		r.backend.FreeCommandBuffers(r.cmdBuffers)
		r.cmdBuffers = nil
	}
	if r.sync != nil {
		r.sync.Destroy()
		r.sync = nil
	}
	if r.pipeline != nil {
		r.backend.DestroyPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.fragmentShader != nil {
		r.backend.DestroyShaderModule(r.fragmentShader)
		r.fragmentShader = nil
	}
	if r.vertexShader != nil {
		r.backend.DestroyShaderModule(r.vertexShader)
		r.vertexShader = nil
	}
	if r.binder != nil {
		r.binder.Destroy()
		r.binder = nil
	}
	if r.swapchain != nil {
		r.swapchain.Destroy()
		r.swapchain = nil
	}
	if r.models != nil {
		r.models.Destroy()
		r.models = nil
	}
	if r.textures != nil {
		r.textures.Destroy()
		r.textures = nil
	}
	if r.allocator != nil {
		core.LogInfo("Renderer shut down: %s.", r.allocator.Stats())
	}
}
