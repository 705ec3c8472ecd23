package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/math"
	"github.com/spaghettifunk/simplegfx/engine/renderer/metadata"
)

// fakeBackend stands in for a device. Every call is appended to calls, live
// counts outstanding objects per kind, and host memory is simulated so
// staged uploads can be read back.
type fakeBackend struct {
	limits      DeviceLimits
	memoryTypes []MemoryType

	imageCount      int
	surfaceFormat   vk.Format
	blitUnsupported bool

	// Queued results for AcquireNextImage and Present; nil entries succeed.
	acquireErrs []error
	presentErrs []error
	nextImage   uint32

	// Injected failures; nil succeeds.
	endErr       error
	fenceWaitErr error

	calls  []string
	live   map[string]int
	memory map[*VulkanMemory][]byte
	fences map[*VulkanFence]int
	waits  []*VulkanFence

	descriptorWrites [][]TextureDescriptorWrite
	recorders        []*fakeRecorder
	submits          []fakeSubmit
	nextID           int
}

type fakeSubmit struct {
	buffer *VulkanCommandBuffer
	wait   *VulkanSemaphore
	signal *VulkanSemaphore
	fence  *VulkanFence
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		limits: DeviceLimits{
			MaxPushConstantsSize: 256,
			MaxSamplerAnisotropy: 16,
			MaxSamples:           vk.SampleCount1Bit,
			DepthFormat:          vk.FormatD32Sfloat,
		},
		memoryTypes: []MemoryType{
			{PropertyFlags: deviceLocal},
			{PropertyFlags: hostVisible},
		},
		imageCount:    3,
		surfaceFormat: vk.FormatB8g8r8a8Unorm,
		live:          map[string]int{},
		memory:        map[*VulkanMemory][]byte{},
		fences:        map[*VulkanFence]int{},
	}
}

func (f *fakeBackend) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeBackend) created(kind string) {
	f.live[kind]++
	f.record("create %s", kind)
}

func (f *fakeBackend) destroyed(kind string) {
	f.live[kind]--
	f.record("destroy %s", kind)
}

// callsWithPrefix returns the recorded calls starting with prefix.
func (f *fakeBackend) callsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// leaks lists every object kind with a non-zero live count.
func (f *fakeBackend) leaks() map[string]int {
	out := map[string]int{}
	for kind, n := range f.live {
		if n != 0 {
			out[kind] = n
		}
	}
	return out
}

func (f *fakeBackend) fenceID(fence *VulkanFence) int {
	return f.fences[fence]
}

func (f *fakeBackend) Limits() DeviceLimits { return f.limits }

func (f *fakeBackend) MemoryTypes() []MemoryType { return f.memoryTypes }

func (f *fakeBackend) CreateBuffer(size uint64, usage vk.BufferUsageFlags) (*VulkanBuffer, MemoryRequirements, error) {
	f.created("buffer")
	return &VulkanBuffer{Size: size, Usage: usage}, MemoryRequirements{Size: size, Alignment: 4, MemoryTypeBits: 0b11}, nil
}

func (f *fakeBackend) DestroyBuffer(buffer *VulkanBuffer) { f.destroyed("buffer") }

func (f *fakeBackend) CreateImage(config ImageConfig) (*VulkanImage, MemoryRequirements, error) {
	f.created("image")
	image := &VulkanImage{
		Width:     config.Width,
		Height:    config.Height,
		MipLevels: config.MipLevels,
		Format:    config.Format,
		Samples:   config.Samples,
	}
	size := uint64(config.Width) * uint64(config.Height) * 4
	return image, MemoryRequirements{Size: size, Alignment: 4, MemoryTypeBits: 0b11}, nil
}

func (f *fakeBackend) DestroyImage(image *VulkanImage) {
	if image.Swapchain {
		return
	}
	f.destroyed("image")
}

func (f *fakeBackend) AllocateMemory(size uint64, memoryTypeIndex uint32) (*VulkanMemory, error) {
	f.created("memory")
	memory := &VulkanMemory{Size: size}
	f.memory[memory] = make([]byte, size)
	return memory, nil
}

func (f *fakeBackend) FreeMemory(memory *VulkanMemory) {
	delete(f.memory, memory)
	f.destroyed("memory")
}

func (f *fakeBackend) BindBufferMemory(buffer *VulkanBuffer, memory *VulkanMemory) error {
	buffer.Memory = memory
	return nil
}

func (f *fakeBackend) BindImageMemory(image *VulkanImage, memory *VulkanMemory) error {
	image.Memory = memory
	return nil
}

func (f *fakeBackend) WriteMemory(memory *VulkanMemory, data []byte) error {
	f.record("write memory %d", len(data))
	copy(f.memory[memory], data)
	return nil
}

func (f *fakeBackend) CreateImageView(image *VulkanImage, aspect vk.ImageAspectFlags) (*VulkanImageView, error) {
	f.created("view")
	return &VulkanImageView{Image: image}, nil
}

func (f *fakeBackend) DestroyImageView(view *VulkanImageView) { f.destroyed("view") }

func (f *fakeBackend) CreateSampler(config SamplerConfig) (*VulkanSampler, error) {
	f.created("sampler")
	return &VulkanSampler{}, nil
}

func (f *fakeBackend) DestroySampler(sampler *VulkanSampler) { f.destroyed("sampler") }

func (f *fakeBackend) SupportsLinearBlit(format vk.Format) bool { return !f.blitUnsupported }

func (f *fakeBackend) AllocateCommandBuffers(count uint32) ([]*VulkanCommandBuffer, error) {
	buffers := make([]*VulkanCommandBuffer, count)
	for i := range buffers {
		f.created("command buffer")
		buffers[i] = &VulkanCommandBuffer{State: COMMAND_BUFFER_STATE_READY}
	}
	return buffers, nil
}

func (f *fakeBackend) FreeCommandBuffers(buffers []*VulkanCommandBuffer) {
	for _, b := range buffers {
		b.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
		f.destroyed("command buffer")
	}
}

func (f *fakeBackend) BeginCommandBuffer(buffer *VulkanCommandBuffer, singleUse bool) (CommandRecorder, error) {
	f.record("begin command buffer")
	buffer.State = COMMAND_BUFFER_STATE_RECORDING
	rec := &fakeRecorder{backend: f, buffer: buffer}
	f.recorders = append(f.recorders, rec)
	return rec, nil
}

func (f *fakeBackend) EndCommandBuffer(buffer *VulkanCommandBuffer) error {
	f.record("end command buffer")
	if f.endErr != nil {
		return f.endErr
	}
	buffer.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (f *fakeBackend) Submit(buffer *VulkanCommandBuffer, wait *VulkanSemaphore, signal *VulkanSemaphore, fence *VulkanFence) error {
	if fence != nil {
		if fence.IsSignaled {
			return fmt.Errorf("submit with signaled fence %d", f.fenceID(fence))
		}
		f.record("submit fence %d", f.fenceID(fence))
	} else {
		f.record("submit")
	}
	buffer.State = COMMAND_BUFFER_STATE_SUBMITTED
	f.submits = append(f.submits, fakeSubmit{buffer: buffer, wait: wait, signal: signal, fence: fence})
	return nil
}

func (f *fakeBackend) WaitIdle() error {
	f.record("wait idle")
	// Everything submitted has completed.
	for fence := range f.fences {
		fence.IsSignaled = true
	}
	return nil
}

func (f *fakeBackend) CreateFence(signaled bool) (*VulkanFence, error) {
	f.created("fence")
	f.nextID++
	fence := &VulkanFence{IsSignaled: signaled}
	f.fences[fence] = f.nextID
	return fence, nil
}

func (f *fakeBackend) WaitForFence(fence *VulkanFence) error {
	f.record("wait fence %d", f.fenceID(fence))
	if f.fenceWaitErr != nil {
		return f.fenceWaitErr
	}
	f.waits = append(f.waits, fence)
	fence.IsSignaled = true
	return nil
}

func (f *fakeBackend) ResetFence(fence *VulkanFence) error {
	f.record("reset fence %d", f.fenceID(fence))
	fence.IsSignaled = false
	return nil
}

func (f *fakeBackend) DestroyFence(fence *VulkanFence) {
	delete(f.fences, fence)
	f.destroyed("fence")
}

func (f *fakeBackend) CreateSemaphore() (*VulkanSemaphore, error) {
	f.created("semaphore")
	return &VulkanSemaphore{}, nil
}

func (f *fakeBackend) DestroySemaphore(semaphore *VulkanSemaphore) { f.destroyed("semaphore") }

func (f *fakeBackend) CreateDescriptorSetLayout(binding uint32, count uint32, stage vk.ShaderStageFlagBits) (*VulkanDescriptorSetLayout, error) {
	f.created("descriptor set layout")
	return &VulkanDescriptorSetLayout{Count: count}, nil
}

func (f *fakeBackend) DestroyDescriptorSetLayout(layout *VulkanDescriptorSetLayout) {
	f.destroyed("descriptor set layout")
}

func (f *fakeBackend) CreateDescriptorPool(descriptorCount uint32, maxSets uint32) (*VulkanDescriptorPool, error) {
	f.created("descriptor pool")
	return &VulkanDescriptorPool{MaxSets: maxSets}, nil
}

func (f *fakeBackend) DestroyDescriptorPool(pool *VulkanDescriptorPool) { f.destroyed("descriptor pool") }

func (f *fakeBackend) AllocateDescriptorSets(pool *VulkanDescriptorPool, layout *VulkanDescriptorSetLayout, count uint32) ([]*VulkanDescriptorSet, error) {
	if count > pool.MaxSets {
		return nil, fmt.Errorf("pool holds %d sets, asked for %d", pool.MaxSets, count)
	}
	f.record("allocate descriptor sets %d", count)
	sets := make([]*VulkanDescriptorSet, count)
	for i := range sets {
		sets[i] = &VulkanDescriptorSet{Pool: pool}
	}
	return sets, nil
}

func (f *fakeBackend) WriteTextureDescriptors(writes []TextureDescriptorWrite) {
	f.record("write descriptors %d", len(writes))
	f.descriptorWrites = append(f.descriptorWrites, append([]TextureDescriptorWrite(nil), writes...))
}

func (f *fakeBackend) CreateSwapchain(width uint32, height uint32, old *VulkanSwapchain) (*VulkanSwapchain, error) {
	f.created("swapchain")
	swapchain := &VulkanSwapchain{
		ImageFormat: vk.SurfaceFormat{Format: f.surfaceFormat, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		Extent:      Extent{Width: width, Height: height},
	}
	for i := 0; i < f.imageCount; i++ {
		swapchain.Images = append(swapchain.Images, &VulkanImage{
			Width:     width,
			Height:    height,
			MipLevels: 1,
			Format:    f.surfaceFormat,
			Swapchain: true,
		})
	}
	return swapchain, nil
}

func (f *fakeBackend) DestroySwapchain(swapchain *VulkanSwapchain) { f.destroyed("swapchain") }

func (f *fakeBackend) AcquireNextImage(swapchain *VulkanSwapchain, signal *VulkanSemaphore) (uint32, error) {
	f.record("acquire")
	if len(f.acquireErrs) > 0 {
		err := f.acquireErrs[0]
		f.acquireErrs = f.acquireErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	index := f.nextImage % uint32(len(swapchain.Images))
	f.nextImage++
	return index, nil
}

func (f *fakeBackend) Present(swapchain *VulkanSwapchain, imageIndex uint32, wait *VulkanSemaphore) error {
	f.record("present %d", imageIndex)
	if len(f.presentErrs) > 0 {
		err := f.presentErrs[0]
		f.presentErrs = f.presentErrs[1:]
		return err
	}
	return nil
}

func (f *fakeBackend) CreateRenderpass(config RenderpassConfig) (*VulkanRenderpass, error) {
	f.created("renderpass")
	return &VulkanRenderpass{
		ColorFormat: config.ColorFormat,
		DepthFormat: config.DepthFormat,
		Samples:     config.Samples,
		ClearColor:  config.ClearColor,
		Depth:       1,
	}, nil
}

func (f *fakeBackend) DestroyRenderpass(renderpass *VulkanRenderpass) { f.destroyed("renderpass") }

func (f *fakeBackend) CreateFramebuffer(renderpass *VulkanRenderpass, attachments []*VulkanImageView, extent Extent) (*VulkanFramebuffer, error) {
	f.created("framebuffer")
	return &VulkanFramebuffer{Renderpass: renderpass, Attachments: attachments, Extent: extent}, nil
}

func (f *fakeBackend) DestroyFramebuffer(framebuffer *VulkanFramebuffer) { f.destroyed("framebuffer") }

func (f *fakeBackend) CreateShaderModule(code []uint32) (*VulkanShaderModule, error) {
	if len(code) == 0 {
		return nil, core.ErrEmptyUpload
	}
	f.created("shader")
	return &VulkanShaderModule{}, nil
}

func (f *fakeBackend) DestroyShaderModule(module *VulkanShaderModule) { f.destroyed("shader") }

func (f *fakeBackend) CreateGraphicsPipeline(config PipelineConfig) (*VulkanPipeline, error) {
	f.created("pipeline")
	return &VulkanPipeline{}, nil
}

func (f *fakeBackend) DestroyPipeline(pipeline *VulkanPipeline) { f.destroyed("pipeline") }

var _ Backend = (*fakeBackend)(nil)

type fakePush struct {
	stage  vk.ShaderStageFlagBits
	offset uint32
	data   []byte
}

type fakeBlit struct {
	srcLevel uint32
	src      Extent
	dst      Extent
}

// fakeRecorder keeps the commands of one command buffer.
type fakeRecorder struct {
	backend  *fakeBackend
	buffer   *VulkanCommandBuffer
	ops      []string
	barriers []ImageBarrier
	blits    []fakeBlit
	pushes   []fakePush
	sets     []*VulkanDescriptorSet
	draws    []uint32
}

func (r *fakeRecorder) CopyBuffer(src *VulkanBuffer, dst *VulkanBuffer, size uint64) {
	r.ops = append(r.ops, "copy buffer")
	copy(r.backend.memory[dst.Memory], r.backend.memory[src.Memory][:size])
}

func (r *fakeRecorder) CopyBufferToImage(src *VulkanBuffer, dst *VulkanImage) {
	r.ops = append(r.ops, "copy buffer to image")
}

func (r *fakeRecorder) PipelineBarrier(barrier ImageBarrier) {
	r.ops = append(r.ops, "barrier")
	r.barriers = append(r.barriers, barrier)
}

func (r *fakeRecorder) BlitImage(image *VulkanImage, srcLevel uint32, src Extent, dst Extent) {
	r.ops = append(r.ops, "blit")
	r.blits = append(r.blits, fakeBlit{srcLevel: srcLevel, src: src, dst: dst})
}

func (r *fakeRecorder) BeginRenderpass(renderpass *VulkanRenderpass, framebuffer *VulkanFramebuffer, extent Extent) {
	r.ops = append(r.ops, "begin renderpass")
}

func (r *fakeRecorder) EndRenderpass() { r.ops = append(r.ops, "end renderpass") }

func (r *fakeRecorder) SetViewportScissor(extent Extent) { r.ops = append(r.ops, "viewport") }

func (r *fakeRecorder) BindPipeline(pipeline *VulkanPipeline) { r.ops = append(r.ops, "bind pipeline") }

func (r *fakeRecorder) PushConstants(pipeline *VulkanPipeline, stage vk.ShaderStageFlagBits, offset uint32, data []byte) {
	r.ops = append(r.ops, "push constants")
	r.pushes = append(r.pushes, fakePush{stage: stage, offset: offset, data: append([]byte(nil), data...)})
}

func (r *fakeRecorder) BindVertexBuffer(buffer *VulkanBuffer) { r.ops = append(r.ops, "bind vertex buffer") }

func (r *fakeRecorder) BindIndexBuffer(buffer *VulkanBuffer) { r.ops = append(r.ops, "bind index buffer") }

func (r *fakeRecorder) BindDescriptorSet(pipeline *VulkanPipeline, set *VulkanDescriptorSet) {
	r.ops = append(r.ops, "bind descriptor set")
	r.sets = append(r.sets, set)
}

func (r *fakeRecorder) DrawIndexed(indexCount uint32) {
	r.ops = append(r.ops, "draw indexed")
	r.draws = append(r.draws, indexCount)
}

// fakeAssets serves meshes and images from memory.
type fakeAssets struct {
	meshes  map[string]*metadata.MeshData
	images  map[string]*metadata.ImageData
	shaders map[string][]uint32
	loads   map[string]int
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{
		meshes: map[string]*metadata.MeshData{"quad.obj": quadMesh()},
		images: map[string]*metadata.ImageData{
			"a.png": solidImage(4, 4),
			"b.png": solidImage(8, 2),
			"c.png": solidImage(1, 1),
			"d.png": solidImage(2, 2),
		},
		shaders: map[string][]uint32{
			"vert.spv": {0x07230203},
			"frag.spv": {0x07230203},
		},
		loads: map[string]int{},
	}
}

func (a *fakeAssets) LoadMesh(path string) (*metadata.MeshData, error) {
	a.loads[path]++
	mesh, ok := a.meshes[path]
	if !ok {
		return nil, fmt.Errorf("%s: not found", path)
	}
	return mesh, nil
}

func (a *fakeAssets) LoadImage(path string) (*metadata.ImageData, error) {
	a.loads[path]++
	image, ok := a.images[path]
	if !ok {
		return nil, fmt.Errorf("%s: not found", path)
	}
	return image, nil
}

func (a *fakeAssets) LoadBinary(path string) ([]uint32, error) {
	code, ok := a.shaders[path]
	if !ok {
		return nil, fmt.Errorf("%s: not found", path)
	}
	return code, nil
}

func solidImage(width, height uint32) *metadata.ImageData {
	return &metadata.ImageData{
		Width:        width,
		Height:       height,
		ChannelCount: 4,
		Pixels:       make([]uint8, width*height*4),
	}
}

// quadMesh is two triangles sharing an edge: six corners, four distinct
// vertices.
func quadMesh() *metadata.MeshData {
	return &metadata.MeshData{
		Positions: []math.Vec3{
			math.NewVec3(0, 0, 0),
			math.NewVec3(1, 0, 0),
			math.NewVec3(1, 1, 0),
			math.NewVec3(0, 1, 0),
		},
		TexCoords: []math.Vec2{
			math.NewVec2(0, 0),
			math.NewVec2(1, 0),
			math.NewVec2(1, 1),
			math.NewVec2(0, 1),
		},
		Indices: []metadata.MeshIndex{
			{Position: 0, TexCoord: 0}, {Position: 1, TexCoord: 1}, {Position: 2, TexCoord: 2},
			{Position: 2, TexCoord: 2}, {Position: 3, TexCoord: 3}, {Position: 0, TexCoord: 0},
		},
	}
}

// fakeWindow reports a fixed size; sizes queued in pending are returned
// first, one per call.
type fakeWindow struct {
	width, height uint32
	pending       [][2]uint32
	waits         int
}

func (w *fakeWindow) FramebufferSize() (uint32, uint32) {
	if len(w.pending) > 0 {
		size := w.pending[0]
		w.pending = w.pending[1:]
		return size[0], size[1]
	}
	return w.width, w.height
}

func (w *fakeWindow) WaitEvents() { w.waits++ }
