package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
)

// FrameTarget is everything a frame's commands render into.
type FrameTarget struct {
	Renderpass    *VulkanRenderpass
	Framebuffer   *VulkanFramebuffer
	Extent        Extent
	Pipeline      *VulkanPipeline
	DescriptorSet *VulkanDescriptorSet
}

// CommandStreamBuilder records the draw commands of one frame. A fresh
// stream is recorded every frame so model and texture changes need no
// invalidation.
type CommandStreamBuilder struct {
	indexScratch [4]byte
	// Models already reported as drawing from an empty texture slot.
	warned map[ModelHandle]struct{}
}

// NewCommandStreamBuilder fails when the device cannot hold the matrix block
// and texture index as push constants.
func NewCommandStreamBuilder(limits DeviceLimits) (*CommandStreamBuilder, error) {
	if limits.MaxPushConstantsSize < PushConstantSize {
		return nil, fmt.Errorf("need %d bytes, device allows %d: %w",
			PushConstantSize, limits.MaxPushConstantsSize, core.ErrPushConstantsTooLarge)
	}
	return &CommandStreamBuilder{warned: make(map[ModelHandle]struct{})}, nil
}

// PushConstantRanges are the ranges the pipeline layout must declare.
func PushConstantRanges() []PushConstantRange {
	return []PushConstantRange{
		{Stage: vk.ShaderStageVertexBit, Offset: 0, Size: MatrixBlockSize},
		{Stage: vk.ShaderStageFragmentBit, Offset: TextureIndexOffset, Size: TextureIndexSize},
	}
}

// Record writes one render pass drawing every model in load order and
// returns the number of draws issued. Models whose texture slot is empty are
// skipped.
func (b *CommandStreamBuilder) Record(rec CommandRecorder, target FrameTarget, models *ModelStore, textures *TextureRegistry) uint32 {
	rec.BeginRenderpass(target.Renderpass, target.Framebuffer, target.Extent)
	rec.SetViewportScissor(target.Extent)

	var draws uint32
	models.Each(func(h ModelHandle, model *Model) bool {
		if _, ok := textures.Get(model.TextureSlot); !ok {
			if _, seen := b.warned[h]; !seen {
				core.LogWarn("Model %s uses empty texture slot %d and will not be drawn.", model.Path, model.TextureSlot)
				b.warned[h] = struct{}{}
			}
			return true
		}
		delete(b.warned, h)

		rec.BindPipeline(target.Pipeline)
		rec.PushConstants(target.Pipeline, vk.ShaderStageVertexBit, 0, model.Matrices.Bytes())
		rec.PushConstants(target.Pipeline, vk.ShaderStageFragmentBit, TextureIndexOffset, textureIndexBytes(&b.indexScratch, model.TextureSlot))
		rec.BindDescriptorSet(target.Pipeline, target.DescriptorSet)
		rec.BindVertexBuffer(model.Vertices)
		rec.BindIndexBuffer(model.Indices)
		rec.DrawIndexed(model.IndexCount)
		draws++
		return true
	})

	rec.EndRenderpass()
	return draws
}
