package vulkan

import (
	"fmt"

	"github.com/spaghettifunk/simplegfx/engine/core"
)

type FrameState int

const (
	FRAME_STATE_IDLE FrameState = iota
	FRAME_STATE_SUBMITTED
	FRAME_STATE_COMPLETE
)

func (s FrameState) String() string {
	switch s {
	case FRAME_STATE_IDLE:
		return "idle"
	case FRAME_STATE_SUBMITTED:
		return "submitted"
	case FRAME_STATE_COMPLETE:
		return "complete"
	}
	return "unknown"
}

// FrameSlot is the per-frame-in-flight set of synchronization objects.
type FrameSlot struct {
	ImageAvailable *VulkanSemaphore
	RenderFinished *VulkanSemaphore
	InFlight       *VulkanFence
	CommandBuffer  *VulkanCommandBuffer
	State          FrameState
}

// FrameSynchronizer rotates through MaxFramesInFlight slots and tracks which
// slot's fence last claimed each swapchain image.
type FrameSynchronizer struct {
	backend        Backend
	slots          [MaxFramesInFlight]FrameSlot
	current        uint32
	imagesInFlight []*VulkanFence
}

func NewFrameSynchronizer(backend Backend, imageCount uint32) (*FrameSynchronizer, error) {
	fs := &FrameSynchronizer{backend: backend}
	for i := range fs.slots {
		slot := &fs.slots[i]
		var err error
		if slot.ImageAvailable, err = backend.CreateSemaphore(); err != nil {
			fs.Destroy()
			return nil, err
		}
		if slot.RenderFinished, err = backend.CreateSemaphore(); err != nil {
			fs.Destroy()
			return nil, err
		}
		// Signaled so the first wait on each slot returns immediately.
		if slot.InFlight, err = backend.CreateFence(true); err != nil {
			fs.Destroy()
			return nil, err
		}
	}
	fs.ResetImages(imageCount)
	return fs, nil
}

// AttachCommandBuffers assigns one primary command buffer to each slot.
func (fs *FrameSynchronizer) AttachCommandBuffers(buffers []*VulkanCommandBuffer) error {
	if len(buffers) != MaxFramesInFlight {
		return fmt.Errorf("got %d command buffers for %d frame slots: %w", len(buffers), MaxFramesInFlight, core.ErrInvalidConfig)
	}
	for i := range fs.slots {
		fs.slots[i].CommandBuffer = buffers[i]
	}
	return nil
}

func (fs *FrameSynchronizer) CurrentIndex() uint32 {
	return fs.current
}

func (fs *FrameSynchronizer) Current() *FrameSlot {
	return &fs.slots[fs.current]
}

// WaitForSlot blocks until the work last submitted from the current slot has
// finished.
func (fs *FrameSynchronizer) WaitForSlot() error {
	slot := fs.Current()
	if err := fs.backend.WaitForFence(slot.InFlight); err != nil {
		return err
	}
	if slot.State == FRAME_STATE_SUBMITTED {
		slot.State = FRAME_STATE_COMPLETE
	}
	return nil
}

// ClaimImage waits for whichever frame last rendered into imageIndex, then
// records the current slot as its owner.
func (fs *FrameSynchronizer) ClaimImage(imageIndex uint32) error {
	if imageIndex >= uint32(len(fs.imagesInFlight)) {
		return fmt.Errorf("image %d of %d: %w", imageIndex, len(fs.imagesInFlight), core.ErrInvalidHandle)
	}
	slot := fs.Current()
	if owner := fs.imagesInFlight[imageIndex]; owner != nil && owner != slot.InFlight {
		if err := fs.backend.WaitForFence(owner); err != nil {
			return err
		}
	}
	fs.imagesInFlight[imageIndex] = slot.InFlight
	return nil
}

// PrepareSubmit resets the current slot's fence so the next submit can
// signal it.
func (fs *FrameSynchronizer) PrepareSubmit() error {
	return fs.backend.ResetFence(fs.Current().InFlight)
}

func (fs *FrameSynchronizer) MarkSubmitted() {
	fs.Current().State = FRAME_STATE_SUBMITTED
}

// Advance moves to the next slot.
func (fs *FrameSynchronizer) Advance() {
	fs.current = (fs.current + 1) % MaxFramesInFlight
}

// ResetImages forgets image ownership, sizing the table for imageCount
// images. Called after the swapchain is rebuilt.
func (fs *FrameSynchronizer) ResetImages(imageCount uint32) {
	if uint32(cap(fs.imagesInFlight)) >= imageCount {
		fs.imagesInFlight = fs.imagesInFlight[:imageCount]
		clear(fs.imagesInFlight)
		return
	}
	fs.imagesInFlight = make([]*VulkanFence, imageCount)
}

// ImageOwner returns the fence guarding a swapchain image, nil when unclaimed.
func (fs *FrameSynchronizer) ImageOwner(imageIndex uint32) *VulkanFence {
	if imageIndex >= uint32(len(fs.imagesInFlight)) {
		return nil
	}
	return fs.imagesInFlight[imageIndex]
}

func (fs *FrameSynchronizer) Slot(i uint32) *FrameSlot {
	return &fs.slots[i%MaxFramesInFlight]
}

// Destroy releases every semaphore and fence. Command buffers belong to the
// pool and are freed by their owner.
func (fs *FrameSynchronizer) Destroy() {
	for i := range fs.slots {
		slot := &fs.slots[i]
		if slot.ImageAvailable != nil {
			fs.backend.DestroySemaphore(slot.ImageAvailable)
			slot.ImageAvailable = nil
		}
		if slot.RenderFinished != nil {
			fs.backend.DestroySemaphore(slot.RenderFinished)
			slot.RenderFinished = nil
		}
		if slot.InFlight != nil {
			fs.backend.DestroyFence(slot.InFlight)
			slot.InFlight = nil
		}
		slot.CommandBuffer = nil
		slot.State = FRAME_STATE_IDLE
	}
	fs.imagesInFlight = nil
}
