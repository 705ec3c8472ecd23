package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSync(t *testing.T, imageCount uint32) (*FrameSynchronizer, *fakeBackend) {
	t.Helper()
	fake := newFakeBackend()
	fs, err := NewFrameSynchronizer(fake, imageCount)
	require.NoError(t, err)
	buffers, err := fake.AllocateCommandBuffers(MaxFramesInFlight)
	require.NoError(t, err)
	require.NoError(t, fs.AttachCommandBuffers(buffers))
	return fs, fake
}

// submitFrame runs the synchronizer through one frame the way the renderer
// does.
func submitFrame(t *testing.T, fs *FrameSynchronizer, fake *fakeBackend, imageIndex uint32) {
	t.Helper()
	require.NoError(t, fs.WaitForSlot())
	require.NoError(t, fs.ClaimImage(imageIndex))
	require.NoError(t, fs.PrepareSubmit())
	slot := fs.Current()
	require.NoError(t, fake.Submit(slot.CommandBuffer, slot.ImageAvailable, slot.RenderFinished, slot.InFlight))
	fs.MarkSubmitted()
	fs.Advance()
}

func TestFrameSlotsStartSignaled(t *testing.T) {
	fs, _ := newTestSync(t, 3)
	for i := uint32(0); i < MaxFramesInFlight; i++ {
		slot := fs.Slot(i)
		assert.True(t, slot.InFlight.IsSignaled)
		assert.Equal(t, FRAME_STATE_IDLE, slot.State)
		assert.NotNil(t, slot.CommandBuffer)
	}
	assert.NotSame(t, fs.Slot(0).InFlight, fs.Slot(1).InFlight)
}

func TestFrameSlotWaitsBeforeReuse(t *testing.T) {
	fs, fake := newTestSync(t, 3)

	submitFrame(t, fs, fake, 0)
	submitFrame(t, fs, fake, 1)
	assert.Equal(t, FRAME_STATE_SUBMITTED, fs.Slot(0).State)
	assert.False(t, fs.Slot(0).InFlight.IsSignaled)

	// The third frame reuses slot 0 and must wait on its fence first.
	first := fs.Slot(0).InFlight
	fake.waits = nil
	require.NoError(t, fs.WaitForSlot())
	assert.Equal(t, FRAME_STATE_COMPLETE, fs.Current().State)
	assert.Equal(t, []*VulkanFence{first}, fake.waits)
	assert.True(t, first.IsSignaled)
}

func TestFrameNeverHasMoreThanTwoPendingFences(t *testing.T) {
	fs, fake := newTestSync(t, 3)
	for frame := uint32(0); frame < 10; frame++ {
		submitFrame(t, fs, fake, frame%3)
		pending := 0
		for i := uint32(0); i < MaxFramesInFlight; i++ {
			if !fs.Slot(i).InFlight.IsSignaled {
				pending++
			}
		}
		assert.LessOrEqual(t, pending, MaxFramesInFlight)
	}
}

func TestClaimImageWaitsOnPreviousOwner(t *testing.T) {
	fs, fake := newTestSync(t, 3)

	submitFrame(t, fs, fake, 2) // slot 0 renders image 2
	owner := fs.ImageOwner(2)
	require.Same(t, fs.Slot(0).InFlight, owner)

	// Slot 1 gets image 2 again: it has to wait on slot 0's fence.
	require.NoError(t, fs.WaitForSlot())
	fake.waits = nil
	require.NoError(t, fs.ClaimImage(2))
	assert.Equal(t, []*VulkanFence{owner}, fake.waits)
	assert.Same(t, fs.Slot(1).InFlight, fs.ImageOwner(2))
}

func TestClaimImageOwnFenceDoesNotWaitTwice(t *testing.T) {
	fs, fake := newTestSync(t, 3)
	submitFrame(t, fs, fake, 0)
	submitFrame(t, fs, fake, 1)

	require.NoError(t, fs.WaitForSlot()) // slot 0 again
	fake.waits = nil
	require.NoError(t, fs.ClaimImage(0))
	assert.Empty(t, fake.waits)
}

func TestResetImagesForgetsOwners(t *testing.T) {
	fs, fake := newTestSync(t, 2)
	submitFrame(t, fs, fake, 1)
	fs.ResetImages(4)
	for i := uint32(0); i < 4; i++ {
		assert.Nil(t, fs.ImageOwner(i))
	}
	assert.Error(t, fs.ClaimImage(4))
}

func TestFrameSynchronizerDestroy(t *testing.T) {
	fs, fake := newTestSync(t, 3)
	buffers := []*VulkanCommandBuffer{fs.Slot(0).CommandBuffer, fs.Slot(1).CommandBuffer}
	fs.Destroy()
	fake.FreeCommandBuffers(buffers)
	assert.Empty(t, fake.leaks())
}
