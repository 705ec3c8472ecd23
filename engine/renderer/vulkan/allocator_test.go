package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMemoryType(t *testing.T) {
	types := []MemoryType{
		{PropertyFlags: deviceLocal},
		{PropertyFlags: hostVisible},
		{PropertyFlags: hostVisible | deviceLocal},
	}

	index, err := FindMemoryType(types, 0b111, hostVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), index)

	index, err = FindMemoryType(types, 0b101, hostVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), index, "type 1 is filtered out")

	_, err = FindMemoryType(types, 0b001, hostVisible)
	assert.ErrorIs(t, err, core.ErrNoSuitableMemoryType)
}

func TestAllocatorCreateBufferRejectsEmpty(t *testing.T) {
	alloc := NewAllocator(newFakeBackend())
	_, err := alloc.CreateBuffer(0, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), deviceLocal)
	assert.ErrorIs(t, err, core.ErrEmptyUpload)
}

func TestAllocatorBufferAndMemoryAreFreedTogether(t *testing.T) {
	fake := newFakeBackend()
	alloc := NewAllocator(fake)

	buffer, err := alloc.CreateBuffer(64, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), deviceLocal)
	require.NoError(t, err)
	require.NotNil(t, buffer.Memory)
	assert.Equal(t, uint64(64), alloc.Stats().LiveBytes)

	alloc.DestroyBuffer(buffer)
	assert.Empty(t, fake.leaks())
	assert.Equal(t, AllocatorStats{BufferAllocs: 1, BufferFrees: 1}, alloc.Stats())
}

func TestUploadBufferStagesAndWaits(t *testing.T) {
	fake := newFakeBackend()
	alloc := NewAllocator(fake)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	buffer, err := alloc.UploadBuffer(data, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	require.NoError(t, err)

	assert.Equal(t, data, fake.memory[buffer.Memory])
	assert.NotZero(t, buffer.Usage&vk.BufferUsageFlags(vk.BufferUsageTransferDstBit))

	// Staging buffer gone, destination alive.
	stats := alloc.Stats()
	assert.Equal(t, uint64(2), stats.BufferAllocs)
	assert.Equal(t, uint64(1), stats.BufferFrees)
	assert.Equal(t, map[string]int{"buffer": 1, "memory": 1}, fake.leaks())

	// The copy was submitted with a fence and waited on before returning.
	require.Len(t, fake.submits, 1)
	fence := fake.submits[0].fence
	require.NotNil(t, fence)
	assert.Contains(t, fake.waits, fence)
	assert.Equal(t, []string{"copy buffer"}, fake.recorders[0].ops)
}

func TestExecuteSingleUseDrainsQueueWhenFenceWaitFails(t *testing.T) {
	fake := newFakeBackend()
	alloc := NewAllocator(fake)
	fake.fenceWaitErr = errors.New("device lost")

	_, err := alloc.UploadBuffer([]byte{1, 2, 3, 4}, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	require.Error(t, err)

	// Command buffer and fence are released only after the device is idle.
	idle := indexOf(fake.calls, "wait idle")
	require.GreaterOrEqual(t, idle, 0)
	assert.Greater(t, indexOf(fake.calls, "destroy fence"), idle)
	assert.Empty(t, fake.leaks())
}
