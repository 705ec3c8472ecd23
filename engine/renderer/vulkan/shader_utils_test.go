package vulkan

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureCountSpecialization(t *testing.T) {
	count := uint32(3)
	info := textureCountSpecialization(&count)
	require.Len(t, info, 1)
	require.Len(t, info[0].PMapEntries, 1)

	entry := info[0].PMapEntries[0]
	assert.Equal(t, uint32(TextureCountConstantID), entry.ConstantID)
	assert.Equal(t, uint32(0), entry.Offset)
	assert.Equal(t, uint64(4), entry.Size)
	assert.Equal(t, uint64(4), info[0].DataSize)
	assert.Equal(t, unsafe.Pointer(&count), info[0].PData)
}
