package loaders

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/simplegfx/engine/renderer/metadata"
)

// SPIR-V module magic number in host byte order.
const spirvMagic uint32 = 0x07230203

// BinaryLoader reads SPIR-V modules as 32 bit words.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("%s: size %d is not a multiple of 4", path, len(buf))
	}

	res := bytesToBytecode(buf)
	if res[0] != spirvMagic {
		return nil, fmt.Errorf("%s: not a SPIR-V module", path)
	}

	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeBinary,
		DataSize: uint64(len(buf)),
		Data:     res,
	}, nil
}

func (bl *BinaryLoader) Unload(r *metadata.Resource) error {
	r.Data = nil
	return nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
