package vulkan

// MaxFramesInFlight is the number of frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

const (
	// MatrixBlockSize is model, view and projection as column-major float32.
	MatrixBlockSize uint32 = 3 * 16 * 4
	// TextureIndexSize is the uint32 texture slot pushed to the fragment stage.
	TextureIndexSize uint32 = 4
	// TextureIndexOffset follows the matrix block in the push constant range.
	TextureIndexOffset uint32 = MatrixBlockSize
	// PushConstantSize is the whole push constant budget of a draw.
	PushConstantSize uint32 = MatrixBlockSize + TextureIndexSize
)

const (
	// Binding of the texture array in descriptor set 0.
	TextureBinding uint32 = 0
	// Specialization constant that sizes the fragment shader texture array.
	TextureCountConstantID uint32 = 0
)

const DefaultTextureCapacity uint32 = 3
