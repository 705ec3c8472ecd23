package metadata

// ImageData holds tightly packed RGBA8 pixels, rows top to bottom.
type ImageData struct {
	Width  uint32
	Height uint32
	// Always 4 once decoded.
	ChannelCount uint8
	Pixels       []uint8
}

// Size returns the number of bytes a staging buffer needs for the image.
func (i *ImageData) Size() uint64 {
	return uint64(i.Width) * uint64(i.Height) * uint64(i.ChannelCount)
}

// ImageResourceParams are used when loading an image.
type ImageResourceParams struct {
	// Flip the image on the y axis while decoding.
	FlipY bool
}
