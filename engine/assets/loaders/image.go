package loaders

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	// decoders registered with image.Decode
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/spaghettifunk/simplegfx/engine/renderer/metadata"
)

// ImageLoader decodes any registered format into RGBA8.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	flip := false
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flip = p.FlipY
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	data := ToImageData(img, flip)
	if data.Width == 0 || data.Height == 0 {
		return nil, fmt.Errorf("%s: empty %s image", path, format)
	}

	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeImage,
		DataSize: data.Size(),
		Data:     data,
	}, nil
}

func (il *ImageLoader) Unload(r *metadata.Resource) error {
	r.Data = nil
	return nil
}

// ToImageData converts img to tightly packed RGBA8.
func ToImageData(img image.Image, flipY bool) *metadata.ImageData {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	pixels := rgba.Pix
	if flipY {
		row := 4 * w
		flipped := make([]uint8, len(pixels))
		for y := 0; y < h; y++ {
			copy(flipped[y*row:(y+1)*row], pixels[(h-1-y)*row:(h-y)*row])
		}
		pixels = flipped
	}

	return &metadata.ImageData{
		Width:        uint32(w),
		Height:       uint32(h),
		ChannelCount: 4,
		Pixels:       pixels,
	}
}
