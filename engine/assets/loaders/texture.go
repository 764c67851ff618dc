package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

/**
 * @brief Decodes image files into RGBA pixel data.
 */
type TextureLoader struct {
	/** @brief Mark the decoded pixels as sRGB encoded. */
	Srgb bool
}

func (tl *TextureLoader) Load(path string) (metadata.ImageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return metadata.ImageData{}, errors.Wrapf(core.ErrInvalidFile, "%s: %s", path, err.Error())
	}
	defer file.Close()

	data, err := tl.Decode(file)
	if err != nil {
		return metadata.ImageData{}, errors.Wrapf(err, "failed to decode %s", path)
	}
	return data, nil
}

// Decode reads any format registered with image.Decode.
func (tl *TextureLoader) Decode(r io.Reader) (metadata.ImageData, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return metadata.ImageData{}, errors.Wrap(core.ErrUnsupportedFormat, err.Error())
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return metadata.ImageData{}, errors.Wrapf(core.ErrInvalidFile, "empty %s image", format)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return metadata.ImageData{
		Width:    uint32(bounds.Dx()),
		Height:   uint32(bounds.Dy()),
		Channels: 4,
		Pixels:   rgba.Pix,
		Srgb:     tl.Srgb,
	}, nil
}
