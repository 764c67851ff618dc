package metadata

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/core"
)

/** @brief Pixel formats known to the renderer. */
type Format int

const (
	FormatRgba Format = iota
	FormatSrgba
	FormatSbgra
	FormatBgra
	FormatGray
	FormatRg
	FormatDepth
)

func (f Format) IsDepth() bool {
	return f == FormatDepth
}

// BytesPerPixel of the uploaded data. Depth formats are never uploaded.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatGray:
		return 1
	case FormatRg:
		return 2
	case FormatDepth:
		return 0
	}
	return 4
}

/**
 * @brief Raw pixel data of one image, as produced by the loaders.
 */
type ImageData struct {
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The number of channels per pixel: 1, 2, 3 or 4. */
	Channels uint8
	/** @brief Tightly packed rows, Channels bytes per pixel. */
	Pixels []uint8
	/** @brief Whether 3 or 4 channel data is sRGB encoded. */
	Srgb bool
}

// Validate checks that the pixel buffer matches the stated dimensions.
func (d ImageData) Validate() error {
	if d.Width == 0 || d.Height == 0 {
		return errors.Wrapf(core.ErrInvalidFile, "image has zero size %dx%d", d.Width, d.Height)
	}
	want := int(d.Width) * int(d.Height) * int(d.Channels)
	if len(d.Pixels) != want {
		return errors.Wrapf(core.ErrInvalidFile, "image has %d bytes, want %d", len(d.Pixels), want)
	}
	return nil
}

// WithAlpha expands tightly packed RGB pixels to RGBA with an opaque alpha.
func WithAlpha(rgb []uint8) []uint8 {
	out := make([]uint8, 0, len(rgb)/3*4)
	for i := 0; i+2 < len(rgb); i += 3 {
		out = append(out, rgb[i], rgb[i+1], rgb[i+2], 255)
	}
	return out
}

// Normalize returns the format and upload-ready pixels for the data. Three
// channel data is expanded to four. Counts other than 1-4 are rejected.
func (d ImageData) Normalize() (Format, []uint8, error) {
	switch d.Channels {
	case 1:
		return FormatGray, d.Pixels, nil
	case 2:
		return FormatRg, d.Pixels, nil
	case 3:
		return rgbaFormat(d.Srgb), WithAlpha(d.Pixels), nil
	case 4:
		return rgbaFormat(d.Srgb), d.Pixels, nil
	}
	return 0, nil, errors.Wrapf(core.ErrUnsupportedFormat, "%d channels", d.Channels)
}

func rgbaFormat(srgb bool) Format {
	if srgb {
		return FormatSrgba
	}
	return FormatRgba
}

/**
 * @brief The six faces of a cubemap, in upload order right, left, top, bottom,
 * front, back.
 */
type CubemapSides struct {
	Right  ImageData
	Left   ImageData
	Top    ImageData
	Bottom ImageData
	Front  ImageData
	Back   ImageData
}

// Faces returns the sides in layer order.
func (s CubemapSides) Faces() [6]ImageData {
	return [6]ImageData{s.Right, s.Left, s.Top, s.Bottom, s.Front, s.Back}
}

// Validate checks every face against the top face's dimensions and channels.
func (s CubemapSides) Validate() error {
	ref := s.Top
	for i, face := range s.Faces() {
		if face.Width != ref.Width || face.Height != ref.Height {
			return errors.Wrapf(core.ErrCubemapFaceSize, "face %d is %dx%d, top is %dx%d",
				i, face.Width, face.Height, ref.Width, ref.Height)
		}
		if face.Channels != ref.Channels || face.Srgb != ref.Srgb {
			return errors.Wrapf(core.ErrUnsupportedFormat, "face %d format differs from top", i)
		}
		if err := face.Validate(); err != nil {
			return errors.Wrapf(err, "face %d", i)
		}
	}
	return nil
}
