package metadata

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/core"
)

func TestWithAlpha(t *testing.T) {
	got := WithAlpha([]uint8{1, 2, 3, 4, 5, 6})
	want := []uint8{1, 2, 3, 255, 4, 5, 6, 255}
	if !bytes.Equal(got, want) {
		t.Errorf("WithAlpha = %v, want %v", got, want)
	}
	if len(WithAlpha(nil)) != 0 {
		t.Error("WithAlpha(nil) should be empty")
	}
}

func TestImageDataNormalize(t *testing.T) {
	tests := []struct {
		name       string
		data       ImageData
		wantFormat Format
		wantLen    int
		wantErr    error
	}{
		{"gray", ImageData{Width: 2, Height: 1, Channels: 1, Pixels: []uint8{1, 2}}, FormatGray, 2, nil},
		{"rg", ImageData{Width: 1, Height: 1, Channels: 2, Pixels: []uint8{1, 2}}, FormatRg, 2, nil},
		{"rgb expands", ImageData{Width: 2, Height: 1, Channels: 3, Pixels: make([]uint8, 6)}, FormatRgba, 8, nil},
		{"srgb rgb expands", ImageData{Width: 1, Height: 1, Channels: 3, Pixels: make([]uint8, 3), Srgb: true}, FormatSrgba, 4, nil},
		{"rgba", ImageData{Width: 1, Height: 1, Channels: 4, Pixels: make([]uint8, 4)}, FormatRgba, 4, nil},
		{"srgba", ImageData{Width: 1, Height: 1, Channels: 4, Pixels: make([]uint8, 4), Srgb: true}, FormatSrgba, 4, nil},
		{"five channels", ImageData{Width: 1, Height: 1, Channels: 5, Pixels: make([]uint8, 5)}, 0, 0, core.ErrUnsupportedFormat},
		{"zero channels", ImageData{Width: 1, Height: 1}, 0, 0, core.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, pixels, err := tt.data.Normalize()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if format != tt.wantFormat || len(pixels) != tt.wantLen {
				t.Errorf("got format %d with %d bytes, want %d with %d", format, len(pixels), tt.wantFormat, tt.wantLen)
			}
		})
	}
}

func face(w, h uint32) ImageData {
	return ImageData{Width: w, Height: h, Channels: 4, Pixels: make([]uint8, w*h*4)}
}

func TestCubemapSidesValidate(t *testing.T) {
	same := CubemapSides{face(2, 2), face(2, 2), face(2, 2), face(2, 2), face(2, 2), face(2, 2)}
	if err := same.Validate(); err != nil {
		t.Fatalf("matching faces rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*CubemapSides)
		wantErr error
	}{
		{"right larger", func(s *CubemapSides) { s.Right = face(4, 4) }, core.ErrCubemapFaceSize},
		{"back wider", func(s *CubemapSides) { s.Back = face(4, 2) }, core.ErrCubemapFaceSize},
		{"top differs from the rest", func(s *CubemapSides) { s.Top = face(1, 1) }, core.ErrCubemapFaceSize},
		{"channel mismatch", func(s *CubemapSides) {
			s.Left = ImageData{Width: 2, Height: 2, Channels: 3, Pixels: make([]uint8, 12)}
		}, core.ErrUnsupportedFormat},
		{"short pixel buffer", func(s *CubemapSides) { s.Front.Pixels = s.Front.Pixels[:3] }, core.ErrInvalidFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sides := same
			tt.mutate(&sides)
			if err := sides.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSamplerIndex(t *testing.T) {
	tests := []struct {
		filter  Filter
		wrap    Wrap
		mipmaps bool
		want    uint32
	}{
		{FilterLinear, WrapRepeat, true, 0},
		{FilterLinear, WrapRepeat, false, 1},
		{FilterLinear, WrapClampBorder, true, 2},
		{FilterLinear, WrapClampBorder, false, 3},
		{FilterLinear, WrapClampEdge, true, 4},
		{FilterLinear, WrapClampEdge, false, 5},
		{FilterNearest, WrapRepeat, true, 6},
		{FilterNearest, WrapRepeat, false, 7},
		{FilterNearest, WrapClampBorder, true, 8},
		{FilterNearest, WrapClampBorder, false, 9},
		{FilterNearest, WrapClampEdge, true, 10},
		{FilterNearest, WrapClampEdge, false, 11},
	}

	for _, tt := range tests {
		got := SamplerIndex(tt.filter, tt.wrap, tt.mipmaps)
		if got != tt.want {
			t.Errorf("SamplerIndex(%d, %d, %v) = %d, want %d", tt.filter, tt.wrap, tt.mipmaps, got, tt.want)
		}
		f, w, m := SamplerConfig(got)
		if f != tt.filter || w != tt.wrap || m != tt.mipmaps {
			t.Errorf("SamplerConfig(%d) = %d, %d, %v", got, f, w, m)
		}
	}
}
