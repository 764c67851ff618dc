package loaders

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

func spirv(words ...uint32) []byte {
	out := binary.LittleEndian.AppendUint32(nil, metadata.SpirvMagic)
	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

func TestShaderLoader(t *testing.T) {
	dir := t.TempDir()
	modes := metadata.ShaderModes{Depth: metadata.DepthTestAndWrite, Shape: metadata.ShapeFilledTriangles, Cull: metadata.CullBack}
	encoded, err := metadata.EncodeShader(modes, spirv(1, 2), spirv(3))
	if err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "phong.ksh")
	bad := filepath.Join(dir, "broken.ksh")
	if err := os.WriteFile(good, encoded, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, encoded[:10], 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"valid", good, nil},
		{"truncated", bad, core.ErrInvalidShader},
		{"missing", filepath.Join(dir, "nope.ksh"), core.ErrInvalidFile},
	}
	loader := &ShaderLoader{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shader, err := loader.Load(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Load returned %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if shader.Modes != modes || len(shader.Vert) != 12 || len(shader.Frag) != 8 {
				t.Errorf("unexpected binary %+v", shader.Modes)
			}
		})
	}
}

func TestTextureLoaderDecode(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(1, 0, color.NRGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	loader := &TextureLoader{Srgb: true}
	data, err := loader.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if data.Width != 2 || data.Height != 1 || data.Channels != 4 || !data.Srgb {
		t.Fatalf("unexpected header %dx%d %d %v", data.Width, data.Height, data.Channels, data.Srgb)
	}
	want := []uint8{255, 0, 0, 255, 0, 0, 255, 255}
	if !bytes.Equal(data.Pixels, want) {
		t.Errorf("Pixels = %v, want %v", data.Pixels, want)
	}
	if err := data.Validate(); err != nil {
		t.Error(err)
	}

	if _, err := loader.Decode(strings.NewReader("not an image")); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Errorf("Decode(garbage) returned %v", err)
	}
}

const quadObj = `
mtllib quad.mtl
o quad
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
usemtl white
f 1/1 2/2 3/3 4/4
`

const quadMtl = `
newmtl white
Kd 1 1 1
`

func TestModelLoaderDecode(t *testing.T) {
	loader := &ModelLoader{}
	data, err := loader.Decode(strings.NewReader(quadObj), strings.NewReader(quadMtl))
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Vertices) != 4 {
		t.Errorf("%d vertices, want 4 shared between both triangles", len(data.Vertices))
	}
	wantIndices := []uint32{0, 1, 2, 0, 2, 3}
	if len(data.Indices) != len(wantIndices) {
		t.Fatalf("Indices = %v, want %v", data.Indices, wantIndices)
	}
	for i := range wantIndices {
		if data.Indices[i] != wantIndices[i] {
			t.Fatalf("Indices = %v, want %v", data.Indices, wantIndices)
		}
	}
	// no normals in the file, computed from the faces
	if n := data.Vertices[0].Normal; n.Z() < 0.99 {
		t.Errorf("normal = %v, want +z", n)
	}
	// v is flipped
	if uv := data.Vertices[0].UV; uv.Y() != 1 {
		t.Errorf("uv = %v", uv)
	}
}
