package metadata

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/kiln/engine/core"
)

func TestCube(t *testing.T) {
	cube := Cube()
	if len(cube.Vertices) != 24 || len(cube.Indices) != 36 {
		t.Fatalf("cube has %d vertices and %d indices", len(cube.Vertices), len(cube.Indices))
	}
	if err := cube.Validate(); err != nil {
		t.Fatal(err)
	}
	for i, v := range cube.Vertices {
		if math.Abs(float64(v.Normal.Len())-1) > 1e-5 {
			t.Errorf("vertex %d normal %v is not unit length", i, v.Normal)
		}
		// every face normal points away from the center
		if v.Normal.Dot(v.Position) <= 0 {
			t.Errorf("vertex %d normal %v points inward", i, v.Normal)
		}
	}
}

func TestMeshDataValidate(t *testing.T) {
	tests := []struct {
		name string
		mesh MeshData
		ok   bool
	}{
		{"empty", MeshData{}, false},
		{"no indices", MeshData{Vertices: make([]Vertex, 3)}, false},
		{"out of range", MeshData{Vertices: make([]Vertex, 3), Indices: []uint32{0, 1, 3}}, false},
		{"triangle", MeshData{Vertices: make([]Vertex, 3), Indices: []uint32{0, 1, 2}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if !tt.ok && !errors.Is(err, core.ErrInvalidFile) {
				t.Errorf("expected ErrInvalidFile, got %v", err)
			}
		})
	}
}

func TestAppendRebasesIndices(t *testing.T) {
	quad := Rectangle(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{1, 1, 0}, mgl32.Vec3{0, 1, 0})
	var m MeshData
	m.Append(quad)
	m.Append(quad)
	want := []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6, 4, 6, 7}
	for i := range want {
		if m.Indices[i] != want[i] {
			t.Fatalf("indices = %v, want %v", m.Indices, want)
		}
	}
}

func TestPackLights(t *testing.T) {
	lights := []Light{
		PointLight(mgl32.Vec3{1, 2, 3}, mgl32.Vec4{1, 1, 1, 1}, 2),
		MainLight(mgl32.Vec3{0, -2, 0}, mgl32.Vec4{1, 0.5, 0, 1}, 0.5),
	}
	packed := PackLights(lights)

	if packed[0].Type != LightPoint || packed[0].Color != (mgl32.Vec4{2, 2, 2, 2}) {
		t.Errorf("point light packed as %+v", packed[0])
	}
	if packed[1].Coords != (mgl32.Vec3{0, -1, 0}) {
		t.Errorf("main light direction not normalized: %v", packed[1].Coords)
	}
	if packed[1].Color != (mgl32.Vec4{0.5, 0.25, 0, 0.5}) {
		t.Errorf("main light color %v", packed[1].Color)
	}
	for i := 2; i < MaxLights; i++ {
		if packed[i].Type != LightPoint || packed[i].Color != (mgl32.Vec4{}) {
			t.Errorf("unused light %d = %+v", i, packed[i])
		}
	}

	if got := MainLightIndex(lights); got != 1 {
		t.Errorf("MainLightIndex = %d, want 1", got)
	}
	if got := MainLightIndex(lights[:1]); got != 0 {
		t.Errorf("MainLightIndex without main = %d, want 0", got)
	}
}

func TestMaterialArgs(t *testing.T) {
	m := DefaultMaterialArgs()
	if m.PhongColor() != (mgl32.Vec3{1, 1, 1}) || m.PhongTexture() != 0 {
		t.Errorf("default material %v", m)
	}
	m.SetPhongTexture(42)
	m.SetPhongColor(mgl32.Vec3{0.5, 0.25, 1})
	if m.PhongTexture() != 42 || m.PhongColor() != (mgl32.Vec3{0.5, 0.25, 1}) {
		t.Errorf("material after set %v", m)
	}
}

func TestHandle(t *testing.T) {
	var zero Handle
	if !zero.IsNil() {
		t.Error("zero handle should be nil")
	}
	a := NewHandle(ResourceTypeMesh)
	b := NewHandle(ResourceTypeMesh)
	if a.IsNil() || a == b {
		t.Error("handles must be unique and non-nil")
	}
	if a.Type != ResourceTypeMesh {
		t.Errorf("type = %v", a.Type)
	}
}

func TestPcfUniform(t *testing.T) {
	tests := []struct {
		pcf  Pcf
		want float32
	}{
		{PcfDisabled, 2.0},
		{PcfX4, 0.0},
		{PcfX16, 1.0},
	}
	for _, tt := range tests {
		if got := tt.pcf.Uniform(); got != tt.want {
			t.Errorf("Pcf(%d).Uniform() = %v, want %v", tt.pcf, got, tt.want)
		}
	}
	if MsaaDisabled.Samples() != 1 || MsaaX4.Samples() != 4 || MsaaX8.Samples() != 8 || MsaaX16.Samples() != 16 {
		t.Error("Msaa.Samples mismatch")
	}
}
