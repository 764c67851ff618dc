package vulkan

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

func TestShaderWorldLayout(t *testing.T) {
	var w ShaderWorld
	tests := []struct {
		name   string
		offset uintptr
		want   uintptr
	}{
		{"WorldToView", unsafe.Offsetof(w.WorldToView), 0},
		{"ViewToClip", unsafe.Offsetof(w.ViewToClip), 64},
		{"Lights", unsafe.Offsetof(w.Lights), 128},
		{"CameraPosition", unsafe.Offsetof(w.CameraPosition), 256},
		{"Time", unsafe.Offsetof(w.Time), 268},
		{"WorldToShadow", unsafe.Offsetof(w.WorldToShadow), 272},
		{"AmbientColor", unsafe.Offsetof(w.AmbientColor), 336},
		{"ShadowPcf", unsafe.Offsetof(w.ShadowPcf), 348},
		{"ShadowIndex", unsafe.Offsetof(w.ShadowIndex), 352},
		{"SkyboxIndex", unsafe.Offsetof(w.SkyboxIndex), 356},
		{"ShadowBias", unsafe.Offsetof(w.ShadowBias), 360},
	}
	for _, tt := range tests {
		if tt.offset != tt.want {
			t.Errorf("%s at offset %d, want %d", tt.name, tt.offset, tt.want)
		}
	}
	if size := unsafe.Sizeof(w); size != 368 {
		t.Errorf("ShaderWorld is %d bytes, want 368", size)
	}
}

func TestShaderConstantsLayout(t *testing.T) {
	var c ShaderConstants
	if size := unsafe.Sizeof(c); size != 96 {
		t.Errorf("ShaderConstants is %d bytes, want 96", size)
	}
	if off := unsafe.Offsetof(c.Tint); off != 64 {
		t.Errorf("Tint at %d, want 64", off)
	}
	if off := unsafe.Offsetof(c.SamplerIndex); off != 76 {
		t.Errorf("SamplerIndex at %d, want 76", off)
	}
	if off := unsafe.Offsetof(c.AlbedoIndex); off != 80 {
		t.Errorf("AlbedoIndex at %d, want 80", off)
	}
}

func TestMaterialArgsSize(t *testing.T) {
	if size := unsafe.Sizeof(metadata.MaterialArgs{}); size != metadata.MaterialArgsSize {
		t.Errorf("MaterialArgs is %d bytes, want %d", size, metadata.MaterialArgsSize)
	}
}

func TestVertexAttributesMatchVertex(t *testing.T) {
	var v metadata.Vertex
	want := []uintptr{
		unsafe.Offsetof(v.Position),
		unsafe.Offsetof(v.Normal),
		unsafe.Offsetof(v.UV),
		unsafe.Offsetof(v.Color),
		unsafe.Offsetof(v.Texture),
	}
	attributes := vertexAttributes()
	if len(attributes) != len(want) {
		t.Fatalf("%d attributes for %d fields", len(attributes), len(want))
	}
	for i, a := range attributes {
		if uintptr(a.Offset) != want[i] || a.Location != uint32(i) {
			t.Errorf("attribute %d: location %d offset %d, want offset %d", i, a.Location, a.Offset, want[i])
		}
	}
	if unsafe.Sizeof(v) != metadata.VertexStride {
		t.Errorf("Vertex is %d bytes, stride is %d", unsafe.Sizeof(v), metadata.VertexStride)
	}
}

func TestRasterStateOf(t *testing.T) {
	tests := []struct {
		name  string
		modes metadata.ShaderModes
		want  rasterState
	}{
		{
			name:  "filled",
			modes: metadata.ShaderModes{Depth: metadata.DepthTestAndWrite, Shape: metadata.ShapeFilledTriangles, Cull: metadata.CullBack},
			want: rasterState{
				polygon: vk.PolygonModeFill, topology: vk.PrimitiveTopologyTriangleList,
				cull: vk.CullModeFlags(vk.CullModeBackBit), depthTest: true, depthWrite: true,
			},
		},
		{
			name:  "wireframe triangles",
			modes: metadata.ShaderModes{Depth: metadata.DepthTest, Shape: metadata.ShapeLinedTriangles, Cull: metadata.CullDisabled},
			want: rasterState{
				polygon: vk.PolygonModeLine, topology: vk.PrimitiveTopologyTriangleList,
				cull: vk.CullModeFlags(vk.CullModeNone), depthTest: true,
			},
		},
		{
			name:  "lines",
			modes: metadata.ShaderModes{Depth: metadata.DepthDisabled, Shape: metadata.ShapeLines, Cull: metadata.CullFront},
			want: rasterState{
				polygon: vk.PolygonModeLine, topology: vk.PrimitiveTopologyLineList,
				cull: vk.CullModeFlags(vk.CullModeFrontBit),
			},
		},
		{
			name:  "depth write only",
			modes: metadata.ShaderModes{Depth: metadata.DepthWrite, Shape: metadata.ShapeFilledTriangles},
			want: rasterState{
				polygon: vk.PolygonModeFill, topology: vk.PrimitiveTopologyTriangleList,
				cull: vk.CullModeFlags(vk.CullModeBackBit), depthWrite: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rasterStateOf(tt.modes); got != tt.want {
				t.Errorf("rasterStateOf = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCompatibilityKey(t *testing.T) {
	msaa := PlanAttachments(true, []AttachmentRequest{{Format: vk.FormatR8g8b8a8Unorm}}, metadata.MsaaX4)
	plain := PlanAttachments(true, []AttachmentRequest{{Format: vk.FormatR8g8b8a8Unorm}}, metadata.MsaaDisabled)
	if compatibilityKey(msaa) == compatibilityKey(plain) {
		t.Error("passes with different sample counts share a key")
	}
	again := PlanAttachments(true, []AttachmentRequest{{Format: vk.FormatR8g8b8a8Unorm}}, metadata.MsaaX4)
	if compatibilityKey(msaa) != compatibilityKey(again) {
		t.Error("identical passes have different keys")
	}
}

func TestShaderModuleInfo(t *testing.T) {
	code := make([]byte, 12)
	code[0], code[1], code[2], code[3] = 0x03, 0x02, 0x23, 0x07
	code[8] = 0x2a

	info := shaderModuleInfo(code)
	if info.CodeSize != uint64(len(code)) {
		t.Errorf("CodeSize = %d, want %d bytes", info.CodeSize, len(code))
	}
	if len(info.PCode) != 3 {
		t.Fatalf("len(PCode) = %d, want 3 words", len(info.PCode))
	}
	if info.PCode[0] != metadata.SpirvMagic || info.PCode[2] != 0x2a {
		t.Errorf("PCode = %#x, want the module words", info.PCode)
	}
	if info.SType != vk.StructureTypeShaderModuleCreateInfo {
		t.Errorf("SType = %d", info.SType)
	}
}
