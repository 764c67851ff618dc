package metadata

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/core"
)

func spirv(words ...uint32) []byte {
	out := binary.LittleEndian.AppendUint32(nil, SpirvMagic)
	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

func TestShaderRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		modes ShaderModes
		vert  []byte
		frag  []byte
	}{
		{"phong", ShaderModes{DepthTestAndWrite, ShapeFilledTriangles, CullBack}, spirv(1, 2, 3), spirv(4)},
		{"wireframe", ShaderModes{DepthDisabled, ShapeLines, CullDisabled}, spirv(), spirv(9, 9)},
		{"shadow", ShaderModes{DepthWrite, ShapeFilledTriangles, CullFront}, spirv(7), spirv(8)},
		{"lined", ShaderModes{DepthTest, ShapeLinedTriangles, CullBack}, spirv(0xdeadbeef), spirv()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeShader(tt.modes, tt.vert, tt.frag)
			if err != nil {
				t.Fatalf("EncodeShader: %v", err)
			}
			if got := binary.LittleEndian.Uint32(data); got != ShaderMagic {
				t.Fatalf("magic = 0x%08x", got)
			}

			bin, err := DecodeShader(data)
			if err != nil {
				t.Fatalf("DecodeShader: %v", err)
			}
			if bin.Modes != tt.modes {
				t.Errorf("modes = %+v, want %+v", bin.Modes, tt.modes)
			}
			if !bytes.Equal(bin.Vert, tt.vert) || !bytes.Equal(bin.Frag, tt.frag) {
				t.Error("stage bytes differ after round trip")
			}
		})
	}
}

func TestDecodeShaderRejects(t *testing.T) {
	valid, err := EncodeShader(ShaderModes{DepthTestAndWrite, ShapeFilledTriangles, CullBack}, spirv(1), spirv(2))
	if err != nil {
		t.Fatal(err)
	}
	mutate := func(fn func([]byte) []byte) []byte {
		return fn(append([]byte(nil), valid...))
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", valid[:shaderHeaderSize-1]},
		{"bad magic", mutate(func(b []byte) []byte { b[0] = 0; return b })},
		{"bad depth mode", mutate(func(b []byte) []byte { b[4] = 4; return b })},
		{"bad shape mode", mutate(func(b []byte) []byte { b[5] = 3; return b })},
		{"bad cull mode", mutate(func(b []byte) []byte { b[6] = 3; return b })},
		{"truncated payload", valid[:len(valid)-1]},
		{"trailing bytes", append(append([]byte(nil), valid...), 0)},
		{"misaligned vertex stage", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[7:11], 7)
			binary.LittleEndian.PutUint32(b[11:15], 9)
			return b
		})},
		{"bad spir-v magic", mutate(func(b []byte) []byte { b[shaderHeaderSize] = 0; return b })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeShader(tt.data); !errors.Is(err, core.ErrInvalidShader) {
				t.Errorf("expected ErrInvalidShader, got %v", err)
			}
		})
	}
}

func TestEncodeShaderRejects(t *testing.T) {
	if _, err := EncodeShader(ShaderModes{Depth: 9}, spirv(), spirv()); !errors.Is(err, core.ErrInvalidShader) {
		t.Errorf("invalid mode: got %v", err)
	}
	if _, err := EncodeShader(ShaderModes{}, []byte{1, 2, 3}, spirv()); !errors.Is(err, core.ErrInvalidShader) {
		t.Errorf("invalid vertex stage: got %v", err)
	}
}

func TestModeHelpers(t *testing.T) {
	tests := []struct {
		depth        DepthMode
		tests, write bool
	}{
		{DepthTest, true, false},
		{DepthWrite, false, true},
		{DepthTestAndWrite, true, true},
		{DepthDisabled, false, false},
	}
	for _, tt := range tests {
		if tt.depth.Tests() != tt.tests || tt.depth.Writes() != tt.write {
			t.Errorf("depth mode %d: tests=%v writes=%v", tt.depth, tt.depth.Tests(), tt.depth.Writes())
		}
	}
	if !ShapeLines.Lined() || !ShapeLinedTriangles.Lined() || ShapeFilledTriangles.Lined() {
		t.Error("ShapeMode.Lined mismatch")
	}
}

func TestBuiltinShaderModes(t *testing.T) {
	tests := []struct {
		name string
		want ShaderModes
	}{
		{"phong", ShaderModes{DepthTestAndWrite, ShapeFilledTriangles, CullBack}},
		{"shadow", ShaderModes{DepthTestAndWrite, ShapeFilledTriangles, CullBack}},
		{"wireframe", ShaderModes{DepthDisabled, ShapeLinedTriangles, CullDisabled}},
		{"skybox", ShaderModes{DepthTest, ShapeFilledTriangles, CullDisabled}},
	}
	if len(BuiltinShaderModes) != len(tests) {
		t.Errorf("%d builtin shaders, want %d", len(BuiltinShaderModes), len(tests))
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BuiltinShaderModes[tt.name]
			if !ok {
				t.Fatal("missing")
			}
			if got != tt.want {
				t.Errorf("modes = %+v, want %+v", got, tt.want)
			}
			// what the mage build packs must decode to the same modes
			data, err := EncodeShader(got, spirv(1), spirv(2))
			if err != nil {
				t.Fatal(err)
			}
			decoded, err := DecodeShader(data)
			if err != nil {
				t.Fatal(err)
			}
			if decoded.Modes != tt.want {
				t.Errorf("decoded modes = %+v, want %+v", decoded.Modes, tt.want)
			}
		})
	}
	if BuiltinShaderModes["wireframe"].Depth.Tests() {
		t.Error("the wireframe overlay depth tests")
	}
}
