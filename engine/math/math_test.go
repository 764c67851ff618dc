package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Error("int clamp")
	}
	if Clamp(0.5, 1.0, 2.0) != 1.0 {
		t.Error("float clamp")
	}
}

func TestMipLevels(t *testing.T) {
	tests := []struct {
		w, h uint32
		want uint32
	}{
		{1, 1, 1},
		{2, 1, 2},
		{256, 256, 9},
		{512, 300, 10},
		{300, 512, 10},
		{1000, 10, 10},
		{1024, 1024, 11},
		{0, 0, 1},
	}
	for _, tt := range tests {
		if got := MipLevels(tt.w, tt.h); got != tt.want {
			t.Errorf("MipLevels(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestVulkanClipDepthRange(t *testing.T) {
	clip := VulkanClip()
	near := clip.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	far := clip.Mul4x1(mgl32.Vec4{0, 0, 1, 1})
	if near.Z() != 0 || far.Z() != 1 {
		t.Errorf("depth range mapped to [%v, %v]", near.Z(), far.Z())
	}
}

func TestLightViewProjection(t *testing.T) {
	tests := []struct {
		name string
		dir  mgl32.Vec3
	}{
		{"diagonal", mgl32.Vec3{-1, -1, -1}},
		{"straight down", mgl32.Vec3{0, -1, 0}},
		{"straight up", mgl32.Vec3{0, 1, 0}},
		{"unnormalized", mgl32.Vec3{0, -3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := LightViewProjection(tt.dir)
			// the origin sits in the middle of the shadow volume
			o := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
			if !mgl32.FloatEqualThreshold(o.X(), 0, 1e-4) || !mgl32.FloatEqualThreshold(o.Y(), 0, 1e-4) {
				t.Errorf("origin projects to %v", o)
			}
			if !mgl32.FloatEqualThreshold(o.Z(), 0.5, 1e-4) {
				t.Errorf("origin depth %v, want 0.5", o.Z())
			}

			// a point towards the light is closer than one away from it
			dir := tt.dir.Normalize()
			toward := m.Mul4x1(dir.Mul(-10).Vec4(1))
			away := m.Mul4x1(dir.Mul(10).Vec4(1))
			if toward.Z() >= away.Z() {
				t.Errorf("depth toward light %v >= away %v", toward.Z(), away.Z())
			}
		})
	}
}

func TestTransform(t *testing.T) {
	parent := TransformFromPosition(mgl32.Vec3{1, 0, 0})
	child := TransformCreate()
	child.Parent = parent
	child.SetPosition(mgl32.Vec3{0, 2, 0})
	child.SetScale(mgl32.Vec3{2, 2, 2})

	p := child.GetWorld().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	want := mgl32.Vec4{3, 2, 0, 1}
	if !p.ApproxEqual(want) {
		t.Errorf("world point %v, want %v", p, want)
	}

	child.Translate(mgl32.Vec3{0, 1, 0})
	p = child.GetLocal().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !p.ApproxEqual(mgl32.Vec4{0, 3, 0, 1}) {
		t.Errorf("cached local matrix not refreshed: %v", p)
	}

	var none *Transform
	if none.GetWorld() != mgl32.Ident4() {
		t.Error("nil transform should be identity")
	}
}
