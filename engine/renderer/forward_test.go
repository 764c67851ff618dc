package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	kmath "github.com/spaghettifunk/kiln/engine/math"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

func TestPassTransitions(t *testing.T) {
	tests := []struct {
		from, to PassState
		want     bool
	}{
		{PassIdle, PassShadow, true},
		{PassIdle, PassColor, true},
		{PassIdle, PassWireframe, false},
		{PassShadow, PassColor, true},
		{PassShadow, PassWireframe, false},
		{PassColor, PassWireframe, true},
		{PassColor, PassIdle, true},
		{PassWireframe, PassIdle, true},
		{PassWireframe, PassColor, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := tt.from.canEnter(tt.to); got != tt.want {
				t.Errorf("canEnter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorldUniform(t *testing.T) {
	camera := NewCamera()
	camera.SetPosition(mgl32.Vec3{0, 2, 5})
	mesh := metadata.NewHandle(metadata.ResourceTypeMesh)
	shader := metadata.NewHandle(metadata.ResourceTypeShader)
	material := metadata.NewHandle(metadata.ResourceTypeMaterial)

	tests := []struct {
		name       string
		lights     []metadata.Light
		casters    bool
		wantShadow mgl32.Mat4
		wantPcf    float32
	}{
		{
			name:       "no lights",
			casters:    true,
			wantShadow: mgl32.Ident4(),
			wantPcf:    metadata.PcfNoShadowMap,
		},
		{
			name:       "lit without shadow casters",
			lights:     []metadata.Light{metadata.MainLight(mgl32.Vec3{1, -1, 0}, mgl32.Vec4{1, 1, 1, 1}, 1)},
			wantShadow: kmath.LightViewProjection(mgl32.Vec3{1, -1, 0}),
			wantPcf:    metadata.PcfNoShadowMap,
		},
		{
			name: "main light wins over the first one",
			lights: []metadata.Light{
				metadata.PointLight(mgl32.Vec3{1, 1, 1}, mgl32.Vec4{1, 1, 1, 1}, 1),
				metadata.MainLight(mgl32.Vec3{1, -1, 0}, mgl32.Vec4{1, 1, 1, 1}, 1),
			},
			casters:    true,
			wantShadow: kmath.LightViewProjection(mgl32.Vec3{1, -1, 0}),
			wantPcf:    metadata.PcfX16.Uniform(),
		},
		{
			name: "first light without a main one",
			lights: []metadata.Light{
				metadata.DirectionalLight(mgl32.Vec3{0, -1, 0}, mgl32.Vec4{1, 1, 1, 1}, 1),
			},
			casters:    true,
			wantShadow: kmath.LightViewProjection(mgl32.Vec3{0, -1, 0}),
			wantPcf:    metadata.PcfX16.Uniform(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := NewTarget()
			target.Lights = tt.lights
			if tt.casters {
				target.DrawMesh(mesh, shader, material, mgl32.Ident4())
			}
			world := worldUniform(camera, target, 800, 600, 7, metadata.PcfX16, 1.5)

			if !world.WorldToShadow.ApproxEqualThreshold(tt.wantShadow, 1e-5) {
				t.Errorf("WorldToShadow = %v, want %v", world.WorldToShadow, tt.wantShadow)
			}
			if world.ShadowIndex != 7 || world.Time != 1.5 {
				t.Errorf("ShadowIndex = %d Time = %v", world.ShadowIndex, world.Time)
			}
			if world.SkyboxIndex != 5 {
				t.Errorf("SkyboxIndex = %d, want 5", world.SkyboxIndex)
			}
			if world.ShadowPcf != tt.wantPcf || world.ShadowBias != target.ShadowBias {
				t.Errorf("pcf = %v bias = %v", world.ShadowPcf, world.ShadowBias)
			}
			if world.CameraPosition != camera.Position {
				t.Errorf("CameraPosition = %v", world.CameraPosition)
			}
		})
	}
}

func TestNeedsShadowPass(t *testing.T) {
	mesh := metadata.NewHandle(metadata.ResourceTypeMesh)
	shader := metadata.NewHandle(metadata.ResourceTypeShader)
	material := metadata.NewHandle(metadata.ResourceTypeMaterial)
	sun := metadata.MainLight(mgl32.Vec3{0, -1, 0}, mgl32.Vec4{1, 1, 1, 1}, 1)

	tests := []struct {
		name    string
		lights  []metadata.Light
		shadows []bool
		want    bool
	}{
		{"empty target", nil, nil, false},
		{"casters without lights", nil, []bool{true}, false},
		{"light without orders", []metadata.Light{sun}, nil, false},
		{"light with no casters", []metadata.Light{sun}, []bool{false, false}, false},
		{"light and one caster", []metadata.Light{sun}, []bool{false, true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := NewTarget()
			target.Lights = tt.lights
			for _, s := range tt.shadows {
				target.Draw(Order{Shader: shader, Material: material, Mesh: mesh, Model: mgl32.Ident4(), Shadows: s})
			}
			if got := needsShadowPass(target); got != tt.want {
				t.Errorf("needsShadowPass = %v, want %v", got, tt.want)
			}
		})
	}
}
