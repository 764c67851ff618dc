package renderer

import (
	"reflect"
	"testing"

	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

func TestTargetGroups(t *testing.T) {
	a := metadata.NewHandle(metadata.ResourceTypeShader)
	b := metadata.NewHandle(metadata.ResourceTypeShader)
	x := metadata.NewHandle(metadata.ResourceTypeMaterial)
	y := metadata.NewHandle(metadata.ResourceTypeMaterial)
	z := metadata.NewHandle(metadata.ResourceTypeMaterial)

	tests := []struct {
		name   string
		orders [][2]metadata.Handle
		want   []ShaderGroup
	}{
		{
			name:   "empty",
			orders: nil,
			want:   nil,
		},
		{
			name:   "interleaved",
			orders: [][2]metadata.Handle{{a, x}, {b, y}, {a, x}, {a, z}},
			want: []ShaderGroup{
				{Shader: a, Materials: []MaterialGroup{{Material: x, Orders: []int{0, 2}}, {Material: z, Orders: []int{3}}}},
				{Shader: b, Materials: []MaterialGroup{{Material: y, Orders: []int{1}}}},
			},
		},
		{
			name:   "shared material across shaders",
			orders: [][2]metadata.Handle{{b, x}, {a, x}, {b, x}},
			want: []ShaderGroup{
				{Shader: b, Materials: []MaterialGroup{{Material: x, Orders: []int{0, 2}}}},
				{Shader: a, Materials: []MaterialGroup{{Material: x, Orders: []int{1}}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := NewTarget()
			for _, o := range tt.orders {
				target.Draw(Order{Shader: o[0], Material: o[1]})
			}
			if got := target.Groups(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Groups() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTargetShadowIsolation(t *testing.T) {
	shader := metadata.NewHandle(metadata.ResourceTypeShader)
	material := metadata.NewHandle(metadata.ResourceTypeMaterial)
	target := NewTarget()
	target.Draw(Order{Shader: shader, Material: material, Shadows: true})
	target.Draw(Order{Shader: shader, Material: material, Shadows: false})
	target.Draw(Order{Shader: shader, Material: material, Shadows: true, Wireframe: true})

	if got := target.ShadowOrders(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("ShadowOrders() = %v, want [0 2]", got)
	}

	var colored []int
	for _, g := range target.Groups() {
		for _, m := range g.Materials {
			colored = append(colored, m.Orders...)
		}
	}
	if !reflect.DeepEqual(colored, []int{0, 1, 2}) {
		t.Errorf("color pass draws %v, want every order", colored)
	}
	if got := target.WireframeOrders(); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("WireframeOrders() = %v, want [2]", got)
	}
}

func TestDrawMeshDefaults(t *testing.T) {
	target := NewTarget()
	target.DrawMesh(metadata.NewHandle(metadata.ResourceTypeMesh), metadata.Handle{}, metadata.Handle{}, [16]float32{})
	o := target.Orders()[0]
	if !o.Shadows || o.Wireframe || o.Tint[0] != 1 {
		t.Errorf("DrawMesh order = %+v", o)
	}
}
