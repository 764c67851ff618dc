package metadata

import "github.com/go-gl/mathgl/mgl32"

/** @brief How the coordinates of a light are interpreted. */
type LightType int32

const (
	/** @brief The directional light casting the shadow map. */
	LightMain LightType = iota
	LightDirectional
	LightPoint
)

/** @brief The number of lights packed into the world uniform. */
const MaxLights = 4

/**
 * @brief A light. Coords is a direction for Main and Directional lights and
 * a position for Point lights.
 */
type Light struct {
	Type       LightType
	Coords     mgl32.Vec3
	Color      mgl32.Vec4
	Brightness float32
}

/** @brief The std140 layout of one light in the world uniform. */
type ShaderLight struct {
	Coords mgl32.Vec3
	Type   LightType
	Color  mgl32.Vec4
}

func MainLight(direction mgl32.Vec3, color mgl32.Vec4, brightness float32) Light {
	return Light{Type: LightMain, Coords: direction.Normalize(), Color: color, Brightness: brightness}
}

func DirectionalLight(direction mgl32.Vec3, color mgl32.Vec4, brightness float32) Light {
	return Light{Type: LightDirectional, Coords: direction.Normalize(), Color: color, Brightness: brightness}
}

func PointLight(position mgl32.Vec3, color mgl32.Vec4, brightness float32) Light {
	return Light{Type: LightPoint, Coords: position, Color: color, Brightness: brightness}
}

// Shader packs the light with its color premultiplied by brightness.
func (l Light) Shader() ShaderLight {
	return ShaderLight{
		Coords: l.Coords,
		Type:   l.Type,
		Color:  l.Color.Mul(l.Brightness),
	}
}

// PackLights fills the fixed light array. Missing entries are black point
// lights at the origin, extra lights are dropped.
func PackLights(lights []Light) [MaxLights]ShaderLight {
	var out [MaxLights]ShaderLight
	for i := range out {
		if i < len(lights) {
			out[i] = lights[i].Shader()
		} else {
			out[i] = ShaderLight{Type: LightPoint}
		}
	}
	return out
}

// MainLightIndex returns the first light of type Main, else 0.
func MainLightIndex(lights []Light) int {
	for i, l := range lights {
		if l.Type == LightMain {
			return i
		}
	}
	return 0
}
