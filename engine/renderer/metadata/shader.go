package metadata

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/core"
)

/** @brief Magic number opening every compiled shader binary. */
const ShaderMagic uint32 = 0x5a45ffff

/** @brief Magic number opening every SPIR-V module. */
const SpirvMagic uint32 = 0x07230203

// magic + 3 mode bytes + 2 lengths
const shaderHeaderSize = 4 + 3 + 4 + 4

/** @brief Depth test and write behaviour of a pipeline. */
type DepthMode uint8

const (
	DepthTest DepthMode = iota
	DepthWrite
	DepthTestAndWrite
	DepthDisabled
)

func (d DepthMode) Tests() bool {
	return d == DepthTest || d == DepthTestAndWrite
}

func (d DepthMode) Writes() bool {
	return d == DepthWrite || d == DepthTestAndWrite
}

/** @brief Primitive assembly and rasterization of a pipeline. */
type ShapeMode uint8

const (
	ShapeLinedTriangles ShapeMode = iota
	ShapeFilledTriangles
	ShapeLines
)

// Lined reports whether the pipeline rasterizes edges only.
func (s ShapeMode) Lined() bool {
	return s == ShapeLinedTriangles || s == ShapeLines
}

/** @brief Face culling of a pipeline. */
type CullMode uint8

const (
	CullBack CullMode = iota
	CullFront
	CullDisabled
)

/** @brief The fixed function state carried by a shader binary. */
type ShaderModes struct {
	Depth DepthMode
	Shape ShapeMode
	Cull  CullMode
}

func (m ShaderModes) validate() error {
	if m.Depth > DepthDisabled {
		return errors.Wrapf(core.ErrInvalidShader, "unknown depth mode %d", m.Depth)
	}
	if m.Shape > ShapeLines {
		return errors.Wrapf(core.ErrInvalidShader, "unknown shape mode %d", m.Shape)
	}
	if m.Cull > CullDisabled {
		return errors.Wrapf(core.ErrInvalidShader, "unknown cull mode %d", m.Cull)
	}
	return nil
}

// BuiltinShaderModes is the fixed function state packed into each engine
// shader, keyed by source name.
var BuiltinShaderModes = map[string]ShaderModes{
	"phong":     {Depth: DepthTestAndWrite, Shape: ShapeFilledTriangles, Cull: CullBack},
	"shadow":    {Depth: DepthTestAndWrite, Shape: ShapeFilledTriangles, Cull: CullBack},
	"wireframe": {Depth: DepthDisabled, Shape: ShapeLinedTriangles, Cull: CullDisabled},
	"skybox":    {Depth: DepthTest, Shape: ShapeFilledTriangles, Cull: CullDisabled},
}

// SpirvTargetEnv is the glslc target the shaders are compiled for. It must
// not exceed the instance API version.
const SpirvTargetEnv = "vulkan1.1"

/**
 * @brief A decoded shader binary: the pipeline modes plus the SPIR-V of the
 * vertex and fragment stages.
 */
type ShaderBinary struct {
	Modes ShaderModes
	Vert  []byte
	Frag  []byte
}

// ValidateSpirv checks that code looks like a SPIR-V module.
func ValidateSpirv(code []byte) error {
	if len(code) == 0 || len(code)%4 != 0 {
		return errors.Wrapf(core.ErrInvalidShader, "spir-v size %d is not a multiple of 4", len(code))
	}
	if magic := binary.LittleEndian.Uint32(code); magic != SpirvMagic {
		return errors.Wrapf(core.ErrInvalidShader, "bad spir-v magic 0x%08x", magic)
	}
	return nil
}

// EncodeShader packs the modes and both stages into the binary layout read by DecodeShader.
func EncodeShader(modes ShaderModes, vert, frag []byte) ([]byte, error) {
	if err := modes.validate(); err != nil {
		return nil, err
	}
	if err := ValidateSpirv(vert); err != nil {
		return nil, errors.Wrap(err, "vertex stage")
	}
	if err := ValidateSpirv(frag); err != nil {
		return nil, errors.Wrap(err, "fragment stage")
	}

	out := make([]byte, 0, shaderHeaderSize+len(vert)+len(frag))
	out = binary.LittleEndian.AppendUint32(out, ShaderMagic)
	out = append(out, byte(modes.Depth), byte(modes.Shape), byte(modes.Cull))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(vert)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(frag)))
	out = append(out, vert...)
	out = append(out, frag...)
	return out, nil
}

// DecodeShader parses a shader binary. The returned stages are copies of the input.
func DecodeShader(data []byte) (*ShaderBinary, error) {
	if len(data) < shaderHeaderSize {
		return nil, errors.Wrapf(core.ErrInvalidShader, "binary too short (%d bytes)", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != ShaderMagic {
		return nil, errors.Wrapf(core.ErrInvalidShader, "bad magic 0x%08x", magic)
	}
	modes := ShaderModes{
		Depth: DepthMode(data[4]),
		Shape: ShapeMode(data[5]),
		Cull:  CullMode(data[6]),
	}
	if err := modes.validate(); err != nil {
		return nil, err
	}

	vertLen := uint64(binary.LittleEndian.Uint32(data[7:11]))
	fragLen := uint64(binary.LittleEndian.Uint32(data[11:15]))
	if uint64(len(data)-shaderHeaderSize) != vertLen+fragLen {
		return nil, errors.Wrapf(core.ErrInvalidShader,
			"stage lengths %d+%d do not match payload of %d bytes", vertLen, fragLen, len(data)-shaderHeaderSize)
	}

	vert := append([]byte(nil), data[shaderHeaderSize:shaderHeaderSize+vertLen]...)
	frag := append([]byte(nil), data[shaderHeaderSize+vertLen:]...)
	if err := ValidateSpirv(vert); err != nil {
		return nil, errors.Wrap(err, "vertex stage")
	}
	if err := ValidateSpirv(frag); err != nil {
		return nil, errors.Wrap(err, "fragment stage")
	}

	return &ShaderBinary{Modes: modes, Vert: vert, Frag: frag}, nil
}
