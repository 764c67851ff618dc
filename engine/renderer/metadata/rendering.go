package metadata

/** @brief Determines the multisampling level of color passes. */
type Msaa int

const (
	MsaaDisabled Msaa = iota
	MsaaX4
	MsaaX8
	MsaaX16
)

// Samples returns the number of samples per pixel.
func (m Msaa) Samples() uint32 {
	switch m {
	case MsaaX4:
		return 4
	case MsaaX8:
		return 8
	case MsaaX16:
		return 16
	}
	return 1
}

func (m Msaa) Enabled() bool {
	return m != MsaaDisabled
}

/** @brief Percentage closer filtering mode of the shadow map lookup. */
type Pcf int

const (
	PcfDisabled Pcf = iota
	PcfX4
	PcfX16
)

// PcfNoShadowMap tells the shaders the shadow map was not rendered this
// frame and must not be sampled.
const PcfNoShadowMap float32 = -1

// Uniform returns the value the shaders read from the world uniform.
func (p Pcf) Uniform() float32 {
	switch p {
	case PcfX4:
		return 0.0
	case PcfX16:
		return 1.0
	}
	return 2.0
}

/**
 * @brief Per-frame renderer counters. Reset at the start of every frame.
 */
type Stats struct {
	/** @brief Number of indices submitted by draw calls. */
	DrawnIndices uint32
	/** @brief Distinct shaders used. */
	ShadersUsed uint32
	/** @brief Pipeline binds beyond the first per pass. */
	ShaderRebinds uint32
	/** @brief Distinct materials used. */
	MaterialsUsed uint32
	/** @brief Material descriptor binds beyond the first per shader group. */
	MaterialRebinds uint32
	DrawCalls       uint32
	/** @brief CPU time spent on the last frame, in milliseconds. */
	CpuTime float64
	/** @brief Rolling frames per second. */
	Fps float64
}

// Add accumulates the counters of another pass into s.
func (s *Stats) Add(o Stats) {
	s.DrawnIndices += o.DrawnIndices
	s.ShadersUsed += o.ShadersUsed
	s.ShaderRebinds += o.ShaderRebinds
	s.MaterialsUsed += o.MaterialsUsed
	s.MaterialRebinds += o.MaterialRebinds
	s.DrawCalls += o.DrawCalls
}
