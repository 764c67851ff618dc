package metadata

/** @brief Texture filtering of a sampler. */
type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

/** @brief Addressing outside the [0, 1] range. */
type Wrap int

const (
	WrapRepeat Wrap = iota
	WrapClampBorder
	WrapClampEdge
)

/** @brief The number of precomputed samplers in the image table. */
const SamplerCount = 12

/** @brief Options used when creating a texture. */
type TextureOptions struct {
	Filter Filter
	Wrap   Wrap
	/** @brief Generate and sample a full mip chain. */
	Mipmaps bool
}

// SamplerIndex maps a sampler configuration to its slot in the image
// table's sampler array. Linear samplers take 0-5, nearest 6-11, ordered by
// wrap mode and then mipmapped before not.
func SamplerIndex(filter Filter, wrap Wrap, mipmaps bool) uint32 {
	index := uint32(wrap) * 2
	if !mipmaps {
		index++
	}
	if filter == FilterNearest {
		index += 6
	}
	return index
}

// SamplerConfig is the inverse of SamplerIndex.
func SamplerConfig(index uint32) (Filter, Wrap, bool) {
	filter := FilterLinear
	if index >= 6 {
		filter = FilterNearest
		index -= 6
	}
	return filter, Wrap(index / 2), index%2 == 0
}
