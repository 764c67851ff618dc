package vulkan

import (
	vk "github.com/goki/vulkan"
	kmath "github.com/spaghettifunk/kiln/engine/math"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/** @brief A sampled image registered in the image table. */
type VulkanTexture struct {
	Image *VulkanImage
	/** @brief Bindless slot of the image. */
	Index int
	/** @brief Sampler the texture is meant to be read with. */
	SamplerIndex uint32
}

// TextureCreate uploads pixel data, generates the mip chain when requested
// and registers the image in the image table.
func TextureCreate(context *VulkanContext, data metadata.ImageData, opts metadata.TextureOptions) (*VulkanTexture, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	format, pixels, err := data.Normalize()
	if err != nil {
		return nil, err
	}

	mips := uint32(1)
	if opts.Mipmaps {
		mips = kmath.MipLevels(data.Width, data.Height)
	}
	image, err := ImageCreate(context, ImageOptions{
		Width:     data.Width,
		Height:    data.Height,
		Format:    VulkanFormat(context, format),
		Usage:     vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		MipLevels: mips,
	})
	if err != nil {
		return nil, err
	}
	if err := uploadLayers(context, image, [][]uint8{pixels}); err != nil {
		image.Destroy(context)
		return nil, err
	}

	slot, err := context.Images.Add(image.View)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}
	return &VulkanTexture{
		Image:        image,
		Index:        slot,
		SamplerIndex: metadata.SamplerIndex(opts.Filter, opts.Wrap, opts.Mipmaps),
	}, nil
}

// uploadLayers copies one buffer per layer into mip 0 and leaves every mip
// in ShaderRead, generating the mip chain if the image has one.
func uploadLayers(context *VulkanContext, image *VulkanImage, layers [][]uint8) error {
	var size int
	for _, l := range layers {
		size += len(l)
	}
	staging, err := HostBufferCreate(context, size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return err
	}
	defer staging.Destroy(context)

	packed := make([]uint8, 0, size)
	for _, l := range layers {
		packed = append(packed, l...)
	}
	staging.Write(packed)

	return context.DoCommands(func(cb *VulkanCommandBuffer) error {
		cb.ChangeLayout(image, LayoutUndefined, LayoutTransferDst, FullRange(image))
		offset := vk.DeviceSize(0)
		for i, l := range layers {
			cb.CopyBufferToImage(staging, offset, image, uint32(i))
			offset += vk.DeviceSize(len(l))
		}
		cb.GenerateMipmaps(image)
		return nil
	})
}

// Release empties the texture's table slot now and destroys the image once
// no frame in flight can sample it.
func (t *VulkanTexture) Release(context *VulkanContext) {
	slot := t.Index
	t.Index = -1
	context.Images.Retire(slot, func() { t.Destroy(context) })
}

func (t *VulkanTexture) Destroy(context *VulkanContext) {
	if t.Index >= 0 {
		context.Images.Remove(t.Index)
		t.Index = -1
	}
	if t.Image != nil {
		t.Image.Destroy(context)
		t.Image = nil
	}
}

/** @brief A six layer image sampled through a cube view. */
type VulkanCubemap struct {
	Image *VulkanImage
}

// CubemapCreate uploads the six faces. The faces must all match the top
// face.
func CubemapCreate(context *VulkanContext, sides metadata.CubemapSides) (*VulkanCubemap, error) {
	if err := sides.Validate(); err != nil {
		return nil, err
	}
	faces := sides.Faces()
	layers := make([][]uint8, len(faces))
	var format metadata.Format
	for i, face := range faces {
		f, pixels, err := face.Normalize()
		if err != nil {
			return nil, err
		}
		format = f
		layers[i] = pixels
	}

	image, err := ImageCreate(context, ImageOptions{
		Width:  sides.Top.Width,
		Height: sides.Top.Height,
		Format: VulkanFormat(context, format),
		Usage:  vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		Cube:   true,
	})
	if err != nil {
		return nil, err
	}
	if err := uploadLayers(context, image, layers); err != nil {
		image.Destroy(context)
		return nil, err
	}
	return &VulkanCubemap{Image: image}, nil
}

func (c *VulkanCubemap) Destroy(context *VulkanContext) {
	if c.Image != nil {
		c.Image.Destroy(context)
		c.Image = nil
	}
}
