package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/** @brief The size of the sampled image array every shader indexes into. */
const MaxBindlessImages = 100

// slotTable is the bookkeeping of the image table. The zero value of T marks
// an empty entry. Every change marks the set of each frame slot stale.
type slotTable[T comparable] struct {
	entries []T
	skybox  T
	// bound to the skybox binding while no skybox is set
	fallbackSkybox T
	dirty          bool
	pending        [FramesInFlight]bool
}

// add stores v in the lowest empty slot, appending when there is none.
func (t *slotTable[T]) add(v T) (int, error) {
	var empty T
	slot := -1
	for i, e := range t.entries {
		if e == empty {
			slot = i
			break
		}
	}
	if slot < 0 {
		if len(t.entries) >= MaxBindlessImages {
			return -1, errors.Wrapf(core.ErrBindlessCapacity, "all %d slots are in use", MaxBindlessImages)
		}
		slot = len(t.entries)
		t.entries = append(t.entries, v)
	} else {
		t.entries[slot] = v
	}
	t.dirty = true
	return slot, nil
}

// remove empties a slot. Slot 0 holds the fallback image and stays.
func (t *slotTable[T]) remove(slot int) bool {
	if slot <= 0 || slot >= len(t.entries) {
		return false
	}
	var empty T
	t.entries[slot] = empty
	t.dirty = true
	return true
}

func (t *slotTable[T]) replace(slot int, v T) error {
	var empty T
	if slot < 0 || slot >= len(t.entries) || t.entries[slot] == empty {
		return errors.Wrapf(core.ErrInvalidHandle, "image slot %d is not in use", slot)
	}
	t.entries[slot] = v
	t.dirty = true
	return nil
}

func (t *slotTable[T]) setSkybox(v T) {
	t.skybox = v
	t.dirty = true
}

// flush returns the views and skybox the set of a frame slot must hold, and
// false when that set is already up to date.
func (t *slotTable[T]) flush(slot int) ([]T, T, bool) {
	if t.dirty {
		for i := range t.pending {
			t.pending[i] = true
		}
		t.dirty = false
	}
	var empty T
	if !t.pending[slot] {
		return nil, empty, false
	}
	t.pending[slot] = false
	skybox := t.skybox
	if skybox == empty {
		skybox = t.fallbackSkybox
	}
	return descriptorImageViews(t.entries), skybox, true
}

// retire empties a slot right away, so no set written from now on holds
// it, and queues destroy behind the frames already recorded.
func retire[T comparable](table *slotTable[T], ring *frameRing, slot int, destroy func()) bool {
	removed := slot < 0 || table.remove(slot)
	ring.enqueue(destroy)
	return removed
}

// descriptorImageViews expands the entries to the full descriptor array,
// pointing every empty or unwritten entry at slot 0.
func descriptorImageViews[T comparable](entries []T) []T {
	out := make([]T, MaxBindlessImages)
	if len(entries) == 0 {
		return out
	}
	var empty T
	fallback := entries[0]
	for i := range out {
		if i < len(entries) && entries[i] != empty {
			out[i] = entries[i]
		} else {
			out[i] = fallback
		}
	}
	return out
}

/**
 * @brief The bindless image table: every sampled image the shaders can
 * reach, the precomputed samplers and the optional skybox. Written once per
 * frame slot whenever the table changed.
 */
type ImageTable struct {
	context  *VulkanContext
	table    slotTable[vk.ImageView]
	samplers [metadata.SamplerCount]vk.Sampler
	sets     [FramesInFlight]vk.DescriptorSet
}

func ImageTableCreate(context *VulkanContext) (*ImageTable, error) {
	it := &ImageTable{context: context}
	for i := range it.samplers {
		sampler, err := SamplerCreate(context, uint32(i))
		if err != nil {
			it.Destroy()
			return nil, err
		}
		it.samplers[i] = sampler
	}
	for i := range it.sets {
		set, err := context.Layout.AllocateSet(context, context.Layout.ImageLayout)
		if err != nil {
			it.Destroy()
			return nil, err
		}
		it.sets[i] = set
	}
	return it, nil
}

func (it *ImageTable) Add(view vk.ImageView) (int, error) {
	slot, err := it.table.add(view)
	if err != nil {
		core.LogError("%s", err)
	}
	return slot, err
}

func (it *ImageTable) Remove(slot int) {
	if !it.table.remove(slot) {
		core.LogWarn("image table: slot %d cannot be removed", slot)
	}
}

// Retire empties slot now and runs destroy once every frame in flight that
// may sample it has completed. A negative slot only defers destroy.
func (it *ImageTable) Retire(slot int, destroy func()) {
	if !retire(&it.table, &it.context.Frames.ring, slot, destroy) {
		core.LogWarn("image table: slot %d cannot be removed", slot)
	}
}

func (it *ImageTable) Replace(slot int, view vk.ImageView) error {
	return it.table.replace(slot, view)
}

func (it *ImageTable) SetSkybox(view vk.ImageView) {
	it.table.setSkybox(view)
}

// SetFallbackSkybox sets the cube view bound while there is no skybox.
func (it *ImageTable) SetFallbackSkybox(view vk.ImageView) {
	it.table.fallbackSkybox = view
	it.table.dirty = true
}

func (it *ImageTable) HasSkybox() bool {
	return it.table.skybox != nil
}

// UpdateIfNeeded rewrites the set of the given slot if the table changed
// since that set was last written. Called at frame start, after the slot's
// fence wait, so the set is not in use by the GPU.
func (it *ImageTable) UpdateIfNeeded(slot int) error {
	if len(it.table.entries) == 0 || it.table.entries[0] == nil {
		return errors.Wrap(core.ErrInvalidHandle, "image table has no fallback image in slot 0")
	}
	views, skybox, stale := it.table.flush(slot)
	if !stale {
		return nil
	}

	imageInfos := make([]vk.DescriptorImageInfo, len(views))
	for i, view := range views {
		imageInfos[i] = vk.DescriptorImageInfo{
			ImageView:   view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}
	}
	samplerInfos := make([]vk.DescriptorImageInfo, len(it.samplers))
	for i, sampler := range it.samplers {
		samplerInfos[i] = vk.DescriptorImageInfo{Sampler: sampler}
	}

	set := it.sets[slot]
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			DescriptorCount: uint32(len(imageInfos)),
			PImageInfo:      imageInfos,
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      1,
			DescriptorType:  vk.DescriptorTypeSampler,
			DescriptorCount: uint32(len(samplerInfos)),
			PImageInfo:      samplerInfos,
		},
	}
	if skybox != nil {
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      2,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			DescriptorCount: 1,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageView:   skybox,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		})
	}
	vk.UpdateDescriptorSets(it.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return nil
}

// Set returns the descriptor set of the given frame slot.
func (it *ImageTable) Set(slot int) vk.DescriptorSet {
	return it.sets[slot]
}

func (it *ImageTable) Destroy() {
	for i, set := range it.sets {
		if set != nil {
			it.context.Layout.FreeSet(it.context, set)
			it.sets[i] = nil
		}
	}
	for i, sampler := range it.samplers {
		if sampler != nil {
			vk.DestroySampler(it.context.Device.LogicalDevice, sampler, it.context.Allocator)
			it.samplers[i] = nil
		}
	}
}
