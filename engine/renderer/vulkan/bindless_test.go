package vulkan

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/core"
)

func TestSlotTableReusesLowestEmptySlot(t *testing.T) {
	var table slotTable[string]
	for _, v := range []string{"white", "A", "B", "C"} {
		if _, err := table.add(v); err != nil {
			t.Fatal(err)
		}
	}
	table.dirty = false

	if !table.remove(2) {
		t.Fatal("remove(2) failed")
	}
	if !table.dirty {
		t.Error("remove did not mark the table dirty")
	}

	slot, err := table.add("D")
	if err != nil {
		t.Fatal(err)
	}
	if slot != 2 {
		t.Errorf("D went to slot %d, want the removed slot 2", slot)
	}
	if got := table.entries; len(got) != 4 || got[1] != "A" || got[2] != "D" || got[3] != "C" {
		t.Errorf("entries = %v", got)
	}

	slot, _ = table.add("E")
	if slot != 4 {
		t.Errorf("E went to slot %d, want appended slot 4", slot)
	}
}

func TestSlotTableSlotZeroIsPermanent(t *testing.T) {
	var table slotTable[string]
	_, _ = table.add("white")
	table.dirty = false

	if table.remove(0) {
		t.Error("slot 0 was removed")
	}
	if table.entries[0] != "white" {
		t.Errorf("slot 0 = %q", table.entries[0])
	}
	if table.dirty {
		t.Error("a rejected remove marked the table dirty")
	}
	if table.remove(7) {
		t.Error("removing an unknown slot succeeded")
	}
}

func TestSlotTableCapacity(t *testing.T) {
	var table slotTable[string]
	for i := 0; i < MaxBindlessImages; i++ {
		if _, err := table.add(fmt.Sprintf("img%d", i)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	_, err := table.add("one too many")
	if !errors.Is(err, core.ErrBindlessCapacity) {
		t.Fatalf("add past capacity returned %v, want ErrBindlessCapacity", err)
	}
	if !core.IsFatal(err) {
		t.Error("capacity errors must be fatal")
	}

	table.remove(50)
	if slot, err := table.add("reused"); err != nil || slot != 50 {
		t.Errorf("add after remove = (%d, %v), want (50, nil)", slot, err)
	}
}

func TestSlotTableReplace(t *testing.T) {
	var table slotTable[string]
	_, _ = table.add("white")
	slot, _ := table.add("framebuffer")
	table.dirty = false

	if err := table.replace(slot, "framebuffer resized"); err != nil {
		t.Fatal(err)
	}
	if table.entries[slot] != "framebuffer resized" || !table.dirty {
		t.Errorf("replace did not update the entry or mark the table dirty")
	}

	table.remove(slot)
	if err := table.replace(slot, "x"); !errors.Is(err, core.ErrInvalidHandle) {
		t.Errorf("replace of an empty slot returned %v", err)
	}
}

func TestSlotTableSkybox(t *testing.T) {
	var table slotTable[string]
	table.setSkybox("sky")
	if table.skybox != "sky" || !table.dirty {
		t.Error("setSkybox did not store the view or mark the table dirty")
	}
}

func TestDescriptorImageViewsFallback(t *testing.T) {
	views := descriptorImageViews([]string{"white", "A", "", "C"})

	if len(views) != MaxBindlessImages {
		t.Fatalf("len = %d, want %d", len(views), MaxBindlessImages)
	}
	want := map[int]string{0: "white", 1: "A", 2: "white", 3: "C", 4: "white", MaxBindlessImages - 1: "white"}
	for i, w := range want {
		if views[i] != w {
			t.Errorf("views[%d] = %q, want %q", i, views[i], w)
		}
	}
	for i, v := range views {
		if v == "" {
			t.Fatalf("views[%d] is empty", i)
		}
	}
}

func TestSlotTableFlushPerFrameSlot(t *testing.T) {
	var table slotTable[string]
	_, _ = table.add("white")

	for slot := 0; slot < FramesInFlight; slot++ {
		if _, _, stale := table.flush(slot); !stale {
			t.Errorf("slot %d was not rewritten after the first add", slot)
		}
		if _, _, stale := table.flush(slot); stale {
			t.Errorf("slot %d was rewritten twice without a change", slot)
		}
	}
}

func TestSlotTableSkyboxFallback(t *testing.T) {
	var table slotTable[string]
	_, _ = table.add("white")
	table.fallbackSkybox = "white cube"

	_, skybox, _ := table.flush(0)
	if skybox != "white cube" {
		t.Errorf("skybox without a cubemap = %q, want the fallback", skybox)
	}

	table.setSkybox("sky")
	if _, skybox, _ = table.flush(0); skybox != "sky" {
		t.Errorf("skybox = %q, want sky", skybox)
	}

	table.setSkybox("")
	for slot := 0; slot < FramesInFlight; slot++ {
		_, skybox, stale := table.flush(slot)
		if !stale || skybox != "white cube" {
			t.Errorf("slot %d after clearing the skybox = (%q, %v), want the fallback rewritten", slot, skybox, stale)
		}
	}
}

// The destroyed view must never be in the set of a frame still in flight,
// nor in a set bound after the destruction.
func TestRetireKeepsViewAliveForFramesInFlight(t *testing.T) {
	const frames = 4 * FramesInFlight

	tests := []struct {
		name     string
		frame    int
		position string
	}{
		{"while recording", 1, "after flush"},
		{"before the table is flushed", 2, "before flush"},
		{"between frames", 2, "after submit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring, _, fences := newFakeRing()
			var table slotTable[string]
			_, _ = table.add("white")
			slot, _ := table.add("tex")

			var sets [FramesInFlight][]string
			destroyed := false
			holds := func(set []string) bool {
				for _, v := range set {
					if v == "tex" {
						return true
					}
				}
				return false
			}
			destroy := func() {
				destroyed = true
				for s := range sets {
					if !fences[s].signaled && holds(sets[s]) {
						t.Errorf("tex destroyed while slot %d (in flight) still has it bound", s)
					}
				}
			}

			for frame := 0; frame < frames; frame++ {
				if err := ring.next(); err != nil {
					t.Fatal(err)
				}
				if frame == tt.frame && tt.position == "before flush" {
					retire(&table, ring, slot, destroy)
				}
				if views, _, stale := table.flush(ring.current); stale {
					sets[ring.current] = views
				}
				if destroyed && holds(sets[ring.current]) {
					t.Fatalf("frame %d binds a set holding the destroyed view", frame)
				}
				if frame == tt.frame && tt.position == "after flush" {
					retire(&table, ring, slot, destroy)
				}
				submitFrame(t, ring, fences)
				if frame == tt.frame && tt.position == "after submit" {
					retire(&table, ring, slot, destroy)
				}
			}
			if !destroyed {
				t.Errorf("tex was never destroyed after %d frames", frames)
			}
		})
	}
}
