package systems

import (
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

func TestStoreHandles(t *testing.T) {
	meshes := NewStore[string](metadata.ResourceTypeMesh)
	a := meshes.Add("cube")
	b := meshes.Add("plane")

	if a.Type != metadata.ResourceTypeMesh || a == b {
		t.Fatalf("unexpected handles %v %v", a, b)
	}
	if v, err := meshes.Get(b); err != nil || v != "plane" {
		t.Errorf("Get(b) = (%q, %v)", v, err)
	}

	tests := []struct {
		name   string
		handle metadata.Handle
	}{
		{"nil handle", metadata.Handle{Type: metadata.ResourceTypeMesh}},
		{"wrong type", metadata.Handle{ID: a.ID, Type: metadata.ResourceTypeTexture}},
		{"unknown", metadata.NewHandle(metadata.ResourceTypeMesh)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := meshes.Get(tt.handle); !errors.Is(err, core.ErrInvalidHandle) {
				t.Errorf("Get returned %v, want ErrInvalidHandle", err)
			}
		})
	}
}

func TestStoreRemoveAndOrder(t *testing.T) {
	s := NewStore[int](metadata.ResourceTypeMaterial)
	h1 := s.Add(1)
	h2 := s.Add(2)
	h3 := s.Add(3)

	if v, err := s.Remove(h2); err != nil || v != 2 {
		t.Fatalf("Remove = (%d, %v)", v, err)
	}
	if _, err := s.Remove(h2); !errors.Is(err, core.ErrInvalidHandle) {
		t.Errorf("second Remove returned %v", err)
	}
	if s.Has(h2) || s.Len() != 2 {
		t.Errorf("removed handle still present")
	}

	handles := s.Handles()
	if len(handles) != 2 || handles[0] != h1 || handles[1] != h3 {
		t.Errorf("Handles = %v, want [%v %v]", handles, h1, h3)
	}
	if snap := s.Snapshot(); len(snap) != 2 || snap[h3.ID] != 3 {
		t.Errorf("Snapshot = %v", snap)
	}

	drained := s.Drain()
	if len(drained) != 2 || drained[0] != 3 || drained[1] != 1 {
		t.Errorf("Drain = %v, want newest first [3 1]", drained)
	}
	if s.Len() != 0 || len(s.Handles()) != 0 {
		t.Error("store not empty after Drain")
	}
}

func TestJobSystemRun(t *testing.T) {
	if _, err := NewJobSystem(0); !errors.Is(err, ErrNoWorkers) {
		t.Fatalf("NewJobSystem(0) returned %v", err)
	}
	js, err := NewJobSystem(3)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	var count atomic.Int32
	jobs := make([]Job, 6)
	for i := range jobs {
		jobs[i] = func() error {
			count.Add(1)
			return nil
		}
	}
	if err := js.Run(jobs...); err != nil {
		t.Fatal(err)
	}
	if count.Load() != 6 {
		t.Errorf("%d jobs ran, want 6", count.Load())
	}

	boom := errors.New("boom")
	err = js.Run(
		func() error { return nil },
		func() error { return boom },
	)
	if !errors.Is(err, boom) {
		t.Errorf("Run returned %v, want boom", err)
	}
}
