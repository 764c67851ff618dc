package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
)

// fakeGpu tracks which fences belong to submitted but unfinished frames.
type fakeGpu struct {
	outstanding    int
	maxOutstanding int
	waits          []int
}

type fakeFence struct {
	gpu      *fakeGpu
	id       int
	signaled bool
	queued   bool
	failWait error
}

var errWaitForever = errors.New("waiting on a fence no submission will signal")

func (f *fakeFence) Wait() error {
	if f.failWait != nil {
		return f.failWait
	}
	if !f.signaled && !f.queued {
		return errWaitForever
	}
	f.gpu.waits = append(f.gpu.waits, f.id)
	if !f.signaled {
		f.signaled = true
		f.queued = false
		f.gpu.outstanding--
	}
	return nil
}

func (f *fakeFence) Reset() error {
	f.signaled = false
	return nil
}

func (f *fakeFence) submit() {
	f.queued = true
	f.gpu.outstanding++
	if f.gpu.outstanding > f.gpu.maxOutstanding {
		f.gpu.maxOutstanding = f.gpu.outstanding
	}
}

func newFakeRing() (*frameRing, *fakeGpu, []*fakeFence) {
	gpu := &fakeGpu{}
	ring := &frameRing{current: FramesInFlight - 1}
	fences := make([]*fakeFence, FramesInFlight)
	for i := range fences {
		fences[i] = &fakeFence{gpu: gpu, id: i, signaled: true}
		ring.fences[i] = fences[i]
	}
	return ring, gpu, fences
}

// submitFrame hands the current slot to the fake queue.
func submitFrame(t *testing.T, ring *frameRing, fences []*fakeFence) {
	t.Helper()
	if err := ring.beforeSubmit(); err != nil {
		t.Fatal(err)
	}
	fences[ring.current].submit()
	ring.submitted()
}

func TestFrameRingNeverExceedsFramesInFlight(t *testing.T) {
	ring, gpu, fences := newFakeRing()

	for frame := 0; frame < 10; frame++ {
		if err := ring.next(); err != nil {
			t.Fatalf("frame %d: next returned %v", frame, err)
		}
		if want := frame % FramesInFlight; ring.current != want {
			t.Fatalf("frame %d: current slot = %d, want %d", frame, ring.current, want)
		}
		submitFrame(t, ring, fences)
	}

	if gpu.maxOutstanding > FramesInFlight {
		t.Errorf("max outstanding frames = %d, want at most %d", gpu.maxOutstanding, FramesInFlight)
	}
	for i, id := range gpu.waits {
		if want := i % FramesInFlight; id != want {
			t.Errorf("wait %d was on fence %d, want the reused slot %d", i, id, want)
		}
	}
}

func TestFrameRingDeferredRunsAfterReuse(t *testing.T) {
	ring, _, fences := newFakeRing()

	var ran []string
	if err := ring.next(); err != nil {
		t.Fatal(err)
	}
	ring.enqueue(func() { ran = append(ran, "texture") })
	ring.enqueue(func() { ran = append(ran, "mesh") })
	submitFrame(t, ring, fences)

	// the other slot comes up first, slot 0's queue must not run yet
	if err := ring.next(); err != nil {
		t.Fatal(err)
	}
	if len(ran) != 0 {
		t.Fatalf("deferred work ran %d frames early: %v", FramesInFlight-1, ran)
	}
	submitFrame(t, ring, fences)

	if err := ring.next(); err != nil {
		t.Fatal(err)
	}
	if len(ran) != 2 || ran[0] != "texture" || ran[1] != "mesh" {
		t.Fatalf("deferred work = %v, want [texture mesh] in order", ran)
	}
	if !fences[0].signaled {
		t.Error("deferred work ran before the slot fence was waited on")
	}
}

func TestFrameRingAbortedFrameKeepsFenceSignaled(t *testing.T) {
	ring, _, fences := newFakeRing()

	// a frame that fails between next and submit never resets its fence
	if err := ring.next(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2*FramesInFlight; i++ {
		if err := ring.next(); err != nil {
			t.Fatalf("next after an aborted frame returned %v", err)
		}
	}
	for i, f := range fences {
		if !f.signaled {
			t.Errorf("fence %d left unsignaled", i)
		}
	}
}

func TestFrameRingFailedSubmit(t *testing.T) {
	tests := []struct {
		name string
		wait func(ring *frameRing) error
	}{
		{"shutdown waits on every slot", func(ring *frameRing) error { return ring.waitAll() }},
		{"the slot comes around again", func(ring *frameRing) error {
			for i := 0; i < FramesInFlight; i++ {
				if err := ring.next(); err != nil {
					return err
				}
			}
			return nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring, _, fences := newFakeRing()
			if err := ring.next(); err != nil {
				t.Fatal(err)
			}
			// the fence is reset, then the queue rejects the submission
			if err := ring.beforeSubmit(); err != nil {
				t.Fatal(err)
			}
			ran := false
			ring.enqueue(func() { ran = true })

			if err := tt.wait(ring); err != nil {
				t.Fatalf("wait after a failed submit returned %v", err)
			}
			if !ran {
				t.Error("destructions queued on the failed frame never ran")
			}

			// both paths end back on slot 0, a successful submission there
			// is waited on again
			submitFrame(t, ring, fences)
			if ring.unsubmitted[0] {
				t.Error("slot stays skipped after a successful submission")
			}
			if err := ring.waitAll(); err != nil || !fences[0].signaled {
				t.Errorf("waitAll = %v, fence signaled = %v", err, fences[0].signaled)
			}
		})
	}
}

func TestFrameRingWaitAll(t *testing.T) {
	ring, gpu, fences := newFakeRing()

	count := 0
	for i := 0; i < FramesInFlight; i++ {
		_ = ring.next()
		ring.enqueue(func() { count++ })
		submitFrame(t, ring, fences)
	}
	if err := ring.waitAll(); err != nil {
		t.Fatal(err)
	}
	if gpu.outstanding != 0 {
		t.Errorf("outstanding frames after waitAll = %d", gpu.outstanding)
	}
	if count != FramesInFlight {
		t.Errorf("deferred destructions run = %d, want %d", count, FramesInFlight)
	}
}

func TestFrameRingWaitError(t *testing.T) {
	ring, _, fences := newFakeRing()
	boom := errors.New("device lost")
	fences[0].failWait = boom

	if err := ring.next(); !errors.Is(err, boom) {
		t.Fatalf("next returned %v, want %v", err, boom)
	}
	if ring.current != FramesInFlight-1 {
		t.Errorf("slot advanced after a failed wait")
	}
}
