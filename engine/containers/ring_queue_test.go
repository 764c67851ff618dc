package containers

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestRingQueueEnqueueDequeue(t *testing.T) {
	rq := NewRingQueue[int](3)

	if _, err := rq.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := rq.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if v, _ := rq.Peek(); v != 1 {
		t.Errorf("Peek() = %d, want 1", v)
	}

	for want := 1; want <= 3; want++ {
		got, err := rq.Dequeue()
		if err != nil || got != want {
			t.Errorf("Dequeue() = %d, %v; want %d", got, err, want)
		}
	}
	if !rq.IsEmpty() {
		t.Error("queue should be empty")
	}
}

func TestRingQueuePush(t *testing.T) {
	tests := []struct {
		name        string
		size        int
		pushes      []int
		wantOrder   []int
		wantDropped []int
	}{
		{"under capacity", 4, []int{1, 2}, []int{1, 2}, nil},
		{"exact capacity", 2, []int{1, 2}, []int{1, 2}, nil},
		{"wraps around", 3, []int{1, 2, 3, 4, 5}, []int{3, 4, 5}, []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rq := NewRingQueue[int](tt.size)
			var dropped []int
			for _, v := range tt.pushes {
				if d, ok := rq.Push(v); ok {
					dropped = append(dropped, d)
				}
			}
			var order []int
			rq.Each(func(v int) { order = append(order, v) })

			if len(order) != len(tt.wantOrder) {
				t.Fatalf("order = %v, want %v", order, tt.wantOrder)
			}
			for i := range order {
				if order[i] != tt.wantOrder[i] {
					t.Fatalf("order = %v, want %v", order, tt.wantOrder)
				}
			}
			if len(dropped) != len(tt.wantDropped) {
				t.Fatalf("dropped = %v, want %v", dropped, tt.wantDropped)
			}
			for i := range dropped {
				if dropped[i] != tt.wantDropped[i] {
					t.Fatalf("dropped = %v, want %v", dropped, tt.wantDropped)
				}
			}
		})
	}
}
