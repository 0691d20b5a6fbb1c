package containers

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRingQueue(t *testing.T) {
	q := NewRingQueue[string](2)
	if _, err := q.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
	if err := q.Enqueue("a"); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue("b"); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue("c"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if front, _ := q.Peek(); front != "a" {
		t.Errorf("expected 'a' at the front, got %q", front)
	}

	evicted, ok := q.Push("c")
	if !ok || evicted != "a" {
		t.Errorf("expected 'a' to be evicted, got %q (%v)", evicted, ok)
	}
	if diff := cmp.Diff([]string{"b", "c"}, q.Drain()); diff != "" {
		t.Errorf("drain mismatch (-want +got):\n%s", diff)
	}
	if q.Len() != 0 || !q.IsEmpty() {
		t.Errorf("queue not empty after drain")
	}

	// Wrap around.
	for _, v := range []string{"d", "e", "f"} {
		q.Push(v)
	}
	if diff := cmp.Diff([]string{"e", "f"}, q.Drain()); diff != "" {
		t.Errorf("wrapped drain mismatch (-want +got):\n%s", diff)
	}
}
