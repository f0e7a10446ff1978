package queue

import (
	"sync"
	"testing"
)

// arrival is a simple struct for testing the generic queue
type arrival struct {
	ID   int
	Lane string
}

func TestQueue_New(t *testing.T) {
	q := New[arrival]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_Push(t *testing.T) {
	q := New[arrival]()

	q.Push(arrival{ID: 1, Lane: "A"})
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}

	q.Push(arrival{ID: 2}, arrival{ID: 3})
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
}

func TestQueue_Pop(t *testing.T) {
	q := New[arrival]()

	if _, ok := q.Pop(); ok {
		t.Error("expected pop on empty queue to fail")
	}

	q.Push(arrival{ID: 1, Lane: "A"}, arrival{ID: 2, Lane: "B"})
	first, ok := q.Pop()
	if !ok || first.ID != 1 || first.Lane != "A" {
		t.Errorf("expected {1, A}, got %+v (ok=%v)", first, ok)
	}
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}
}

func TestQueue_PushFront(t *testing.T) {
	q := New[int]()
	q.Push(3, 4)
	q.PushFront(1, 2)

	got := q.GetAndEmpty()
	want := []int{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestQueue_PopN(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3, 4, 5)

	got := q.PopN(2)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected [1 2], got %v", got)
	}

	got = q.PopN(10)
	if len(got) != 3 || got[2] != 5 {
		t.Errorf("expected [3 4 5], got %v", got)
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}

	if got := q.PopN(3); got != nil {
		t.Errorf("expected nil from empty queue, got %v", got)
	}
	q.Push(9)
	if got := q.PopN(0); got != nil {
		t.Errorf("expected nil for n=0, got %v", got)
	}
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}
}

func TestQueue_Empty(t *testing.T) {
	q := New[arrival]()

	if !q.Empty() {
		t.Error("expected empty queue")
	}

	q.Push(arrival{ID: 1})
	if q.Empty() {
		t.Error("expected non-empty queue")
	}

	q.Pop()
	if !q.Empty() {
		t.Error("expected empty queue after pop")
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New[arrival]()
	q.Push(arrival{ID: 1}, arrival{ID: 2}, arrival{ID: 3})

	q.Clear()

	if !q.Empty() {
		t.Error("expected empty queue after clear")
	}
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[arrival]()
	q.Push(arrival{ID: 1}, arrival{ID: 2}, arrival{ID: 3})

	result := q.GetAndEmpty()

	if len(result) != 3 {
		t.Errorf("expected 3 items, got %d", len(result))
	}
	if result[0].ID != 1 || result[1].ID != 2 || result[2].ID != 3 {
		t.Errorf("unexpected items: %+v", result)
	}
	if !q.Empty() {
		t.Error("expected empty queue after GetAndEmpty")
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[arrival]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.Push(arrival{ID: id})
		}(i)
	}
	wg.Wait()

	if q.Len() != 100 {
		t.Errorf("expected 100 items, got %d", q.Len())
	}

	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.PopN(2)
		}()
	}
	wg.Wait()

	if q.Len() != 50 {
		t.Errorf("expected 50 items after pops, got %d", q.Len())
	}
}

func TestQueue_ConcurrentGetAndEmpty(t *testing.T) {
	q := New[arrival]()
	for i := 0; i < 100; i++ {
		q.Push(arrival{ID: i})
	}

	var wg sync.WaitGroup
	results := make(chan []arrival, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.GetAndEmpty()
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for r := range results {
		total += len(r)
	}
	if total != 100 {
		t.Errorf("expected total 100 items, got %d", total)
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := New[string]()
	q.Push("v1", "v2")
	q.Push("v3")

	var got []string
	for {
		id, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, id)
	}
	if len(got) != 3 || got[0] != "v1" || got[2] != "v3" {
		t.Errorf("expected [v1 v2 v3], got %v", got)
	}
}
