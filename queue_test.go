package csmacd

import (
	"errors"
	"testing"
)

func fillQueue(t *testing.T, nq *NodeQueue, times ...float64) {
	t.Helper()
	for _, ts := range times {
		if err := nq.Push(ts); err != nil {
			t.Fatalf("Push(%g) error: %v", ts, err)
		}
	}
}

func TestNodeQueuePushPeekPop(t *testing.T) {
	nq := CreateNodeQueue(3, 8)
	if got := nq.PeekHead(); got != NoArrival {
		t.Fatalf("PeekHead on empty queue = %g, want NoArrival", got)
	}
	fillQueue(t, nq, 1.0, 2.0, 2.0, 4.5)

	if nq.Len() != 4 {
		t.Fatalf("Len = %d, want 4", nq.Len())
	}
	if got := nq.PopHead(); got != 1.0 {
		t.Fatalf("PopHead = %g, want 1.0", got)
	}
	if got := nq.PeekHead(); got != 2.0 {
		t.Fatalf("PeekHead = %g, want 2.0", got)
	}
	if !nq.Ordered() {
		t.Fatalf("queue out of order after pops")
	}
}

func TestNodeQueueOutOfOrderPush(t *testing.T) {
	nq := CreateNodeQueue(0, 8)
	fillQueue(t, nq, 1.0, 3.0, 2.0, 0.5)

	want := []float64{0.5, 1.0, 2.0, 3.0}
	for _, w := range want {
		if got := nq.PopHead(); got != w {
			t.Fatalf("PopHead = %g, want %g", got, w)
		}
	}
}

func TestNodeQueueOverflow(t *testing.T) {
	nq := CreateNodeQueue(2, 2)
	fillQueue(t, nq, 1.0, 2.0)

	err := nq.Push(3.0)
	var oe *OverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("Push at capacity returned %v, want OverflowError", err)
	}
	if oe.Node != 2 || oe.Capacity != 2 {
		t.Fatalf("OverflowError = %+v, want node 2 capacity 2", oe)
	}
	if nq.Len() != 2 {
		t.Fatalf("Len after overflow = %d, want 2", nq.Len())
	}
}

func TestNodeQueuePopEmptyPanics(t *testing.T) {
	nq := CreateNodeQueue(5, 4)
	defer func() {
		r := recover()
		ee, ok := r.(*EmptyQueueError)
		if !ok {
			t.Fatalf("recovered %v, want *EmptyQueueError", r)
		}
		if ee.Node != 5 {
			t.Fatalf("EmptyQueueError node = %d, want 5", ee.Node)
		}
	}()
	nq.PopHead()
}

func TestAdvanceAllBelow(t *testing.T) {
	cases := []struct {
		name      string
		times     []float64
		threshold float64
		want      []float64
	}{
		{"below every entry", []float64{2.0, 3.0}, 1.0, []float64{2.0, 3.0}},
		{"prefix", []float64{1.0, 1.5, 2.0, 3.0}, 2.0, []float64{2.0, 2.0, 2.0, 3.0}},
		{"whole queue", []float64{1.0, 1.5}, 5.0, []float64{5.0, 5.0}},
		{"empty", nil, 5.0, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nq := CreateNodeQueue(0, 16)
			fillQueue(t, nq, tc.times...)
			nq.AdvanceAllBelow(tc.threshold)

			if !nq.Ordered() {
				t.Fatalf("queue out of order after AdvanceAllBelow(%g)", tc.threshold)
			}
			if nq.Len() != len(tc.want) {
				t.Fatalf("Len = %d, want %d", nq.Len(), len(tc.want))
			}
			for _, w := range tc.want {
				if got := nq.PopHead(); got != w {
					t.Fatalf("PopHead = %g, want %g", got, w)
				}
			}
		})
	}
}

func TestNodeQueueCounters(t *testing.T) {
	nq := CreateNodeQueue(0, 4)
	nq.IncrementCollision()
	if got := nq.IncrementCollision(); got != 2 {
		t.Fatalf("IncrementCollision = %d, want 2", got)
	}
	if got := nq.IncrementBusy(); got != 1 {
		t.Fatalf("IncrementBusy = %d, want 1", got)
	}
	nq.ResetCollision()
	if nq.CollisionCount() != 0 || nq.BusyCount() != 1 {
		t.Fatalf("counters = (%d, %d), want (0, 1)", nq.CollisionCount(), nq.BusyCount())
	}
	nq.ResetBusy()
	if nq.BusyCount() != 0 {
		t.Fatalf("BusyCount after reset = %d, want 0", nq.BusyCount())
	}
}
