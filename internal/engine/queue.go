package engine

import (
	"container/heap"
	"sort"
)

// entry pairs an event with the insertion seq it was scheduled under.
type entry struct {
	ev  Event
	seq int64
}

// before is the strict total order of the scheduler.
func before(a, b entry) bool {
	ta, tb := a.ev.EventTime(), b.ev.EventTime()
	if ta != tb {
		return ta < tb
	}
	pa, pb := a.ev.Type(), b.ev.Type()
	if pa != pb {
		return pa < pb
	}
	if a.ev.NeedsSecondaryOrdering() && b.ev.NeedsSecondaryOrdering() {
		sa, sb := a.ev.SecondaryOrderingValue(), b.ev.SecondaryOrderingValue()
		if sa != sb {
			return sa < sb
		}
	}
	return a.seq < b.seq
}

// eventHeap implements heap.Interface over entries.
type eventHeap []entry

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return before(h[i], h[j]) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	// Clear the slot so the popped event can be collected.
	old[n-1] = entry{}
	*h = old[:n-1]
	return e
}

// Scheduler orders events for dispatch.
//
// Scheduling never fails; errors originate inside Step. The scheduler is
// not safe for concurrent use: only the Run goroutine and the event it is
// stepping touch it.
type Scheduler struct {
	events    eventHeap
	clock     *Clock
	executing Event
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		events: make(eventHeap, 0, 64),
		clock:  NewClock(),
	}
}

// Schedule inserts e by its current event time.
func (s *Scheduler) Schedule(e Event) {
	heap.Push(&s.events, entry{ev: e, seq: s.clock.Next()})
}

// Peek returns the next event without removing it, or nil.
func (s *Scheduler) Peek() Event {
	if len(s.events) == 0 {
		return nil
	}
	return s.events[0].ev
}

// PopNext removes and returns the next event.
func (s *Scheduler) PopNext() (Event, bool) {
	if len(s.events) == 0 {
		return nil, false
	}
	return heap.Pop(&s.events).(entry).ev, true
}

// Len returns the number of scheduled events.
func (s *Scheduler) Len() int { return len(s.events) }

// EventBeingExecuted returns the event currently in Step, or nil. Used for
// reentrancy checks.
func (s *Scheduler) EventBeingExecuted() Event { return s.executing }

func (s *Scheduler) setExecuting(e Event) { s.executing = e }

// NextBarrierTime returns the earliest event time of a scheduled barrier
// strictly after t.
func (s *Scheduler) NextBarrierTime(t float64) (float64, bool) {
	best, found := 0.0, false
	for _, en := range s.events {
		if !en.ev.IsBarrier() {
			continue
		}
		et := en.ev.EventTime()
		if et > t && (!found || et < best) {
			best, found = et, true
		}
	}
	return best, found
}

// Events returns the scheduled events in dispatch order.
func (s *Scheduler) Events() []Event {
	sorted := make([]entry, len(s.events))
	copy(sorted, s.events)
	sort.Slice(sorted, func(i, j int) bool { return before(sorted[i], sorted[j]) })
	out := make([]Event, len(sorted))
	for i, en := range sorted {
		out[i] = en.ev
	}
	return out
}
