package feed

import (
	"log/slog"

	"github.com/intersim/intersim/internal/queue"
	"github.com/intersim/intersim/internal/sim"
)

// Priority handling of the north approach (lane A).
const (
	PriorityOrigin = sim.North
	// PriorityEnter is the backlog above which lane A gets priority.
	PriorityEnter = 10
	// PriorityExit is the backlog below which priority is released.
	PriorityExit = 5
	// PriorityServe is how many lane A arrivals a priority round serves.
	PriorityServe = 2
)

// Arrival is a queued vehicle released by the scheduler.
type Arrival struct {
	ID     uint64
	Origin sim.Origin
}

// Scheduler holds the per-lane backlog and decides which arrivals enter the
// junction each round.
type Scheduler struct {
	queues   [len(sim.Origins)]*queue.Queue[uint64]
	priority bool
	next     int
	log      *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{log: logger.With("component", "scheduler")}
	for i := range s.queues {
		s.queues[i] = queue.New[uint64]()
	}
	return s
}

// Enqueue appends a batch to its lane.
func (s *Scheduler) Enqueue(b Batch) {
	if int(b.Origin) >= len(s.queues) {
		return
	}
	s.queues[b.Origin].Push(b.IDs...)
}

// Requeue returns arrivals that could not enter to the front of their
// lanes, preserving order.
func (s *Scheduler) Requeue(arrivals []Arrival) {
	for i := len(arrivals) - 1; i >= 0; i-- {
		a := arrivals[i]
		if int(a.Origin) < len(s.queues) {
			s.queues[a.Origin].PushFront(a.ID)
		}
	}
}

// Len returns the backlog of origin.
func (s *Scheduler) Len(o sim.Origin) int {
	return s.queues[o].Len()
}

// Backlog returns the backlog of every lane in origin order.
func (s *Scheduler) Backlog() [len(sim.Origins)]int {
	var out [len(sim.Origins)]int
	for i, q := range s.queues {
		out[i] = q.Len()
	}
	return out
}

// Total returns the summed backlog.
func (s *Scheduler) Total() int {
	n := 0
	for _, q := range s.queues {
		n += q.Len()
	}
	return n
}

// Priority reports whether lane A is being served exclusively.
func (s *Scheduler) Priority() bool {
	return s.priority
}

// Serve releases at most free arrivals for one round.
//
// Lane A takes priority once its backlog exceeds PriorityEnter; while it
// holds priority only lane A is served, PriorityServe at a time, until the
// backlog drops below PriorityExit. Otherwise every lane is served
// max(1, total/4) arrivals, starting from a rotating lane so a small free
// count does not starve the later lanes.
func (s *Scheduler) Serve(free int) []Arrival {
	if free <= 0 {
		return nil
	}

	a := s.queues[PriorityOrigin]
	if !s.priority && a.Len() > PriorityEnter {
		s.priority = true
		s.log.Info("Priority lane engaged", "origin", PriorityOrigin, "backlog", a.Len())
	}

	if s.priority {
		out := s.pop(nil, PriorityOrigin, min(PriorityServe, free))
		if a.Len() < PriorityExit {
			s.priority = false
			s.log.Info("Priority lane released", "origin", PriorityOrigin, "backlog", a.Len())
		}
		return out
	}

	each := max(1, s.Total()/len(s.queues))
	var out []Arrival
	for i := range s.queues {
		if free == 0 {
			break
		}
		o := sim.Origins[(s.next+i)%len(s.queues)]
		n := min(each, free)
		before := len(out)
		out = s.pop(out, o, n)
		free -= len(out) - before
	}
	s.next = (s.next + 1) % len(s.queues)
	return out
}

func (s *Scheduler) pop(out []Arrival, o sim.Origin, n int) []Arrival {
	for _, id := range s.queues[o].PopN(n) {
		out = append(out, Arrival{ID: id, Origin: o})
	}
	return out
}
