package audio

import (
	"sort"
	"sync"
	"time"
)

// Slot is one queued chunk on the playback clock.
type Slot struct {
	Seq      int
	Start    time.Duration
	Duration time.Duration
}

func (s Slot) End() time.Duration {
	return s.Start + s.Duration
}

// Scheduler serializes streamed chunks on a single playback clock. Each chunk
// starts at the later of the running next-start time and the current clock,
// so chunks never overlap and never start in the past. Interrupt drops every
// pending chunk and rewinds next-start to zero.
type Scheduler struct {
	mu      sync.Mutex
	next    time.Duration
	seq     int
	pending map[int]Slot
}

func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[int]Slot)}
}

// Schedule places a chunk of length d, given the current clock position now.
func (s *Scheduler) Schedule(now, d time.Duration) Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now > s.next {
		s.next = now
	}
	s.seq++
	slot := Slot{Seq: s.seq, Start: s.next, Duration: d}
	s.next += d
	s.pending[slot.Seq] = slot
	return slot
}

// Reap forgets chunks that finished playing by now and returns how many
// remain.
func (s *Scheduler) Reap(now time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reap(now)
	return len(s.pending)
}

func (s *Scheduler) reap(now time.Duration) {
	for seq, slot := range s.pending {
		if slot.End() <= now {
			delete(s.pending, seq)
		}
	}
}

// Interrupt stops everything queued and returns the stopped slots in order.
func (s *Scheduler) Interrupt() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.interrupt()
}

// InterruptAt is Interrupt on the playback clock: chunks that already
// finished by now are not reported as stopped.
func (s *Scheduler) InterruptAt(now time.Duration) []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reap(now)
	return s.interrupt()
}

func (s *Scheduler) interrupt() []Slot {
	stopped := make([]Slot, 0, len(s.pending))
	for _, slot := range s.pending {
		stopped = append(stopped, slot)
	}
	sort.Slice(stopped, func(i, j int) bool { return stopped[i].Seq < stopped[j].Seq })

	s.pending = make(map[int]Slot)
	s.next = 0
	return stopped
}

func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
