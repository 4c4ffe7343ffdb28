package engine

import (
	"sync/atomic"
	"time"
)

// Clock supplies the trusted current time in unix seconds. Deadlines,
// claim times and event timestamps all read it once per attempt.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

// Now implements Clock.
func (f ClockFunc) Now() int64 { return f() }

// Sequencer is the monotonic logical clock that orders events.
//
// Every persisted event carries a strictly increasing seq. The engine
// resumes the sequencer from the highest stored seq on startup so a
// restarted process keeps appending in order.
//
// Thread-safety: Sequencer is safe for concurrent use (atomic operations).
// The engine only advances it while holding its writer lock.
type Sequencer struct {
	seq atomic.Int64
}

// NewSequencer creates a sequencer starting at 0.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// NewSequencerAt creates a sequencer positioned at start. The next call
// to Next returns start+1.
func NewSequencerAt(start int64) *Sequencer {
	s := &Sequencer{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number and advances the sequencer.
func (s *Sequencer) Next() int64 {
	return s.seq.Add(1)
}

// Observe raises the sequencer to at least seq. Used after a commit whose
// seqs were read from storage.
func (s *Sequencer) Observe(seq int64) {
	for {
		cur := s.seq.Load()
		if seq <= cur || s.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}

// Current returns the last issued sequence number.
func (s *Sequencer) Current() int64 {
	return s.seq.Load()
}
