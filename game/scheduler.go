package game

import "time"

// FrameID identifies a requested frame callback. The zero value is never
// issued.
type FrameID uint64

// FrameFunc is called once when its frame runs.
type FrameFunc func(now time.Time)

// Scheduler requests one-shot frame callbacks, in the manner of a browser's
// requestAnimationFrame. A callback that wants another frame must request it.
type Scheduler interface {
	RequestFrame(fn FrameFunc) FrameID
	CancelFrame(id FrameID)
}

type frameRequest struct {
	id FrameID
	fn FrameFunc
}

// FrameScheduler is a Scheduler driven by the host: each RunFrame call runs
// the callbacks that were queued before it. Callbacks queued while a frame
// runs wait for the next RunFrame. Not safe for concurrent use.
type FrameScheduler struct {
	next    FrameID
	queue   []frameRequest
	running []frameRequest
}

// NewFrameScheduler creates an empty scheduler.
func NewFrameScheduler() *FrameScheduler {
	return &FrameScheduler{}
}

// RequestFrame queues fn for the next frame.
func (s *FrameScheduler) RequestFrame(fn FrameFunc) FrameID {
	s.next++
	s.queue = append(s.queue, frameRequest{id: s.next, fn: fn})
	return s.next
}

// CancelFrame drops a queued callback. Unknown or already-run ids are ignored.
func (s *FrameScheduler) CancelFrame(id FrameID) {
	for _, reqs := range [][]frameRequest{s.queue, s.running} {
		for i := range reqs {
			if reqs[i].id == id {
				reqs[i].fn = nil
				return
			}
		}
	}
}

// RunFrame runs every callback queued before the call and returns how many ran.
func (s *FrameScheduler) RunFrame(now time.Time) int {
	s.running, s.queue = s.queue, s.running[:0]

	ran := 0
	for i := range s.running {
		fn := s.running[i].fn
		if fn == nil {
			continue
		}
		s.running[i].fn = nil
		fn(now)
		ran++
	}
	s.running = s.running[:0]
	return ran
}

// Pending returns the number of live callbacks waiting for the next frame.
func (s *FrameScheduler) Pending() int {
	n := 0
	for _, r := range s.queue {
		if r.fn != nil {
			n++
		}
	}
	return n
}
