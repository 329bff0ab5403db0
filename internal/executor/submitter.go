package executor

import (
	"context"
	"runtime"
	"time"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
)

// Submitter is the producer-side helper for one descriptor ring. It must be
// used from a single goroutine.
type Submitter struct {
	ring *fastlane.SpscRing[*fastlane.IODesc]
}

// NewSubmitter wraps the producer side of the ring.
func NewSubmitter(ring *fastlane.SpscRing[*fastlane.IODesc]) *Submitter {
	return &Submitter{ring: ring}
}

// Submit offers a descriptor without blocking. A full ring surfaces as
// ErrRingFull with the descriptor untouched; callers retry or shed load.
func (s *Submitter) Submit(desc *fastlane.IODesc) error {
	return s.ring.Push(desc)
}

// SubmitWait offers a descriptor, retrying while the ring is full. The first
// few retries spin with a scheduler yield, then back off to short sleeps so
// a stalled consumer does not burn a core.
func (s *Submitter) SubmitWait(ctx context.Context, desc *fastlane.IODesc) error {
	const spinRetries = 64

	for attempt := 0; ; attempt++ {
		err := s.ring.Push(desc)
		if err == nil {
			return nil
		}
		if !fastlane.IsCode(err, fastlane.ErrCodeRingFull) {
			return err
		}

		if ctx.Err() != nil {
			return fastlane.WrapError("SUBMIT", ctx.Err())
		}

		if attempt < spinRetries {
			runtime.Gosched()
			continue
		}
		select {
		case <-ctx.Done():
			return fastlane.WrapError("SUBMIT", ctx.Err())
		case <-time.After(10 * time.Microsecond):
		}
	}
}
