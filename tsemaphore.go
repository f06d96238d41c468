package stm

import (
	"context"
)

// A TSemaphore is a transactional counting semaphore. Acquiring retries
// until enough permits are available, so it composes with any other
// transactional condition.
type TSemaphore struct {
	permits *TRef[int64]
}

// NewTSemaphore creates a semaphore with the given number of permits inside
// the running transaction.
func NewTSemaphore(permits int64) STM[*TSemaphore] {
	if permits < 0 {
		return DieMessage[*TSemaphore]("stm: semaphore permits must be non-negative")
	}
	return Map(MakeTRef(permits), func(ref *TRef[int64]) *TSemaphore {
		return &TSemaphore{permits: ref}
	})
}

// Available returns the number of free permits.
func (s *TSemaphore) Available() STM[int64] { return s.permits.Get() }

// Acquire takes one permit, retrying until one is available.
func (s *TSemaphore) Acquire() STM[Void] { return s.AcquireN(1) }

// AcquireN takes n permits, retrying until all are available at once.
func (s *TSemaphore) AcquireN(n int64) STM[Void] {
	if n < 0 {
		return DieMessage[Void]("stm: cannot acquire a negative permit count")
	}
	return FlatMap(s.permits.Get(), func(avail int64) STM[Void] {
		if avail < n {
			return Retry[Void]()
		}
		return s.permits.Set(avail - n)
	})
}

// Release returns one permit.
func (s *TSemaphore) Release() STM[Void] { return s.ReleaseN(1) }

// ReleaseN returns n permits.
func (s *TSemaphore) ReleaseN(n int64) STM[Void] {
	if n < 0 {
		return DieMessage[Void]("stm: cannot release a negative permit count")
	}
	return s.permits.Update(func(avail int64) int64 { return avail + n })
}

// WithPermit acquires a permit, runs f, and releases the permit again even
// if f returns an error. Acquisition respects ctx cancellation; the release
// does not, so a held permit is always returned.
func (s *TSemaphore) WithPermit(ctx context.Context, f func() error) error {
	if _, err := s.Acquire().Commit(ctx); err != nil {
		return err
	}
	defer func() {
		_, _ = s.Release().Commit(context.Background())
	}()
	return f()
}
