package stm

import (
	"github.com/benbjohnson/immutable"
)

// A TQueue is a bounded transactional FIFO queue. Offer retries while the
// queue is full and Take retries while it is empty, so producers and
// consumers block on each other without any channel plumbing.
type TQueue[A any] struct {
	capacity int
	items    *TRef[*immutable.List[A]]
}

// NewTQueue creates an empty queue holding at most capacity elements.
// capacity must be positive.
func NewTQueue[A any](capacity int) STM[*TQueue[A]] {
	if capacity <= 0 {
		return DieMessage[*TQueue[A]]("stm: queue capacity must be positive")
	}
	return Map(MakeTRef(immutable.NewList[A]()), func(ref *TRef[*immutable.List[A]]) *TQueue[A] {
		return &TQueue[A]{capacity: capacity, items: ref}
	})
}

// Capacity returns the queue's fixed capacity.
func (q *TQueue[A]) Capacity() int { return q.capacity }

// Offer appends a, retrying while the queue is full.
func (q *TQueue[A]) Offer(a A) STM[Void] {
	return FlatMap(q.items.Get(), func(l *immutable.List[A]) STM[Void] {
		if l.Len() >= q.capacity {
			return Retry[Void]()
		}
		return q.items.Set(l.Append(a))
	})
}

// Take removes and returns the head, retrying while the queue is empty.
func (q *TQueue[A]) Take() STM[A] {
	return FlatMap(q.items.Get(), func(l *immutable.List[A]) STM[A] {
		if l.Len() == 0 {
			return Retry[A]()
		}
		head := l.Get(0)
		return As(q.items.Set(l.Slice(1, l.Len())), head)
	})
}

// Poll removes and returns the head if there is one; it never retries.
func (q *TQueue[A]) Poll() STM[Option[A]] {
	return FlatMap(q.items.Get(), func(l *immutable.List[A]) STM[Option[A]] {
		if l.Len() == 0 {
			return Succeed(None[A]())
		}
		head := l.Get(0)
		return As(q.items.Set(l.Slice(1, l.Len())), Some(head))
	})
}

// Peek returns the head without removing it, retrying while the queue is
// empty.
func (q *TQueue[A]) Peek() STM[A] {
	return FlatMap(q.items.Get(), func(l *immutable.List[A]) STM[A] {
		if l.Len() == 0 {
			return Retry[A]()
		}
		return Succeed(l.Get(0))
	})
}

// Len returns the number of queued elements.
func (q *TQueue[A]) Len() STM[int] {
	return Map(q.items.Get(), func(l *immutable.List[A]) int { return l.Len() })
}

// TakeAll removes and returns every queued element.
func (q *TQueue[A]) TakeAll() STM[[]A] {
	return FlatMap(q.items.Get(), func(l *immutable.List[A]) STM[[]A] {
		out := make([]A, 0, l.Len())
		for it := l.Iterator(); !it.Done(); {
			_, a := it.Next()
			out = append(out, a)
		}
		return As(q.items.Set(immutable.NewList[A]()), out)
	})
}
