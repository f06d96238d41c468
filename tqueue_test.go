package stm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTQueueFIFO(t *testing.T) {
	q := commitOK(t, NewTQueue[int](10))
	require.Equal(t, 10, q.Capacity())

	for i := 1; i <= 3; i++ {
		commitOK(t, q.Offer(i))
	}
	require.Equal(t, 3, commitOK(t, q.Len()))
	require.Equal(t, 1, commitOK(t, q.Peek()))
	require.Equal(t, 1, commitOK(t, q.Take()))
	require.Equal(t, 2, commitOK(t, q.Take()))
	require.Equal(t, 3, commitOK(t, q.Take()))
	require.Equal(t, 0, commitOK(t, q.Len()))
}

func TestTQueuePoll(t *testing.T) {
	q := commitOK(t, NewTQueue[string](2))
	o := commitOK(t, q.Poll())
	require.False(t, o.IsSome())

	commitOK(t, q.Offer("x"))
	o = commitOK(t, q.Poll())
	v, ok := o.Get()
	require.True(t, ok)
	require.Equal(t, "x", v)
}

func TestTQueueTakeAll(t *testing.T) {
	q := commitOK(t, NewTQueue[int](5))
	for i := 1; i <= 4; i++ {
		commitOK(t, q.Offer(i))
	}
	require.Equal(t, []int{1, 2, 3, 4}, commitOK(t, q.TakeAll()))
	require.Equal(t, 0, commitOK(t, q.Len()))
}

func TestTQueueBlocksWhenEmpty(t *testing.T) {
	q := commitOK(t, NewTQueue[int](5))
	got := make(chan int, 1)
	go func() {
		v, err := Atomically(context.Background(), q.Take())
		if err == nil {
			got <- v
		}
	}()
	select {
	case <-got:
		t.Fatal("take from an empty queue did not block")
	case <-time.After(50 * time.Millisecond):
	}
	commitOK(t, q.Offer(9))
	select {
	case v := <-got:
		require.Equal(t, 9, v)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked take was never woken")
	}
}

func TestTQueueBlocksWhenFull(t *testing.T) {
	q := commitOK(t, NewTQueue[int](1))
	commitOK(t, q.Offer(1))

	offered := make(chan struct{})
	go func() {
		_, err := Atomically(context.Background(), q.Offer(2))
		if err == nil {
			close(offered)
		}
	}()
	select {
	case <-offered:
		t.Fatal("offer to a full queue did not block")
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, 1, commitOK(t, q.Take()))
	select {
	case <-offered:
	case <-time.After(5 * time.Second):
		t.Fatal("blocked offer was never woken")
	}
	require.Equal(t, 2, commitOK(t, q.Take()))
}

func TestTQueueProducerConsumer(t *testing.T) {
	const n = 1000
	q := commitOK(t, NewTQueue[int](8))
	sum := make(chan int, 1)
	go func() {
		total := 0
		for i := 0; i < n; i++ {
			v, err := Atomically(context.Background(), q.Take())
			if err != nil {
				return
			}
			total += v
		}
		sum <- total
	}()
	for i := 1; i <= n; i++ {
		commitOK(t, q.Offer(i))
	}
	select {
	case total := <-sum:
		require.Equal(t, n*(n+1)/2, total)
	case <-time.After(30 * time.Second):
		t.Fatal("consumer did not drain the queue in time")
	}
}

func TestTQueueZeroCapacityIsDefect(t *testing.T) {
	require.Panics(t, func() {
		_, _ = Atomically(context.Background(), NewTQueue[int](0))
	})
}
