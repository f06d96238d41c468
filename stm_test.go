package stm

import (
	"context"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func commitOK[A any](t *testing.T, s STM[A]) A {
	t.Helper()
	a, err := Atomically(context.Background(), s)
	require.NoError(t, err)
	return a
}

func TestSucceedFailDone(t *testing.T) {
	require.Equal(t, 7, commitOK(t, Succeed(7)))

	_, err := Atomically(context.Background(), Fail[int](errBoom))
	require.ErrorIs(t, err, errBoom)

	require.Equal(t, 3, commitOK(t, Done(SucceedExit(3))))
	_, err = Atomically(context.Background(), Done(FailExit[int](errBoom)))
	require.ErrorIs(t, err, errBoom)
}

func TestMapFlatMap(t *testing.T) {
	s := FlatMap(Succeed(20), func(n int) STM[string] {
		return Map(Succeed(n+1), strconv.Itoa)
	})
	require.Equal(t, "21", commitOK(t, s))

	// failure short-circuits; f must not run
	ran := false
	f := FlatMap(Fail[int](errBoom), func(int) STM[int] {
		ran = true
		return Succeed(0)
	})
	_, err := Atomically(context.Background(), f)
	require.ErrorIs(t, err, errBoom)
	require.False(t, ran)
}

func TestFlattenAs(t *testing.T) {
	require.Equal(t, 5, commitOK(t, Flatten(Succeed(Succeed(5)))))
	require.Equal(t, "x", commitOK(t, As(Succeed(1), "x")))
}

func TestZipFamily(t *testing.T) {
	var order []string
	a := FromFunc(func() (int, error) { order = append(order, "a"); return 1, nil })
	b := FromFunc(func() (int, error) { order = append(order, "b"); return 2, nil })

	p := commitOK(t, Zip(a, b))
	require.Equal(t, Pair[int, int]{First: 1, Second: 2}, p)
	require.Equal(t, []string{"a", "b"}, order)

	require.Equal(t, 1, commitOK(t, ZipLeft(Succeed(1), Succeed(2))))
	require.Equal(t, 2, commitOK(t, ZipRight(Succeed(1), Succeed(2))))
	require.Equal(t, 3, commitOK(t, ZipWith(Succeed(1), Succeed(2), func(x, y int) int { return x + y })))

	// the second effect runs only if the first succeeds
	ran := false
	_, err := Atomically(context.Background(), ZipRight(Fail[int](errBoom), FromFunc(func() (int, error) {
		ran = true
		return 0, nil
	})))
	require.ErrorIs(t, err, errBoom)
	require.False(t, ran)
}

func TestFold(t *testing.T) {
	s := Fold(Fail[int](errBoom), func(error) string { return "err" }, strconv.Itoa)
	require.Equal(t, "err", commitOK(t, s))

	s = Fold(Succeed(42), func(error) string { return "err" }, strconv.Itoa)
	require.Equal(t, "42", commitOK(t, s))
}

func TestFoldSTM(t *testing.T) {
	recovered := FoldSTM(Fail[int](errBoom),
		func(err error) STM[int] { return Succeed(-1) },
		Succeed[int],
	)
	require.Equal(t, -1, commitOK(t, recovered))

	// retry passes through a fold untouched
	s := FoldSTM(Retry[int](),
		func(error) STM[int] { return Succeed(-1) },
		Succeed[int],
	).OrElse(Succeed(9))
	require.Equal(t, 9, commitOK(t, s))
}

func TestEitherOption(t *testing.T) {
	e := commitOK(t, Fail[int](errBoom).Either())
	require.True(t, e.IsLeft())
	require.ErrorIs(t, e.Left(), errBoom)

	e = commitOK(t, Succeed(4).Either())
	require.True(t, e.IsRight())
	require.Equal(t, 4, e.Right())

	o := commitOK(t, Fail[int](errBoom).Option())
	require.False(t, o.IsSome())
	o = commitOK(t, Succeed(4).Option())
	v, ok := o.Get()
	require.True(t, ok)
	require.Equal(t, 4, v)
}

func TestMapErrorAsError(t *testing.T) {
	wrapped := errors.New("wrapped")
	_, err := Atomically(context.Background(), Fail[int](errBoom).MapError(func(e error) error {
		return errors.Wrap(e, "wrapped")
	}))
	require.ErrorIs(t, err, errBoom)

	_, err = Atomically(context.Background(), Fail[int](errBoom).AsError(wrapped))
	require.ErrorIs(t, err, wrapped)
	require.NotErrorIs(t, err, errBoom)
}

func TestUnitIgnore(t *testing.T) {
	require.Equal(t, Void{}, commitOK(t, Succeed(1).Unit()))

	_, err := Atomically(context.Background(), Fail[int](errBoom).Unit())
	require.ErrorIs(t, err, errBoom)

	require.Equal(t, Void{}, commitOK(t, Fail[int](errBoom).Ignore()))
}

func TestFilterCollect(t *testing.T) {
	// a rejected filter retries rather than fails; OrElse observes it
	s := Succeed(3).Filter(func(n int) bool { return n > 10 }).OrElse(Succeed(-1))
	require.Equal(t, -1, commitOK(t, s))

	s = Succeed(30).Filter(func(n int) bool { return n > 10 })
	require.Equal(t, 30, commitOK(t, s))

	c := Collect(Succeed(3), func(n int) (string, bool) { return strconv.Itoa(n), n > 10 }).OrElse(Succeed("none"))
	require.Equal(t, "none", commitOK(t, c))
	c = Collect(Succeed(30), func(n int) (string, bool) { return strconv.Itoa(n), n > 10 })
	require.Equal(t, "30", commitOK(t, c))

	cm := CollectSTM(Succeed(30), func(n int) (STM[string], bool) { return Succeed(strconv.Itoa(n)), n > 10 })
	require.Equal(t, "30", commitOK(t, cm))
}

func TestFallback(t *testing.T) {
	require.Equal(t, 42, commitOK(t, Fail[int](errBoom).Fallback(42)))
	require.Equal(t, 1, commitOK(t, Succeed(1).Fallback(42)))
}

func TestOrElseEither(t *testing.T) {
	e := commitOK(t, OrElseEither(Succeed(1), Succeed("x")))
	require.True(t, e.IsLeft())
	require.Equal(t, 1, e.Left())

	e = commitOK(t, OrElseEither(Retry[int](), Succeed("x")))
	require.True(t, e.IsRight())
	require.Equal(t, "x", e.Right())

	e = commitOK(t, OrElseEither(Fail[int](errBoom), Succeed("x")))
	require.True(t, e.IsRight())
}

func TestCheck(t *testing.T) {
	require.Equal(t, Void{}, commitOK(t, Check(true)))
	require.Equal(t, 8, commitOK(t, ZipRight(Check(false), Succeed(1)).OrElse(Succeed(8))))
}

func TestSuspend(t *testing.T) {
	calls := 0
	s := Suspend(func() STM[int] {
		calls++
		return Succeed(calls)
	})
	require.Equal(t, 0, calls)
	require.Equal(t, 1, commitOK(t, s))
}

func TestPartial(t *testing.T) {
	require.Equal(t, 9, commitOK(t, Partial(func() int { return 9 })))

	_, err := Atomically(context.Background(), Partial(func() int { panic("nope") }))
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope")

	_, err = Atomically(context.Background(), Partial(func() int { panic(errBoom) }))
	require.ErrorIs(t, err, errBoom)
}

func TestFromFunc(t *testing.T) {
	require.Equal(t, 5, commitOK(t, FromFunc(func() (int, error) { return 5, nil })))
	_, err := Atomically(context.Background(), FromFunc(func() (int, error) { return 0, errBoom }))
	require.ErrorIs(t, err, errBoom)
}

func TestDie(t *testing.T) {
	require.PanicsWithError(t, "stm: defect: boom", func() {
		_, _ = Atomically(context.Background(), Die[int](errBoom))
	})
	require.PanicsWithError(t, "stm: defect: fatal", func() {
		_, _ = Atomically(context.Background(), DieMessage[int]("fatal"))
	})

	// defects are not failures: fold and orElse must not observe them
	require.Panics(t, func() {
		_, _ = Atomically(context.Background(), Die[int](errBoom).Fallback(1))
	})
	require.Panics(t, func() {
		_, _ = Atomically(context.Background(), Die[int](errBoom).OrElse(Succeed(1)))
	})
}

func TestDieDoesNotPublish(t *testing.T) {
	ref := NewTRef(0)
	require.Panics(t, func() {
		_, _ = Atomically(context.Background(), ZipRight(ref.Set(99), Die[Void](errBoom)))
	})
	require.Equal(t, 0, AtomicGet(ref))
}

func TestCurrentTxnID(t *testing.T) {
	id1 := commitOK(t, CurrentTxnID())
	id2 := commitOK(t, CurrentTxnID())
	require.NotZero(t, id1)
	require.Greater(t, uint64(id2), uint64(id1))

	// stable across one transaction
	p := commitOK(t, Zip(CurrentTxnID(), CurrentTxnID()))
	require.Equal(t, p.First, p.Second)
}

func TestCollectAll(t *testing.T) {
	stms := []STM[int]{Succeed(1), Succeed(2), Succeed(3)}
	require.Equal(t, []int{1, 2, 3}, commitOK(t, CollectAll(stms)))

	stms = append(stms, Fail[int](errBoom))
	_, err := Atomically(context.Background(), CollectAll(stms))
	require.ErrorIs(t, err, errBoom)
}

func TestForeach(t *testing.T) {
	out := commitOK(t, Foreach([]int{1, 2, 3}, func(n int) STM[int] { return Succeed(n * n) }))
	require.Equal(t, []int{1, 4, 9}, out)

	ref := NewTRef(0)
	commitOK(t, ForeachDiscard([]int{1, 2, 3}, func(n int) STM[Void] {
		return ref.Update(func(cur int) int { return cur + n })
	}))
	require.Equal(t, 6, AtomicGet(ref))
}

func TestEnsuringRunsOnBothPaths(t *testing.T) {
	counter := NewTRef(0)
	inc := counter.Update(func(n int) int { return n + 1 })

	commitOK(t, Succeed(1).Ensuring(inc))
	require.Equal(t, 1, AtomicGet(counter))

	// the failure is preserved, and since the overall transaction recovers,
	// the finalizer's write commits
	v := commitOK(t, Fail[int](errBoom).Ensuring(inc).Fallback(-1))
	require.Equal(t, -1, v)
	require.Equal(t, 2, AtomicGet(counter))
}
