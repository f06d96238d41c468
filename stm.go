package stm

import (
	"github.com/pkg/errors"
)

// opFunc is a suspended computation: given the attempt's journal, the
// transaction id, and the frame counter, it yields an outcome. Running an
// opFunc may panic with *resumable (trampolining) or *Defect.
type opFunc func(j *journal, txid TxnID, frames *int32) texit

// An STM is a composable transactional computation producing a value of type
// A. It is a value, not a procedure: constructing one has no effect, and its
// reads and writes take effect only when it is run by Atomically (or Commit)
// and the resulting transaction commits as a whole.
type STM[A any] struct {
	op opFunc
}

// Succeed returns a transaction that succeeds with a.
func Succeed[A any](a A) STM[A] {
	return STM[A]{op: func(*journal, TxnID, *int32) texit { return succeedExit(a) }}
}

// Fail returns a transaction that fails with err. The failure rolls the
// transaction back and surfaces to the caller unless recovered with Fold,
// FoldSTM, OrElse, or Either.
func Fail[A any](err error) STM[A] {
	return STM[A]{op: func(*journal, TxnID, *int32) texit { return failExit(err) }}
}

// Retry returns a transaction that suspends the current attempt until at
// least one of the cells it has read changes, then reruns it from the start.
func Retry[A any]() STM[A] {
	return STM[A]{op: func(*journal, TxnID, *int32) texit { return retryExit() }}
}

// Done lifts an outcome into a transaction.
func Done[A any](exit TExit[A]) STM[A] {
	ex := exit.erase()
	return STM[A]{op: func(*journal, TxnID, *int32) texit { return ex }}
}

func doneOp(ex texit) opFunc {
	return func(*journal, TxnID, *int32) texit { return ex }
}

// CurrentTxnID returns the identity of the running transaction.
func CurrentTxnID() STM[TxnID] {
	return STM[TxnID]{op: func(_ *journal, txid TxnID, _ *int32) texit {
		return succeedExit(txid)
	}}
}

// Check succeeds if p holds and retries otherwise.
func Check(p bool) STM[Void] {
	if p {
		return Succeed(Void{})
	}
	return Retry[Void]()
}

// Suspend defers construction of a transaction until it is run.
func Suspend[A any](f func() STM[A]) STM[A] {
	return STM[A]{op: func(j *journal, txid TxnID, frames *int32) texit {
		return f().op(j, txid, frames)
	}}
}

// FromFunc lifts a fallible computation into a transaction: a nil error
// becomes success, anything else a failure. f runs on every attempt, so it
// must be free of side effects.
func FromFunc[A any](f func() (A, error)) STM[A] {
	return STM[A]{op: func(*journal, TxnID, *int32) texit {
		a, err := f()
		if err != nil {
			return failExit(err)
		}
		return succeedExit(a)
	}}
}

// Partial lifts a computation that may panic into a transaction; a panic is
// recovered and surfaced as a failure.
func Partial[A any](f func() A) STM[A] {
	return STM[A]{op: func(*journal, TxnID, *int32) (ex texit) {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					ex = failExit(errors.WithStack(err))
					return
				}
				ex = failExit(errors.Errorf("stm: recovered panic: %v", r))
			}
		}()
		return succeedExit(f())
	}}
}

// A Defect is a non-recoverable fault. It aborts the transaction without
// publishing anything and escapes Atomically as a panic; Fold, OrElse, and
// friends do not observe it.
type Defect struct {
	Cause error
}

func (d *Defect) Error() string { return "stm: defect: " + d.Cause.Error() }

func (d *Defect) Unwrap() error { return d.Cause }

// Die returns a transaction that aborts with a defect carrying cause.
func Die[A any](cause error) STM[A] {
	defect := &Defect{Cause: errors.WithStack(cause)}
	return STM[A]{op: func(*journal, TxnID, *int32) texit { panic(defect) }}
}

// DieMessage returns a transaction that aborts with a defect described by
// msg.
func DieMessage[A any](msg string) STM[A] {
	defect := &Defect{Cause: errors.New(msg)}
	return STM[A]{op: func(*journal, TxnID, *int32) texit { panic(defect) }}
}
