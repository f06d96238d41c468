package stm

import (
	"context"
	"sync"
	"sync/atomic"
)

// A TxnID identifies one transaction. All attempts of a transaction share
// one id; wake-up registrations are keyed by it.
type TxnID uint64

// txnCounter is process-wide and monotonic; it is never reset.
var txnCounter atomic.Uint64

func nextTxnID() TxnID { return TxnID(txnCounter.Add(1)) }

// The globalLock serializes transaction validation/committal. It is held
// only for the validate-and-publish critical section of a writer and the
// validation instant of a read-only transaction, never while running user
// code or wake-up callbacks.
var globalLock sync.Mutex

// execute schedules a wake-up callback onto some worker. Callbacks are never
// run inline on the committing transaction's stack.
var execute = func(fn func()) { go fn() }

// txnState tracks one transaction across suspensions. done is one-shot: once
// set (by cancellation or by the transaction finishing), wake-up callbacks
// become no-ops, so racing writers and stale registrations are harmless.
type txnState struct {
	mu    sync.Mutex
	done  bool
	woken chan struct{}
}

func newTxnState() *txnState {
	return &txnState{woken: make(chan struct{}, 1)}
}

// wake is the callback registered on cells. It is idempotent: at most one
// pending signal exists, and it short-circuits once done is set.
func (s *txnState) wake() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	select {
	case s.woken <- struct{}{}:
	default:
	}
}

func (s *txnState) close() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
}

// tryCommit runs the transaction against a fresh journal until the attempt's
// journal is consistent, then either publishes (success with writes,
// revalidated under the global lock), reports failure, or hands back the
// journal of a retrying attempt for wake-up registration.
func tryCommit(op opFunc, txid TxnID) (ex texit, j *journal, suspended bool) {
	for {
		j = newJournal()
		ex = runSTM(op, j, txid)

		switch j.analyze() {
		case journalInvalid:
			// A cell changed mid-attempt; the outcome may be based on an
			// inconsistent view. Discard it and rerun.
			continue
		case journalReadWrite:
			if ex.kind == exitSucceed {
				globalLock.Lock()
				if j.isValid() {
					j.commitChanges()
					globalLock.Unlock()
					return ex, j, false
				}
				globalLock.Unlock()
				continue
			}
		case journalReadOnly:
			if ex.kind == exitSucceed {
				globalLock.Lock()
				valid := j.isValid()
				globalLock.Unlock()
				if !valid {
					continue
				}
				return ex, j, false
			}
		}

		switch ex.kind {
		case exitFail:
			// Tentative writes die with the journal; only the error survives.
			return ex, j, false
		default:
			return ex, j, true
		}
	}
}

// completeTodos drains and schedules the wake-up callbacks of every cell
// that participated in the transaction, so a finished transaction clears its
// own registrations and wakes anyone sleeping on cells it wrote.
func completeTodos(j *journal) {
	for ref := range j.entries {
		for _, fn := range drainTodos(ref) {
			execute(fn)
		}
	}
}

// atomically is the untyped body of Atomically: commit loop, wake-up
// registration, suspension, cancellation.
func atomically(ctx context.Context, op opFunc) (any, error) {
	txid := nextTxnID()
	state := newTxnState()
	defer state.close()

	// Cells already carrying this transaction's callback. Registrations
	// survive a rerun triggered by failed revalidation, so only the delta of
	// newly touched cells is registered each round.
	registered := make(map[txVar]struct{})

	for {
		ex, j, suspended := tryCommit(op, txid)
		for suspended {
			for ref, e := range j.entries {
				if e.isNew {
					// Unpublished cells can't be modified externally;
					// registering on them would never fire.
					continue
				}
				if _, ok := registered[ref]; ok {
					continue
				}
				registered[ref] = struct{}{}
				addTodo(txid, ref, state.wake)
			}
			if j.isValid() {
				break
			}
			// A writer committed between the retry outcome and registration:
			// don't sleep, the rerun may proceed right now.
			ex, j, suspended = tryCommit(op, txid)
		}

		if !suspended {
			completeTodos(j)
			// Done is final: the result is delivered even if ctx was
			// cancelled concurrently.
			if ex.kind == exitFail {
				return nil, ex.err
			}
			return ex.value, nil
		}

		select {
		case <-state.woken:
			// A fresh attempt registers from scratch against whatever
			// journal it produces.
			registered = make(map[txVar]struct{})
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Atomically executes the transaction: it runs s against a private journal,
// validates, and either publishes all of its writes or none. A retrying
// transaction suspends until one of the cells it read changes; cancel ctx to
// abandon it while suspended.
func Atomically[A any](ctx context.Context, s STM[A]) (A, error) {
	v, err := atomically(ctx, s.op)
	return cast[A](v), err
}

// Commit is Atomically as a method.
func (s STM[A]) Commit(ctx context.Context) (A, error) {
	return Atomically(ctx, s)
}
