package stm

import (
	"sync/atomic"

	"github.com/benbjohnson/immutable"
)

// todoMap maps transaction ids to wake-up callbacks. The mapping is replaced
// wholesale by CAS: registration swaps in a map with one more callback,
// draining swaps in the shared empty map and fires everything removed.
type todoMap = immutable.Map[TxnID, func()]

// txnIDHasher implements immutable.Hasher for TxnID keys.
type txnIDHasher struct{}

func (txnIDHasher) Hash(key TxnID) uint32 { return uint32(uint64(key) ^ (uint64(key) >> 32)) }
func (txnIDHasher) Equal(a, b TxnID) bool { return a == b }

var emptyTodos = immutable.NewMap[TxnID, func()](txnIDHasher{})

// A TRef is a transactional cell holding a value of type A. Cells are read
// and written only inside transactions (or through AtomicGet/AtomicSet,
// which are single-operation transactions). The current version of a cell is
// the identity of its installed versioned container.
type TRef[A any] struct {
	versioned atomic.Pointer[versioned]
	todo      atomic.Pointer[todoMap]
}

// NewTRef returns a new cell holding a. For creating a cell inside a
// transaction, use MakeTRef.
func NewTRef[A any](a A) *TRef[A] {
	ref := &TRef[A]{}
	ref.versioned.Store(newVersioned(a))
	ref.todo.Store(emptyTodos)
	return ref
}

// MakeTRef creates a cell inside the running transaction. The cell becomes
// visible to other transactions only when this one commits.
func MakeTRef[A any](a A) STM[*TRef[A]] {
	return STM[*TRef[A]]{op: func(j *journal, _ TxnID, _ *int32) texit {
		ref := NewTRef(a)
		j.entries[ref] = &entry{
			ref:      ref,
			expected: ref.versioned.Load(),
			newValue: a,
			isNew:    true,
		}
		return succeedExit(ref)
	}}
}

// txVar is the untyped view of a cell held by journals and the commit
// protocol, which cannot know the cell's value type.
type txVar interface {
	loadVersion() *versioned
	publish(v *versioned)
	currentTodos() *todoMap
	swapTodos(old, new *todoMap) bool
}

func (ref *TRef[A]) loadVersion() *versioned { return ref.versioned.Load() }

// publish installs a fresh version. Called only by commit, under the global
// lock; the atomic store provides the release edge for lock-free readers.
func (ref *TRef[A]) publish(v *versioned) { ref.versioned.Store(v) }

func (ref *TRef[A]) currentTodos() *todoMap { return ref.todo.Load() }

func (ref *TRef[A]) swapTodos(old, new *todoMap) bool {
	return ref.todo.CompareAndSwap(old, new)
}

// Get returns the cell's value as seen by the running transaction.
func (ref *TRef[A]) Get() STM[A] {
	return STM[A]{op: func(j *journal, _ TxnID, _ *int32) texit {
		return succeedExit(j.entryFor(ref).newValue)
	}}
}

// Set replaces the cell's value for the remainder of the transaction.
func (ref *TRef[A]) Set(a A) STM[Void] {
	return STM[Void]{op: func(j *journal, _ TxnID, _ *int32) texit {
		e := j.entryFor(ref)
		e.newValue = a
		e.isChanged = true
		return succeedExit(Void{})
	}}
}

// Update transforms the cell's value with f.
func (ref *TRef[A]) Update(f func(A) A) STM[Void] {
	return STM[Void]{op: func(j *journal, _ TxnID, _ *int32) texit {
		e := j.entryFor(ref)
		e.newValue = f(cast[A](e.newValue))
		e.isChanged = true
		return succeedExit(Void{})
	}}
}

// GetAndUpdate transforms the cell's value with f and returns the old value.
func (ref *TRef[A]) GetAndUpdate(f func(A) A) STM[A] {
	return STM[A]{op: func(j *journal, _ TxnID, _ *int32) texit {
		e := j.entryFor(ref)
		old := cast[A](e.newValue)
		e.newValue = f(old)
		e.isChanged = true
		return succeedExit(old)
	}}
}

// Modify transforms the cell's value with f and returns f's first result.
func Modify[A, B any](ref *TRef[A], f func(A) (B, A)) STM[B] {
	return STM[B]{op: func(j *journal, _ TxnID, _ *int32) texit {
		e := j.entryFor(ref)
		b, next := f(cast[A](e.newValue))
		e.newValue = next
		e.isChanged = true
		return succeedExit(b)
	}}
}

// AtomicGet is a helper function that atomically reads a cell. Since reading
// is a single operation, it doesn't need a full transaction: publication
// happens under the global lock, so an acquire-load of the current container
// observes a committed value.
func AtomicGet[A any](ref *TRef[A]) A {
	return cast[A](ref.versioned.Load().value)
}

// AtomicSet is a helper function that atomically writes a cell, waking any
// transactions suspended on it.
func AtomicSet[A any](ref *TRef[A], a A) {
	globalLock.Lock()
	ref.publish(newVersioned(a))
	globalLock.Unlock()
	for _, fn := range drainTodos(ref) {
		execute(fn)
	}
}

// drainTodos atomically removes and returns every wake-up callback
// registered on ref.
func drainTodos(ref txVar) []func() {
	for {
		old := ref.currentTodos()
		if old.Len() == 0 {
			return nil
		}
		if !ref.swapTodos(old, emptyTodos) {
			continue
		}
		fns := make([]func(), 0, old.Len())
		for it := old.Iterator(); !it.Done(); {
			_, fn, _ := it.Next()
			fns = append(fns, fn)
		}
		return fns
	}
}

// addTodo registers a wake-up callback for txid on ref. It reports whether a
// new registration occurred; a transaction already registered on ref is left
// alone.
func addTodo(txid TxnID, ref txVar, fn func()) bool {
	for {
		old := ref.currentTodos()
		if _, ok := old.Get(txid); ok {
			return false
		}
		if ref.swapTodos(old, old.Set(txid, fn)) {
			return true
		}
	}
}
