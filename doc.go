/*
Package stm provides composable Software Transactional Memory for Go. It is
an alternative to the standard way of writing concurrent code (channels and
mutexes): arbitrarily many reads and writes over shared transactional cells
are grouped into a single atomic, isolated unit that either commits as a
whole or has no effect. Unlike locks, transactions compose -- combining two
correct transactions yields a correct transaction, with no lock ordering to
get wrong.

A transaction is a value of type STM[A]: a description of a computation, not
the computation itself. Constructing one has no effect; running it with
Atomically executes it against a private journal, validates the journal
against the shared cells, and publishes all of its writes or none.

To begin, create a TRef that wraps the data you want to access concurrently:

	x := stm.NewTRef(3)

Read and write it inside a transaction. This code atomically decrements x:

	_, err := stm.Atomically(ctx, stm.FlatMap(x.Get(), func(cur int) stm.STM[stm.Void] {
		return x.Set(cur - 1)
	}))

or, equivalently:

	_, err := x.Update(func(cur int) int { return cur - 1 }).Commit(ctx)

An important part of STM is retrying. Retry aborts the current attempt and
suspends the transaction until one of the cells it read changes, at which
point it is rerun from the start. Check(p) is the common shorthand: it
retries until the condition holds. This blocks as long as x is zero, then
decrements it:

	dec := stm.FlatMap(x.Get(), func(cur int) stm.STM[stm.Void] {
		return stm.ZipRight(stm.Check(cur > 0), x.Set(cur-1))
	})
	_, err := dec.Commit(ctx)

Alternatives compose with OrElse. If the first transaction fails or retries,
everything it touched is rolled back and the second runs instead; only if
both retry does the whole transaction suspend:

	stm.Atomically(ctx, decX.OrElse(decY))

Failure is a first-class outcome: Fail aborts the transaction, discarding
every tentative write, and surfaces the error from Atomically. Failures are
recoverable inside the transaction with Fold, FoldSTM, OrElse, or Either.
Defects (Die, DieMessage) are different: they are non-recoverable bugs that
escape Atomically as a panic, publishing nothing.

Transactions may run many times before committing, so they must be free of
side effects: no I/O, no mutation of shared non-transactional state. Build
up a description of impure work inside the transaction and perform it after
Atomically returns.

Cells are validated by version identity, not value equality, so an update
that re-installs an equal value still invalidates concurrent readers, and
long chains of FlatMap run in constant host stack space. The package also
ships transactional data structures built on the same core: TMap, TQueue,
and TSemaphore.
*/
package stm
