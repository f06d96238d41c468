package stm

// FlatMap sequences f after s, feeding it s's result. Failure and retry
// short-circuit; f never runs for them.
func FlatMap[A, B any](s STM[A], f func(A) STM[B]) STM[B] {
	return STM[B]{op: continueWith(s.op, func(ex texit) opFunc {
		if ex.kind == exitSucceed {
			return f(cast[A](ex.value)).op
		}
		return doneOp(ex)
	})}
}

// Map transforms s's result with f.
func Map[A, B any](s STM[A], f func(A) B) STM[B] {
	return FlatMap(s, func(a A) STM[B] { return Succeed(f(a)) })
}

// Flatten runs the inner transaction produced by s.
func Flatten[A any](s STM[STM[A]]) STM[A] {
	return FlatMap(s, func(inner STM[A]) STM[A] { return inner })
}

// As replaces s's result with b.
func As[A, B any](s STM[A], b B) STM[B] {
	return Map(s, func(A) B { return b })
}

// ZipWith runs sa then sb and combines their results with f. sb runs only if
// sa succeeds.
func ZipWith[A, B, C any](sa STM[A], sb STM[B], f func(A, B) C) STM[C] {
	return FlatMap(sa, func(a A) STM[C] {
		return Map(sb, func(b B) C { return f(a, b) })
	})
}

// Zip runs sa then sb and pairs their results.
func Zip[A, B any](sa STM[A], sb STM[B]) STM[Pair[A, B]] {
	return ZipWith(sa, sb, func(a A, b B) Pair[A, B] { return Pair[A, B]{First: a, Second: b} })
}

// ZipLeft runs sa then sb, keeping sa's result.
func ZipLeft[A, B any](sa STM[A], sb STM[B]) STM[A] {
	return ZipWith(sa, sb, func(a A, _ B) A { return a })
}

// ZipRight runs sa then sb, keeping sb's result.
func ZipRight[A, B any](sa STM[A], sb STM[B]) STM[B] {
	return ZipWith(sa, sb, func(_ A, b B) B { return b })
}

// FoldSTM continues with onErr on failure and onSucc on success. Retry
// passes through untouched; defects are not observed.
func FoldSTM[A, B any](s STM[A], onErr func(error) STM[B], onSucc func(A) STM[B]) STM[B] {
	return STM[B]{op: continueWith(s.op, func(ex texit) opFunc {
		switch ex.kind {
		case exitSucceed:
			return onSucc(cast[A](ex.value)).op
		case exitFail:
			return onErr(ex.err).op
		default:
			return doneOp(ex)
		}
	})}
}

// Fold reduces both the failure and success channels to a value of type B.
func Fold[A, B any](s STM[A], onErr func(error) B, onSucc func(A) B) STM[B] {
	return FoldSTM(s,
		func(err error) STM[B] { return Succeed(onErr(err)) },
		func(a A) STM[B] { return Succeed(onSucc(a)) },
	)
}

// Collect maps s's result through a partial function, retrying when the
// function is undefined for it.
func Collect[A, B any](s STM[A], pf func(A) (B, bool)) STM[B] {
	return FlatMap(s, func(a A) STM[B] {
		if b, ok := pf(a); ok {
			return Succeed(b)
		}
		return Retry[B]()
	})
}

// CollectSTM is Collect with a transactional partial function.
func CollectSTM[A, B any](s STM[A], pf func(A) (STM[B], bool)) STM[B] {
	return FlatMap(s, func(a A) STM[B] {
		if sb, ok := pf(a); ok {
			return sb
		}
		return Retry[B]()
	})
}

// OrElse runs s; if it fails or retries, everything it touched is rolled
// back to the state before it began and that runs instead.
func (s STM[A]) OrElse(that STM[A]) STM[A] {
	return STM[A]{op: func(j *journal, txid TxnID, frames *int32) texit {
		reset := j.prepareReset()
		return continueWith(s.op, func(ex texit) opFunc {
			switch ex.kind {
			case exitFail, exitRetry:
				reset()
				return that.op
			default:
				return doneOp(ex)
			}
		})(j, txid, frames)
	}}
}

// OrElseEither is OrElse keeping track of which side produced the result:
// Left for sa, Right for sb.
func OrElseEither[A, B any](sa STM[A], sb STM[B]) STM[Either[A, B]] {
	left := Map(sa, func(a A) Either[A, B] { return Left[A, B](a) })
	right := Map(sb, func(b B) Either[A, B] { return Right[A, B](b) })
	return left.OrElse(right)
}

// Ensuring runs finalizer on both the success and failure paths of s,
// preserving s's outcome. If the whole transaction aborts, the finalizer's
// effects roll back with everything else. Retry passes through without
// running the finalizer: the rerun attempt starts from scratch anyway.
func (s STM[A]) Ensuring(finalizer STM[Void]) STM[A] {
	return FoldSTM(s,
		func(err error) STM[A] { return ZipRight(finalizer, Fail[A](err)) },
		func(a A) STM[A] { return ZipRight(finalizer, Succeed(a)) },
	)
}

// Filter retries when p rejects s's result.
func (s STM[A]) Filter(p func(A) bool) STM[A] {
	return FlatMap(s, func(a A) STM[A] {
		if p(a) {
			return Succeed(a)
		}
		return Retry[A]()
	})
}

// MapError transforms the failure channel with f.
func (s STM[A]) MapError(f func(error) error) STM[A] {
	return FoldSTM(s,
		func(err error) STM[A] { return Fail[A](f(err)) },
		Succeed[A],
	)
}

// AsError replaces any failure with err.
func (s STM[A]) AsError(err error) STM[A] {
	return s.MapError(func(error) error { return err })
}

// Fallback recovers from failure with the constant a.
func (s STM[A]) Fallback(a A) STM[A] {
	return Fold(s, func(error) A { return a }, func(v A) A { return v })
}

// Either surfaces the failure channel as a Left value, making the
// transaction infallible.
func (s STM[A]) Either() STM[Either[error, A]] {
	return Fold(s,
		func(err error) Either[error, A] { return Left[error, A](err) },
		func(a A) Either[error, A] { return Right[error, A](a) },
	)
}

// Option converts failure to None and success to Some.
func (s STM[A]) Option() STM[Option[A]] {
	return Fold(s,
		func(error) Option[A] { return None[A]() },
		Some[A],
	)
}

// Unit discards s's result, keeping its failure channel.
func (s STM[A]) Unit() STM[Void] {
	return As(s, Void{})
}

// Ignore discards both s's result and its failure.
func (s STM[A]) Ignore() STM[Void] {
	return Fold(s, func(error) Void { return Void{} }, func(A) Void { return Void{} })
}

// CollectAll runs the transactions in order and collects their results.
func CollectAll[A any](stms []STM[A]) STM[[]A] {
	acc := Succeed(make([]A, 0, len(stms)))
	for _, s := range stms {
		s := s
		acc = FlatMap(acc, func(as []A) STM[[]A] {
			return Map(s, func(a A) []A { return append(as, a) })
		})
	}
	return acc
}

// Foreach maps every element of xs through f, running the resulting
// transactions in order and collecting their results.
func Foreach[A, B any](xs []A, f func(A) STM[B]) STM[[]B] {
	acc := Succeed(make([]B, 0, len(xs)))
	for _, x := range xs {
		x := x
		acc = FlatMap(acc, func(bs []B) STM[[]B] {
			return Map(f(x), func(b B) []B { return append(bs, b) })
		})
	}
	return acc
}

// ForeachDiscard is Foreach without result collection.
func ForeachDiscard[A, B any](xs []A, f func(A) STM[B]) STM[Void] {
	acc := Succeed(Void{})
	for _, x := range xs {
		x := x
		acc = FlatMap(acc, func(Void) STM[Void] { return f(x).Unit() })
	}
	return acc
}
