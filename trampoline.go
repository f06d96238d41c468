package stm

// maxFrames bounds how many continuation steps run on the host stack before
// execution is unwound to the driver and re-driven from its explicit stack.
const maxFrames = 200

// A cont continues execution with the outcome of the previous step.
type cont func(ex texit) opFunc

// A resumable carries a computation and its pending continuations out of a
// too-deep call chain. It is thrown via panic, like the retry sentinel in
// classic STM implementations, and is never observed outside the package:
// the driver catches it, moves the continuations onto its own stack, and
// resumes. conts is ordered innermost-first.
type resumable struct {
	current opFunc
	conts   []cont
}

// continueWith sequences k after self, keeping host stack depth bounded.
func continueWith(self opFunc, k cont) opFunc {
	return func(j *journal, txid TxnID, frames *int32) texit {
		*frames++
		if *frames > maxFrames {
			panic(&resumable{current: self, conts: []cont{k}})
		}
		ex := runChild(self, k, j, txid, frames)
		return k(ex)(j, txid, frames)
	}
}

// runChild executes self, attaching k to any resumable unwinding past it so
// the driver can replay the full continuation chain.
func runChild(self opFunc, k cont, j *journal, txid TxnID, frames *int32) (ex texit) {
	defer func() {
		if r := recover(); r != nil {
			if res, ok := r.(*resumable); ok {
				res.conts = append(res.conts, k)
			}
			panic(r)
		}
	}()
	return self(j, txid, frames)
}

// step runs op, turning a resumable unwind into a value. Any other panic
// (defects included) propagates.
func step(op opFunc, j *journal, txid TxnID, frames *int32) (ex texit, res *resumable) {
	defer func() {
		if r := recover(); r != nil {
			var ok bool
			if res, ok = r.(*resumable); ok {
				return
			}
			panic(r)
		}
	}()
	ex = op(j, txid, frames)
	return ex, nil
}

// runSTM drives one execution attempt to an outcome. Composition of
// arbitrarily many continuation steps uses O(maxFrames) host stack; the
// logical continuation depth lives on the driver's explicit stack.
func runSTM(op opFunc, j *journal, txid TxnID) texit {
	var (
		frames  int32
		stack   []cont
		current = op
	)
	for {
		ex, res := step(current, j, txid, &frames)
		if res != nil {
			current = res.current
			for i := len(res.conts) - 1; i >= 0; i-- {
				stack = append(stack, res.conts[i])
			}
			frames = 0
			continue
		}
		if len(stack) == 0 {
			return ex
		}
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		current = k(ex)
	}
}
