package stm

// Void is the result type of transactions run only for their effects.
type Void struct{}

// A Pair carries the two results of a Zip.
type Pair[A, B any] struct {
	First  A
	Second B
}

// An Either holds exactly one of a left or a right value.
type Either[L, R any] struct {
	left   L
	right  R
	isLeft bool
}

// Left returns an Either holding l.
func Left[L, R any](l L) Either[L, R] { return Either[L, R]{left: l, isLeft: true} }

// Right returns an Either holding r.
func Right[L, R any](r R) Either[L, R] { return Either[L, R]{right: r} }

// IsLeft reports whether the Either holds a left value.
func (e Either[L, R]) IsLeft() bool { return e.isLeft }

// IsRight reports whether the Either holds a right value.
func (e Either[L, R]) IsRight() bool { return !e.isLeft }

// Left returns the left value, or the zero value if the Either is a right.
func (e Either[L, R]) Left() L { return e.left }

// Right returns the right value, or the zero value if the Either is a left.
func (e Either[L, R]) Right() R { return e.right }

// An Option is a value that may be absent.
type Option[A any] struct {
	value A
	ok    bool
}

// Some returns an Option holding a.
func Some[A any](a A) Option[A] { return Option[A]{value: a, ok: true} }

// None returns the absent Option.
func None[A any]() Option[A] { return Option[A]{} }

// IsSome reports whether the Option holds a value.
func (o Option[A]) IsSome() bool { return o.ok }

// Get returns the value and whether it is present.
func (o Option[A]) Get() (A, bool) { return o.value, o.ok }

// OrElse returns the value if present, else a.
func (o Option[A]) OrElse(a A) A {
	if o.ok {
		return o.value
	}
	return a
}
