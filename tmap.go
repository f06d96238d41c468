package stm

import (
	"github.com/benbjohnson/immutable"
)

// A TMap is a transactional map: a persistent immutable.Map held in a single
// cell, so every update installs a fresh map version and readers always see
// a consistent snapshot. Cheap structural sharing keeps updates from copying
// the whole map.
type TMap[K comparable, V any] struct {
	ref *TRef[*immutable.Map[K, V]]
}

// NewTMap creates an empty transactional map inside the running transaction.
// Keys are hashed with immutable's default hasher, which supports the
// built-in integer and string types; use NewTMapWithHasher for anything
// else.
func NewTMap[K comparable, V any]() STM[*TMap[K, V]] {
	return NewTMapWithHasher[K, V](nil)
}

// NewTMapWithHasher is NewTMap with an explicit key hasher.
func NewTMapWithHasher[K comparable, V any](hasher immutable.Hasher[K]) STM[*TMap[K, V]] {
	return Map(MakeTRef(immutable.NewMap[K, V](hasher)), func(ref *TRef[*immutable.Map[K, V]]) *TMap[K, V] {
		return &TMap[K, V]{ref: ref}
	})
}

// Get returns the value bound to k, if any.
func (m *TMap[K, V]) Get(k K) STM[Option[V]] {
	return Map(m.ref.Get(), func(im *immutable.Map[K, V]) Option[V] {
		if v, ok := im.Get(k); ok {
			return Some(v)
		}
		return None[V]()
	})
}

// GetOrElse returns the value bound to k, or def if absent.
func (m *TMap[K, V]) GetOrElse(k K, def V) STM[V] {
	return Map(m.Get(k), func(o Option[V]) V { return o.OrElse(def) })
}

// Contains reports whether k is bound.
func (m *TMap[K, V]) Contains(k K) STM[bool] {
	return Map(m.Get(k), func(o Option[V]) bool { return o.IsSome() })
}

// Put binds k to v.
func (m *TMap[K, V]) Put(k K, v V) STM[Void] {
	return m.ref.Update(func(im *immutable.Map[K, V]) *immutable.Map[K, V] {
		return im.Set(k, v)
	})
}

// Delete removes k's binding, if any.
func (m *TMap[K, V]) Delete(k K) STM[Void] {
	return m.ref.Update(func(im *immutable.Map[K, V]) *immutable.Map[K, V] {
		return im.Delete(k)
	})
}

// Len returns the number of bindings.
func (m *TMap[K, V]) Len() STM[int] {
	return Map(m.ref.Get(), func(im *immutable.Map[K, V]) int { return im.Len() })
}

// Keys returns the bound keys, in arbitrary order.
func (m *TMap[K, V]) Keys() STM[[]K] {
	return Map(m.ref.Get(), func(im *immutable.Map[K, V]) []K {
		keys := make([]K, 0, im.Len())
		for it := im.Iterator(); !it.Done(); {
			k, _, _ := it.Next()
			keys = append(keys, k)
		}
		return keys
	})
}

// Values returns the bound values, in arbitrary order.
func (m *TMap[K, V]) Values() STM[[]V] {
	return Map(m.ref.Get(), func(im *immutable.Map[K, V]) []V {
		values := make([]V, 0, im.Len())
		for it := im.Iterator(); !it.Done(); {
			_, v, _ := it.Next()
			values = append(values, v)
		}
		return values
	})
}

// FoldTMap reduces the map's bindings with f, starting from zero. Iteration
// order is arbitrary.
func FoldTMap[K comparable, V, B any](m *TMap[K, V], zero B, f func(B, K, V) B) STM[B] {
	return Map(m.ref.Get(), func(im *immutable.Map[K, V]) B {
		acc := zero
		for it := im.Iterator(); !it.Done(); {
			k, v, _ := it.Next()
			acc = f(acc, k, v)
		}
		return acc
	})
}
