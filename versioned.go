package stm

// A versioned wraps a cell value in a container with a stable identity. Two
// versioned containers denote the same version iff they are the same object;
// commit always allocates a fresh container, so value-level ABA cannot fool
// validation. Containers must never be pooled or interned.
type versioned struct {
	value any
}

func newVersioned(value any) *versioned {
	return &versioned{value: value}
}
