package stm

// An entry records one cell's participation in one execution attempt: the
// version observed at first touch, the tentative value after local writes,
// and whether the cell was created or written during the attempt.
//
// If isChanged is false, newValue equals expected.value; reads of the cell
// within the same attempt always return newValue.
type entry struct {
	ref       txVar
	expected  *versioned
	newValue  any
	isNew     bool
	isChanged bool
}

// isValid reports whether the cell still holds the version observed at first
// touch. Identity comparison, not value equality.
func (e *entry) isValid() bool { return e.ref.loadVersion() == e.expected }

func (e *entry) isInvalid() bool { return !e.isValid() }

// commit installs a fresh version holding the tentative value. Called only
// under the global lock, after validation.
func (e *entry) commit() { e.ref.publish(newVersioned(e.newValue)) }

// copy returns an independent copy of the entry, preserving the expected
// version pointer and flags, so a restored journal is semantically identical
// to the snapshot point.
func (e *entry) copy() *entry {
	c := *e
	return &c
}
