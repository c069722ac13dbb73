package access

import "iter"

// All iterates elements in index order.
func (v Vector) All() iter.Seq2[int, Reference] {
	return func(yield func(int, Reference) bool) {
		for i, l := 0, v.Size(); i < l; i++ {
			if !yield(i, v.At(i)) {
				return
			}
		}
	}
}

// All iterates elements in index order.
func (v TypedVector) All() iter.Seq2[int, Reference] {
	return func(yield func(int, Reference) bool) {
		for i, l := 0, v.Size(); i < l; i++ {
			if !yield(i, v.At(i)) {
				return
			}
		}
	}
}

// All iterates entries in sorted key order.
func (m Map) All() iter.Seq2[string, Reference] {
	return func(yield func(string, Reference) bool) {
		keys := m.Keys()
		for i, l := 0, m.Size(); i < l; i++ {
			if !yield(keys.At(i).AsKey(), m.At(i)) {
				return
			}
		}
	}
}
