package typemap

// Len returns the number of stored types.
func (s *Store) Len() int {
	return s.n
}

// Buckets returns the bucket count.
func (s *Store) Buckets() int {
	return len(s.buckets)
}

// IsFull reports whether the next new type will grow the bucket array.
func (s *Store) IsFull() bool {
	return s.n == len(s.buckets)
}

// UsedStorage returns the bytes of the value arena in use, padding
// included.
func (s *Store) UsedStorage() int {
	if s.storage == nil {
		return 0
	}
	return s.storage.Len()
}

// StorageCapacity returns the capacity of the value arena in bytes.
func (s *Store) StorageCapacity() int {
	return s.capBytes
}

// UnusedStorage returns the bytes left in the value arena.
func (s *Store) UnusedStorage() int {
	return s.capBytes - s.UsedStorage()
}

// Generation increases every time stored values move or are forgotten.
func (s *Store) Generation() uint64 {
	return s.gen
}
