package quarry

// slot is a lazily filled cache entry. A slot is read through get, which runs
// build on a miss; callers invalidate it explicitly with reset.
type slot[T any] struct {
	v  T
	ok bool

	// valid, when set, lets a filled slot report its value as stale.
	valid func(T) bool
}

func (s *slot[T]) get(build func() (T, bool)) (T, bool) {
	if s.ok && (s.valid == nil || s.valid(s.v)) {
		return s.v, true
	}
	s.reset()
	v, ok := build()
	if ok {
		s.set(v)
	}
	return v, ok
}

func (s *slot[T]) peek() (T, bool) {
	if s.ok && (s.valid == nil || s.valid(s.v)) {
		return s.v, true
	}
	var zero T
	return zero, false
}

// raw returns the stored value even if valid rejects it.
func (s *slot[T]) raw() (T, bool) {
	return s.v, s.ok
}

func (s *slot[T]) set(v T) {
	s.v = v
	s.ok = true
}

func (s *slot[T]) reset() {
	var zero T
	s.v = zero
	s.ok = false
}
