package ecs

// Set is a generic typed map keyed by entity serial.
// No reflect, no interface{}; pure generics.
type Set[T any] struct {
	data map[uint32]*T
}

func NewSet[T any](capacity int) *Set[T] {
	return &Set[T]{
		data: make(map[uint32]*T, capacity),
	}
}

func (s *Set[T]) Put(serial uint32, v *T) {
	s.data[serial] = v
}

func (s *Set[T]) Get(serial uint32) (*T, bool) {
	v, ok := s.data[serial]
	return v, ok
}

func (s *Set[T]) Remove(serial uint32) {
	delete(s.data, serial)
}

func (s *Set[T]) Has(serial uint32) bool {
	_, ok := s.data[serial]
	return ok
}

func (s *Set[T]) Len() int {
	return len(s.data)
}

// Each visits every member. Mutating the set from fn is allowed for the
// member being visited only.
func (s *Set[T]) Each(fn func(uint32, *T)) {
	for serial, v := range s.data {
		fn(serial, v)
	}
}

// AppendTo appends every member to buf and returns the extended slice.
func (s *Set[T]) AppendTo(buf []*T) []*T {
	for _, v := range s.data {
		buf = append(buf, v)
	}
	return buf
}
