package containers

import "errors"

var (
	ErrSlabFull        = errors.New("slab is full")
	ErrSlabStaleHandle = errors.New("stale slab handle")
	ErrSlabOutOfRange  = errors.New("slab index out of range")
	ErrSlabOccupied    = errors.New("slab slot occupied")
)

// Handle addresses a slab entry. A handle stays valid until its entry is
// removed; the slot can then be reused under a higher generation.
type Handle struct {
	Index      uint32
	Generation uint32
}

type slabEntry[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Slab stores values in reusable slots addressed by generational handles.
// Iteration follows insertion order. A capacity of zero means unbounded.
type Slab[T any] struct {
	entries  []slabEntry[T]
	order    []uint32
	capacity uint32
	count    uint32
}

func NewSlab[T any](capacity uint32) *Slab[T] {
	s := &Slab[T]{capacity: capacity}
	if capacity > 0 {
		s.entries = make([]slabEntry[T], capacity)
	}
	return s
}

// Insert stores value in the lowest free slot.
func (s *Slab[T]) Insert(value T) (Handle, error) {
	for i := range s.entries {
		if !s.entries[i].occupied {
			return s.place(uint32(i), value), nil
		}
	}
	if s.capacity > 0 {
		return Handle{}, ErrSlabFull
	}
	s.entries = append(s.entries, slabEntry[T]{})
	return s.place(uint32(len(s.entries)-1), value), nil
}

// InsertAt stores value in a specific empty slot of a bounded slab.
func (s *Slab[T]) InsertAt(index uint32, value T) (Handle, error) {
	if index >= uint32(len(s.entries)) {
		return Handle{}, ErrSlabOutOfRange
	}
	if s.entries[index].occupied {
		return Handle{}, ErrSlabOccupied
	}
	return s.place(index, value), nil
}

func (s *Slab[T]) place(index uint32, value T) Handle {
	e := &s.entries[index]
	e.value = value
	e.occupied = true
	s.order = append(s.order, index)
	s.count++
	return Handle{Index: index, Generation: e.generation}
}

func (s *Slab[T]) Get(h Handle) (T, bool) {
	var zero T
	if !s.Valid(h) {
		return zero, false
	}
	return s.entries[h.Index].value, true
}

// At returns the value in slot index regardless of generation.
func (s *Slab[T]) At(index uint32) (T, Handle, bool) {
	var zero T
	if index >= uint32(len(s.entries)) || !s.entries[index].occupied {
		return zero, Handle{}, false
	}
	e := s.entries[index]
	return e.value, Handle{Index: index, Generation: e.generation}, true
}

func (s *Slab[T]) Valid(h Handle) bool {
	return h.Index < uint32(len(s.entries)) &&
		s.entries[h.Index].occupied &&
		s.entries[h.Index].generation == h.Generation
}

// Remove empties the slot of h and returns the value it held.
func (s *Slab[T]) Remove(h Handle) (T, error) {
	var zero T
	if !s.Valid(h) {
		return zero, ErrSlabStaleHandle
	}
	e := &s.entries[h.Index]
	value := e.value
	e.value = zero
	e.occupied = false
	e.generation++
	s.count--
	for i, idx := range s.order {
		if idx == h.Index {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return value, nil
}

// Each visits live entries in insertion order. Returning false stops the walk.
func (s *Slab[T]) Each(fn func(h Handle, value T) bool) {
	for _, idx := range s.order {
		e := s.entries[idx]
		if !fn(Handle{Index: idx, Generation: e.generation}, e.value) {
			return
		}
	}
}

// EachSlot visits live entries in slot order.
func (s *Slab[T]) EachSlot(fn func(h Handle, value T) bool) {
	for i, e := range s.entries {
		if !e.occupied {
			continue
		}
		if !fn(Handle{Index: uint32(i), Generation: e.generation}, e.value) {
			return
		}
	}
}

func (s *Slab[T]) Len() uint32 {
	return s.count
}

// Cap returns the configured capacity, zero when unbounded.
func (s *Slab[T]) Cap() uint32 {
	return s.capacity
}
