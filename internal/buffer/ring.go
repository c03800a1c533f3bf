// Package buffer provides the bounded buffers backing the candle series.
package buffer

// Ring is a bounded ring buffer keeping the last capacity elements.
// Indexing is end-aligned, negative indices address from the newest element.
type Ring[T any] struct {
	index  int
	count  int
	values []T
}

// NewRing creates a new ring with the given capacity.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{
		values: make([]T, capacity),
	}
}

// Capacity returns the maximum number of elements the ring can hold.
func (r *Ring[T]) Capacity() int {
	return len(r.values)
}

// Size returns the number of elements currently stored.
func (r *Ring[T]) Size() int {
	if r.count < len(r.values) {
		return r.count
	}
	return len(r.values)
}

// Push adds an element, evicting the oldest one at capacity.
func (r *Ring[T]) Push(v T) {
	r.values[r.index] = v
	r.index = (r.index + 1) % len(r.values)
	r.count++
}

// At returns the element at the given position.
// Negative positions count from the end, -1 being the newest element.
func (r *Ring[T]) At(i int) (T, bool) {
	var zero T
	size := r.Size()
	if i < 0 {
		i = size + i
	}
	if i < 0 || i >= size {
		return zero, false
	}
	start := 0
	if r.count > size {
		start = r.index
	}
	return r.values[(start+i)%len(r.values)], true
}

// Last returns the newest element.
func (r *Ring[T]) Last() (T, bool) {
	return r.At(-1)
}

// SetLast replaces the newest element in place.
func (r *Ring[T]) SetLast(v T) bool {
	if r.Size() == 0 {
		return false
	}
	r.values[(r.index-1+len(r.values))%len(r.values)] = v
	return true
}

// Values returns the stored elements ordered oldest first.
func (r *Ring[T]) Values() []T {
	size := r.Size()
	out := make([]T, size)
	for i := 0; i < size; i++ {
		v, _ := r.At(i)
		out[i] = v
	}
	return out
}

// Clear removes all elements.
func (r *Ring[T]) Clear() {
	r.index = 0
	r.count = 0
	var zero T
	for i := range r.values {
		r.values[i] = zero
	}
}
