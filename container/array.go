package container

import (
	"fmt"
	"iter"
)

// ArrayInitialCapacity is used when NewArray is given a non-positive capacity.
const ArrayInitialCapacity = 10

// ---------------------------------------------------------------------------
// Array: ordered sequence of borrowed elements
// ---------------------------------------------------------------------------

// Array is an ordered sequence with explicit capacity tracking. It does not
// own its elements: removing or clearing never releases them. Use Owned for
// a sequence that is responsible for its elements.
type Array[T any] struct {
	items []T
}

// NewArray returns an empty array with the given initial capacity.
func NewArray[T any](capacity int) *Array[T] {
	if capacity <= 0 {
		capacity = ArrayInitialCapacity
	}
	return &Array[T]{items: make([]T, 0, capacity)}
}

// Len returns the number of elements.
func (a *Array[T]) Len() int { return len(a.items) }

// Cap returns the allocated capacity.
func (a *Array[T]) Cap() int { return cap(a.items) }

func (a *Array[T]) checkIndex(i int) error {
	if i < 0 || i >= len(a.items) {
		return fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfBounds, i, len(a.items))
	}
	return nil
}

// Add appends item, growing the backing array when it is full.
func (a *Array[T]) Add(item T) {
	next := growCapacity(cap(a.items), len(a.items), 1, cap(a.items)-1)
	if next != cap(a.items) {
		grown := make([]T, len(a.items), next)
		copy(grown, a.items)
		a.items = grown
	}
	a.items = append(a.items, item)
}

// Get returns the element at index i.
func (a *Array[T]) Get(i int) (T, error) {
	if err := a.checkIndex(i); err != nil {
		var zero T
		return zero, err
	}
	return a.items[i], nil
}

// RemoveAt removes and returns the element at index i, shifting later
// elements left.
func (a *Array[T]) RemoveAt(i int) (T, error) {
	if err := a.checkIndex(i); err != nil {
		var zero T
		return zero, err
	}
	item := a.items[i]
	copy(a.items[i:], a.items[i+1:])
	var zero T
	a.items[len(a.items)-1] = zero
	a.items = a.items[:len(a.items)-1]
	return item, nil
}

// RemoveAndDestroy runs destroy on the element at index i, then removes it.
func (a *Array[T]) RemoveAndDestroy(i int, destroy func(T)) error {
	item, err := a.Get(i)
	if err != nil {
		return err
	}
	destroy(item)
	_, err = a.RemoveAt(i)
	return err
}

// Contains reports whether any element equals target under eq.
func (a *Array[T]) Contains(target T, eq func(a, b T) bool) bool {
	for _, item := range a.items {
		if eq(target, item) {
			return true
		}
	}
	return false
}

// IndexEquals compares target with the element at index i.
func (a *Array[T]) IndexEquals(target T, i int, eq func(a, b T) bool) (bool, error) {
	item, err := a.Get(i)
	if err != nil {
		return false, err
	}
	return eq(target, item), nil
}

// All iterates over index/element pairs in order.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, item := range a.items {
			if !yield(i, item) {
				return
			}
		}
	}
}

// Values returns a copy of the elements.
func (a *Array[T]) Values() []T {
	out := make([]T, len(a.items))
	copy(out, a.items)
	return out
}

// Clear empties the array, keeping its capacity. A non-nil destroy is run
// on every element first; pass nil only when the elements are owned elsewhere.
func (a *Array[T]) Clear(destroy func(T)) {
	if destroy != nil {
		for _, item := range a.items {
			destroy(item)
		}
	}
	clear(a.items)
	a.items = a.items[:0]
}

// DestroyShallow releases the backing array without touching elements.
func (a *Array[T]) DestroyShallow() {
	a.items = nil
}

// DestroyDeep runs destroy on every element, then releases the backing array.
func (a *Array[T]) DestroyDeep(destroy func(T)) {
	for _, item := range a.items {
		destroy(item)
	}
	a.DestroyShallow()
}

// ---------------------------------------------------------------------------
// Owned: ordered sequence that owns its elements
// ---------------------------------------------------------------------------

// Releaser is implemented by elements that hold resources of their own.
type Releaser interface {
	Release()
}

// Owned is an Array responsible for its elements. Removing or clearing an
// element releases it; Take moves an element out without releasing it.
type Owned[T Releaser] struct {
	arr Array[T]
}

// NewOwned returns an empty owning array.
func NewOwned[T Releaser](capacity int) *Owned[T] {
	return &Owned[T]{arr: *NewArray[T](capacity)}
}

// Len returns the number of elements.
func (o *Owned[T]) Len() int { return o.arr.Len() }

// Cap returns the allocated capacity.
func (o *Owned[T]) Cap() int { return o.arr.Cap() }

// Add appends item; the array takes ownership of it.
func (o *Owned[T]) Add(item T) { o.arr.Add(item) }

// Get returns the element at index i. The element stays owned by o.
func (o *Owned[T]) Get(i int) (T, error) { return o.arr.Get(i) }

// All iterates over index/element pairs in order.
func (o *Owned[T]) All() iter.Seq2[int, T] { return o.arr.All() }

// Values returns a copy of the element handles.
func (o *Owned[T]) Values() []T { return o.arr.Values() }

// Contains reports whether any element equals target under eq.
func (o *Owned[T]) Contains(target T, eq func(a, b T) bool) bool {
	return o.arr.Contains(target, eq)
}

// IndexEquals compares target with the element at index i.
func (o *Owned[T]) IndexEquals(target T, i int, eq func(a, b T) bool) (bool, error) {
	return o.arr.IndexEquals(target, i, eq)
}

// RemoveAt releases and removes the element at index i.
func (o *Owned[T]) RemoveAt(i int) error {
	return o.arr.RemoveAndDestroy(i, release[T])
}

// Take removes the element at index i and hands ownership to the caller.
func (o *Owned[T]) Take(i int) (T, error) {
	return o.arr.RemoveAt(i)
}

// Clear releases every element and empties the array.
func (o *Owned[T]) Clear() {
	o.arr.Clear(release[T])
}

// Release releases every element and the backing array.
func (o *Owned[T]) Release() {
	o.arr.DestroyDeep(release[T])
}

func release[T Releaser](item T) { item.Release() }
