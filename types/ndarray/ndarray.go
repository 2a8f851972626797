// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ndarray implements a dense N-dimensional array of integer values,
// stored flat in row-major order.
//
// It is the storage used for tile-to-device assignments: each coordinate of
// the array is a tile position, and the value stored there is the id of the
// device owning that tile.
package ndarray

import (
	"iter"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Array is a dense N-dimensional array of T, in row-major order.
//
// The zero value is an empty rank-0 array with a single element. Use New or
// FromFlat to create one with the desired extents.
type Array[T constraints.Integer] struct {
	dims   []int
	values []T
}

// New creates a zero-initialized Array with the given dimensions.
// Dimensions must be non-negative -- a zero dimension makes an empty array.
func New[T constraints.Integer](dimensions ...int) *Array[T] {
	size := 1
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("ndarray.New: dimensions must be non-negative, got %v", dimensions)
		}
		size *= dim
	}
	return &Array[T]{
		dims:   slices.Clone(dimensions),
		values: make([]T, size),
	}
}

// FromFlat creates an Array with the given dimensions from a row-major flat
// slice of values. The flat slice is copied.
func FromFlat[T constraints.Integer](dimensions []int, values []T) (*Array[T], error) {
	a := New[T](dimensions...)
	if len(values) != len(a.values) {
		return nil, errors.Errorf("ndarray.FromFlat: dimensions %v require %d values, got %d",
			dimensions, len(a.values), len(values))
	}
	copy(a.values, values)
	return a, nil
}

// Rank returns the number of axes of the array.
func (a *Array[T]) Rank() int { return len(a.dims) }

// Dimensions returns a copy of the per-axis extents.
func (a *Array[T]) Dimensions() []int { return slices.Clone(a.dims) }

// Dim returns the extent of the given axis.
func (a *Array[T]) Dim(axis int) int { return a.dims[axis] }

// Size returns the total number of elements, the product of all dimensions.
func (a *Array[T]) Size() int { return len(a.values) }

// Flat returns a copy of the values in row-major order.
func (a *Array[T]) Flat() []T { return slices.Clone(a.values) }

// flatIndex converts per-axis indices to the row-major flat position.
// It panics on rank mismatch or out-of-bounds indices.
func (a *Array[T]) flatIndex(indices []int) int {
	if len(indices) != a.Rank() {
		exceptions.Panicf("ndarray: got %d indices for array of rank %d", len(indices), a.Rank())
	}
	flat := 0
	for axis, idx := range indices {
		if idx < 0 || idx >= a.dims[axis] {
			exceptions.Panicf("ndarray: index %d out-of-bounds for axis %d with dimension %d", idx, axis, a.dims[axis])
		}
		flat = flat*a.dims[axis] + idx
	}
	return flat
}

// InBounds returns whether the given indices address an element of the array.
func (a *Array[T]) InBounds(indices []int) bool {
	if len(indices) != a.Rank() {
		return false
	}
	for axis, idx := range indices {
		if idx < 0 || idx >= a.dims[axis] {
			return false
		}
	}
	return true
}

// At returns the value at the given per-axis indices.
// It panics on rank mismatch or out-of-bounds indices.
func (a *Array[T]) At(indices ...int) T {
	return a.values[a.flatIndex(indices)]
}

// Set stores value at the given per-axis indices.
// It panics on rank mismatch or out-of-bounds indices.
func (a *Array[T]) Set(indices []int, value T) {
	a.values[a.flatIndex(indices)] = value
}

// Equal returns whether the two arrays have the same dimensions and the same
// values at every position. A nil array only equals another nil array.
func (a *Array[T]) Equal(other *Array[T]) bool {
	if a == nil || other == nil {
		return a == other
	}
	return slices.Equal(a.dims, other.dims) && slices.Equal(a.values, other.values)
}

// Clone returns a new deep copy of the array.
func (a *Array[T]) Clone() *Array[T] {
	return &Array[T]{
		dims:   slices.Clone(a.dims),
		values: slices.Clone(a.values),
	}
}

// Iter iterates over all elements of the array in row-major order.
//
// It yields the per-axis indices and the value stored there. The yielded
// indices slice is owned by Iter and updated in place: don't modify it and
// don't retain it across iterations.
func (a *Array[T]) Iter() iter.Seq2[[]int, T] {
	return func(yield func([]int, T) bool) {
		rank := a.Rank()
		indices := make([]int, rank)
		for _, value := range a.values {
			if !yield(indices, value) {
				return
			}
			// Increment indices like a row-major odometer.
			for axis := rank - 1; axis >= 0; axis-- {
				indices[axis]++
				if indices[axis] < a.dims[axis] {
					break
				}
				indices[axis] = 0
			}
		}
	}
}

// Find returns the per-axis indices of the first element (in row-major order)
// equal to value, or ok=false if the value is not present.
func (a *Array[T]) Find(value T) (indices []int, ok bool) {
	for idx, v := range a.values {
		if v != value {
			continue
		}
		indices = make([]int, a.Rank())
		remaining := idx
		for axis := a.Rank() - 1; axis >= 0; axis-- {
			indices[axis] = remaining % a.dims[axis]
			remaining /= a.dims[axis]
		}
		return indices, true
	}
	return nil, false
}

// Contains returns whether any element of the array equals value.
func (a *Array[T]) Contains(value T) bool {
	return slices.Contains(a.values, value)
}
