// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapetree associates one value of an arbitrary type to each leaf
// position of a (possibly nested tuple) shapes.Shape.
//
// Leaves are stored flat, in pre-order (depth-first, left-to-right) -- the
// canonical ordering used to line up tuple shardings with tuple shapes. A
// non-tuple shape has exactly one leaf; an empty tuple has none.
package shapetree

import (
	"iter"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/sharding/types/shapes"
	"github.com/pkg/errors"
)

// ShapeTree holds one value of type T per leaf position of a shape, in
// pre-order.
type ShapeTree[T any] struct {
	shape  shapes.Shape
	leaves []T
}

// New creates a ShapeTree for the given shape with zero-valued leaves.
func New[T any](shape shapes.Shape) *ShapeTree[T] {
	return &ShapeTree[T]{
		shape:  shape.Clone(),
		leaves: make([]T, shape.NumLeaves()),
	}
}

// NewWithValue creates a ShapeTree for the given shape with every leaf set to value.
func NewWithValue[T any](shape shapes.Shape, value T) *ShapeTree[T] {
	t := New[T](shape)
	for ii := range t.leaves {
		t.leaves[ii] = value
	}
	return t
}

// NewWithLeaves creates a ShapeTree for the given shape from a pre-order list
// of leaf values. The list is copied. It returns an error if the number of
// values doesn't match the shape's leaf count.
func NewWithLeaves[T any](shape shapes.Shape, leaves []T) (*ShapeTree[T], error) {
	if len(leaves) != shape.NumLeaves() {
		return nil, errors.Errorf("shapetree.NewWithLeaves: shape %s has %d leaves, got %d values",
			shape, shape.NumLeaves(), len(leaves))
	}
	return &ShapeTree[T]{
		shape:  shape.Clone(),
		leaves: slices.Clone(leaves),
	}, nil
}

// Shape returns the shape this tree is defined over.
func (t *ShapeTree[T]) Shape() shapes.Shape { return t.shape }

// NumLeaves returns the number of leaf positions.
func (t *ShapeTree[T]) NumLeaves() int { return len(t.leaves) }

// Leaf returns the value at the given pre-order leaf index.
// It panics on an out-of-bounds index.
func (t *ShapeTree[T]) Leaf(index int) T {
	t.checkIndex(index)
	return t.leaves[index]
}

// SetLeaf sets the value at the given pre-order leaf index.
// It panics on an out-of-bounds index.
func (t *ShapeTree[T]) SetLeaf(index int, value T) {
	t.checkIndex(index)
	t.leaves[index] = value
}

func (t *ShapeTree[T]) checkIndex(index int) {
	if index < 0 || index >= len(t.leaves) {
		exceptions.Panicf("shapetree: leaf index %d out-of-bounds, tree over %s has %d leaves",
			index, t.shape, len(t.leaves))
	}
}

// LeafShape returns the shape of the leaf at the given pre-order index.
// It panics on an out-of-bounds index.
func (t *ShapeTree[T]) LeafShape(index int) shapes.Shape {
	t.checkIndex(index)
	return t.shape.LeafShapes()[index]
}

// Leaves iterates over the leaf values in pre-order, yielding the flat leaf
// index and the value.
func (t *ShapeTree[T]) Leaves() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for ii, value := range t.leaves {
			if !yield(ii, value) {
				return
			}
		}
	}
}

// LeafValues returns a copy of the leaf values, in pre-order.
func (t *ShapeTree[T]) LeafValues() []T {
	return slices.Clone(t.leaves)
}
