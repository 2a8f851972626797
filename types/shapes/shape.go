// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, the description of a tensor's rank, per-axis
// dimensions and DType, including nested tuple shapes.
//
// A Shape describes the value a sharding applies to: either a plain
// multi-dimensional array, or a tuple of (possibly nested) shapes. Shardings
// are defined per leaf shape, so the package also provides the pre-order leaf
// enumeration (NumLeaves, LeafShapes) used to line up a tuple sharding with
// the tuple shape it partitions.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a tensor.
//   - Axis: the index of a dimension. Its size is the dimension.
//   - DType: the data type of the unit element, from github.com/gomlx/gopjrt/dtypes.
//   - Leaf: a non-tuple shape reached by a depth-first, left-to-right walk of
//     a tuple shape. A non-tuple shape is its own single leaf.
package shapes

import (
	"encoding/gob"
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Shape represents the shape of a tensor, or a tuple of tensors.
//
// Use Make (or MakeTuple) to create one. Shape is used as a value: it is
// never mutated after creation, and comparing or copying it is cheap.
type Shape struct {
	DType       DType
	Dimensions  []int
	TupleShapes []Shape // Shapes of the tuple, if this is a tuple.
}

// Make returns a Shape with the given DType and dimensions.
// See MakeTuple for tuple shapes.
func Make(dtype DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension <= 0", s)
		}
	}
	return s
}

// Scalar returns a scalar Shape for the given type.
func Scalar[T Number]() Shape {
	return Shape{DType: FromGenericsType[T]()}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: InvalidDType}
}

// MakeTuple returns a shape representing a tuple of elements with the given shapes.
// An empty tuple (no elements) is valid.
func MakeTuple(elements []Shape) Shape {
	return Shape{DType: InvalidDType, Dimensions: nil, TupleShapes: slices.Clone(elements)}
}

// Ok returns whether this is a valid Shape. A zero-initialized Shape{} is invalid.
func (s Shape) Ok() bool { return s.DType != InvalidDType || len(s.TupleShapes) > 0 }

// Rank of the shape, that is, the number of axes. Scalars have rank 0.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar: no axes, a single value.
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// IsTuple returns whether the shape represents a tuple.
func (s Shape) IsTuple() bool {
	return s.DType == InvalidDType
}

// TupleSize returns the number of (immediate) elements in the tuple.
func (s Shape) TupleSize() int {
	return len(s.TupleShapes)
}

// Dim returns the dimension of the given axis. axis can take negative numbers,
// in which case it counts from the end -- so axis=-1 refers to the last axis.
// It panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// Size returns the number of elements of DType needed for this shape,
// the product of all dimensions.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// String implements fmt.Stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.IsTuple() {
		parts := make([]string, 0, s.TupleSize())
		for _, tuple := range s.TupleShapes {
			parts = append(parts, tuple.String())
		}
		return fmt.Sprintf("Tuple<%s>", strings.Join(parts, ", "))
	}
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// NumLeaves returns the number of leaf shapes: 1 for a non-tuple shape, the
// recursive sum over the elements for a tuple. An empty tuple has 0 leaves.
func (s Shape) NumLeaves() int {
	if !s.IsTuple() {
		return 1
	}
	count := 0
	for _, element := range s.TupleShapes {
		count += element.NumLeaves()
	}
	return count
}

// LeafShapes returns the leaf shapes in pre-order (depth-first, left-to-right).
// For a non-tuple shape it returns the shape itself as the only element.
func (s Shape) LeafShapes() []Shape {
	leaves := make([]Shape, 0, s.NumLeaves())
	return s.appendLeaves(leaves)
}

func (s Shape) appendLeaves(leaves []Shape) []Shape {
	if !s.IsTuple() {
		return append(leaves, s)
	}
	for _, element := range s.TupleShapes {
		leaves = element.appendLeaves(leaves)
	}
	return leaves
}

// Equal compares two shapes for equality: DType and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	if s.IsTuple() {
		if s.TupleSize() != s2.TupleSize() {
			return false
		}
		for ii, element := range s.TupleShapes {
			if !element.Equal(s2.TupleShapes[ii]) {
				return false
			}
		}
		return true
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// EqualDimensions compares two shapes for equality of rank and dimensions only.
// DTypes can differ. This is the compatibility predicate used when comparing
// tile shapes, where the element type is irrelevant.
func (s Shape) EqualDimensions(s2 Shape) bool {
	if s.IsTuple() {
		if !s2.IsTuple() {
			return false
		}
		if s.TupleSize() != s2.TupleSize() {
			return false
		}
		for ii, element := range s.TupleShapes {
			if !element.EqualDimensions(s2.TupleShapes[ii]) {
				return false
			}
		}
		return true
	}
	if s2.IsTuple() {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	if s.TupleSize() > 0 {
		s2.TupleShapes = make([]Shape, 0, len(s.TupleShapes))
		for _, subShape := range s.TupleShapes {
			s2.TupleShapes = append(s2.TupleShapes, subShape.Clone())
		}
	}
	return
}

// HasShape is an interface for objects that have an associated Shape.
type HasShape interface {
	Shape() Shape
}

// GobSerialize shape in binary format.
func (s Shape) GobSerialize(encoder *gob.Encoder) (err error) {
	enc := func(e any) {
		if err != nil {
			return
		}
		err = encoder.Encode(e)
		if err != nil {
			err = errors.Wrapf(err, "failed to serialize Shape %s", s)
		}
	}
	enc(s.DType)
	enc(s.Dimensions)
	enc(len(s.TupleShapes))
	if err != nil {
		return
	}
	for _, subShape := range s.TupleShapes {
		err = subShape.GobSerialize(encoder)
		if err != nil {
			return
		}
	}
	return
}

// GobDeserialize a Shape. Returns new Shape or an error.
func GobDeserialize(decoder *gob.Decoder) (s Shape, err error) {
	dec := func(data any) {
		if err != nil {
			return
		}
		err = decoder.Decode(data)
		if err != nil {
			err = errors.Wrapf(err, "failed to deserialize Shape")
		}
	}
	dec(&s.DType)
	dec(&s.Dimensions)
	var numTuples int
	dec(&numTuples)
	if err != nil || numTuples == 0 {
		return
	}
	s.TupleShapes = make([]Shape, numTuples)
	for ii := range s.TupleShapes {
		s.TupleShapes[ii], err = GobDeserialize(decoder)
		if err != nil {
			return
		}
	}
	return
}
