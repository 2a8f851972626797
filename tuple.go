package sharding

import (
	"github.com/pkg/errors"

	"github.com/gomlx/sharding/types/ndarray"
	"github.com/gomlx/sharding/types/shapes"
	"github.com/gomlx/sharding/types/shapetree"
)

// Tuple returns a sharding for a tuple-shaped value from the pre-order list
// of leaf shardings. The number of elements must match the number of leaves
// of tupleShape; an empty tuple requires exactly one placeholder element.
// It fails with ErrInvalidArgument otherwise.
func Tuple(tupleShape shapes.Shape, elements []Sharding) (Sharding, error) {
	if !tupleShape.IsTuple() {
		return Sharding{}, errors.Wrapf(ErrInvalidArgument,
			"sharding.Tuple requires a tuple shape, got %s", tupleShape)
	}
	if len(elements) != requiredLeaves(tupleShape) {
		return Sharding{}, errors.Wrapf(ErrInvalidArgument,
			"sharding.Tuple: shape %s requires %d leaf shardings, got %d",
			tupleShape, requiredLeaves(tupleShape), len(elements))
	}
	return makeTuple(elements), nil
}

// TupleFromShapeTree returns a sharding for a tuple-shaped value, taking one
// leaf sharding per leaf position of the tree, in pre-order. A tree over an
// empty tuple yields a tuple sharding with a single replicated placeholder.
func TupleFromShapeTree(tree *shapetree.ShapeTree[Sharding]) Sharding {
	elements := tree.LeafValues()
	if len(elements) == 0 {
		elements = []Sharding{Replicate()}
	}
	return makeTuple(elements)
}

func makeTuple(elements []Sharding) Sharding {
	cloned := make([]Sharding, len(elements))
	copy(cloned, elements)
	return Sharding{
		tuple:          true,
		tileAssignment: ndarray.New[int](0),
		tupleElements:  cloned,
	}
}

// requiredLeaves returns the number of leaf shardings needed to cover shape:
// its leaf count, except that an empty tuple still requires one placeholder.
func requiredLeaves(shape shapes.Shape) int {
	return max(1, shape.NumLeaves())
}

// checkLeafCount verifies the number of tuple elements fits the shape.
func (s Sharding) checkLeafCount(shape shapes.Shape) error {
	if len(s.tupleElements) != requiredLeaves(shape) {
		return errors.Wrapf(ErrInvalidArgument,
			"shape %s requires %d leaf shardings, but tuple sharding has %d elements",
			shape, requiredLeaves(shape), len(s.tupleElements))
	}
	return nil
}

// AsShapeTree projects the sharding onto the leaf tree of a concrete shape:
// each leaf of shape gets its own sharding. A non-tuple sharding is assigned
// to every leaf; a tuple sharding contributes its elements in pre-order. It
// fails with ErrInvalidArgument on a leaf-count mismatch.
func (s Sharding) AsShapeTree(shape shapes.Shape) (*shapetree.ShapeTree[Sharding], error) {
	if !s.tuple {
		return shapetree.NewWithValue(shape, s), nil
	}
	if err := s.checkLeafCount(shape); err != nil {
		return nil, err
	}
	// For an empty tuple the placeholder element is dropped: the tree has no
	// leaf positions to hold it.
	return shapetree.NewWithLeaves(shape, s.tupleElements[:shape.NumLeaves()])
}

// GetSubSharding returns the sharding of the leaf at the given pre-order
// index of shape. It fails with ErrInvalidOperation on a non-tuple sharding,
// and with ErrInvalidArgument on a leaf-count mismatch or an out-of-bounds
// leaf index.
func (s Sharding) GetSubSharding(shape shapes.Shape, leafIndex int) (Sharding, error) {
	if !s.tuple {
		return Sharding{}, errors.Wrapf(ErrInvalidOperation,
			"GetSubSharding called on non-tuple sharding %s", s)
	}
	if err := s.checkLeafCount(shape); err != nil {
		return Sharding{}, err
	}
	if leafIndex < 0 || leafIndex >= shape.NumLeaves() {
		return Sharding{}, errors.Wrapf(ErrInvalidArgument,
			"leaf index %d out-of-bounds, shape %s has %d leaves", leafIndex, shape, shape.NumLeaves())
	}
	return s.tupleElements[leafIndex], nil
}

// GetTupleSharding returns the sharding as a tuple sharding for the given
// shape: a tuple sharding is returned as-is (after a leaf-count check), while
// a non-tuple sharding is wrapped into a tuple with every leaf of shape
// holding a copy of it. A non-tuple shape counts as a single leaf.
func (s Sharding) GetTupleSharding(shape shapes.Shape) (Sharding, error) {
	if s.tuple {
		if err := s.checkLeafCount(shape); err != nil {
			return Sharding{}, err
		}
		return s, nil
	}
	elements := make([]Sharding, requiredLeaves(shape))
	for ii := range elements {
		elements[ii] = s
	}
	return makeTuple(elements), nil
}

// ExtractSingleSharding extracts the sharding common to all leaves. A
// non-tuple sharding is its own common sharding. A tuple sharding has a
// common sharding only when all its elements are structurally equal, in which
// case that element is returned. Otherwise ok is false -- a legitimate
// heterogeneous outcome, not an error.
func (s Sharding) ExtractSingleSharding() (single Sharding, ok bool) {
	if !s.tuple {
		return s, true
	}
	first := s.tupleElements[0]
	for _, element := range s.tupleElements[1:] {
		if !element.Equal(first) {
			return Sharding{}, false
		}
	}
	return first, true
}
