package sharding

import (
	"github.com/pkg/errors"

	"github.com/gomlx/sharding/types/shapes"
)

// Validate checks that this sharding can be applied to a tensor of the given
// shape on a system with numDevices devices. It is purely a check -- nothing
// is mutated or partially applied -- and returns nil or the first violation
// found, with enough context (leaf index, axis or device id) for a
// diagnostic.
//
// A tuple sharding is validated element-wise against the leaves of shape. A
// leaf sharding never applies to a tuple shape; beyond that the checks are:
// every non-reserved device id is below numDevices; for a tiled sharding, the tile assignment rank matches the
// shape's rank and every axis's implicit padding is non-negative and strictly
// smaller than one tile extent.
func (s Sharding) Validate(shape shapes.Shape, numDevices int) error {
	if s.tuple {
		return s.validateTuple(shape, numDevices)
	}
	return s.validateLeaf(shape, numDevices)
}

func (s Sharding) validateTuple(shape shapes.Shape, numDevices int) error {
	if !shape.IsTuple() {
		return errors.Wrapf(ErrInvalidArgument,
			"tuple sharding %s cannot apply to non-tuple shape %s", s, shape)
	}
	if err := s.checkLeafCount(shape); err != nil {
		return err
	}
	leafShapes := shape.LeafShapes()
	for leafIndex, leafShape := range leafShapes {
		if err := s.tupleElements[leafIndex].Validate(leafShape, numDevices); err != nil {
			return errors.WithMessagef(err, "tuple leaf %d (shape %s)", leafIndex, leafShape)
		}
	}
	return nil
}

func (s Sharding) validateLeaf(shape shapes.Shape, numDevices int) error {
	if shape.IsTuple() {
		return errors.Wrapf(ErrInvalidArgument,
			"non-tuple sharding %s cannot apply to tuple shape %s", s, shape)
	}
	for _, device := range s.tileAssignment.Flat() {
		if IsReservedDevice(device) {
			continue
		}
		if device >= numDevices {
			return errors.Wrapf(ErrInvalidArgument,
				"device %d out of range, only %d devices available", device, numDevices)
		}
	}
	if s.replicated || s.maximal {
		// No tile geometry to check.
		return nil
	}
	if s.tileAssignment.Rank() != shape.Rank() {
		return errors.Wrapf(ErrInvalidArgument,
			"tile assignment of rank %d cannot apply to shape %s of rank %d",
			s.tileAssignment.Rank(), shape, shape.Rank())
	}
	if s.tileShape.Rank() != s.tileAssignment.Rank() {
		return errors.Wrapf(ErrInvalidArgument,
			"tile shape %s and tile assignment of rank %d disagree on rank",
			s.tileShape, s.tileAssignment.Rank())
	}
	for axis := 0; axis < shape.Rank(); axis++ {
		covered := s.tileShape.Dim(axis) * s.tileAssignment.Dim(axis)
		slack := covered - shape.Dim(axis)
		if slack < 0 {
			return errors.Wrapf(ErrInvalidArgument,
				"axis %d: %d tiles of extent %d cover only %d of dimension %d",
				axis, s.tileAssignment.Dim(axis), s.tileShape.Dim(axis), covered, shape.Dim(axis))
		}
		if slack >= s.tileShape.Dim(axis) {
			return errors.Wrapf(ErrInvalidArgument,
				"axis %d: %d tiles of extent %d leave %d of padding for dimension %d, "+
					"more than one tile of padding is not allowed",
				axis, s.tileAssignment.Dim(axis), s.tileShape.Dim(axis), slack, shape.Dim(axis))
		}
	}
	return nil
}
