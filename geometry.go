package sharding

import (
	"github.com/pkg/errors"

	"github.com/gomlx/sharding/types/shapes"
)

// UsesDevice returns whether the given device id appears in the tile
// assignment, or recursively in any element of a tuple sharding.
func (s Sharding) UsesDevice(device int) bool {
	if s.tuple {
		for _, element := range s.tupleElements {
			if element.UsesDevice(device) {
				return true
			}
		}
		return false
	}
	return s.tileAssignment.Contains(device)
}

// UsedDevices returns a histogram of the devices used by the sharding: device
// id to occurrence count across all leaves. Reserved device ids and
// replicated leaves (which name no device) are not included. count is the
// total number of elements the sharding is made of: 1 for a non-tuple
// sharding, the number of tuple leaves otherwise.
func (s Sharding) UsedDevices() (histogram map[int]int, count int) {
	histogram = make(map[int]int)
	s.countDevices(histogram)
	count = 1
	if s.tuple {
		count = len(s.tupleElements)
	}
	return histogram, count
}

func (s Sharding) countDevices(histogram map[int]int) {
	if s.tuple {
		for _, element := range s.tupleElements {
			element.countDevices(histogram)
		}
		return
	}
	for _, device := range s.tileAssignment.Flat() {
		if IsReservedDevice(device) {
			continue
		}
		histogram[device]++
	}
}

// TileIndexForDevice returns the coordinate, in the tile assignment grid, of
// the tile owned by the given device. It fails with ErrInvalidOperation on a
// tuple sharding and with ErrInvalidArgument if the device owns no tile --
// which includes every device of a replicated sharding.
func (s Sharding) TileIndexForDevice(device int) ([]int, error) {
	if s.tuple {
		return nil, errors.Wrapf(ErrInvalidOperation, "TileIndexForDevice called on tuple sharding %s", s)
	}
	index, found := s.tileAssignment.Find(device)
	if !found {
		return nil, errors.Wrapf(ErrInvalidArgument, "device %d owns no tile in sharding %s", device, s)
	}
	return index, nil
}

// DeviceForTileIndex returns the device that owns the tile at the given
// coordinate of the tile assignment grid. A maximal sharding answers its
// single device whatever the coordinate. It fails with ErrInvalidOperation on
// tuple and replicated shardings (no single device holds a replicated
// tensor), and with ErrInvalidArgument for an out-of-bounds coordinate.
func (s Sharding) DeviceForTileIndex(index []int) (int, error) {
	if s.tuple {
		return 0, errors.Wrapf(ErrInvalidOperation, "DeviceForTileIndex called on tuple sharding %s", s)
	}
	if s.replicated {
		return 0, errors.Wrapf(ErrInvalidOperation,
			"DeviceForTileIndex called on replicated sharding: every device holds the full tensor")
	}
	if s.maximal {
		return s.tileAssignment.At(0), nil
	}
	if !s.tileAssignment.InBounds(index) {
		return 0, errors.Wrapf(ErrInvalidArgument,
			"tile index %v out-of-bounds for tile assignment of dimensions %v",
			index, s.tileAssignment.Dimensions())
	}
	return s.tileAssignment.At(index...), nil
}

// TileOffsetForDevice returns the lower-bound corner, in the tensor's
// coordinate space, of the tile owned by the given device: the tile
// coordinate multiplied per-axis by the tile extents. A tile-maximal sharding
// owns the whole tensor, so its offset is all zeros. It fails with
// ErrInvalidOperation on a tuple sharding and with ErrInvalidArgument if the
// device owns no tile.
func (s Sharding) TileOffsetForDevice(device int) ([]int, error) {
	if s.tuple {
		return nil, errors.Wrapf(ErrInvalidOperation, "TileOffsetForDevice called on tuple sharding %s", s)
	}
	if s.maximal {
		return make([]int, s.tileShape.Rank()), nil
	}
	index, err := s.TileIndexForDevice(device)
	if err != nil {
		return nil, err
	}
	offset := make([]int, len(index))
	for axis, tileIdx := range index {
		offset[axis] = tileIdx * s.tileShape.Dim(axis)
	}
	return offset, nil
}

// TileLimitForDevice returns the exclusive upper-bound corner, in the
// tensor's coordinate space, of the tile owned by the given device:
// TileOffsetForDevice plus the tile extents, per axis.
//
// The limit is not clipped to the real tensor extents: the last tile along a
// padded axis reports a limit beyond the true shape, and callers must clip
// before addressing real data. The unclipped value is part of the contract --
// it's how callers detect padding.
func (s Sharding) TileLimitForDevice(device int) ([]int, error) {
	offset, err := s.TileOffsetForDevice(device)
	if err != nil {
		return nil, err
	}
	limit := make([]int, len(offset))
	for axis := range offset {
		limit[axis] = offset[axis] + s.tileShape.Dim(axis)
	}
	return limit, nil
}

// TransformPolicy chooses the new tile extent for a partitioned axis in
// TransformShardedTileShape, from the axis and the current tile extent.
type TransformPolicy func(axis, oldDim int) int

// TransformShardedTileShape returns a sharding with the same tile assignment,
// adapted to apply to newShape (which must have the same rank as the current
// tile shape):
//
//   - An axis with a single tile (not actually partitioned) adopts newShape's
//     extent on that axis.
//   - A partitioned axis keeps its tile extent, unless transform is non-nil,
//     in which case it becomes transform(axis, oldExtent).
//
// Tile-maximal (replicated or single-device) shardings have no tile geometry
// to adapt and are returned unchanged. It fails with ErrInvalidOperation on a
// tuple sharding and with ErrInvalidArgument on a rank mismatch.
func (s Sharding) TransformShardedTileShape(newShape shapes.Shape, transform TransformPolicy) (Sharding, error) {
	if s.tuple {
		return Sharding{}, errors.Wrapf(ErrInvalidOperation,
			"TransformShardedTileShape called on tuple sharding %s", s)
	}
	if s.maximal {
		return s, nil
	}
	if newShape.IsTuple() || newShape.Rank() != s.tileShape.Rank() {
		return Sharding{}, errors.Wrapf(ErrInvalidArgument,
			"TransformShardedTileShape requires a shape of rank %d, got %s", s.tileShape.Rank(), newShape)
	}
	newTileDims := make([]int, s.tileShape.Rank())
	for axis := range newTileDims {
		if s.tileAssignment.Dim(axis) == 1 {
			// The axis is not partitioned, the single tile spans the new extent.
			newTileDims[axis] = newShape.Dim(axis)
			continue
		}
		if transform != nil {
			newTileDims[axis] = transform(axis, s.tileShape.Dim(axis))
		} else {
			newTileDims[axis] = s.tileShape.Dim(axis)
		}
	}
	return Tile(shapes.Make(newShape.DType, newTileDims...), s.tileAssignment), nil
}
