// Package sharding describes how a tensor produced by one step of a
// distributed computation is partitioned across a fixed set of devices.
//
// The central type is Sharding, an immutable value with four modes:
//
//   - Replicated: every device holds a full, identical copy of the tensor.
//   - Maximal: the whole tensor, unsplit, lives on a single device.
//   - Tiled: the tensor is cut into a regular grid of tiles, each owned by
//     exactly one device, via a dense tile-coordinate to device-id map.
//   - Tuple: one sharding per leaf of a tuple-shaped value, flattened in
//     pre-order.
//
// A compiler pass builds or decodes a Sharding, checks it against the shape it
// applies to with Validate, then queries it (device lookups, tile offsets,
// device histograms) while emitting per-device code. Every transform returns a
// new Sharding; there is no mutation anywhere, so values can be shared freely
// across goroutines. Equal and Hash provide the contract needed to memoize on
// Sharding values.
//
// Tiles pad implicitly: an axis that isn't an exact multiple of the tile
// extent is padded up to the next tile boundary. The padding is virtual, no
// data is materialized, and at most one trailing tile per axis may be partial.
// For example Tile over tile shape {2, 2} with device row [0, 1] on a {3, 2}
// tensor splits into two tiles, the second of which has one padding row:
//
//	    2     1 padding
//	 <------><->
//	 +----+----+
//	 | 0  |  1 |
//	 +----+----+
package sharding

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gomlx/sharding/types/ndarray"
	"github.com/gomlx/sharding/types/shapes"
)

// Reserved device ids. Negative ids never refer to a real device: they are
// bookkeeping values exempt from the device-count bound in Validate.
const (
	// HostDevice marks data placed on the host instead of an accelerator.
	HostDevice = -1

	// UnassignedDevice marks a tile not (yet) assigned to any device, used by
	// spatial partitioning.
	UnassignedDevice = -2
)

// IsReservedDevice checks whether device is a reserved device number.
// A reserved device number has a special meaning, with dedicated handling logic.
func IsReservedDevice(device int) bool { return device < 0 }

// Sharding describes how a tensor (or a tuple of tensors) is partitioned
// across devices.
//
// Use the factories Replicate, AssignDevice, Tile, Tile1D, Tuple or
// TupleFromShapeTree to create one; the zero value is not valid. A Sharding is
// immutable: it is safe to copy and to read concurrently.
type Sharding struct {
	replicated bool
	maximal    bool
	tuple      bool

	// tileShape is the extent of one tile along each axis. Only meaningful for
	// tiled shardings.
	tileShape shapes.Shape

	// tileAssignment maps a tile coordinate to the device owning the tile.
	// Empty for replicated, a single element for maximal.
	tileAssignment *ndarray.Array[int]

	// tupleElements is the flattened pre-order list of leaf shardings, when
	// tuple is set. Never empty: an empty tuple holds one placeholder element.
	tupleElements []Sharding
}

// Replicate returns the trivial sharding: the full tensor is copied
// identically to every device.
func Replicate() Sharding {
	return Sharding{
		replicated:     true,
		maximal:        true,
		tileAssignment: ndarray.New[int](0),
	}
}

// AssignDevice returns a maximal sharding: one tile equal to the whole
// tensor, placed on the given device. It emulates device placement.
func AssignDevice(device int) Sharding {
	tileAssignment := ndarray.New[int](1)
	tileAssignment.Set([]int{0}, device)
	return Sharding{
		maximal:        true,
		tileAssignment: tileAssignment,
	}
}

// Tile returns a sharding that splits a tensor into tiles of shape tileShape,
// each assigned to the device given by tileAssignment at the tile's
// coordinate. A tensor axis that is not a multiple of the tile extent is
// implicitly padded up to the next tile boundary -- see the package
// documentation for an example.
//
// Tile itself never fails; the tile geometry is checked against a concrete
// tensor shape and device count by Validate.
func Tile(tileShape shapes.Shape, tileAssignment *ndarray.Array[int]) Sharding {
	return Sharding{
		tileShape:      tileShape.Clone(),
		tileAssignment: tileAssignment.Clone(),
	}
}

// Tile1D splits the single axis of a one-dimensional inputShape into numTiles
// tiles of equal (rounded-up) size, assigned to devices 0..numTiles-1 in
// order. It panics if inputShape is not rank-1 or numTiles is not positive.
func Tile1D(inputShape shapes.Shape, numTiles int) Sharding {
	if inputShape.IsTuple() || inputShape.Rank() != 1 {
		exceptions.Panicf("sharding.Tile1D requires a rank-1 shape, got %s", inputShape)
	}
	if numTiles <= 0 {
		exceptions.Panicf("sharding.Tile1D requires numTiles > 0, got %d", numTiles)
	}
	tileSize := ceilDiv(inputShape.Dim(0), numTiles)
	tileAssignment := ndarray.New[int](numTiles)
	for tile := 0; tile < numTiles; tile++ {
		tileAssignment.Set([]int{tile}, tile)
	}
	return Sharding{
		tileShape:      shapes.Make(inputShape.DType, tileSize),
		tileAssignment: tileAssignment,
	}
}

func ceilDiv(numerator, denominator int) int {
	return (numerator + denominator - 1) / denominator
}

// IsTuple returns whether the sharding has tuple type.
func (s Sharding) IsTuple() bool { return s.tuple }

// IsReplicated returns whether the sharding is trivial: replicate on all
// devices. A tuple sharding is replicated iff every element is replicated.
func (s Sharding) IsReplicated() bool {
	if !s.tuple {
		return s.replicated
	}
	for _, element := range s.tupleElements {
		if !element.IsReplicated() {
			return false
		}
	}
	return true
}

// IsTileMaximal returns whether the tile size is the same as the tensor size:
// there is a single tile holding the whole tensor. Both replicated and
// single-device shardings are tile-maximal. A tuple sharding is tile-maximal
// iff every element is.
func (s Sharding) IsTileMaximal() bool {
	if !s.tuple {
		return s.maximal
	}
	for _, element := range s.tupleElements {
		if !element.IsTileMaximal() {
			return false
		}
	}
	return true
}

// HasUniqueDevice returns whether the sharding places the whole tensor on one
// single device: non-tuple, tile-maximal and not replicated.
func (s Sharding) HasUniqueDevice() bool {
	return !s.tuple && s.maximal && !s.replicated
}

// UniqueDevice returns the single device this sharding places the tensor on.
// It fails with ErrInvalidOperation unless HasUniqueDevice.
func (s Sharding) UniqueDevice() (int, error) {
	if !s.HasUniqueDevice() {
		return 0, errors.Wrapf(ErrInvalidOperation,
			"UniqueDevice called on sharding %s, which spans multiple devices", s)
	}
	return s.tileAssignment.At(0), nil
}

// TileShape returns the extent of one tile along each axis.
// Only meaningful when the sharding is tiled (not tile-maximal, not tuple).
func (s Sharding) TileShape() shapes.Shape { return s.tileShape.Clone() }

// TileAssignment returns a copy of the tile-coordinate to device map.
// Only meaningful for non-replicated, non-tuple shardings.
func (s Sharding) TileAssignment() *ndarray.Array[int] { return s.tileAssignment.Clone() }

// TupleElements returns the flattened list of all leaf shardings of a tuple
// sharding, in pre-order. It fails with ErrInvalidOperation on a non-tuple
// sharding.
func (s Sharding) TupleElements() ([]Sharding, error) {
	if !s.tuple {
		return nil, errors.Wrapf(ErrInvalidOperation, "TupleElements called on non-tuple sharding %s", s)
	}
	elements := make([]Sharding, len(s.tupleElements))
	copy(elements, s.tupleElements)
	return elements, nil
}

// String implements fmt.Stringer. The text form is canonical and unambiguous,
// usable as a cache or log key: "{replicated}", "{maximal device=3}",
// "{(float32)[2 2] devices=[2,1]0,1}" for a tiled sharding, and a
// comma-separated "{elem, elem, ...}" for tuples.
func (s Sharding) String() string {
	if s.tuple {
		parts := make([]string, 0, len(s.tupleElements))
		for _, element := range s.tupleElements {
			parts = append(parts, element.String())
		}
		return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
	}
	if s.replicated {
		return "{replicated}"
	}
	if s.maximal {
		return fmt.Sprintf("{maximal device=%d}", s.tileAssignment.At(0))
	}
	return fmt.Sprintf("{%s devices=[%s]%s}", s.tileShape,
		joinInts(s.tileAssignment.Dimensions()), joinInts(s.tileAssignment.Flat()))
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for ii, value := range values {
		parts[ii] = fmt.Sprintf("%d", value)
	}
	return strings.Join(parts, ",")
}
