package sharding_test

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"

	. "github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/sharding"
	"github.com/gomlx/sharding/types/ndarray"
	"github.com/gomlx/sharding/types/shapes"
)

func TestValidateLeaf(t *testing.T) {
	shape := shapes.Make(Float32, 3, 2)

	t.Run("Replicated", func(t *testing.T) {
		require.NoError(t, sharding.Replicate().Validate(shape, 2))
	})

	t.Run("Maximal", func(t *testing.T) {
		require.NoError(t, sharding.AssignDevice(1).Validate(shape, 2))
		err := sharding.AssignDevice(2).Validate(shape, 2)
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})

	t.Run("TupleShapeRejected", func(t *testing.T) {
		tupleShape := shapes.MakeTuple([]shapes.Shape{shape})
		err := sharding.Replicate().Validate(tupleShape, 2)
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
		err = sharding.AssignDevice(1).Validate(tupleShape, 2)
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})

	t.Run("ReservedDevicesSkipBoundsCheck", func(t *testing.T) {
		require.NoError(t, sharding.AssignDevice(sharding.HostDevice).Validate(shape, 2))
		assignment := must.M1(ndarray.FromFlat([]int{2, 1}, []int{0, sharding.UnassignedDevice}))
		s := sharding.Tile(shapes.Make(Float32, 2, 2), assignment)
		require.NoError(t, s.Validate(shape, 1))
	})

	t.Run("Tiled", func(t *testing.T) {
		assignment := must.M1(ndarray.FromFlat([]int{2, 1}, []int{0, 1}))
		s := sharding.Tile(shapes.Make(Float32, 2, 2), assignment)
		require.NoError(t, s.Validate(shape, 2))

		err := s.Validate(shape, 1) // Device 1 out of range.
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)

		err = s.Validate(shapes.Make(Float32, 3), 2) // Rank mismatch.
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})
}

// TestValidatePaddingBound checks that Validate accepts exactly the tile
// grids whose per-axis slack is in [0, tileDim).
func TestValidatePaddingBound(t *testing.T) {
	tests := []struct {
		name     string
		shapeDim int
		tileDim  int
		numTiles int
		wantOK   bool
	}{
		{"ExactFit", 4, 2, 2, true},
		{"OnePartialTile", 3, 2, 2, true},
		{"MaximalSlack", 5, 4, 2, true},          // Slack 3 < tileDim 4.
		{"FullTileOfPadding", 4, 2, 3, false},    // Slack 2 == tileDim 2.
		{"GridBeyondCeil", 3, 2, 3, false},       // ceil(3/2) == 2 tiles suffice.
		{"NotCovered", 5, 2, 2, false},           // 2 tiles of 2 cover only 4.
		{"SingleOversizedTile", 3, 5, 1, true},   // Slack 2 < tileDim 5.
		{"SingleWholeTileOfSlack", 3, 3, 2, false}, // Slack 3 == tileDim 3.
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			shape := shapes.Make(Float32, test.shapeDim)
			devices := make([]int, test.numTiles)
			for ii := range devices {
				devices[ii] = ii
			}
			assignment := must.M1(ndarray.FromFlat([]int{test.numTiles}, devices))
			s := sharding.Tile(shapes.Make(Float32, test.tileDim), assignment)
			err := s.Validate(shape, test.numTiles)
			if test.wantOK {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, sharding.ErrInvalidArgument)
			}
		})
	}
}

func TestValidateTuple(t *testing.T) {
	tupleShape := shapes.MakeTuple([]shapes.Shape{
		shapes.Make(Float32, 3, 2),
		shapes.Make(Int64, 5),
	})
	good := must.M1(sharding.Tuple(tupleShape, []sharding.Sharding{
		sharding.Replicate(),
		sharding.Tile1D(shapes.Make(Int64, 5), 2),
	}))
	require.NoError(t, good.Validate(tupleShape, 2))

	t.Run("LeafViolationIsReported", func(t *testing.T) {
		bad := must.M1(sharding.Tuple(tupleShape, []sharding.Sharding{
			sharding.Replicate(),
			sharding.AssignDevice(7),
		}))
		err := bad.Validate(tupleShape, 2)
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
		require.Contains(t, err.Error(), "leaf 1")
	})

	t.Run("NonTupleShape", func(t *testing.T) {
		err := good.Validate(shapes.Make(Float32, 3, 2), 2)
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})

	t.Run("LeafCountMismatch", func(t *testing.T) {
		otherShape := shapes.MakeTuple([]shapes.Shape{shapes.Make(Float32, 3, 2)})
		err := good.Validate(otherShape, 2)
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})

	t.Run("EmptyTuple", func(t *testing.T) {
		empty := shapes.MakeTuple(nil)
		s := must.M1(sharding.Tuple(empty, []sharding.Sharding{sharding.Replicate()}))
		require.NoError(t, s.Validate(empty, 2))
	})
}
