package sharding_test

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/sharding"
	"github.com/gomlx/sharding/types/ndarray"
	"github.com/gomlx/sharding/types/shapes"
)

func representativeShardings(t *testing.T) []sharding.Sharding {
	t.Helper()
	tupleShape := shapes.MakeTuple([]shapes.Shape{
		shapes.Make(Float32, 3, 2),
		shapes.Make(Float32, 3, 2),
	})
	return []sharding.Sharding{
		sharding.Replicate(),
		sharding.AssignDevice(2),
		sharding.AssignDevice(sharding.HostDevice),
		tile2x2(t),
		sharding.Tile1D(shapes.Make(Float32, 10), 4),
		must.M1(sharding.Tuple(tupleShape, []sharding.Sharding{tile2x2(t), tile2x2(t)})),
		must.M1(sharding.Tuple(tupleShape, []sharding.Sharding{sharding.Replicate(), sharding.AssignDevice(2)})),
		must.M1(sharding.Tuple(shapes.MakeTuple(nil), []sharding.Sharding{sharding.Replicate()})),
	}
}

func TestEqualityContract(t *testing.T) {
	all := representativeShardings(t)
	rebuilt := representativeShardings(t)
	for ii, s := range all {
		// Reflexive, and equal to an independently built copy.
		assert.True(t, s.Equal(s))
		assert.True(t, s.Equal(rebuilt[ii]), "sharding %s not equal to its rebuilt copy", s)
		assert.True(t, rebuilt[ii].Equal(s), "equality is not symmetric for %s", s)

		// Distinct representatives are pairwise unequal.
		for jj, other := range all {
			if ii == jj {
				continue
			}
			assert.False(t, s.Equal(other), "%s should not equal %s", s, other)
		}
	}
}

func TestEqualHashAgreement(t *testing.T) {
	all := representativeShardings(t)
	rebuilt := representativeShardings(t)
	for ii, s := range all {
		require.Equal(t, s.Hash(), rebuilt[ii].Hash(),
			"equal shardings must hash equal: %s", s)
	}
	// Not required by the contract, but the representatives should not
	// all collide either.
	hashes := make(map[uint64]bool)
	for _, s := range all {
		hashes[s.Hash()] = true
	}
	require.Greater(t, len(hashes), 1)
}

func TestEqualIgnoresTileShapeDType(t *testing.T) {
	assignment := must.M1(ndarray.FromFlat([]int{2}, []int{0, 1}))
	a := sharding.Tile(shapes.Make(Float32, 2), assignment)
	b := sharding.Tile(shapes.Make(Int64, 2), assignment)
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestEqualDistinguishes(t *testing.T) {
	assignment01 := must.M1(ndarray.FromFlat([]int{2}, []int{0, 1}))
	assignment10 := must.M1(ndarray.FromFlat([]int{2}, []int{1, 0}))
	base := sharding.Tile(shapes.Make(Float32, 2), assignment01)

	assert.False(t, base.Equal(sharding.Tile(shapes.Make(Float32, 3), assignment01)))
	assert.False(t, base.Equal(sharding.Tile(shapes.Make(Float32, 2), assignment10)))
	assert.False(t, sharding.Replicate().Equal(sharding.AssignDevice(0)))

	// Tuple order matters: it is a pre-order flattening, not a set.
	tupleShape := shapes.MakeTuple([]shapes.Shape{
		shapes.Make(Float32, 2),
		shapes.Make(Float32, 2),
	})
	ab := must.M1(sharding.Tuple(tupleShape, []sharding.Sharding{sharding.AssignDevice(0), sharding.AssignDevice(1)}))
	ba := must.M1(sharding.Tuple(tupleShape, []sharding.Sharding{sharding.AssignDevice(1), sharding.AssignDevice(0)}))
	assert.False(t, ab.Equal(ba))
}
