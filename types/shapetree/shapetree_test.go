// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapetree_test

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"

	. "github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/sharding/types/shapes"
	"github.com/gomlx/sharding/types/shapetree"
)

func TestNew(t *testing.T) {
	leaf := shapes.Make(Float32, 3, 2)
	tuple := shapes.MakeTuple([]shapes.Shape{leaf, shapes.MakeTuple([]shapes.Shape{leaf, leaf})})

	tree := shapetree.New[int](tuple)
	require.Equal(t, 3, tree.NumLeaves())
	require.Equal(t, 0, tree.Leaf(2))
	require.True(t, tree.Shape().Equal(tuple))

	// A non-tuple shape has a single leaf.
	single := shapetree.NewWithValue(leaf, 7)
	require.Equal(t, 1, single.NumLeaves())
	require.Equal(t, 7, single.Leaf(0))

	// An empty tuple has no leaves.
	empty := shapetree.New[int](shapes.MakeTuple(nil))
	require.Equal(t, 0, empty.NumLeaves())
}

func TestNewWithLeaves(t *testing.T) {
	tuple := shapes.MakeTuple([]shapes.Shape{shapes.Make(Float32, 3), shapes.Make(Int64, 2)})
	tree := must.M1(shapetree.NewWithLeaves(tuple, []string{"a", "b"}))
	require.Equal(t, "a", tree.Leaf(0))
	require.Equal(t, "b", tree.Leaf(1))

	_, err := shapetree.NewWithLeaves(tuple, []string{"a"})
	require.Error(t, err)
}

func TestLeavesOrderAndShapes(t *testing.T) {
	leafA := shapes.Make(Float32, 3)
	leafB := shapes.Make(Int64, 2, 2)
	leafC := shapes.Make(Float64, 5)
	nested := shapes.MakeTuple([]shapes.Shape{
		shapes.MakeTuple([]shapes.Shape{leafA, leafB}),
		leafC,
	})

	tree := must.M1(shapetree.NewWithLeaves(nested, []int{10, 20, 30}))
	require.Equal(t, []int{10, 20, 30}, tree.LeafValues())
	require.True(t, tree.LeafShape(0).Equal(leafA))
	require.True(t, tree.LeafShape(1).Equal(leafB))
	require.True(t, tree.LeafShape(2).Equal(leafC))

	var gotIndices []int
	var gotValues []int
	for ii, value := range tree.Leaves() {
		gotIndices = append(gotIndices, ii)
		gotValues = append(gotValues, value)
	}
	require.Equal(t, []int{0, 1, 2}, gotIndices)
	require.Equal(t, []int{10, 20, 30}, gotValues)
}

func TestSetLeaf(t *testing.T) {
	tree := shapetree.New[int](shapes.MakeTuple([]shapes.Shape{shapes.Make(Float32, 2)}))
	tree.SetLeaf(0, 42)
	require.Equal(t, 42, tree.Leaf(0))
	require.Panics(t, func() { tree.SetLeaf(1, 0) })
	require.Panics(t, func() { _ = tree.Leaf(-1) })
}
