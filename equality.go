package sharding

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
)

// Equal compares two shardings structurally: same mode flags, tile shapes
// with the same rank and per-axis extents (DType and layout are irrelevant),
// identical tile assignment contents, and, for tuples, element-wise equal
// children in pre-order. Equal never fails and is usable as the comparison
// half of a cache keyed by shardings -- see Hash for the other half.
func (s Sharding) Equal(other Sharding) bool {
	if s.replicated != other.replicated || s.maximal != other.maximal || s.tuple != other.tuple {
		return false
	}
	if !s.tileShape.EqualDimensions(other.tileShape) {
		return false
	}
	if !s.tileAssignment.Equal(other.tileAssignment) {
		return false
	}
	if len(s.tupleElements) != len(other.tupleElements) {
		return false
	}
	for ii, element := range s.tupleElements {
		if !element.Equal(other.tupleElements[ii]) {
			return false
		}
	}
	return true
}

// Hash returns a deterministic hash of the same fields Equal compares: equal
// shardings always hash to the same value. Hash never fails. It is meant for
// caller-side caches (e.g. memoized validation); synchronizing such a cache
// is the caller's responsibility.
func (s Sharding) Hash() uint64 {
	h := fnv.New64a()
	s.hashInto(h)
	return h.Sum64()
}

func (s Sharding) hashInto(h hash.Hash64) {
	flags := byte(0)
	if s.replicated {
		flags |= 1
	}
	if s.maximal {
		flags |= 2
	}
	if s.tuple {
		flags |= 4
	}
	hashWrite(h, []byte{flags})

	// Tile shape: rank and extents only, matching EqualDimensions.
	hashInt(h, s.tileShape.Rank())
	for _, dim := range s.tileShape.Dimensions {
		hashInt(h, dim)
	}

	if s.tileAssignment != nil {
		dims := s.tileAssignment.Dimensions()
		hashInt(h, len(dims))
		for _, dim := range dims {
			hashInt(h, dim)
		}
		for _, device := range s.tileAssignment.Flat() {
			hashInt(h, device)
		}
	} else {
		hashInt(h, -1)
	}

	hashInt(h, len(s.tupleElements))
	for _, element := range s.tupleElements {
		element.hashInto(h)
	}
}

func hashInt(h hash.Hash64, value int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(value))
	hashWrite(h, buf[:])
}

func hashWrite(h hash.Hash64, data []byte) {
	// hash.Hash.Write never returns an error.
	_, _ = h.Write(data)
}
