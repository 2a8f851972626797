package sharding

import (
	"encoding/gob"

	"github.com/pkg/errors"

	"github.com/gomlx/sharding/types/ndarray"
	"github.com/gomlx/sharding/types/shapes"
)

// Kind discriminates the mode of a Serialized sharding.
type Kind int32

const (
	KindReplicated Kind = iota
	KindMaximal
	KindTiled
	KindTuple
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindReplicated:
		return "replicated"
	case KindMaximal:
		return "maximal"
	case KindTiled:
		return "tiled"
	case KindTuple:
		return "tuple"
	}
	return "invalid"
}

// Serialized is the wire form of a Sharding: a plain struct with only
// exported fields, suitable for gob (see GobSerialize) or any other encoder.
//
// Unlike Sharding it can represent contradictory states -- a replicated kind
// carrying tile devices, a tile assignment whose dimensions don't multiply to
// the number of devices. FromSerialized rejects those.
type Serialized struct {
	Kind Kind

	// TileShape is only set for KindTiled.
	TileShape shapes.Shape

	// TileAssignmentDimensions and TileAssignmentDevices describe the
	// tile-to-device map in row-major order. Set for KindMaximal (a single
	// device) and KindTiled.
	TileAssignmentDimensions []int
	TileAssignmentDevices    []int

	// TupleShardings is only set for KindTuple: the pre-order leaf shardings.
	TupleShardings []Serialized
}

// ToSerialized converts the sharding to its wire form. It is total and
// lossless: FromSerialized(s.ToSerialized()) returns a sharding Equal to s.
func (s Sharding) ToSerialized() Serialized {
	if s.tuple {
		elements := make([]Serialized, len(s.tupleElements))
		for ii, element := range s.tupleElements {
			elements[ii] = element.ToSerialized()
		}
		return Serialized{Kind: KindTuple, TupleShardings: elements}
	}
	if s.replicated {
		return Serialized{Kind: KindReplicated}
	}
	if s.maximal {
		return Serialized{
			Kind:                     KindMaximal,
			TileAssignmentDimensions: []int{1},
			TileAssignmentDevices:    []int{s.tileAssignment.At(0)},
		}
	}
	return Serialized{
		Kind:                     KindTiled,
		TileShape:                s.tileShape.Clone(),
		TileAssignmentDimensions: s.tileAssignment.Dimensions(),
		TileAssignmentDevices:    s.tileAssignment.Flat(),
	}
}

// FromSerialized converts a wire-form sharding back to a Sharding. It fails
// with ErrDecode if the message is self-contradictory (e.g. a replicated kind
// carrying tile state) or if the tile geometry is malformed (rank mismatch
// between tile shape and tile assignment, dimensions not matching the device
// list).
func FromSerialized(ser Serialized) (Sharding, error) {
	switch ser.Kind {
	case KindReplicated:
		if len(ser.TupleShardings) > 0 || len(ser.TileAssignmentDevices) > 0 {
			return Sharding{}, errors.Wrapf(ErrDecode,
				"replicated sharding also carries %d tuple elements and %d tile devices",
				len(ser.TupleShardings), len(ser.TileAssignmentDevices))
		}
		return Replicate(), nil

	case KindMaximal:
		if len(ser.TupleShardings) > 0 {
			return Sharding{}, errors.Wrapf(ErrDecode,
				"maximal sharding also carries %d tuple elements", len(ser.TupleShardings))
		}
		if len(ser.TileAssignmentDevices) != 1 {
			return Sharding{}, errors.Wrapf(ErrDecode,
				"maximal sharding must name exactly one device, got %v", ser.TileAssignmentDevices)
		}
		return AssignDevice(ser.TileAssignmentDevices[0]), nil

	case KindTiled:
		if len(ser.TupleShardings) > 0 {
			return Sharding{}, errors.Wrapf(ErrDecode,
				"tiled sharding also carries %d tuple elements", len(ser.TupleShardings))
		}
		if !ser.TileShape.Ok() || ser.TileShape.IsTuple() {
			return Sharding{}, errors.Wrapf(ErrDecode,
				"tiled sharding needs a non-tuple tile shape, got %s", ser.TileShape)
		}
		if len(ser.TileAssignmentDimensions) != ser.TileShape.Rank() {
			return Sharding{}, errors.Wrapf(ErrDecode,
				"tile assignment of rank %d disagrees with tile shape %s of rank %d",
				len(ser.TileAssignmentDimensions), ser.TileShape, ser.TileShape.Rank())
		}
		tileAssignment, err := ndarray.FromFlat(ser.TileAssignmentDimensions, ser.TileAssignmentDevices)
		if err != nil {
			return Sharding{}, errors.WithMessage(ErrDecode, err.Error())
		}
		return Tile(ser.TileShape, tileAssignment), nil

	case KindTuple:
		if len(ser.TupleShardings) == 0 {
			return Sharding{}, errors.Wrapf(ErrDecode,
				"tuple sharding without elements: an empty tuple still requires one placeholder")
		}
		if len(ser.TileAssignmentDevices) > 0 {
			return Sharding{}, errors.Wrapf(ErrDecode,
				"tuple sharding also carries %d tile devices", len(ser.TileAssignmentDevices))
		}
		elements := make([]Sharding, len(ser.TupleShardings))
		for ii, subSer := range ser.TupleShardings {
			element, err := FromSerialized(subSer)
			if err != nil {
				return Sharding{}, errors.WithMessagef(err, "tuple element %d", ii)
			}
			elements[ii] = element
		}
		return makeTuple(elements), nil
	}
	return Sharding{}, errors.Wrapf(ErrDecode, "unknown sharding kind %d", ser.Kind)
}

// GobSerialize the sharding in binary format, through its wire form.
func (s Sharding) GobSerialize(encoder *gob.Encoder) error {
	err := encoder.Encode(s.ToSerialized())
	return errors.Wrapf(err, "failed to serialize Sharding %s", s)
}

// GobDeserialize a Sharding. Returns the new Sharding or an error.
func GobDeserialize(decoder *gob.Decoder) (Sharding, error) {
	var ser Serialized
	if err := decoder.Decode(&ser); err != nil {
		return Sharding{}, errors.Wrap(err, "failed to deserialize Sharding")
	}
	return FromSerialized(ser)
}
