package sharding

import "github.com/pkg/errors"

// Sentinel errors returned by Sharding operations. Call sites wrap them with
// contextual detail (axis, device id, leaf index); use errors.Is to classify.
var (
	// ErrInvalidArgument is returned when an argument doesn't fit the sharding:
	// a device id not present in the tile assignment, a tuple leaf-count
	// mismatch, a rank mismatch, a device id at or beyond the device count.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidOperation is returned when the operation has no answer for this
	// kind of sharding: a tuple-only operation on a non-tuple sharding (or
	// vice versa), a tile query on a replicated sharding, UniqueDevice on a
	// sharding spanning multiple devices.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrDecode is returned by FromSerialized for malformed or
	// self-contradictory serialized shardings.
	ErrDecode = errors.New("malformed serialized sharding")
)
