package access

import "github.com/cockroachdb/errors"

var (
	// ErrNotFinished is returned when the buffer is requested before Finish.
	ErrNotFinished = errors.New("builder not finished")

	// ErrAlreadyFinished is returned on mutation after Finish.
	ErrAlreadyFinished = errors.New("builder already finished")

	// ErrUnbalancedContainers is returned by Finish when the stack does not
	// hold exactly one root, or by End calls with a mismatched marker.
	ErrUnbalancedContainers = errors.New("unbalanced containers")

	// ErrMalformedMap is returned when a map has an odd number of entries
	// or a non-key at a key position.
	ErrMalformedMap = errors.New("malformed map")

	// ErrTypedVectorTypeMismatch is returned when a typed vector holds
	// elements of more than one type.
	ErrTypedVectorTypeMismatch = errors.New("typed vector element type mismatch")

	// ErrInvalidBuffer is returned by GetRoot for buffers too short or with
	// a corrupt trailer.
	ErrInvalidBuffer = errors.New("invalid buffer")
)
