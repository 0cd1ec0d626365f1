package cluster

import "errors"

var (
	// ErrNilSpace is returned when a tree is built or reassembled without a space.
	ErrNilSpace = errors.New("cluster: nil space")

	// ErrInvalidConfig is wrapped by all config validation failures.
	ErrInvalidConfig = errors.New("cluster: invalid config")

	// ErrTreeInvalid is wrapped by all Validate failures.
	ErrTreeInvalid = errors.New("cluster: tree validation failed")

	// ErrBadTopology is wrapped when Reassemble is given records that do not
	// describe a well-formed tree over the given items.
	ErrBadTopology = errors.New("cluster: malformed tree topology")
)
