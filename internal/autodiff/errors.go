package autodiff

import "errors"

// Graph-level error kinds. Shape, parameter and device errors are shared
// with the numeric layer (see tensor.ErrShape and friends).
var (
	// ErrUnknownOp reports an operation name missing from the registry.
	ErrUnknownOp = errors.New("unknown operation")

	// ErrGraphReleased reports a backward pass through contexts already
	// consumed by an earlier pass. Build the graph WithRetainGraph to
	// differentiate it more than once.
	ErrGraphReleased = errors.New("graph already released")

	// ErrNoAccelerator reports a device transfer on a graph built without
	// WithAccelerator.
	ErrNoAccelerator = errors.New("no accelerator configured")
)
