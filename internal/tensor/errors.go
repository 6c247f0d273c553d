package tensor

import "errors"

// Error kinds shared by the numeric layer and every differentiable operation.
// Callers match them with errors.Is; the wrapped message names the operation.
var (
	// ErrShape reports operand shapes that violate an operation's shape law.
	ErrShape = errors.New("shape error")

	// ErrParameter reports configuration that is inconsistent with the operands
	// (e.g. input channels not divisible by groups).
	ErrParameter = errors.New("parameter error")

	// ErrUnimplementedBackward reports an operation whose gradient is
	// intentionally not provided.
	ErrUnimplementedBackward = errors.New("backward not implemented")

	// ErrDevice reports a buffer living on a device the caller cannot use.
	ErrDevice = errors.New("device error")
)
