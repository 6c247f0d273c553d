package ops

import "sort"

// Built-in operation names.
const (
	OpAdd          = "add"
	OpSub          = "sub"
	OpMul          = "mul"
	OpPow          = "pow"
	OpSum          = "sum"
	OpReLU         = "relu"
	OpSigmoid      = "sigmoid"
	OpLogSoftmax   = "logsoftmax"
	OpReshape      = "reshape"
	OpDot          = "dot"
	OpMatMul       = "matmul"
	OpPad2D        = "pad2d"
	OpConv2D       = "conv2d"
	OpConv2DIm2Col = "conv2d_im2col"
	OpMaxPool2D    = "max_pool2d"
	OpAvgPool2D    = "avg_pool2d"
)

// Registry maps operation names to functions.
//
// Registration is expected to happen during initialisation; lookups after
// that are read-only and need no locking.
type Registry struct {
	funcs map[string]Function
}

// NewRegistry creates a registry holding every built-in operation.
func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]Function),
	}

	r.registerElementwise()
	r.registerReductions()
	r.registerShapeOps()
	r.registerLinalg()
	r.registerConvolutions()
	r.registerPooling()

	return r
}

// Register adds or replaces the function bound to name.
func (r *Registry) Register(name string, fn Function) {
	r.funcs[name] = fn
}

// Get returns the function bound to name.
func (r *Registry) Get(name string) (Function, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// SupportedOps returns the sorted names of all registered operations.
func (r *Registry) SupportedOps() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) registerElementwise() {
	r.Register(OpAdd, AddOp{})
	r.Register(OpSub, SubOp{})
	r.Register(OpMul, MulOp{})
	r.Register(OpPow, PowOp{})
	r.Register(OpReLU, ReLUOp{})
	r.Register(OpSigmoid, SigmoidOp{})
}

func (r *Registry) registerReductions() {
	r.Register(OpSum, SumOp{})
	r.Register(OpLogSoftmax, LogSoftmaxOp{})
}

func (r *Registry) registerShapeOps() {
	r.Register(OpReshape, ReshapeOp{})
	r.Register(OpPad2D, Pad2DOp{})
}

func (r *Registry) registerLinalg() {
	r.Register(OpDot, DotOp{})
	r.Register(OpMatMul, DotOp{})
}

func (r *Registry) registerConvolutions() {
	r.Register(OpConv2D, Conv2DOp{})
	r.Register(OpConv2DIm2Col, Conv2DIm2ColOp{})
}

func (r *Registry) registerPooling() {
	r.Register(OpMaxPool2D, MaxPool2DOp{})
	r.Register(OpAvgPool2D, AvgPool2DOp{})
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by graphs that are not
// given one explicitly.
func Default() *Registry {
	return defaultRegistry
}

// Register adds or replaces an operation in the default registry.
func Register(name string, fn Function) {
	defaultRegistry.Register(name, fn)
}

// Lookup finds an operation in the default registry.
func Lookup(name string) (Function, bool) {
	return defaultRegistry.Get(name)
}
