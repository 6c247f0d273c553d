package tensor

// Backend defines the numeric buffer capability every differentiable
// operation is written against. Backends handle the actual computation.
//
// Contract:
//   - Operands are never mutated; every call returns a freshly allocated result.
//   - Binary elementwise operations require exactly matching shapes
//     (no broadcasting) and report ErrShape otherwise.
//   - Slices are described by one Range per axis (see Range).
//
// Implementations:
//   - CPU: pure Go on top of gonum (internal/backend/cpu)
//   - Accelerators: external collaborators, reached through Transferer
type Backend interface {
	// Element-wise binary operations (exact shape match)
	Add(a, b *RawTensor) (*RawTensor, error)
	Sub(a, b *RawTensor) (*RawTensor, error)
	Mul(a, b *RawTensor) (*RawTensor, error)
	Div(a, b *RawTensor) (*RawTensor, error)
	Pow(a, b *RawTensor) (*RawTensor, error)

	// Element-wise unary operations
	Neg(x *RawTensor) *RawTensor
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	AddScalar(x *RawTensor, scalar float64) *RawTensor
	MulScalar(x *RawTensor, scalar float64) *RawTensor
	MaximumScalar(x *RawTensor, scalar float64) *RawTensor      // max(x, scalar)
	GreaterEqualScalar(x *RawTensor, scalar float64) *RawTensor // 1 where x >= scalar, else 0

	// Reductions
	Sum(x *RawTensor) *RawTensor                          // total sum, shape [1]
	SumLastAxis(x *RawTensor) (*RawTensor, error)         // [n, m] -> [n, 1]
	MaxLastAxis(x *RawTensor) (*RawTensor, error)         // [n, m] -> [n, 1]
	Expand(x *RawTensor, shape Shape) (*RawTensor, error) // repeat size-1 axes

	// Matrix operations
	MatMul(a, b *RawTensor) (*RawTensor, error)
	Transpose(x *RawTensor) (*RawTensor, error) // 2-D only

	// Shape operations
	Reshape(x *RawTensor, shape Shape) (*RawTensor, error)
	Permute(x *RawTensor, axes ...int) (*RawTensor, error)
	Pad2D(x *RawTensor, top, bottom, left, right int) (*RawTensor, error)

	// Strided slicing
	Slice(x *RawTensor, ranges []Range) (*RawTensor, error)
	SetSlice(dst *RawTensor, ranges []Range, src *RawTensor) (*RawTensor, error) // copy of dst with dst[ranges] = src
	AddSlice(dst *RawTensor, ranges []Range, src *RawTensor) (*RawTensor, error) // copy of dst with dst[ranges] += src

	// Stacking along a new leading axis and reducing over it
	Stack(xs []*RawTensor) (*RawTensor, error)
	MaxAxis0(x *RawTensor) (*RawTensor, error)
	ArgMaxAxis0(x *RawTensor) ([]int, error) // ties resolve to the lowest index
	MeanAxis0(x *RawTensor) (*RawTensor, error)

	// Column transforms for convolution (stride 1, no padding)
	Im2Col(x *RawTensor, kh, kw int) (*RawTensor, error)
	Col2Im(cols *RawTensor, shape Shape, kh, kw int) (*RawTensor, error)

	// Metadata
	Name() string
	Device() Device
}

// Transferer moves buffers between host memory and an accelerator.
// Accelerator backends are external collaborators; this is the boundary.
type Transferer interface {
	// Device returns the accelerator device buffers are uploaded to.
	Device() Device
	// Upload copies a host buffer to the accelerator.
	Upload(x *RawTensor) (*RawTensor, error)
	// Download copies an accelerator buffer back to host memory.
	Download(x *RawTensor) (*RawTensor, error)
}
