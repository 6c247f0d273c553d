package cpu

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/tinyad/internal/tensor"
)

// Pow computes element-wise a**b. Shapes must match exactly.
func (cpu *CPUBackend) Pow(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary("pow", a, b, func(dst, s, t []float64) {
		for i := range dst {
			dst[i] = math.Pow(s[i], t[i])
		}
	})
}

// Neg computes element-wise negation: -x.
func (cpu *CPUBackend) Neg(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.MulScalar(x, -1)
}

// Exp computes element-wise exponential: exp(x).
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(dst, src []float64) {
		for i, v := range src {
			dst[i] = math.Exp(v)
		}
	})
}

// Log computes element-wise natural logarithm: ln(x).
// Non-positive inputs yield -Inf or NaN, as math.Log does.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(dst, src []float64) {
		for i, v := range src {
			dst[i] = math.Log(v)
		}
	})
}

// AddScalar computes x + scalar.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.unary(x, func(dst, src []float64) {
		copy(dst, src)
		floats.AddConst(scalar, dst)
	})
}

// MulScalar computes x * scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.unary(x, func(dst, src []float64) {
		floats.ScaleTo(dst, scalar, src)
	})
}

// MaximumScalar computes max(x, scalar) element-wise.
func (cpu *CPUBackend) MaximumScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.unary(x, func(dst, src []float64) {
		for i, v := range src {
			dst[i] = math.Max(v, scalar)
		}
	})
}

// GreaterEqualScalar returns a 0/1 mask with 1 where x >= scalar.
func (cpu *CPUBackend) GreaterEqualScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.unary(x, func(dst, src []float64) {
		for i, v := range src {
			if v >= scalar {
				dst[i] = 1
			}
		}
	})
}
