package autograd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ─────────────────────────────────────────────────────────────────────────────
// Linear algebra
// ─────────────────────────────────────────────────────────────────────────────

// MatVec returns w·x for a rows×cols matrix w and a cols-vector x.
func MatVec(w, x *Tensor) *Tensor {
	rows, cols := w.Rows(), w.Cols()
	if cols != x.Len() {
		panic(fmt.Sprintf("autograd: MatVec %v × %d", w.Shape, x.Len()))
	}
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = floats.Dot(w.Data[i*cols:(i+1)*cols], x.Data)
	}
	r := result(out, w, x)
	r.back = func() {
		for i := 0; i < rows; i++ {
			g := r.Grad[i]
			if g == 0 {
				continue
			}
			floats.AddScaled(w.Grad[i*cols:(i+1)*cols], g, x.Data)
			floats.AddScaled(x.Grad, g, w.Data[i*cols:(i+1)*cols])
		}
	}
	return r
}

// Linear returns w·x + b.  b may be nil.
func Linear(w, b, x *Tensor) *Tensor {
	y := MatVec(w, x)
	if b == nil {
		return y
	}
	return Add(y, b)
}

// Row returns row i of matrix e as a vector; the embedding lookup.
func Row(e *Tensor, i int) *Tensor {
	cols := e.Cols()
	if i < 0 || i >= e.Rows() {
		panic(fmt.Sprintf("autograd: Row %d of %v", i, e.Shape))
	}
	r := result(append([]float64(nil), e.Data[i*cols:(i+1)*cols]...), e)
	r.back = func() {
		floats.Add(e.Grad[i*cols:(i+1)*cols], r.Grad)
	}
	return r
}

// Dot returns the scalar a·b.
func Dot(a, b *Tensor) *Tensor {
	sameLen("Dot", a, b)
	r := result([]float64{floats.Dot(a.Data, b.Data)}, a, b)
	r.back = func() {
		g := r.Grad[0]
		floats.AddScaled(a.Grad, g, b.Data)
		floats.AddScaled(b.Grad, g, a.Data)
	}
	return r
}

// ─────────────────────────────────────────────────────────────────────────────
// Element-wise
// ─────────────────────────────────────────────────────────────────────────────

func sameLen(op string, a, b *Tensor) {
	if a.Len() != b.Len() {
		panic(fmt.Sprintf("autograd: %s length mismatch %d vs %d", op, a.Len(), b.Len()))
	}
}

// Add returns a + b.
func Add(a, b *Tensor) *Tensor {
	sameLen("Add", a, b)
	out := append([]float64(nil), a.Data...)
	floats.Add(out, b.Data)
	r := result(out, a, b)
	r.back = func() {
		floats.Add(a.Grad, r.Grad)
		floats.Add(b.Grad, r.Grad)
	}
	return r
}

// Sub returns a − b.
func Sub(a, b *Tensor) *Tensor {
	sameLen("Sub", a, b)
	out := append([]float64(nil), a.Data...)
	floats.Sub(out, b.Data)
	r := result(out, a, b)
	r.back = func() {
		floats.Add(a.Grad, r.Grad)
		floats.AddScaled(b.Grad, -1, r.Grad)
	}
	return r
}

// Mul returns the Hadamard product a ⊙ b.
func Mul(a, b *Tensor) *Tensor {
	sameLen("Mul", a, b)
	out := make([]float64, a.Len())
	floats.MulTo(out, a.Data, b.Data)
	r := result(out, a, b)
	r.back = func() {
		for i, g := range r.Grad {
			a.Grad[i] += g * b.Data[i]
			b.Grad[i] += g * a.Data[i]
		}
	}
	return r
}

// Scale returns s·a.
func Scale(a *Tensor, s float64) *Tensor {
	out := append([]float64(nil), a.Data...)
	floats.Scale(s, out)
	r := result(out, a)
	r.back = func() {
		floats.AddScaled(a.Grad, s, r.Grad)
	}
	return r
}

// OneMinus returns 1 − a.
func OneMinus(a *Tensor) *Tensor {
	out := make([]float64, a.Len())
	for i, v := range a.Data {
		out[i] = 1 - v
	}
	r := result(out, a)
	r.back = func() {
		floats.AddScaled(a.Grad, -1, r.Grad)
	}
	return r
}

// Sum returns the element-wise sum of ts.  With no inputs it returns n zeros.
func Sum(n int, ts ...*Tensor) *Tensor {
	out := make([]float64, n)
	for _, t := range ts {
		if t.Len() != n {
			panic(fmt.Sprintf("autograd: Sum length %d, want %d", t.Len(), n))
		}
		floats.Add(out, t.Data)
	}
	r := result(out, ts...)
	r.back = func() {
		for _, t := range ts {
			floats.Add(t.Grad, r.Grad)
		}
	}
	return r
}

// Mean returns the element-wise mean of ts, which must be non-empty.
func Mean(ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		panic("autograd: Mean of nothing")
	}
	return Scale(Sum(ts[0].Len(), ts...), 1/float64(len(ts)))
}

// Concat joins vectors end to end.
func Concat(ts ...*Tensor) *Tensor {
	var out []float64
	for _, t := range ts {
		out = append(out, t.Data...)
	}
	r := result(out, ts...)
	r.back = func() {
		off := 0
		for _, t := range ts {
			floats.Add(t.Grad, r.Grad[off:off+t.Len()])
			off += t.Len()
		}
	}
	return r
}

// Stack joins scalars into a vector.
func Stack(ts ...*Tensor) *Tensor { return Concat(ts...) }

// ─────────────────────────────────────────────────────────────────────────────
// Non-linearities
// ─────────────────────────────────────────────────────────────────────────────

func unary(a *Tensor, f func(float64) float64, df func(x, y float64) float64) *Tensor {
	out := make([]float64, a.Len())
	for i, v := range a.Data {
		out[i] = f(v)
	}
	r := result(out, a)
	r.back = func() {
		for i, g := range r.Grad {
			if g != 0 {
				a.Grad[i] += g * df(a.Data[i], out[i])
			}
		}
	}
	return r
}

// ReLU returns max(a, 0).
func ReLU(a *Tensor) *Tensor {
	return unary(a, func(x float64) float64 { return math.Max(x, 0) },
		func(x, _ float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		})
}

// Sigmoid returns 1 / (1 + e^−a).
func Sigmoid(a *Tensor) *Tensor {
	return unary(a, sigmoid, func(_, y float64) float64 { return y * (1 - y) })
}

// Tanh returns tanh(a).
func Tanh(a *Tensor) *Tensor {
	return unary(a, math.Tanh, func(_, y float64) float64 { return 1 - y*y })
}

// Exp returns e^a.
func Exp(a *Tensor) *Tensor {
	return unary(a, math.Exp, func(_, y float64) float64 { return y })
}

// NegAbs returns −|a|.
func NegAbs(a *Tensor) *Tensor {
	return unary(a, func(x float64) float64 { return -math.Abs(x) },
		func(x, _ float64) float64 {
			if x > 0 {
				return -1
			}
			if x < 0 {
				return 1
			}
			return 0
		})
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Argmax returns the index of the largest element.
func Argmax(t *Tensor) int { return floats.MaxIdx(t.Data) }

//Personal.AI order the ending
