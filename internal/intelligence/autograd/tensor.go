// Package autograd is a small reverse-mode automatic differentiation engine
// over dense float64 vectors and matrices.  Every op records its parents and
// a closure that pushes the output gradient back to them; Backward replays
// those closures in reverse topological order.
package autograd

import (
	"fmt"
	"math"
)

// Tensor is a 1-D or 2-D array of float64 with an accumulated gradient.
// Matrices are row-major.
type Tensor struct {
	Data  []float64
	Grad  []float64
	Shape []int

	parents []*Tensor
	back    func()
}

// New wraps data with the given shape.  The product of shape must equal
// len(data).
func New(data []float64, shape ...int) *Tensor {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != len(data) {
		panic(fmt.Sprintf("autograd: shape %v does not match %d values", shape, len(data)))
	}
	return &Tensor{Data: data, Grad: make([]float64, len(data)), Shape: append([]int(nil), shape...)}
}

// Vector returns a 1-D tensor over data.
func Vector(data []float64) *Tensor { return New(data, len(data)) }

// Zeros returns a 1-D tensor of n zeros.
func Zeros(n int) *Tensor { return Vector(make([]float64, n)) }

// Scalar returns a 1-element tensor.
func Scalar(v float64) *Tensor { return Vector([]float64{v}) }

// Matrix returns a rows×cols tensor of zeros.
func Matrix(rows, cols int) *Tensor { return New(make([]float64, rows*cols), rows, cols) }

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.Data) }

// Rows returns Shape[0].
func (t *Tensor) Rows() int { return t.Shape[0] }

// Cols returns Shape[1] for matrices and 1 for vectors.
func (t *Tensor) Cols() int {
	if len(t.Shape) < 2 {
		return 1
	}
	return t.Shape[1]
}

// Value returns the first element; used for scalars.
func (t *Tensor) Value() float64 { return t.Data[0] }

// ZeroGrad resets the gradient.
func (t *Tensor) ZeroGrad() {
	for i := range t.Grad {
		t.Grad[i] = 0
	}
}

// Finite reports whether every element is finite.
func (t *Tensor) Finite() bool {
	for _, v := range t.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func result(data []float64, parents ...*Tensor) *Tensor {
	return &Tensor{Data: data, Grad: make([]float64, len(data)), Shape: []int{len(data)}, parents: parents}
}

// Backward seeds root's gradient with 1 and propagates to every tensor it
// depends on.  Gradients accumulate; call ZeroGrad between passes.
func Backward(root *Tensor) {
	order := topo(root)
	for i := range root.Grad {
		root.Grad[i] = 1
	}
	for i := len(order) - 1; i >= 0; i-- {
		if order[i].back != nil {
			order[i].back()
		}
	}
}

// topo returns root's dependency graph in post-order.
func topo(root *Tensor) []*Tensor {
	type frame struct {
		t    *Tensor
		next int
	}
	visited := map[*Tensor]bool{root: true}
	stack := []frame{{t: root}}
	var order []*Tensor
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.t.parents) {
			p := top.t.parents[top.next]
			top.next++
			if !visited[p] {
				visited[p] = true
				stack = append(stack, frame{t: p})
			}
			continue
		}
		order = append(order, top.t)
		stack = stack[:len(stack)-1]
	}
	return order
}

//Personal.AI order the ending
