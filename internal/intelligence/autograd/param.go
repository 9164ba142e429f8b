package autograd

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// ParamSet is an ordered collection of named trainable tensors.
type ParamSet struct {
	names  []string
	byName map[string]*Tensor
}

// NewParamSet returns an empty set.
func NewParamSet() *ParamSet {
	return &ParamSet{byName: make(map[string]*Tensor)}
}

// Add registers a zero tensor of the given shape under name.  Registering a
// name twice panics.
func (p *ParamSet) Add(name string, shape ...int) *Tensor {
	if _, dup := p.byName[name]; dup {
		panic("autograd: duplicate parameter " + name)
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	t := New(make([]float64, n), shape...)
	p.names = append(p.names, name)
	p.byName[name] = t
	return t
}

// Get returns the tensor registered under name.
func (p *ParamSet) Get(name string) (*Tensor, bool) {
	t, ok := p.byName[name]
	return t, ok
}

// Names returns parameter names in registration order.
func (p *ParamSet) Names() []string { return append([]string(nil), p.names...) }

// Len returns the number of parameters.
func (p *ParamSet) Len() int { return len(p.names) }

// Size returns the total number of scalar weights.
func (p *ParamSet) Size() int {
	n := 0
	for _, name := range p.names {
		n += p.byName[name].Len()
	}
	return n
}

// ZeroGrad resets every gradient.
func (p *ParamSet) ZeroGrad() {
	for _, name := range p.names {
		p.byName[name].ZeroGrad()
	}
}

// GradNorm returns the global L2 norm of all gradients.
func (p *ParamSet) GradNorm() float64 {
	var s float64
	for _, name := range p.names {
		n := floats.Norm(p.byName[name].Grad, 2)
		s += n * n
	}
	return math.Sqrt(s)
}

// ClipGradNorm rescales gradients so their global norm is at most maxNorm
// and returns the norm measured before clipping.
func (p *ParamSet) ClipGradNorm(maxNorm float64) float64 {
	norm := p.GradNorm()
	if maxNorm > 0 && norm > maxNorm {
		scale := maxNorm / (norm + 1e-6)
		for _, name := range p.names {
			floats.Scale(scale, p.byName[name].Grad)
		}
	}
	return norm
}

// Values copies every parameter's data, keyed by name.
func (p *ParamSet) Values() map[string][]float64 {
	out := make(map[string][]float64, len(p.names))
	for _, name := range p.names {
		out[name] = append([]float64(nil), p.byName[name].Data...)
	}
	return out
}

// Load overwrites parameter data from values.  Every registered parameter
// must be present with a matching length; nothing is written otherwise.
func (p *ParamSet) Load(values map[string][]float64) error {
	for _, name := range p.names {
		v, ok := values[name]
		if !ok {
			return errors.New(errors.ErrCodeModelConfig, "missing parameter").WithDetail(name)
		}
		if len(v) != p.byName[name].Len() {
			return errors.Newf(errors.ErrCodeModelConfig, "parameter %s has %d values, want %d", name, len(v), p.byName[name].Len())
		}
	}
	for _, name := range p.names {
		copy(p.byName[name].Data, values[name])
	}
	return nil
}

// InitXavier zeroes 1-D parameters and fills matrices from a normal
// distribution with std √(2 / (fanIn + fanOut)).
func (p *ParamSet) InitXavier(rng *rand.Rand) {
	for _, name := range p.names {
		t := p.byName[name]
		if len(t.Shape) < 2 {
			for i := range t.Data {
				t.Data[i] = 0
			}
			continue
		}
		std := math.Sqrt(2 / float64(t.Rows()+t.Cols()))
		for i := range t.Data {
			t.Data[i] = rng.NormFloat64() * std
		}
	}
}

//Personal.AI order the ending
