package autograd

import (
	"math"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Adam implements the Adam optimiser with bias correction.
type Adam struct {
	Beta1 float64
	Beta2 float64
	Eps   float64

	step int
	m    map[string][]float64
	v    map[string][]float64
}

// AdamState is the serialisable optimiser state.
type AdamState struct {
	Step int                  `json:"step"`
	M    map[string][]float64 `json:"m"`
	V    map[string][]float64 `json:"v"`
}

// NewAdam returns an optimiser with the usual defaults (0.9, 0.999, 1e-8).
func NewAdam() *Adam {
	return &Adam{Beta1: 0.9, Beta2: 0.999, Eps: 1e-8, m: map[string][]float64{}, v: map[string][]float64{}}
}

// Steps returns the number of updates applied.
func (a *Adam) Steps() int { return a.step }

// Step applies one update with learning rate lr using the current gradients.
func (a *Adam) Step(params *ParamSet, lr float64) {
	a.step++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.step))
	for _, name := range params.names {
		t := params.byName[name]
		m, ok := a.m[name]
		if !ok {
			m = make([]float64, t.Len())
			a.m[name] = m
			a.v[name] = make([]float64, t.Len())
		}
		v := a.v[name]
		for i, g := range t.Grad {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
			t.Data[i] -= lr * (m[i] / bc1) / (math.Sqrt(v[i]/bc2) + a.Eps)
		}
	}
}

// State returns a copy of the moments.
func (a *Adam) State() AdamState {
	s := AdamState{Step: a.step, M: make(map[string][]float64, len(a.m)), V: make(map[string][]float64, len(a.v))}
	for k, m := range a.m {
		s.M[k] = append([]float64(nil), m...)
		s.V[k] = append([]float64(nil), a.v[k]...)
	}
	return s
}

// LoadState restores moments saved by State.  Moment vectors must match the
// parameter lengths in params.
func (a *Adam) LoadState(s AdamState, params *ParamSet) error {
	for k, m := range s.M {
		t, ok := params.Get(k)
		if !ok {
			return errors.New(errors.ErrCodeModelConfig, "optimizer state names unknown parameter").WithDetail(k)
		}
		if len(m) != t.Len() || len(s.V[k]) != t.Len() {
			return errors.New(errors.ErrCodeModelConfig, "optimizer state length mismatch").WithDetail(k)
		}
	}
	a.step = s.Step
	a.m = make(map[string][]float64, len(s.M))
	a.v = make(map[string][]float64, len(s.V))
	for k, m := range s.M {
		a.m[k] = append([]float64(nil), m...)
		a.v[k] = append([]float64(nil), s.V[k]...)
	}
	return nil
}

//Personal.AI order the ending
