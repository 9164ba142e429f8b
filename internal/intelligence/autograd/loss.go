package autograd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// SoftmaxCrossEntropy returns −log softmax(logits)[target] as a scalar.
func SoftmaxCrossEntropy(logits *Tensor, target int) *Tensor {
	if target < 0 || target >= logits.Len() {
		panic(fmt.Sprintf("autograd: target %d outside %d logits", target, logits.Len()))
	}
	lse := floats.LogSumExp(logits.Data)
	r := result([]float64{lse - logits.Data[target]}, logits)
	r.back = func() {
		g := r.Grad[0]
		for i, v := range logits.Data {
			p := math.Exp(v - lse)
			if i == target {
				p--
			}
			logits.Grad[i] += g * p
		}
	}
	return r
}

// BCEWithLogits returns the binary cross-entropy of sigmoid(logit) against
// target ∈ {0, 1}.  logit must be a scalar.
func BCEWithLogits(logit *Tensor, target float64) *Tensor {
	x := logit.Value()
	loss := math.Max(x, 0) - x*target + math.Log1p(math.Exp(-math.Abs(x)))
	r := result([]float64{loss}, logit)
	r.back = func() {
		logit.Grad[0] += r.Grad[0] * (sigmoid(x) - target)
	}
	return r
}

// KLDivergence returns −½ Σ (1 + logvar − mean² − e^logvar), the KL
// divergence of N(mean, e^logvar) from the standard normal.
func KLDivergence(mean, logvar *Tensor) *Tensor {
	sameLen("KLDivergence", mean, logvar)
	var s float64
	for i := range mean.Data {
		s += 1 + logvar.Data[i] - mean.Data[i]*mean.Data[i] - math.Exp(logvar.Data[i])
	}
	r := result([]float64{-0.5 * s}, mean, logvar)
	r.back = func() {
		g := r.Grad[0]
		for i := range mean.Data {
			mean.Grad[i] += g * mean.Data[i]
			logvar.Grad[i] += g * 0.5 * (math.Exp(logvar.Data[i]) - 1)
		}
	}
	return r
}

//Personal.AI order the ending
