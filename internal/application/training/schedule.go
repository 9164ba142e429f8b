package training

import "math"

// BetaSchedule drives the KL weight.  After Warmup steps, β grows by Step
// every Every steps and never exceeds Max.
type BetaSchedule struct {
	Init   float64
	Step   float64
	Max    float64
	Warmup int
	Every  int
}

// Next returns β after completing step, given the current β.
func (s BetaSchedule) Next(step int, beta float64) float64 {
	if s.Every > 0 && step >= s.Warmup && step%s.Every == 0 {
		beta += s.Step
	}
	return math.Min(s.Max, math.Max(0, beta))
}

// At returns β after step steps starting from Init.
func (s BetaSchedule) At(step int) float64 {
	beta := math.Min(s.Max, math.Max(0, s.Init))
	for k := 1; k <= step; k++ {
		beta = s.Next(k, beta)
	}
	return beta
}

// LRSchedule multiplies the learning rate by Rate every Every steps,
// flooring at Min.
type LRSchedule struct {
	Rate  float64
	Every int
	Min   float64
}

// Next returns the learning rate after completing step.
func (s LRSchedule) Next(step int, lr float64) float64 {
	if s.Every > 0 && step > 0 && step%s.Every == 0 {
		lr *= s.Rate
	}
	return math.Max(s.Min, lr)
}

//Personal.AI order the ending
