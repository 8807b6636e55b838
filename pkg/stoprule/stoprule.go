// Package stoprule implements the stop-rule hierarchy that decides when a
// k-way local search should give up on the current boundary pair (spec
// component D): simple, adaptive and Chernoff-adaptive variants, all
// consuming the same gain stream.
package stoprule

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// StopRule is the common interface all variants implement.
type StopRule interface {
	SearchShouldStop(bestPrefixLen, stepsSinceBest, stepLimit int) bool
	PushStatistics(gain int64)
	ResetStatistics()
}

// Simple stops once steps_since_best exceeds a fixed bound.
type Simple struct {
	bound int
}

func NewSimple(bound int) *Simple { return &Simple{bound: bound} }

func (s *Simple) SearchShouldStop(bestPrefixLen, stepsSinceBest, stepLimit int) bool {
	return stepsSinceBest > s.bound
}

func (s *Simple) PushStatistics(gain int64) {}
func (s *Simple) ResetStatistics()          {}

// Adaptive stops when a variance-based estimate of expected further
// improvement falls below a threshold controlled by alpha
// (kway_adaptive_limits_alpha).
type Adaptive struct {
	alpha  float64
	gains  []float64
}

func NewAdaptive(alpha float64) *Adaptive {
	return &Adaptive{alpha: alpha, gains: make([]float64, 0, 64)}
}

func (a *Adaptive) PushStatistics(gain int64) {
	a.gains = append(a.gains, float64(gain))
}

func (a *Adaptive) ResetStatistics() {
	a.gains = a.gains[:0]
}

// SearchShouldStop estimates the expected future improvement as
// alpha * sqrt(variance + |mean|) of the gains observed so far, floored at
// 1, and stops once the number of fruitless steps since the last improving
// move exceeds that estimate. With fewer than two samples it falls back to
// stepLimit.
func (a *Adaptive) SearchShouldStop(bestPrefixLen, stepsSinceBest, stepLimit int) bool {
	if len(a.gains) < 2 {
		return stepsSinceBest > stepLimit
	}
	mean := stat.Mean(a.gains, nil)
	variance := stat.Variance(a.gains, nil)
	expected := a.alpha * math.Sqrt(variance+math.Abs(mean)+1e-9)
	if expected < 1 {
		expected = 1
	}
	return float64(stepsSinceBest) > expected
}

// Chernoff uses a Chernoff-style tail bound on the probability that no
// further improving move remains, tuned online by a tiny gradient-descent
// loop over the step-limit guess, clamped to [minStepLimit, maxStepLimit].
type Chernoff struct {
	probability   float64
	gdSteps       int
	gdStepSize    float64
	minStepLimit  int
	maxStepLimit  int
	currentLimit  float64
	gains         []float64
	rnd           *rand.Rand
}

func NewChernoff(probability float64, gdSteps int, gdStepSize float64, minStepLimit, maxStepLimit int, seed uint64) *Chernoff {
	return &Chernoff{
		probability:  probability,
		gdSteps:      gdSteps,
		gdStepSize:   gdStepSize,
		minStepLimit: minStepLimit,
		maxStepLimit: maxStepLimit,
		currentLimit: float64(minStepLimit),
		gains:        make([]float64, 0, 64),
		rnd:          rand.New(rand.NewSource(seed)),
	}
}

func (c *Chernoff) PushStatistics(gain int64) {
	c.gains = append(c.gains, float64(gain))
}

func (c *Chernoff) ResetStatistics() {
	c.gains = c.gains[:0]
}

// tailBound estimates P(no improving move in the remaining budget) via a
// Chernoff bound on the observed positive-gain rate. SearchShouldStop then
// nudges currentLimit toward the configured target probability with a few
// gradient-descent steps.
func (c *Chernoff) tailBound(stepsSinceBest int) float64 {
	if len(c.gains) == 0 {
		return 1.0
	}
	positive := 0
	for _, g := range c.gains {
		if g > 0 {
			positive++
		}
	}
	p := float64(positive) / float64(len(c.gains))
	if p <= 0 {
		p = 1e-6
	}
	// Chernoff bound: P(no success in t trials) <= (1-p)^t <= exp(-p*t).
	return math.Exp(-p * float64(stepsSinceBest))
}

func (c *Chernoff) SearchShouldStop(bestPrefixLen, stepsSinceBest, stepLimit int) bool {
	bound := c.tailBound(stepsSinceBest)

	for i := 0; i < c.gdSteps; i++ {
		grad := bound - c.probability
		c.currentLimit -= c.gdStepSize * grad
		if c.currentLimit < float64(c.minStepLimit) {
			c.currentLimit = float64(c.minStepLimit)
		}
		if c.currentLimit > float64(c.maxStepLimit) {
			c.currentLimit = float64(c.maxStepLimit)
		}
	}

	if float64(stepsSinceBest) >= c.currentLimit && bound <= c.probability {
		return true
	}
	return stepsSinceBest > c.maxStepLimit
}
