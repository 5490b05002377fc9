package edges

import (
	"math"

	"github.com/abdelatifsd/Adjacent/internal/domain"
)

// ActiveThreshold is the confidence at which an edge becomes ACTIVE.
const ActiveThreshold = 0.7

// ConfidenceParams shape the capped exponential growth curve.
type ConfidenceParams struct {
	Base   float64
	Growth float64
	Cap    float64
}

// DefaultConfidence puts a single-anchor edge near 0.62 and three anchors past
// ActiveThreshold.
var DefaultConfidence = ConfidenceParams{Base: 0.55, Growth: 0.15, Cap: 0.95}

// ConfidenceFromAnchors maps the number of distinct anchors that observed an
// edge onto [0, cap], rounded to three decimals.
func ConfidenceFromAnchors(n int) float64 {
	return DefaultConfidence.FromAnchors(n)
}

// FromAnchors evaluates the curve for n distinct anchors; n <= 0 yields 0.
func (p ConfidenceParams) FromAnchors(n int) float64 {
	if n <= 0 {
		return 0
	}
	value := p.Base + (1-p.Base)*(1-math.Pow(1-p.Growth, float64(n)))
	return math.Min(p.Cap, math.Round(value*1000)/1000)
}

// StatusFor promotes an edge to ACTIVE once confidence reaches ActiveThreshold.
func StatusFor(confidence float64) domain.EdgeStatus {
	if confidence >= ActiveThreshold {
		return domain.EdgeStatusActive
	}
	return domain.EdgeStatusProposed
}
