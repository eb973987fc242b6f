package inference

import (
	"fmt"
	"time"
)

// SamplingParams bundles every knob of one generation run. A zero
// Temperature is a documented special case selecting greedy argmax
// decoding; negative values are rejected.
type SamplingParams struct {
	// Temperature scales logits before filtering. Must be >= 0;
	// 0 selects greedy argmax decoding.
	Temperature float64

	// TopK keeps only the k highest logits. 0 disables.
	TopK int

	// TopP keeps the smallest nucleus of cumulative probability >= TopP.
	// Must be in (0, 1]; 1 disables.
	TopP float64

	// RepetitionPenalty rescales logits of already-generated tokens.
	// Must be >= 1; 1 disables.
	RepetitionPenalty float64

	// LengthPenalty reweights stop-token probabilities once the step
	// index passes RegulationStart. Values < 1 suppress early stopping,
	// values > 1 encourage it, compounding each step past the threshold.
	LengthPenalty float64

	// RegulationStart is the step index after which LengthPenalty
	// applies.
	RegulationStart int

	// MaxIterations caps the number of generated tokens. Must be > 0.
	MaxIterations int

	// MaxTime is the wall-clock budget for the run. Zero or negative
	// disables the budget.
	MaxTime time.Duration

	// Seed initialises the sampling RNG. Negative seeds select a
	// time-derived seed.
	Seed int64
}

// DefaultSamplingParams mirrors the checkpoint's stock generation
// configuration.
func DefaultSamplingParams() SamplingParams {
	return SamplingParams{
		Temperature:       0.7,
		TopK:              0,
		TopP:              0.8,
		RepetitionPenalty: 1.1,
		LengthPenalty:     1,
		RegulationStart:   512,
		MaxIterations:     2048,
		MaxTime:           60 * time.Second,
		Seed:              -1,
	}
}

// Validate rejects parameter combinations before the decode loop starts.
func (p SamplingParams) Validate() error {
	if p.Temperature < 0 {
		return fmt.Errorf("%w: temperature %v is negative (use 0 for greedy decoding)", ErrInvalidConfiguration, p.Temperature)
	}
	if p.TopK < 0 {
		return fmt.Errorf("%w: top_k %d is negative", ErrInvalidConfiguration, p.TopK)
	}
	if p.TopP <= 0 || p.TopP > 1 {
		return fmt.Errorf("%w: top_p %v outside (0, 1]", ErrInvalidConfiguration, p.TopP)
	}
	if p.RepetitionPenalty < 1 {
		return fmt.Errorf("%w: repetition_penalty %v below 1", ErrInvalidConfiguration, p.RepetitionPenalty)
	}
	if p.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations %d must be positive", ErrInvalidConfiguration, p.MaxIterations)
	}
	return nil
}

// Greedy reports whether the run decodes by argmax instead of sampling.
func (p SamplingParams) Greedy() bool {
	return p.Temperature == 0
}
