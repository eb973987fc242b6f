package inference

import (
	"time"

	"github.com/samcharles93/ember/internal/tokenizer"
)

// Request is a fully resolved generation request. It is immutable once a
// run starts.
type Request struct {
	Messages     []tokenizer.Message
	Preamble     string
	Capabilities Capabilities
	Params       SamplingParams
}

// RequestOptions carries caller-supplied overrides. Pointer fields
// distinguish "not set" from explicit zero values; unset fields fall back
// to the engine defaults.
type RequestOptions struct {
	Messages []tokenizer.Message

	// Preamble overrides the engine's system preamble. Empty keeps the
	// engine's own (the checkpoint default unless configured otherwise).
	Preamble string

	Temperature       *float64
	TopK              *int
	TopP              *float64
	RepetitionPenalty *float64
	LengthPenalty     *float64
	RegulationStart   *int
	MaxNewTokens      *int
	MaxTime           *time.Duration
	Seed              *int64
}

// ResolveRequest merges overrides onto the provided defaults.
func ResolveRequest(opts RequestOptions, defaults SamplingParams) Request {
	p := defaults

	if opts.Temperature != nil {
		p.Temperature = *opts.Temperature
	}
	if opts.TopK != nil {
		p.TopK = *opts.TopK
	}
	if opts.TopP != nil {
		p.TopP = *opts.TopP
	}
	if opts.RepetitionPenalty != nil {
		p.RepetitionPenalty = *opts.RepetitionPenalty
	}
	if opts.LengthPenalty != nil {
		p.LengthPenalty = *opts.LengthPenalty
	}
	if opts.RegulationStart != nil {
		p.RegulationStart = *opts.RegulationStart
	}
	if opts.MaxNewTokens != nil {
		p.MaxIterations = *opts.MaxNewTokens
	}
	if opts.MaxTime != nil {
		p.MaxTime = *opts.MaxTime
	}
	if opts.Seed != nil {
		p.Seed = *opts.Seed
	}

	// Preamble and Capabilities stay zero unless overridden so the
	// engine's own configuration applies.
	return Request{
		Messages: opts.Messages,
		Preamble: opts.Preamble,
		Params:   p,
	}
}
