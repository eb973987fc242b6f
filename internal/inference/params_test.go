package inference

import (
	"errors"
	"testing"
	"time"
)

func TestSamplingParamsValidate(t *testing.T) {
	t.Parallel()
	base := DefaultSamplingParams()

	cases := []struct {
		name   string
		mutate func(*SamplingParams)
		ok     bool
	}{
		{name: "defaults-valid", mutate: func(*SamplingParams) {}, ok: true},
		{name: "zero-temperature-is-greedy", mutate: func(p *SamplingParams) { p.Temperature = 0 }, ok: true},
		{name: "negative-temperature", mutate: func(p *SamplingParams) { p.Temperature = -0.1 }},
		{name: "negative-top-k", mutate: func(p *SamplingParams) { p.TopK = -1 }},
		{name: "zero-top-p", mutate: func(p *SamplingParams) { p.TopP = 0 }},
		{name: "top-p-above-one", mutate: func(p *SamplingParams) { p.TopP = 1.5 }},
		{name: "top-p-exactly-one", mutate: func(p *SamplingParams) { p.TopP = 1 }, ok: true},
		{name: "repetition-penalty-below-one", mutate: func(p *SamplingParams) { p.RepetitionPenalty = 0.9 }},
		{name: "zero-iterations", mutate: func(p *SamplingParams) { p.MaxIterations = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			err := p.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestDefaultSamplingParams(t *testing.T) {
	t.Parallel()
	p := DefaultSamplingParams()
	if p.Temperature != 0.7 || p.TopP != 0.8 || p.RepetitionPenalty != 1.1 {
		t.Fatalf("unexpected sampling defaults: %+v", p)
	}
	if p.MaxIterations != 2048 || p.RegulationStart != 512 || p.MaxTime != 60*time.Second {
		t.Fatalf("unexpected budget defaults: %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestResolveRequest(t *testing.T) {
	t.Parallel()
	defaults := DefaultSamplingParams()

	t.Run("empty-options-keep-defaults", func(t *testing.T) {
		req := ResolveRequest(RequestOptions{}, defaults)
		if req.Params != defaults {
			t.Fatalf("params = %+v, want defaults", req.Params)
		}
		if req.Preamble != "" {
			t.Fatalf("preamble = %q, want empty so the engine's own applies", req.Preamble)
		}
	})

	t.Run("preamble-passes-through", func(t *testing.T) {
		req := ResolveRequest(RequestOptions{Preamble: "be terse\n"}, defaults)
		if req.Preamble != "be terse\n" {
			t.Fatalf("preamble = %q", req.Preamble)
		}
	})

	t.Run("overrides-apply", func(t *testing.T) {
		temp := 0.0
		topK := 40
		maxNew := 16
		maxTime := 5 * time.Second
		req := ResolveRequest(RequestOptions{
			Temperature:  &temp,
			TopK:         &topK,
			MaxNewTokens: &maxNew,
			MaxTime:      &maxTime,
		}, defaults)
		if req.Params.Temperature != 0 || !req.Params.Greedy() {
			t.Fatalf("temperature override lost: %+v", req.Params)
		}
		if req.Params.TopK != 40 || req.Params.MaxIterations != 16 || req.Params.MaxTime != 5*time.Second {
			t.Fatalf("overrides lost: %+v", req.Params)
		}
		// Untouched knobs stay at defaults.
		if req.Params.TopP != defaults.TopP {
			t.Fatalf("top_p changed: %v", req.Params.TopP)
		}
	})
}
