package inference

import (
	"context"
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/samcharles93/ember/internal/logits"
	"github.com/samcharles93/ember/internal/model"
)

// FinishReason is the terminal state of a decode loop.
type FinishReason string

const (
	// FinishStopped means every batch row matched a stop pattern.
	FinishStopped FinishReason = "stop"
	// FinishTruncated means the iteration cap was reached.
	FinishTruncated FinishReason = "length"
	// FinishTimedOut means the wall-clock budget was exceeded.
	FinishTimedOut FinishReason = "timeout"
	// FinishCancelled means the context was cancelled or the consumer
	// stopped pulling snapshots between steps.
	FinishCancelled FinishReason = "cancelled"
)

// Snapshot is the streaming unit: after every generated token the loop
// publishes the full running sequences (prompt plus everything generated
// so far) for all batch rows. Sequences are copies; a snapshot stays
// valid after the loop advances.
type Snapshot struct {
	Step      int
	Sequences [][]int64
}

// Result summarises a finished run.
type Result struct {
	Reason    FinishReason
	Steps     int
	Sequences [][]int64
	Duration  time.Duration
}

// Generator drives iterative single-token decoding against a model host.
// One Generator runs one sequential loop; it holds no state between runs.
type Generator struct {
	Host   model.Host
	Params SamplingParams
	// Stop holds the patterns that terminate a row. Multiple patterns
	// combine with logical OR.
	Stop []StopPattern
}

// Run executes the decode loop over a batch of prompt rows. ids and mask
// are parallel, equally sized rows; rows may be left-padded to a common
// length, with mask zeros marking the padding. After every generated
// token the publish callback receives a snapshot; returning false stops
// the run between steps (FinishCancelled, no error).
//
// A model-host failure terminates the run with an error wrapping
// ErrGenerationFailed. Snapshots published before the failure remain
// valid.
func (g *Generator) Run(ctx context.Context, ids, mask [][]int64, publish func(Snapshot) bool) (*Result, error) {
	if err := g.Params.Validate(); err != nil {
		return nil, err
	}
	if err := validateBatch(ids, mask); err != nil {
		return nil, err
	}

	rows := len(ids)
	seqs := cloneRows(ids)
	masks := cloneRows(mask)

	// Last real (non-padding) token position per row, for the step-0
	// logit gather. Rows may be left-padded to different lengths.
	lastIdx := make([]int, rows)
	for r, m := range masks {
		n := 0
		for _, v := range m {
			n += int(v)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: batch row %d is all padding", ErrInvalidConfiguration, r)
		}
		lastIdx[r] = n - 1
	}

	detectors := make([]*StopDetector, len(g.Stop))
	for i, p := range g.Stop {
		detectors[i] = NewStopDetector(p, rows)
	}
	var stopIDs []int64
	for _, p := range g.Stop {
		stopIDs = append(stopIDs, p.ids...)
	}

	seed := g.Params.Seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	done := make([]bool, rows)
	lastTok := make([]int64, rows)
	start := time.Now()

	var cache model.Cache
	for step := 0; step < g.Params.MaxIterations; step++ {
		if err := ctx.Err(); err != nil {
			return &Result{Reason: FinishCancelled, Steps: step, Sequences: seqs, Duration: time.Since(start)}, err
		}

		// Full prompt on the first pass, then only the newly generated
		// token per row; the cache carries everything earlier.
		input := seqs
		if step > 0 {
			input = make([][]int64, rows)
			for r := range input {
				input[r] = []int64{lastTok[r]}
			}
		}

		out, newCache, err := g.Host.Forward(ctx, input, masks, cache)
		if err != nil {
			return nil, fmt.Errorf("%w: forward pass at step %d: %w", ErrGenerationFailed, step, err)
		}
		cache = newCache
		if len(out) != rows {
			return nil, fmt.Errorf("%w: host returned %d logit rows for %d sequences", ErrGenerationFailed, len(out), rows)
		}

		for r := 0; r < rows; r++ {
			pos := len(out[r]) - 1
			if step == 0 {
				pos = lastIdx[r]
			}
			if pos < 0 || pos >= len(out[r]) {
				return nil, fmt.Errorf("%w: logit position %d out of range for row %d", ErrGenerationFailed, pos, r)
			}

			next := g.sampleRow(rng, out[r][pos], seqs[r], stopIDs, step)
			seqs[r] = append(seqs[r], next)
			masks[r] = append(masks[r], 1)
			lastTok[r] = next

			for _, d := range detectors {
				if d.Observe(r, next) {
					done[r] = true
				}
			}
		}

		if publish != nil {
			if !publish(Snapshot{Step: step, Sequences: cloneRows(seqs)}) {
				return &Result{Reason: FinishCancelled, Steps: step + 1, Sequences: seqs, Duration: time.Since(start)}, nil
			}
		}

		if allTrue(done) {
			return &Result{Reason: FinishStopped, Steps: step + 1, Sequences: seqs, Duration: time.Since(start)}, nil
		}
		if g.Params.MaxTime > 0 && time.Since(start) > g.Params.MaxTime {
			return &Result{Reason: FinishTimedOut, Steps: step + 1, Sequences: seqs, Duration: time.Since(start)}, nil
		}
	}

	return &Result{Reason: FinishTruncated, Steps: g.Params.MaxIterations, Sequences: seqs, Duration: time.Since(start)}, nil
}

// Stream is the pull-based form of Run. The consumer ranges over
// snapshots; breaking out of the loop stops generation between steps and
// releases the run.
func (g *Generator) Stream(ctx context.Context, ids, mask [][]int64) iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		_, err := g.Run(ctx, ids, mask, func(s Snapshot) bool {
			return yield(s, nil)
		})
		if err != nil {
			yield(Snapshot{}, err)
		}
	}
}

// sampleRow turns one row's raw logits into the next token id. The host's
// logits are cloned before the in-place transforms.
func (g *Generator) sampleRow(rng *rand.Rand, raw []float32, seq []int64, stopIDs []int64, step int) int64 {
	v := slices.Clone(raw)
	logits.PenalizeRepetition(v, seq, float32(g.Params.RepetitionPenalty))

	if g.Params.Greedy() {
		return int64(logits.Argmax(v))
	}

	inv := float32(1 / g.Params.Temperature)
	for i := range v {
		v[i] *= inv
	}

	v = logits.Filter(v, g.Params.TopK, float32(g.Params.TopP))
	probs := logits.Softmax(v)

	// Length regulation: reweight stop-token probabilities once the loop
	// has run past RegulationStart, compounding per extra step. The
	// distribution is renormalised afterwards; the reference skips the
	// renormalisation, which leaves an improper distribution.
	if step > g.Params.RegulationStart && g.Params.LengthPenalty != 1 {
		w := math.Pow(g.Params.LengthPenalty, float64(step-g.Params.RegulationStart))
		touched := false
		for _, id := range stopIDs {
			if id >= 0 && id < int64(len(probs)) {
				probs[id] *= w
				touched = true
			}
		}
		if touched {
			var sum float64
			for _, p := range probs {
				sum += p
			}
			if sum > 0 {
				for i := range probs {
					probs[i] /= sum
				}
			}
		}
	}

	return drawMultinomial(rng, probs)
}

// drawMultinomial samples one index from a probability vector.
func drawMultinomial(rng *rand.Rand, probs []float64) int64 {
	r := rng.Float64()
	var cum float64
	last := 0
	for i, p := range probs {
		if p <= 0 {
			continue
		}
		last = i
		cum += p
		if r <= cum {
			return int64(i)
		}
	}
	// Rounding left a sliver of unassigned mass; take the last viable
	// candidate.
	return int64(last)
}

func validateBatch(ids, mask [][]int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidConfiguration)
	}
	if len(ids) != len(mask) {
		return fmt.Errorf("%w: %d id rows but %d mask rows", ErrInvalidConfiguration, len(ids), len(mask))
	}
	for r := range ids {
		if len(ids[r]) == 0 {
			return fmt.Errorf("%w: batch row %d is empty", ErrInvalidConfiguration, r)
		}
		if len(ids[r]) != len(mask[r]) {
			return fmt.Errorf("%w: row %d has %d ids but %d mask entries", ErrInvalidConfiguration, r, len(ids[r]), len(mask[r]))
		}
	}
	return nil
}

func cloneRows(rows [][]int64) [][]int64 {
	out := make([][]int64, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out
}

func allTrue(v []bool) bool {
	for _, b := range v {
		if !b {
			return false
		}
	}
	return true
}
