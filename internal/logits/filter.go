// Package logits provides the per-step logit transformations used by the
// decode loop: top-k / top-p (nucleus) truncation and repetition penalty.
//
// All transformations operate on a full vocabulary-sized vector of raw
// model scores. Masked entries are set to negative infinity so that a
// softmax over the result assigns them zero probability.
package logits

import (
	"math"
	"slices"
)

// Inf is the mask value for filtered-out tokens.
var Inf = float32(math.Inf(1))

// Filter applies top-k and then top-p truncation to a logits vector and
// returns the filtered copy. The input slice is not modified.
//
// topK == 0 disables top-k; topP >= 1 disables top-p. Ties at the top-k
// boundary are all kept: only values strictly below the k-th largest are
// masked. Top-p keeps the smallest descending prefix whose cumulative
// softmax probability reaches topP, always including the token that
// crosses the threshold, and never masks the highest-probability token.
func Filter(in []float32, topK int, topP float32) []float32 {
	out := slices.Clone(in)

	if topK > 0 && topK < len(out) {
		kth := kthLargest(out, topK)
		for i, v := range out {
			if v < kth {
				out[i] = -Inf
			}
		}
	}

	if topP < 1 && len(out) > 0 {
		order := make([]int, len(out))
		for i := range order {
			order[i] = i
		}
		slices.SortFunc(order, func(a, b int) int {
			switch {
			case out[a] > out[b]:
				return -1
			case out[a] < out[b]:
				return 1
			}
			return a - b
		})

		probs := softmaxOrdered(out, order)

		// Mask everything past the threshold crosser. The removal mask is
		// shifted right by one so the first token whose cumulative
		// probability exceeds topP survives, and index 0 always survives.
		var cum float64
		prevRemove := false
		for rank, idx := range order {
			remove := prevRemove
			cum += probs[rank]
			prevRemove = float32(cum) > topP
			if rank == 0 {
				continue
			}
			if remove {
				out[idx] = -Inf
			}
		}
	}

	return out
}

// kthLargest returns the k-th largest value in v. k must be in [1, len(v)].
func kthLargest(v []float32, k int) float32 {
	top := make([]float32, 0, k)
	for _, x := range v {
		pos := len(top)
		for pos > 0 && top[pos-1] < x {
			pos--
		}
		if pos >= k {
			continue
		}
		if len(top) < k {
			top = append(top, 0)
		}
		copy(top[pos+1:], top[pos:])
		top[pos] = x
	}
	return top[len(top)-1]
}

// softmaxOrdered computes softmax probabilities for v visited in the given
// (descending) order. Masked -Inf entries contribute zero.
func softmaxOrdered(v []float32, order []int) []float64 {
	probs := make([]float64, len(order))
	maxv := v[order[0]]
	if math.IsInf(float64(maxv), -1) {
		return probs
	}
	var sum float64
	for rank, idx := range order {
		e := math.Exp(float64(v[idx] - maxv))
		probs[rank] = e
		sum += e
	}
	if sum == 0 {
		return probs
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Softmax converts a logits vector into a probability distribution.
// Entries masked to -Inf receive probability zero.
func Softmax(v []float32) []float64 {
	probs := make([]float64, len(v))
	if len(v) == 0 {
		return probs
	}
	maxv := v[0]
	for _, x := range v[1:] {
		if x > maxv {
			maxv = x
		}
	}
	if math.IsInf(float64(maxv), -1) {
		return probs
	}
	var sum float64
	for i, x := range v {
		e := math.Exp(float64(x - maxv))
		probs[i] = e
		sum += e
	}
	if sum == 0 {
		return probs
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Argmax returns the index of the largest value in v. If the slice is
// empty it panics.
func Argmax(v []float32) int {
	if len(v) == 0 {
		panic("logits: argmax of empty slice")
	}
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
