package logits

// PenalizeRepetition rescales, in place, the logits of every token id that
// already appears in seen. Negative logits are multiplied by penalty
// (pushed further down) and non-negative logits are divided by it, so the
// penalty can never raise a token's score. Each distinct id is rewritten
// exactly once regardless of how many times it occurs in seen.
//
// A penalty of 1 or less disables the transformation.
func PenalizeRepetition(v []float32, seen []int64, penalty float32) {
	if penalty <= 1 || len(seen) == 0 {
		return
	}

	done := make(map[int64]struct{}, len(seen))
	for _, id := range seen {
		if id < 0 || id >= int64(len(v)) {
			continue
		}
		if _, ok := done[id]; ok {
			continue
		}
		done[id] = struct{}{}

		if v[id] < 0 {
			v[id] *= penalty
		} else {
			v[id] /= penalty
		}
	}
}
