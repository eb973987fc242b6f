// Package model defines the boundary between the decode loop and the
// model-serving runtime that owns the transformer weights. The runtime is
// treated as an opaque collaborator: it encodes nothing, samples nothing,
// and only turns token ids into next-token logits.
package model

import "context"

// Cache is the opaque incremental-decoding state returned by a host's
// forward pass. It is owned by the host; callers thread it through
// successive Forward calls and never inspect it. Ownership transfers on
// every call, so a single cache value must not be used concurrently.
type Cache any

// Host is the forward-pass surface of a loaded checkpoint.
type Host interface {
	// Forward runs one forward pass over a batch of token-id rows with
	// their attention masks (1 = real token, 0 = padding) and the cache
	// from the previous call (nil on the first call). It returns
	// next-token logits shaped [batch][seq][vocab] and the updated cache.
	//
	// Forward performs no retries. Any error is fatal to the generation
	// run that issued the call; the host makes no guarantee about cache
	// validity after a failure.
	Forward(ctx context.Context, ids, mask [][]int64, cache Cache) ([][][]float32, Cache, error)

	// Close releases the host's resources (device memory, cache slots).
	Close() error
}
