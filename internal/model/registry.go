package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samcharles93/ember/internal/tokenizer"
)

// OpenFunc loads a checkpoint snapshot from a local directory and returns
// the forward-pass host together with the checkpoint's tokenizer.
type OpenFunc func(dir string) (Host, tokenizer.Tokenizer, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]OpenFunc)
)

// Register makes a serving backend available under the given name. It is
// intended to be called from a backend package's init, typically pulled in
// with a blank import by the final binary. Registering the same name twice
// panics.
func Register(name string, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if open == nil {
		panic("model: Register with nil OpenFunc")
	}
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("model: backend %q registered twice", name))
	}
	backends[name] = open
}

// Open loads a checkpoint directory with the named backend.
func Open(backend, dir string) (Host, tokenizer.Tokenizer, error) {
	backendsMu.RLock()
	open, ok := backends[backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("model: unknown backend %q (registered: %v)", backend, Backends())
	}
	return open(dir)
}

// Backends returns the sorted names of all registered backends.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
