package source

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// KeyRing rotates through a set of API keys, skipping keys that have
// been marked quota-exhausted. When every key is exhausted the ring
// clears the marks and reports a cooldown so the caller can back off
// before retrying, instead of hammering a dead quota.
//
// KeyRing is safe for concurrent use.
type KeyRing struct {
	mu        sync.Mutex
	keys      []string
	current   int
	usage     map[int]int
	exhausted map[int]bool
}

// NewKeyRing builds a ring from a comma-separated key list. Whitespace
// around each key is trimmed and empty entries are dropped.
func NewKeyRing(commaSeparated string) (*KeyRing, error) {
	var keys []string
	for _, k := range strings.Split(commaSeparated, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no api keys configured")
	}
	return &KeyRing{
		keys:      keys,
		usage:     make(map[int]int),
		exhausted: make(map[int]bool),
	}, nil
}

// Current returns the active key and records one use of it.
func (r *KeyRing) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage[r.current]++
	return r.keys[r.current]
}

// Len returns the number of keys in the ring.
func (r *KeyRing) Len() int {
	return len(r.keys)
}

// MarkExhausted flags the active key as out of quota and advances to
// the next available key. It returns a cooldown duration: zero when
// another key was available, non-zero when every key was exhausted (in
// which case the marks are cleared and the caller should sleep before
// the next use).
func (r *KeyRing) MarkExhausted() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.exhausted[r.current] = true

	for i := 1; i <= len(r.keys); i++ {
		next := (r.current + i) % len(r.keys)
		if !r.exhausted[next] {
			r.current = next
			return 0
		}
	}

	// Every key is exhausted. Reset and ask the caller to wait out the
	// provider's rate window.
	r.exhausted = make(map[int]bool)
	r.current = (r.current + 1) % len(r.keys)
	return time.Minute
}

// Stats reports per-key usage counts and how many keys are currently
// marked exhausted.
func (r *KeyRing) Stats() (usage map[int]int, exhausted int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	usage = make(map[int]int, len(r.usage))
	for k, v := range r.usage {
		usage[k] = v
	}
	return usage, len(r.exhausted)
}
