// Package locks provides per-key mutual exclusion. Buy, sell, deposit
// and withdraw sequences for the same portfolio id must not interleave
// in-process; unrelated portfolios proceed in parallel.
package locks

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Keyed is a set of mutexes addressed by string key. The zero value is
// not usable; call New.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty keyed lock set
func New() *Keyed {
	return &Keyed{entries: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns the matching unlock
// function. Entries are reference-counted and removed once unused so the
// map does not grow with every portfolio ever touched.
func (k *Keyed) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
