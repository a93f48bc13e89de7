package wasm

import "sync"

// handleSet tracks the guest handles that currently have a live host-side
// wrapper. Close uses it to find instances the application never released.
type handleSet struct {
	mu   sync.Mutex
	live map[uint64]struct{}
}

func newHandleSet() *handleSet {
	return &handleSet{live: make(map[uint64]struct{})}
}

func (s *handleSet) insert(h uint64) {
	s.mu.Lock()
	s.live[h] = struct{}{}
	s.mu.Unlock()
}

func (s *handleSet) remove(h uint64) {
	s.mu.Lock()
	delete(s.live, h)
	s.mu.Unlock()
}

// drain empties the set and returns the handles it held.
func (s *handleSet) drain() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, 0, len(s.live))
	for h := range s.live {
		out = append(out, h)
	}
	s.live = make(map[uint64]struct{})
	return out
}

func (s *handleSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}
