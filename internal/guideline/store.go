package guideline

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store holds the active guideline set. Reads vastly outnumber writes: the
// matcher takes snapshots per message, while Add/Remove happen only on
// explicit administrative calls. Every mutation bumps the version so caches
// derived from a snapshot can tell it is stale.
type Store struct {
	mu         sync.RWMutex
	guidelines []Guideline
	byID       map[string]int
	version    uint64
	onChange   []func()
}

func NewStore(initial []Guideline) *Store {
	s := &Store{byID: make(map[string]int)}
	for _, g := range initial {
		s.addLocked(g)
	}
	return s
}

// LoadStore reads a YAML guideline file ({guidelines: [...]}) into a new Store.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read guidelines file: %w", err)
	}
	var doc struct {
		Guidelines []Guideline `yaml:"guidelines"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse guidelines file: %w", err)
	}
	return NewStore(doc.Guidelines), nil
}

func (s *Store) addLocked(g Guideline) {
	if i, ok := s.byID[g.ID]; ok {
		s.guidelines[i] = g // later entries override earlier ones with the same id
		return
	}
	s.byID[g.ID] = len(s.guidelines)
	s.guidelines = append(s.guidelines, g)
}

// Add merges guidelines into the active set (same-id entries replace the
// existing one) and invalidates derived caches.
func (s *Store) Add(gs ...Guideline) {
	s.mu.Lock()
	for _, g := range gs {
		s.addLocked(g)
	}
	s.version++
	subs := append([]func(){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Remove drops a guideline by id. Missing ids are a no-op but still bump the
// version only when something actually changed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	i, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.guidelines = append(s.guidelines[:i], s.guidelines[i+1:]...)
	delete(s.byID, id)
	for j := i; j < len(s.guidelines); j++ {
		s.byID[s.guidelines[j].ID] = j
	}
	s.version++
	subs := append([]func(){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
	return true
}

// Enabled returns a snapshot of the enabled guidelines.
func (s *Store) Enabled() []Guideline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Guideline, 0, len(s.guidelines))
	for _, g := range s.guidelines {
		if g.Enabled {
			out = append(out, g)
		}
	}
	return out
}

// Snapshot returns a copy of the full set, enabled or not.
func (s *Store) Snapshot() []Guideline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Guideline, len(s.guidelines))
	copy(out, s.guidelines)
	return out
}

func (s *Store) Get(id string) (Guideline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Guideline{}, false
	}
	return s.guidelines[i], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.guidelines)
}

// Version increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// OnChange registers a callback invoked after every mutation. The matcher
// hooks its cache purge here.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}
