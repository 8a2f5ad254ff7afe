package results

import "sync"

// Store guarda em memória o último resultado conhecido de cada partida.
// Implementa o ResultSource do scheduler.
type Store struct {
	mu      sync.RWMutex
	byMatch map[string]string
}

func NewStore() *Store {
	return &Store{byMatch: make(map[string]string)}
}

func (s *Store) ResultFor(matchID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byMatch[matchID]
	return r, ok
}

func (s *Store) Set(matchID, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byMatch[matchID] = result
}
