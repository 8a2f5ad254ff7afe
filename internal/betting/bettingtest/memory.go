// Package bettingtest traz dublês em memória dos colaboradores do núcleo,
// usados nos testes do engine, do scheduler e da borda HTTP.
package bettingtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/matchpool/matchpool/internal/betting"
)

var errForced = errors.New("forced storage failure")

// Clock é um relógio controlável pelos testes
type Clock struct {
	mu sync.Mutex
	T  time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.T
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.T = c.T.Add(d)
}

// PlainHasher guarda a senha em claro com um prefixo; só para testes
type PlainHasher struct{}

func (PlainHasher) Hash(plain string) (string, error) { return "plain:" + plain, nil }

func (PlainHasher) Verify(hash, plain string) error {
	if hash != "plain:"+plain {
		return betting.Forbidden("password mismatch")
	}
	return nil
}

// Store implementa os três repositórios do núcleo em memória, com a mesma
// semântica do Postgres: agregados copiados na leitura e compare-and-swap
// na versão da partida.
type Store struct {
	mu      sync.Mutex
	tables  map[string]*betting.Table
	matches map[string]*betting.Match

	// FailUpdateMatch força falha de armazenamento, para testes de erro
	FailUpdateMatch bool
}

func NewStore() *Store {
	return &Store{
		tables:  make(map[string]*betting.Table),
		matches: make(map[string]*betting.Match),
	}
}

func cloneTable(t *betting.Table) *betting.Table {
	c := *t
	c.Members = append([]betting.Membership(nil), t.Members...)
	return &c
}

func cloneMatch(m *betting.Match) *betting.Match {
	c := *m
	c.Bets = append([]betting.Bet(nil), m.Bets...)
	c.Pool.Payouts = append([]betting.Payout(nil), m.Pool.Payouts...)
	return &c
}

// ---- TableRepository ----

func (s *Store) CreateTable(ctx context.Context, t *betting.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[t.ID]; ok {
		return betting.Conflict("table %s already exists", t.ID)
	}
	s.tables[t.ID] = cloneTable(t)
	return nil
}

func (s *Store) TableByID(ctx context.Context, id string) (*betting.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, betting.NotFound("table %s not found", id)
	}
	return cloneTable(t), nil
}

func (s *Store) TableByName(ctx context.Context, name string) (*betting.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tables {
		if t.Name == name {
			return cloneTable(t), nil
		}
	}
	return nil, betting.NotFound("table named %q not found", name)
}

func (s *Store) UpdateTable(ctx context.Context, t *betting.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[t.ID]; !ok {
		return betting.NotFound("table %s not found", t.ID)
	}
	s.tables[t.ID] = cloneTable(t)
	return nil
}

// DeleteTable remove a mesa e, como o schema (ON DELETE CASCADE), as partidas dela
func (s *Store) DeleteTable(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[id]; !ok {
		return betting.NotFound("table %s not found", id)
	}
	delete(s.tables, id)
	for mid, m := range s.matches {
		if m.TableID == id {
			delete(s.matches, mid)
		}
	}
	return nil
}

// ---- MatchRepository ----

func (s *Store) CreateMatch(ctx context.Context, m *betting.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return betting.Conflict("match %s already exists", m.ID)
	}
	s.matches[m.ID] = cloneMatch(m)
	return nil
}

func (s *Store) MatchByID(ctx context.Context, id string) (*betting.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, betting.NotFound("match %s not found", id)
	}
	return cloneMatch(m), nil
}

func (s *Store) MatchesByTable(ctx context.Context, tableID string) ([]*betting.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*betting.Match
	for _, m := range s.matches {
		if m.TableID == tableID {
			out = append(out, cloneMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KickoffAt.Before(out[j].KickoffAt) })
	return out, nil
}

func (s *Store) DueToStart(ctx context.Context, now time.Time) ([]string, error) {
	return s.dueIDs(betting.MatchScheduled, now), nil
}

func (s *Store) DueToFinish(ctx context.Context, now time.Time, grace time.Duration) ([]string, error) {
	return s.dueIDs(betting.MatchInProgress, now.Add(-grace)), nil
}

func (s *Store) dueIDs(status betting.MatchStatus, cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*betting.Match
	for _, m := range s.matches {
		if m.Status == status && !m.KickoffAt.After(cutoff) {
			due = append(due, m)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].KickoffAt.Before(due[j].KickoffAt) })
	ids := make([]string, 0, len(due))
	for _, m := range due {
		ids = append(ids, m.ID)
	}
	return ids
}

func (s *Store) UpdateMatch(ctx context.Context, m *betting.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdateMatch {
		return betting.StorageError(errForced)
	}
	cur, ok := s.matches[m.ID]
	if !ok {
		return betting.NotFound("match %s not found", m.ID)
	}
	if cur.Version != m.Version {
		return betting.Conflict("match %s was modified concurrently", m.ID)
	}
	c := cloneMatch(m)
	c.Version++
	s.matches[m.ID] = c
	m.Version++
	return nil
}

// SettleMatch aplica partida e pools absorvidos como uma escrita só: se
// qualquer pool absorvido já saiu de ROLLOVER, nada muda e volta conflito.
func (s *Store) SettleMatch(ctx context.Context, m *betting.Match, absorbed []*betting.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdateMatch {
		return betting.StorageError(errForced)
	}
	cur, ok := s.matches[m.ID]
	if !ok {
		return betting.NotFound("match %s not found", m.ID)
	}
	if cur.Version != m.Version {
		return betting.Conflict("match %s was modified concurrently", m.ID)
	}
	owners := make([]*betting.Match, 0, len(absorbed))
	for _, pool := range absorbed {
		owner := s.poolOwner(pool.ID)
		if owner == nil {
			return betting.NotFound("pool %s not found", pool.ID)
		}
		if owner.Pool.Status != betting.PoolRollover {
			return betting.Conflict("pool %s was claimed by another settlement", pool.ID)
		}
		owners = append(owners, owner)
	}
	for i, pool := range absorbed {
		owners[i].Pool.Amount = pool.Amount
		owners[i].Pool.Status = pool.Status
		owners[i].Pool.Payouts = append([]betting.Payout(nil), pool.Payouts...)
	}
	c := cloneMatch(m)
	c.Version++
	s.matches[m.ID] = c
	m.Version++
	return nil
}

func (s *Store) poolOwner(poolID string) *betting.Match {
	for _, m := range s.matches {
		if m.Pool.ID == poolID {
			return m
		}
	}
	return nil
}

func (s *Store) DeleteMatch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[id]; !ok {
		return betting.NotFound("match %s not found", id)
	}
	delete(s.matches, id)
	return nil
}

// ---- PoolRepository ----

func (s *Store) UnclaimedRollovers(ctx context.Context, tableID string) ([]*betting.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owners []*betting.Match
	for _, m := range s.matches {
		if m.TableID == tableID && m.Pool.Status == betting.PoolRollover {
			owners = append(owners, m)
		}
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].KickoffAt.Before(owners[j].KickoffAt) })
	pools := make([]*betting.Pool, 0, len(owners))
	for _, m := range owners {
		p := m.Pool
		p.Payouts = append([]betting.Payout(nil), m.Pool.Payouts...)
		pools = append(pools, &p)
	}
	return pools, nil
}
