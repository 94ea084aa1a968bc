package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/codeduels/duel-server/internal/apperr"
)

// MemStore is an in-process Store used by tests and local runs
// without a database. The mutex makes Complete the same atomic
// check-and-set the postgres implementation provides.
type MemStore struct {
	mu    sync.Mutex
	duels map[string]*Duel
}

func NewMemStore() *MemStore {
	return &MemStore{duels: make(map[string]*Duel)}
}

func (s *MemStore) Create(_ context.Context, d *Duel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	cp := *d
	s.duels[d.ID] = &cp
	return nil
}

func (s *MemStore) Get(_ context.Context, id string) (*Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duels[id]
	if !ok {
		return nil, apperr.NotFound("duel %s not found", id)
	}
	cp := *d
	return &cp, nil
}

func (s *MemStore) ListOngoing(_ context.Context) ([]Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Duel
	for _, d := range s.duels {
		if d.Status != StatusCompleted {
			out = append(out, *d)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemStore) ListOngoingFor(_ context.Context, identity string) ([]Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Duel
	for _, d := range s.duels {
		if d.Status == StatusCompleted {
			continue
		}
		if d.Challenger == identity || d.OpponentEmail == identity {
			out = append(out, *d)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemStore) Activate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.duels[id]; ok && d.Status == StatusPending {
		d.Status = StatusActive
		d.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemStore) Complete(ctx context.Context, id, winner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duels[id]
	if !ok {
		return false, apperr.NotFound("duel %s not found", id)
	}
	if d.Status == StatusCompleted {
		return false, nil
	}
	d.Status = StatusCompleted
	d.Winner = winner
	d.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.duels[id]; !ok {
		return false, nil
	}
	delete(s.duels, id)
	return true, nil
}

func sortByCreated(duels []Duel) {
	sort.Slice(duels, func(i, j int) bool {
		return duels[i].CreatedAt.After(duels[j].CreatedAt)
	})
}
