package ruledata

import (
	"context"
	"sync"

	"gdpgate/internal/domain"
	"gdpgate/pkg/platform/sentinel"
)

// MemoryStore holds rule data in memory for development and tests. It backs
// all three provider interfaces.
type MemoryStore struct {
	mu         sync.RWMutex
	licences   map[string]Licence // keyed by number
	profiles   map[string]CustomerProfile
	thresholds []Threshold
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		licences: make(map[string]Licence),
		profiles: make(map[string]CustomerProfile),
	}
}

// PutLicence seeds or replaces a licence record.
func (s *MemoryStore) PutLicence(l Licence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.licences[l.Number] = l
}

// PutProfile seeds or replaces a customer profile.
func (s *MemoryStore) PutProfile(p CustomerProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Customer.String()] = p
}

// PutThreshold seeds a threshold definition.
func (s *MemoryStore) PutThreshold(t Threshold) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds = append(s.thresholds, t)
}

func (s *MemoryStore) FindByNumber(_ context.Context, number string) (*Licence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.licences[number]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &l, nil
}

func (s *MemoryStore) ListByHolder(_ context.Context, customer domain.CustomerKey) ([]Licence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Licence
	for _, l := range s.licences {
		if l.HolderID == customer.Account {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindByCustomer(_ context.Context, customer domain.CustomerKey) (*CustomerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[customer.String()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ListByScope(_ context.Context, substanceCode string) ([]Threshold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Threshold
	for _, t := range s.thresholds {
		if t.AppliesTo(substanceCode) {
			out = append(out, t)
		}
	}
	return out, nil
}
