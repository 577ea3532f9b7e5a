package override

import (
	"context"
	"sync"
	"time"

	"gdpgate/pkg/platform/sentinel"
)

// MemoryStore keeps override requests in memory. Each entry carries its own
// mutex so Execute serializes per request id without a store-wide lock on the
// mutation path.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[ID]*entry
	byTxnID map[string]ID
}

type entry struct {
	mu  sync.Mutex
	req *Request
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[ID]*entry),
		byTxnID: make(map[string]ID),
	}
}

func (s *MemoryStore) CreateIfAbsent(ctx context.Context, req *Request) (*Request, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existingID, ok := s.byTxnID[req.TransactionID]; ok {
		return s.byID[existingID].req.Clone(), false, nil
	}
	stored := req.Clone()
	s.byID[req.ID] = &entry{req: stored}
	s.byTxnID[req.TransactionID] = req.ID
	return stored.Clone(), true, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id ID) (*Request, error) {
	s.mu.RLock()
	e, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.req.Clone(), nil
}

func (s *MemoryStore) FindByTransaction(_ context.Context, transactionID string) (*Request, error) {
	s.mu.RLock()
	id, ok := s.byTxnID[transactionID]
	var e *entry
	if ok {
		e = s.byID[id]
	}
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.req.Clone(), nil
}

func (s *MemoryStore) Execute(ctx context.Context, id ID, validate func(*Request) error, mutate func(*Request)) (*Request, error) {
	s.mu.RLock()
	e, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(e.req); err != nil {
		return nil, err
	}
	mutate(e.req)
	return e.req.Clone(), nil
}

func (s *MemoryStore) ListPendingBefore(_ context.Context, cutoff time.Time) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, e := range s.byID {
		e.mu.Lock()
		if e.req.State == StatePending && !e.req.CreatedAt.After(cutoff) {
			out = append(out, e.req.Clone())
		}
		e.mu.Unlock()
	}
	return out, nil
}
