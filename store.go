package authrouter

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds every authorization request the router knows about. It is the
// only shared mutable state of the router: one map behind one RWMutex, so
// status polls proceed concurrently and mutations exclude everything else.
// Reads return value copies, never a live reference, so callers cannot race
// on a shared record. Contents are not persisted across restarts.
type Store struct {
	mu   sync.RWMutex
	reqs map[uuid.UUID]AuthRequest
}

func NewStore() *Store {
	return &Store{reqs: make(map[uuid.UUID]AuthRequest)}
}

func (s *Store) Insert(req AuthRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs[req.ID] = req
}

// Update replaces the stored record for the request's id.
func (s *Store) Update(req AuthRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs[req.ID] = req
}

// Get returns a copy of the record, if present.
func (s *Store) Get(id uuid.UUID) (AuthRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.reqs[id]
	return req, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reqs)
}

// SweepTerminal evicts terminal records whose last update is older than the
// retention window and reports how many were removed. Non-terminal records
// are never evicted: a request still mid-flow stays addressable no matter
// how old it is.
func (s *Store) SweepTerminal(retention time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, req := range s.reqs {
		if req.Status.Terminal() && now.Sub(req.UpdatedAt) > retention {
			delete(s.reqs, id)
			n++
		}
	}
	return n
}
