package authority

import (
	"errors"
	"sync"
)

var (
	ErrNotAuthorized = errors.New("not_authorized")
	ErrAlreadyExists = errors.New("already_admin")
)

// Store is the flat set of principals holding admin and minting rights.
// The deploying principal passed to New is the first admin; there is no
// removal operation.
type Store struct {
	mu     sync.RWMutex
	admins map[string]struct{}
}

func New(genesis string) *Store {
	return &Store{admins: map[string]struct{}{genesis: {}}}
}

func (s *Store) IsAdmin(principal string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.admins[principal]
	return ok
}

// AddAdmin grants admin rights to principal. Only an existing admin may
// grant them.
func (s *Store) AddAdmin(caller, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[caller]; !ok {
		return ErrNotAuthorized
	}
	if _, ok := s.admins[principal]; ok {
		return ErrAlreadyExists
	}
	s.admins[principal] = struct{}{}
	return nil
}
