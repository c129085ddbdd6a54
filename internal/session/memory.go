package session

import (
	"sync"
	"time"
)

// MemoryStore keeps the credential in process memory only.
type MemoryStore struct {
	mu   sync.Mutex
	cred *Credential
	now  func() time.Time
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{now: o.now}
}

func (s *MemoryStore) Save(userID, email, token string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = &Credential{
		UserID:   userID,
		Email:    email,
		Token:    token,
		IssuedAt: s.now().UTC(),
	}
	copied := *s.cred
	return &copied, nil
}

func (s *MemoryStore) Load() (*Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred == nil {
		return nil, false, nil
	}
	copied := *s.cred
	return &copied, true, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = nil
	return nil
}
