package board

import (
	"sync"

	"github.com/boardlock/boardlock/internal/model"
)

// SessionStore is the client-held session persistence boundary. One claim
// at a time: Save overwrites, Clear erases. The browser build backs this
// with local storage; tests and headless use get the in-memory one.
type SessionStore interface {
	Save(user model.User, token string) error
	Load() (model.User, string, bool)
	Clear() error
}

type MemorySession struct {
	mu    sync.Mutex
	user  model.User
	token string
	set   bool
}

func NewMemorySession() *MemorySession {
	return &MemorySession{}
}

func (s *MemorySession) Save(user model.User, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.token = token
	s.set = true
	return nil
}

func (s *MemorySession) Load() (model.User, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return model.User{}, "", false
	}
	return s.user, s.token, true
}

func (s *MemorySession) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = model.User{}
	s.token = ""
	s.set = false
	return nil
}
