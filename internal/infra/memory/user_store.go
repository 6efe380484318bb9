package memory

import (
	"context"
	"sync"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/leveling"
)

// Account is a registered user with accumulated experience.
type Account struct {
	ID         string
	Username   string
	Experience int
	Level      int
}

// UserStore is an in-memory game.UserDirectory that also tracks experience,
// so the memory SessionRepository can award levels without a database.
type UserStore struct {
	mu       sync.RWMutex
	byName   map[string]*Account
	accounts map[string]*Account
}

func NewUserStore() *UserStore {
	return &UserStore{
		byName:   make(map[string]*Account),
		accounts: make(map[string]*Account),
	}
}

// AddUser registers an account. Exposed for seeding and tests.
func (s *UserStore) AddUser(id, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account := &Account{ID: id, Username: username, Level: 1}
	s.byName[username] = account
	s.accounts[id] = account
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byName[username]
	if !ok {
		return "", domain.ErrUserNotFound
	}
	return account.ID, nil
}

// AddExperience credits xp to an account and reports the level transition.
func (s *UserStore) AddExperience(userID string, xp int) (oldLevel, newLevel int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[userID]
	if !ok {
		return 0, 0, domain.ErrUserNotFound
	}
	oldLevel = account.Level
	account.Experience += xp
	account.Level = leveling.LevelFor(account.Experience)
	return oldLevel, account.Level, nil
}

// Account returns a copy of the stored account; used by tests.
func (s *UserStore) Account(userID string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[userID]
	if !ok {
		return Account{}, false
	}
	return *account, true
}
