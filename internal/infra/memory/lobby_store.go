package memory

import (
	"context"
	"sync"

	"quiz-game-service/internal/domain"
)

// LobbyStore is an in-memory game.LobbyDirectory, used in tests and when the
// service runs without Redis.
type LobbyStore struct {
	mu      sync.RWMutex
	lobbies map[string]*domain.Lobby // keyed by code
}

func NewLobbyStore() *LobbyStore {
	return &LobbyStore{lobbies: make(map[string]*domain.Lobby)}
}

// Save inserts or replaces a lobby. Exposed for seeding and tests.
func (s *LobbyStore) Save(lobby domain.Lobby) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := lobby
	s.lobbies[lobby.Code] = &stored
}

func (s *LobbyStore) GetByCode(_ context.Context, code string) (domain.Lobby, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lobby, ok := s.lobbies[code]
	if !ok {
		return domain.Lobby{}, domain.ErrLobbyNotFound
	}
	return *lobby, nil
}

func (s *LobbyStore) QuestionSetInfo(_ context.Context, code string) (domain.QuestionSetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lobby, ok := s.lobbies[code]
	if !ok {
		return domain.QuestionSetInfo{}, domain.ErrLobbyNotFound
	}
	return domain.QuestionSetInfo{
		QuestionSetIDs: append([]int64(nil), lobby.QuestionSetIDs...),
		Language:       lobby.Language,
	}, nil
}

func (s *LobbyStore) UpdatePlayerConnection(_ context.Context, code, playerID string, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lobby, ok := s.lobbies[code]
	if !ok {
		return domain.ErrLobbyNotFound
	}
	for i := range lobby.Players {
		if lobby.Players[i].ID == playerID {
			lobby.Players[i].IsConnected = connected
			return nil
		}
	}
	return domain.ErrPlayerNotFound
}

func (s *LobbyStore) MarkEnded(_ context.Context, lobbyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lobby := range s.lobbies {
		if lobby.ID == lobbyID {
			lobby.Ended = true
			return nil
		}
	}
	return domain.ErrLobbyNotFound
}
