package memory

import (
	"sync"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
)

// GameRegistry is the in-memory implementation of game.Registry: one entry
// per lobby with a running session.
type GameRegistry struct {
	mu    sync.RWMutex
	games map[string]*game.GameState
}

func NewGameRegistry() *GameRegistry {
	return &GameRegistry{games: make(map[string]*game.GameState)}
}

func (r *GameRegistry) Put(lobbyCode string, state *game.GameState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[lobbyCode]; ok {
		return domain.ErrGameInProgress
	}
	r.games[lobbyCode] = state
	return nil
}

func (r *GameRegistry) Get(lobbyCode string) (*game.GameState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.games[lobbyCode]
	return state, ok
}

func (r *GameRegistry) Remove(lobbyCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, lobbyCode)
}
