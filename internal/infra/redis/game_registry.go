package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
)

// GameRegistry is a Redis-aware implementation of game.Registry.
// Notes:
//   - Live GameState stays in the local map: timers and per-lobby locks are
//     process-local by design, so the state itself cannot round-trip Redis.
//   - Redis holds a liveness marker per active lobby, which makes "is a game
//     running for lobby X" observable to the rest of the platform.
type GameRegistry struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.RWMutex
	games map[string]*game.GameState
}

func NewGameRegistry(client *redis.Client, ttl time.Duration) *GameRegistry {
	return &GameRegistry{
		client: client,
		ttl:    ttl,
		games:  make(map[string]*game.GameState),
	}
}

func (r *GameRegistry) Put(lobbyCode string, state *game.GameState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[lobbyCode]; ok {
		return domain.ErrGameInProgress
	}
	r.games[lobbyCode] = state
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(lobbyCode), "1", r.ttl).Err()
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
	if _, ok := r.games[lobbyCode]; !ok {
		return
	}
	delete(r.games, lobbyCode)
	_ = r.client.Del(context.Background(), r.key(lobbyCode)).Err()
}

func (r *GameRegistry) key(lobbyCode string) string {
	return "game:active:" + lobbyCode
}
