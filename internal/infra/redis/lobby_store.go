package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-game-service/internal/domain"
)

// LobbyStore reads and updates lobbies kept as JSON blobs in Redis, where
// the lobby subsystem maintains them. It implements game.LobbyDirectory.
// An id->code index key supports MarkEnded, which is addressed by lobby id.
type LobbyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLobbyStore(client *redis.Client, ttl time.Duration) *LobbyStore {
	return &LobbyStore{client: client, ttl: ttl}
}

// Save writes a lobby and its id index. Exposed for seeding and tests.
func (s *LobbyStore) Save(ctx context.Context, lobby domain.Lobby) error {
	data, err := json.Marshal(lobby)
	if err != nil {
		return fmt.Errorf("marshal lobby: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.codeKey(lobby.Code), data, s.ttl)
	pipe.Set(ctx, s.idKey(lobby.ID), lobby.Code, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *LobbyStore) GetByCode(ctx context.Context, code string) (domain.Lobby, error) {
	data, err := s.client.Get(ctx, s.codeKey(code)).Bytes()
	if err == redis.Nil {
		return domain.Lobby{}, domain.ErrLobbyNotFound
	}
	if err != nil {
		return domain.Lobby{}, fmt.Errorf("get lobby %s: %w", code, err)
	}
	var lobby domain.Lobby
	if err := json.Unmarshal(data, &lobby); err != nil {
		return domain.Lobby{}, fmt.Errorf("unmarshal lobby %s: %w", code, err)
	}
	return lobby, nil
}

func (s *LobbyStore) QuestionSetInfo(ctx context.Context, code string) (domain.QuestionSetInfo, error) {
	lobby, err := s.GetByCode(ctx, code)
	if err != nil {
		return domain.QuestionSetInfo{}, err
	}
	return domain.QuestionSetInfo{
		QuestionSetIDs: lobby.QuestionSetIDs,
		Language:       lobby.Language,
	}, nil
}

func (s *LobbyStore) UpdatePlayerConnection(ctx context.Context, code, playerID string, connected bool) error {
	lobby, err := s.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	found := false
	for i := range lobby.Players {
		if lobby.Players[i].ID == playerID {
			lobby.Players[i].IsConnected = connected
			found = true
			break
		}
	}
	if !found {
		return domain.ErrPlayerNotFound
	}
	return s.Save(ctx, lobby)
}

func (s *LobbyStore) MarkEnded(ctx context.Context, lobbyID string) error {
	code, err := s.client.Get(ctx, s.idKey(lobbyID)).Result()
	if err == redis.Nil {
		return domain.ErrLobbyNotFound
	}
	if err != nil {
		return fmt.Errorf("resolve lobby id %s: %w", lobbyID, err)
	}
	lobby, err := s.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	lobby.Ended = true
	return s.Save(ctx, lobby)
}

func (s *LobbyStore) codeKey(code string) string {
	return "lobby:" + code
}

func (s *LobbyStore) idKey(id string) string {
	return "lobby:id:" + id
}
