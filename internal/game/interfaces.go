package game

import (
	"context"

	"quiz-game-service/internal/domain"
)

// Registry tracks which lobby currently has a running game. It is the only
// structure shared across lobbies, so implementations must be safe for
// concurrent use.
type Registry interface {
	// Put registers a game for a lobby code. It returns
	// domain.ErrGameInProgress if one is already registered.
	Put(lobbyCode string, state *GameState) error
	Get(lobbyCode string) (*GameState, bool)
	Remove(lobbyCode string)
}

// LobbyDirectory exposes the lobby subsystem the game reads rosters from.
type LobbyDirectory interface {
	GetByCode(ctx context.Context, code string) (domain.Lobby, error)
	QuestionSetInfo(ctx context.Context, code string) (domain.QuestionSetInfo, error)
	UpdatePlayerConnection(ctx context.Context, code, playerID string, connected bool) error
	MarkEnded(ctx context.Context, lobbyID string) error
}

// QuestionSource fetches up to count questions drawn from the given question
// sets, already collapsed to one language.
type QuestionSource interface {
	GetRandom(ctx context.Context, questionSetIDs []int64, language string, count int) ([]domain.Question, error)
}

// SessionRepository persists game sessions and per-player results.
// SavePlayerResult may return a nil award when the player has no account.
type SessionRepository interface {
	CreateSession(ctx context.Context, rec domain.SessionRecord) (string, error)
	EndSession(ctx context.Context, sessionID string, summary domain.SessionSummary) error
	SavePlayerResult(ctx context.Context, sessionID string, stats domain.PlayerStats) (*domain.ExperienceAward, error)
}

// UserDirectory resolves usernames to account IDs, best-effort.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (string, error)
}

// Notifier is the outbound boundary: every externally visible state
// transition goes through one of these, fanned out to the lobby's room.
type Notifier interface {
	QuestionStarted(lobbyCode string, ev domain.QuestionStarted)
	TimeUpdate(lobbyCode string, ev domain.TimeUpdate)
	AnswerReceived(lobbyCode string, ev domain.AnswerReceived)
	QuestionEnded(lobbyCode string, ev domain.QuestionEnded)
	GameEnded(lobbyCode string, ev domain.GameEnded)
	PlayerLevelUp(lobbyCode string, ev domain.PlayerLevelUp)
}
