package domain

import "errors"

var (
	// ErrLobbyNotFound is returned when the lobby code resolves to nothing.
	ErrLobbyNotFound = errors.New("lobby not found")
	// ErrGameNotFound is returned when no session is registered for a lobby.
	ErrGameNotFound = errors.New("game not found")
	// ErrNotHost is returned when a non-host attempts a host-only action.
	ErrNotHost = errors.New("only the host can start the game")
	// ErrGameInProgress is returned when a session already exists for a lobby.
	ErrGameInProgress = errors.New("game already in progress")
	// ErrNoQuestionSets is returned when the lobby has no question sets selected.
	ErrNoQuestionSets = errors.New("lobby has no question sets configured")
	// ErrGameNotActive is returned for submissions against a missing or finished session.
	ErrGameNotActive = errors.New("game is not active")
	// ErrPlayerNotFound is returned when a player is not part of the session roster.
	ErrPlayerNotFound = errors.New("player not found in game")
	// ErrAlreadyAnswered guards against double submission within one question.
	ErrAlreadyAnswered = errors.New("answer already submitted for this question")
	// ErrNoQuestions is a defensive check; the question pool fallback should make it unreachable.
	ErrNoQuestions = errors.New("no questions available for game")
	// ErrUserNotFound indicates a username could not be resolved to an account.
	ErrUserNotFound = errors.New("user not found")
)
