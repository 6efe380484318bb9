package game

import (
	"sync"
	"time"

	"quiz-game-service/internal/domain"
)

// PlayerState holds one player's mutable in-session fields. Identity fields
// are copied from the lobby roster at game start and never change.
type PlayerState struct {
	ID             string
	Username       string
	Character      string
	CharacterLevel int

	Score          int
	Multiplier     float64
	CorrectAnswers int

	// Per-question fields, reset at every question start. HasAnswered is
	// write-once per question: a second submission is rejected.
	HasAnswered   bool
	CurrentAnswer string
	AnswerTime    float64

	IsConnected bool
}

// GameState is the full state of one running session. All mutation happens
// under mu, so concurrent submissions from different connections are
// serialized per lobby while independent lobbies run in parallel.
type GameState struct {
	mu sync.Mutex

	LobbyCode      string
	LobbyID        string
	SessionID      string
	Language       string
	QuestionSetIDs []int64

	CurrentQuestionIndex int
	TotalQuestions       int
	TimeRemaining        int
	IsActive             bool

	Questions         []domain.Question
	CurrentQuestion   *domain.Question
	QuestionStartTime time.Time

	Players     map[string]*PlayerState
	playerOrder []string // roster order, fixed at start

	timer        *QuestionTimer
	questionOpen bool // true while a question is accepting answers
	ended        bool // set once by EndSession, never cleared
}

func newGameState(lobby domain.Lobby, sessionID string, questions []domain.Question, questionTime int) *GameState {
	st := &GameState{
		LobbyCode:      lobby.Code,
		LobbyID:        lobby.ID,
		SessionID:      sessionID,
		Language:       lobby.Language,
		TotalQuestions: len(questions),
		TimeRemaining:  questionTime,
		IsActive:       true,
		Questions:      questions,
		Players:        make(map[string]*PlayerState, len(lobby.Players)),
		playerOrder:    make([]string, 0, len(lobby.Players)),
	}
	for _, q := range questions {
		st.QuestionSetIDs = appendSetID(st.QuestionSetIDs, q.QuestionSetID)
	}
	for _, p := range lobby.Players {
		st.Players[p.ID] = &PlayerState{
			ID:             p.ID,
			Username:       p.Username,
			Character:      p.Character,
			CharacterLevel: p.CharacterLevel,
			Multiplier:     BaseMultiplier,
			IsConnected:    p.IsConnected,
		}
		st.playerOrder = append(st.playerOrder, p.ID)
	}
	return st
}

func appendSetID(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// orderedPlayers returns the players in roster order. Callers must hold mu.
func (st *GameState) orderedPlayers() []*PlayerState {
	players := make([]*PlayerState, 0, len(st.playerOrder))
	for _, id := range st.playerOrder {
		players = append(players, st.Players[id])
	}
	return players
}

func (st *GameState) allAnswered() bool {
	// The full roster counts, disconnected players included: a player who
	// dropped without answering stalls early termination until the clock runs out.
	for _, p := range st.Players {
		if !p.HasAnswered {
			return false
		}
	}
	return len(st.Players) > 0
}

func (st *GameState) anyConnected() bool {
	for _, p := range st.Players {
		if p.IsConnected {
			return true
		}
	}
	return false
}
