package domain

// LobbyPlayer is a roster entry as the lobby subsystem reports it.
type LobbyPlayer struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Character      string `json:"character"`
	CharacterLevel int    `json:"characterLevel"`
	IsConnected    bool   `json:"isConnected"`
}

// Lobby is the pre-game grouping a session is started from.
type Lobby struct {
	ID             string        `json:"id"`
	Code           string        `json:"code"`
	HostID         string        `json:"hostId"`
	Language       string        `json:"language"`
	QuestionSetIDs []int64       `json:"questionSetIds"`
	Players        []LobbyPlayer `json:"players"`
	Ended          bool          `json:"ended"`
}

// Question is a single-language view of a stored question. Multilingual
// storage is collapsed to the session language before it reaches the game.
type Question struct {
	ID            int64    `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	QuestionSetID int64    `json:"questionSetId"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuestionSetInfo is the slice of lobby configuration the game needs to
// resolve its question pool.
type QuestionSetInfo struct {
	QuestionSetIDs []int64 `json:"questionSetIds"`
	Language       string  `json:"language"`
}

// SessionRecord is the persisted shape of a newly started game session.
type SessionRecord struct {
	LobbyID        string  `json:"lobbyId"`
	LobbyCode      string  `json:"lobbyCode"`
	QuestionSetIDs []int64 `json:"questionSetIds"`
	TotalQuestions int     `json:"totalQuestions"`
	PlayerCount    int     `json:"playerCount"`
}

// SessionSummary carries the aggregate numbers written when a session ends.
type SessionSummary struct {
	QuestionsPlayed int            `json:"questionsPlayed"`
	Scores          map[string]int `json:"scores"` // player id -> final score
}

// PlayerStats is one player's final line handed to persistence.
type PlayerStats struct {
	PlayerID       string  `json:"playerId"`
	UserID         string  `json:"userId,omitempty"` // empty for guests
	Username       string  `json:"username"`
	Score          int     `json:"score"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalQuestions int     `json:"totalQuestions"`
	Multiplier     float64 `json:"multiplier"`
}

// ExperienceAward is what the persistence layer reports back after saving a
// player result. Nil awards are valid (guest players have no account to level).
type ExperienceAward struct {
	ExperienceAwarded int  `json:"experienceAwarded"`
	LevelUp           bool `json:"levelUp"`
	OldLevel          int  `json:"oldLevel"`
	NewLevel          int  `json:"newLevel"`
}
