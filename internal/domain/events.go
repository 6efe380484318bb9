package domain

// Event payloads crossing the broadcast boundary. One struct per event type
// keeps the boundary a closed, typed contract.

// QuestionView is a question as clients may see it mid-game: the correct
// answer and explanation stay server-side until the question ends.
type QuestionView struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// QuestionStarted announces a new question cycle.
type QuestionStarted struct {
	Question       QuestionView `json:"question"`
	QuestionIndex  int          `json:"questionIndex"`
	TotalQuestions int          `json:"totalQuestions"`
	TimeRemaining  int          `json:"timeRemaining"`
}

// TimeUpdate is emitted once per timer tick.
type TimeUpdate struct {
	TimeRemaining int `json:"timeRemaining"`
}

// AnswerReceived tells the room a player has locked in, without revealing
// whether they were right.
type AnswerReceived struct {
	PlayerID       string  `json:"playerId"`
	HasAnswered    bool    `json:"hasAnswered"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

// PlayerQuestionResult is one player's outcome for a single question.
type PlayerQuestionResult struct {
	PlayerID   string  `json:"playerId"`
	Username   string  `json:"username"`
	Answer     string  `json:"answer"`
	IsCorrect  bool    `json:"isCorrect"`
	Score      int     `json:"score"`
	Multiplier float64 `json:"multiplier"`
	TimeTaken  float64 `json:"timeTaken"`
}

// QuestionEnded reveals the correct answer alongside everyone's results.
type QuestionEnded struct {
	Results        []PlayerQuestionResult `json:"results"`
	CorrectAnswer  string                 `json:"correctAnswer"`
	Explanation    string                 `json:"explanation,omitempty"`
	QuestionIndex  int                    `json:"questionIndex"`
	TotalQuestions int                    `json:"totalQuestions"`
}

// PlayerFinalResult is one row of the final scoreboard.
type PlayerFinalResult struct {
	PlayerID          string  `json:"playerId"`
	Username          string  `json:"username"`
	Character         string  `json:"character"`
	CharacterLevel    int     `json:"characterLevel"`
	Score             int     `json:"score"`
	CorrectAnswers    int     `json:"correctAnswers"`
	Multiplier        float64 `json:"multiplier"`
	ExperienceAwarded int     `json:"experienceAwarded"`
	LevelUp           bool    `json:"levelUp"`
	NewLevel          int     `json:"newLevel"`
}

// GameEnded closes the session; results are sorted by score descending.
type GameEnded struct {
	SessionID      string              `json:"sessionId"`
	QuestionSetIDs []int64             `json:"questionSetIds"`
	Results        []PlayerFinalResult `json:"results"`
}

// PlayerLevelUp is sent once per player who gained a level this session.
type PlayerLevelUp struct {
	PlayerID          string `json:"playerId"`
	Username          string `json:"username"`
	Character         string `json:"character"`
	OldLevel          int    `json:"oldLevel"`
	NewLevel          int    `json:"newLevel"`
	ExperienceAwarded int    `json:"experienceAwarded"`
}
