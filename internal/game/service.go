package game

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"quiz-game-service/internal/domain"
)

const (
	// DefaultQuestionSeconds is the per-question answer window.
	DefaultQuestionSeconds = 60
	// DefaultGraceDelay is the pause between a question ending and the next
	// one starting, so clients can render results.
	DefaultGraceDelay = 3 * time.Second
	// DefaultQuestionsPerGame is how many questions a session asks for.
	DefaultQuestionsPerGame = 10
)

// Options tune the session clockwork. Tests shrink the intervals to drive
// whole sessions in milliseconds.
type Options struct {
	QuestionSeconds  int
	GraceDelay       time.Duration
	TickInterval     time.Duration
	QuestionsPerGame int
}

func (o Options) withDefaults() Options {
	if o.QuestionSeconds <= 0 {
		o.QuestionSeconds = DefaultQuestionSeconds
	}
	if o.GraceDelay <= 0 {
		o.GraceDelay = DefaultGraceDelay
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.QuestionsPerGame <= 0 {
		o.QuestionsPerGame = DefaultQuestionsPerGame
	}
	return o
}

// GameService owns the lifecycle of quiz sessions: starting them, advancing
// questions, taking answers, and tearing everything down. Collaborators are
// fixed at construction; all per-lobby mutation is serialized by the
// GameState lock, so independent lobbies run fully in parallel.
type GameService struct {
	registry Registry
	lobbies  LobbyDirectory
	pool     *QuestionPool
	repo     SessionRepository
	users    UserDirectory
	notifier Notifier
	opts     Options
	now      func() time.Time
}

func NewGameService(registry Registry, lobbies LobbyDirectory, pool *QuestionPool, repo SessionRepository, users UserDirectory, notifier Notifier, opts Options) *GameService {
	return NewGameServiceWithClock(registry, lobbies, pool, repo, users, notifier, opts, time.Now)
}

// NewGameServiceWithClock allows deterministic elapsed-time computation in tests.
func NewGameServiceWithClock(registry Registry, lobbies LobbyDirectory, pool *QuestionPool, repo SessionRepository, users UserDirectory, notifier Notifier, opts Options, now func() time.Time) *GameService {
	return &GameService{
		registry: registry,
		lobbies:  lobbies,
		pool:     pool,
		repo:     repo,
		users:    users,
		notifier: notifier,
		opts:     opts.withDefaults(),
		now:      now,
	}
}

// Start creates a session for the lobby and immediately begins the first
// question. Only the lobby host may start, and only one session can exist
// per lobby at a time. Validation failures leave no state behind.
func (s *GameService) Start(ctx context.Context, lobbyCode, requesterID string) (*GameState, error) {
	lobby, err := s.lobbies.GetByCode(ctx, lobbyCode)
	if err != nil {
		return nil, err
	}
	if lobby.HostID != requesterID {
		return nil, domain.ErrNotHost
	}
	if _, exists := s.registry.Get(lobby.Code); exists {
		return nil, domain.ErrGameInProgress
	}

	info, err := s.lobbies.QuestionSetInfo(ctx, lobbyCode)
	if err != nil {
		return nil, err
	}
	if len(info.QuestionSetIDs) == 0 {
		return nil, domain.ErrNoQuestionSets
	}

	questions := s.pool.Questions(ctx, info.QuestionSetIDs, info.Language, s.opts.QuestionsPerGame)
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	sessionID, err := s.repo.CreateSession(ctx, domain.SessionRecord{
		LobbyID:        lobby.ID,
		LobbyCode:      lobby.Code,
		QuestionSetIDs: info.QuestionSetIDs,
		TotalQuestions: len(questions),
		PlayerCount:    len(lobby.Players),
	})
	if err != nil {
		return nil, err
	}

	st := newGameState(lobby, sessionID, questions, s.opts.QuestionSeconds)
	if err := s.registry.Put(lobby.Code, st); err != nil {
		return nil, err
	}

	if err := s.AdvanceQuestion(ctx, lobby.Code); err != nil {
		return nil, err
	}
	return st, nil
}

// AdvanceQuestion starts the next question, or ends the session once the
// question list is exhausted.
func (s *GameService) AdvanceQuestion(ctx context.Context, lobbyCode string) error {
	st, ok := s.registry.Get(lobbyCode)
	if !ok {
		return domain.ErrGameNotFound
	}

	st.mu.Lock()
	if st.ended || !st.IsActive {
		st.mu.Unlock()
		return domain.ErrGameNotActive
	}
	if st.CurrentQuestionIndex >= st.TotalQuestions {
		st.mu.Unlock()
		return s.EndSession(ctx, lobbyCode)
	}

	question := &st.Questions[st.CurrentQuestionIndex]
	st.CurrentQuestion = question
	st.CurrentQuestionIndex++
	st.TimeRemaining = s.opts.QuestionSeconds
	st.QuestionStartTime = s.now()
	for _, p := range st.Players {
		p.HasAnswered = false
		p.CurrentAnswer = ""
		p.AnswerTime = 0
	}
	st.questionOpen = true

	index := st.CurrentQuestionIndex
	if st.timer != nil {
		st.timer.Stop()
	}
	timer := NewQuestionTimer(s.opts.TickInterval, st.TimeRemaining, func() {
		s.tick(st, index)
	})
	st.timer = timer

	s.notifier.QuestionStarted(lobbyCode, domain.QuestionStarted{
		Question: domain.QuestionView{
			ID:      question.ID,
			Text:    question.Text,
			Options: question.Options,
		},
		QuestionIndex:  index,
		TotalQuestions: st.TotalQuestions,
		TimeRemaining:  st.TimeRemaining,
	})
	st.mu.Unlock()

	timer.Start()
	return nil
}

// tick is the timer callback. Ticks that arrive after the question closed or
// after the session moved on are discarded by the index guard.
func (s *GameService) tick(st *GameState, questionIndex int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.IsActive || !st.questionOpen || st.CurrentQuestionIndex != questionIndex {
		return
	}
	if st.TimeRemaining > 0 {
		st.TimeRemaining--
	}
	s.notifier.TimeUpdate(st.LobbyCode, domain.TimeUpdate{TimeRemaining: st.TimeRemaining})
	if st.TimeRemaining == 0 {
		s.endCurrentQuestionLocked(st)
	}
}

// SubmitAnswer records one player's answer for the current question, scores
// it, and ends the question early once the whole roster has answered.
func (s *GameService) SubmitAnswer(ctx context.Context, lobbyCode, playerID, answer string) error {
	st, ok := s.registry.Get(lobbyCode)
	if !ok {
		return domain.ErrGameNotActive
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.IsActive || !st.questionOpen || st.CurrentQuestion == nil {
		return domain.ErrGameNotActive
	}
	player, ok := st.Players[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if player.HasAnswered {
		return domain.ErrAlreadyAnswered
	}

	elapsed := s.now().Sub(st.QuestionStartTime).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	isCorrect := answer == st.CurrentQuestion.CorrectAnswer
	points, multiplier := CalculateScore(elapsed, float64(s.opts.QuestionSeconds), player.Multiplier, isCorrect, player.CorrectAnswers)

	player.HasAnswered = true
	player.CurrentAnswer = answer
	player.AnswerTime = elapsed
	player.Score += points
	player.Multiplier = multiplier
	if isCorrect {
		player.CorrectAnswers++
	}

	// Correctness stays hidden until the question ends.
	s.notifier.AnswerReceived(st.LobbyCode, domain.AnswerReceived{
		PlayerID:       playerID,
		HasAnswered:    true,
		ElapsedSeconds: elapsed,
	})

	if st.allAnswered() {
		s.endCurrentQuestionLocked(st)
	}
	return nil
}

// EndCurrentQuestion closes the current question and reveals results. It is
// an idempotent no-op when the session is missing, finished, or between
// questions.
func (s *GameService) EndCurrentQuestion(ctx context.Context, lobbyCode string) {
	st, ok := s.registry.Get(lobbyCode)
	if !ok {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.IsActive {
		return
	}
	s.endCurrentQuestionLocked(st)
}

func (s *GameService) endCurrentQuestionLocked(st *GameState) {
	if !st.questionOpen || st.CurrentQuestion == nil {
		return
	}
	st.questionOpen = false
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}

	question := st.CurrentQuestion
	results := make([]domain.PlayerQuestionResult, 0, len(st.Players))
	for _, p := range st.orderedPlayers() {
		timeTaken := float64(s.opts.QuestionSeconds)
		if p.HasAnswered {
			timeTaken = p.AnswerTime
		}
		results = append(results, domain.PlayerQuestionResult{
			PlayerID:   p.ID,
			Username:   p.Username,
			Answer:     p.CurrentAnswer,
			IsCorrect:  p.HasAnswered && p.CurrentAnswer == question.CorrectAnswer,
			Score:      p.Score,
			Multiplier: p.Multiplier,
			TimeTaken:  timeTaken,
		})
	}

	s.notifier.QuestionEnded(st.LobbyCode, domain.QuestionEnded{
		Results:        results,
		CorrectAnswer:  question.CorrectAnswer,
		Explanation:    question.Explanation,
		QuestionIndex:  st.CurrentQuestionIndex,
		TotalQuestions: st.TotalQuestions,
	})

	lobbyCode := st.LobbyCode
	time.AfterFunc(s.opts.GraceDelay, func() {
		current, ok := s.registry.Get(lobbyCode)
		if !ok || current != st {
			// Session ended or was replaced during the grace window.
			return
		}
		err := s.AdvanceQuestion(context.Background(), lobbyCode)
		if err != nil && !errors.Is(err, domain.ErrGameNotFound) && !errors.Is(err, domain.ErrGameNotActive) {
			log.Printf("game %s: advance question: %v", lobbyCode, err)
		}
	})
}

// EndSession tears the session down: final persistence, experience awards,
// result broadcast, registry removal, lobby status. Every side effect is
// best-effort; players are waiting on the game-ended event, so a failing
// step is logged and the rest still run.
func (s *GameService) EndSession(ctx context.Context, lobbyCode string) error {
	st, ok := s.registry.Get(lobbyCode)
	if !ok {
		return domain.ErrGameNotFound
	}

	st.mu.Lock()
	if st.ended {
		st.mu.Unlock()
		return nil
	}
	st.ended = true
	st.IsActive = false
	st.questionOpen = false
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	players := st.orderedPlayers()
	sessionID := st.SessionID
	lobbyID := st.LobbyID
	questionSetIDs := st.QuestionSetIDs
	questionsPlayed := st.CurrentQuestionIndex
	totalQuestions := st.TotalQuestions
	st.mu.Unlock()

	scores := make(map[string]int, len(players))
	for _, p := range players {
		scores[p.ID] = p.Score
	}
	if err := s.repo.EndSession(ctx, sessionID, domain.SessionSummary{
		QuestionsPlayed: questionsPlayed,
		Scores:          scores,
	}); err != nil {
		log.Printf("game %s: persist session summary: %v", lobbyCode, err)
	}

	awards := make(map[string]*domain.ExperienceAward, len(players))
	for _, p := range players {
		userID, err := s.users.FindByUsername(ctx, p.Username)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			log.Printf("game %s: resolve user %q: %v", lobbyCode, p.Username, err)
		}
		award, err := s.repo.SavePlayerResult(ctx, sessionID, domain.PlayerStats{
			PlayerID:       p.ID,
			UserID:         userID,
			Username:       p.Username,
			Score:          p.Score,
			CorrectAnswers: p.CorrectAnswers,
			TotalQuestions: totalQuestions,
			Multiplier:     p.Multiplier,
		})
		if err != nil {
			log.Printf("game %s: save result for player %s: %v", lobbyCode, p.ID, err)
			continue
		}
		awards[p.ID] = award
	}

	results := make([]domain.PlayerFinalResult, 0, len(players))
	for _, p := range players {
		r := domain.PlayerFinalResult{
			PlayerID:       p.ID,
			Username:       p.Username,
			Character:      p.Character,
			CharacterLevel: p.CharacterLevel,
			Score:          p.Score,
			CorrectAnswers: p.CorrectAnswers,
			Multiplier:     p.Multiplier,
		}
		if award := awards[p.ID]; award != nil {
			r.ExperienceAwarded = award.ExperienceAwarded
			r.LevelUp = award.LevelUp
			r.NewLevel = award.NewLevel
		}
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	s.notifier.GameEnded(lobbyCode, domain.GameEnded{
		SessionID:      sessionID,
		QuestionSetIDs: questionSetIDs,
		Results:        results,
	})
	for _, p := range players {
		award := awards[p.ID]
		if award == nil || !award.LevelUp {
			continue
		}
		s.notifier.PlayerLevelUp(lobbyCode, domain.PlayerLevelUp{
			PlayerID:          p.ID,
			Username:          p.Username,
			Character:         p.Character,
			OldLevel:          award.OldLevel,
			NewLevel:          award.NewLevel,
			ExperienceAwarded: award.ExperienceAwarded,
		})
	}

	s.registry.Remove(lobbyCode)
	if err := s.lobbies.MarkEnded(ctx, lobbyID); err != nil {
		log.Printf("game %s: mark lobby ended: %v", lobbyCode, err)
	}
	return nil
}

// OnPlayerDisconnect marks a player gone and ends the session once nobody is
// left connected. A no-op when the lobby has no running game.
func (s *GameService) OnPlayerDisconnect(ctx context.Context, lobbyCode, playerID string) {
	st, ok := s.registry.Get(lobbyCode)
	if !ok {
		return
	}

	st.mu.Lock()
	if st.ended {
		st.mu.Unlock()
		return
	}
	player, ok := st.Players[playerID]
	if !ok {
		st.mu.Unlock()
		return
	}
	player.IsConnected = false
	lastOut := !st.anyConnected()
	st.mu.Unlock()

	if err := s.lobbies.UpdatePlayerConnection(ctx, lobbyCode, playerID, false); err != nil {
		log.Printf("game %s: update connection for %s: %v", lobbyCode, playerID, err)
	}
	if lastOut {
		if err := s.EndSession(ctx, lobbyCode); err != nil && !errors.Is(err, domain.ErrGameNotFound) {
			log.Printf("game %s: end session after last disconnect: %v", lobbyCode, err)
		}
	}
}
