package game_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
	"quiz-game-service/internal/infra/memory"
)

type recordedEvent struct {
	kind    string
	payload interface{}
}

// recordingNotifier captures broadcast events so tests can assert on the
// exact sequence a lobby's clients would see.
type recordingNotifier struct {
	mu     sync.Mutex
	counts map[string]int
	ch     chan recordedEvent
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		counts: make(map[string]int),
		ch:     make(chan recordedEvent, 1024),
	}
}

func (n *recordingNotifier) record(kind string, payload interface{}) {
	n.mu.Lock()
	n.counts[kind]++
	n.mu.Unlock()
	select {
	case n.ch <- recordedEvent{kind: kind, payload: payload}:
	default:
	}
}

func (n *recordingNotifier) QuestionStarted(_ string, ev domain.QuestionStarted) {
	n.record("question-started", ev)
}
func (n *recordingNotifier) TimeUpdate(_ string, ev domain.TimeUpdate) {
	n.record("time-update", ev)
}
func (n *recordingNotifier) AnswerReceived(_ string, ev domain.AnswerReceived) {
	n.record("answer-received", ev)
}
func (n *recordingNotifier) QuestionEnded(_ string, ev domain.QuestionEnded) {
	n.record("question-ended", ev)
}
func (n *recordingNotifier) GameEnded(_ string, ev domain.GameEnded) {
	n.record("game-ended", ev)
}
func (n *recordingNotifier) PlayerLevelUp(_ string, ev domain.PlayerLevelUp) {
	n.record("player-level-up", ev)
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[kind]
}

// waitFor returns the next event of the given kind, discarding others.
func (n *recordingNotifier) waitFor(t *testing.T, kind string) interface{} {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-n.ch:
			if ev.kind == kind {
				return ev.payload
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	service  *game.GameService
	notifier *recordingNotifier
	registry *memory.GameRegistry
	lobbies  *memory.LobbyStore
	users    *memory.UserStore
	repo     *memory.SessionRepository
	clock    *fakeClock
}

func newFixture(lobby domain.Lobby, questions map[int64][]domain.Question, opts game.Options) *fixture {
	if opts.GraceDelay == 0 {
		opts.GraceDelay = 10 * time.Millisecond
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = 20 * time.Millisecond
	}

	notifier := newRecordingNotifier()
	registry := memory.NewGameRegistry()
	lobbies := memory.NewLobbyStore()
	lobbies.Save(lobby)
	users := memory.NewUserStore()
	repo := memory.NewSessionRepository(users)
	source := memory.NewQuestionCache(memory.NewStaticQuestionLoader(questions), time.Minute)
	clock := &fakeClock{now: time.Unix(1700000000, 0)}

	service := game.NewGameServiceWithClock(
		registry, lobbies, game.NewQuestionPool(source, 1), repo, users, notifier, opts, clock.Now)

	return &fixture{
		service:  service,
		notifier: notifier,
		registry: registry,
		lobbies:  lobbies,
		users:    users,
		repo:     repo,
		clock:    clock,
	}
}

func testLobby(code string, playerIDs ...string) domain.Lobby {
	players := make([]domain.LobbyPlayer, 0, len(playerIDs))
	for _, id := range playerIDs {
		players = append(players, domain.LobbyPlayer{
			ID:             id,
			Username:       "user-" + id,
			Character:      "wizard",
			CharacterLevel: 1,
			IsConnected:    true,
		})
	}
	return domain.Lobby{
		ID:             "lobby-" + code,
		Code:           code,
		HostID:         playerIDs[0],
		Language:       "en",
		QuestionSetIDs: []int64{7},
		Players:        players,
	}
}

// sameAnswerQuestions builds n questions that all accept "right" so tests
// stay deterministic regardless of sampling order.
func sameAnswerQuestions(n int) map[int64][]domain.Question {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			ID:            int64(i + 1),
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       []string{"right", "wrong1", "wrong2", "wrong3"},
			CorrectAnswer: "right",
			QuestionSetID: 7,
		}
	}
	return map[int64][]domain.Question{7: questions}
}

func TestStartValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testLobby("ABC123", "p1", "p2"), sameAnswerQuestions(2), game.Options{})

	if _, err := f.service.Start(ctx, "NOPE", "p1"); !errors.Is(err, domain.ErrLobbyNotFound) {
		t.Fatalf("expected lobby-not-found, got %v", err)
	}
	if _, err := f.service.Start(ctx, "ABC123", "p2"); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected not-host, got %v", err)
	}
	if f.notifier.count("question-started") != 0 {
		t.Fatalf("failed starts must not emit events")
	}
}

func TestStartRequiresQuestionSets(t *testing.T) {
	lobby := testLobby("EMPTY1", "p1")
	lobby.QuestionSetIDs = nil
	f := newFixture(lobby, sameAnswerQuestions(2), game.Options{})

	if _, err := f.service.Start(context.Background(), "EMPTY1", "p1"); !errors.Is(err, domain.ErrNoQuestionSets) {
		t.Fatalf("expected no-question-sets, got %v", err)
	}
}

func TestStartTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testLobby("ABC123", "p1"), sameAnswerQuestions(2), game.Options{})

	first, err := f.service.Start(ctx, "ABC123", "p1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := f.service.Start(ctx, "ABC123", "p1"); !errors.Is(err, domain.ErrGameInProgress) {
		t.Fatalf("expected conflict on second start, got %v", err)
	}

	current, ok := f.registry.Get("ABC123")
	if !ok || current != first {
		t.Fatalf("conflict must leave the original session untouched")
	}
	if f.notifier.count("question-started") != 1 {
		t.Fatalf("expected exactly one question-started, got %d", f.notifier.count("question-started"))
	}
}

func TestStartBeginsFirstQuestion(t *testing.T) {
	f := newFixture(testLobby("ABC123", "p1", "p2"), sameAnswerQuestions(3), game.Options{})

	state, err := f.service.Start(context.Background(), "ABC123", "p1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if state.SessionID == "" {
		t.Fatalf("expected a persisted session id")
	}
	if state.TotalQuestions != 3 {
		t.Fatalf("expected 3 questions, got %d", state.TotalQuestions)
	}

	started := f.notifier.waitFor(t, "question-started").(domain.QuestionStarted)
	if started.QuestionIndex != 1 || started.TotalQuestions != 3 {
		t.Fatalf("unexpected first question announcement: %+v", started)
	}
	if started.TimeRemaining != game.DefaultQuestionSeconds {
		t.Fatalf("expected full time limit, got %d", started.TimeRemaining)
	}
	if len(started.Question.Options) != 4 {
		t.Fatalf("expected options in the broadcast, got %+v", started.Question)
	}
}

func TestSubmitAnswerScoringAndDoubleSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testLobby("ABC123", "p1", "p2"), sameAnswerQuestions(1), game.Options{})

	if _, err := f.service.Start(ctx, "ABC123", "p1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	f.notifier.waitFor(t, "question-started")

	f.clock.Advance(5 * time.Second)
	if err := f.service.SubmitAnswer(ctx, "ABC123", "p1", "right"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	received := f.notifier.waitFor(t, "answer-received").(domain.AnswerReceived)
	if received.PlayerID != "p1" || !received.HasAnswered {
		t.Fatalf("unexpected answer-received: %+v", received)
	}
	if received.ElapsedSeconds != 5 {
		t.Fatalf("expected elapsed 5s, got %v", received.ElapsedSeconds)
	}

	if err := f.service.SubmitAnswer(ctx, "ABC123", "p1", "wrong1"); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already-answered, got %v", err)
	}
	if err := f.service.SubmitAnswer(ctx, "ABC123", "ghost", "right"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected player-not-found, got %v", err)
	}

	if err := f.service.SubmitAnswer(ctx, "ABC123", "p2", "wrong1"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	ended := f.notifier.waitFor(t, "question-ended").(domain.QuestionEnded)
	if ended.CorrectAnswer != "right" {
		t.Fatalf("expected revealed correct answer, got %q", ended.CorrectAnswer)
	}
	byID := map[string]domain.PlayerQuestionResult{}
	for _, r := range ended.Results {
		byID[r.PlayerID] = r
	}
	// 5s elapsed at 60s limit: round((100 + 100*55/60) * 1.0) = 192.
	if r := byID["p1"]; !r.IsCorrect || r.Score != 192 || r.TimeTaken != 5 {
		t.Fatalf("unexpected p1 result (double submit must not re-score): %+v", r)
	}
	if r := byID["p2"]; r.IsCorrect || r.Score != 0 || r.Multiplier != game.BaseMultiplier {
		t.Fatalf("unexpected p2 result: %+v", r)
	}
}

func TestAllAnsweredEndsQuestionEarly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testLobby("ABC123", "p1", "p2"), sameAnswerQuestions(2), game.Options{})

	if _, err := f.service.Start(ctx, "ABC123", "p1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	f.notifier.waitFor(t, "question-started")

	if err := f.service.SubmitAnswer(ctx, "ABC123", "p1", "right"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if f.notifier.count("question-ended") != 0 {
		t.Fatalf("question must stay open until the whole roster answered")
	}
	if err := f.service.SubmitAnswer(ctx, "ABC123", "p2", "right"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	f.notifier.waitFor(t, "question-ended")
	if got := f.notifier.count("question-ended"); got != 1 {
		t.Fatalf("expected exactly one question-ended, got %d", got)
	}

	second := f.notifier.waitFor(t, "question-started").(domain.QuestionStarted)
	if second.QuestionIndex != 2 {
		t.Fatalf("expected second question after grace delay, got index %d", second.QuestionIndex)
	}
}

func TestTimerExpiryEndsQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testLobby("ABC123", "p1"), sameAnswerQuestions(1), game.Options{
		QuestionSeconds: 2,
		TickInterval:    3 * time.Millisecond,
	})

	if _, err := f.service.Start(ctx, "ABC123", "p1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	f.notifier.waitFor(t, "question-started")

	ended := f.notifier.waitFor(t, "question-ended").(domain.QuestionEnded)
	if len(ended.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(ended.Results))
	}
	r := ended.Results[0]
	if r.IsCorrect || r.Answer != "" {
		t.Fatalf("unanswered player must be incorrect with empty answer: %+v", r)
	}
	if r.TimeTaken != 2 {
		t.Fatalf("unanswered player gets the full time limit, got %v", r.TimeTaken)
	}
	if f.notifier.count("time-update") == 0 {
		t.Fatalf("expected time-update ticks before expiry")
	}
	if got := f.notifier.count("question-ended"); got != 1 {
		t.Fatalf("expiry must end the question exactly once, got %d", got)
	}
}

func TestFullRoundTrip(t *testing.T) {
	ctx := context.Background()
	const totalQuestions = 3
	f := newFixture(testLobby("ABC123", "p1"), sameAnswerQuestions(totalQuestions), game.Options{})

	state, err := f.service.Start(ctx, "ABC123", "p1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i := 1; i <= totalQuestions; i++ {
		started := f.notifier.waitFor(t, "question-started").(domain.QuestionStarted)
		if started.QuestionIndex != i {
			t.Fatalf("expected question index %d, got %d", i, started.QuestionIndex)
		}
		if err := f.service.SubmitAnswer(ctx, "ABC123", "p1", "right"); err != nil {
			t.Fatalf("submit on question %d failed: %v", i, err)
		}
		f.notifier.waitFor(t, "question-ended")
	}

	endedPayload := f.notifier.waitFor(t, "game-ended").(domain.GameEnded)
	if endedPayload.SessionID != state.SessionID {
		t.Fatalf("game-ended carries wrong session id")
	}
	if len(endedPayload.Results) != 1 || endedPayload.Results[0].CorrectAnswers != totalQuestions {
		t.Fatalf("unexpected final results: %+v", endedPayload.Results)
	}

	if got := f.notifier.count("question-started"); got != totalQuestions {
		t.Fatalf("expected %d question-started, got %d", totalQuestions, got)
	}
	if got := f.notifier.count("question-ended"); got != totalQuestions {
		t.Fatalf("expected %d question-ended, got %d", totalQuestions, got)
	}
	if got := f.notifier.count("game-ended"); got != 1 {
		t.Fatalf("expected exactly one game-ended, got %d", got)
	}

	if _, ok := f.registry.Get("ABC123"); ok {
		t.Fatalf("finished session must be removed from the registry")
	}
	if !f.repo.Ended(state.SessionID) {
		t.Fatalf("finished session must be persisted as ended")
	}
	lobby, err := f.lobbies.GetByCode(ctx, "ABC123")
	if err != nil || !lobby.Ended {
		t.Fatalf("lobby must be marked ended, got %+v (%v)", lobby, err)
	}
	if err := f.service.SubmitAnswer(ctx, "ABC123", "p1", "right"); !errors.Is(err, domain.ErrGameNotActive) {
		t.Fatalf("operations after termination must fail, got %v", err)
	}
}

func TestSubmitWithoutSession(t *testing.T) {
	f := newFixture(testLobby("ABC123", "p1"), sameAnswerQuestions(1), game.Options{})

	err := f.service.SubmitAnswer(context.Background(), "ABC123", "p1", "right")
	if !errors.Is(err, domain.ErrGameNotActive) {
		t.Fatalf("expected not-active, got %v", err)
	}
	if f.notifier.count("answer-received") != 0 {
		t.Fatalf("rejected submissions must not emit events")
	}
}

func TestDisconnectDrainsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testLobby("ABC123", "p1", "p2"), sameAnswerQuestions(2), game.Options{})

	if _, err := f.service.Start(ctx, "ABC123", "p1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	f.notifier.waitFor(t, "question-started")

	f.service.OnPlayerDisconnect(ctx, "ABC123", "p1")
	if f.notifier.count("game-ended") != 0 {
		t.Fatalf("session must survive while a player remains connected")
	}
	lobby, _ := f.lobbies.GetByCode(ctx, "ABC123")
	if lobby.Players[0].IsConnected {
		t.Fatalf("disconnect must be propagated to the lobby")
	}

	f.service.OnPlayerDisconnect(ctx, "ABC123", "p2")
	f.notifier.waitFor(t, "game-ended")
	if _, ok := f.registry.Get("ABC123"); ok {
		t.Fatalf("drained session must be removed from the registry")
	}
}

func TestSoloPlayerScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testLobby("ABC123", "p1"), sameAnswerQuestions(2), game.Options{})

	if _, err := f.service.Start(ctx, "ABC123", "p1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	started := f.notifier.waitFor(t, "question-started").(domain.QuestionStarted)
	if started.QuestionIndex != 1 {
		t.Fatalf("expected first question, got %d", started.QuestionIndex)
	}

	f.clock.Advance(5 * time.Second)
	if err := f.service.SubmitAnswer(ctx, "ABC123", "p1", "right"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	f.notifier.waitFor(t, "answer-received")

	// Solo roster: answering ends the question immediately.
	ended := f.notifier.waitFor(t, "question-ended").(domain.QuestionEnded)
	if !ended.Results[0].IsCorrect {
		t.Fatalf("expected correct result, got %+v", ended.Results[0])
	}

	second := f.notifier.waitFor(t, "question-started").(domain.QuestionStarted)
	if second.QuestionIndex != 2 {
		t.Fatalf("expected second question, got %d", second.QuestionIndex)
	}

	f.service.OnPlayerDisconnect(ctx, "ABC123", "p1")
	final := f.notifier.waitFor(t, "game-ended").(domain.GameEnded)
	if len(final.Results) != 1 {
		t.Fatalf("expected partial results for the lone player")
	}
	if final.Results[0].CorrectAnswers != 1 {
		t.Fatalf("expected one correct answer in partial results, got %+v", final.Results[0])
	}
}

func TestEndCurrentQuestionIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testLobby("ABC123", "p1"), sameAnswerQuestions(2), game.Options{
		GraceDelay: time.Hour, // keep the session parked between questions
	})

	f.service.EndCurrentQuestion(ctx, "GHOST") // no session: no-op

	if _, err := f.service.Start(ctx, "ABC123", "p1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	f.notifier.waitFor(t, "question-started")

	f.service.EndCurrentQuestion(ctx, "ABC123")
	f.service.EndCurrentQuestion(ctx, "ABC123")
	if got := f.notifier.count("question-ended"); got != 1 {
		t.Fatalf("expected one question-ended, got %d", got)
	}
}

func TestExperienceAwardAndLevelUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testLobby("ABC123", "p1", "p2"), sameAnswerQuestions(2), game.Options{})
	f.users.AddUser("u1", "user-p1") // p2 stays a guest

	if _, err := f.service.Start(ctx, "ABC123", "p1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		f.notifier.waitFor(t, "question-started")
		if err := f.service.SubmitAnswer(ctx, "ABC123", "p1", "right"); err != nil {
			t.Fatalf("p1 submit failed: %v", err)
		}
		if err := f.service.SubmitAnswer(ctx, "ABC123", "p2", "wrong1"); err != nil {
			t.Fatalf("p2 submit failed: %v", err)
		}
		f.notifier.waitFor(t, "question-ended")
	}

	final := f.notifier.waitFor(t, "game-ended").(domain.GameEnded)
	if final.Results[0].PlayerID != "p1" {
		t.Fatalf("results must be sorted by score descending, got %+v", final.Results)
	}
	// Perfect game at full speed: 200 + 220 points, 2 correct of 2.
	// Experience: 420/10 + 2*15 + 50 = 122, crossing the level-2 threshold.
	winner := final.Results[0]
	if winner.ExperienceAwarded != 122 || !winner.LevelUp || winner.NewLevel != 2 {
		t.Fatalf("unexpected experience award: %+v", winner)
	}
	guest := final.Results[1]
	if guest.ExperienceAwarded != 0 || guest.LevelUp {
		t.Fatalf("guests must not receive awards: %+v", guest)
	}

	levelUp := f.notifier.waitFor(t, "player-level-up").(domain.PlayerLevelUp)
	if levelUp.PlayerID != "p1" || levelUp.OldLevel != 1 || levelUp.NewLevel != 2 {
		t.Fatalf("unexpected level-up event: %+v", levelUp)
	}
	if got := f.notifier.count("player-level-up"); got != 1 {
		t.Fatalf("expected one level-up event, got %d", got)
	}

	account, ok := f.users.Account("u1")
	if !ok || account.Experience != 122 || account.Level != 2 {
		t.Fatalf("account not credited: %+v", account)
	}
}
