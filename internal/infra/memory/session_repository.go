package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/leveling"
)

// SessionRepository keeps session records and player results in memory.
// Experience awards go through the shared UserStore so registered players
// level up just like they would against Postgres.
type SessionRepository struct {
	users *UserStore

	mu       sync.Mutex
	sessions map[string]*sessionRow
	results  map[string][]domain.PlayerStats
}

type sessionRow struct {
	record    domain.SessionRecord
	createdAt time.Time
	endedAt   *time.Time
	summary   *domain.SessionSummary
}

func NewSessionRepository(users *UserStore) *SessionRepository {
	return &SessionRepository{
		users:    users,
		sessions: make(map[string]*sessionRow),
		results:  make(map[string][]domain.PlayerStats),
	}
}

func (r *SessionRepository) CreateSession(_ context.Context, rec domain.SessionRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	r.sessions[id] = &sessionRow{record: rec, createdAt: time.Now()}
	return id, nil
}

func (r *SessionRepository) EndSession(_ context.Context, sessionID string, summary domain.SessionSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrGameNotFound
	}
	now := time.Now()
	row.endedAt = &now
	row.summary = &summary
	return nil
}

func (r *SessionRepository) SavePlayerResult(_ context.Context, sessionID string, stats domain.PlayerStats) (*domain.ExperienceAward, error) {
	r.mu.Lock()
	if _, ok := r.sessions[sessionID]; !ok {
		r.mu.Unlock()
		return nil, domain.ErrGameNotFound
	}
	r.results[sessionID] = append(r.results[sessionID], stats)
	r.mu.Unlock()

	if stats.UserID == "" {
		// Guests have no account to credit.
		return nil, nil
	}

	xp := leveling.ExperienceFor(stats.Score, stats.CorrectAnswers, stats.TotalQuestions)
	oldLevel, newLevel, err := r.users.AddExperience(stats.UserID, xp)
	if err != nil {
		return nil, err
	}
	return &domain.ExperienceAward{
		ExperienceAwarded: xp,
		LevelUp:           newLevel > oldLevel,
		OldLevel:          oldLevel,
		NewLevel:          newLevel,
	}, nil
}

// Results returns the saved player results for a session; used by tests.
func (r *SessionRepository) Results(sessionID string) []domain.PlayerStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PlayerStats(nil), r.results[sessionID]...)
}

// Ended reports whether the session has been finalized; used by tests.
func (r *SessionRepository) Ended(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.sessions[sessionID]
	return ok && row.endedAt != nil
}
