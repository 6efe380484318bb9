package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/leveling"
)

// SessionRepository persists game sessions and player results, and credits
// experience to registered users as results are saved.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) CreateSession(ctx context.Context, rec domain.SessionRecord) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO game_sessions (id, lobby_id, lobby_code, question_set_ids, total_questions, player_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		id, rec.LobbyID, rec.LobbyCode, rec.QuestionSetIDs, rec.TotalQuestions, rec.PlayerCount)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func (r *SessionRepository) EndSession(ctx context.Context, sessionID string, summary domain.SessionSummary) error {
	encoded, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE game_sessions SET ended_at = now(), summary = $2 WHERE id = $1`,
		sessionID, encoded)
	if err != nil {
		return fmt.Errorf("end session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

func (r *SessionRepository) SavePlayerResult(ctx context.Context, sessionID string, stats domain.PlayerStats) (*domain.ExperienceAward, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO player_results (session_id, player_id, user_id, username, score, correct_answers, total_questions, multiplier, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, now())`,
		sessionID, stats.PlayerID, stats.UserID, stats.Username,
		stats.Score, stats.CorrectAnswers, stats.TotalQuestions, stats.Multiplier)
	if err != nil {
		return nil, fmt.Errorf("save player result: %w", err)
	}

	if stats.UserID == "" {
		// Guests have no account to credit.
		return nil, nil
	}
	return r.awardExperience(ctx, stats)
}

func (r *SessionRepository) awardExperience(ctx context.Context, stats domain.PlayerStats) (*domain.ExperienceAward, error) {
	xp := leveling.ExperienceFor(stats.Score, stats.CorrectAnswers, stats.TotalQuestions)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin award tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var experience, level int
	err = tx.QueryRow(ctx,
		`SELECT experience, level FROM users WHERE id = $1 FOR UPDATE`,
		stats.UserID).Scan(&experience, &level)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", stats.UserID, err)
	}

	experience += xp
	newLevel := leveling.LevelFor(experience)
	if _, err := tx.Exec(ctx,
		`UPDATE users SET experience = $2, level = $3 WHERE id = $1`,
		stats.UserID, experience, newLevel); err != nil {
		return nil, fmt.Errorf("update user %s: %w", stats.UserID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit award tx: %w", err)
	}

	return &domain.ExperienceAward{
		ExperienceAwarded: xp,
		LevelUp:           newLevel > level,
		OldLevel:          level,
		NewLevel:          newLevel,
	}, nil
}
