package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-game-service/internal/domain"
)

// QuestionLoader fetches one question set from a backing store.
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, questionSetID int64, language string) ([]domain.Question, error)
}

// QuestionCache caches question sets in Redis (one JSON value per set and
// language) and falls back to a loader on cache miss. It implements
// game.QuestionSource by sampling across the cached sets in-process.
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) GetRandom(ctx context.Context, questionSetIDs []int64, language string, count int) ([]domain.Question, error) {
	var pool []domain.Question
	for _, setID := range questionSetIDs {
		questions, err := c.questionSet(ctx, setID, language)
		if err != nil {
			return nil, err
		}
		pool = append(pool, questions...)
	}

	if len(pool) == 0 {
		return nil, nil
	}
	shuffled := append([]domain.Question(nil), pool...)
	c.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count], nil
}

func (c *QuestionCache) questionSet(ctx context.Context, setID int64, language string) ([]domain.Question, error) {
	key := c.key(setID, language)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return decodeQuestions(data)
	}
	if err != redis.Nil {
		return nil, fmt.Errorf("get question set %d: %w", setID, err)
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		data, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return decodeQuestions(data)
		}

		questions, err := c.loader.LoadQuestionSet(ctx, setID, language)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(questions)
		if err != nil {
			return nil, fmt.Errorf("marshal question set %d: %w", setID, err)
		}
		_ = c.client.Set(ctx, key, encoded, c.ttlWithJitter()).Err()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func decodeQuestions(data []byte) ([]domain.Question, error) {
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal question set: %w", err)
	}
	return questions, nil
}

func (c *QuestionCache) key(setID int64, language string) string {
	return "questionset:" + strconv.FormatInt(setID, 10) + ":" + language
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
