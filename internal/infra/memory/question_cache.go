package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-game-service/internal/domain"
)

// QuestionLoader fetches one question set from a backing store.
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, questionSetID int64, language string) ([]domain.Question, error)
}

// QuestionCache caches question sets with TTL to avoid repeated loads, and
// implements game.QuestionSource by sampling across the cached sets.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
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
	return sample(c.rnd, pool, count), nil
}

func (c *QuestionCache) questionSet(ctx context.Context, setID int64, language string) ([]domain.Question, error) {
	key := cacheKey(setID, language)
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.loader.LoadQuestionSet(ctx, setID, language)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedSet{questions: questions, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func cacheKey(setID int64, language string) string {
	return strconv.FormatInt(setID, 10) + ":" + language
}

// sample returns up to count questions drawn without replacement.
func sample(rnd *rand.Rand, pool []domain.Question, count int) []domain.Question {
	if len(pool) == 0 {
		return nil
	}
	shuffled := append([]domain.Question(nil), pool...)
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}

// StaticQuestionLoader serves question sets from a fixed map (tests/demos).
type StaticQuestionLoader struct {
	sets map[int64][]domain.Question
}

func NewStaticQuestionLoader(sets map[int64][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{sets: sets}
}

func (l *StaticQuestionLoader) LoadQuestionSet(_ context.Context, questionSetID int64, _ string) ([]domain.Question, error) {
	return l.sets[questionSetID], nil
}
