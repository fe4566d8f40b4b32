package settings

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/redis"
)

// kv is the subset of *redis.Client the store needs.
type kv interface {
	Lookup(ctx context.Context, name string) (string, bool, error)
	Store(ctx context.Context, name, value string, ttl time.Duration) error
	Forget(ctx context.Context, names ...string) (int64, error)
}

// RedisStore keeps per-chat settings in Redis under replyprob:<chatID>
// inside the client's key prefix, so every replica sees the same values.
type RedisStore struct {
	client kv
	def    float64
}

func NewRedisStore(client *redis.Client, defaultProbability float64) *RedisStore {
	return &RedisStore{client: client, def: defaultProbability}
}

func probabilityKey(chatID int64) string {
	return "replyprob:" + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) ReplyProbability(ctx context.Context, chatID int64) (float64, error) {
	v, found, err := s.client.Lookup(ctx, probabilityKey(chatID))
	if err != nil {
		return 0, fmt.Errorf("reading reply probability: %w", err)
	}
	if !found {
		return s.def, nil
	}
	p, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing stored reply probability %q: %w", v, err)
	}
	return p, nil
}

func (s *RedisStore) SetReplyProbability(ctx context.Context, chatID int64, p float64) error {
	if err := ValidateProbability(p); err != nil {
		return err
	}
	value := strconv.FormatFloat(p, 'g', -1, 64)
	if err := s.client.Store(ctx, probabilityKey(chatID), value, 0); err != nil {
		return fmt.Errorf("storing reply probability: %w", err)
	}
	return nil
}

func (s *RedisStore) ResetReplyProbability(ctx context.Context, chatID int64) error {
	if _, err := s.client.Forget(ctx, probabilityKey(chatID)); err != nil {
		return fmt.Errorf("resetting reply probability: %w", err)
	}
	return nil
}
