package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/zhangqi6627/tgchatbot/internal/domain/model"
)

const challengePrefix = "challenge:"

var (
	ErrChallengeNotFound  = errors.New("challenge not found or expired")
	ErrChallengeCorrupted = errors.New("challenge state is corrupted")
)

// ChallengeRepo stores pending verification challenges under their random
// token. Records expire on their own; a consumed token is deleted explicitly.
type ChallengeRepo struct {
	client *goredis.Client
}

func NewChallengeRepo(client *goredis.Client) *ChallengeRepo {
	return &ChallengeRepo{client: client}
}

func (r *ChallengeRepo) Create(ctx context.Context, token string, ch model.Challenge, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if token == "" || ttl <= 0 {
		return fmt.Errorf("invalid challenge payload")
	}

	raw, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}

	if err := r.client.Set(ctx, challengeKey(token), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

func (r *ChallengeRepo) Get(ctx context.Context, token string) (model.Challenge, error) {
	if r.client == nil {
		return model.Challenge{}, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, challengeKey(token)).Result()
	if err == goredis.Nil {
		return model.Challenge{}, ErrChallengeNotFound
	}
	if err != nil {
		return model.Challenge{}, fmt.Errorf("get challenge: %w", err)
	}

	var ch model.Challenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return model.Challenge{}, ErrChallengeCorrupted
	}
	if ch.Answer == "" {
		return model.Challenge{}, ErrChallengeCorrupted
	}
	return ch, nil
}

func (r *ChallengeRepo) Delete(ctx context.Context, token string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, challengeKey(token)).Err(); err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}

func challengeKey(token string) string {
	return challengePrefix + token
}
