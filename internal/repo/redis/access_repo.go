package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/zhangqi6627/tgchatbot/internal/domain/enums"
)

const (
	verifiedPrefix = "verified:"
	bannedPrefix   = "banned:"

	trustedMarker = "trusted"
)

// AccessRepo tracks the two per-user gates: verification (time-boxed or
// permanently trusted) and the ban flag. The ban flag is a disjoint record
// and always wins over verification.
type AccessRepo struct {
	client *goredis.Client
}

func NewAccessRepo(client *goredis.Client) *AccessRepo {
	return &AccessRepo{client: client}
}

func (r *AccessRepo) Status(ctx context.Context, userID int64) (enums.VerificationStatus, error) {
	if r.client == nil {
		return enums.VerificationNone, fmt.Errorf("redis client is nil")
	}

	v, err := r.client.Get(ctx, verifiedKey(userID)).Result()
	if err == goredis.Nil {
		return enums.VerificationNone, nil
	}
	if err != nil {
		return enums.VerificationNone, fmt.Errorf("get verification flag: %w", err)
	}

	if v == trustedMarker {
		return enums.VerificationTrusted, nil
	}
	return enums.VerificationTemporary, nil
}

func (r *AccessRepo) MarkVerified(ctx context.Context, userID int64, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, verifiedKey(userID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// MarkTrusted upgrades the user to the permanent marker with no expiry.
func (r *AccessRepo) MarkTrusted(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, verifiedKey(userID), trustedMarker, 0).Err(); err != nil {
		return fmt.Errorf("mark trusted: %w", err)
	}
	return nil
}

func (r *AccessRepo) ResetVerification(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, verifiedKey(userID)).Err(); err != nil {
		return fmt.Errorf("reset verification: %w", err)
	}
	return nil
}

func (r *AccessRepo) IsBanned(ctx context.Context, userID int64) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	_, err := r.client.Get(ctx, bannedKey(userID)).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get ban flag: %w", err)
	}
	return true, nil
}

func (r *AccessRepo) Ban(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, bannedKey(userID), "1", 0).Err(); err != nil {
		return fmt.Errorf("set ban flag: %w", err)
	}
	return nil
}

func (r *AccessRepo) Unban(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, bannedKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete ban flag: %w", err)
	}
	return nil
}

func verifiedKey(userID int64) string {
	return verifiedPrefix + strconv.FormatInt(userID, 10)
}

func bannedKey(userID int64) string {
	return bannedPrefix + strconv.FormatInt(userID, 10)
}
