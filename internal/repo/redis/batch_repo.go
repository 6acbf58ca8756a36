package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/zhangqi6627/tgchatbot/internal/domain/enums"
	"github.com/zhangqi6627/tgchatbot/internal/domain/model"
)

const batchPrefix = "mediagroup:"

var ErrBatchNotFound = errors.New("media batch not found")

// BatchRepo stores in-flight media batches keyed by direction and media
// group id. The TTL is a hard ceiling; the coalescer deletes batches after a
// successful flush.
type BatchRepo struct {
	client *goredis.Client
}

func NewBatchRepo(client *goredis.Client) *BatchRepo {
	return &BatchRepo{client: client}
}

// BatchKey builds the storage key for one directional media group.
func BatchKey(direction enums.Direction, groupID string) string {
	return batchPrefix + string(direction) + ":" + groupID
}

func (r *BatchRepo) Get(ctx context.Context, key string) (model.MediaBatch, error) {
	if r.client == nil {
		return model.MediaBatch{}, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return model.MediaBatch{}, ErrBatchNotFound
	}
	if err != nil {
		return model.MediaBatch{}, fmt.Errorf("get media batch: %w", err)
	}

	var batch model.MediaBatch
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		return model.MediaBatch{}, ErrBatchNotFound
	}
	return batch, nil
}

func (r *BatchRepo) Save(ctx context.Context, key string, batch model.MediaBatch, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	raw, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal media batch: %w", err)
	}

	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save media batch: %w", err)
	}
	return nil
}

func (r *BatchRepo) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete media batch: %w", err)
	}
	return nil
}

// ListKeys returns every stored batch key, for the recovery sweep.
func (r *BatchRepo) ListKeys(ctx context.Context) ([]string, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	var keys []string
	iter := r.client.Scan(ctx, 0, batchPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan media batches: %w", err)
	}
	return keys, nil
}
