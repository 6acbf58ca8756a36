package sweep

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	redrepo "github.com/zhangqi6627/tgchatbot/internal/repo/redis"
)

// Flusher is the slice of the media coalescer the sweep needs.
type Flusher interface {
	Flush(ctx context.Context, key string, capturedTS int64) error
	QuietPeriod() time.Duration
}

// Job recovers media batches whose in-process flush timer was lost, e.g.
// when the process restarted between collect and flush. Any batch that has
// been quiet for longer than the debounce window is flushed with its own
// timestamp, so the regular supersede guard still applies. The store TTL
// remains the hard expiry ceiling.
type Job struct {
	batches *redrepo.BatchRepo
	flusher Flusher
	now     func() time.Time
	logger  *zap.Logger
}

func New(batches *redrepo.BatchRepo, flusher Flusher, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		batches: batches,
		flusher: flusher,
		now:     time.Now,
		logger:  logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.batches == nil || j.flusher == nil {
		return nil
	}

	keys, err := j.batches.ListKeys(ctx)
	if err != nil {
		return err
	}

	cutoff := j.now().Add(-j.flusher.QuietPeriod()).UnixMilli()
	flushed := 0

	for _, key := range keys {
		batch, err := j.batches.Get(ctx, key)
		if errors.Is(err, redrepo.ErrBatchNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		if batch.LastTS > cutoff {
			continue
		}

		if err := j.flusher.Flush(ctx, key, batch.LastTS); err != nil {
			j.logger.Warn("sweep flush failed", zap.Error(err), zap.String("key", key))
			continue
		}
		flushed++
	}

	if flushed > 0 {
		j.logger.Info("stranded media batches flushed", zap.Int("count", flushed))
	}
	return nil
}
