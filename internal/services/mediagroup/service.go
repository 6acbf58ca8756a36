package mediagroup

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/zhangqi6627/tgchatbot/internal/domain/enums"
	"github.com/zhangqi6627/tgchatbot/internal/domain/model"
	tginfra "github.com/zhangqi6627/tgchatbot/internal/infra/telegram"
	redrepo "github.com/zhangqi6627/tgchatbot/internal/repo/redis"
)

// The transport delivers the items of one logical multi-upload as separate
// webhook events with no end-of-group marker. A trailing quiet period is the
// only reliable completion heuristic, so every collected item re-arms a
// delayed flush and only the flush holding the newest timestamp may send.

type Transport interface {
	SendMediaGroup(ctx context.Context, chatID, threadID int64, items []tginfra.MediaGroupItem) error
	CopyMessage(ctx context.Context, toChat, fromChat int64, messageID int, threadID int64) error
}

type Config struct {
	QuietPeriod time.Duration
	BatchTTL    time.Duration
}

type Service struct {
	batches   *redrepo.BatchRepo
	transport Transport
	cfg       Config
	logger    *zap.Logger

	now      func() time.Time
	schedule func(key string, capturedTS int64)
}

func NewService(batches *redrepo.BatchRepo, transport Transport, cfg Config, logger *zap.Logger) *Service {
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = 2 * time.Second
	}
	if cfg.BatchTTL <= 0 {
		cfg.BatchTTL = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		batches:   batches,
		transport: transport,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	s.schedule = s.scheduleFlush
	return s
}

// Collect folds one message into the batch for its media group and re-arms
// the quiet-period flush. Messages without a batchable attachment bypass
// batching and are copied through immediately.
func (s *Service) Collect(ctx context.Context, msg model.Message, direction enums.Direction, targetChat, threadID int64) error {
	item, ok := extractMedia(msg)
	if !ok {
		return s.transport.CopyMessage(ctx, targetChat, msg.ChatID, msg.MessageID, threadID)
	}

	key := redrepo.BatchKey(direction, msg.MediaGroupID)

	batch, err := s.batches.Get(ctx, key)
	if errors.Is(err, redrepo.ErrBatchNotFound) {
		batch = model.MediaBatch{
			Direction:  direction,
			TargetChat: targetChat,
			ThreadID:   threadID,
		}
	} else if err != nil {
		return err
	}

	batch.Items = append(batch.Items, item)
	batch.LastTS = s.now().UnixMilli()

	if err := s.batches.Save(ctx, key, batch, s.cfg.BatchTTL); err != nil {
		return err
	}

	s.schedule(key, batch.LastTS)
	return nil
}

// Flush sends the batch if and only if no item arrived since capturedTS was
// recorded. A superseded flush is a no-op; the scheduler armed by the newer
// item owns the send.
func (s *Service) Flush(ctx context.Context, key string, capturedTS int64) error {
	batch, err := s.batches.Get(ctx, key)
	if errors.Is(err, redrepo.ErrBatchNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if batch.LastTS != capturedTS {
		return nil
	}

	if len(batch.Items) > 0 {
		items := make([]tginfra.MediaGroupItem, 0, len(batch.Items))
		for i, it := range batch.Items {
			caption := ""
			if i == 0 {
				caption = it.Caption
			}
			items = append(items, tginfra.MediaGroupItem{
				Type:    string(it.Kind),
				Media:   it.FileID,
				Caption: caption,
			})
		}

		if err := s.transport.SendMediaGroup(ctx, batch.TargetChat, batch.ThreadID, items); err != nil {
			return err
		}

		s.logger.Debug("media batch flushed",
			zap.String("key", key),
			zap.Int("items", len(items)),
		)
	}

	return s.batches.Delete(ctx, key)
}

// QuietPeriod exposes the debounce window for the recovery sweep.
func (s *Service) QuietPeriod() time.Duration {
	return s.cfg.QuietPeriod
}

// scheduleFlush detaches the flush from the request cycle. Fire and forget:
// no cancellation, at-most-once, a stale run aborts on the timestamp guard.
func (s *Service) scheduleFlush(key string, capturedTS int64) {
	time.AfterFunc(s.cfg.QuietPeriod, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.Flush(ctx, key, capturedTS); err != nil {
			s.logger.Warn("media batch flush failed", zap.Error(err), zap.String("key", key))
		}
	})
}

func extractMedia(msg model.Message) (model.MediaItem, bool) {
	switch {
	case len(msg.Photos) > 0:
		// Size variants arrive in ascending resolution; take the largest.
		return model.MediaItem{
			Kind:      enums.MediaKindPhoto,
			FileID:    msg.Photos[len(msg.Photos)-1].FileID,
			Caption:   msg.Caption,
			MessageID: msg.MessageID,
		}, true
	case msg.Video != nil:
		return model.MediaItem{
			Kind:      enums.MediaKindVideo,
			FileID:    msg.Video.FileID,
			Caption:   msg.Caption,
			MessageID: msg.MessageID,
		}, true
	case msg.Document != nil:
		return model.MediaItem{
			Kind:      enums.MediaKindDocument,
			FileID:    msg.Document.FileID,
			Caption:   msg.Caption,
			MessageID: msg.MessageID,
		}, true
	default:
		return model.MediaItem{}, false
	}
}
