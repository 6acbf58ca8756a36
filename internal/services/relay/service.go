package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zhangqi6627/tgchatbot/internal/domain/enums"
	"github.com/zhangqi6627/tgchatbot/internal/domain/model"
	tginfra "github.com/zhangqi6627/tgchatbot/internal/infra/telegram"
	redrepo "github.com/zhangqi6627/tgchatbot/internal/repo/redis"
	verifysvc "github.com/zhangqi6627/tgchatbot/internal/services/verify"
)

const (
	closedNotice    = "🚫 当前对话已被管理员关闭。"
	deliveredNotice = "📩 刚才的消息已帮您送达。"

	startCommand = "/start"
)

type Transport interface {
	SendMessage(ctx context.Context, msg tginfra.OutgoingMessage) (int, error)
	ForwardMessage(ctx context.Context, toChat, fromChat int64, messageID int, threadID int64) error
	CopyMessage(ctx context.Context, toChat, fromChat int64, messageID int, threadID int64) error
	CreateForumTopic(ctx context.Context, chatID int64, name string) (int64, error)
}

type Challenger interface {
	Challenge(ctx context.Context, userID int64, pendingMessageID int) error
	Answer(ctx context.Context, req verifysvc.AnswerRequest) (verifysvc.AnswerResult, error)
}

type Batcher interface {
	Collect(ctx context.Context, msg model.Message, direction enums.Direction, targetChat, threadID int64) error
}

type Commander interface {
	Execute(ctx context.Context, text string, userID, threadID int64) (bool, error)
}

// Service routes private-chat messages into per-user forum topics and staff
// replies back out. It owns the user-to-topic bijection and its recovery when
// a topic disappears underneath a stored route.
type Service struct {
	routes       *redrepo.RouteRepo
	access       *redrepo.AccessRepo
	transport    Transport
	challenger   Challenger
	batcher      Batcher
	commander    Commander
	supergroupID int64
	logger       *zap.Logger
}

func NewService(
	routes *redrepo.RouteRepo,
	access *redrepo.AccessRepo,
	transport Transport,
	challenger Challenger,
	batcher Batcher,
	commander Commander,
	supergroupID int64,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		routes:       routes,
		access:       access,
		transport:    transport,
		challenger:   challenger,
		batcher:      batcher,
		commander:    commander,
		supergroupID: supergroupID,
		logger:       logger,
	}
}

// Route handles one inbound private-chat message: ban gate, verification
// gate, then delivery into the user's topic.
func (s *Service) Route(ctx context.Context, msg model.Message) error {
	userID := msg.ChatID
	text := strings.TrimSpace(msg.Text)

	// End users get no command surface beyond the greeting.
	if strings.HasPrefix(text, "/") && text != startCommand {
		return nil
	}

	banned, err := s.access.IsBanned(ctx, userID)
	if err != nil {
		return err
	}
	if banned {
		return nil
	}

	status, err := s.access.Status(ctx, userID)
	if err != nil {
		return err
	}
	if status == enums.VerificationNone {
		// The greeting itself has nothing worth replaying after the
		// challenge; any other message does.
		pending := msg.MessageID
		if text == startCommand {
			pending = 0
		}
		return s.challenger.Challenge(ctx, userID, pending)
	}

	return s.forwardToTopic(ctx, msg)
}

func (s *Service) forwardToTopic(ctx context.Context, msg model.Message) error {
	userID := msg.ChatID

	route, err := s.routes.Get(ctx, userID)
	if err != nil && !errors.Is(err, redrepo.ErrRouteNotFound) {
		return err
	}

	if err == nil && route.Closed {
		if _, sendErr := s.transport.SendMessage(ctx, tginfra.OutgoingMessage{
			ChatID: userID,
			Text:   closedNotice,
		}); sendErr != nil {
			return sendErr
		}
		return nil
	}

	if errors.Is(err, redrepo.ErrRouteNotFound) || route.ThreadID == 0 {
		route, err = s.createTopic(ctx, userID, msg.From)
		if err != nil {
			return err
		}
	}

	if msg.MediaGroupID != "" {
		return s.batcher.Collect(ctx, msg, enums.DirectionUserToTopic, s.supergroupID, route.ThreadID)
	}

	fwdErr := s.transport.ForwardMessage(ctx, s.supergroupID, userID, msg.MessageID, route.ThreadID)
	if fwdErr == nil {
		return nil
	}

	switch tginfra.Classify(fwdErr) {
	case tginfra.FailureThreadNotFound:
		// The stored thread is gone. Recreate once and retry once; a second
		// failure is surfaced as-is.
		newRoute, createErr := s.createTopic(ctx, userID, msg.From)
		if createErr != nil {
			return createErr
		}
		s.logger.Info("topic recreated after loss",
			zap.Int64("user_id", userID),
			zap.Int64("thread_id", newRoute.ThreadID),
		)
		return s.transport.ForwardMessage(ctx, s.supergroupID, userID, msg.MessageID, newRoute.ThreadID)
	case tginfra.FailureChatNotFound:
		return fmt.Errorf("群组ID错误: %d: %w", s.supergroupID, fwdErr)
	case tginfra.FailureNotEnoughRights:
		return fmt.Errorf("机器人权限不足 (需 Manage Topics): %w", fwdErr)
	default:
		// Degraded delivery: a copy loses forward provenance but keeps the
		// conversation moving.
		return s.transport.CopyMessage(ctx, s.supergroupID, userID, msg.MessageID, route.ThreadID)
	}
}

func (s *Service) createTopic(ctx context.Context, userID int64, from model.User) (model.UserRoute, error) {
	title := model.TopicTitle(from)

	threadID, err := s.transport.CreateForumTopic(ctx, s.supergroupID, title)
	if err != nil {
		return model.UserRoute{}, fmt.Errorf("创建话题失败: %w", err)
	}

	route := model.UserRoute{ThreadID: threadID, Title: title, Closed: false}
	if err := s.routes.Save(ctx, userID, route); err != nil {
		return model.UserRoute{}, err
	}

	s.logger.Info("topic created",
		zap.Int64("user_id", userID),
		zap.Int64("thread_id", threadID),
		zap.String("title", title),
	)
	return route, nil
}

// AdminReply handles a staff message inside a topic thread: commands mutate
// routing state, anything else is relayed to the mapped user. Messages in
// threads with no mapped user are ignored.
func (s *Service) AdminReply(ctx context.Context, msg model.Message) error {
	userID, _, err := s.routes.FindByThread(ctx, msg.ThreadID)
	if errors.Is(err, redrepo.ErrRouteNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if text := strings.TrimSpace(msg.Text); text != "" {
		handled, cmdErr := s.commander.Execute(ctx, text, userID, msg.ThreadID)
		if handled {
			return cmdErr
		}
	}

	if msg.MediaGroupID != "" {
		return s.batcher.Collect(ctx, msg, enums.DirectionTopicToUser, userID, 0)
	}

	return s.transport.CopyMessage(ctx, userID, s.supergroupID, msg.MessageID, 0)
}

// TopicStatusChanged syncs the persisted gate when staff close or reopen a
// topic through the forum UI instead of through bot commands.
func (s *Service) TopicStatusChanged(ctx context.Context, threadID int64, closed bool) error {
	return s.routes.SetClosedByThread(ctx, threadID, closed)
}

// CallbackEvent is an interactive button press as seen by the relay core.
type CallbackEvent struct {
	CallbackID string
	From       model.User
	MessageID  int
	Data       string
}

// FinishVerification resolves a verify:<token>:<answer> callback and, on
// success, best-effort replays the message that was waiting on the challenge.
func (s *Service) FinishVerification(ctx context.Context, cb CallbackEvent) error {
	parts := strings.SplitN(cb.Data, ":", 3)
	if len(parts) < 3 || parts[0] != verifysvc.CallbackPrefix {
		return nil
	}

	res, err := s.challenger.Answer(ctx, verifysvc.AnswerRequest{
		CallbackID:      cb.CallbackID,
		UserID:          cb.From.ID,
		PromptMessageID: cb.MessageID,
		Token:           parts[1],
		Answer:          parts[2],
	})
	if err != nil {
		return err
	}

	if res.Outcome != verifysvc.OutcomeVerified || res.PendingMessageID == 0 {
		return nil
	}

	// Replay failures are swallowed: the user already saw the success edit,
	// surfacing a second error here helps nobody.
	replay := model.Message{
		MessageID: res.PendingMessageID,
		ChatID:    cb.From.ID,
		From:      cb.From,
	}
	if replayErr := s.forwardToTopic(ctx, replay); replayErr != nil {
		s.logger.Warn("pending message replay failed",
			zap.Error(replayErr),
			zap.Int64("user_id", cb.From.ID),
		)
		return nil
	}

	if _, sendErr := s.transport.SendMessage(ctx, tginfra.OutgoingMessage{
		ChatID:  cb.From.ID,
		Text:    deliveredNotice,
		ReplyTo: res.PendingMessageID,
	}); sendErr != nil {
		s.logger.Warn("delivery confirmation failed", zap.Error(sendErr), zap.Int64("user_id", cb.From.ID))
	}
	return nil
}
