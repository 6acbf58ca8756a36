package verify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mrand "math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/zhangqi6627/tgchatbot/internal/domain/model"
	tginfra "github.com/zhangqi6627/tgchatbot/internal/infra/telegram"
	redrepo "github.com/zhangqi6627/tgchatbot/internal/repo/redis"
)

// CallbackPrefix namespaces verification answers inside callback payloads:
// verify:<token>:<answer>.
const CallbackPrefix = "verify"

// Answer texts longer than this are truncated inside callback data to stay
// within the transport's 64-byte callback payload limit.
const maxCallbackAnswerLen = 20

const (
	challengePrompt = "🛡️ **人机验证**\n\n%s\n\n请点击下方按钮回答 (回答正确后将自动发送您刚才的消息)。"
	verifiedNotice  = "✅ **验证成功**\n\n您现在可以自由对话了。"

	callbackPassed      = "✅ 验证通过"
	callbackWrongAnswer = "❌ 答案错误"
	callbackExpired     = "❌ 验证已过期，请重发消息"
	callbackCorrupted   = "❌ 数据错误"
)

type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeVerified
	OutcomeExpired
)

type Transport interface {
	SendMessage(ctx context.Context, msg tginfra.OutgoingMessage) (int, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string, showAlert bool) error
}

type Config struct {
	ChallengeTTL time.Duration
	VerifiedTTL  time.Duration
}

// Service issues challenge prompts and promotes users that answer them.
type Service struct {
	challenges *redrepo.ChallengeRepo
	access     *redrepo.AccessRepo
	transport  Transport
	cfg        Config
	logger     *zap.Logger
}

func NewService(challenges *redrepo.ChallengeRepo, access *redrepo.AccessRepo, transport Transport, cfg Config, logger *zap.Logger) *Service {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 5 * time.Minute
	}
	if cfg.VerifiedTTL <= 0 {
		cfg.VerifiedTTL = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		challenges: challenges,
		access:     access,
		transport:  transport,
		cfg:        cfg,
		logger:     logger,
	}
}

// Challenge sends a verification prompt to the user. pendingMessageID, when
// non-zero, is stashed with the token and replayed after a correct answer.
func (s *Service) Challenge(ctx context.Context, userID int64, pendingMessageID int) error {
	q := questionPool[mrand.Intn(len(questionPool))]

	options := append([]string{q.Correct}, q.Distractor[0], q.Distractor[1], q.Distractor[2])
	shuffle(options)

	token, err := newToken()
	if err != nil {
		return fmt.Errorf("generate challenge token: %w", err)
	}

	state := model.Challenge{Answer: q.Correct, PendingMessageID: pendingMessageID}
	if err := s.challenges.Create(ctx, token, state, s.cfg.ChallengeTTL); err != nil {
		return err
	}

	buttons := make([]tginfra.Button, 0, len(options))
	for _, opt := range options {
		buttons = append(buttons, tginfra.Button{
			Text: opt,
			Data: CallbackPrefix + ":" + token + ":" + truncate(opt, maxCallbackAnswerLen),
		})
	}

	keyboard := make([][]tginfra.Button, 0, (len(buttons)+1)/2)
	for i := 0; i < len(buttons); i += 2 {
		end := i + 2
		if end > len(buttons) {
			end = len(buttons)
		}
		keyboard = append(keyboard, buttons[i:end])
	}

	_, err = s.transport.SendMessage(ctx, tginfra.OutgoingMessage{
		ChatID:   userID,
		Text:     fmt.Sprintf(challengePrompt, q.Text),
		Markdown: true,
		Keyboard: keyboard,
	})
	if err != nil {
		return fmt.Errorf("send challenge prompt: %w", err)
	}

	s.logger.Debug("challenge issued",
		zap.Int64("user_id", userID),
		zap.Int("pending_message_id", pendingMessageID),
	)
	return nil
}

type AnswerRequest struct {
	CallbackID      string
	UserID          int64
	PromptMessageID int
	Token           string
	Answer          string
}

type AnswerResult struct {
	Outcome          Outcome
	PendingMessageID int
}

// Answer resolves one callback attempt against the stored challenge. A token
// stays valid through wrong answers and is consumed only by a correct one.
func (s *Service) Answer(ctx context.Context, req AnswerRequest) (AnswerResult, error) {
	state, err := s.challenges.Get(ctx, req.Token)
	if errors.Is(err, redrepo.ErrChallengeNotFound) {
		if cbErr := s.transport.AnswerCallback(ctx, req.CallbackID, callbackExpired, true); cbErr != nil {
			return AnswerResult{}, cbErr
		}
		return AnswerResult{Outcome: OutcomeExpired}, nil
	}
	if errors.Is(err, redrepo.ErrChallengeCorrupted) {
		if cbErr := s.transport.AnswerCallback(ctx, req.CallbackID, callbackCorrupted, true); cbErr != nil {
			return AnswerResult{}, cbErr
		}
		return AnswerResult{Outcome: OutcomeRejected}, nil
	}
	if err != nil {
		return AnswerResult{}, err
	}

	if req.Answer != truncate(state.Answer, maxCallbackAnswerLen) {
		if cbErr := s.transport.AnswerCallback(ctx, req.CallbackID, callbackWrongAnswer, true); cbErr != nil {
			return AnswerResult{}, cbErr
		}
		return AnswerResult{Outcome: OutcomeRejected}, nil
	}

	if err := s.transport.AnswerCallback(ctx, req.CallbackID, callbackPassed, false); err != nil {
		return AnswerResult{}, err
	}

	if err := s.access.MarkVerified(ctx, req.UserID, s.cfg.VerifiedTTL); err != nil {
		return AnswerResult{}, err
	}
	if err := s.challenges.Delete(ctx, req.Token); err != nil {
		return AnswerResult{}, err
	}

	if err := s.transport.EditMessageText(ctx, req.UserID, req.PromptMessageID, verifiedNotice); err != nil {
		s.logger.Warn("edit verification prompt failed", zap.Error(err), zap.Int64("user_id", req.UserID))
	}

	s.logger.Info("user verified", zap.Int64("user_id", req.UserID))
	return AnswerResult{Outcome: OutcomeVerified, PendingMessageID: state.PendingMessageID}, nil
}

func newToken() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shuffle(options []string) {
	mrand.Shuffle(len(options), func(a, b int) {
		options[a], options[b] = options[b], options[a]
	})
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
