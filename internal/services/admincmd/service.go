package admincmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	tginfra "github.com/zhangqi6627/tgchatbot/internal/infra/telegram"
	redrepo "github.com/zhangqi6627/tgchatbot/internal/repo/redis"
)

const (
	confirmClosed   = "🚫 **对话已强制关闭**"
	confirmReopened = "✅ **对话已恢复**"
	confirmReset    = "🔄 **验证重置**"
	confirmTrusted  = "🌟 **已设置永久信任**"
	confirmBanned   = "🚫 **用户已封禁**"
	confirmUnbanned = "✅ **用户已解封**"

	infoTemplate = "👤 **用户信息**\nUID: `%d`\nTopic ID: `%d`\nLink: [点击私聊](tg://user?id=%d)"
)

type Transport interface {
	SendMessage(ctx context.Context, msg tginfra.OutgoingMessage) (int, error)
	CloseForumTopic(ctx context.Context, chatID, threadID int64) error
	ReopenForumTopic(ctx context.Context, chatID, threadID int64) error
}

// Interpreter executes staff commands typed inside a mapped topic thread.
// Every command is idempotent at the state layer and answers with a
// confirmation into the same thread.
type Interpreter struct {
	routes       *redrepo.RouteRepo
	access       *redrepo.AccessRepo
	transport    Transport
	supergroupID int64
	logger       *zap.Logger
}

func NewInterpreter(routes *redrepo.RouteRepo, access *redrepo.AccessRepo, transport Transport, supergroupID int64, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{
		routes:       routes,
		access:       access,
		transport:    transport,
		supergroupID: supergroupID,
		logger:       logger,
	}
}

// Execute runs text as a command against the user mapped to threadID.
// The boolean reports whether text matched a known command; unmatched text
// belongs to the relay path, not to the interpreter.
func (i *Interpreter) Execute(ctx context.Context, text string, userID, threadID int64) (bool, error) {
	switch text {
	case "/close":
		return true, i.setClosed(ctx, userID, threadID, true)
	case "/open":
		return true, i.setClosed(ctx, userID, threadID, false)
	case "/reset":
		if err := i.access.ResetVerification(ctx, userID); err != nil {
			return true, err
		}
		return true, i.confirm(ctx, threadID, confirmReset)
	case "/trust":
		if err := i.access.MarkTrusted(ctx, userID); err != nil {
			return true, err
		}
		return true, i.confirm(ctx, threadID, confirmTrusted)
	case "/ban":
		if err := i.access.Ban(ctx, userID); err != nil {
			return true, err
		}
		return true, i.confirm(ctx, threadID, confirmBanned)
	case "/unban":
		if err := i.access.Unban(ctx, userID); err != nil {
			return true, err
		}
		return true, i.confirm(ctx, threadID, confirmUnbanned)
	case "/info":
		return true, i.confirm(ctx, threadID, fmt.Sprintf(infoTemplate, userID, threadID, userID))
	default:
		return false, nil
	}
}

func (i *Interpreter) setClosed(ctx context.Context, userID, threadID int64, closed bool) error {
	route, err := i.routes.Get(ctx, userID)
	if errors.Is(err, redrepo.ErrRouteNotFound) {
		// The thread resolved to this user moments ago; a vanished record
		// means there is nothing to gate.
		return nil
	}
	if err != nil {
		return err
	}

	route.Closed = closed
	if err := i.routes.Save(ctx, userID, route); err != nil {
		return err
	}

	// Mirror the gate onto the forum topic itself. Best effort: the state
	// flag is already persisted and is what the router enforces.
	var topicErr error
	if closed {
		topicErr = i.transport.CloseForumTopic(ctx, i.supergroupID, threadID)
	} else {
		topicErr = i.transport.ReopenForumTopic(ctx, i.supergroupID, threadID)
	}
	if topicErr != nil {
		i.logger.Warn("forum topic state change failed",
			zap.Error(topicErr),
			zap.Int64("thread_id", threadID),
			zap.Bool("closed", closed),
		)
	}

	text := confirmReopened
	if closed {
		text = confirmClosed
	}
	return i.confirm(ctx, threadID, text)
}

func (i *Interpreter) confirm(ctx context.Context, threadID int64, text string) error {
	_, err := i.transport.SendMessage(ctx, tginfra.OutgoingMessage{
		ChatID:   i.supergroupID,
		ThreadID: threadID,
		Text:     text,
		Markdown: true,
	})
	return err
}
