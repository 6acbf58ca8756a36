package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/zhangqi6627/tgchatbot/internal/domain/model"
	tginfra "github.com/zhangqi6627/tgchatbot/internal/infra/telegram"
	relaysvc "github.com/zhangqi6627/tgchatbot/internal/services/relay"
	"github.com/zhangqi6627/tgchatbot/internal/transport/http/dto"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const privateErrorTemplate = "⚠️ **系统错误**\n\n`%s`\n\n请检查配置: SUPERGROUP_ID / BOT_TOKEN / REDIS_ADDR"

type Notifier interface {
	SendMessage(ctx context.Context, msg tginfra.OutgoingMessage) (int, error)
}

// WebhookHandler is the dispatch shell: it decodes one update, picks the
// relay entry point, and always answers 200 so the transport never retries
// an update the bot has already seen.
type WebhookHandler struct {
	relay        *relaysvc.Service
	notifier     Notifier
	supergroupID int64
	secret       string
	logger       *zap.Logger
}

func NewWebhookHandler(relay *relaysvc.Service, notifier Notifier, supergroupID int64, secret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		relay:        relay,
		notifier:     notifier,
		supergroupID: supergroupID,
		secret:       secret,
		logger:       logger,
	}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" && r.Header.Get(secretTokenHeader) != h.secret {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var update dto.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		// Not a payload this bot understands; acknowledge and move on.
		h.ok(w)
		return
	}

	ctx := r.Context()

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}

	h.ok(w)
}

func (h *WebhookHandler) handleCallback(ctx context.Context, cb *dto.CallbackQuery) {
	event := relaysvc.CallbackEvent{
		CallbackID: cb.ID,
		From:       toModelUser(&cb.From),
		Data:       cb.Data,
	}
	if cb.Message != nil {
		event.MessageID = cb.Message.MessageID
	}

	if err := h.relay.FinishVerification(ctx, event); err != nil {
		h.logger.Error("verification callback failed", zap.Error(err), zap.Int64("user_id", cb.From.ID))
	}
}

func (h *WebhookHandler) handleMessage(ctx context.Context, msg *dto.Message) {
	switch {
	case msg.Chat.Type == "private":
		h.handlePrivate(ctx, msg)
	case msg.Chat.ID == h.supergroupID:
		h.handleSupergroup(ctx, msg)
	}
}

func (h *WebhookHandler) handlePrivate(ctx context.Context, msg *dto.Message) {
	err := h.relay.Route(ctx, toModelMessage(msg))
	if err == nil {
		return
	}

	h.logger.Error("private message routing failed", zap.Error(err), zap.Int64("user_id", msg.Chat.ID))

	// Low-traffic operator tool: the raw failure text goes back to the user
	// as a diagnostic.
	if _, sendErr := h.notifier.SendMessage(ctx, tginfra.OutgoingMessage{
		ChatID:   msg.Chat.ID,
		Text:     fmt.Sprintf(privateErrorTemplate, err.Error()),
		Markdown: true,
	}); sendErr != nil {
		h.logger.Error("diagnostic notice failed", zap.Error(sendErr), zap.Int64("user_id", msg.Chat.ID))
	}
}

func (h *WebhookHandler) handleSupergroup(ctx context.Context, msg *dto.Message) {
	if msg.MessageThreadID == 0 {
		return
	}

	if msg.ForumTopicClosed != nil || msg.ForumTopicReopened != nil {
		closed := msg.ForumTopicClosed != nil
		if err := h.relay.TopicStatusChanged(ctx, msg.MessageThreadID, closed); err != nil {
			h.logger.Error("topic status sync failed", zap.Error(err), zap.Int64("thread_id", msg.MessageThreadID))
		}
		return
	}

	if err := h.relay.AdminReply(ctx, toModelMessage(msg)); err != nil {
		h.logger.Error("admin reply failed", zap.Error(err), zap.Int64("thread_id", msg.MessageThreadID))

		// Staff-side failures are reported into the thread, never to the
		// end user.
		if _, sendErr := h.notifier.SendMessage(ctx, tginfra.OutgoingMessage{
			ChatID:   h.supergroupID,
			ThreadID: msg.MessageThreadID,
			Text:     "⚠️ 操作失败: " + err.Error(),
		}); sendErr != nil {
			h.logger.Error("thread error notice failed", zap.Error(sendErr), zap.Int64("thread_id", msg.MessageThreadID))
		}
	}
}

func (h *WebhookHandler) ok(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func toModelMessage(m *dto.Message) model.Message {
	msg := model.Message{
		MessageID:    m.MessageID,
		ChatID:       m.Chat.ID,
		ThreadID:     m.MessageThreadID,
		From:         toModelUser(m.From),
		Text:         m.Text,
		Caption:      m.Caption,
		MediaGroupID: strings.TrimSpace(m.MediaGroupID),
	}

	for _, p := range m.Photo {
		msg.Photos = append(msg.Photos, model.FileRef{FileID: p.FileID})
	}
	if m.Video != nil {
		msg.Video = &model.FileRef{FileID: m.Video.FileID}
	}
	if m.Document != nil {
		msg.Document = &model.FileRef{FileID: m.Document.FileID}
	}
	return msg
}

func toModelUser(u *dto.User) model.User {
	if u == nil {
		return model.User{}
	}
	return model.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}
