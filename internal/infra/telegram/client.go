package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client is a thin wrapper over the Bot API. Calls go through MakeRequest
// with raw params: the forum-topic methods and message_thread_id are newer
// than the typed configs the library ships, and the relay core needs the raw
// failure description for classification anyway.
type Client struct {
	api *tgbotapi.BotAPI
}

type Button struct {
	Text string
	Data string
}

type OutgoingMessage struct {
	ChatID   int64
	ThreadID int64
	Text     string
	Markdown bool
	ReplyTo  int
	Keyboard [][]Button
}

type MediaGroupItem struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

func NewClient(token, apiBase string) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	endpoint := tgbotapi.APIEndpoint
	if base := strings.TrimSuffix(strings.TrimSpace(apiBase), "/"); base != "" {
		endpoint = base + "/bot%s/%s"
	}

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(strings.TrimSpace(token), endpoint)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Client{api: api}, nil
}

// SendMessage delivers a text message and returns the new message id.
func (c *Client) SendMessage(ctx context.Context, msg OutgoingMessage) (int, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", msg.ChatID)
	params.AddNonZero64("message_thread_id", msg.ThreadID)
	params.AddNonEmpty("text", msg.Text)
	params.AddNonZero("reply_to_message_id", msg.ReplyTo)
	if msg.Markdown {
		params.AddNonEmpty("parse_mode", tgbotapi.ModeMarkdown)
	}
	if len(msg.Keyboard) > 0 {
		markup, err := json.Marshal(inlineKeyboard(msg.Keyboard))
		if err != nil {
			return 0, fmt.Errorf("marshal inline keyboard: %w", err)
		}
		params.AddNonEmpty("reply_markup", string(markup))
	}

	resp, err := c.request(ctx, "sendMessage", params)
	if err != nil {
		return 0, err
	}

	var result struct {
		MessageID int `json:"message_id"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return 0, fmt.Errorf("decode sendMessage result: %w", err)
	}
	return result.MessageID, nil
}

func (c *Client) ForwardMessage(ctx context.Context, toChat, fromChat int64, messageID int, threadID int64) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", toChat)
	params.AddNonZero64("from_chat_id", fromChat)
	params.AddNonZero("message_id", messageID)
	params.AddNonZero64("message_thread_id", threadID)

	_, err := c.request(ctx, "forwardMessage", params)
	return err
}

func (c *Client) CopyMessage(ctx context.Context, toChat, fromChat int64, messageID int, threadID int64) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", toChat)
	params.AddNonZero64("from_chat_id", fromChat)
	params.AddNonZero("message_id", messageID)
	params.AddNonZero64("message_thread_id", threadID)

	_, err := c.request(ctx, "copyMessage", params)
	return err
}

func (c *Client) SendMediaGroup(ctx context.Context, chatID, threadID int64, items []MediaGroupItem) error {
	media, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal media group: %w", err)
	}

	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero64("message_thread_id", threadID)
	params.AddNonEmpty("media", string(media))

	_, err = c.request(ctx, "sendMediaGroup", params)
	return err
}

func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_id", messageID)
	params.AddNonEmpty("text", text)
	params.AddNonEmpty("parse_mode", tgbotapi.ModeMarkdown)

	_, err := c.request(ctx, "editMessageText", params)
	return err
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, showAlert bool) error {
	params := tgbotapi.Params{}
	params.AddNonEmpty("callback_query_id", callbackID)
	params.AddNonEmpty("text", text)
	params.AddBool("show_alert", showAlert)

	_, err := c.request(ctx, "answerCallbackQuery", params)
	return err
}

// CreateForumTopic creates a topic in the supergroup and returns its thread id.
func (c *Client) CreateForumTopic(ctx context.Context, chatID int64, name string) (int64, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonEmpty("name", name)

	resp, err := c.request(ctx, "createForumTopic", params)
	if err != nil {
		return 0, err
	}

	var result struct {
		MessageThreadID int64 `json:"message_thread_id"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return 0, fmt.Errorf("decode createForumTopic result: %w", err)
	}
	return result.MessageThreadID, nil
}

func (c *Client) CloseForumTopic(ctx context.Context, chatID, threadID int64) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero64("message_thread_id", threadID)

	_, err := c.request(ctx, "closeForumTopic", params)
	return err
}

func (c *Client) ReopenForumTopic(ctx context.Context, chatID, threadID int64) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero64("message_thread_id", threadID)

	_, err := c.request(ctx, "reopenForumTopic", params)
	return err
}

func (c *Client) request(ctx context.Context, method string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	if c == nil || c.api == nil {
		return nil, fmt.Errorf("telegram client is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.api.MakeRequest(method, params)
	if err != nil {
		desc := err.Error()
		code := 0
		if tgErr, ok := err.(*tgbotapi.Error); ok {
			desc = tgErr.Message
			code = tgErr.Code
		}
		return nil, &APIError{Method: method, Code: code, Description: desc}
	}
	return resp, nil
}

func inlineKeyboard(rows [][]Button) map[string]any {
	keyboard := make([][]map[string]string, 0, len(rows))
	for _, row := range rows {
		buttons := make([]map[string]string, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, map[string]string{
				"text":          b.Text,
				"callback_data": b.Data,
			})
		}
		keyboard = append(keyboard, buttons)
	}
	return map[string]any{"inline_keyboard": keyboard}
}
