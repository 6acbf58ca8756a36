package dto

// Inbound webhook payload shapes. Declared locally because the relay needs
// forum-topic fields (message_thread_id, forum_topic_closed) that predate
// the typed update structs of the bot library.

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

type Message struct {
	MessageID       int    `json:"message_id"`
	From            *User  `json:"from"`
	Chat            Chat   `json:"chat"`
	MessageThreadID int64  `json:"message_thread_id"`
	Text            string `json:"text"`
	Caption         string `json:"caption"`
	MediaGroupID    string `json:"media_group_id"`

	Photo    []PhotoSize `json:"photo"`
	Video    *File       `json:"video"`
	Document *File       `json:"document"`

	ForumTopicClosed   *ForumTopicEvent `json:"forum_topic_closed"`
	ForumTopicReopened *ForumTopicEvent `json:"forum_topic_reopened"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type File struct {
	FileID string `json:"file_id"`
}

// ForumTopicEvent is an empty service-message marker; its presence alone
// signals the state change.
type ForumTopicEvent struct{}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}
