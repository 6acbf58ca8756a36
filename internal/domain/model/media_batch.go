package model

import "github.com/zhangqi6627/tgchatbot/internal/domain/enums"

// MediaItem is one normalized element of a multi-item upload.
type MediaItem struct {
	Kind      enums.MediaKind `json:"type"`
	FileID    string          `json:"id"`
	Caption   string          `json:"cap,omitempty"`
	MessageID int             `json:"msg_id"`
}

// MediaBatch accumulates the items of one media group until a quiet period
// elapses. LastTS (unix milliseconds) guards the flush: only the scheduler
// run that captured the current value is allowed to send.
type MediaBatch struct {
	Direction  enums.Direction `json:"direction"`
	TargetChat int64           `json:"target_chat"`
	ThreadID   int64           `json:"thread_id,omitempty"`
	Items      []MediaItem     `json:"items"`
	LastTS     int64           `json:"last_ts"`
}
