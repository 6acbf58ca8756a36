package model

// Message is the normalized inbound message the relay core works with,
// decoupled from the raw webhook payload shape.
type Message struct {
	MessageID    int
	ChatID       int64
	ThreadID     int64
	From         User
	Text         string
	Caption      string
	MediaGroupID string

	// Media references, populated when present. Photos holds every size
	// variant in ascending resolution order, as delivered by the transport.
	Photos   []FileRef
	Video    *FileRef
	Document *FileRef
}

type FileRef struct {
	FileID string
}

// HasMedia reports whether the message carries a batchable attachment.
func (m Message) HasMedia() bool {
	return len(m.Photos) > 0 || m.Video != nil || m.Document != nil
}
