package model

// Challenge is the short-lived state behind one verification prompt. The
// record lives under a random token with a five-minute TTL; PendingMessageID,
// when non-zero, is the message waiting to be relayed once the user answers.
type Challenge struct {
	Answer           string `json:"ans"`
	PendingMessageID int    `json:"pending,omitempty"`
}
