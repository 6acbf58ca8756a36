package model

import "strings"

// UserRoute binds a private-chat user to their forum topic inside the
// supergroup. ThreadID is the canonical forward target until a delivery
// failure proves the topic is gone.
type UserRoute struct {
	ThreadID int64  `json:"thread_id"`
	Title    string `json:"title"`
	Closed   bool   `json:"closed"`
}

// TopicTitle derives the forum topic name from the user's profile.
func TopicTitle(u User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = "User"
	}
	if u.Username != "" {
		name += " @" + u.Username
	}
	return name
}
