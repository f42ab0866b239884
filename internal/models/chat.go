package models

import "time"

// Chat represents a direct conversation between exactly two users.
type Chat struct {
	ID        int       `db:"id" json:"id"`
	User1ID   int       `db:"user1_id" json:"user1_id"`
	User2ID   int       `db:"user2_id" json:"user2_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Participants returns both participant ids in stored order.
func (c Chat) Participants() [2]int {
	return [2]int{c.User1ID, c.User2ID}
}

// HasParticipant reports whether userID takes part in the chat.
func (c Chat) HasParticipant(userID int) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// ChatSummary provides API-friendly view of a chat for a user.
type ChatSummary struct {
	ChatID         int       `db:"id" json:"chat_id"`
	FriendID       int       `json:"friend_id"`
	FriendUsername string    `json:"friend_username,omitempty"`
	Created        time.Time `db:"created_at" json:"created_at"`
}

// ChatVisibility models per-user chat visibility state.
type ChatVisibility struct {
	ChatID int  `db:"chat_id" json:"chat_id"`
	UserID int  `db:"user_id" json:"user_id"`
	Hidden bool `db:"hidden" json:"hidden"`
}
