package models

import (
	"errors"
	"time"
)

// GroupRole is a member's role inside a group conversation.
type GroupRole string

const (
	GroupAdmin     GroupRole = "admin"
	GroupModerator GroupRole = "moderator"
	GroupMember    GroupRole = "member"
)

var ErrInvalidRole = errors.New("invalid role")

// Valid reports whether r is a known group role.
func (r GroupRole) Valid() bool {
	return r == GroupAdmin || r == GroupModerator || r == GroupMember
}

// Group represents a group conversation.
type Group struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	AvatarURL   *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	OwnerID     int       `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// GroupMemberRecord is a membership row.
type GroupMemberRecord struct {
	GroupID  int       `db:"group_id" json:"group_id"`
	UserID   int       `db:"user_id" json:"user_id"`
	Role     GroupRole `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// GroupSettings carries editable group fields; nil means unchanged.
type GroupSettings struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	AvatarURL   *string `json:"avatar_url"`
}

// GroupMessage represents a message sent in a group.
type GroupMessage struct {
	ID             int    `db:"id" json:"id"`
	GroupID        int    `db:"group_id" json:"group_id"`
	SenderID       int    `db:"sender_id" json:"sender_id"`
	SenderUsername string `db:"sender_username" json:"sender_username,omitempty"`
	MessageBody
	EditedAt      *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	DeletedForAll bool       `db:"deleted_for_all" json:"deleted_for_all"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// GroupEvent is pushed to websocket clients of a group.
type GroupEvent struct {
	Type     string         `json:"type"`
	Messages []GroupMessage `json:"messages,omitempty"`
	Typing   []Typist       `json:"typing,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}
