package models

import (
	"errors"
	"strings"
	"time"
)

// MessageKind is the type of content a message carries.
type MessageKind string

const (
	MessageText     MessageKind = "text"
	MessageImage    MessageKind = "image"
	MessageVideo    MessageKind = "video"
	MessageAudio    MessageKind = "audio"
	MessageFile     MessageKind = "file"
	MessageLocation MessageKind = "location"
)

var (
	ErrEmptyMessage       = errors.New("message has no content")
	ErrUnknownMessageKind = errors.New("unknown message kind")
	ErrMissingAttachment  = errors.New("attachment url required")
	ErrInvalidLocation    = errors.New("invalid location")
)

// Valid reports whether k is a supported kind.
func (k MessageKind) Valid() bool {
	switch k {
	case MessageText, MessageImage, MessageVideo, MessageAudio, MessageFile, MessageLocation:
		return true
	}
	return false
}

// Presentation names the visual representation a client renders for k.
func (k MessageKind) Presentation() string {
	switch k {
	case MessageImage:
		return "image"
	case MessageVideo:
		return "video_player"
	case MessageAudio:
		return "audio_player"
	case MessageFile:
		return "file_card"
	case MessageLocation:
		return "map_pin"
	default:
		return "text_bubble"
	}
}

// MessageBody is the user-authored part of a direct or group message.
type MessageBody struct {
	Kind           MessageKind `db:"kind" json:"kind"`
	Content        string      `db:"content" json:"content"`
	AttachmentURL  *string     `db:"attachment_url" json:"attachment_url,omitempty"`
	AttachmentName *string     `db:"attachment_name" json:"attachment_name,omitempty"`
	AttachmentSize *int64      `db:"attachment_size" json:"attachment_size,omitempty"`
	Latitude       *float64    `db:"latitude" json:"latitude,omitempty"`
	Longitude      *float64    `db:"longitude" json:"longitude,omitempty"`
	ReplyToID      *int        `db:"reply_to_id" json:"reply_to_id,omitempty"`
}

// IsEmpty reports a body with no text, no attachment and no location.
func (b MessageBody) IsEmpty() bool {
	return strings.TrimSpace(b.Content) == "" && !b.hasAttachment() && b.Latitude == nil && b.Longitude == nil
}

func (b MessageBody) hasAttachment() bool {
	return b.AttachmentURL != nil && strings.TrimSpace(*b.AttachmentURL) != ""
}

// Normalize fills the kind when omitted and trims the text.
func (b MessageBody) Normalize() MessageBody {
	b.Content = strings.TrimSpace(b.Content)
	if b.Kind == "" {
		switch {
		case b.Latitude != nil || b.Longitude != nil:
			b.Kind = MessageLocation
		case b.hasAttachment():
			b.Kind = MessageFile
		default:
			b.Kind = MessageText
		}
	}
	return b
}

// Validate checks the body against the rules of its kind.
func (b MessageBody) Validate() error {
	if b.IsEmpty() {
		return ErrEmptyMessage
	}
	if !b.Kind.Valid() {
		return ErrUnknownMessageKind
	}
	switch b.Kind {
	case MessageText:
		if b.Content == "" {
			return ErrEmptyMessage
		}
	case MessageImage, MessageVideo, MessageAudio, MessageFile:
		if !b.hasAttachment() {
			return ErrMissingAttachment
		}
	case MessageLocation:
		if b.Latitude == nil || b.Longitude == nil {
			return ErrInvalidLocation
		}
		if *b.Latitude < -90 || *b.Latitude > 90 || *b.Longitude < -180 || *b.Longitude > 180 {
			return ErrInvalidLocation
		}
	}
	return nil
}

// EditedContent trims replacement text; an edit can never blank a message.
func EditedContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}
	return content, nil
}

// Message represents a direct chat message.
type Message struct {
	ID             int    `db:"id" json:"id"`
	ChatID         int    `db:"chat_id" json:"chat_id"`
	SenderID       int    `db:"sender_id" json:"sender_id"`
	SenderUsername string `db:"sender_username" json:"sender_username,omitempty"`
	MessageBody
	EditedAt          *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	DeletedBySender   bool       `db:"deleted_by_sender" json:"deleted_by_sender"`
	DeletedByReceiver bool       `db:"deleted_by_receiver" json:"deleted_by_receiver"`
	DeletedForAll     bool       `db:"deleted_for_all" json:"deleted_for_all"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// ChatEvent is pushed to websocket clients of a direct chat.
type ChatEvent struct {
	Type     string    `json:"type"`
	Messages []Message `json:"messages,omitempty"`
	Typing   []Typist  `json:"typing,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Typist is a user currently typing in a conversation.
type Typist struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username,omitempty"`
}
