package models

import "time"

// LiveStatus is the broadcast state of a live stream.
type LiveStatus string

const (
	LiveOn    LiveStatus = "live"
	LiveEnded LiveStatus = "ended"
)

// LiveStream is a broadcast hosted by one user.
type LiveStream struct {
	ID        int        `db:"id" json:"id"`
	HostID    int        `db:"host_id" json:"host_id"`
	Title     string     `db:"title" json:"title"`
	StreamKey string     `db:"stream_key" json:"-"`
	Status    LiveStatus `db:"status" json:"status"`
	StartedAt time.Time  `db:"started_at" json:"started_at"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	Viewers   int        `db:"-" json:"viewers"`
}

// LiveEvent is pushed to live stream viewers.
type LiveEvent struct {
	Type    string `json:"type"`
	UserID  int    `json:"user_id,omitempty"`
	Text    string `json:"text,omitempty"`
	Emoji   string `json:"emoji,omitempty"`
	Viewers int    `json:"viewers,omitempty"`
}
