package models

import (
	"strings"
	"time"
)

// StoryMedia is the media type of a story item.
type StoryMedia string

const (
	StoryImage StoryMedia = "image"
	StoryVideo StoryMedia = "video"
	StoryLive  StoryMedia = "live"
)

// StoryLifetime is how long a story stays visible.
const StoryLifetime = 24 * time.Hour

// Valid reports whether m is a known media type.
func (m StoryMedia) Valid() bool {
	return m == StoryImage || m == StoryVideo || m == StoryLive
}

// Story is an ephemeral media item.
type Story struct {
	ID         int        `db:"id" json:"id"`
	UserID     int        `db:"user_id" json:"user_id"`
	MediaURL   string     `db:"media_url" json:"media_url"`
	MediaType  StoryMedia `db:"media_type" json:"media_type"`
	DurationMS *int       `db:"duration_ms" json:"duration_ms,omitempty"`
	Caption    string     `db:"caption" json:"caption"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
}

// Playback names how a client plays the media: hls for HLS manifests,
// native otherwise.
func (s Story) Playback() string {
	url := strings.ToLower(s.MediaURL)
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if strings.HasSuffix(url, ".m3u8") {
		return "hls"
	}
	return "native"
}

// Expired reports whether the story is past its expiry at now.
func (s Story) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// StoryView is a per-viewer view receipt.
type StoryView struct {
	StoryID  int       `db:"story_id" json:"story_id"`
	ViewerID int       `db:"viewer_id" json:"viewer_id"`
	ViewedAt time.Time `db:"viewed_at" json:"viewed_at"`
}

// StoryReaction is an emoji reaction to a story.
type StoryReaction struct {
	ID        int       `db:"id" json:"id"`
	StoryID   int       `db:"story_id" json:"story_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserStories groups the active stories of one author.
type UserStories struct {
	UserID   int     `json:"user_id"`
	Username string  `json:"username,omitempty"`
	Stories  []Story `json:"stories"`
}

// GroupStoriesByUser groups stories by author, keeping first-seen author
// order and putting selfID first.
func GroupStoriesByUser(stories []Story, selfID int) []UserStories {
	index := map[int]int{}
	var out []UserStories
	for _, s := range stories {
		i, ok := index[s.UserID]
		if !ok {
			i = len(out)
			index[s.UserID] = i
			out = append(out, UserStories{UserID: s.UserID})
		}
		out[i].Stories = append(out[i].Stories, s)
	}
	if i, ok := index[selfID]; ok && i != 0 {
		self := out[i]
		copy(out[1:i+1], out[0:i])
		out[0] = self
	}
	return out
}
