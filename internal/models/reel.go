package models

import "time"

// Reel is a short video with like and view counters.
type Reel struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	VideoURL  string    `db:"video_url" json:"video_url"`
	Caption   string    `db:"caption" json:"caption"`
	LikeCount int       `db:"like_count" json:"like_count"`
	ViewCount int       `db:"view_count" json:"view_count"`
	LikedByMe bool      `db:"liked_by_me" json:"liked_by_me"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
