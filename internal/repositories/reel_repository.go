package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrReelNotFound = errors.New("reel not found")

// ReelRepository stores reels and per-user likes.
type ReelRepository interface {
	CreateReel(ctx context.Context, userID int, videoURL, caption string) (models.Reel, error)
	Feed(ctx context.Context, viewerID, limit, offset int) ([]models.Reel, error)
	ToggleLike(ctx context.Context, reelID, userID int) (liked bool, likes int, err error)
	AddView(ctx context.Context, reelID int) (int, error)
	DeleteReel(ctx context.Context, reelID, ownerID int) error
}

type ReelRepo struct {
	db *sqlx.DB
}

func NewReelRepo(db *sqlx.DB) *ReelRepo {
	return &ReelRepo{db: db}
}

func (r *ReelRepo) CreateReel(ctx context.Context, userID int, videoURL, caption string) (models.Reel, error) {
	var out models.Reel
	err := r.db.GetContext(ctx, &out, `INSERT INTO reels (user_id, video_url, caption) VALUES ($1, $2, $3)
        RETURNING id, user_id, video_url, caption, like_count, view_count, FALSE AS liked_by_me, created_at`, userID, videoURL, caption)
	return out, err
}

// Feed returns reels newest first.
func (r *ReelRepo) Feed(ctx context.Context, viewerID, limit, offset int) ([]models.Reel, error) {
	reels := []models.Reel{}
	err := r.db.SelectContext(ctx, &reels, `SELECT r.id, r.user_id, r.video_url, r.caption, r.like_count, r.view_count,
            EXISTS(SELECT 1 FROM reel_likes l WHERE l.reel_id = r.id AND l.user_id = $1) AS liked_by_me, r.created_at
        FROM reels r ORDER BY r.created_at DESC, r.id DESC LIMIT $2 OFFSET $3`, viewerID, limit, offset)
	return reels, err
}

// ToggleLike likes or unlikes and keeps like_count in step.
func (r *ReelRepo) ToggleLike(ctx context.Context, reelID, userID int) (liked bool, likes int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM reel_likes WHERE reel_id=$1 AND user_id=$2`, reelID, userID)
	if err != nil {
		return false, 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}

	delta := -1
	if removed == 0 {
		if _, err = tx.ExecContext(ctx, `INSERT INTO reel_likes (reel_id, user_id) VALUES ($1, $2)`, reelID, userID); err != nil {
			return false, 0, err
		}
		delta = 1
		liked = true
	}

	err = tx.GetContext(ctx, &likes, `UPDATE reels SET like_count = GREATEST(like_count + $2, 0) WHERE id=$1 RETURNING like_count`, reelID, delta)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrReelNotFound
	}
	if err != nil {
		return false, 0, err
	}
	if err = tx.Commit(); err != nil {
		return false, 0, err
	}
	return liked, likes, nil
}

func (r *ReelRepo) AddView(ctx context.Context, reelID int) (int, error) {
	var views int
	err := r.db.GetContext(ctx, &views, `UPDATE reels SET view_count = view_count + 1 WHERE id=$1 RETURNING view_count`, reelID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrReelNotFound
	}
	return views, err
}

func (r *ReelRepo) DeleteReel(ctx context.Context, reelID, ownerID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reels WHERE id=$1 AND user_id=$2`, reelID, ownerID)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrReelNotFound)
}
