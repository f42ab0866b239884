package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrStoryNotFound = errors.New("story not found")

const storyColumns = `id, user_id, media_url, media_type, duration_ms, caption, created_at, expires_at`

// StoryRepository stores stories, view receipts and reactions.
type StoryRepository interface {
	CreateStory(ctx context.Context, story models.Story) (models.Story, error)
	GetStory(ctx context.Context, storyID int) (models.Story, error)
	ActiveStories(ctx context.Context, now time.Time) ([]models.Story, error)
	MarkViewed(ctx context.Context, storyID, viewerID int) error
	Viewers(ctx context.Context, storyID int) ([]models.StoryView, error)
	React(ctx context.Context, storyID, userID int, emoji string) (models.StoryReaction, error)
	DeleteStory(ctx context.Context, storyID, ownerID int) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type StoryRepo struct {
	db *sqlx.DB
}

func NewStoryRepo(db *sqlx.DB) *StoryRepo {
	return &StoryRepo{db: db}
}

// CreateStory stores a story expiring StoryLifetime after creation.
func (r *StoryRepo) CreateStory(ctx context.Context, story models.Story) (models.Story, error) {
	var out models.Story
	err := r.db.GetContext(ctx, &out, `INSERT INTO stories (user_id, media_url, media_type, duration_ms, caption, expires_at)
        VALUES ($1, $2, $3, $4, $5, NOW() + $6 * INTERVAL '1 second') RETURNING `+storyColumns,
		story.UserID, story.MediaURL, story.MediaType, story.DurationMS, story.Caption, int64(models.StoryLifetime/time.Second))
	return out, err
}

func (r *StoryRepo) GetStory(ctx context.Context, storyID int) (models.Story, error) {
	var s models.Story
	err := r.db.GetContext(ctx, &s, `SELECT `+storyColumns+` FROM stories WHERE id=$1`, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Story{}, ErrStoryNotFound
	}
	return s, err
}

// ActiveStories returns unexpired stories grouped by author, oldest first
// within an author.
func (r *StoryRepo) ActiveStories(ctx context.Context, now time.Time) ([]models.Story, error) {
	stories := []models.Story{}
	err := r.db.SelectContext(ctx, &stories, `SELECT `+storyColumns+` FROM stories
        WHERE expires_at > $1
        ORDER BY (SELECT MAX(created_at) FROM stories s2 WHERE s2.user_id = stories.user_id AND s2.expires_at > $1) DESC,
            user_id, created_at ASC`, now)
	return stories, err
}

// MarkViewed records a view receipt once per viewer.
func (r *StoryRepo) MarkViewed(ctx context.Context, storyID, viewerID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO story_views (story_id, viewer_id) VALUES ($1, $2)
        ON CONFLICT (story_id, viewer_id) DO NOTHING`, storyID, viewerID)
	return err
}

func (r *StoryRepo) Viewers(ctx context.Context, storyID int) ([]models.StoryView, error) {
	views := []models.StoryView{}
	err := r.db.SelectContext(ctx, &views, `SELECT story_id, viewer_id, viewed_at FROM story_views WHERE story_id=$1 ORDER BY viewed_at DESC`, storyID)
	return views, err
}

func (r *StoryRepo) React(ctx context.Context, storyID, userID int, emoji string) (models.StoryReaction, error) {
	var out models.StoryReaction
	err := r.db.GetContext(ctx, &out, `INSERT INTO story_reactions (story_id, user_id, emoji) VALUES ($1, $2, $3)
        RETURNING id, story_id, user_id, emoji, created_at`, storyID, userID, emoji)
	return out, err
}

// DeleteStory removes an owner's story.
func (r *StoryRepo) DeleteStory(ctx context.Context, storyID, ownerID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE id=$1 AND user_id=$2`, storyID, ownerID)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrStoryNotFound)
}

// PurgeExpired deletes stories past expiry and returns how many went.
func (r *StoryRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
