package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrStreamNotFound = errors.New("live stream not found")

const liveColumns = `id, host_id, title, stream_key, status, started_at, ended_at`

// LiveRepository stores live streams.
type LiveRepository interface {
	StartStream(ctx context.Context, hostID int, title, streamKey string) (models.LiveStream, error)
	EndStream(ctx context.Context, streamID, hostID int) (models.LiveStream, error)
	GetStream(ctx context.Context, streamID int) (models.LiveStream, error)
	ListLive(ctx context.Context) ([]models.LiveStream, error)
}

type LiveRepo struct {
	db *sqlx.DB
}

func NewLiveRepo(db *sqlx.DB) *LiveRepo {
	return &LiveRepo{db: db}
}

func (r *LiveRepo) StartStream(ctx context.Context, hostID int, title, streamKey string) (models.LiveStream, error) {
	var s models.LiveStream
	err := r.db.GetContext(ctx, &s, `INSERT INTO live_streams (host_id, title, stream_key) VALUES ($1, $2, $3) RETURNING `+liveColumns,
		hostID, title, streamKey)
	return s, err
}

// EndStream ends a host's live stream. Ending twice is ErrStreamNotFound.
func (r *LiveRepo) EndStream(ctx context.Context, streamID, hostID int) (models.LiveStream, error) {
	var s models.LiveStream
	err := r.db.GetContext(ctx, &s, `UPDATE live_streams SET status='ended', ended_at=NOW()
        WHERE id=$1 AND host_id=$2 AND status='live' RETURNING `+liveColumns, streamID, hostID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LiveStream{}, ErrStreamNotFound
	}
	return s, err
}

func (r *LiveRepo) GetStream(ctx context.Context, streamID int) (models.LiveStream, error) {
	var s models.LiveStream
	err := r.db.GetContext(ctx, &s, `SELECT `+liveColumns+` FROM live_streams WHERE id=$1`, streamID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LiveStream{}, ErrStreamNotFound
	}
	return s, err
}

func (r *LiveRepo) ListLive(ctx context.Context) ([]models.LiveStream, error) {
	out := []models.LiveStream{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+liveColumns+` FROM live_streams WHERE status='live' ORDER BY started_at DESC`)
	return out, err
}
