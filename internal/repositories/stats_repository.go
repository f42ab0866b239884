package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

// StatsRepository computes the admin dashboard counters.
type StatsRepository interface {
	Dashboard(ctx context.Context, now time.Time) (models.DashboardStats, error)
}

type StatsRepo struct {
	db *sqlx.DB
}

func NewStatsRepo(db *sqlx.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) Dashboard(ctx context.Context, now time.Time) (models.DashboardStats, error) {
	var s models.DashboardStats
	err := r.db.GetContext(ctx, &s, `SELECT
            (SELECT COUNT(*) FROM profiles) AS profiles,
            (SELECT COUNT(*) FROM messages WHERE deleted_for_all = FALSE)
                + (SELECT COUNT(*) FROM group_messages WHERE deleted_for_all = FALSE) AS messages,
            (SELECT COUNT(*) FROM stories WHERE expires_at > $1) AS active_stories,
            (SELECT COUNT(*) FROM reels) AS reels,
            (SELECT COUNT(*) FROM listings WHERE status = 'active') AS active_listings,
            (SELECT COUNT(*) FROM support_tickets WHERE status IN ('open', 'in_progress')) AS open_tickets,
            (SELECT COUNT(*) FROM live_streams WHERE status = 'live') AS live_streams`, now)
	return s, err
}
