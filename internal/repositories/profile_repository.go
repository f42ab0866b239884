package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"social-service/internal/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username taken")
)

const profileColumns = `id, username, display_name, avatar_url, banner_url, role, created_at`

// ProfileRepository stores user profiles.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, username, displayName, role string) (models.Profile, error)
	GetProfile(ctx context.Context, userID int) (models.Profile, error)
	GetByUsername(ctx context.Context, username string) (models.Profile, error)
	UpdateProfile(ctx context.Context, userID int, upd models.ProfileUpdate) (models.Profile, error)
	Usernames(ctx context.Context, ids []int) (map[int]string, error)
}

type ProfileRepo struct {
	db *sqlx.DB
}

func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

func (r *ProfileRepo) CreateProfile(ctx context.Context, username, displayName, role string) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `INSERT INTO profiles (username, display_name, role) VALUES ($1, $2, $3)
        RETURNING `+profileColumns, username, displayName, role)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return models.Profile{}, ErrUsernameTaken
	}
	return p, err
}

func (r *ProfileRepo) GetProfile(ctx context.Context, userID int) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

func (r *ProfileRepo) GetByUsername(ctx context.Context, username string) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM profiles WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// UpdateProfile applies the non-nil fields of upd.
func (r *ProfileRepo) UpdateProfile(ctx context.Context, userID int, upd models.ProfileUpdate) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `UPDATE profiles SET
            display_name = COALESCE($2, display_name),
            avatar_url = COALESCE($3, avatar_url),
            banner_url = COALESCE($4, banner_url)
        WHERE id=$1 RETURNING `+profileColumns, userID, upd.DisplayName, upd.AvatarURL, upd.BannerURL)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// Usernames resolves ids to usernames; unknown ids are absent.
func (r *ProfileRepo) Usernames(ctx context.Context, ids []int) (map[int]string, error) {
	out := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryxContext(ctx, `SELECT id, username FROM profiles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}
