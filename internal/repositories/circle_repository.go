package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var (
	ErrCircleNotFound = errors.New("circle not found")
	ErrPostNotFound   = errors.New("post not found")
)

const circleMemberColumns = `circle_id, user_id, role, can_post, can_invite, can_manage_posts, can_start_calls, joined_at`

// CircleRepository stores circles, their members and posts.
type CircleRepository interface {
	CreateCircle(ctx context.Context, ownerID int, name, description string, imageURL *string) (models.Circle, error)
	GetCircle(ctx context.Context, circleID int) (models.Circle, error)
	ListCirclesForUser(ctx context.Context, userID int) ([]models.Circle, error)
	GetMember(ctx context.Context, circleID, userID int) (models.CircleMember, error)
	ListMembers(ctx context.Context, circleID int) ([]models.CircleMember, error)
	AddMember(ctx context.Context, circleID, userID int, role models.CircleRole) (models.CircleMember, error)
	UpdatePermissions(ctx context.Context, circleID, userID int, role models.CircleRole, perms models.CirclePermissions) (models.CircleMember, error)
	RemoveMember(ctx context.Context, circleID, userID int) error
	CreatePost(ctx context.Context, circleID, authorID int, content string, mediaURL *string) (models.CirclePost, error)
	ListPosts(ctx context.Context, circleID int) ([]models.CirclePost, error)
	GetPost(ctx context.Context, postID int) (models.CirclePost, error)
	DeletePost(ctx context.Context, postID int) error
}

type CircleRepo struct {
	db *sqlx.DB
}

func NewCircleRepo(db *sqlx.DB) *CircleRepo {
	return &CircleRepo{db: db}
}

// CreateCircle creates the circle with its creator as owner.
func (r *CircleRepo) CreateCircle(ctx context.Context, ownerID int, name, description string, imageURL *string) (models.Circle, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Circle{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var circle models.Circle
	if err = tx.GetContext(ctx, &circle, `INSERT INTO circles (name, description, image_url, owner_id) VALUES ($1, $2, $3, $4)
        RETURNING id, name, description, image_url, owner_id, created_at`, name, description, imageURL, ownerID); err != nil {
		return models.Circle{}, err
	}
	perms := models.DefaultCirclePermissions(models.CircleOwner)
	if _, err = tx.ExecContext(ctx, `INSERT INTO circle_members (circle_id, user_id, role, can_post, can_invite, can_manage_posts, can_start_calls)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`, circle.ID, ownerID, models.CircleOwner,
		perms.CanPost, perms.CanInvite, perms.CanManagePosts, perms.CanStartCalls); err != nil {
		return models.Circle{}, err
	}
	if err = tx.Commit(); err != nil {
		return models.Circle{}, err
	}
	return circle, nil
}

func (r *CircleRepo) GetCircle(ctx context.Context, circleID int) (models.Circle, error) {
	var c models.Circle
	err := r.db.GetContext(ctx, &c, `SELECT id, name, description, image_url, owner_id, created_at FROM circles WHERE id=$1`, circleID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Circle{}, ErrCircleNotFound
	}
	return c, err
}

func (r *CircleRepo) ListCirclesForUser(ctx context.Context, userID int) ([]models.Circle, error) {
	out := []models.Circle{}
	err := r.db.SelectContext(ctx, &out, `SELECT c.id, c.name, c.description, c.image_url, c.owner_id, c.created_at
        FROM circles c INNER JOIN circle_members cm ON cm.circle_id = c.id
        WHERE cm.user_id=$1 ORDER BY c.created_at DESC`, userID)
	return out, err
}

func (r *CircleRepo) GetMember(ctx context.Context, circleID, userID int) (models.CircleMember, error) {
	var m models.CircleMember
	err := r.db.GetContext(ctx, &m, `SELECT `+circleMemberColumns+` FROM circle_members WHERE circle_id=$1 AND user_id=$2`, circleID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CircleMember{}, ErrNotMember
	}
	return m, err
}

func (r *CircleRepo) ListMembers(ctx context.Context, circleID int) ([]models.CircleMember, error) {
	out := []models.CircleMember{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+circleMemberColumns+` FROM circle_members WHERE circle_id=$1 ORDER BY joined_at ASC`, circleID)
	return out, err
}

// AddMember invites userID with the defaults of role.
func (r *CircleRepo) AddMember(ctx context.Context, circleID, userID int, role models.CircleRole) (models.CircleMember, error) {
	perms := models.DefaultCirclePermissions(role)
	var m models.CircleMember
	err := r.db.GetContext(ctx, &m, `INSERT INTO circle_members (circle_id, user_id, role, can_post, can_invite, can_manage_posts, can_start_calls)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (circle_id, user_id) DO NOTHING
        RETURNING `+circleMemberColumns, circleID, userID, role, perms.CanPost, perms.CanInvite, perms.CanManagePosts, perms.CanStartCalls)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CircleMember{}, ErrAlreadyMember
	}
	return m, err
}

func (r *CircleRepo) UpdatePermissions(ctx context.Context, circleID, userID int, role models.CircleRole, perms models.CirclePermissions) (models.CircleMember, error) {
	var m models.CircleMember
	err := r.db.GetContext(ctx, &m, `UPDATE circle_members SET role=$3, can_post=$4, can_invite=$5, can_manage_posts=$6, can_start_calls=$7
        WHERE circle_id=$1 AND user_id=$2 RETURNING `+circleMemberColumns,
		circleID, userID, role, perms.CanPost, perms.CanInvite, perms.CanManagePosts, perms.CanStartCalls)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CircleMember{}, ErrNotMember
	}
	return m, err
}

func (r *CircleRepo) RemoveMember(ctx context.Context, circleID, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM circle_members WHERE circle_id=$1 AND user_id=$2`, circleID, userID)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrNotMember)
}

func (r *CircleRepo) CreatePost(ctx context.Context, circleID, authorID int, content string, mediaURL *string) (models.CirclePost, error) {
	var p models.CirclePost
	err := r.db.GetContext(ctx, &p, `INSERT INTO circle_posts (circle_id, author_id, content, media_url) VALUES ($1, $2, $3, $4)
        RETURNING id, circle_id, author_id, content, media_url, created_at`, circleID, authorID, content, mediaURL)
	return p, err
}

func (r *CircleRepo) ListPosts(ctx context.Context, circleID int) ([]models.CirclePost, error) {
	out := []models.CirclePost{}
	err := r.db.SelectContext(ctx, &out, `SELECT id, circle_id, author_id, content, media_url, created_at
        FROM circle_posts WHERE circle_id=$1 ORDER BY created_at DESC, id DESC`, circleID)
	return out, err
}

func (r *CircleRepo) GetPost(ctx context.Context, postID int) (models.CirclePost, error) {
	var p models.CirclePost
	err := r.db.GetContext(ctx, &p, `SELECT id, circle_id, author_id, content, media_url, created_at FROM circle_posts WHERE id=$1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CirclePost{}, ErrPostNotFound
	}
	return p, err
}

func (r *CircleRepo) DeletePost(ctx context.Context, postID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM circle_posts WHERE id=$1`, postID)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrPostNotFound)
}
