package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrNotMember     = errors.New("not a member")
	ErrAlreadyMember = errors.New("already a member")
)

// GroupRepository abstracts group persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, ownerID int, name, description string, memberIDs []int) (models.Group, error)
	ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error)
	IsMember(ctx context.Context, groupID int, userID int) (bool, error)
	GetGroup(ctx context.Context, groupID int) (models.Group, error)
	MemberRole(ctx context.Context, groupID int, userID int) (models.GroupRole, error)
	ListMembers(ctx context.Context, groupID int) ([]models.GroupMemberRecord, error)
	AddMember(ctx context.Context, groupID int, userID int, role models.GroupRole) error
	RemoveMember(ctx context.Context, groupID int, userID int) error
	ChangeRole(ctx context.Context, groupID int, userID int, role models.GroupRole) error
	UpdateSettings(ctx context.Context, groupID int, settings models.GroupSettings) (models.Group, error)
	Dissolve(ctx context.Context, groupID int) error
	Leave(ctx context.Context, groupID int, userID int) (dissolved bool, err error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

const groupColumns = `g.id, g.name, g.description, g.avatar_url, g.owner_id, g.created_at, g.updated_at`

// CreateGroup creates a group and its members atomically. The owner joins
// as admin, everyone else as member.
func (r *GroupRepo) CreateGroup(ctx context.Context, ownerID int, name, description string, memberIDs []int) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	if err = tx.GetContext(ctx, &group, `INSERT INTO groups (name, description, owner_id) VALUES ($1, $2, $3)
        RETURNING id, name, description, avatar_url, owner_id, created_at, updated_at`, name, description, ownerID); err != nil {
		return models.Group{}, err
	}

	// ensure owner present and dedupe members
	memberSet := map[int]struct{}{ownerID: {}}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	ids := make([]int, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		role := models.GroupMember
		if id == ownerID {
			role = models.GroupAdmin
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)`, group.ID, id, role); err != nil {
			return models.Group{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// ListGroupsForUser returns groups that include the user.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	groups := []models.Group{}
	err := r.db.SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM groups g INNER JOIN group_members gm ON gm.group_id = g.id WHERE gm.user_id=$1 ORDER BY g.created_at DESC`, userID)
	return groups, err
}

// IsMember checks membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM groups g WHERE g.id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// MemberRole returns the role of userID, or ErrNotMember.
func (r *GroupRepo) MemberRole(ctx context.Context, groupID int, userID int) (models.GroupRole, error) {
	var role models.GroupRole
	err := r.db.GetContext(ctx, &role, `SELECT role FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotMember
	}
	return role, err
}

// ListMembers returns memberships in join order.
func (r *GroupRepo) ListMembers(ctx context.Context, groupID int) ([]models.GroupMemberRecord, error) {
	members := []models.GroupMemberRecord{}
	err := r.db.SelectContext(ctx, &members, `SELECT group_id, user_id, role, joined_at FROM group_members WHERE group_id=$1 ORDER BY joined_at ASC, user_id ASC`, groupID)
	return members, err
}

// AddMember inserts a membership.
func (r *GroupRepo) AddMember(ctx context.Context, groupID int, userID int, role models.GroupRole) error {
	if !role.Valid() {
		return models.ErrInvalidRole
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)
        ON CONFLICT (group_id, user_id) DO NOTHING`, groupID, userID, role)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrAlreadyMember)
}

// RemoveMember deletes a membership.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID int, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrNotMember)
}

// ChangeRole sets the role of an existing member.
func (r *GroupRepo) ChangeRole(ctx context.Context, groupID int, userID int, role models.GroupRole) error {
	if !role.Valid() {
		return models.ErrInvalidRole
	}
	res, err := r.db.ExecContext(ctx, `UPDATE group_members SET role=$3 WHERE group_id=$1 AND user_id=$2`, groupID, userID, role)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrNotMember)
}

// UpdateSettings applies the non-nil fields of settings.
func (r *GroupRepo) UpdateSettings(ctx context.Context, groupID int, settings models.GroupSettings) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `UPDATE groups SET
            name = COALESCE($2, name),
            description = COALESCE($3, description),
            avatar_url = COALESCE($4, avatar_url),
            updated_at = NOW()
        WHERE id=$1
        RETURNING id, name, description, avatar_url, owner_id, created_at, updated_at`,
		groupID, settings.Name, settings.Description, settings.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// Dissolve deletes the group with its members and messages.
func (r *GroupRepo) Dissolve(ctx context.Context, groupID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id=$1`, groupID)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrGroupNotFound)
}

// Leave removes userID. When no admin is left the longest-standing member
// is promoted; when nobody is left the group is dissolved.
func (r *GroupRepo) Leave(ctx context.Context, groupID int, userID int) (dissolved bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if err != nil {
		return false, err
	}
	if err = affectedOr(res, ErrNotMember); err != nil {
		return false, err
	}

	var remaining, admins int
	if err = tx.QueryRowxContext(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE role='admin') FROM group_members WHERE group_id=$1`, groupID).
		Scan(&remaining, &admins); err != nil {
		return false, err
	}

	switch {
	case remaining == 0:
		if _, err = tx.ExecContext(ctx, `DELETE FROM groups WHERE id=$1`, groupID); err != nil {
			return false, err
		}
		dissolved = true
	case admins == 0:
		if _, err = tx.ExecContext(ctx, `UPDATE group_members SET role='admin'
            WHERE group_id=$1 AND user_id = (
                SELECT user_id FROM group_members WHERE group_id=$1 ORDER BY joined_at ASC, user_id ASC LIMIT 1
            )`, groupID); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return dissolved, nil
}
