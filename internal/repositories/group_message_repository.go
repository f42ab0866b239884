package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

const groupMessageColumns = `m.id, m.group_id, m.sender_id, COALESCE(p.username, '') AS sender_username,
        m.kind, m.content, m.attachment_url, m.attachment_name, m.attachment_size, m.latitude, m.longitude, m.reply_to_id,
        m.edited_at, m.deleted_for_all, m.created_at`

// GroupMessageRepository defines interactions for group messages.
type GroupMessageRepository interface {
	CreateGroupMessage(ctx context.Context, groupID int, senderID int, body models.MessageBody) (models.GroupMessage, error)
	ListGroupMessages(ctx context.Context, groupID int) ([]models.GroupMessage, error)
	GetGroupMessage(ctx context.Context, messageID int) (models.GroupMessage, error)
	EditGroupMessage(ctx context.Context, messageID int, senderID int, content string) (models.GroupMessage, error)
	DeleteForAll(ctx context.Context, messageID int, senderID int) error
}

// GroupMessageRepo is a sqlx-backed implementation.
type GroupMessageRepo struct {
	db *sqlx.DB
}

// NewGroupMessageRepo constructs a GroupMessageRepo.
func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

// CreateGroupMessage persists a group message.
func (r *GroupMessageRepo) CreateGroupMessage(ctx context.Context, groupID int, senderID int, body models.MessageBody) (models.GroupMessage, error) {
	var id int
	err := r.db.QueryRowxContext(ctx, `INSERT INTO group_messages
        (group_id, sender_id, kind, content, attachment_url, attachment_name, attachment_size, latitude, longitude, reply_to_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		groupID, senderID, body.Kind, body.Content, body.AttachmentURL, body.AttachmentName, body.AttachmentSize,
		body.Latitude, body.Longitude, body.ReplyToID).Scan(&id)
	if err != nil {
		return models.GroupMessage{}, err
	}
	return r.GetGroupMessage(ctx, id)
}

// ListGroupMessages returns messages ordered by creation, excluding deleted_for_all.
func (r *GroupMessageRepo) ListGroupMessages(ctx context.Context, groupID int) ([]models.GroupMessage, error) {
	msgs := []models.GroupMessage{}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+groupMessageColumns+` FROM group_messages m
        LEFT JOIN profiles p ON p.id = m.sender_id
        WHERE m.group_id=$1 AND m.deleted_for_all = FALSE ORDER BY m.created_at ASC, m.id ASC`, groupID)
	return msgs, err
}

// GetGroupMessage fetches a single message.
func (r *GroupMessageRepo) GetGroupMessage(ctx context.Context, messageID int) (models.GroupMessage, error) {
	var msg models.GroupMessage
	err := r.db.GetContext(ctx, &msg, `SELECT `+groupMessageColumns+` FROM group_messages m LEFT JOIN profiles p ON p.id = m.sender_id WHERE m.id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupMessage{}, ErrMessageNotFound
	}
	return msg, err
}

// EditGroupMessage replaces the text of a sender's own message.
func (r *GroupMessageRepo) EditGroupMessage(ctx context.Context, messageID int, senderID int, content string) (models.GroupMessage, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE group_messages SET content=$3, edited_at=NOW()
        WHERE id=$1 AND sender_id=$2 AND deleted_for_all = FALSE`, messageID, senderID, content)
	if err != nil {
		return models.GroupMessage{}, err
	}
	if err := affected(res); err != nil {
		return models.GroupMessage{}, err
	}
	return r.GetGroupMessage(ctx, messageID)
}

// DeleteForAll marks a message deleted for everyone (sender only).
func (r *GroupMessageRepo) DeleteForAll(ctx context.Context, messageID int, senderID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE group_messages SET deleted_for_all = TRUE WHERE id=$1 AND sender_id=$2`, messageID, senderID)
	if err != nil {
		return err
	}
	return affected(res)
}
