package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `m.id, m.chat_id, m.sender_id, COALESCE(p.username, '') AS sender_username,
        m.kind, m.content, m.attachment_url, m.attachment_name, m.attachment_size, m.latitude, m.longitude, m.reply_to_id,
        m.edited_at, m.deleted_by_sender, m.deleted_by_receiver, m.deleted_for_all, m.created_at`

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateChatMessage(ctx context.Context, chatID int, senderID int, body models.MessageBody) (models.Message, error)
	GetChatMessagesForUser(ctx context.Context, chatID int, userID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	EditMessage(ctx context.Context, messageID int, senderID int, content string) (models.Message, error)
	SoftDeleteMessageForUser(ctx context.Context, messageID int, isSender bool) error
	DeleteMessageForAll(ctx context.Context, messageID int, userID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateChatMessage stores a message in a private chat.
func (r *MessageRepo) CreateChatMessage(ctx context.Context, chatID int, senderID int, body models.MessageBody) (models.Message, error) {
	var id int
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages
        (chat_id, sender_id, kind, content, attachment_url, attachment_name, attachment_size, latitude, longitude, reply_to_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		chatID, senderID, body.Kind, body.Content, body.AttachmentURL, body.AttachmentName, body.AttachmentSize,
		body.Latitude, body.Longitude, body.ReplyToID).Scan(&id)
	if err != nil {
		return models.Message{}, err
	}
	return r.GetMessage(ctx, id)
}

// GetChatMessagesForUser returns ordered chat messages filtered per user visibility rules.
func (r *MessageRepo) GetChatMessagesForUser(ctx context.Context, chatID int, userID int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + `
        FROM messages m
        LEFT JOIN profiles p ON p.id = m.sender_id
        WHERE m.chat_id=$1
        AND m.deleted_for_all = FALSE
        AND NOT (m.sender_id=$2 AND m.deleted_by_sender = TRUE)
        AND NOT (m.sender_id<>$2 AND m.deleted_by_receiver = TRUE)
        ORDER BY m.created_at ASC, m.id ASC`
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, query, chatID, userID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages m LEFT JOIN profiles p ON p.id = m.sender_id WHERE m.id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// EditMessage replaces the text of a sender's own message and stamps edited_at.
func (r *MessageRepo) EditMessage(ctx context.Context, messageID int, senderID int, content string) (models.Message, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET content=$3, edited_at=NOW()
        WHERE id=$1 AND sender_id=$2 AND deleted_for_all = FALSE`, messageID, senderID, content)
	if err != nil {
		return models.Message{}, err
	}
	if err := affected(res); err != nil {
		return models.Message{}, err
	}
	return r.GetMessage(ctx, messageID)
}

// SoftDeleteMessageForUser marks a message as deleted for either sender or receiver.
func (r *MessageRepo) SoftDeleteMessageForUser(ctx context.Context, messageID int, isSender bool) error {
	query := `UPDATE messages SET deleted_by_receiver = TRUE WHERE id=$1`
	if isSender {
		query = `UPDATE messages SET deleted_by_sender = TRUE WHERE id=$1`
	}
	res, err := r.db.ExecContext(ctx, query, messageID)
	if err != nil {
		return err
	}
	return affected(res)
}

// DeleteMessageForAll marks a message as deleted for everyone.
func (r *MessageRepo) DeleteMessageForAll(ctx context.Context, messageID int, userID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted_for_all = TRUE WHERE id=$1 AND sender_id=$2`, messageID, userID)
	if err != nil {
		return err
	}
	return affected(res)
}

// affected maps a zero-row update to ErrMessageNotFound.
func affected(res sql.Result) error {
	return affectedOr(res, ErrMessageNotFound)
}

func affectedOr(res sql.Result, notFound error) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return notFound
	}
	return nil
}
