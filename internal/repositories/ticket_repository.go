package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrTicketNotFound = errors.New("ticket not found")

const ticketColumns = `id, user_id, subject, description, status, priority, assignee_id, created_at, updated_at`

// TicketFilter narrows the admin ticket list.
type TicketFilter struct {
	Status   models.TicketStatus
	Priority models.TicketPriority
}

// TicketRepository stores support tickets.
type TicketRepository interface {
	CreateTicket(ctx context.Context, userID int, subject, description string, priority models.TicketPriority) (models.SupportTicket, error)
	ListForUser(ctx context.Context, userID int) ([]models.SupportTicket, error)
	ListAll(ctx context.Context, f TicketFilter) ([]models.SupportTicket, error)
	UpdateTicket(ctx context.Context, id int, upd models.TicketUpdate) (models.SupportTicket, error)
}

type TicketRepo struct {
	db *sqlx.DB
}

func NewTicketRepo(db *sqlx.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

func (r *TicketRepo) CreateTicket(ctx context.Context, userID int, subject, description string, priority models.TicketPriority) (models.SupportTicket, error) {
	var t models.SupportTicket
	err := r.db.GetContext(ctx, &t, `INSERT INTO support_tickets (user_id, subject, description, priority) VALUES ($1, $2, $3, $4)
        RETURNING `+ticketColumns, userID, subject, description, priority)
	return t, err
}

func (r *TicketRepo) ListForUser(ctx context.Context, userID int) ([]models.SupportTicket, error) {
	out := []models.SupportTicket{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+ticketColumns+` FROM support_tickets WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	return out, err
}

func (r *TicketRepo) ListAll(ctx context.Context, f TicketFilter) ([]models.SupportTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM support_tickets WHERE TRUE`
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`

	out := []models.SupportTicket{}
	err := r.db.SelectContext(ctx, &out, query, args...)
	return out, err
}

// UpdateTicket applies the non-nil fields. Concurrent updates are last
// write wins.
func (r *TicketRepo) UpdateTicket(ctx context.Context, id int, upd models.TicketUpdate) (models.SupportTicket, error) {
	var t models.SupportTicket
	err := r.db.GetContext(ctx, &t, `UPDATE support_tickets SET
            status = COALESCE($2, status),
            priority = COALESCE($3, priority),
            assignee_id = COALESCE($4, assignee_id),
            updated_at = NOW()
        WHERE id=$1 RETURNING `+ticketColumns, id, upd.Status, upd.Priority, upd.AssigneeID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SupportTicket{}, ErrTicketNotFound
	}
	return t, err
}
