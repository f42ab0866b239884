package models

import "time"

// TicketStatus is the workflow state of a support ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// TicketPriority is the urgency of a support ticket.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// SupportTicket is a user-filed support request.
type SupportTicket struct {
	ID          int            `db:"id" json:"id"`
	UserID      int            `db:"user_id" json:"user_id"`
	Subject     string         `db:"subject" json:"subject"`
	Description string         `db:"description" json:"description"`
	Status      TicketStatus   `db:"status" json:"status"`
	Priority    TicketPriority `db:"priority" json:"priority"`
	AssigneeID  *int           `db:"assignee_id" json:"assignee_id,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// TicketUpdate carries admin-editable ticket fields; nil means unchanged.
type TicketUpdate struct {
	Status     *TicketStatus   `json:"status"`
	Priority   *TicketPriority `json:"priority"`
	AssigneeID *int            `json:"assignee_id"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	Profiles       int `db:"profiles" json:"profiles"`
	Messages       int `db:"messages" json:"messages"`
	ActiveStories  int `db:"active_stories" json:"active_stories"`
	Reels          int `db:"reels" json:"reels"`
	ActiveListings int `db:"active_listings" json:"active_listings"`
	OpenTickets    int `db:"open_tickets" json:"open_tickets"`
	LiveStreams    int `db:"live_streams" json:"live_streams"`
}
