package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/internal/models"
	"social-service/internal/repositories"
	"social-service/internal/telemetry"
)

// SupportNotifier tells support staff about a new ticket.
type SupportNotifier interface {
	SendSupportEmail(ctx context.Context, ticket models.SupportTicket) (string, error)
}

// TicketHandler serves support tickets for users and admins.
type TicketHandler struct {
	repo     repositories.TicketRepository
	notifier SupportNotifier
	audit    *telemetry.AuditEmitter
}

func NewTicketHandler(repo repositories.TicketRepository, notifier SupportNotifier, audit *telemetry.AuditEmitter) *TicketHandler {
	return &TicketHandler{repo: repo, notifier: notifier, audit: audit}
}

// CreateTicket handles POST /support/tickets. The ticket is kept even when
// the notification cannot be queued.
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	var req struct {
		Subject     string                `json:"subject" binding:"required"`
		Description string                `json:"description" binding:"required"`
		Priority    models.TicketPriority `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !req.Priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}

	ticket, err := h.repo.CreateTicket(c.Request.Context(), c.GetInt("userID"), req.Subject, req.Description, req.Priority)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create ticket"})
		return
	}

	queued := false
	if h.notifier != nil {
		if _, err := h.notifier.SendSupportEmail(c.Request.Context(), ticket); err != nil {
			zap.L().Warn("support_email_failed", zap.Int("ticket_id", ticket.ID), zap.Error(err))
		} else {
			queued = true
		}
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": ticket, "notified": queued})
}

// ListMine handles GET /support/tickets.
func (h *TicketHandler) ListMine(c *gin.Context) {
	tickets, err := h.repo.ListForUser(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tickets"})
		return
	}
	if tickets == nil {
		tickets = []models.SupportTicket{}
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// ListAll handles GET /admin/tickets?status=&priority=.
func (h *TicketHandler) ListAll(c *gin.Context) {
	f := repositories.TicketFilter{
		Status:   models.TicketStatus(c.Query("status")),
		Priority: models.TicketPriority(c.Query("priority")),
	}
	if f.Status != "" && !f.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if f.Priority != "" && !f.Priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}

	tickets, err := h.repo.ListAll(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tickets"})
		return
	}
	if tickets == nil {
		tickets = []models.SupportTicket{}
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// UpdateTicket handles PATCH /admin/tickets/:ticket_id. Concurrent edits
// are last write wins.
func (h *TicketHandler) UpdateTicket(c *gin.Context) {
	ticketID, ok := intParam(c, "ticket_id", "ticket")
	if !ok {
		return
	}
	var upd models.TicketUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if upd.Status != nil && !upd.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if upd.Priority != nil && !upd.Priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}

	ticket, err := h.repo.UpdateTicket(c.Request.Context(), ticketID, upd)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrTicketNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not update ticket"})
		return
	}
	auditAction(c, h.audit, "ticket_updated", map[string]any{"ticket_id": ticketID, "status": string(ticket.Status), "priority": string(ticket.Priority)})
	c.JSON(http.StatusOK, ticket)
}
