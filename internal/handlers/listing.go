package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"social-service/internal/models"
	"social-service/internal/repositories"
)

// ListingHandler serves the marketplace.
type ListingHandler struct {
	repo repositories.ListingRepository
}

func NewListingHandler(repo repositories.ListingRepository) *ListingHandler {
	return &ListingHandler{repo: repo}
}

// CreateListing handles POST /listings.
func (h *ListingHandler) CreateListing(c *gin.Context) {
	var req struct {
		Title       string                  `json:"title" binding:"required"`
		Description string                  `json:"description"`
		PriceCents  int64                   `json:"price_cents"`
		Currency    string                  `json:"currency"`
		Category    string                  `json:"category" binding:"required"`
		Condition   models.ListingCondition `json:"condition" binding:"required"`
		Images      []string                `json:"images"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PriceCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price cannot be negative"})
		return
	}
	if !req.Condition.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid condition"})
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	listing, err := h.repo.CreateListing(c.Request.Context(), models.Listing{
		SellerID:    c.GetInt("userID"),
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    strings.ToUpper(req.Currency),
		Category:    req.Category,
		Condition:   req.Condition,
		Images:      req.Images,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create listing"})
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// ListListings handles GET /listings. Without a status filter only active
// listings are returned; status=all disables the filter.
func (h *ListingHandler) ListListings(c *gin.Context) {
	f, err := listingFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listings, err := h.repo.ListListings(c.Request.Context(), f)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidSort) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load listings"})
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// GetListing handles GET /listings/:listing_id.
func (h *ListingHandler) GetListing(c *gin.Context) {
	id, ok := intParam(c, "listing_id", "listing")
	if !ok {
		return
	}
	listing, err := h.repo.GetListing(c.Request.Context(), id)
	if err != nil {
		h.repoError(c, err, "listing not found")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// UpdateListing handles PATCH /listings/:listing_id (seller only).
func (h *ListingHandler) UpdateListing(c *gin.Context) {
	id, ok := intParam(c, "listing_id", "listing")
	if !ok {
		return
	}
	var upd models.ListingUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if upd.PriceCents != nil && *upd.PriceCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price cannot be negative"})
		return
	}
	if upd.Condition != nil && !upd.Condition.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid condition"})
		return
	}

	listing, err := h.repo.UpdateListing(c.Request.Context(), id, c.GetInt("userID"), upd)
	if err != nil {
		h.repoError(c, err, "could not update listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// MarkSold handles POST /listings/:listing_id/sold.
func (h *ListingHandler) MarkSold(c *gin.Context) {
	id, ok := intParam(c, "listing_id", "listing")
	if !ok {
		return
	}
	listing, err := h.repo.MarkSold(c.Request.Context(), id, c.GetInt("userID"))
	if err != nil {
		h.repoError(c, err, "could not mark listing sold")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// DeleteListing handles DELETE /listings/:listing_id.
func (h *ListingHandler) DeleteListing(c *gin.Context) {
	id, ok := intParam(c, "listing_id", "listing")
	if !ok {
		return
	}
	if err := h.repo.DeleteListing(c.Request.Context(), id, c.GetInt("userID")); err != nil {
		h.repoError(c, err, "could not delete listing")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ListingHandler) repoError(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	if errors.Is(err, repositories.ErrListingNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": msg})
}

func listingFilterFromQuery(c *gin.Context) (repositories.ListingFilter, error) {
	f := repositories.ListingFilter{
		Category: c.Query("category"),
		Query:    strings.TrimSpace(c.Query("q")),
		Sort:     repositories.ListingSort(c.Query("sort")),
		Limit:    queryInt(c, "limit", 0),
		Offset:   queryInt(c, "offset", 0),
		SellerID: queryInt(c, "seller_id", 0),
	}

	if cond := c.Query("condition"); cond != "" {
		f.Condition = models.ListingCondition(cond)
		if !f.Condition.Valid() {
			return f, errors.New("invalid condition")
		}
	}

	switch status := c.Query("status"); status {
	case "":
		f.Status = models.ListingActive
	case "all":
	case string(models.ListingActive), string(models.ListingSold):
		f.Status = models.ListingStatus(status)
	default:
		return f, errors.New("invalid status")
	}

	var err error
	if f.MinPrice, err = priceParam(c, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = priceParam(c, "max_price"); err != nil {
		return f, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, errors.New("min_price exceeds max_price")
	}
	return f, nil
}

func priceParam(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, errors.New("invalid " + name)
	}
	return &v, nil
}
