package models

import (
	"time"

	"github.com/lib/pq"
)

// ListingStatus is the sale state of a marketplace listing.
type ListingStatus string

const (
	ListingActive ListingStatus = "active"
	ListingSold   ListingStatus = "sold"
)

// ListingCondition describes item wear.
type ListingCondition string

const (
	ConditionNew     ListingCondition = "new"
	ConditionLikeNew ListingCondition = "like_new"
	ConditionGood    ListingCondition = "good"
	ConditionFair    ListingCondition = "fair"
	ConditionPoor    ListingCondition = "poor"
)

// Valid reports whether c is a known condition.
func (c ListingCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Listing is a priced marketplace item.
type Listing struct {
	ID          int              `db:"id" json:"id"`
	SellerID    int              `db:"seller_id" json:"seller_id"`
	Title       string           `db:"title" json:"title"`
	Description string           `db:"description" json:"description"`
	PriceCents  int64            `db:"price_cents" json:"price_cents"`
	Currency    string           `db:"currency" json:"currency"`
	Category    string           `db:"category" json:"category"`
	Condition   ListingCondition `db:"condition" json:"condition"`
	Images      pq.StringArray   `db:"images" json:"images"`
	Status      ListingStatus    `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// ListingUpdate carries editable listing fields; nil means unchanged.
type ListingUpdate struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	PriceCents  *int64            `json:"price_cents"`
	Category    *string           `json:"category"`
	Condition   *ListingCondition `json:"condition"`
	Images      []string          `json:"images"`
}
