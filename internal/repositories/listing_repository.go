package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"social-service/internal/models"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrInvalidSort     = errors.New("invalid sort")
)

const listingColumns = `id, seller_id, title, description, price_cents, currency, category, condition, images, status, created_at, updated_at`

// ListingSort orders marketplace results.
type ListingSort string

const (
	SortNewest    ListingSort = "newest"
	SortPriceAsc  ListingSort = "price_asc"
	SortPriceDesc ListingSort = "price_desc"
)

// ListingFilter narrows a marketplace listing query. Zero values do not
// filter.
type ListingFilter struct {
	Category  string
	Condition models.ListingCondition
	Status    models.ListingStatus
	MinPrice  *int64
	MaxPrice  *int64
	Query     string
	SellerID  int
	Sort      ListingSort
	Limit     int
	Offset    int
}

// BuildListingQuery renders f into SQL with positional arguments.
func BuildListingQuery(f ListingFilter) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Condition != "" {
		add("condition = $%d", f.Condition)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.MinPrice != nil {
		add("price_cents >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price_cents <= $%d", *f.MaxPrice)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	if f.SellerID != 0 {
		add("seller_id = $%d", f.SellerID)
	}

	var order string
	switch f.Sort {
	case SortNewest, "":
		order = "created_at DESC, id DESC"
	case SortPriceAsc:
		order = "price_cents ASC, id ASC"
	case SortPriceDesc:
		order = "price_cents DESC, id DESC"
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidSort, f.Sort)
	}

	var b strings.Builder
	b.WriteString("SELECT " + listingColumns + " FROM listings")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY " + order)

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args, nil
}

// ListingRepository stores marketplace listings.
type ListingRepository interface {
	CreateListing(ctx context.Context, l models.Listing) (models.Listing, error)
	GetListing(ctx context.Context, id int) (models.Listing, error)
	ListListings(ctx context.Context, f ListingFilter) ([]models.Listing, error)
	UpdateListing(ctx context.Context, id, sellerID int, upd models.ListingUpdate) (models.Listing, error)
	MarkSold(ctx context.Context, id, sellerID int) (models.Listing, error)
	DeleteListing(ctx context.Context, id, sellerID int) error
}

type ListingRepo struct {
	db *sqlx.DB
}

func NewListingRepo(db *sqlx.DB) *ListingRepo {
	return &ListingRepo{db: db}
}

func (r *ListingRepo) CreateListing(ctx context.Context, l models.Listing) (models.Listing, error) {
	var out models.Listing
	err := r.db.GetContext(ctx, &out, `INSERT INTO listings (seller_id, title, description, price_cents, currency, category, condition, images)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+listingColumns,
		l.SellerID, l.Title, l.Description, l.PriceCents, l.Currency, l.Category, l.Condition, pq.StringArray(l.Images))
	return out, err
}

func (r *ListingRepo) GetListing(ctx context.Context, id int) (models.Listing, error) {
	var out models.Listing
	err := r.db.GetContext(ctx, &out, `SELECT `+listingColumns+` FROM listings WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Listing{}, ErrListingNotFound
	}
	return out, err
}

func (r *ListingRepo) ListListings(ctx context.Context, f ListingFilter) ([]models.Listing, error) {
	query, args, err := BuildListingQuery(f)
	if err != nil {
		return nil, err
	}
	out := []models.Listing{}
	err = r.db.SelectContext(ctx, &out, query, args...)
	return out, err
}

// UpdateListing applies the non-nil fields of upd to a seller's listing.
func (r *ListingRepo) UpdateListing(ctx context.Context, id, sellerID int, upd models.ListingUpdate) (models.Listing, error) {
	var images interface{}
	if upd.Images != nil {
		images = pq.StringArray(upd.Images)
	}
	var out models.Listing
	err := r.db.GetContext(ctx, &out, `UPDATE listings SET
            title = COALESCE($3, title),
            description = COALESCE($4, description),
            price_cents = COALESCE($5, price_cents),
            category = COALESCE($6, category),
            condition = COALESCE($7, condition),
            images = COALESCE($8, images),
            updated_at = NOW()
        WHERE id=$1 AND seller_id=$2 RETURNING `+listingColumns,
		id, sellerID, upd.Title, upd.Description, upd.PriceCents, upd.Category, upd.Condition, images)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Listing{}, ErrListingNotFound
	}
	return out, err
}

func (r *ListingRepo) MarkSold(ctx context.Context, id, sellerID int) (models.Listing, error) {
	var out models.Listing
	err := r.db.GetContext(ctx, &out, `UPDATE listings SET status='sold', updated_at=NOW()
        WHERE id=$1 AND seller_id=$2 RETURNING `+listingColumns, id, sellerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Listing{}, ErrListingNotFound
	}
	return out, err
}

func (r *ListingRepo) DeleteListing(ctx context.Context, id, sellerID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id=$1 AND seller_id=$2`, id, sellerID)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrListingNotFound)
}
