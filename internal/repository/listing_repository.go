package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

// ListingRepository defines persistence operations for meal listings.
type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	FindByID(ctx context.Context, id int64) (*domain.Listing, error)
	// FindByIDForUpdate locks the listing row for the duration of the
	// enclosing transaction. Callers must run it through WithinTx.
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Listing, error)
	ListAvailable(ctx context.Context, now time.Time) ([]*domain.Listing, error)
	ListByVendor(ctx context.Context, vendorID int64) ([]*domain.Listing, error)
	DecrementQuantity(ctx context.Context, id int64, by int) error
	RestockQuantity(ctx context.Context, id int64, by int) error
	Deactivate(ctx context.Context, id int64) error
	// DeactivateExpired flips active to false for every listing whose pickup
	// window has elapsed and returns the number of rows touched.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type listingRepository struct {
	db  DBTX
	log *slog.Logger
}

func NewListingRepository(db DBTX, log *slog.Logger) ListingRepository {
	return &listingRepository{db: db, log: log}
}

const listingColumns = `id, vendor_id, name, description, price, remaining_quantity,
		pickup_start, pickup_end, address, latitude, longitude, active, created_at`

func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	const query = `
		INSERT INTO listings (vendor_id, name, description, price, remaining_quantity,
			pickup_start, pickup_end, address, latitude, longitude, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		listing.VendorID,
		listing.Name,
		listing.Description,
		listing.Price,
		listing.RemainingQuantity,
		listing.PickupStart,
		listing.PickupEnd,
		listing.Address,
		listing.Latitude,
		listing.Longitude,
		listing.Active,
		listing.CreatedAt,
	).Scan(&listing.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create listing", slog.Int64("vendor_id", listing.VendorID), slog.Any("error", err))
		}
		return fmt.Errorf("insert listing: %w", err)
	}

	return nil
}

func (r *listingRepository) FindByID(ctx context.Context, id int64) (*domain.Listing, error) {
	const query = `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	return scanListing(r.db.QueryRowContext(ctx, query, id))
}

func (r *listingRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Listing, error) {
	const query = `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 FOR UPDATE`

	return scanListing(r.db.QueryRowContext(ctx, query, id))
}

// ListAvailable returns purchasable listings, newest first. The predicate
// mirrors domain.Listing.Purchasable evaluated against the supplied now.
func (r *listingRepository) ListAvailable(ctx context.Context, now time.Time) ([]*domain.Listing, error) {
	const query = `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE active = TRUE AND remaining_quantity > 0 AND pickup_end > $1
		ORDER BY created_at DESC, id DESC
	`

	return r.queryListings(ctx, query, now)
}

func (r *listingRepository) ListByVendor(ctx context.Context, vendorID int64) ([]*domain.Listing, error) {
	const query = `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE vendor_id = $1
		ORDER BY created_at DESC, id DESC
	`

	return r.queryListings(ctx, query, vendorID)
}

func (r *listingRepository) DecrementQuantity(ctx context.Context, id int64, by int) error {
	const query = `
		UPDATE listings
		SET remaining_quantity = remaining_quantity - $2
		WHERE id = $1 AND remaining_quantity >= $2
	`

	res, err := r.db.ExecContext(ctx, query, id, by)
	if err != nil {
		return fmt.Errorf("decrement listing quantity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement listing quantity: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *listingRepository) RestockQuantity(ctx context.Context, id int64, by int) error {
	const query = `UPDATE listings SET remaining_quantity = remaining_quantity + $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, by); err != nil {
		return fmt.Errorf("restock listing quantity: %w", err)
	}

	return nil
}

func (r *listingRepository) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE listings SET active = FALSE WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate listing: %w", err)
	}

	return nil
}

func (r *listingRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE listings SET active = FALSE WHERE active = TRUE AND pickup_end <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired listings: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate expired listings: %w", err)
	}

	return affected, nil
}

func (r *listingRepository) queryListings(ctx context.Context, query string, args ...any) ([]*domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select listings: %w", err)
	}
	defer rows.Close()

	var listings []*domain.Listing
	for rows.Next() {
		var l domain.Listing
		if err := rows.Scan(
			&l.ID,
			&l.VendorID,
			&l.Name,
			&l.Description,
			&l.Price,
			&l.RemainingQuantity,
			&l.PickupStart,
			&l.PickupEnd,
			&l.Address,
			&l.Latitude,
			&l.Longitude,
			&l.Active,
			&l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, &l)
	}

	return listings, rows.Err()
}

func scanListing(row *sql.Row) (*domain.Listing, error) {
	var l domain.Listing
	if err := row.Scan(
		&l.ID,
		&l.VendorID,
		&l.Name,
		&l.Description,
		&l.Price,
		&l.RemainingQuantity,
		&l.PickupStart,
		&l.PickupEnd,
		&l.Address,
		&l.Latitude,
		&l.Longitude,
		&l.Active,
		&l.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select listing: %w", err)
	}

	return &l, nil
}
