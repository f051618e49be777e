package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

// VendorRepository defines persistence operations for vendor accounts.
type VendorRepository interface {
	Create(ctx context.Context, vendor *domain.Vendor) error
	FindByID(ctx context.Context, id int64) (*domain.Vendor, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.Vendor, error)
	UpdateStatus(ctx context.Context, id int64, status domain.VendorStatus) error
	ListPending(ctx context.Context) ([]*domain.Vendor, error)
}

type vendorRepository struct {
	db  DBTX
	log *slog.Logger
}

// NewVendorRepository creates a SQL-backed vendor repository.
func NewVendorRepository(db DBTX, log *slog.Logger) VendorRepository {
	return &vendorRepository{db: db, log: log}
}

const vendorColumns = "id, telegram_id, name, contact_phone, status, created_at"

// Create persists a new vendor and fills in its generated identifier.
func (r *vendorRepository) Create(ctx context.Context, vendor *domain.Vendor) error {
	const query = `
		INSERT INTO vendors (telegram_id, name, contact_phone, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		vendor.TelegramID,
		vendor.Name,
		vendor.ContactPhone,
		vendor.Status,
		vendor.CreatedAt,
	).Scan(&vendor.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create vendor", slog.Int64("telegram_id", vendor.TelegramID), slog.Any("error", err))
		}
		return fmt.Errorf("insert vendor: %w", err)
	}

	return nil
}

func (r *vendorRepository) FindByID(ctx context.Context, id int64) (*domain.Vendor, error) {
	const query = `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`

	return r.scanVendor(r.db.QueryRowContext(ctx, query, id))
}

// FindByTelegramID retrieves a vendor by its Telegram identifier, returning
// sql.ErrNoRows when absent.
func (r *vendorRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.Vendor, error) {
	const query = `SELECT ` + vendorColumns + ` FROM vendors WHERE telegram_id = $1`

	return r.scanVendor(r.db.QueryRowContext(ctx, query, telegramID))
}

func (r *vendorRepository) UpdateStatus(ctx context.Context, id int64, status domain.VendorStatus) error {
	const query = `UPDATE vendors SET status = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		if r.log != nil {
			r.log.Error("failed to update vendor status", slog.Int64("vendor_id", id), slog.Any("error", err))
		}
		return fmt.Errorf("update vendor status: %w", err)
	}

	return nil
}

func (r *vendorRepository) ListPending(ctx context.Context) ([]*domain.Vendor, error) {
	const query = `SELECT ` + vendorColumns + ` FROM vendors WHERE status = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, domain.VendorPending)
	if err != nil {
		return nil, fmt.Errorf("select pending vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*domain.Vendor
	for rows.Next() {
		var v domain.Vendor
		if err := rows.Scan(&v.ID, &v.TelegramID, &v.Name, &v.ContactPhone, &v.Status, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, &v)
	}

	return vendors, rows.Err()
}

func (r *vendorRepository) scanVendor(row *sql.Row) (*domain.Vendor, error) {
	var v domain.Vendor
	if err := row.Scan(&v.ID, &v.TelegramID, &v.Name, &v.ContactPhone, &v.Status, &v.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select vendor: %w", err)
	}

	return &v, nil
}
