package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

// ConsumerRepository defines persistence operations for consumers.
type ConsumerRepository interface {
	Create(ctx context.Context, consumer *domain.Consumer) error
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.Consumer, error)
	FindByID(ctx context.Context, id int64) (*domain.Consumer, error)
}

type consumerRepository struct {
	db  DBTX
	log *slog.Logger
}

func NewConsumerRepository(db DBTX, log *slog.Logger) ConsumerRepository {
	return &consumerRepository{db: db, log: log}
}

func (r *consumerRepository) Create(ctx context.Context, consumer *domain.Consumer) error {
	const query = `
		INSERT INTO consumers (telegram_id, created_at)
		VALUES ($1, $2)
		RETURNING id
	`

	if err := r.db.QueryRowContext(ctx, query, consumer.TelegramID, consumer.CreatedAt).Scan(&consumer.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create consumer", slog.Int64("telegram_id", consumer.TelegramID), slog.Any("error", err))
		}
		return fmt.Errorf("insert consumer: %w", err)
	}

	return nil
}

func (r *consumerRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.Consumer, error) {
	const query = `SELECT id, telegram_id, created_at FROM consumers WHERE telegram_id = $1`

	return scanConsumer(r.db.QueryRowContext(ctx, query, telegramID))
}

func (r *consumerRepository) FindByID(ctx context.Context, id int64) (*domain.Consumer, error) {
	const query = `SELECT id, telegram_id, created_at FROM consumers WHERE id = $1`

	return scanConsumer(r.db.QueryRowContext(ctx, query, id))
}

func scanConsumer(row *sql.Row) (*domain.Consumer, error) {
	var c domain.Consumer
	if err := row.Scan(&c.ID, &c.TelegramID, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select consumer: %w", err)
	}

	return &c, nil
}
