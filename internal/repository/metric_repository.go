package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// BusinessMetric is one append-only KPI event row (registrations, browses,
// order transitions and so on). Distinct from prometheus runtime metrics.
type BusinessMetric struct {
	ID         int64
	MetricType string
	Value      float64
	EntityID   *int64
	UserID     *int64
	Metadata   map[string]any
	Timestamp  time.Time
}

// MetricRepository persists business KPI events.
type MetricRepository interface {
	Insert(ctx context.Context, metric *BusinessMetric) error
}

type metricRepository struct {
	db  DBTX
	log *slog.Logger
}

func NewMetricRepository(db DBTX, log *slog.Logger) MetricRepository {
	return &metricRepository{db: db, log: log}
}

func (r *metricRepository) Insert(ctx context.Context, metric *BusinessMetric) error {
	const query = `
		INSERT INTO metrics (metric_type, value, entity_id, user_id, metadata, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var metadata []byte
	if metric.Metadata != nil {
		encoded, err := json.Marshal(metric.Metadata)
		if err != nil {
			return fmt.Errorf("encode metric metadata: %w", err)
		}
		metadata = encoded
	}

	if err := r.db.QueryRowContext(
		ctx,
		query,
		metric.MetricType,
		metric.Value,
		metric.EntityID,
		metric.UserID,
		metadata,
		metric.Timestamp,
	).Scan(&metric.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to insert business metric", slog.String("metric_type", metric.MetricType), slog.Any("error", err))
		}
		return fmt.Errorf("insert metric: %w", err)
	}

	return nil
}
