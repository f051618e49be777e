// Package analytics records business KPI events alongside the operational
// prometheus metrics. Events are best-effort: a failed insert is logged and
// never fails the triggering operation.
package analytics

import (
	"context"
	"log/slog"

	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/repository"
)

const (
	EventVendorRegistration = "vendor_registration"
	EventVendorApproval     = "vendor_approval"
	EventMealCreation       = "meal_creation"
	EventMealBrowse         = "meal_browse"
	EventNearbySearch       = "nearby_search"
	EventOrderCreated       = "order_created"
	EventOrderPaid          = "order_paid"
	EventOrderCompleted     = "order_completed"
	EventOrderCancelled     = "order_cancelled"
	EventEarningsCalculated = "earnings_calculated"
	EventPayoutRequested    = "payout_requested"
	EventPayoutCompleted    = "payout_completed"
)

// Tracker persists KPI events.
type Tracker struct {
	repo  repository.MetricRepository
	clock clock.Clock
	log   *slog.Logger
}

func NewTracker(repo repository.MetricRepository, clk clock.Clock, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}

	return &Tracker{repo: repo, clock: clk, log: log}
}

// Event is a single KPI data point under construction.
type Event struct {
	Type     string
	Value    float64
	EntityID *int64
	UserID   *int64
	Metadata map[string]any
}

// Track inserts the event with value defaulting to 1 for count-style KPIs.
func (t *Tracker) Track(ctx context.Context, event Event) {
	if t == nil || t.repo == nil {
		return
	}

	value := event.Value
	if value == 0 {
		value = 1
	}

	metric := &repository.BusinessMetric{
		MetricType: event.Type,
		Value:      value,
		EntityID:   event.EntityID,
		UserID:     event.UserID,
		Metadata:   event.Metadata,
		Timestamp:  t.clock.Now(),
	}

	if err := t.repo.Insert(ctx, metric); err != nil {
		t.log.Warn("failed to track business metric",
			slog.String("metric_type", event.Type),
			slog.Any("error", err),
		)
	}
}

// Count is shorthand for a value-1 event tied to an entity and user.
func (t *Tracker) Count(ctx context.Context, eventType string, entityID, userID int64) {
	t.Track(ctx, Event{Type: eventType, EntityID: &entityID, UserID: &userID})
}
