package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/asbolsyn/asbolsyn-bot/internal/jobs"
	"github.com/asbolsyn/asbolsyn-bot/internal/state"
)

// StateCleanupHandler clears conversation sessions that went idle mid-flow,
// so an abandoned meal draft does not hold its lock forever.
type StateCleanupHandler struct {
	cleaner *state.Cleaner
	log     *slog.Logger
}

func NewStateCleanupHandler(cleaner *state.Cleaner, log *slog.Logger) *StateCleanupHandler {
	return &StateCleanupHandler{cleaner: cleaner, log: log}
}

func (h *StateCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.StateCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "state cleanup: failed to decode payload",
				slog.String("task_type", t.Type()), slog.String("error", err.Error()))
		}
		return err
	}

	h.cleaner.CleanupOlderThan(ctx, payload.OlderThan)
	return nil
}
