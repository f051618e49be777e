package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/asbolsyn/asbolsyn-bot/internal/sweeper"
)

// ListingSweepHandler deactivates listings whose pickup window has passed.
type ListingSweepHandler struct {
	sweeper *sweeper.Sweeper
	log     *slog.Logger
}

func NewListingSweepHandler(sw *sweeper.Sweeper, log *slog.Logger) *ListingSweepHandler {
	return &ListingSweepHandler{sweeper: sw, log: log}
}

func (h *ListingSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	swept, err := h.sweeper.Run(ctx)
	if err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "listing sweep: run failed",
				slog.String("task_type", t.Type()), slog.String("error", err.Error()))
		}
		return err
	}

	if h.log != nil && swept > 0 {
		h.log.InfoContext(ctx, "listing sweep: completed",
			slog.String("task_type", t.Type()), slog.Int64("swept", swept))
	}

	return nil
}
