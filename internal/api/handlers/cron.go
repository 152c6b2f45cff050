package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/api/middleware"
)

// InsightArchiver archives old insights.
type InsightArchiver interface {
	ArchiveOlderThan(ctx context.Context, days int) (int64, error)
}

// SnapshotCapturer records today's snapshot for every user with accounts.
type SnapshotCapturer interface {
	CaptureAll(ctx context.Context) (int, error)
}

// CronHandler serves the scheduled maintenance endpoints.
type CronHandler struct {
	archiver      InsightArchiver
	snapshots     SnapshotCapturer
	retentionDays int
	now           func() time.Time
	log           zerolog.Logger
}

func NewCronHandler(archiver InsightArchiver, snapshots SnapshotCapturer, retentionDays int, now func() time.Time, log zerolog.Logger) *CronHandler {
	if now == nil {
		now = time.Now
	}
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &CronHandler{archiver: archiver, snapshots: snapshots, retentionDays: retentionDays, now: now, log: log}
}

// ArchiveInsights handles POST /api/cron/archive-insights
func (h *CronHandler) ArchiveInsights(w http.ResponseWriter, r *http.Request) {
	n, err := h.archiver.ArchiveOlderThan(r.Context(), h.retentionDays)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to archive insights")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to archive insights")
		return
	}

	h.log.Info().Int64("archived", n).Int("days", h.retentionDays).Msg("Archived old insights")
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Archived %d insights", n),
	})
}

// DailySnapshot handles GET /api/cron/daily-snapshot
func (h *CronHandler) DailySnapshot(w http.ResponseWriter, r *http.Request) {
	h.log.Info().Msg("Starting daily snapshot capture")

	n, err := h.snapshots.CaptureAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Snapshot capture failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Snapshot capture failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   fmt.Sprintf("Captured %d snapshots", n),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
