package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/analytics"
	"github.com/Nweremizu/helm/internal/api/middleware"
	"github.com/Nweremizu/helm/internal/money"
)

const (
	defaultUpcomingDays = 30
	defaultNetWorthDays = 30
	maxQueryDays        = 366
)

// Detector derives recurring bills and anchor expenses.
type Detector interface {
	DetectRecurring(ctx context.Context, userID string) ([]analytics.RecurringTransaction, error)
	UpcomingBillsTotal(ctx context.Context, userID string, daysAhead int) (int64, error)
	DetectAnchors(ctx context.Context, userID string) ([]analytics.SuggestedAnchor, error)
}

// NetWorthReader reads the snapshot series.
type NetWorthReader interface {
	NetWorthTrend(ctx context.Context, userID string, days int) ([]analytics.NetWorthPoint, error)
}

// AnalyticsHandler serves derived, read-only analytics.
type AnalyticsHandler struct {
	detector  Detector
	snapshots NetWorthReader
	log       zerolog.Logger
}

func NewAnalyticsHandler(detector Detector, snapshots NetWorthReader, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{detector: detector, snapshots: snapshots, log: log}
}

// daysParam parses ?days=, returning def when absent and ok=false when invalid.
func daysParam(r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return def, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxQueryDays {
		return 0, false
	}
	return days, true
}

// Recurring handles GET /api/analytics/recurring
func (h *AnalyticsHandler) Recurring(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	list, err := h.detector.DetectRecurring(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to detect recurring transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to detect recurring transactions")
		return
	}
	if list == nil {
		list = []analytics.RecurringTransaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"recurring": list,
		"count":     len(list),
	})
}

// UpcomingBills handles GET /api/analytics/upcoming-bills?days=
func (h *AnalyticsHandler) UpcomingBills(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	days, ok := daysParam(r, defaultUpcomingDays)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid days parameter")
		return
	}

	total, err := h.detector.UpcomingBillsTotal(r.Context(), userID, days)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute upcoming bills")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute upcoming bills")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"days":       days,
		"totalKobo":  total,
		"totalNaira": money.KoboToNaira(total).InexactFloat64(),
		"formatted":  money.FormatNaira(total),
	})
}

// Anchors handles GET /api/analytics/anchors
func (h *AnalyticsHandler) Anchors(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	list, err := h.detector.DetectAnchors(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to detect anchors")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to detect anchors")
		return
	}
	if list == nil {
		list = []analytics.SuggestedAnchor{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"anchors": list,
		"count":   len(list),
	})
}

// NetWorth handles GET /api/analytics/net-worth?days=
func (h *AnalyticsHandler) NetWorth(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	days, ok := daysParam(r, defaultNetWorthDays)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid days parameter")
		return
	}

	points, err := h.snapshots.NetWorthTrend(r.Context(), userID, days)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load net worth trend")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load net worth trend")
		return
	}
	if points == nil {
		points = []analytics.NetWorthPoint{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"points": points,
		"days":   days,
	})
}
