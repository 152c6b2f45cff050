package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/api/middleware"
	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/insights"
)

// InsightService lists and updates insights.
type InsightService interface {
	UnreadInsights(ctx context.Context, userID string) ([]domain.Insight, error)
	MarkRead(ctx context.Context, userID, insightID string) error
}

// InsightsHandler handles insight endpoints.
type InsightsHandler struct {
	svc InsightService
	log zerolog.Logger
}

func NewInsightsHandler(svc InsightService, log zerolog.Logger) *InsightsHandler {
	return &InsightsHandler{svc: svc, log: log}
}

// ListUnread handles GET /api/insights
func (h *InsightsHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	list, err := h.svc.UnreadInsights(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch insights")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to fetch insights")
		return
	}
	if list == nil {
		list = []domain.Insight{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"insights": list,
		"count":    len(list),
	})
}

// MarkRead handles POST /api/insights/{id}/read
func (h *InsightsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	insightID := mux.Vars(r)["id"]

	err := h.svc.MarkRead(r.Context(), userID, insightID)
	if errors.Is(err, insights.ErrInsightNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Insight not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("insight_id", insightID).Msg("Failed to update insight")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update insight")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
