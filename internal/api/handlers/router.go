// Package handlers exposes the pipeline over HTTP.
package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/api/middleware"
)

// RouterConfig collects the handlers and secrets the router mounts.
type RouterConfig struct {
	Transactions *TransactionsHandler
	Insights     *InsightsHandler
	Analytics    *AnalyticsHandler
	Cron         *CronHandler
	Jobs         *JobsHandler
	CronSecret   string
	Log          zerolog.Logger
}

// NewRouter builds the API router with middleware applied.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	// Scheduled endpoints authenticate with the cron secret, not a user.
	cron := router.PathPrefix("/api/cron").Subrouter()
	cron.Handle("/archive-insights", middleware.CronAuth(cfg.CronSecret)(http.HandlerFunc(cfg.Cron.ArchiveInsights))).Methods(http.MethodPost)
	cron.Handle("/daily-snapshot", middleware.OptionalCronAuth(cfg.CronSecret)(http.HandlerFunc(cfg.Cron.DailySnapshot))).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth)

	api.HandleFunc("/transactions/sync", cfg.Transactions.Sync).Methods(http.MethodPost)
	api.HandleFunc("/transactions/categorize", cfg.Transactions.Categorize).Methods(http.MethodPost)

	api.HandleFunc("/insights", cfg.Insights.ListUnread).Methods(http.MethodGet)
	api.HandleFunc("/insights/{id}/read", cfg.Insights.MarkRead).Methods(http.MethodPost)

	api.HandleFunc("/analytics/recurring", cfg.Analytics.Recurring).Methods(http.MethodGet)
	api.HandleFunc("/analytics/upcoming-bills", cfg.Analytics.UpcomingBills).Methods(http.MethodGet)
	api.HandleFunc("/analytics/anchors", cfg.Analytics.Anchors).Methods(http.MethodGet)
	api.HandleFunc("/analytics/net-worth", cfg.Analytics.NetWorth).Methods(http.MethodGet)

	api.HandleFunc("/jobs", cfg.Jobs.ListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", cfg.Jobs.GetJob).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return middleware.Recovery(cfg.Log)(
		middleware.RequestID(
			middleware.Logger(cfg.Log)(
				middleware.CORS(router),
			),
		),
	)
}
