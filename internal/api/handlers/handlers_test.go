package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nweremizu/helm/internal/analytics"
	"github.com/Nweremizu/helm/internal/api/middleware"
	"github.com/Nweremizu/helm/internal/banksync"
	"github.com/Nweremizu/helm/internal/categorizer"
	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/insights"
	"github.com/Nweremizu/helm/internal/jobs"
	"github.com/Nweremizu/helm/internal/jobs/inmemory"
	"github.com/Nweremizu/helm/internal/logger"
	"github.com/Nweremizu/helm/internal/store/memory"
)

const cronSecret = "cron-s3cret"

var now = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

type mockSyncer struct {
	SyncAccountFunc func(ctx context.Context, accountID, externalAccountID, userID string) (banksync.Result, error)
}

func (m *mockSyncer) SyncAccount(ctx context.Context, accountID, externalAccountID, userID string) (banksync.Result, error) {
	return m.SyncAccountFunc(ctx, accountID, externalAccountID, userID)
}

type mockCategorizer struct {
	got []string
}

func (m *mockCategorizer) SyncProcess(ctx context.Context, ids []string) categorizer.SyncResult {
	m.got = ids
	return categorizer.SyncResult{Success: true, Processed: len(ids)}
}

type testServer struct {
	handler http.Handler
	store   *memory.Store
	syncer  *mockSyncer
	cat     *mockCategorizer
	jobs    *inmemory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := func() time.Time { return now }
	st := memory.New(memory.WithClock(clock))
	log := logger.Nop()

	_, err := st.CreateAccount(context.Background(), domain.LinkedAccount{ID: "acc-1", UserID: "user-1", ExternalAccountID: "mono-1", Balance: 500000})
	require.NoError(t, err)

	ts := &testServer{
		store: st,
		syncer: &mockSyncer{SyncAccountFunc: func(ctx context.Context, accountID, externalAccountID, userID string) (banksync.Result, error) {
			return banksync.Result{Synced: 7, NewTransactionIDs: make([]string, 7), TotalPages: 1, Reason: banksync.ReasonNoNextPage}, nil
		}},
		cat:  &mockCategorizer{},
		jobs: inmemory.NewStore(),
	}

	detector := analytics.NewDetector(st, analytics.DefaultRecurringKeywords(), clock)
	snapshots := analytics.NewSnapshotRecorder(st, nil, time.UTC, clock, log)
	svc := insights.NewService(st, nil, clock, log)

	ts.handler = NewRouter(RouterConfig{
		Transactions: NewTransactionsHandler(st, st, ts.syncer, ts.cat, log),
		Insights:     NewInsightsHandler(svc, log),
		Analytics:    NewAnalyticsHandler(detector, snapshots, log),
		Cron:         NewCronHandler(svc, snapshots, 30, clock, log),
		Jobs:         NewJobsHandler(ts.jobs, log),
		CronSecret:   cronSecret,
		Log:          log,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSync(t *testing.T) {
	tests := []struct {
		name      string
		userID    string
		body      interface{}
		syncErr   error
		wantCode  int
		wantError string
	}{
		{name: "unauthenticated", body: map[string]string{"accountId": "acc-1"}, wantCode: http.StatusUnauthorized, wantError: "Unauthorized"},
		{name: "missing account id", userID: "user-1", body: map[string]string{}, wantCode: http.StatusBadRequest, wantError: "accountId is required"},
		{name: "unknown account", userID: "user-1", body: map[string]string{"accountId": "nope"}, wantCode: http.StatusNotFound, wantError: "Account not found"},
		{name: "another user's account", userID: "user-2", body: map[string]string{"accountId": "acc-1"}, wantCode: http.StatusNotFound, wantError: "Account not found"},
		{name: "sync failure", userID: "user-1", body: map[string]string{"accountId": "acc-1"}, syncErr: errors.New("db down"), wantCode: http.StatusInternalServerError, wantError: "Failed to sync transactions"},
		{name: "success", userID: "user-1", body: map[string]string{"accountId": "acc-1"}, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			if tt.syncErr != nil {
				ts.syncer.SyncAccountFunc = func(ctx context.Context, accountID, externalAccountID, userID string) (banksync.Result, error) {
					return banksync.Result{}, tt.syncErr
				}
			}

			rec := ts.do(t, http.MethodPost, "/api/transactions/sync", tt.userID, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			body := decode(t, rec)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			assert.Equal(t, true, body["success"])
			assert.EqualValues(t, 7, body["synced"])
			assert.EqualValues(t, 7, body["newTransactions"])
			assert.EqualValues(t, 1, body["totalPages"])
			assert.Equal(t, false, body["stoppedEarly"])
			assert.Equal(t, "Synced 7 new transactions across 1 page(s)", body["message"])
		})
	}
}

func TestSync_PassesExternalAccountID(t *testing.T) {
	ts := newTestServer(t)
	var got []string
	ts.syncer.SyncAccountFunc = func(ctx context.Context, accountID, externalAccountID, userID string) (banksync.Result, error) {
		got = []string{accountID, externalAccountID, userID}
		return banksync.Result{TotalPages: 1}, nil
	}

	rec := ts.do(t, http.MethodPost, "/api/transactions/sync", "user-1", map[string]string{"accountId": "acc-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"acc-1", "mono-1", "user-1"}, got)
}

func TestCategorize_OnlyOwnTransactions(t *testing.T) {
	ts := newTestServer(t)
	mine := ts.store.Insert(domain.Transaction{UserID: "user-1", Amount: 100, Date: now})
	theirs := ts.store.Insert(domain.Transaction{UserID: "user-2", Amount: 100, Date: now})

	rec := ts.do(t, http.MethodPost, "/api/transactions/categorize", "user-1", map[string][]string{"transactionIds": {mine.ID, theirs.ID, "missing"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{mine.ID}, ts.cat.got)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["processed"])

	rec = ts.do(t, http.MethodPost, "/api/transactions/categorize", "user-1", map[string][]string{"transactionIds": {}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsights_ListAndMarkRead(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ins, err := ts.store.CreateInsight(ctx, domain.NewInsight{UserID: "user-1", Type: domain.InsightTypeAlert, Title: "Possible Double Charge", Severity: domain.SeverityCritical})
	require.NoError(t, err)
	_, err = ts.store.CreateInsight(ctx, domain.NewInsight{UserID: "user-2", Type: domain.InsightTypeAlert, Title: "Other user"})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/insights", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["count"])

	rec = ts.do(t, http.MethodPost, "/api/insights/"+ins.ID+"/read", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/insights/"+ins.ID+"/read", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/insights", "user-1", nil)
	assert.EqualValues(t, 0, decode(t, rec)["count"])
}

func TestAnalytics(t *testing.T) {
	ts := newTestServer(t)
	for _, d := range []time.Time{now.AddDate(0, -2, 0), now.AddDate(0, -1, 0), now.AddDate(0, 0, -3)} {
		ts.store.Insert(domain.Transaction{
			UserID:            "user-1",
			Amount:            450000,
			Type:              domain.TransactionTypeDebit,
			Date:              d,
			OriginalNarration: "NETFLIX.COM",
			CleanName:         domain.StringPtr("Netflix"),
			CleanCategory:     domain.StringPtr("Subscription"),
		})
	}

	rec := ts.do(t, http.MethodGet, "/api/analytics/recurring", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = ts.do(t, http.MethodGet, "/api/analytics/upcoming-bills?days=30", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 30, body["days"])
	assert.EqualValues(t, 450000, body["totalKobo"])
	assert.Equal(t, "₦4,500.00", body["formatted"])

	rec = ts.do(t, http.MethodGet, "/api/analytics/upcoming-bills?days=abc", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/analytics/anchors", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = ts.do(t, http.MethodGet, "/api/analytics/net-worth", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["points"])
}

func TestCron(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/cron/archive-insights", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/cron/archive-insights", nil)
	req.Header.Set("Authorization", "Bearer "+cronSecret)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Archived 0 insights", decode(t, rec)["message"])

	req = httptest.NewRequest(http.MethodGet, "/api/cron/daily-snapshot", nil)
	req.Header.Set("Authorization", "Bearer "+cronSecret)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Captured 1 snapshots", body["message"])
	assert.Equal(t, "2025-07-15T12:00:00Z", body["timestamp"])

	rec = ts.do(t, http.MethodGet, "/api/analytics/net-worth?days=7", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	points := decode(t, rec)["points"].([]interface{})
	require.Len(t, points, 1)
	assert.EqualValues(t, 500000, points[0].(map[string]interface{})["balanceKobo"])
}

func TestJobs(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.jobs.SaveJob(ctx, &jobs.CategorizeJob{JobID: "job-1", UserID: "user-1", Status: jobs.JobStatusCompleted, CreatedAt: now}))
	require.NoError(t, ts.jobs.SaveJob(ctx, &jobs.CategorizeJob{JobID: "job-2", UserID: "user-2", Status: jobs.JobStatusPending, CreatedAt: now}))

	rec := ts.do(t, http.MethodGet, "/api/jobs", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = ts.do(t, http.MethodGet, "/api/jobs?status=pending&limit=-3", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["count"])

	rec = ts.do(t, http.MethodGet, "/api/jobs/job-1", "user-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/jobs/job-2", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_HealthAndMethods(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = ts.do(t, http.MethodGet, "/api/transactions/sync", "user-1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/nope", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
