package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/api/middleware"
	"github.com/Nweremizu/helm/internal/banksync"
	"github.com/Nweremizu/helm/internal/categorizer"
	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/store"
)

// AccountFinder looks up a user's linked account.
type AccountFinder interface {
	GetAccountForUser(ctx context.Context, accountID, userID string) (*domain.LinkedAccount, error)
}

// TransactionGetter loads transactions by id.
type TransactionGetter interface {
	GetTransactions(ctx context.Context, ids []string) ([]domain.Transaction, error)
}

// Syncer runs an account crawl.
type Syncer interface {
	SyncAccount(ctx context.Context, accountID, externalAccountID, userID string) (banksync.Result, error)
}

// BatchCategorizer categorizes transactions in the request path.
type BatchCategorizer interface {
	SyncProcess(ctx context.Context, ids []string) categorizer.SyncResult
}

// TransactionsHandler handles sync and categorization endpoints.
type TransactionsHandler struct {
	accounts     AccountFinder
	transactions TransactionGetter
	syncer       Syncer
	categorizer  BatchCategorizer
	log          zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(accounts AccountFinder, transactions TransactionGetter, syncer Syncer, cat BatchCategorizer, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		accounts:     accounts,
		transactions: transactions,
		syncer:       syncer,
		categorizer:  cat,
		log:          log,
	}
}

type syncResponse struct {
	Success         bool   `json:"success"`
	Synced          int    `json:"synced"`
	NewTransactions int    `json:"newTransactions"`
	TotalPages      int    `json:"totalPages"`
	StoppedEarly    bool   `json:"stoppedEarly"`
	Reason          string `json:"reason"`
	Message         string `json:"message"`
}

// Sync handles POST /api/transactions/sync
func (h *TransactionsHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		AccountID string `json:"accountId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "accountId is required")
		return
	}

	account, err := h.accounts.GetAccountForUser(ctx, req.AccountID, userID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("account_id", req.AccountID).Msg("Failed to load account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to sync transactions")
		return
	}

	res, err := h.syncer.SyncAccount(ctx, account.ID, account.ExternalAccountID, userID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", account.ID).Msg("Sync failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to sync transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, syncResponse{
		Success:         true,
		Synced:          res.Synced,
		NewTransactions: len(res.NewTransactionIDs),
		TotalPages:      res.TotalPages,
		StoppedEarly:    res.StoppedEarly,
		Reason:          string(res.Reason),
		Message:         fmt.Sprintf("Synced %d new transactions across %d page(s)", res.Synced, res.TotalPages),
	})
}

// Categorize handles POST /api/transactions/categorize. Ids that do not
// belong to the caller are ignored.
func (h *TransactionsHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		TransactionIDs []string `json:"transactionIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.TransactionIDs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transactionIds is required")
		return
	}

	txs, err := h.transactions.GetTransactions(ctx, req.TransactionIDs)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load transactions")
		middleware.WriteJSON(w, http.StatusOK, categorizer.SyncResult{Success: false})
		return
	}
	owned := make([]string, 0, len(txs))
	for _, tx := range txs {
		if tx.UserID == userID {
			owned = append(owned, tx.ID)
		}
	}

	middleware.WriteJSON(w, http.StatusOK, h.categorizer.SyncProcess(ctx, owned))
}
