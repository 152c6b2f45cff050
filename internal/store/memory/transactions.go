package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/store"
)

func copyTx(t *domain.Transaction) domain.Transaction {
	out := *t
	if t.CleanName != nil {
		out.CleanName = domain.StringPtr(*t.CleanName)
	}
	if t.CleanCategory != nil {
		out.CleanCategory = domain.StringPtr(*t.CleanCategory)
	}
	if t.Icon != nil {
		out.Icon = domain.StringPtr(*t.Icon)
	}
	return out
}

func (s *Store) CreateIfAbsent(ctx context.Context, in domain.NewTransaction) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byExternalID[in.ExternalID]; ok {
		return id, false, nil
	}

	currency := in.Currency
	if currency == "" {
		currency = "NGN"
	}
	tx := &domain.Transaction{
		ID:                uuid.New().String(),
		UserID:            in.UserID,
		AccountID:         in.AccountID,
		ExternalID:        in.ExternalID,
		Amount:            in.Amount,
		Type:              in.Type,
		Date:              in.Date,
		Balance:           in.Balance,
		OriginalNarration: in.OriginalNarration,
		Currency:          currency,
		RawBankData:       in.RawBankData,
		CreatedAt:         s.now(),
	}
	s.transactions[tx.ID] = tx
	s.byExternalID[tx.ExternalID] = tx.ID
	s.txSeq[tx.ID] = s.nextSeq()
	return tx.ID, true, nil
}

// Insert stores a fully-populated transaction, bypassing create-if-absent.
// Tests use it to seed enriched history.
func (s *Store) Insert(tx domain.Transaction) domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.ExternalID == "" {
		tx.ExternalID = "ext-" + tx.ID
	}
	if tx.Currency == "" {
		tx.Currency = "NGN"
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	v := tx
	s.transactions[v.ID] = &v
	s.byExternalID[v.ExternalID] = v.ID
	s.txSeq[v.ID] = s.nextSeq()
	return copyTx(&v)
}

// Count returns the number of stored transactions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transactions)
}

func (s *Store) GetTransactions(ctx context.Context, ids []string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(ids))
	for _, id := range ids {
		if tx, ok := s.transactions[id]; ok {
			out = append(out, copyTx(tx))
		}
	}
	return out, nil
}

func (s *Store) ListUnprocessed(ctx context.Context, ids []string) ([]domain.Transaction, error) {
	all, _ := s.GetTransactions(ctx, ids)
	out := all[:0]
	for _, tx := range all {
		if !tx.IsProcessed {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) ListUnprocessedIDs(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*domain.Transaction
	for _, tx := range s.transactions {
		if !tx.IsProcessed {
			pending = append(pending, tx)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return s.txSeq[pending[i].ID] < s.txSeq[pending[j].ID] })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]string, len(pending))
	for i, tx := range pending {
		out[i] = tx.ID
	}
	return out, nil
}

func (s *Store) ApplyRuleMatch(ctx context.Context, transactionID string, rule domain.MerchantRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return store.ErrNotFound
	}
	r, ok := s.rules[rule.Keyword]
	if !ok {
		return store.ErrNotFound
	}
	tx.CleanName = domain.StringPtr(rule.CleanName)
	tx.CleanCategory = domain.StringPtr(rule.Category)
	tx.Icon = domain.StringPtr(rule.Icon)
	tx.IsProcessed = true
	r.MatchCount++
	return nil
}

func (s *Store) ApplyEnrichment(ctx context.Context, transactionID string, e domain.Enrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return store.ErrNotFound
	}
	if e.CleanName != nil {
		tx.CleanName = domain.StringPtr(*e.CleanName)
	}
	tx.CleanCategory = domain.StringPtr(e.CleanCategory)
	tx.Icon = domain.StringPtr(e.Icon)
	tx.IsProcessed = true
	return nil
}

func (s *Store) MarkProcessedWithCategory(ctx context.Context, ids []string, category, icon string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if tx, ok := s.transactions[id]; ok {
			tx.CleanCategory = domain.StringPtr(category)
			tx.Icon = domain.StringPtr(icon)
			tx.IsProcessed = true
		}
	}
	return nil
}

// sortNewestFirst orders by date descending, breaking ties by insertion order.
func (s *Store) sortNewestFirst(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return s.txSeq[txs[i].ID] > s.txSeq[txs[j].ID]
	})
}

func (s *Store) ListPriorByCleanName(ctx context.Context, userID, cleanName string, before time.Time, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == userID && tx.CleanName != nil && *tx.CleanName == cleanName && tx.Date.Before(before) {
			out = append(out, copyTx(tx))
		}
	}
	s.sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sameName(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *Store) ListSimilarInWindow(ctx context.Context, userID, excludeID string, amount int64, cleanName *string, from, to time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.ID == excludeID || tx.Amount != amount {
			continue
		}
		if !sameName(tx.CleanName, cleanName) {
			continue
		}
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		out = append(out, copyTx(tx))
	}
	s.sortNewestFirst(out)
	return out, nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (s *Store) SumDebitsByCategory(ctx context.Context, userID string, from, to time.Time) ([]store.CategorySum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int64)
	var uncategorized int64
	var hasUncategorized bool
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.Type != domain.TransactionTypeDebit || !inRange(tx.Date, from, to) {
			continue
		}
		if tx.CleanCategory == nil {
			uncategorized += tx.Amount
			hasUncategorized = true
			continue
		}
		totals[*tx.CleanCategory] += tx.Amount
	}

	out := make([]store.CategorySum, 0, len(totals)+1)
	for cat, total := range totals {
		out = append(out, store.CategorySum{Category: domain.StringPtr(cat), Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Category < *out[j].Category })
	if hasUncategorized {
		out = append(out, store.CategorySum{Total: uncategorized})
	}
	return out, nil
}

func (s *Store) SumByType(ctx context.Context, userID string, from, to time.Time) (map[domain.TransactionType]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.TransactionType]int64)
	for _, tx := range s.transactions {
		if tx.UserID == userID && inRange(tx.Date, from, to) {
			out[tx.Type] += tx.Amount
		}
	}
	return out, nil
}

func (s *Store) ListDebitsSince(ctx context.Context, userID string, since time.Time, withCleanName bool) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.Type != domain.TransactionTypeDebit || tx.Date.Before(since) {
			continue
		}
		if withCleanName && tx.CleanName == nil {
			continue
		}
		out = append(out, copyTx(tx))
	}
	s.sortNewestFirst(out)
	return out, nil
}
