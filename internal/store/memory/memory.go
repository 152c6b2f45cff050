// Package memory is an in-process Store used by tests and by local runs
// without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/store"
)

// Store implements store.Store with maps guarded by a single RWMutex.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]*domain.LinkedAccount
	transactions map[string]*domain.Transaction
	byExternalID map[string]string
	rules        map[string]*domain.MerchantRule // keyed by keyword
	ruleSeq      map[string]int64
	insights     map[string]*domain.Insight
	snapshots    map[string]*domain.DailySnapshot // keyed by user|date
	txSeq        map[string]int64

	seq int64
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		accounts:     make(map[string]*domain.LinkedAccount),
		transactions: make(map[string]*domain.Transaction),
		byExternalID: make(map[string]string),
		rules:        make(map[string]*domain.MerchantRule),
		ruleSeq:      make(map[string]int64),
		insights:     make(map[string]*domain.Insight),
		snapshots:    make(map[string]*domain.DailySnapshot),
		txSeq:        make(map[string]int64),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close is a no-op.
func (s *Store) Close() {}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// --- accounts ---

func (s *Store) CreateAccount(ctx context.Context, account domain.LinkedAccount) (*domain.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if _, ok := s.accounts[account.ID]; ok {
		return nil, fmt.Errorf("CreateAccount: account %s already exists", account.ID)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = s.now()
	}
	a := account
	s.accounts[a.ID] = &a
	out := a
	return &out, nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*domain.LinkedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (s *Store) GetAccountForUser(ctx context.Context, accountID, userID string) (*domain.LinkedAccount, error) {
	a, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.LinkedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LinkedAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListAccountsByUser(ctx context.Context, userID string) ([]domain.LinkedAccount, error) {
	all, _ := s.ListAccounts(ctx)
	var out []domain.LinkedAccount
	for _, a := range all {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListUserIDsWithAccounts(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, a := range s.accounts {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			out = append(out, a.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) SetLastSyncedAt(ctx context.Context, accountID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return store.ErrNotFound
	}
	a.LastSyncedAt = &at
	return nil
}

func (s *Store) UpdateBalance(ctx context.Context, accountID string, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return store.ErrNotFound
	}
	a.Balance = balance
	return nil
}

// --- snapshots ---

func snapshotKey(userID string, d civil.Date) string {
	return userID + "|" + d.String()
}

func (s *Store) UpsertSnapshot(ctx context.Context, snap domain.DailySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := snap
	s.snapshots[snapshotKey(snap.UserID, snap.Date)] = &v
	return nil
}

func (s *Store) ListSnapshots(ctx context.Context, userID string, since time.Time) ([]domain.DailySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := civil.DateOf(since)
	var out []domain.DailySnapshot
	for _, snap := range s.snapshots {
		if snap.UserID == userID && !snap.Date.Before(from) {
			out = append(out, *snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
