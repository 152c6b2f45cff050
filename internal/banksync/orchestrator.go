// Package banksync crawls a linked account's transaction history backwards,
// page by page, until it reaches transactions it has already stored.
package banksync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/bank"
	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/jobs"
)

// DefaultPageTimeout bounds a single page fetch.
const DefaultPageTimeout = 30 * time.Second

// State is a step of the crawl state machine.
type State int

const (
	StateFetching State = iota
	StatePersisting
	StateDeciding
	StateDone
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StatePersisting:
		return "persisting"
	case StateDeciding:
		return "deciding"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Reason names why a crawl stopped.
type Reason string

const (
	ReasonEmptyPage     Reason = "emptyPage"
	ReasonAllDuplicates Reason = "allDuplicates"
	ReasonNoNextPage    Reason = "noNextPage"
	ReasonFetchError    Reason = "fetchError"
)

// Result summarizes one crawl.
type Result struct {
	Synced            int      `json:"synced"`
	NewTransactionIDs []string `json:"newTransactions"`
	TotalPages        int      `json:"totalPages"`
	StoppedEarly      bool     `json:"stoppedEarly"`
	Reason            Reason   `json:"reason"`
	PagesFetched      int      `json:"pagesFetched"`
}

// Store is the persistence the orchestrator needs.
type Store interface {
	CreateIfAbsent(ctx context.Context, tx domain.NewTransaction) (string, bool, error)
	GetTransactions(ctx context.Context, ids []string) ([]domain.Transaction, error)
	SetLastSyncedAt(ctx context.Context, accountID string, at time.Time) error
}

// Dispatcher submits background categorization without blocking.
type Dispatcher interface {
	PublishCategorize(ctx context.Context, job *jobs.CategorizeJob) error
}

// Scanner inspects new transactions for anomalies. It must not fail the sync.
type Scanner interface {
	Scan(ctx context.Context, userID string, newTransactionIDs []string) int
}

// RawArchiver stores undecoded bank pages.
type RawArchiver interface {
	ArchivePage(ctx context.Context, accountID string, page int, raw []byte) (string, error)
}

// Exporter copies new transactions to the warehouse.
type Exporter interface {
	ExportTransactions(ctx context.Context, txs []domain.Transaction) error
}

// Orchestrator runs account syncs.
type Orchestrator struct {
	bank        bank.Client
	store       Store
	dispatcher  Dispatcher
	scanner     Scanner
	archiver    RawArchiver
	exporter    Exporter
	pageTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger

	mu    sync.Mutex
	locks map[string]*accountLock
}

// accountLock serializes syncs of one account. refs counts holders and
// waiters so the entry can be dropped when the last one leaves.
type accountLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPageTimeout bounds each page fetch.
func WithPageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.pageTimeout = d
		}
	}
}

// WithArchiver archives every fetched page.
func WithArchiver(a RawArchiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

// WithExporter exports new transactions after each crawl.
func WithExporter(e Exporter) Option {
	return func(o *Orchestrator) { o.exporter = e }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(client bank.Client, st Store, dispatcher Dispatcher, scanner Scanner, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		bank:        client,
		store:       st,
		dispatcher:  dispatcher,
		scanner:     scanner,
		pageTimeout: DefaultPageTimeout,
		now:         time.Now,
		log:         log.With().Str("component", "sync").Logger(),
		locks:       make(map[string]*accountLock),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// lockAccount blocks until the caller holds accountID's lock and returns
// the release func.
func (o *Orchestrator) lockAccount(accountID string) func() {
	o.mu.Lock()
	l, ok := o.locks[accountID]
	if !ok {
		l = &accountLock{}
		o.locks[accountID] = l
	}
	l.refs++
	o.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		o.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(o.locks, accountID)
		}
		o.mu.Unlock()
	}
}

// SyncAccount crawls the account newest page first and stops at the first
// empty page, the first page whose rows all existed, the last page, or a
// fetch failure. Syncs of the same account run one at a time.
func (o *Orchestrator) SyncAccount(ctx context.Context, accountID, externalAccountID, userID string) (Result, error) {
	unlock := o.lockAccount(accountID)
	defer unlock()

	log := o.log.With().Str("account_id", accountID).Str("user_id", userID).Logger()
	log.Info().Msg("Starting backward crawl")

	res := Result{TotalPages: 1, NewTransactionIDs: []string{}}

	var (
		page       *bank.TransactionsPage
		pageNum    = 1
		allExisted bool
		state      = StateFetching
	)

	for state != StateDone {
		switch state {
		case StateFetching:
			p, err := o.fetch(ctx, externalAccountID, pageNum)
			if err != nil {
				log.Error().Err(err).Int("page", pageNum).Msg("Failed to fetch page")
				res.Reason = ReasonFetchError
				state = StateDone
				continue
			}
			res.PagesFetched++
			if len(p.Data) == 0 {
				log.Info().Int("page", pageNum).Msg("No more data, stopping")
				res.Reason = ReasonEmptyPage
				state = StateDone
				continue
			}
			page = p
			res.TotalPages = page.TotalPages()
			o.archive(ctx, log, accountID, pageNum, page.Raw)
			state = StatePersisting

		case StatePersisting:
			newIDs, existed, err := o.persist(ctx, page.Data, userID, accountID)
			res.NewTransactionIDs = append(res.NewTransactionIDs, newIDs...)
			if err != nil {
				// Rows stored before the failure still get categorized and scanned.
				res.Synced = len(res.NewTransactionIDs)
				o.handOff(ctx, log, userID, accountID, res.NewTransactionIDs)
				return res, fmt.Errorf("SyncAccount: page %d: %w", pageNum, err)
			}
			log.Debug().Int("page", pageNum).Int("total", len(page.Data)).Int("new", len(newIDs)).Msg("Page persisted")
			allExisted = existed
			state = StateDeciding

		case StateDeciding:
			switch {
			case allExisted:
				log.Info().Int("page", pageNum).Msg("All transactions on page already exist, stopping crawl")
				res.StoppedEarly = true
				res.Reason = ReasonAllDuplicates
				state = StateDone
			case !page.HasNext():
				res.Reason = ReasonNoNextPage
				state = StateDone
			default:
				pageNum++
				state = StateFetching
			}
		}
	}

	res.Synced = len(res.NewTransactionIDs)

	stampErr := o.store.SetLastSyncedAt(ctx, accountID, o.now())
	o.handOff(ctx, log, userID, accountID, res.NewTransactionIDs)
	if stampErr != nil {
		return res, fmt.Errorf("SyncAccount: set last synced: %w", stampErr)
	}

	log.Info().
		Int("synced", res.Synced).
		Int("pages", res.PagesFetched).
		Str("reason", string(res.Reason)).
		Bool("stopped_early", res.StoppedEarly).
		Msg("Sync complete")
	return res, nil
}

// handOff dispatches categorization, exports and scans the new rows.
func (o *Orchestrator) handOff(ctx context.Context, log zerolog.Logger, userID, accountID string, ids []string) {
	if len(ids) == 0 {
		return
	}
	o.dispatch(ctx, log, userID, accountID, ids)
	o.export(ctx, log, ids)
	if o.scanner != nil {
		o.scanner.Scan(ctx, userID, ids)
	}
}

func (o *Orchestrator) fetch(ctx context.Context, externalAccountID string, page int) (*bank.TransactionsPage, error) {
	ctx, cancel := context.WithTimeout(ctx, o.pageTimeout)
	defer cancel()
	return o.bank.FetchTransactions(ctx, externalAccountID, page)
}

// persist stores each row unless its external id exists. allExisted is true
// when no row on the page was new.
func (o *Orchestrator) persist(ctx context.Context, rows []bank.Transaction, userID, accountID string) (newIDs []string, allExisted bool, err error) {
	existing := 0
	for _, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return newIDs, false, fmt.Errorf("persist: encode %s: %w", row.ID, err)
		}
		currency := row.Currency
		if currency == "" {
			currency = "NGN"
		}

		id, created, err := o.store.CreateIfAbsent(ctx, domain.NewTransaction{
			UserID:            userID,
			AccountID:         accountID,
			ExternalID:        row.ID,
			Amount:            row.Amount,
			Type:              domain.ParseTransactionType(row.Type),
			Date:              row.Date,
			Balance:           row.Balance,
			OriginalNarration: row.Narration,
			Currency:          currency,
			RawBankData:       raw,
		})
		if err != nil {
			return newIDs, false, fmt.Errorf("persist: create %s: %w", row.ID, err)
		}
		if !created {
			existing++
			continue
		}
		newIDs = append(newIDs, id)
	}
	return newIDs, existing == len(rows), nil
}

func (o *Orchestrator) archive(ctx context.Context, log zerolog.Logger, accountID string, page int, raw []byte) {
	if o.archiver == nil || len(raw) == 0 {
		return
	}
	uri, err := o.archiver.ArchivePage(ctx, accountID, page, raw)
	if err != nil {
		log.Warn().Err(err).Int("page", page).Msg("Failed to archive raw page")
		return
	}
	log.Debug().Str("uri", uri).Int("page", page).Msg("Raw page archived")
}

func (o *Orchestrator) dispatch(ctx context.Context, log zerolog.Logger, userID, accountID string, ids []string) {
	if o.dispatcher == nil {
		log.Warn().Int("count", len(ids)).Msg("No dispatcher configured, transactions left for the sweep")
		return
	}
	err := o.dispatcher.PublishCategorize(ctx, &jobs.CategorizeJob{
		UserID:         userID,
		AccountID:      accountID,
		TransactionIDs: append([]string(nil), ids...),
	})
	if err != nil {
		log.Error().Err(err).Int("count", len(ids)).Msg("Failed to dispatch categorization")
		return
	}
	log.Info().Int("count", len(ids)).Msg("Categorization dispatched")
}

func (o *Orchestrator) export(ctx context.Context, log zerolog.Logger, ids []string) {
	if o.exporter == nil {
		return
	}
	txs, err := o.store.GetTransactions(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load transactions for export")
		return
	}
	if err := o.exporter.ExportTransactions(ctx, txs); err != nil {
		log.Warn().Err(err).Int("count", len(txs)).Msg("Failed to export transactions")
	}
}
