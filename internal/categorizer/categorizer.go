// Package categorizer enriches raw bank transactions with a clean name,
// category and icon. Known merchants are matched against stored keyword
// rules; everything else goes to the AI classifier, whose confident answers
// become new rules.
package categorizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/classifier"
	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/jobs"
	"github.com/Nweremizu/helm/internal/money"
	"github.com/Nweremizu/helm/internal/store"
)

// LearnThreshold is the minimum classifier confidence for learning a rule.
const LearnThreshold = 0.8

// Store is the persistence the categorizer needs.
type Store interface {
	store.TransactionRepository
	store.RuleRepository
}

// Auditor records classifier calls. Failures are logged and ignored.
type Auditor interface {
	RecordClassification(ctx context.Context, audit classifier.Audit) error
}

// Summary counts what one batch did.
type Summary struct {
	Candidates  int
	RuleMatched int
	AIApplied   int
	Learned     int
	Fallback    int
}

// SyncResult is the response of SyncProcess.
type SyncResult struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
}

// Categorizer runs the rule pass and the AI pass over unprocessed transactions.
type Categorizer struct {
	store      Store
	classifier classifier.Classifier
	auditor    Auditor
	log        zerolog.Logger
	now        func() time.Time
}

// Option configures a Categorizer.
type Option func(*Categorizer)

// WithAuditor records every classifier call.
func WithAuditor(a Auditor) Option {
	return func(c *Categorizer) { c.auditor = a }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Categorizer) { c.now = now }
}

// New creates a Categorizer.
func New(st Store, cl classifier.Classifier, log zerolog.Logger, opts ...Option) *Categorizer {
	c := &Categorizer{
		store:      st,
		classifier: cl,
		log:        log.With().Str("component", "categorizer").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProcessBatch categorizes the unprocessed transactions among ids.
// A classifier failure is absorbed by the fallback category; only store
// errors are returned, leaving the affected rows for the next sweep.
func (c *Categorizer) ProcessBatch(ctx context.Context, ids []string) error {
	_, err := c.Process(ctx, ids)
	return err
}

// Process is ProcessBatch with counters.
func (c *Categorizer) Process(ctx context.Context, ids []string) (Summary, error) {
	var sum Summary
	if len(ids) == 0 {
		return sum, nil
	}

	txs, err := c.store.ListUnprocessed(ctx, ids)
	if err != nil {
		return sum, fmt.Errorf("Categorizer.Process: list unprocessed: %w", err)
	}
	if len(txs) == 0 {
		c.log.Debug().Int("requested", len(ids)).Msg("No unprocessed transactions found")
		return sum, nil
	}
	sum.Candidates = len(txs)

	rules, err := c.store.ListRules(ctx)
	if err != nil {
		return sum, fmt.Errorf("Categorizer.Process: list rules: %w", err)
	}
	index := newRuleIndex(rules)

	var needsAI []domain.Transaction
	for _, tx := range txs {
		rule, ok := index.Match(tx.OriginalNarration)
		if !ok {
			needsAI = append(needsAI, tx)
			continue
		}
		if err := c.store.ApplyRuleMatch(ctx, tx.ID, rule); err != nil {
			return sum, fmt.Errorf("Categorizer.Process: apply rule %s to %s: %w", rule.Keyword, tx.ID, err)
		}
		sum.RuleMatched++
	}

	c.log.Info().
		Int("rule_matched", sum.RuleMatched).
		Int("needs_ai", len(needsAI)).
		Int("rules", index.Len()).
		Msg("Rule pass complete")

	if len(needsAI) == 0 {
		return sum, nil
	}

	if err := c.classify(ctx, needsAI, &sum); err != nil {
		return sum, err
	}
	return sum, nil
}

func (c *Categorizer) classify(ctx context.Context, txs []domain.Transaction, sum *Summary) error {
	inputs := make([]classifier.Input, len(txs))
	pending := make(map[string]domain.Transaction, len(txs))
	for i, tx := range txs {
		inputs[i] = classifier.Input{
			ID:          tx.ID,
			Narration:   tx.OriginalNarration,
			AmountNaira: money.NairaString(tx.Amount),
			Type:        string(tx.Type),
			Date:        tx.Date.UTC().Format(time.RFC3339),
		}
		pending[tx.ID] = tx
	}

	started := c.now()
	results, err := c.classifier.CategorizeBatch(ctx, inputs)
	c.audit(ctx, inputs, results, err, started)

	if err != nil {
		c.log.Error().Err(err).Int("count", len(txs)).Msg("AI categorization failed, applying fallback category")

		ids := make([]string, len(txs))
		for i, tx := range txs {
			ids[i] = tx.ID
		}
		if err := c.store.MarkProcessedWithCategory(ctx, ids, domain.CategoryOther, domain.DefaultIcon); err != nil {
			return fmt.Errorf("Categorizer.classify: mark fallback: %w", err)
		}
		sum.Fallback += len(ids)
		return nil
	}

	for _, res := range results {
		if _, ok := pending[res.ID]; !ok {
			c.log.Warn().Str("transaction_id", res.ID).Msg("Classifier returned an unknown or repeated id")
			continue
		}
		delete(pending, res.ID)

		if err := c.store.ApplyEnrichment(ctx, res.ID, domain.Enrichment{
			CleanName:     domain.StringPtr(res.CleanName),
			CleanCategory: res.Category,
			Icon:          res.Icon,
		}); err != nil {
			return fmt.Errorf("Categorizer.classify: apply result to %s: %w", res.ID, err)
		}
		sum.AIApplied++

		if res.RuleKeyword == nil || res.Confidence < LearnThreshold {
			continue
		}
		created, err := c.store.UpsertLearnedRule(ctx, domain.MerchantRule{
			Keyword:   *res.RuleKeyword,
			CleanName: res.CleanName,
			Category:  res.Category,
			Icon:      res.Icon,
		})
		if err != nil {
			return fmt.Errorf("Categorizer.classify: learn rule %s: %w", *res.RuleKeyword, err)
		}
		if created {
			sum.Learned++
			c.log.Info().Str("keyword", *res.RuleKeyword).Str("category", res.Category).Msg("Learned new rule")
		}
	}

	// Rows the classifier skipped get the offline name and the fallback category.
	for _, tx := range txs {
		if _, missing := pending[tx.ID]; !missing {
			continue
		}
		if err := c.store.ApplyEnrichment(ctx, tx.ID, domain.Enrichment{
			CleanName:     domain.StringPtr(classifier.ExtractCleanName(tx.OriginalNarration)),
			CleanCategory: domain.CategoryOther,
			Icon:          domain.DefaultIcon,
		}); err != nil {
			return fmt.Errorf("Categorizer.classify: apply fallback to %s: %w", tx.ID, err)
		}
		sum.Fallback++
	}

	c.log.Info().
		Int("ai_applied", sum.AIApplied).
		Int("learned", sum.Learned).
		Int("fallback", sum.Fallback).
		Msg("AI pass complete")
	return nil
}

func (c *Categorizer) audit(ctx context.Context, inputs []classifier.Input, results []classifier.Result, callErr error, started time.Time) {
	if c.auditor == nil {
		return
	}
	a := classifier.Audit{
		RunID:     uuid.New().String(),
		Provider:  c.classifier.Name(),
		Inputs:    inputs,
		Results:   results,
		StartedAt: started,
		Duration:  c.now().Sub(started),
	}
	if callErr != nil {
		a.Err = callErr.Error()
	}
	if err := c.auditor.RecordClassification(ctx, a); err != nil {
		c.log.Warn().Err(err).Str("run_id", a.RunID).Msg("Failed to record classifier audit")
	}
}

// SyncProcess runs ProcessBatch and reports the number of requested ids.
func (c *Categorizer) SyncProcess(ctx context.Context, ids []string) SyncResult {
	if err := c.ProcessBatch(ctx, ids); err != nil {
		c.log.Error().Err(err).Int("count", len(ids)).Msg("Categorization sync failed")
		return SyncResult{Success: false, Processed: 0}
	}
	return SyncResult{Success: true, Processed: len(ids)}
}

// ProcessPending categorizes up to limit unprocessed transactions, oldest first,
// and returns how many were picked up.
func (c *Categorizer) ProcessPending(ctx context.Context, limit int) (int, error) {
	ids, err := c.store.ListUnprocessedIDs(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("Categorizer.ProcessPending: list ids: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := c.ProcessBatch(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// HandleJob adapts the categorizer to the job queue.
func (c *Categorizer) HandleJob(ctx context.Context, job jobs.Job) error {
	cj, ok := job.(*jobs.CategorizeJob)
	if !ok {
		return fmt.Errorf("Categorizer.HandleJob: unsupported job type %s", job.GetType())
	}
	return c.ProcessBatch(ctx, cj.TransactionIDs)
}
