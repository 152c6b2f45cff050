package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nweremizu/helm/internal/domain"
)

func TestCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := New()

	in := domain.NewTransaction{UserID: "u1", AccountID: "a1", ExternalID: "mono_1", Amount: 500, Type: domain.TransactionTypeDebit}

	id, created, err := s.CreateIfAbsent(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := s.CreateIfAbsent(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, s.Count())

	txs, err := s.GetTransactions(ctx, []string{id})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "NGN", txs[0].Currency)
	assert.False(t, txs[0].IsProcessed)
}

func TestListRules_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, kw := range []string{"uber", "BOLT", "Uber Eats"} {
		_, err := s.CreateRuleIfAbsent(ctx, domain.MerchantRule{Keyword: kw})
		require.NoError(t, err)
	}

	rules, err := s.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "UBER", rules[0].Keyword)
	assert.Equal(t, "BOLT", rules[1].Keyword)
	assert.Equal(t, "UBER EATS", rules[2].Keyword)
}

func TestUpsertLearnedRule(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.UpsertLearnedRule(ctx, domain.MerchantRule{Keyword: "netflix", CleanName: "Netflix"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.UpsertLearnedRule(ctx, domain.MerchantRule{Keyword: "NETFLIX", CleanName: "Other name"})
	require.NoError(t, err)
	assert.False(t, created)

	r, ok := s.Rule("NETFLIX")
	require.True(t, ok)
	assert.Equal(t, 2, r.MatchCount)
	assert.Equal(t, "Netflix", r.CleanName)
}

func TestListSimilarInWindow_Inclusive(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	name := domain.StringPtr("Netflix")

	self := s.Insert(domain.Transaction{UserID: "u1", Amount: 100, CleanName: name, Date: base})
	s.Insert(domain.Transaction{UserID: "u1", Amount: 100, CleanName: name, Date: base.Add(30 * time.Minute)})
	s.Insert(domain.Transaction{UserID: "u1", Amount: 100, CleanName: name, Date: base.Add(31 * time.Minute)})
	s.Insert(domain.Transaction{UserID: "u2", Amount: 100, CleanName: name, Date: base})

	got, err := s.ListSimilarInWindow(ctx, "u1", self.ID, 100, name, base.Add(-30*time.Minute), base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListSimilarInWindow_NilNameMatchesOtherNilNames(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	self := s.Insert(domain.Transaction{UserID: "u1", Amount: 100, OriginalNarration: "POS 0001 LAGOS", Date: base})
	other := s.Insert(domain.Transaction{UserID: "u1", Amount: 100, OriginalNarration: "WEB PAYMENT 77", Date: base.Add(5 * time.Minute)})
	s.Insert(domain.Transaction{UserID: "u1", Amount: 100, CleanName: domain.StringPtr("Netflix"), Date: base.Add(5 * time.Minute)})

	// Narration is not compared: any nil-named row with the same amount matches.
	got, err := s.ListSimilarInWindow(ctx, "u1", self.ID, 100, nil, base.Add(-30*time.Minute), base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, other.ID, got[0].ID)
}

func TestSumDebitsByCategory(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	s.Insert(domain.Transaction{UserID: "u1", Type: domain.TransactionTypeDebit, Amount: 100, CleanCategory: domain.StringPtr("Transport"), Date: day})
	s.Insert(domain.Transaction{UserID: "u1", Type: domain.TransactionTypeDebit, Amount: 50, CleanCategory: domain.StringPtr("Transport"), Date: day})
	s.Insert(domain.Transaction{UserID: "u1", Type: domain.TransactionTypeDebit, Amount: 70, Date: day})
	s.Insert(domain.Transaction{UserID: "u1", Type: domain.TransactionTypeCredit, Amount: 999, CleanCategory: domain.StringPtr("Income"), Date: day})
	s.Insert(domain.Transaction{UserID: "u1", Type: domain.TransactionTypeDebit, Amount: 5, CleanCategory: domain.StringPtr("Transport"), Date: day.AddDate(0, 0, 1)})

	sums, err := s.SumDebitsByCategory(ctx, "u1", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, "Transport", *sums[0].Category)
	assert.Equal(t, int64(150), sums[0].Total)
	assert.Nil(t, sums[1].Category)
	assert.Equal(t, int64(70), sums[1].Total)
}

func TestArchiveCreatedBefore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	clock := now.AddDate(0, 0, -40)
	s := New(WithClock(func() time.Time { return clock }))

	_, err := s.CreateInsight(ctx, domain.NewInsight{UserID: "u1", Title: "old"})
	require.NoError(t, err)
	clock = now
	_, err = s.CreateInsight(ctx, domain.NewInsight{UserID: "u1", Title: "new"})
	require.NoError(t, err)

	n, err := s.ArchiveCreatedBefore(ctx, now.AddDate(0, 0, -30), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread, err := s.ListUnread(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "new", unread[0].Title)
}
