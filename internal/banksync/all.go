package banksync

import (
	"context"
	"fmt"

	"github.com/Nweremizu/helm/internal/domain"
)

// AccountLister lists every linked account.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]domain.LinkedAccount, error)
}

// SyncAll syncs every linked account in turn. A failing account is logged and
// skipped; the number of new transactions across all accounts is returned.
func (o *Orchestrator) SyncAll(ctx context.Context, accounts AccountLister) (int, error) {
	list, err := accounts.ListAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("SyncAll: list accounts: %w", err)
	}

	total := 0
	for _, acc := range list {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		res, err := o.SyncAccount(ctx, acc.ID, acc.ExternalAccountID, acc.UserID)
		if err != nil {
			o.log.Error().Err(err).Str("account_id", acc.ID).Msg("Account sync failed")
			continue
		}
		total += res.Synced
	}
	return total, nil
}
