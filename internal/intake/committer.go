package intake

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/partflow-io/partflow/internal/domain"
	"github.com/partflow-io/partflow/internal/infra/observability"
)

// Committer submits the cart as a sequence of independent per-line
// requests. The backend has no multi-row transaction, so there is no
// rollback: each line succeeds or fails on its own. Committed lines are
// removed from the ledger immediately, which is what makes re-running
// commit after a partial failure safe — only the failed remainder is
// retried, and nothing is double-counted.
type Committer struct {
	svc domain.InventoryService
	log *zap.Logger
}

// NewCommitter creates a committer over the inventory service.
func NewCommitter(svc domain.InventoryService, log *zap.Logger) *Committer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Committer{svc: svc, log: log.Named("commit")}
}

// Commit submits every ledger line sequentially, awaiting each outcome
// before issuing the next. Preconditions (non-empty cart, actor and
// destination present) are checked before any network call; a violation
// returns an error and performs no I/O. A partial failure is not an
// error: the result carries per-line outcomes and the ledger retains
// exactly the failed lines.
func (c *Committer) Commit(ctx context.Context, ledger *Ledger, tc domain.TransactionContext) (domain.TransactionResult, error) {
	if ledger.Len() == 0 {
		return domain.TransactionResult{}, domain.ErrEmptyCart
	}
	if err := tc.Validate(); err != nil {
		return domain.TransactionResult{}, err
	}
	if tc.BatchID == "" {
		tc.BatchID = uuid.NewString()
	}

	result := domain.TransactionResult{BatchID: tc.BatchID}
	for _, line := range ledger.Lines() {
		var err error
		switch line.Origin {
		case domain.OriginManual:
			err = c.svc.CommitManualLine(ctx, line, tc)
		default:
			err = c.svc.CommitCatalogLine(ctx, line, tc)
		}

		if err != nil {
			result.Failed++
			result.Lines = append(result.Lines, domain.LineOutcome{
				Key:     line.Key,
				Outcome: domain.OutcomeFailed,
				Error:   err.Error(),
			})
			observability.CommitLines.WithLabelValues(string(line.Origin), "failed").Inc()
			c.log.Warn("commit line failed",
				zap.String("batch_id", tc.BatchID),
				zap.String("key", line.Key),
				zap.Error(err))
			continue
		}

		result.Committed++
		result.Lines = append(result.Lines, domain.LineOutcome{
			Key:     line.Key,
			Outcome: domain.OutcomeCommitted,
		})
		ledger.Remove(line.Key)
		observability.CommitLines.WithLabelValues(string(line.Origin), "committed").Inc()
	}

	disposition := "full"
	if !result.AllCommitted() {
		disposition = "partial"
	}
	observability.CommitBatches.WithLabelValues(disposition).Inc()
	c.log.Info("commit batch finished",
		zap.String("batch_id", tc.BatchID),
		zap.String("workflow", string(tc.Workflow)),
		zap.Int("committed", result.Committed),
		zap.Int("failed", result.Failed))
	return result, nil
}
