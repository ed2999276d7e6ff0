package main

import (
	"context"
	"time"

	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	reconcileInterval = 1 * time.Minute
	reconcileBatch    = 200
)

// runReconciler keeps the assignments' fast-path payment summary consistent
// with the payment ledger. The ledger is the source of truth; nothing writes
// the summary field on the payment path itself, so a periodic sweep over
// completed payments marks the covered assignments PAID.
func runReconciler(ctx context.Context, engine *Engine) {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := reconcilePaymentSummaries(ctx, engine); err != nil {
				log.Error().Err(err).Msg("payment summary reconciliation failed")
			}
		}
	}
}

func reconcilePaymentSummaries(ctx context.Context, engine *Engine) error {
	payments, err := engine.Payments.ListByStatus(ctx, models.PaymentStatusCompleted, reconcileBatch)
	if err != nil {
		return err
	}

	var synced int
	for _, payment := range payments {
		for _, assignmentID := range payment.AssignmentIDs {
			if err := engine.Assignments.SyncPaymentSummary(ctx, assignmentID, models.PaymentSummaryPaid); err != nil {
				log.Error().
					Err(err).
					Str("payment_id", payment.ID.String()).
					Str("assignment_id", assignmentID.String()).
					Msg("failed to sync payment summary")
				continue
			}
			synced++
		}
	}

	if synced > 0 {
		log.Debug().Int("assignments", synced).Msg("reconciled payment summaries")
	}
	return nil
}
