package service

import (
	"context"
	"log"
	"time"

	"aparca/internal/auth"
	"aparca/internal/repository"
)

// Wallet payments are retried after half an hour and written off after a day
// without a confirmed transfer.
const (
	walletRetryAfter   = 30 * time.Minute
	walletAbandonAfter = 24 * time.Hour
	cancelledKeepFor   = 90 * 24 * time.Hour
)

type JobService struct {
	Repo         *repository.JobRepository
	Reservations *ReservationService
	Payments     *PaymentService
}

func NewJobService(repo *repository.JobRepository, reservations *ReservationService, payments *PaymentService) *JobService {
	return &JobService{Repo: repo, Reservations: reservations, Payments: payments}
}

// FinishElapsedReservations settles every active reservation whose end time
// has passed, releasing its space and recording the final cost.
func (s *JobService) FinishElapsedReservations() {
	ctx := context.Background()
	codes, err := s.Repo.GetActiveCodesPastEndTime(ctx)
	if err != nil {
		log.Printf("cron: listing elapsed reservations: %v", err)
		return
	}
	if len(codes) == 0 {
		return
	}
	log.Printf("cron: finishing %d elapsed reservations", len(codes))
	for _, code := range codes {
		if err := s.Reservations.FinalizeElapsed(ctx, code); err != nil {
			log.Printf("cron: finalizing reservation %s: %v", code, err)
		}
	}
}

// RetryPendingWalletPayments re-drives wallet payments that have sat pending
// long enough for the transfer to have settled, and writes off the ones that
// never arrived.
func (s *JobService) RetryPendingWalletPayments() {
	ctx := context.Background()

	stale, err := s.Payments.Store.ListPendingWalletIDs(ctx, walletAbandonAfter)
	if err != nil {
		log.Printf("cron: listing abandoned wallet payments: %v", err)
	} else if len(stale) > 0 {
		log.Printf("cron: abandoning %d wallet payments", len(stale))
		if err := s.Repo.FailPayments(ctx, stale, "wallet transfer not received within 24h"); err != nil {
			log.Printf("cron: abandoning wallet payments: %v", err)
		}
	}

	ids, err := s.Payments.Store.ListPendingWalletIDs(ctx, walletRetryAfter)
	if err != nil {
		log.Printf("cron: listing pending wallet payments: %v", err)
		return
	}
	for _, id := range ids {
		if _, err := s.Payments.Process(ctx, auth.Actor{Role: auth.RoleAdmin}, id, ""); err != nil {
			log.Printf("cron: confirming wallet payment %s: %v", id, err)
		}
	}
}

// PurgeOldCancelled drops cancelled reservations past the retention window.
func (s *JobService) PurgeOldCancelled() {
	deleted, err := s.Repo.DeleteStaleCancelled(context.Background(), time.Now().UTC().Add(-cancelledKeepFor))
	if err != nil {
		log.Printf("cron: purging cancelled reservations: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("cron: purged %d cancelled reservations", deleted)
	}
}
