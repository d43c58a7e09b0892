package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"aparca/internal/apperr"
	"aparca/internal/auth"
	"aparca/internal/db"
	"aparca/internal/entities"
	"aparca/internal/pricing"
	"aparca/internal/repository"

	"github.com/google/uuid"
)

// CheckInWindowMinutes is how early a client may check in before the
// reserved start time.
const CheckInWindowMinutes = 30

// Notifier receives reservation lifecycle events. Implementations must not
// block; delivery is best effort.
type Notifier interface {
	ReservationStatus(res *db.Reservation, status string)
}

type ReservationService struct {
	Store    repository.ReservationStore
	Notifier Notifier

	// now is replaceable in tests.
	now func() time.Time
}

func NewReservationService(store repository.ReservationStore, notifier Notifier) *ReservationService {
	return &ReservationService{Store: store, Notifier: notifier, now: func() time.Time { return time.Now().UTC() }}
}

// Create validates the request and, inside one transaction holding the lot's
// row lock, decrements availability, prices the reservation and persists it.
// Two concurrent creates against a lot with one free space cannot both
// succeed: the second sees the decremented counter under the lock.
func (s *ReservationService) Create(ctx context.Context, in entities.CreateReservationInput) (*entities.ReservationResponse, error) {
	minDuration, ok := pricing.MinDuration(in.Kind)
	if !ok {
		return nil, apperr.Validation("unknown reservation kind %q", in.Kind)
	}
	if in.DurationMinutes < minDuration {
		return nil, apperr.Validation("minimum duration for %s reservations is %d minutes", in.Kind, minDuration)
	}
	if in.StartTime.Before(s.now()) {
		return nil, apperr.Validation("reservations cannot start in the past")
	}

	vehicle, err := s.Store.GetVehicle(ctx, in.VehicleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("vehicle %d not found", in.VehicleID)
		}
		return nil, err
	}
	if vehicle.UserID != in.UserID {
		return nil, apperr.Permission("vehicle does not belong to you")
	}
	if !vehicle.Active {
		return nil, apperr.Validation("vehicle is no longer active")
	}

	endTime := in.StartTime.Add(time.Duration(in.DurationMinutes) * time.Minute)
	res := &db.Reservation{
		ID:              uuid.NewString(),
		Code:            newCode(),
		UserID:          in.UserID,
		UserEmail:       in.UserEmail,
		UserPhone:       in.UserPhone,
		VehicleID:       in.VehicleID,
		LotID:           in.LotID,
		Kind:            in.Kind,
		StartTime:       in.StartTime,
		EndTime:         endTime,
		DurationMinutes: in.DurationMinutes,
		Status:          db.ReservationActive,
		CreatedAt:       s.now(),
		UpdatedAt:       s.now(),
	}

	err = s.Store.InTx(ctx, func(tx repository.ReservationTx) error {
		lot, err := tx.LockLot(in.LotID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("parking lot %d not found", in.LotID)
			}
			return err
		}
		if !lot.Approved || !lot.Active {
			return apperr.Conflict("parking lot is not available")
		}
		if in.Kind == db.KindDaily && lot.DayRate == nil {
			return apperr.Validation("this lot does not accept daily reservations")
		}
		if in.Kind == db.KindMonthly && lot.MonthRate == nil {
			return apperr.Validation("this lot does not accept monthly reservations")
		}
		if lot.AvailableSpaces <= 0 {
			return apperr.Conflict("no spaces available")
		}

		overlap, err := tx.VehicleHasOverlap(in.VehicleID, in.StartTime, endTime)
		if err != nil {
			return err
		}
		if overlap {
			return apperr.Conflict("vehicle already has a reservation in that window")
		}

		available, total, err := tx.AdjustLotSpaces(in.LotID, -1)
		if err != nil {
			return err
		}
		if available < 0 || available > total {
			return apperr.Invariant("lot %d spaces out of bounds: %d/%d", in.LotID, available, total)
		}

		res.Cost = pricing.Cost(lot.HourlyRate, in.Kind, in.DurationMinutes, vehicle.Class)
		return tx.InsertReservation(res)
	})
	if err != nil {
		return nil, err
	}

	s.notify(res, "created")
	return reservationResponse(res), nil
}

// Cancel releases the space and marks the reservation cancelled. Allowed
// only while the reservation is active and strictly before its start time.
func (s *ReservationService) Cancel(ctx context.Context, actor auth.Actor, code string) (*entities.ReservationResponse, error) {
	var res *db.Reservation
	err := s.Store.InTx(ctx, func(tx repository.ReservationTx) error {
		var err error
		res, err = s.lockOwned(tx, actor, code)
		if err != nil {
			return err
		}
		if res.Status != db.ReservationActive {
			return apperr.State("only active reservations can be cancelled")
		}
		if !s.now().Before(res.StartTime) {
			return apperr.State("reservation already started")
		}
		if err := s.releaseSpace(tx, res.LotID); err != nil {
			return err
		}
		res.Status = db.ReservationCancelled
		return tx.UpdateReservation(res)
	})
	if err != nil {
		return nil, err
	}

	s.notify(res, "cancelled")
	return reservationResponse(res), nil
}

// Extend lengthens an active reservation and adds the incremental cost,
// billed with the hourly formula for the extra minutes.
func (s *ReservationService) Extend(ctx context.Context, actor auth.Actor, code string, extraMinutes int) (*entities.ReservationResponse, error) {
	if extraMinutes <= 0 {
		return nil, apperr.Validation("extra minutes must be positive")
	}

	var res *db.Reservation
	err := s.Store.InTx(ctx, func(tx repository.ReservationTx) error {
		var err error
		res, err = s.lockOwned(tx, actor, code)
		if err != nil {
			return err
		}
		if res.Status != db.ReservationActive {
			return apperr.State("only active reservations can be extended")
		}
		lot, err := tx.LockLot(res.LotID)
		if err != nil {
			return err
		}
		vehicle, err := s.Store.GetVehicle(ctx, res.VehicleID)
		if err != nil {
			return err
		}
		extra := pricing.Cost(lot.HourlyRate, db.KindHourly, extraMinutes, vehicle.Class)
		res.EndTime = res.EndTime.Add(time.Duration(extraMinutes) * time.Minute)
		res.DurationMinutes += extraMinutes
		res.Cost += extra
		return tx.UpdateReservation(res)
	})
	if err != nil {
		return nil, err
	}
	return reservationResponse(res), nil
}

// CheckIn confirms the reservation without changing state. Permitted only
// within the 30-minute window before the start time.
func (s *ReservationService) CheckIn(ctx context.Context, actor auth.Actor, code string) (*entities.ReservationResponse, error) {
	res, err := s.getOwned(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	if res.Status != db.ReservationActive {
		return nil, apperr.State("reservation is not active")
	}
	if res.StartTime.Sub(s.now()) > CheckInWindowMinutes*time.Minute {
		return nil, apperr.State("check-in opens %d minutes before the start time", CheckInWindowMinutes)
	}
	return reservationResponse(res), nil
}

// CheckOut settles the reservation from real usage: the space is released,
// elapsed time is measured from the reserved start to now, the first
// 15 minutes are free, and the rest is billed by the hourly per-minute rate
// whatever the original kind. The estimate is intentionally discarded.
func (s *ReservationService) CheckOut(ctx context.Context, actor auth.Actor, code string) (*entities.CheckOutResponse, error) {
	var res *db.Reservation
	var elapsed float64
	err := s.Store.InTx(ctx, func(tx repository.ReservationTx) error {
		var err error
		res, err = s.lockOwned(tx, actor, code)
		if err != nil {
			return err
		}
		if res.Status != db.ReservationActive {
			return apperr.State("only active reservations can be checked out")
		}
		lot, err := tx.LockLot(res.LotID)
		if err != nil {
			return err
		}
		if err := s.releaseSpace(tx, res.LotID); err != nil {
			return err
		}

		checkoutAt := s.now()
		elapsed = checkoutAt.Sub(res.StartTime).Minutes()
		if elapsed < 0 {
			elapsed = 0
		}
		res.Cost = pricing.Settlement(lot.HourlyRate, elapsed)
		res.EndTime = checkoutAt
		res.DurationMinutes = int(elapsed)
		res.Status = db.ReservationFinalized
		return tx.UpdateReservation(res)
	})
	if err != nil {
		return nil, err
	}

	s.notify(res, "finalized")
	return &entities.CheckOutResponse{
		FinalCost:      res.Cost,
		ElapsedMinutes: elapsed,
		Reservation:    *reservationResponse(res),
	}, nil
}

// FinalizeElapsed settles an active reservation that ran past its end time
// without a checkout. Called by the expiry job; billing stops at the
// scheduled end time.
func (s *ReservationService) FinalizeElapsed(ctx context.Context, code string) error {
	return s.Store.InTx(ctx, func(tx repository.ReservationTx) error {
		res, err := tx.GetReservationForUpdate(code)
		if err != nil {
			return err
		}
		if res.Status != db.ReservationActive {
			return nil // settled by a concurrent checkout
		}
		lot, err := tx.LockLot(res.LotID)
		if err != nil {
			return err
		}
		if err := s.releaseSpace(tx, res.LotID); err != nil {
			return err
		}
		elapsed := res.EndTime.Sub(res.StartTime).Minutes()
		res.Cost = pricing.Settlement(lot.HourlyRate, elapsed)
		res.DurationMinutes = int(elapsed)
		res.Status = db.ReservationFinalized
		return tx.UpdateReservation(res)
	})
}

func (s *ReservationService) Get(ctx context.Context, actor auth.Actor, code string) (*entities.ReservationResponse, error) {
	res, err := s.getOwned(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	return reservationResponse(res), nil
}

func (s *ReservationService) ListMine(ctx context.Context, userID int) (*entities.ReservationsList, error) {
	rows, err := s.Store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return reservationsList(rows), nil
}

func (s *ReservationService) ListAll(ctx context.Context) (*entities.ReservationsList, error) {
	rows, err := s.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return reservationsList(rows), nil
}

func (s *ReservationService) getOwned(ctx context.Context, actor auth.Actor, code string) (*db.Reservation, error) {
	res, err := s.Store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("reservation %s not found", code)
		}
		return nil, err
	}
	if !actor.CanManageReservation(res) {
		return nil, apperr.Permission("reservation does not belong to you")
	}
	return res, nil
}

func (s *ReservationService) lockOwned(tx repository.ReservationTx, actor auth.Actor, code string) (*db.Reservation, error) {
	res, err := tx.GetReservationForUpdate(code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("reservation %s not found", code)
		}
		return nil, err
	}
	if !actor.CanManageReservation(res) {
		return nil, apperr.Permission("reservation does not belong to you")
	}
	return res, nil
}

// releaseSpace increments the lot counter and verifies the bounds; a breach
// aborts the transaction.
func (s *ReservationService) releaseSpace(tx repository.ReservationTx, lotID int) error {
	available, total, err := tx.AdjustLotSpaces(lotID, +1)
	if err != nil {
		return err
	}
	if available < 0 || available > total {
		return apperr.Invariant("lot %d spaces out of bounds: %d/%d", lotID, available, total)
	}
	return nil
}

func (s *ReservationService) notify(res *db.Reservation, status string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.ReservationStatus(res, status)
}

func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func reservationResponse(res *db.Reservation) *entities.ReservationResponse {
	return &entities.ReservationResponse{
		ID:              res.ID,
		Code:            res.Code,
		VehicleID:       res.VehicleID,
		LotID:           res.LotID,
		Kind:            res.Kind,
		StartTime:       res.StartTime,
		EndTime:         res.EndTime,
		DurationMinutes: res.DurationMinutes,
		Cost:            res.Cost,
		Status:          res.Status,
		CreatedAt:       res.CreatedAt,
		UpdatedAt:       res.UpdatedAt,
	}
}

func reservationsList(rows []db.Reservation) *entities.ReservationsList {
	list := &entities.ReservationsList{Total: len(rows)}
	for i := range rows {
		list.Reservations = append(list.Reservations, *reservationResponse(&rows[i]))
	}
	if list.Reservations == nil {
		list.Reservations = []entities.ReservationResponse{}
	}
	return list
}
