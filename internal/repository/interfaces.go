package repository

import (
	"context"
	"time"

	"aparca/internal/db"
	"aparca/internal/entities"
)

// ReservationTx is the set of operations available inside a reservation
// transaction. LockLot must be called before reading or mutating the lot's
// space counter; the lock is held until the transaction ends.
type ReservationTx interface {
	LockLot(lotID int) (*db.ParkingLot, error)
	AdjustLotSpaces(lotID, delta int) (available, total int, err error)
	VehicleHasOverlap(vehicleID int, start, end time.Time) (bool, error)
	InsertReservation(res *db.Reservation) error
	GetReservationForUpdate(code string) (*db.Reservation, error)
	UpdateReservation(res *db.Reservation) error
}

type ReservationStore interface {
	InTx(ctx context.Context, fn func(tx ReservationTx) error) error
	GetByCode(ctx context.Context, code string) (*db.Reservation, error)
	ListByUser(ctx context.Context, userID int) ([]db.Reservation, error)
	ListAll(ctx context.Context) ([]db.Reservation, error)
	GetVehicle(ctx context.Context, id int) (*db.Vehicle, error)
}

// PaymentTx is the set of operations available inside a payment transaction.
type PaymentTx interface {
	GetReservationForUpdateByID(id string) (*db.Reservation, error)
	UpdateReservationStatus(id, status string) error
	GetLot(id int) (*db.ParkingLot, error)
	InsertPayment(p *db.Payment) error
	GetPaymentForUpdate(id string) (*db.Payment, error)
	UpdatePayment(p *db.Payment) error
	AppendHistory(h *db.PaymentHistory) error
}

type PaymentStore interface {
	InTx(ctx context.Context, fn func(tx PaymentTx) error) error
	GetPayment(ctx context.Context, id string) (*db.Payment, error)
	ListPendingByUser(ctx context.Context, userID int) ([]db.Payment, error)
	ListPendingWalletIDs(ctx context.Context, olderThan time.Duration) ([]string, error)
	Stats(ctx context.Context) (*entities.PaymentStats, error)
}
