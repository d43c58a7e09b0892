package db

import (
	"database/sql"
	"time"

	"aparca/internal/money"
)

// Reservation kinds.
const (
	KindHourly  = "hourly"
	KindDaily   = "daily"
	KindMonthly = "monthly"
)

// Vehicle classes.
const (
	ClassCar        = "car"
	ClassMotorcycle = "motorcycle"
	ClassTruck      = "truck"
)

// Reservation statuses.
const (
	ReservationActive    = "active"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
	ReservationFinalized = "finalized"
)

// Payment statuses.
const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentPaid       = "paid"
	PaymentRefunded   = "refunded"
	PaymentFailed     = "failed"
)

// Payment methods.
const (
	MethodCard = "card"
	MethodYape = "yape"
	MethodPlin = "plin"
	MethodCash = "cash"
)

type ParkingLot struct {
	ID              int
	OwnerID         int
	Name            string
	Address         string
	HourlyRate      money.Amount
	DayRate         *money.Amount
	MonthRate       *money.Amount
	TotalSpaces     int
	AvailableSpaces int
	Approved        bool
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Vehicle struct {
	ID        int
	UserID    int
	Plate     string
	Make      string
	Model     string
	Class     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Reservation struct {
	ID              string
	Code            string
	UserID          int
	UserEmail       string
	UserPhone       string
	VehicleID       int
	LotID           int
	Kind            string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Cost            money.Amount
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Payment struct {
	ID             string
	Reference      string
	ReservationID  string
	UserID         int
	Amount         money.Amount
	Currency       string
	Method         string
	Status         string
	Commission     money.Amount
	OwnerPayout    money.Amount
	RefundedAmount money.Amount
	Attempts       int
	LastError      sql.NullString
	CreatedAt      time.Time
	PaidAt         sql.NullTime
	RefundedAt     sql.NullTime
}

type PaymentHistory struct {
	ID         int
	PaymentID  string
	FromStatus string
	ToStatus   string
	Message    string
	CreatedAt  time.Time
}
