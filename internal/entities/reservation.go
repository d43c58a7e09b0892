package entities

import (
	"time"

	"aparca/internal/money"
)

// CreateReservationInput is the service-level input for a new reservation.
// StartTime is already parsed; the API layer accepts RFC3339 or
// "2006-01-02 15:04:05".
type CreateReservationInput struct {
	UserID          int
	UserEmail       string
	UserPhone       string
	VehicleID       int
	LotID           int
	Kind            string
	StartTime       time.Time
	DurationMinutes int
}

type ReservationResponse struct {
	ID              string       `json:"id"`
	Code            string       `json:"code"`
	VehicleID       int          `json:"vehicle_id"`
	LotID           int          `json:"lot_id"`
	Kind            string       `json:"kind"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         time.Time    `json:"end_time"`
	DurationMinutes int          `json:"duration_minutes"`
	Cost            money.Amount `json:"cost"`
	Status          string       `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type CheckOutResponse struct {
	FinalCost      money.Amount        `json:"final_cost"`
	ElapsedMinutes float64             `json:"elapsed_minutes"`
	Reservation    ReservationResponse `json:"reservation"`
}

type ReservationsList struct {
	Total        int                   `json:"total"`
	Reservations []ReservationResponse `json:"reservations"`
}
