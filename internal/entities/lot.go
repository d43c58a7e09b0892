package entities

import (
	"time"

	"aparca/internal/money"
)

type CreateLotInput struct {
	OwnerID     int
	Name        string
	Address     string
	HourlyRate  money.Amount
	DayRate     *money.Amount
	MonthRate   *money.Amount
	TotalSpaces int
}

type LotResponse struct {
	ID              int           `json:"id"`
	Name            string        `json:"name"`
	Address         string        `json:"address"`
	HourlyRate      money.Amount  `json:"hourly_rate"`
	DayRate         *money.Amount `json:"day_rate,omitempty"`
	MonthRate       *money.Amount `json:"month_rate,omitempty"`
	TotalSpaces     int           `json:"total_spaces"`
	AvailableSpaces int           `json:"available_spaces"`
	Approved        bool          `json:"approved"`
	Active          bool          `json:"active"`
}

type AvailabilityResponse struct {
	LotID           int       `json:"lot_id"`
	TotalSpaces     int       `json:"total_spaces"`
	AvailableSpaces int       `json:"available_spaces"`
	CheckedAt       time.Time `json:"checked_at"`
}
