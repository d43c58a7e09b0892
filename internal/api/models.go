package api

import (
	"fmt"
	"time"

	"aparca/internal/db"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type CreateReservationRequest struct {
	UserEmail       string `json:"user_email" validate:"omitempty,email"`
	UserPhone       string `json:"user_phone" validate:"omitempty,e164"`
	VehicleID       int    `json:"vehicle_id" validate:"required"`
	LotID           int    `json:"lot_id" validate:"required"`
	Kind            string `json:"kind" validate:"required,oneof=hora dia mes hourly daily monthly"`
	StartTime       string `json:"start_time" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
}

type ExtendReservationRequest struct {
	ExtraMinutes int `json:"extra_minutes" validate:"required,gt=0"`
}

type CreatePaymentRequest struct {
	ReservationID string `json:"reservation_id" validate:"required,uuid4"`
	Method        string `json:"method" validate:"required,oneof=card yape plin cash"`
	Token         string `json:"token"`
}

type RefundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

type CreateLotRequest struct {
	Name        string  `json:"name" validate:"required"`
	Address     string  `json:"address" validate:"required"`
	HourlyRate  string  `json:"hourly_rate" validate:"required"`
	DayRate     *string `json:"day_rate"`
	MonthRate   *string `json:"month_rate"`
	TotalSpaces int     `json:"total_spaces" validate:"required,gt=0"`
}

type CreateVehicleRequest struct {
	Plate string `json:"plate" validate:"required"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Class string `json:"class" validate:"required,oneof=car motorcycle truck"`
}

type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// parseStartTime accepts RFC3339 or a plain "2006-01-02 15:04:05" stamp,
// which is what the mobile clients send.
func parseStartTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", value)
}

// reservationKind maps a wire token to the stored reservation kind. The
// Spanish tokens are what the mobile clients send; the English forms are
// accepted as aliases.
func reservationKind(token string) (string, error) {
	switch token {
	case "hora", db.KindHourly:
		return db.KindHourly, nil
	case "dia", db.KindDaily:
		return db.KindDaily, nil
	case "mes", db.KindMonthly:
		return db.KindMonthly, nil
	}
	return "", fmt.Errorf("unknown reservation kind %q", token)
}
