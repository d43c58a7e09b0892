// Package pricing computes reservation costs. Cost is a pure function of the
// lot tariff, the billing kind, the duration and the vehicle class; callers
// enforce minimum durations before calling.
package pricing

import (
	"aparca/internal/db"
	"aparca/internal/money"
)

// Minimum duration in minutes per reservation kind.
const (
	MinHourlyMinutes  = 60
	MinDailyMinutes   = 1440
	MinMonthlyMinutes = 43200
)

// GraceMinutes is the free window after actual parking start during which
// checkout costs nothing.
const GraceMinutes = 15

func multiplier(class string) float64 {
	switch class {
	case db.ClassCar:
		return 1.0
	case db.ClassMotorcycle:
		return 0.7
	case db.ClassTruck:
		return 1.3
	default:
		return 1.0
	}
}

// Cost returns the price for a reservation of the given kind and duration,
// rounded to whole cents. An unknown kind falls back to the hourly formula.
func Cost(hourlyRate money.Amount, kind string, durationMinutes int, class string) money.Amount {
	rate := hourlyRate.Float()
	perMinute := rate / 60.0
	mult := multiplier(class)
	d := float64(durationMinutes)

	var cost float64
	switch kind {
	case db.KindDaily:
		cost = rate * 24 * (d / 1440) * mult
	case db.KindMonthly:
		cost = rate * 24 * 30 * (d / 43200) * mult
	default:
		cost = perMinute * d * mult
	}
	return money.FromFloat(cost)
}

// Settlement returns the checkout cost for the actual elapsed time. The
// first GraceMinutes are free; past that, billing is always by the hourly
// per-minute rate regardless of the reservation kind.
func Settlement(hourlyRate money.Amount, elapsedMinutes float64) money.Amount {
	if elapsedMinutes <= GraceMinutes {
		return 0
	}
	perMinute := hourlyRate.Float() / 60.0
	return money.FromFloat(perMinute * (elapsedMinutes - GraceMinutes))
}

// MinDuration returns the minimum duration in minutes for a kind, or false
// for an unknown kind.
func MinDuration(kind string) (int, bool) {
	switch kind {
	case db.KindHourly:
		return MinHourlyMinutes, true
	case db.KindDaily:
		return MinDailyMinutes, true
	case db.KindMonthly:
		return MinMonthlyMinutes, true
	default:
		return 0, false
	}
}
