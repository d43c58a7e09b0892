package pricing

import (
	"testing"

	"aparca/internal/db"
	"aparca/internal/money"

	"github.com/stretchr/testify/assert"
)

func TestCost(t *testing.T) {
	tests := []struct {
		name     string
		rate     string
		kind     string
		duration int
		class    string
		want     string
	}{
		{"hourly car two hours", "60.00", db.KindHourly, 120, db.ClassCar, "120.00"},
		{"hourly motorcycle two hours", "60.00", db.KindHourly, 120, db.ClassMotorcycle, "84.00"},
		{"hourly truck two hours", "60.00", db.KindHourly, 120, db.ClassTruck, "156.00"},
		{"hourly car one hour", "5.50", db.KindHourly, 60, db.ClassCar, "5.50"},
		{"hourly partial minute rounding", "1.00", db.KindHourly, 7, db.ClassCar, "0.12"},
		{"daily car one day", "24.00", db.KindDaily, 1440, db.ClassCar, "576.00"},
		{"daily motorcycle one day", "24.00", db.KindDaily, 1440, db.ClassMotorcycle, "403.20"},
		{"daily car three days", "10.00", db.KindDaily, 4320, db.ClassCar, "720.00"},
		{"monthly car one month", "2.00", db.KindMonthly, 43200, db.ClassCar, "1440.00"},
		{"monthly truck one month", "2.00", db.KindMonthly, 43200, db.ClassTruck, "1872.00"},
		{"unknown class defaults to car", "60.00", db.KindHourly, 60, "bus", "60.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := money.Parse(tt.rate)
			assert.NoError(t, err)
			got := Cost(rate, tt.kind, tt.duration, tt.class)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestSettlement(t *testing.T) {
	rate, _ := money.Parse("60.00")

	tests := []struct {
		name    string
		elapsed float64
		want    string
	}{
		{"inside grace window", 10, "0.00"},
		{"exactly at grace window", 15, "0.00"},
		{"one minute past grace", 16, "1.00"},
		{"one hour past grace", 75, "60.00"},
		{"zero elapsed", 0, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Settlement(rate, tt.elapsed).String())
		})
	}
}

func TestMinDuration(t *testing.T) {
	m, ok := MinDuration(db.KindHourly)
	assert.True(t, ok)
	assert.Equal(t, 60, m)

	m, ok = MinDuration(db.KindDaily)
	assert.True(t, ok)
	assert.Equal(t, 1440, m)

	m, ok = MinDuration(db.KindMonthly)
	assert.True(t, ok)
	assert.Equal(t, 43200, m)

	_, ok = MinDuration("weekly")
	assert.False(t, ok)
}
