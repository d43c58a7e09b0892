package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		cents   int64
		wantErr bool
	}{
		{"120.00", 12000, false},
		{"84.5", 8450, false},
		{"0.07", 7, false},
		{"5", 500, false},
		{"-3.25", -325, false},
		{".50", 50, false},
		{"1.234", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.cents, got.Cents(), tt.in)
	}
}

func TestFromFloatRounding(t *testing.T) {
	assert.Equal(t, int64(12), FromFloat(0.116667).Cents())
	assert.Equal(t, int64(100), FromFloat(0.996).Cents())
	assert.Equal(t, int64(-100), FromFloat(-0.996).Cents())
	assert.Equal(t, int64(0), FromFloat(0).Cents())
}

func TestString(t *testing.T) {
	assert.Equal(t, "120.00", FromCents(12000).String())
	assert.Equal(t, "0.07", FromCents(7).String())
	assert.Equal(t, "-3.25", FromCents(-325).String())
}

func TestPercent(t *testing.T) {
	// 30% commission on 50.00 is 15.00, payout is 35.00.
	amount := FromCents(5000)
	commission := amount.Percent(30)
	assert.Equal(t, "15.00", commission.String())
	assert.Equal(t, "35.00", (amount - commission).String())

	// Odd cent counts round half away from zero.
	assert.Equal(t, int64(30), FromCents(99).Percent(30).Cents())
}

func TestJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(FromCents(8450))
	assert.NoError(t, err)
	assert.Equal(t, `"84.50"`, string(b))

	var a Amount
	assert.NoError(t, json.Unmarshal([]byte(`"120.00"`), &a))
	assert.Equal(t, int64(12000), a.Cents())
}
