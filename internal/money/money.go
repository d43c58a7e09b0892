package money

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value in whole cents. Arithmetic on Amount is exact;
// float64 only appears at the single rounding point in FromFloat.
type Amount int64

// FromFloat converts a value in major units (e.g. 120.004) to cents,
// rounding half away from zero.
func FromFloat(v float64) Amount {
	return Amount(math.Round(v * 100))
}

// FromCents wraps an already-exact cent count.
func FromCents(c int64) Amount { return Amount(c) }

// Parse reads a decimal string such as "120.00" or "84.5".
func Parse(s string) (Amount, error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	c := w*100 + f
	if neg {
		c = -c
	}
	return Amount(c), nil
}

func (a Amount) Cents() int64 { return int64(a) }

// Float returns the value in major units. For display prefer String.
func (a Amount) Float() float64 { return float64(a) / 100 }

// Percent returns rate% of the amount, rounded half away from zero.
func (a Amount) Percent(rate int) Amount {
	return FromFloat(float64(a) * float64(rate) / 100 / 100)
}

func (a Amount) String() string {
	c := int64(a)
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Value stores the amount as its cent count.
func (a Amount) Value() (driver.Value, error) { return int64(a), nil }

func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*a = Amount(v)
		return nil
	case []byte:
		p, err := Parse(string(v))
		if err != nil {
			return err
		}
		*a = p
		return nil
	default:
		return fmt.Errorf("cannot scan %T into money.Amount", src)
	}
}
