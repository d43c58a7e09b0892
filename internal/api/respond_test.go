package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aparca/internal/apperr"
	"aparca/internal/db"

	"github.com/stretchr/testify/assert"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.Validation("bad input"), http.StatusBadRequest},
		{apperr.Conflict("taken"), http.StatusConflict},
		{apperr.State("wrong state"), http.StatusUnprocessableEntity},
		{apperr.Permission("not yours"), http.StatusForbidden},
		{apperr.NotFound("nope"), http.StatusNotFound},
		{apperr.Gateway(errors.New("declined"), "charge failed"), http.StatusBadGateway},
		{apperr.Invariant("counter out of bounds"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, tt.err)
		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("pq: connection refused"))
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestParseStartTime(t *testing.T) {
	got, err := parseStartTime("2026-03-10T12:00:00Z")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), got)

	got, err = parseStartTime("2026-03-10 12:00:00")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), got)

	_, err = parseStartTime("10/03/2026")
	assert.Error(t, err)
}

func TestReservationKindTokens(t *testing.T) {
	tests := map[string]string{
		"hora":    db.KindHourly,
		"dia":     db.KindDaily,
		"mes":     db.KindMonthly,
		"hourly":  db.KindHourly,
		"daily":   db.KindDaily,
		"monthly": db.KindMonthly,
	}
	for token, want := range tests {
		got, err := reservationKind(token)
		assert.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}

	_, err := reservationKind("semana")
	assert.Error(t, err)
}
