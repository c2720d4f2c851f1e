package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squash сводит пробельные символы к одному пробелу, чтобы сравнивать SQL без учёта отступов
func squash(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

func TestBuildUpdateQuery(t *testing.T) {
	id := uuid.New()
	at := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	changes := SlotChanges{
		IsAvailable: false,
		SubjectID:   model.StringPtr("cand-1"),
		OwnerID:     model.StringPtr("rec-1"),
		Notes:       model.StringPtr("first round"),
		UpdatedAt:   at,
	}

	const prefix = "UPDATE interview_slots SET is_available = $2, subject_id = $3, owner_id = $4, notes = $5, updated_at = $6 WHERE id = $1"
	const returning = " RETURNING " + slotColumns

	tests := []struct {
		name      string
		guard     UpdateGuard
		wantWhere string
		wantArgs  int
	}{
		{name: "unconditional", guard: UpdateGuard{}, wantWhere: "", wantArgs: 6},
		{name: "available only", guard: UpdateGuard{AllowAvailable: true}, wantWhere: " AND (is_available)", wantArgs: 6},
		{name: "held by only", guard: UpdateGuard{HeldBy: "cand-1"}, wantWhere: " AND ((NOT is_available AND subject_id = $7))", wantArgs: 7},
		{
			name:      "available or held by",
			guard:     UpdateGuard{AllowAvailable: true, HeldBy: "cand-1"},
			wantWhere: " AND (is_available OR (NOT is_available AND subject_id = $7))",
			wantArgs:  7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildUpdateQuery(id, changes, tt.guard)

			assert.Equal(t, prefix+tt.wantWhere+returning, squash(query))
			require.Len(t, args, tt.wantArgs)
			assert.Equal(t, id, args[0])
			assert.Equal(t, false, args[1])
			assert.Equal(t, changes.SubjectID, args[2])
			assert.Equal(t, changes.OwnerID, args[3])
			assert.Equal(t, changes.Notes, args[4])
			assert.Equal(t, at, args[5])
			if tt.wantArgs == 7 {
				assert.Equal(t, "cand-1", args[6])
			}
		})
	}
}

func TestBuildSlotQuery(t *testing.T) {
	from := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    SlotFilter
		wantWhere string
		wantArgs  []any
	}{
		{name: "no filter", filter: SlotFilter{}, wantWhere: ""},
		{
			name:      "range",
			filter:    SlotFilter{Range: &model.DateRange{From: from, To: to}},
			wantWhere: " WHERE slot_date >= $1 AND slot_date <= $2",
			wantArgs:  []any{from, to},
		},
		{
			name:      "booked by subject",
			filter:    SlotFilter{OnlyBooked: true, SubjectID: "cand-1"},
			wantWhere: " WHERE is_available = FALSE AND subject_id = $1",
			wantArgs:  []any{"cand-1"},
		},
		{
			name:      "single day booked by subject",
			filter:    SlotFilter{Date: &from, OnlyBooked: true, SubjectID: "cand-1"},
			wantWhere: " WHERE slot_date = $1 AND is_available = FALSE AND subject_id = $2",
			wantArgs:  []any{from, "cand-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildSlotQuery(tt.filter)

			want := "SELECT " + slotColumns + " FROM interview_slots" + tt.wantWhere + " ORDER BY slot_date, time_of_day"
			assert.Equal(t, want, squash(query))
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestMissingRowError(t *testing.T) {
	id := uuid.New()

	err := missingRowError(id, false)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrGuardRejected)

	err = missingRowError(id, true)
	assert.ErrorIs(t, err, ErrGuardRejected)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), id.String())
}

func TestWriteError(t *testing.T) {
	unique := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "interview_slots_date_time_key"})
	check := &pgconn.PgError{Code: "23514", ConstraintName: "interview_slots_holder_check"}
	network := errors.New("connection reset by peer")

	err := writeError("insert slot", unique)
	assert.ErrorIs(t, err, ErrUniqueViolation)

	err = writeError("update slot", check)
	assert.ErrorIs(t, err, ErrInvalidSlot)
	assert.Contains(t, err.Error(), "interview_slots_holder_check")

	err = writeError("update slot", network)
	assert.ErrorIs(t, err, network)
	assert.NotErrorIs(t, err, ErrInvalidSlot)
	assert.NotErrorIs(t, err, ErrUniqueViolation)
}
