package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `id, slot_date, time_of_day, is_available, subject_id, owner_id, notes, created_at, updated_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.Date,
		&slot.TimeOfDay,
		&slot.IsAvailable,
		&slot.SubjectID,
		&slot.OwnerID,
		&slot.Notes,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return model.Slot{}, err
	}
	slot.Date = model.TruncateDay(slot.Date)
	return slot, nil
}

// buildSlotQuery собирает SELECT по фильтру с нумерованными плейсхолдерами
func buildSlotQuery(filter SlotFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Range != nil {
		conds = append(conds, "slot_date >= "+arg(filter.Range.From), "slot_date <= "+arg(filter.Range.To))
	}
	if filter.Date != nil {
		conds = append(conds, "slot_date = "+arg(model.TruncateDay(*filter.Date)))
	}
	if filter.OnlyBooked {
		conds = append(conds, "is_available = FALSE")
	}
	if filter.SubjectID != "" {
		conds = append(conds, "subject_id = "+arg(filter.SubjectID))
	}

	query := `SELECT ` + slotColumns + ` FROM interview_slots`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY slot_date, time_of_day`
	return query, args
}

// Query получает слоты по фильтру, упорядоченные по дате и времени
func (r *SlotRepository) Query(ctx context.Context, filter SlotFilter) ([]model.Slot, error) {
	query, args := buildSlotQuery(filter)

	rows, err := r.Repository.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// GetByDateTime получает слот по дате и времени, nil если записи нет
func (r *SlotRepository) GetByDateTime(ctx context.Context, date time.Time, timeOfDay string) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + `
		FROM interview_slots
		WHERE slot_date = $1 AND time_of_day = $2
	`

	slot, err := scanSlot(r.QueryRow(ctx, query, model.TruncateDay(date), timeOfDay))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by date and time: %w", err)
	}

	return &slot, nil
}

// Insert создаёт запись слота. ErrUniqueViolation если (дата, время) уже заняты записью.
func (r *SlotRepository) Insert(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO interview_slots (id, slot_date, time_of_day, is_available, subject_id, owner_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.ID,
		model.TruncateDay(slot.Date),
		slot.TimeOfDay,
		slot.IsAvailable,
		slot.SubjectID,
		slot.OwnerID,
		slot.Notes,
		slot.CreatedAt,
		slot.UpdatedAt,
	).Scan(&slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return writeError("insert slot "+slot.Key(), err)
	}

	return nil
}

// writeError переводит нарушения ограничений в доменные ошибки хранилища
func writeError(op string, err error) error {
	switch {
	case base.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, ErrUniqueViolation)
	case base.IsCheckViolation(err):
		return fmt.Errorf("%s: %s: %w", op, base.ConstraintName(err), ErrInvalidSlot)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// buildUpdateQuery собирает UPDATE с условием guard. Аргументы $1..$6 фиксированы,
// HeldBy при наличии идёт $7.
func buildUpdateQuery(id uuid.UUID, changes SlotChanges, guard UpdateGuard) (string, []any) {
	args := []any{id, changes.IsAvailable, changes.SubjectID, changes.OwnerID, changes.Notes, changes.UpdatedAt}
	query := `UPDATE interview_slots
		SET is_available = $2, subject_id = $3, owner_id = $4, notes = $5, updated_at = $6
		WHERE id = $1`

	if !guard.Unconditional() {
		var conds []string
		if guard.AllowAvailable {
			conds = append(conds, "is_available")
		}
		if guard.HeldBy != "" {
			args = append(args, guard.HeldBy)
			conds = append(conds, fmt.Sprintf("(NOT is_available AND subject_id = $%d)", len(args)))
		}
		query += ` AND (` + strings.Join(conds, " OR ") + `)`
	}
	query += ` RETURNING ` + slotColumns
	return query, args
}

// UpdateByID атомарно обновляет поля бронирования, если guard разрешает.
// ErrNotFound если записи нет, ErrGuardRejected если запись в другом состоянии.
func (r *SlotRepository) UpdateByID(ctx context.Context, id uuid.UUID, changes SlotChanges, guard UpdateGuard) (*model.Slot, error) {
	query, args := buildUpdateQuery(id, changes, guard)

	slot, err := scanSlot(r.QueryRow(ctx, query, args...))
	if err == nil {
		return &slot, nil
	}
	if !base.IsNotFound(err) {
		return nil, writeError("update slot "+id.String(), err)
	}

	var exists bool
	if err := r.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM interview_slots WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check slot exists: %w", err)
	}
	return nil, missingRowError(id, exists)
}

// missingRowError объясняет, почему UPDATE не вернул строку
func missingRowError(id uuid.UUID, exists bool) error {
	if !exists {
		return fmt.Errorf("update slot %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("update slot %s: %w", id, ErrGuardRejected)
}
