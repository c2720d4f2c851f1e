package repository

import (
	"context"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/google/uuid"
)

// SlotFilter условия выборки слотов. Пустые поля не фильтруют.
type SlotFilter struct {
	Range      *model.DateRange
	Date       *time.Time
	OnlyBooked bool
	SubjectID  string
}

// SlotChanges значения полей бронирования, записываемые при обновлении
type SlotChanges struct {
	IsAvailable bool
	SubjectID   *string
	OwnerID     *string
	Notes       *string
	UpdatedAt   time.Time
}

// UpdateGuard условие, при котором обновление разрешено.
// Пустой guard означает безусловное обновление.
type UpdateGuard struct {
	// AllowAvailable разрешает обновлять свободный слот
	AllowAvailable bool
	// HeldBy разрешает обновлять слот, занятый этим субъектом
	HeldBy string
}

// Unconditional true, если guard ничего не проверяет
func (g UpdateGuard) Unconditional() bool {
	return !g.AllowAvailable && g.HeldBy == ""
}

// Permits проверяет, разрешает ли guard обновить слот в текущем состоянии
func (g UpdateGuard) Permits(s model.Slot) bool {
	if g.Unconditional() {
		return true
	}
	if g.AllowAvailable && s.IsAvailable {
		return true
	}
	return g.HeldBy != "" && s.HeldBy(g.HeldBy)
}

// Apply применяет изменения к копии слота
func (c SlotChanges) Apply(s model.Slot) model.Slot {
	s.IsAvailable = c.IsAvailable
	s.SubjectID = c.SubjectID
	s.OwnerID = c.OwnerID
	s.Notes = c.Notes
	s.UpdatedAt = c.UpdatedAt
	return s
}

// Store хранилище слотов
type Store interface {
	Query(ctx context.Context, filter SlotFilter) ([]model.Slot, error)
	GetByDateTime(ctx context.Context, date time.Time, timeOfDay string) (*model.Slot, error)
	Insert(ctx context.Context, slot *model.Slot) error
	UpdateByID(ctx context.Context, id uuid.UUID, changes SlotChanges, guard UpdateGuard) (*model.Slot, error)
}
