package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/availability"
	"github.com/Freeeeeet/interview_scheduler/internal/calendar"
	"github.com/Freeeeeet/interview_scheduler/internal/controller/state"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"go.uber.org/zap"
)

// BookingService операции координатора, нужные боту
type BookingService interface {
	Book(ctx context.Context, req service.BookRequest) (*service.BookingOutcome, error)
	Cancel(ctx context.Context, date time.Time, timeOfDay, subjectID string) error
	ListAvailability(ctx context.Context, r model.DateRange) ([]model.Schedule, error)
	MonthView(ctx context.Context, reference time.Time) (calendar.Month, *availability.Index, error)
	ActiveBookings(ctx context.Context, subjectID string) ([]model.Slot, error)
}

// Handlers содержит зависимости обработчиков команд
type Handlers struct {
	bookingService BookingService
	stateManager   *state.Manager
	logger         *zap.Logger
	now            func() time.Time
}

func NewHandlers(
	bookingService BookingService,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		bookingService: bookingService,
		stateManager:   stateManager,
		logger:         logger,
		now:            time.Now,
	}
}
