package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig настройки автомата размыкания
type BreakerConfig struct {
	// ConsecutiveFailures после скольких подряд сбоев хранилища размыкать цепь
	ConsecutiveFailures uint32
	// OpenTimeout сколько цепь остаётся разомкнутой до пробного запроса
	OpenTimeout time.Duration
}

// BreakerStore оборачивает Store автоматом размыкания: при серии сбоев
// запросы сразу отклоняются, пока хранилище не восстановится.
// Доменные исходы (дубликат, не найдено, отказ guard, нарушение CHECK) сбоями не считаются.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerStore создаёт обёртку над хранилищем
func NewBreakerStore(next Store, cfg BreakerConfig, logger *zap.Logger) *BreakerStore {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "slot-store",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: isExpectedOutcome,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Slot store circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &BreakerStore{next: next, cb: cb}
}

func isExpectedOutcome(err error) bool {
	return err == nil ||
		errors.Is(err, ErrUniqueViolation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrGuardRejected) ||
		errors.Is(err, ErrInvalidSlot) ||
		errors.Is(err, context.Canceled)
}

func (b *BreakerStore) execute(req func() (any, error)) (any, error) {
	res, err := b.cb.Execute(req)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("slot store circuit %s: %w", b.cb.State(), err)
	}
	return res, err
}

func (b *BreakerStore) Query(ctx context.Context, filter SlotFilter) ([]model.Slot, error) {
	res, err := b.execute(func() (any, error) {
		return b.next.Query(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return res.([]model.Slot), nil
}

func (b *BreakerStore) GetByDateTime(ctx context.Context, date time.Time, timeOfDay string) (*model.Slot, error) {
	res, err := b.execute(func() (any, error) {
		return b.next.GetByDateTime(ctx, date, timeOfDay)
	})
	if err != nil {
		return nil, err
	}
	return res.(*model.Slot), nil
}

func (b *BreakerStore) Insert(ctx context.Context, slot *model.Slot) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.Insert(ctx, slot)
	})
	return err
}

func (b *BreakerStore) UpdateByID(ctx context.Context, id uuid.UUID, changes SlotChanges, guard UpdateGuard) (*model.Slot, error) {
	res, err := b.execute(func() (any, error) {
		return b.next.UpdateByID(ctx, id, changes, guard)
	})
	if err != nil {
		return nil, err
	}
	return res.(*model.Slot), nil
}
