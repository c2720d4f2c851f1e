package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/availability"
	"github.com/Freeeeeet/interview_scheduler/internal/cache"
	"github.com/Freeeeeet/interview_scheduler/internal/calendar"
	"github.com/Freeeeeet/interview_scheduler/internal/metrics"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/Freeeeeet/interview_scheduler/internal/service"

// BookRequest параметры бронирования слота
type BookRequest struct {
	Date      time.Time
	TimeOfDay string
	SubjectID string
	OwnerID   string
	Notes     string
}

// BookingOutcome результат успешного бронирования
type BookingOutcome struct {
	Slot model.Slot
	// Created true, если запись слота создана этим вызовом
	Created bool
	// OtherBookings другие активные брони того же субъекта, оставленные без изменений
	OtherBookings []model.Slot
}

// HasOtherBookings true, если у субъекта остались брони в других слотах
func (o *BookingOutcome) HasOtherBookings() bool {
	return len(o.OtherBookings) > 0
}

// BookingService координатор бронирования слотов собеседований.
// Конкурентные гонки разрешает уникальное ограничение хранилища на (дата, время):
// проигравший вставку повторяет попытку один раз как обновление.
type BookingService struct {
	store   repository.Store
	ranges  *cache.Cache[string, []model.Slot]
	catalog []string

	// rangesMu упорядочивает запись прочитанного диапазона в кеш и инвалидацию.
	// rangesEpoch растёт при каждой инвалидации: снимок, прочитанный до неё, в кеш не кладётся.
	rangesMu    sync.Mutex
	rangesEpoch uint64

	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger

	now   func() time.Time
	newID func() uuid.UUID

	listenersMu    sync.RWMutex
	listeners      map[int]Listener
	nextListenerID int
}

func NewBookingService(
	store repository.Store,
	ranges *cache.Cache[string, []model.Slot],
	catalog []string,
	collector *metrics.Collector,
	logger *zap.Logger,
) *BookingService {
	if len(catalog) == 0 {
		catalog = availability.DefaultCatalog
	}
	return &BookingService{
		store:     store,
		ranges:    ranges,
		catalog:   append([]string(nil), catalog...),
		metrics:   collector,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
		now:       time.Now,
		newID:     uuid.New,
		listeners: make(map[int]Listener),
	}
}

// WithClock подменяет источник времени
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Catalog каталог времени слотов
func (s *BookingService) Catalog() []string {
	return append([]string(nil), s.catalog...)
}

// Book бронирует слот (дата, время) для субъекта.
// Повторное бронирование того же слота тем же субъектом идемпотентно.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (outcome *BookingOutcome, err error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.Book", trace.WithAttributes(
		attribute.String("slot.date", model.FormatDate(req.Date)),
		attribute.String("slot.time", req.TimeOfDay),
		attribute.String("subject.id", req.SubjectID),
	))
	defer func() {
		s.finish(span, "book", err)
	}()

	label, err := model.NormalizeTimeOfDay(req.TimeOfDay)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		return nil, ErrMissingSubject
	}
	date := model.TruncateDay(req.Date)

	existing, err := s.store.GetByDateTime(ctx, date, label)
	if err != nil {
		return nil, storeError("get slot", err)
	}

	var (
		slot    *model.Slot
		created bool
	)
	if existing != nil {
		slot, err = s.updateBooked(ctx, existing, req)
	} else {
		slot, created, err = s.insertBooked(ctx, date, label, req)
	}
	if err != nil {
		if errors.Is(err, ErrSlotOccupied) {
			s.logger.Info("Slot occupied",
				zap.String("date", model.FormatDate(date)),
				zap.String("time", label),
				zap.String("subject_id", req.SubjectID))
		}
		return nil, err
	}

	s.invalidateDate(date)

	outcome = &BookingOutcome{Slot: *slot, Created: created}
	outcome.OtherBookings, err = s.otherBookings(ctx, req.SubjectID, slot.ID)
	if err != nil {
		// бронь уже зафиксирована, список других броней - лишь подсказка
		s.logger.Warn("Failed to load other bookings of subject",
			zap.String("subject_id", req.SubjectID),
			zap.Error(err))
		err = nil
	}

	s.logger.Info("Slot booked",
		zap.String("slot_id", slot.ID.String()),
		zap.String("date", model.FormatDate(date)),
		zap.String("time", label),
		zap.String("subject_id", req.SubjectID),
		zap.String("owner_id", req.OwnerID),
		zap.Bool("created", created),
		zap.Int("other_bookings", len(outcome.OtherBookings)),
	)

	s.emit(model.Event{
		ID:         s.newID(),
		Kind:       model.EventBooked,
		Date:       date,
		TimeOfDay:  label,
		SubjectID:  req.SubjectID,
		OwnerID:    req.OwnerID,
		OccurredAt: s.now(),
	})

	return outcome, nil
}

// insertBooked создаёт запись слота. Если вставку опередил конкурент,
// один раз повторяет попытку как обновление существующей записи.
func (s *BookingService) insertBooked(ctx context.Context, date time.Time, label string, req BookRequest) (*model.Slot, bool, error) {
	now := s.now()
	slot := &model.Slot{
		ID:          s.newID(),
		Date:        date,
		TimeOfDay:   label,
		IsAvailable: false,
		SubjectID:   model.StringPtr(req.SubjectID),
		OwnerID:     model.StringPtr(req.OwnerID),
		Notes:       model.StringPtr(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.Insert(ctx, slot)
	if err == nil {
		return slot, true, nil
	}
	if !errors.Is(err, repository.ErrUniqueViolation) {
		return nil, false, storeError("insert slot", err)
	}

	s.logger.Info("Lost insert race, retrying as update",
		zap.String("date", model.FormatDate(date)),
		zap.String("time", label),
		zap.String("subject_id", req.SubjectID))

	existing, err := s.store.GetByDateTime(ctx, date, label)
	if err != nil {
		return nil, false, storeError("reload slot", err)
	}
	if existing == nil {
		// запись вставлена и исчезла: строки не удаляются, значит хранилище неконсистентно
		return nil, false, fmt.Errorf("reload slot %s: %w", model.SlotKey(date, label), ErrStoreUnavailable)
	}

	updated, err := s.updateBooked(ctx, existing, req)
	return updated, false, err
}

// updateBooked обновляет существующую запись, если она свободна или уже принадлежит субъекту
func (s *BookingService) updateBooked(ctx context.Context, existing *model.Slot, req BookRequest) (*model.Slot, error) {
	if !existing.IsAvailable && !existing.HeldBy(req.SubjectID) {
		return nil, ErrSlotOccupied
	}

	notes := existing.Notes
	if req.Notes != "" {
		notes = model.StringPtr(req.Notes)
	}

	changes := repository.SlotChanges{
		IsAvailable: false,
		SubjectID:   model.StringPtr(req.SubjectID),
		OwnerID:     model.StringPtr(req.OwnerID),
		Notes:       notes,
		UpdatedAt:   s.now(),
	}
	guard := repository.UpdateGuard{AllowAvailable: true, HeldBy: req.SubjectID}

	updated, err := s.store.UpdateByID(ctx, existing.ID, changes, guard)
	if err != nil {
		if errors.Is(err, repository.ErrGuardRejected) {
			// между чтением и записью слот занял другой субъект
			return nil, ErrSlotOccupied
		}
		return nil, storeError("update slot", err)
	}
	return updated, nil
}

func (s *BookingService) otherBookings(ctx context.Context, subjectID string, exclude uuid.UUID) ([]model.Slot, error) {
	active, err := s.store.Query(ctx, repository.SlotFilter{SubjectID: subjectID, OnlyBooked: true})
	if err != nil {
		return nil, err
	}

	var others []model.Slot
	for _, slot := range active {
		if slot.ID != exclude {
			others = append(others, slot)
		}
	}
	return others, nil
}

// Cancel освобождает слот, занятый субъектом. Запись не удаляется.
func (s *BookingService) Cancel(ctx context.Context, date time.Time, timeOfDay, subjectID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.Cancel", trace.WithAttributes(
		attribute.String("slot.date", model.FormatDate(date)),
		attribute.String("slot.time", timeOfDay),
		attribute.String("subject.id", subjectID),
	))
	defer func() {
		s.finish(span, "cancel", err)
	}()

	label, err := model.NormalizeTimeOfDay(timeOfDay)
	if err != nil {
		return err
	}
	if strings.TrimSpace(subjectID) == "" {
		return ErrMissingSubject
	}
	date = model.TruncateDay(date)

	existing, err := s.store.GetByDateTime(ctx, date, label)
	if err != nil {
		return storeError("get slot", err)
	}
	if existing == nil || existing.IsAvailable {
		return ErrSlotNotFound
	}
	if !existing.HeldBy(subjectID) {
		return ErrNotOwner
	}

	now := s.now()
	changes := repository.SlotChanges{
		IsAvailable: true,
		Notes:       model.StringPtr(releaseNote(existing, now)),
		UpdatedAt:   now,
	}

	_, err = s.store.UpdateByID(ctx, existing.ID, changes, repository.UpdateGuard{HeldBy: subjectID})
	if err != nil {
		if errors.Is(err, repository.ErrGuardRejected) {
			return s.cancelRejected(ctx, date, label, subjectID)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSlotNotFound
		}
		return storeError("release slot", err)
	}

	s.invalidateDate(date)

	s.logger.Info("Slot released",
		zap.String("slot_id", existing.ID.String()),
		zap.String("date", model.FormatDate(date)),
		zap.String("time", label),
		zap.String("subject_id", subjectID),
	)

	s.emit(model.Event{
		ID:         s.newID(),
		Kind:       model.EventReleased,
		Date:       date,
		TimeOfDay:  label,
		SubjectID:  subjectID,
		OccurredAt: now,
	})

	return nil
}

// cancelRejected уточняет причину отказа guard: между чтением и записью
// слот мог освободить параллельный Cancel или занять другой субъект
func (s *BookingService) cancelRejected(ctx context.Context, date time.Time, label, subjectID string) error {
	current, err := s.store.GetByDateTime(ctx, date, label)
	if err != nil {
		return storeError("reload slot", err)
	}
	if current != nil && !current.IsAvailable && !current.HeldBy(subjectID) {
		return ErrNotOwner
	}
	// отменяемую бронь уже сняли; если слот снова у субъекта, это новая бронь
	return ErrSlotNotFound
}

func releaseNote(slot *model.Slot, at time.Time) string {
	note := fmt.Sprintf("released by %s at %s", slot.Subject(), at.UTC().Format(time.RFC3339))
	if slot.Notes != nil && *slot.Notes != "" {
		note = *slot.Notes + "; " + note
	}
	return note
}

// ListAvailability расписание по каждой дате диапазона, включая слоты без записей
func (s *BookingService) ListAvailability(ctx context.Context, r model.DateRange) (schedules []model.Schedule, err error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.ListAvailability", trace.WithAttributes(
		attribute.String("range.from", model.FormatDate(r.From)),
		attribute.String("range.to", model.FormatDate(r.To)),
	))
	defer func() {
		s.finish(span, "list", err)
	}()

	idx, err := s.Index(ctx, r)
	if err != nil {
		return nil, err
	}
	return idx.Schedules(r), nil
}

// Index индекс доступности по диапазону (чтение через кеш)
func (s *BookingService) Index(ctx context.Context, r model.DateRange) (*availability.Index, error) {
	slots, err := s.loadRange(ctx, r)
	if err != nil {
		return nil, err
	}
	return availability.NewIndex(s.catalog, slots), nil
}

// MonthView сетка месяца и индекс доступности по всей сетке
func (s *BookingService) MonthView(ctx context.Context, reference time.Time) (calendar.Month, *availability.Index, error) {
	month := calendar.Generate(reference)
	idx, err := s.Index(ctx, month.Range())
	if err != nil {
		return calendar.Month{}, nil, err
	}
	return month, idx, nil
}

// ActiveBookings активные брони субъекта, по дате и времени
func (s *BookingService) ActiveBookings(ctx context.Context, subjectID string) ([]model.Slot, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, ErrMissingSubject
	}
	slots, err := s.store.Query(ctx, repository.SlotFilter{SubjectID: subjectID, OnlyBooked: true})
	if err != nil {
		return nil, storeError("query subject bookings", err)
	}
	return slots, nil
}

func (s *BookingService) loadRange(ctx context.Context, r model.DateRange) ([]model.Slot, error) {
	if s.ranges == nil {
		slots, err := s.store.Query(ctx, repository.SlotFilter{Range: &r})
		if err != nil {
			return nil, storeError("query slots", err)
		}
		return slots, nil
	}

	key := r.Key()
	if slots, ok := s.ranges.Get(key); ok {
		return slots, nil
	}

	s.rangesMu.Lock()
	epoch := s.rangesEpoch
	s.rangesMu.Unlock()

	slots, err := s.store.Query(ctx, repository.SlotFilter{Range: &r})
	if err != nil {
		return nil, storeError("query slots", err)
	}

	s.rangesMu.Lock()
	defer s.rangesMu.Unlock()
	if s.rangesEpoch == epoch {
		s.ranges.Set(key, slots)
	}
	return slots, nil
}

// InvalidateDate сбрасывает кешированные диапазоны, содержащие дату
func (s *BookingService) InvalidateDate(date time.Time) {
	s.invalidateDate(model.TruncateDay(date))
}

func (s *BookingService) invalidateDate(date time.Time) {
	if s.ranges == nil {
		return
	}
	s.rangesMu.Lock()
	defer s.rangesMu.Unlock()
	s.rangesEpoch++
	s.ranges.InvalidateFunc(func(key string) bool {
		return rangeKeyContains(key, date)
	})
}

func rangeKeyContains(key string, date time.Time) bool {
	fromRaw, toRaw, ok := strings.Cut(key, "|")
	if !ok {
		return true
	}
	from, err := model.ParseDate(fromRaw)
	if err != nil {
		return true
	}
	to, err := model.ParseDate(toRaw)
	if err != nil {
		return true
	}
	return model.DateRange{From: from, To: to}.Contains(date)
}

func (s *BookingService) finish(span trace.Span, operation string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcomeOf(err))
	}
	span.End()
	s.metrics.ObserveBooking(operation, outcomeOf(err))
}

func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrInvalidSlot) {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidSlotState, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
