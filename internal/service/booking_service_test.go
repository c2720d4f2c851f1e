package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/cache"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCatalog = []string{"08:00:00", "09:00:00"}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

type fixture struct {
	store   *memStore
	ranges  *cache.Cache[string, []model.Slot]
	service *BookingService
	events  *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []model.Event
}

func (l *eventLog) record(e model.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []model.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Event(nil), l.events...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	ranges := cache.New[string, []model.Slot](cache.Options{TTL: 30 * time.Second})
	svc := NewBookingService(store, ranges, testCatalog, nil, zap.NewNop())
	svc.WithClock(func() time.Time { return time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC) })

	events := &eventLog{}
	svc.Subscribe(events.record)

	return &fixture{store: store, ranges: ranges, service: svc, events: events}
}

func TestBookScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := mustDate(t, "2025-09-10")

	outcome, err := f.service.Book(ctx, BookRequest{Date: date, TimeOfDay: "08:00:00", SubjectID: "cand-1", OwnerID: "rec-1"})
	require.NoError(t, err)
	assert.False(t, outcome.Slot.IsAvailable)
	assert.Equal(t, "cand-1", outcome.Slot.Subject())
	assert.True(t, outcome.Created)

	_, err = f.service.Book(ctx, BookRequest{Date: date, TimeOfDay: "08:00:00", SubjectID: "cand-2", OwnerID: "rec-2"})
	require.ErrorIs(t, err, ErrSlotOccupied)
	assert.Equal(t, "cand-1", f.store.get(date, "08:00:00").Subject(), "rejected booking must not mutate the slot")

	require.NoError(t, f.service.Cancel(ctx, date, "08:00:00", "cand-1"))

	outcome, err = f.service.Book(ctx, BookRequest{Date: date, TimeOfDay: "08:00", SubjectID: "cand-2", OwnerID: "rec-2"})
	require.NoError(t, err)
	assert.False(t, outcome.Created, "released row is reused")
	assert.Equal(t, "cand-2", f.store.get(date, "08:00:00").Subject())

	events := f.events.all()
	require.Len(t, events, 3)
	assert.Equal(t, model.EventBooked, events[0].Kind)
	assert.Equal(t, model.EventReleased, events[1].Kind)
	assert.Equal(t, "cand-1", events[1].SubjectID)
	assert.Equal(t, model.EventBooked, events[2].Kind)
	assert.Equal(t, "08:00:00", events[2].TimeOfDay)
}

func TestBookIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := mustDate(t, "2025-09-10")
	req := BookRequest{Date: date, TimeOfDay: "09:00", SubjectID: "cand-1", OwnerID: "rec-1", Notes: "first round"}

	first, err := f.service.Book(ctx, req)
	require.NoError(t, err)

	req.Notes = ""
	second, err := f.service.Book(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.Slot.ID, second.Slot.ID)
	assert.Equal(t, "cand-1", second.Slot.Subject())
	assert.False(t, second.Slot.IsAvailable)
	require.NotNil(t, second.Slot.Notes)
	assert.Equal(t, "first round", *second.Slot.Notes, "empty notes keep previous annotation")
	assert.False(t, second.HasOtherBookings())
}

func TestBookInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := mustDate(t, "2025-09-10")

	_, err := f.service.Book(ctx, BookRequest{Date: date, TimeOfDay: "8am", SubjectID: "cand-1"})
	require.ErrorIs(t, err, ErrInvalidTimeFormat)

	_, err = f.service.Book(ctx, BookRequest{Date: date, TimeOfDay: "08:00", SubjectID: " "})
	require.ErrorIs(t, err, ErrMissingSubject)

	assert.Zero(t, f.store.reads, "invalid input must not reach the store")
}

func TestBookReportsOtherBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Book(ctx, BookRequest{Date: mustDate(t, "2025-09-10"), TimeOfDay: "08:00", SubjectID: "cand-1"})
	require.NoError(t, err)

	outcome, err := f.service.Book(ctx, BookRequest{Date: mustDate(t, "2025-09-11"), TimeOfDay: "09:00", SubjectID: "cand-1"})
	require.NoError(t, err)
	require.Len(t, outcome.OtherBookings, 1)
	assert.Equal(t, "2025-09-10", model.FormatDate(outcome.OtherBookings[0].Date))

	// другие брони не освобождаются автоматически
	assert.False(t, f.store.get(mustDate(t, "2025-09-10"), "08:00:00").IsAvailable)

	active, err := f.service.ActiveBookings(ctx, "cand-1")
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestBookLostInsertRace(t *testing.T) {
	tests := []struct {
		name       string
		competitor string
		wantErr    error
		wantHolder string
	}{
		{name: "competitor is another subject", competitor: "cand-2", wantErr: ErrSlotOccupied, wantHolder: "cand-2"},
		{name: "competitor is the same subject", competitor: "cand-1", wantHolder: "cand-1"},
		{name: "competitor inserted a released row", competitor: "", wantHolder: "cand-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			date := mustDate(t, "2025-09-10")

			f.store.beforeInsert = func() {
				s := model.Slot{Date: date, TimeOfDay: "08:00:00", IsAvailable: true}
				if tt.competitor != "" {
					s.IsAvailable = false
					s.SubjectID = model.StringPtr(tt.competitor)
				}
				f.store.seed(s)
			}

			outcome, err := f.service.Book(ctx, BookRequest{Date: date, TimeOfDay: "08:00", SubjectID: "cand-1", OwnerID: "rec-1"})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.False(t, outcome.Created)
			}
			assert.Equal(t, tt.wantHolder, f.store.get(date, "08:00:00").Subject())
		})
	}
}

func TestBookConcurrentUniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := mustDate(t, "2025-09-10")

	const subjects = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []string
	)
	for i := 0; i < subjects; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			subject := fmt.Sprintf("cand-%d", i)
			_, err := f.service.Book(ctx, BookRequest{Date: date, TimeOfDay: "08:00", SubjectID: subject, OwnerID: "rec"})
			if err == nil {
				mu.Lock()
				succeeded = append(succeeded, subject)
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrSlotOccupied)
		}(i)
	}
	wg.Wait()

	require.Len(t, succeeded, 1)
	slot := f.store.get(date, "08:00:00")
	require.NotNil(t, slot)
	assert.False(t, slot.IsAvailable)
	assert.Equal(t, succeeded[0], slot.Subject())
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := mustDate(t, "2025-09-10")

	err := f.service.Cancel(ctx, date, "08:00", "cand-1")
	require.ErrorIs(t, err, ErrSlotNotFound)
	assert.True(t, IsLenientCancel(err))

	_, err = f.service.Book(ctx, BookRequest{Date: date, TimeOfDay: "08:00", SubjectID: "cand-1", OwnerID: "rec-1", Notes: "tech screen"})
	require.NoError(t, err)

	err = f.service.Cancel(ctx, date, "08:00", "cand-2")
	require.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, "cand-1", f.store.get(date, "08:00:00").Subject())

	require.ErrorIs(t, f.service.Cancel(ctx, date, "25:00", "cand-1"), ErrInvalidTimeFormat)

	require.NoError(t, f.service.Cancel(ctx, date, "08:00:00", "cand-1"))

	slot := f.store.get(date, "08:00:00")
	require.NotNil(t, slot, "cancellation keeps the row")
	assert.True(t, slot.IsAvailable)
	assert.Nil(t, slot.SubjectID)
	assert.Nil(t, slot.OwnerID)
	require.NotNil(t, slot.Notes)
	assert.Contains(t, *slot.Notes, "tech screen")
	assert.Contains(t, *slot.Notes, "released by cand-1")

	require.ErrorIs(t, f.service.Cancel(ctx, date, "08:00", "cand-1"), ErrSlotNotFound)
}

func TestListAvailabilityOpenWorld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := model.NewDateRange(mustDate(t, "2025-09-10"), mustDate(t, "2025-09-11"))
	require.NoError(t, err)

	schedules, err := f.service.ListAvailability(ctx, r)
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	for _, s := range schedules {
		require.Len(t, s.Slots, len(testCatalog))
		for _, slot := range s.Slots {
			assert.True(t, slot.IsAvailable)
		}
	}
}

func TestListAvailabilitySeesWritesThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := mustDate(t, "2025-09-10")

	month, err := model.NewDateRange(mustDate(t, "2025-09-01"), mustDate(t, "2025-09-30"))
	require.NoError(t, err)
	october := model.SingleDay(mustDate(t, "2025-10-01"))

	_, err = f.service.ListAvailability(ctx, month)
	require.NoError(t, err)
	_, err = f.service.ListAvailability(ctx, october)
	require.NoError(t, err)
	readsBefore := f.store.reads

	// повторное чтение в пределах TTL обслуживается кешем
	_, err = f.service.ListAvailability(ctx, month)
	require.NoError(t, err)
	assert.Equal(t, readsBefore, f.store.reads)

	_, err = f.service.Book(ctx, BookRequest{Date: date, TimeOfDay: "08:00", SubjectID: "cand-1"})
	require.NoError(t, err)

	schedules, err := f.service.ListAvailability(ctx, month)
	require.NoError(t, err)
	day := schedules[9]
	assert.Equal(t, "2025-09-10", model.FormatDate(day.Date))
	assert.False(t, day.Slots[0].IsAvailable)
	assert.Equal(t, "cand-1", day.Slots[0].Subject())

	_, ok := f.ranges.Get(october.Key())
	assert.True(t, ok, "ranges not touching the date stay cached")
}

func TestListAvailabilityDropsSnapshotTakenBeforeWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := mustDate(t, "2025-09-10")
	day := model.SingleDay(date)

	snapshotTaken := make(chan struct{})
	resume := make(chan struct{})
	f.store.afterQuery = func() {
		close(snapshotTaken)
		<-resume
	}

	type result struct {
		schedules []model.Schedule
		err       error
	}
	done := make(chan result, 1)
	go func() {
		schedules, err := f.service.ListAvailability(ctx, day)
		done <- result{schedules: schedules, err: err}
	}()

	<-snapshotTaken
	_, err := f.service.Book(ctx, BookRequest{Date: date, TimeOfDay: "08:00", SubjectID: "cand-1"})
	require.NoError(t, err)
	close(resume)

	stale := <-done
	require.NoError(t, stale.err)
	assert.True(t, stale.schedules[0].Slots[0].IsAvailable, "read started before the booking")

	_, cached := f.ranges.Get(day.Key())
	assert.False(t, cached, "snapshot older than a write must not be cached")

	schedules, err := f.service.ListAvailability(ctx, day)
	require.NoError(t, err)
	assert.False(t, schedules[0].Slots[0].IsAvailable)
	assert.Equal(t, "cand-1", schedules[0].Slots[0].Subject())
}

func TestCancelLosesRace(t *testing.T) {
	date := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		concurrent func(*model.Slot)
		want       error
		lenient    bool
	}{
		{
			name: "released by parallel cancel",
			concurrent: func(s *model.Slot) {
				s.IsAvailable = true
				s.SubjectID = nil
				s.OwnerID = nil
			},
			want:    ErrSlotNotFound,
			lenient: true,
		},
		{
			name: "released and taken by another subject",
			concurrent: func(s *model.Slot) {
				s.SubjectID = model.StringPtr("cand-2")
			},
			want: ErrNotOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.seed(model.Slot{Date: date, TimeOfDay: "08:00:00", SubjectID: model.StringPtr("cand-1")})
			f.store.beforeUpdate = func() {
				f.store.mutate(date, "08:00:00", tt.concurrent)
			}

			err := f.service.Cancel(context.Background(), date, "08:00", "cand-1")
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.lenient, IsLenientCancel(err))
			assert.Empty(t, f.events.all())
		})
	}
}

func TestStoreConstraintRejectionIsNotRetriable(t *testing.T) {
	f := newFixture(t)
	f.store.err = fmt.Errorf("update slot: interview_slots_holder_check: %w", repository.ErrInvalidSlot)

	_, err := f.service.Book(context.Background(), BookRequest{Date: mustDate(t, "2025-09-10"), TimeOfDay: "08:00", SubjectID: "cand-1"})
	require.ErrorIs(t, err, ErrInvalidSlotState)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, IsRetriable(err))
}

func TestIndexAndMonthView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := mustDate(t, "2025-09-10")

	for i, tod := range testCatalog {
		_, err := f.service.Book(ctx, BookRequest{Date: date, TimeOfDay: tod, SubjectID: fmt.Sprintf("cand-%d", i)})
		require.NoError(t, err)
	}

	month, idx, err := f.service.MonthView(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-31", model.FormatDate(month.Days[0]))
	assert.True(t, idx.IsDateFullyBooked(date))
	assert.False(t, idx.IsDateFullyBooked(date.AddDate(0, 0, 1)))
	assert.Empty(t, idx.AvailableSlots(date))
}

func TestStoreFailuresAreRetriable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.err = errors.New("connection reset by peer")

	_, err := f.service.Book(ctx, BookRequest{Date: mustDate(t, "2025-09-10"), TimeOfDay: "08:00", SubjectID: "cand-1"})
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, IsRetriable(err))

	err = f.service.Cancel(ctx, mustDate(t, "2025-09-10"), "08:00", "cand-1")
	require.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = f.service.ListAvailability(ctx, model.SingleDay(mustDate(t, "2025-09-10")))
	require.ErrorIs(t, err, ErrStoreUnavailable)

	assert.Empty(t, f.events.all())
}

func TestSubscribeUnsubscribeAndPanickingListener(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var got int
	unsubscribe := f.service.Subscribe(func(model.Event) { got++ })
	f.service.Subscribe(func(model.Event) { panic("listener bug") })

	_, err := f.service.Book(ctx, BookRequest{Date: mustDate(t, "2025-09-10"), TimeOfDay: "08:00", SubjectID: "cand-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Len(t, f.events.all(), 1, "panic in one listener does not stop delivery")

	unsubscribe()
	_, err = f.service.Book(ctx, BookRequest{Date: mustDate(t, "2025-09-10"), TimeOfDay: "09:00", SubjectID: "cand-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Len(t, f.events.all(), 2)
}

func TestRangeKeyContains(t *testing.T) {
	date := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, rangeKeyContains("2025-09-01|2025-09-30", date))
	assert.True(t, rangeKeyContains("2025-09-10|2025-09-10", date))
	assert.False(t, rangeKeyContains("2025-09-11|2025-09-30", date))
	assert.True(t, rangeKeyContains("garbage", date), "unknown keys are dropped conservatively")
}
