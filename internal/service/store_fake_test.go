package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/google/uuid"
)

// memStore хранилище в памяти с уникальностью (дата, время), как у таблицы interview_slots
type memStore struct {
	mu     sync.Mutex
	byKey  map[string]*model.Slot
	byID   map[uuid.UUID]string
	err    error
	reads  int
	writes int

	// beforeInsert вызывается без блокировки перед вставкой (для имитации гонок)
	beforeInsert func()
	// afterQuery вызывается один раз после снимка Query, без блокировки
	afterQuery func()
	// beforeUpdate вызывается один раз без блокировки перед UpdateByID
	beforeUpdate func()
}

func newMemStore() *memStore {
	return &memStore{
		byKey: make(map[string]*model.Slot),
		byID:  make(map[uuid.UUID]string),
	}
}

func (m *memStore) Query(ctx context.Context, filter repository.SlotFilter) ([]model.Slot, error) {
	out, hook, err := m.snapshot(filter)
	if hook != nil {
		hook()
	}
	return out, err
}

func (m *memStore) snapshot(filter repository.SlotFilter) ([]model.Slot, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return nil, nil, m.err
	}

	var out []model.Slot
	for _, s := range m.byKey {
		if filter.Range != nil && !filter.Range.Contains(s.Date) {
			continue
		}
		if filter.Date != nil && !model.TruncateDay(*filter.Date).Equal(s.Date) {
			continue
		}
		if filter.OnlyBooked && s.IsAvailable {
			continue
		}
		if filter.SubjectID != "" && s.Subject() != filter.SubjectID {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })

	hook := m.afterQuery
	m.afterQuery = nil
	return out, hook, nil
}

func (m *memStore) GetByDateTime(ctx context.Context, date time.Time, timeOfDay string) (*model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return nil, m.err
	}

	s, ok := m.byKey[model.SlotKey(date, timeOfDay)]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) Insert(ctx context.Context, slot *model.Slot) error {
	if hook := m.beforeInsert; hook != nil {
		m.beforeInsert = nil
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	key := slot.Key()
	if _, ok := m.byKey[key]; ok {
		return repository.ErrUniqueViolation
	}
	if err := slot.Validate(); err != nil {
		return err
	}
	m.writes++
	cp := *slot
	m.byKey[key] = &cp
	m.byID[slot.ID] = key
	return nil
}

func (m *memStore) UpdateByID(ctx context.Context, id uuid.UUID, changes repository.SlotChanges, guard repository.UpdateGuard) (*model.Slot, error) {
	m.mu.Lock()
	hook := m.beforeUpdate
	m.beforeUpdate = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	key, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	current := m.byKey[key]
	if !guard.Permits(*current) {
		return nil, repository.ErrGuardRejected
	}

	updated := changes.Apply(*current)
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	m.writes++
	*current = updated
	cp := updated
	return &cp, nil
}

// seed кладёт запись напрямую, минуя координатор
func (m *memStore) seed(s model.Slot) model.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := s
	m.byKey[s.Key()] = &cp
	m.byID[s.ID] = s.Key()
	return s
}

func (m *memStore) get(date time.Time, timeOfDay string) *model.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byKey[model.SlotKey(date, timeOfDay)]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

// mutate меняет запись напрямую, имитируя параллельного писателя
func (m *memStore) mutate(date time.Time, timeOfDay string, fn func(*model.Slot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byKey[model.SlotKey(date, timeOfDay)]; ok {
		fn(s)
	}
}
