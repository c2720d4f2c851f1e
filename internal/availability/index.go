// Package availability отвечает на вопросы о занятости слотов по загруженным записям.
package availability

import (
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
)

// Index проекция записей слотов в памяти. Отсутствие записи означает "свободно".
// Index не меняется после создания: при изменении данных строится новый.
type Index struct {
	catalog []string
	byDate  map[string]map[string]model.Slot
}

// NewIndex строит индекс по каталогу времени и записям слотов
func NewIndex(catalog []string, slots []model.Slot) *Index {
	idx := &Index{
		catalog: append([]string(nil), catalog...),
		byDate:  make(map[string]map[string]model.Slot),
	}

	for _, s := range slots {
		day := model.FormatDate(s.Date)
		if idx.byDate[day] == nil {
			idx.byDate[day] = make(map[string]model.Slot)
		}
		idx.byDate[day][canonical(s.TimeOfDay)] = s
	}

	return idx
}

// canonical приводит время к виду HH:MM:SS; нераспознанная строка остаётся как есть и ни с чем не совпадёт
func canonical(timeOfDay string) string {
	if label, err := model.NormalizeTimeOfDay(timeOfDay); err == nil {
		return label
	}
	return timeOfDay
}

// Catalog возвращает копию каталога времени
func (idx *Index) Catalog() []string {
	return append([]string(nil), idx.catalog...)
}

func (idx *Index) lookup(date time.Time, timeOfDay string) (model.Slot, bool) {
	day, ok := idx.byDate[model.FormatDate(date)]
	if !ok {
		return model.Slot{}, false
	}
	s, ok := day[canonical(timeOfDay)]
	return s, ok
}

// IsSlotBusy true, если есть запись и она не доступна. Время принимается как HH:MM или HH:MM:SS.
func (idx *Index) IsSlotBusy(date time.Time, timeOfDay string) bool {
	s, ok := idx.lookup(date, timeOfDay)
	return ok && !s.IsAvailable
}

// HolderOf возвращает субъекта, занявшего слот
func (idx *Index) HolderOf(date time.Time, timeOfDay string) (string, bool) {
	s, ok := idx.lookup(date, timeOfDay)
	if !ok || s.IsAvailable {
		return "", false
	}
	return s.Subject(), true
}

// IsDateFullyBooked true, только если каждый слот каталога занят
func (idx *Index) IsDateFullyBooked(date time.Time) bool {
	if len(idx.catalog) == 0 {
		return false
	}
	for _, t := range idx.catalog {
		if !idx.IsSlotBusy(date, t) {
			return false
		}
	}
	return true
}

// IsDatePartiallyBooked true, если занят хотя бы один слот, но не все
func (idx *Index) IsDatePartiallyBooked(date time.Time) bool {
	busy := 0
	for _, t := range idx.catalog {
		if idx.IsSlotBusy(date, t) {
			busy++
		}
	}
	return busy > 0 && busy < len(idx.catalog)
}

// AvailableSlots свободные слоты дня в порядке каталога
func (idx *Index) AvailableSlots(date time.Time) []string {
	free := make([]string, 0, len(idx.catalog))
	for _, t := range idx.catalog {
		if !idx.IsSlotBusy(date, t) {
			free = append(free, t)
		}
	}
	return free
}

// Schedule собирает расписание дня: недостающие слоты считаются свободными
func (idx *Index) Schedule(date time.Time) model.Schedule {
	day := model.TruncateDay(date)
	schedule := model.Schedule{Date: day, Slots: make([]model.Slot, 0, len(idx.catalog))}

	for _, t := range idx.catalog {
		if s, ok := idx.lookup(day, t); ok {
			schedule.Slots = append(schedule.Slots, s)
			continue
		}
		schedule.Slots = append(schedule.Slots, model.Slot{
			Date:        day,
			TimeOfDay:   t,
			IsAvailable: true,
		})
	}

	return schedule
}

// Schedules расписание для каждой даты диапазона
func (idx *Index) Schedules(r model.DateRange) []model.Schedule {
	dates := r.Dates()
	schedules := make([]model.Schedule, 0, len(dates))
	for _, d := range dates {
		schedules = append(schedules, idx.Schedule(d))
	}
	return schedules
}
