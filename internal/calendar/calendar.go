// Package calendar строит сетку месяца для отображения доступных дней.
package calendar

import (
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
)

// GridSize 6 недель по 7 дней
const GridSize = 42

// Month сетка месяца, выровненная по неделям (неделя начинается с воскресенья)
type Month struct {
	Days         [GridSize]time.Time
	FirstOfMonth time.Time
	LastOfMonth  time.Time
}

// Generate строит сетку из 42 дней для месяца, в который попадает reference.
// Первая ячейка - воскресенье, приходящееся на 1-е число месяца или раньше.
func Generate(reference time.Time) Month {
	first := time.Date(reference.Year(), reference.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	var m Month
	m.FirstOfMonth = first
	m.LastOfMonth = last
	for i := 0; i < GridSize; i++ {
		m.Days[i] = start.AddDate(0, 0, i)
	}
	return m
}

// InMonth проверяет, принадлежит ли день самому месяцу, а не соседним
func (m Month) InMonth(day time.Time) bool {
	d := model.TruncateDay(day)
	return !d.Before(m.FirstOfMonth) && !d.After(m.LastOfMonth)
}

// Range диапазон дат, покрываемый сеткой
func (m Month) Range() model.DateRange {
	return model.DateRange{From: m.Days[0], To: m.Days[GridSize-1]}
}

// Weeks разбивает сетку на 6 строк
func (m Month) Weeks() [][]time.Time {
	weeks := make([][]time.Time, 0, GridSize/7)
	for i := 0; i < GridSize; i += 7 {
		weeks = append(weeks, m.Days[i:i+7])
	}
	return weeks
}
