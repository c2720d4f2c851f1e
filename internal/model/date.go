package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidTimeFormat = errors.New("invalid time of day, expected HH:MM or HH:MM:SS")
	ErrInvalidRange      = errors.New("invalid date range")
)

// ParseDate разбирает дату в формате YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate форматирует дату как YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// TruncateDay отбрасывает время, сохраняя календарную дату, в UTC
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizeTimeOfDay приводит HH:MM или HH:MM:SS к каноническому HH:MM:SS
func NormalizeTimeOfDay(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	limits := []int{23, 59, 59}
	values := []int{0, 0, 0}
	for i, p := range parts {
		if len(p) != 2 || p[0] < '0' || p[0] > '9' || p[1] < '0' || p[1] > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
		}
		values[i] = n
	}

	return fmt.Sprintf("%02d:%02d:%02d", values[0], values[1], values[2]), nil
}

// DateRange включительный диапазон дат [From, To]
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange создаёт диапазон, проверяя порядок границ
func NewDateRange(from, to time.Time) (DateRange, error) {
	from, to = TruncateDay(from), TruncateDay(to)
	if to.Before(from) {
		return DateRange{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, FormatDate(from), FormatDate(to))
	}
	return DateRange{From: from, To: to}, nil
}

// SingleDay диапазон из одного дня
func SingleDay(date time.Time) DateRange {
	d := TruncateDay(date)
	return DateRange{From: d, To: d}
}

// Contains проверяет попадание даты в диапазон
func (r DateRange) Contains(date time.Time) bool {
	d := TruncateDay(date)
	return !d.Before(r.From) && !d.After(r.To)
}

// Dates возвращает все даты диапазона по порядку
func (r DateRange) Dates() []time.Time {
	var dates []time.Time
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Key ключ диапазона для кеша
func (r DateRange) Key() string {
	return FormatDate(r.From) + "|" + FormatDate(r.To)
}
