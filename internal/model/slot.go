package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Slot одна запись о слоте собеседования на (дата, время)
type Slot struct {
	ID          uuid.UUID `json:"id"`
	Date        time.Time `json:"date"`        // только дата, время 00:00 UTC
	TimeOfDay   string    `json:"time_of_day"` // HH:MM:SS
	IsAvailable bool      `json:"is_available"`
	SubjectID   *string   `json:"subject_id"` // кандидат / отклик
	OwnerID     *string   `json:"owner_id"`   // рекрутер
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrBookedWithoutSubject = errors.New("booked slot must have a subject")
	ErrAvailableWithHolder  = errors.New("available slot must not have subject or owner")
)

// Validate проверяет инвариант занятости слота
func (s *Slot) Validate() error {
	if !s.IsAvailable && (s.SubjectID == nil || *s.SubjectID == "") {
		return ErrBookedWithoutSubject
	}
	if s.IsAvailable && (s.SubjectID != nil || s.OwnerID != nil) {
		return ErrAvailableWithHolder
	}
	return nil
}

// HeldBy возвращает true, если слот занят указанным субъектом
func (s *Slot) HeldBy(subjectID string) bool {
	return !s.IsAvailable && s.SubjectID != nil && *s.SubjectID == subjectID
}

// Subject возвращает идентификатор субъекта или пустую строку
func (s *Slot) Subject() string {
	if s.SubjectID == nil {
		return ""
	}
	return *s.SubjectID
}

// Key возвращает уникальный ключ слота (дата + время)
func (s *Slot) Key() string {
	return SlotKey(s.Date, s.TimeOfDay)
}

// SlotKey строит ключ "YYYY-MM-DD HH:MM:SS"
func SlotKey(date time.Time, timeOfDay string) string {
	return FormatDate(date) + " " + timeOfDay
}

// Schedule производное представление одного дня: все слоты каталога по порядку
type Schedule struct {
	Date  time.Time `json:"date"`
	Slots []Slot    `json:"slots"`
}

// StringPtr возвращает указатель на строку, nil для пустой
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
