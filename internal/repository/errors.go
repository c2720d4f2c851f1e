package repository

import "errors"

var (
	// ErrUniqueViolation запись с такой (датой, временем) уже существует
	ErrUniqueViolation = errors.New("slot already exists for date and time")
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("slot not found")
	// ErrGuardRejected запись существует, но условие обновления не выполнено
	ErrGuardRejected = errors.New("slot update rejected by guard")
	// ErrInvalidSlot запись нарушает CHECK ограничение таблицы
	ErrInvalidSlot = errors.New("slot violates table constraint")
)
