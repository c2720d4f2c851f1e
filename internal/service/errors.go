package service

import (
	"errors"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
)

// Ошибки координатора бронирования
var (
	ErrInvalidTimeFormat = model.ErrInvalidTimeFormat
	ErrInvalidDate       = model.ErrInvalidDate
	ErrMissingSubject    = errors.New("subject id is required")
	ErrSlotOccupied      = errors.New("slot is held by another subject")
	ErrNotOwner          = errors.New("slot is not held by this subject")
	ErrSlotNotFound      = errors.New("no booking for this slot")
	ErrStoreUnavailable  = errors.New("slot store unavailable")
	ErrInvalidSlotState  = errors.New("slot state rejected by store")
)

// IsRetriable true для временных сбоев хранилища, которые можно повторить с backoff
func IsRetriable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsLenientCancel true, если ошибку отмены можно считать успехом
// (слот уже свободен)
func IsLenientCancel(err error) bool {
	return err == nil || errors.Is(err, ErrSlotNotFound)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidTimeFormat), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrMissingSubject),
		errors.Is(err, ErrInvalidSlotState):
		return "invalid"
	case errors.Is(err, ErrSlotOccupied):
		return "slot_occupied"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrSlotNotFound):
		return "slot_not_found"
	default:
		return "store_unavailable"
	}
}
