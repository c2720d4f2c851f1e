package handlers

import (
	"errors"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
)

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUsage):
		return "❌ Неверный формат команды. Справка: /help"
	case errors.Is(err, service.ErrInvalidTimeFormat):
		return "❌ Неверный формат времени. Используйте ЧЧ:ММ, например 09:00"
	case errors.Is(err, service.ErrInvalidDate), errors.Is(err, model.ErrInvalidRange):
		return "❌ Неверная дата. Используйте ГГГГ-ММ-ДД, например 2025-09-10"
	case errors.Is(err, service.ErrMissingSubject):
		return "❌ Укажите идентификатор кандидата"
	case errors.Is(err, service.ErrSlotOccupied):
		return "❌ Этот слот уже занят. Выберите другое время."
	case errors.Is(err, service.ErrNotOwner):
		return "❌ Слот забронирован другим кандидатом"
	case errors.Is(err, service.ErrSlotNotFound):
		return "❌ Бронирование не найдено"
	case errors.Is(err, service.ErrInvalidSlotState):
		return "❌ Бронирование отклонено: некорректное состояние слота"
	case errors.Is(err, service.ErrStoreUnavailable):
		return "⚠️ Сервис временно недоступен. Попробуйте позже."
	default:
		return "❌ Произошла ошибка"
	}
}
