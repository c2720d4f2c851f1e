package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
)

// FormatDate форматирует дату для сообщений
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatTimeOfDay "08:00:00" -> "08:00"
func FormatTimeOfDay(timeOfDay string) string {
	if len(timeOfDay) == len("15:04:05") {
		return timeOfDay[:5]
	}
	return timeOfDay
}

// formatSchedule расписание дня с отметками занятости
func formatSchedule(schedule model.Schedule) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 Слоты на %s\n\n", FormatDate(schedule.Date))

	free := 0
	for _, slot := range schedule.Slots {
		if slot.IsAvailable {
			free++
			fmt.Fprintf(&sb, "🟢 %s свободно\n", FormatTimeOfDay(slot.TimeOfDay))
			continue
		}
		fmt.Fprintf(&sb, "🔴 %s занято\n", FormatTimeOfDay(slot.TimeOfDay))
	}

	if free == 0 {
		sb.WriteString("\nСвободных слотов нет. Посмотрите другие дни: /calendar")
	} else {
		fmt.Fprintf(&sb, "\nСвободно: %d. Записаться: /book ГГГГ-ММ-ДД ЧЧ:ММ кандидат", free)
	}
	return sb.String()
}

// formatBooked подтверждение бронирования
func formatBooked(outcome *service.BookingOutcome) string {
	text := fmt.Sprintf(
		"✅ Слот забронирован!\n\n"+
			"📅 Дата: %s\n"+
			"🕐 Время: %s\n"+
			"👤 Кандидат: %s",
		FormatDate(outcome.Slot.Date),
		FormatTimeOfDay(outcome.Slot.TimeOfDay),
		outcome.Slot.Subject(),
	)

	if outcome.HasOtherBookings() {
		text += "\n\n⚠️ У кандидата есть другие брони:\n" + formatBookingList(outcome.OtherBookings)
		text += "\nОтменить лишнее: /cancel ГГГГ-ММ-ДД ЧЧ:ММ кандидат"
	}
	return text
}

// formatActiveBookings список активных броней субъекта
func formatActiveBookings(subjectID string, slots []model.Slot) string {
	if len(slots) == 0 {
		return fmt.Sprintf("📭 У кандидата %s нет активных броней", subjectID)
	}
	return fmt.Sprintf("📅 Брони кандидата %s:\n\n%s", subjectID, formatBookingList(slots))
}

func formatBookingList(slots []model.Slot) string {
	var sb strings.Builder
	for _, slot := range slots {
		fmt.Fprintf(&sb, "• %s %s", FormatDate(slot.Date), FormatTimeOfDay(slot.TimeOfDay))
		if slot.Notes != nil && *slot.Notes != "" {
			fmt.Fprintf(&sb, " (%s)", *slot.Notes)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
