package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/controller/state"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/render"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleSlots обрабатывает команду /slots [ГГГГ-ММ-ДД]
func (h *Handlers) HandleSlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	date, err := parseDayArg(commandArgs(update.Message.Text), h.now())
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	schedules, err := h.bookingService.ListAvailability(ctx, model.SingleDay(date))
	if err != nil {
		h.logger.Error("Failed to list availability", zap.String("date", model.FormatDate(date)), zap.Error(err))
		h.sendError(ctx, b, chatID, err)
		return
	}
	if len(schedules) == 0 {
		h.sendError(ctx, b, chatID, model.ErrInvalidRange)
		return
	}

	h.sendMessage(ctx, b, chatID, formatSchedule(schedules[0]))
}

// HandleCalendar обрабатывает команду /calendar [ГГГГ-ММ]: отправляет картинку месяца
func (h *Handlers) HandleCalendar(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	reference, err := parseMonthArg(commandArgs(update.Message.Text), h.now())
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	month, idx, err := h.bookingService.MonthView(ctx, reference)
	if err != nil {
		h.logger.Error("Failed to load month view", zap.Time("reference", reference), zap.Error(err))
		h.sendError(ctx, b, chatID, err)
		return
	}

	image, err := render.MonthImage(month, idx, h.now())
	if err != nil {
		h.logger.Error("Failed to render month image", zap.Error(err))
		h.sendError(ctx, b, chatID, err)
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: chatID,
		Photo: &models.InputFileUpload{
			Filename: "calendar.png",
			Data:     bytes.NewReader(image),
		},
		Caption: "🟢 свободно  🟠 частично занято  🔴 всё занято\nСлоты дня: /slots ГГГГ-ММ-ДД",
	})
	if err != nil {
		h.logger.Error("Failed to send calendar image", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// HandleBook обрабатывает команду /book. Без аргументов начинает пошаговый диалог.
func (h *Handlers) HandleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	args := commandArgs(update.Message.Text)
	if len(args) == 0 {
		h.stateManager.SetState(telegramID, state.StateBookSlot)
		h.sendMessage(ctx, b, chatID, "📅 Введите дату и время слота: ГГГГ-ММ-ДД ЧЧ:ММ\n\nПрервать: /stop")
		return
	}

	parsed, err := parseSlotArgs(args, "", true)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}
	h.book(ctx, b, update, parsed)
}

// handleBookSlotStep шаг диалога: дата и время
func (h *Handlers) handleBookSlotStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	fields := strings.Fields(update.Message.Text)
	if len(fields) != 2 {
		h.sendError(ctx, b, chatID, ErrUsage)
		return
	}
	// субъект спрашиваем следующим шагом
	parsed, err := parseSlotArgs(fields, "pending", false)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.stateManager.SetData(telegramID, state.KeyDate, model.FormatDate(parsed.Date))
	h.stateManager.SetData(telegramID, state.KeyTimeOfDay, parsed.TimeOfDay)
	h.stateManager.SetState(telegramID, state.StateBookSubject)

	prompt := "👤 Введите идентификатор кандидата"
	if subject, ok := h.stateManager.GetData(telegramID, state.KeySubjectID); ok {
		prompt += fmt.Sprintf(" (последний: %s)", subject)
	}
	h.sendMessage(ctx, b, chatID, prompt)
}

// handleBookSubjectStep шаг диалога: кандидат, затем бронирование
func (h *Handlers) handleBookSubjectStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	dateRaw, ok1 := h.stateManager.GetData(telegramID, state.KeyDate)
	timeOfDay, ok2 := h.stateManager.GetData(telegramID, state.KeyTimeOfDay)
	if !ok1 || !ok2 {
		h.logger.Error("Missing data for booking dialog", zap.Int64("telegram_id", telegramID))
		h.stateManager.ClearState(telegramID)
		h.sendMessage(ctx, b, chatID, "❌ Данные диалога потеряны. Начните заново: /book")
		return
	}

	fields := strings.Fields(update.Message.Text)
	if len(fields) == 0 {
		h.sendError(ctx, b, chatID, service.ErrMissingSubject)
		return
	}

	parsed, err := parseSlotArgs(append([]string{dateRaw, timeOfDay}, fields...), "", true)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.book(ctx, b, update, parsed)
}

func (h *Handlers) book(ctx context.Context, b *bot.Bot, update *models.Update, parsed slotArgs) {
	chatID := update.Message.Chat.ID

	outcome, err := h.bookingService.Book(ctx, service.BookRequest{
		Date:      parsed.Date,
		TimeOfDay: parsed.TimeOfDay,
		SubjectID: parsed.SubjectID,
		OwnerID:   ownerID(update),
		Notes:     parsed.Notes,
	})
	if err != nil {
		h.logger.Info("Booking rejected",
			zap.String("date", model.FormatDate(parsed.Date)),
			zap.String("time", parsed.TimeOfDay),
			zap.String("subject_id", parsed.SubjectID),
			zap.Error(err))
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.stateManager.SetData(update.Message.From.ID, state.KeySubjectID, parsed.SubjectID)
	h.sendMessage(ctx, b, chatID, formatBooked(outcome))
}

// HandleCancel обрабатывает команду /cancel ГГГГ-ММ-ДД ЧЧ:ММ [кандидат]
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	remembered, _ := h.stateManager.GetData(update.Message.From.ID, state.KeySubjectID)
	parsed, err := parseSlotArgs(commandArgs(update.Message.Text), remembered, false)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	if err := h.bookingService.Cancel(ctx, parsed.Date, parsed.TimeOfDay, parsed.SubjectID); err != nil {
		h.logger.Info("Cancellation rejected",
			zap.String("date", model.FormatDate(parsed.Date)),
			zap.String("time", parsed.TimeOfDay),
			zap.String("subject_id", parsed.SubjectID),
			zap.Error(err))
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"✅ Бронь отменена\n\n📅 %s 🕐 %s\n👤 %s",
		FormatDate(parsed.Date), FormatTimeOfDay(parsed.TimeOfDay), parsed.SubjectID,
	))
}

// HandleMyBooking обрабатывает команду /mybooking [кандидат]
func (h *Handlers) HandleMyBooking(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	subjectID, _ := h.stateManager.GetData(update.Message.From.ID, state.KeySubjectID)
	switch {
	case len(args) == 1:
		subjectID = args[0]
	case len(args) > 1:
		h.sendError(ctx, b, chatID, ErrUsage)
		return
	}
	if subjectID == "" {
		h.sendError(ctx, b, chatID, service.ErrMissingSubject)
		return
	}

	slots, err := h.bookingService.ActiveBookings(ctx, subjectID)
	if err != nil {
		h.logger.Error("Failed to load active bookings", zap.String("subject_id", subjectID), zap.Error(err))
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, formatActiveBookings(subjectID, slots))
}
