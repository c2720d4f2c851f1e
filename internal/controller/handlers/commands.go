package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Справка по командам:\n\n" +
	"/slots [ГГГГ-ММ-ДД] - Слоты на день\n" +
	"/calendar [ГГГГ-ММ] - Календарь занятости на месяц\n" +
	"/book ГГГГ-ММ-ДД ЧЧ:ММ кандидат [заметка] - Забронировать слот\n" +
	"/book - Забронировать пошагово\n" +
	"/cancel ГГГГ-ММ-ДД ЧЧ:ММ [кандидат] - Отменить бронь\n" +
	"/mybooking [кандидат] - Активные брони кандидата\n" +
	"/stop - Прервать пошаговое бронирование\n" +
	"/help - Показать эту справку"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	name := "рекрутер"
	if update.Message.From != nil && update.Message.From.FirstName != "" {
		name = update.Message.From.FirstName
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Это бот записи на собеседования: он показывает свободные слоты "+
			"и бронирует их за кандидатами.\n\n%s",
		name, helpText,
	))
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleStop прерывает текущий диалог
func (h *Handlers) HandleStop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.")
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.")
}

// HandleTextMessage обрабатывает ответы в пошаговом бронировании
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}
	// команды обрабатываются другими handlers
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)

	switch currentState {
	case state.StateNone:
		return
	case state.StateBookSlot:
		h.handleBookSlotStep(ctx, b, update)
	case state.StateBookSubject:
		h.handleBookSubjectStep(ctx, b, update)
	default:
		h.logger.Warn("Unknown state", zap.String("state", string(currentState)))
		h.stateManager.ClearState(telegramID)
	}
}
