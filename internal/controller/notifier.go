package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/controller/handlers"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	notifyQueueSize   = 64
	notifySendTimeout = 10 * time.Second
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Notifier отправляет события бронирования в чат рекрутеров.
// Handle только ставит событие в очередь, отправкой занимается Run.
type Notifier struct {
	sender messageSender
	chatID int64
	queue  chan model.Event
	logger *zap.Logger
}

func NewNotifier(sender messageSender, chatID int64, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: chatID,
		queue:  make(chan model.Event, notifyQueueSize),
		logger: logger,
	}
}

// Handle слушатель событий координатора
func (n *Notifier) Handle(event model.Event) {
	select {
	case n.queue <- event:
	default:
		n.logger.Warn("Notification queue is full, dropping event",
			zap.String("event_id", event.ID.String()),
			zap.String("kind", string(event.Kind)))
	}
}

// Run отправляет уведомления до отмены контекста
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-n.queue:
			n.send(ctx, event)
		}
	}
}

func (n *Notifier) send(ctx context.Context, event model.Event) {
	ctx, cancel := context.WithTimeout(ctx, notifySendTimeout)
	defer cancel()

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   NotificationText(event),
	})
	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.Int64("chat_id", n.chatID),
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
	}
}

// NotificationText текст уведомления о событии слота
func NotificationText(event model.Event) string {
	date := handlers.FormatDate(event.Date)
	timeOfDay := handlers.FormatTimeOfDay(event.TimeOfDay)

	switch event.Kind {
	case model.EventBooked:
		return fmt.Sprintf("🔔 Новая запись на собеседование\n\n👤 Кандидат: %s\n📅 Дата: %s\n🕐 Время: %s",
			event.SubjectID, date, timeOfDay)
	case model.EventReleased:
		return fmt.Sprintf("🔕 Запись отменена, слот снова свободен\n\n👤 Кандидат: %s\n📅 Дата: %s\n🕐 Время: %s",
			event.SubjectID, date, timeOfDay)
	default:
		return fmt.Sprintf("ℹ️ Слот %s %s: %s", date, timeOfDay, event.Kind)
	}
}
