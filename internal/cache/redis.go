package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultInvalidationChannel = "interview_slots:invalidate"

// RedisInvalidator рассылает даты изменённых слотов между экземплярами сервиса,
// чтобы каждый сбросил свой локальный кеш диапазонов
type RedisInvalidator struct {
	rdb     *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisInvalidator создаёт инвалидатор поверх клиента Redis
func NewRedisInvalidator(rdb *redis.Client, channel string, logger *zap.Logger) *RedisInvalidator {
	if strings.TrimSpace(channel) == "" {
		channel = DefaultInvalidationChannel
	}
	return &RedisInvalidator{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Publish сообщает остальным экземплярам об изменении даты
func (r *RedisInvalidator) Publish(ctx context.Context, date time.Time) error {
	if err := r.rdb.Publish(ctx, r.channel, encodeInvalidation(r.origin, date)).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// HandleEvent слушатель доменных событий: публикует дату события
func (r *RedisInvalidator) HandleEvent(event model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := r.Publish(ctx, event.Date); err != nil {
		r.logger.Warn("Failed to publish cache invalidation",
			zap.String("date", model.FormatDate(event.Date)),
			zap.Error(err))
	}
}

// Listen блокируется до отмены ctx, вызывая invalidate для дат от других экземпляров
func (r *RedisInvalidator) Listen(ctx context.Context, invalidate func(date time.Time)) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	r.logger.Info("Listening for cache invalidations", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			origin, date, err := decodeInvalidation(msg.Payload)
			if err != nil {
				r.logger.Warn("Skipping malformed invalidation", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			if origin == r.origin {
				continue
			}
			invalidate(date)
		}
	}
}

func encodeInvalidation(origin string, date time.Time) string {
	return origin + "|" + model.FormatDate(date)
}

func decodeInvalidation(payload string) (string, time.Time, error) {
	origin, raw, ok := strings.Cut(payload, "|")
	if !ok || origin == "" {
		return "", time.Time{}, fmt.Errorf("invalid invalidation payload %q", payload)
	}
	date, err := model.ParseDate(raw)
	if err != nil {
		return "", time.Time{}, err
	}
	return origin, date, nil
}
