package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// sweepable кеш с удалением истёкших записей
type sweepable interface {
	Sweep() int
}

// Sweeper периодически удаляет истёкшие записи кеша диапазонов
type Sweeper struct {
	cache    sweepable
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(cache sweepable, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		cache:    cache,
		interval: interval,
		logger:   logger,
	}
}

// Run работает до отмены контекста
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("Starting cache sweeper", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.cache.Sweep(); removed > 0 {
				s.logger.Debug("Expired cache entries removed", zap.Int("removed", removed))
			}
		case <-ctx.Done():
			s.logger.Info("Cache sweeper stopped")
			return nil
		}
	}
}
