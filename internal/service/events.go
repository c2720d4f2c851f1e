package service

import (
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"go.uber.org/zap"
)

// Listener получает доменные события координатора.
// Вызывается синхронно, поэтому не должен блокироваться надолго.
type Listener func(event model.Event)

// Subscribe регистрирует слушателя и возвращает функцию отписки
func (s *BookingService) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = l

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// emit доставляет событие всем слушателям. Доставка best-effort:
// паника слушателя логируется и не мешает остальным.
func (s *BookingService) emit(event model.Event) {
	s.listenersMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		s.deliver(l, event)
	}
}

func (s *BookingService) deliver(l Listener, event model.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Event listener panicked",
				zap.String("kind", string(event.Kind)),
				zap.Any("panic", r))
		}
	}()
	l(event)
}
