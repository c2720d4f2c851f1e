package state

import (
	"sync"
)

// Manager хранит состояния диалогов пользователей
type Manager struct {
	mu     sync.RWMutex
	states map[int64]*UserData // telegramID -> UserData
}

func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]*UserData),
	}
}

// GetState текущее состояние пользователя
func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		return userData.State
	}
	return StateNone
}

// SetState переводит пользователя на шаг диалога, данные сохраняются
func (sm *Manager) SetState(telegramID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.ensure(telegramID).State = state
}

// GetData значение из данных пользователя
func (sm *Manager) GetData(telegramID int64, key string) (string, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		value, ok := userData.Data[key]
		return value, ok
	}
	return "", false
}

func (sm *Manager) SetData(telegramID int64, key, value string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.ensure(telegramID).Data[key] = value
}

// ClearState завершает диалог. Запомненный субъект остаётся.
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	userData, exists := sm.states[telegramID]
	if !exists {
		return
	}
	subject, remembered := userData.Data[KeySubjectID]
	if !remembered {
		delete(sm.states, telegramID)
		return
	}
	sm.states[telegramID] = &UserData{
		State: StateNone,
		Data:  map[string]string{KeySubjectID: subject},
	}
}

func (sm *Manager) ensure(telegramID int64) *UserData {
	userData, exists := sm.states[telegramID]
	if !exists {
		userData = &UserData{State: StateNone, Data: make(map[string]string)}
		sm.states[telegramID] = userData
	}
	return userData
}
