package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
)

// ErrUsage команда вызвана с неверным числом аргументов
var ErrUsage = errors.New("wrong command usage")

const monthLayout = "2006-01"

// slotArgs дата, время и субъект из аргументов команды
type slotArgs struct {
	Date      time.Time
	TimeOfDay string
	SubjectID string
	Notes     string
}

// commandArgs аргументы после команды: "/book@bot 2025-09-10 08:00" -> ["2025-09-10", "08:00"]
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return fields
	}
	return fields[1:]
}

// parseSlotArgs разбирает "YYYY-MM-DD HH:MM subject [notes...]".
// Без subject используется fallback (запомненный субъект пользователя).
func parseSlotArgs(args []string, fallbackSubject string, allowNotes bool) (slotArgs, error) {
	if len(args) < 2 {
		return slotArgs{}, ErrUsage
	}

	date, err := model.ParseDate(args[0])
	if err != nil {
		return slotArgs{}, err
	}
	timeOfDay, err := model.NormalizeTimeOfDay(args[1])
	if err != nil {
		return slotArgs{}, err
	}

	parsed := slotArgs{Date: date, TimeOfDay: timeOfDay, SubjectID: fallbackSubject}
	if len(args) >= 3 {
		parsed.SubjectID = args[2]
	}
	if len(args) > 3 {
		if !allowNotes {
			return slotArgs{}, ErrUsage
		}
		parsed.Notes = strings.Join(args[3:], " ")
	}
	if parsed.SubjectID == "" {
		return slotArgs{}, ErrUsage
	}
	return parsed, nil
}

// parseDayArg дата из первого аргумента, по умолчанию сегодня
func parseDayArg(args []string, now time.Time) (time.Time, error) {
	if len(args) == 0 {
		return model.TruncateDay(now), nil
	}
	if len(args) > 1 {
		return time.Time{}, ErrUsage
	}
	return model.ParseDate(args[0])
}

// parseMonthArg месяц "YYYY-MM" (или полная дата), по умолчанию текущий
func parseMonthArg(args []string, now time.Time) (time.Time, error) {
	if len(args) == 0 {
		return model.TruncateDay(now), nil
	}
	if len(args) > 1 {
		return time.Time{}, ErrUsage
	}
	if month, err := time.Parse(monthLayout, args[0]); err == nil {
		return month, nil
	}
	if date, err := model.ParseDate(args[0]); err == nil {
		return date, nil
	}
	return time.Time{}, fmt.Errorf("parse month %q: %w", args[0], model.ErrInvalidDate)
}
