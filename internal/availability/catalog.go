package availability

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
)

// DefaultCatalog 9 часовых слотов с 08:00 до 16:00
var DefaultCatalog = []string{
	"08:00:00", "09:00:00", "10:00:00",
	"11:00:00", "12:00:00", "13:00:00",
	"14:00:00", "15:00:00", "16:00:00",
}

// ParseCatalog разбирает список времени через запятую.
// Порядок сохраняется, дубликаты отбрасываются.
func ParseCatalog(raw string) ([]string, error) {
	var catalog []string
	seen := make(map[string]struct{})

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, err := model.NormalizeTimeOfDay(part)
		if err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		catalog = append(catalog, label)
	}

	if len(catalog) == 0 {
		return nil, fmt.Errorf("parse catalog: no time slots in %q", raw)
	}
	return catalog, nil
}
