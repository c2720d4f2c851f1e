package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/availability"
	"github.com/Freeeeeet/interview_scheduler/internal/calendar"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/render"
)

func main() {
	out := flag.String("out", "calendar.png", "output PNG file")
	monthRaw := flag.String("month", "", "month to render, YYYY-MM (default: current)")
	flag.Parse()

	now := time.Now()
	reference := model.TruncateDay(now)
	if *monthRaw != "" {
		parsed, err := time.Parse("2006-01", *monthRaw)
		if err != nil {
			fmt.Printf("Неверный месяц %q: %v\n", *monthRaw, err)
			os.Exit(1)
		}
		reference = parsed
	}

	month := calendar.Generate(reference)
	catalog := availability.DefaultCatalog

	// Тестовые брони: один полностью занятый день, несколько частично
	var slots []model.Slot
	fullDay := month.FirstOfMonth.AddDate(0, 0, 9)
	for i, t := range catalog {
		slots = append(slots, booked(fullDay, t, fmt.Sprintf("cand-%d", i)))
	}
	for offset := 2; offset < 28; offset += 5 {
		day := month.FirstOfMonth.AddDate(0, 0, offset)
		slots = append(slots, booked(day, catalog[offset%len(catalog)], "cand-x"))
	}

	idx := availability.NewIndex(catalog, slots)
	imageData, err := render.MonthImage(month, idx, now)
	if err != nil {
		fmt.Printf("Ошибка генерации изображения: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, imageData, 0o644); err != nil {
		fmt.Printf("Ошибка сохранения файла: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Изображение сохранено в %s\n", *out)
	fmt.Printf("📅 Месяц: %s\n", month.FirstOfMonth.Format("01.2006"))
	fmt.Printf("📊 Броней: %d\n", len(slots))
}

func booked(date time.Time, timeOfDay, subject string) model.Slot {
	return model.Slot{
		Date:      date,
		TimeOfDay: timeOfDay,
		SubjectID: model.StringPtr(subject),
	}
}
