// Package render рисует календарь доступности слотов в PNG.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"sync"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/availability"
	"github.com/Freeeeeet/interview_scheduler/internal/calendar"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Константы размеров и отступов
const (
	imageWidth    = 1050
	imageHeight   = 820
	headerHeight  = 110
	legendHeight  = 60
	gridPadding   = 20
	cellGap       = 6.0
	cellRadius    = 8.0
	daysInWeek    = 7
	weeksInGrid   = calendar.GridSize / daysInWeek
	badgeFontSize = 15.0
)

// Константы шрифтов
const (
	titleFontSize   = 30.0
	weekdayFontSize = 18.0
	dayFontSize     = 24.0
	legendFontSize  = 15.0
)

// Цветовая схема
var (
	bgColor        = color.RGBA{245, 246, 248, 255}
	textColor      = color.RGBA{80, 85, 90, 230}
	dimTextColor   = color.RGBA{150, 155, 160, 200}
	todayRingColor = color.RGBA{255, 80, 80, 220}

	dayFreeColor    = color.RGBA{133, 193, 85, 220}
	dayPartialColor = color.RGBA{245, 180, 60, 230}
	dayFullColor    = color.RGBA{230, 90, 90, 230}
	dayOutsideColor = color.RGBA{225, 225, 225, 200}
	cellShadowColor = color.RGBA{0, 0, 0, 20}
)

type fontStyle int

const (
	fontRegular fontStyle = iota
	fontBold
)

var (
	fontsMu     sync.Mutex
	cachedFonts = make(map[fontStyle]*opentype.Font)
)

// loadFont выставляет шрифт нужного размера, при ошибке использует basicfont
func loadFont(dc *gg.Context, size float64, style fontStyle) {
	parsed, err := parsedFont(style)
	if err == nil {
		face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

func parsedFont(style fontStyle) (*opentype.Font, error) {
	fontsMu.Lock()
	defer fontsMu.Unlock()

	if f, ok := cachedFonts[style]; ok {
		return f, nil
	}

	data := goregular.TTF
	if style == fontBold {
		data = gobold.TTF
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	cachedFonts[style] = f
	return f, nil
}

// DayState состояние дня в сетке
type DayState int

const (
	DayFree DayState = iota
	DayPartial
	DayFull
	DayOutside
)

// StateOf состояние дня для отрисовки
func StateOf(month calendar.Month, idx *availability.Index, day time.Time) DayState {
	switch {
	case !month.InMonth(day):
		return DayOutside
	case idx.IsDateFullyBooked(day):
		return DayFull
	case idx.IsDatePartiallyBooked(day):
		return DayPartial
	default:
		return DayFree
	}
}

// MonthImage рисует сетку месяца (6 недель) с цветом дня по занятости слотов
func MonthImage(month calendar.Month, idx *availability.Index, today time.Time) ([]byte, error) {
	if idx == nil {
		return nil, fmt.Errorf("render month: availability index is nil")
	}

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	cellWidth := float64(imageWidth-2*gridPadding) / daysInWeek
	cellHeight := float64(imageHeight-headerHeight-legendHeight-gridPadding) / weeksInGrid

	drawHeader(dc, month, cellWidth)
	for i, day := range month.Days {
		x := float64(gridPadding) + float64(i%daysInWeek)*cellWidth
		y := float64(headerHeight) + float64(i/daysInWeek)*cellHeight
		drawDay(dc, day, StateOf(month, idx, day), len(idx.AvailableSlots(day)), x, y, cellWidth, cellHeight,
			sameDay(day, today))
	}
	drawLegend(dc)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawHeader рисует название месяца и дни недели (с воскресенья)
func drawHeader(dc *gg.Context, month calendar.Month, cellWidth float64) {
	title := monthNameRussian(month.FirstOfMonth.Month()) + " " + strconv.Itoa(month.FirstOfMonth.Year())

	loadFont(dc, titleFontSize, fontBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(imageWidth)/2, 40, 0.5, 0.5)

	loadFont(dc, weekdayFontSize, fontRegular)
	for i := 0; i < daysInWeek; i++ {
		x := float64(gridPadding) + float64(i)*cellWidth + cellWidth/2
		dc.DrawStringAnchored(weekdayShort(time.Weekday(i)), x, float64(headerHeight)-18, 0.5, 0.5)
	}
}

// drawDay рисует ячейку дня
func drawDay(dc *gg.Context, day time.Time, state DayState, free int, x, y, w, h float64, isToday bool) {
	fill := stateColor(state)

	dc.SetColor(cellShadowColor)
	dc.DrawRoundedRectangle(x+cellGap/2+2, y+cellGap/2+2, w-cellGap, h-cellGap, cellRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+cellGap/2, y+cellGap/2, w-cellGap, h-cellGap, cellRadius)
	dc.Fill()

	if isToday {
		dc.SetColor(todayRingColor)
		dc.SetLineWidth(3)
		dc.DrawRoundedRectangle(x+cellGap/2, y+cellGap/2, w-cellGap, h-cellGap, cellRadius)
		dc.Stroke()
	}

	loadFont(dc, dayFontSize, fontBold)
	if state == DayOutside {
		dc.SetColor(dimTextColor)
	} else {
		dc.SetColor(textColor)
	}
	dc.DrawStringAnchored(strconv.Itoa(day.Day()), x+14, y+16, 0, 1)

	if state == DayOutside || state == DayFull {
		return
	}
	loadFont(dc, badgeFontSize, fontRegular)
	dc.SetColor(textColor)
	dc.DrawStringAnchored("свободно: "+strconv.Itoa(free), x+14, y+h-16, 0, 0)
}

// drawLegend рисует легенду под сеткой
func drawLegend(dc *gg.Context) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Свободно", dayFreeColor},
		{"Частично занято", dayPartialColor},
		{"Всё занято", dayFullColor},
	}

	boxW, boxH := 22.0, 16.0
	x := float64(gridPadding)
	y := float64(imageHeight - legendHeight + 18)

	loadFont(dc, legendFontSize, fontRegular)
	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(item.label, x+boxW+8, y+boxH/2, 0, 0.35)
		w, _ := dc.MeasureString(item.label)
		x += boxW + 8 + w + 30
	}
}

func stateColor(state DayState) color.RGBA {
	switch state {
	case DayFull:
		return dayFullColor
	case DayPartial:
		return dayPartialColor
	case DayOutside:
		return dayOutsideColor
	default:
		return dayFreeColor
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// короткие дни недели
func weekdayShort(weekday time.Weekday) string {
	weekdays := map[time.Weekday]string{
		time.Monday:    "Пн",
		time.Tuesday:   "Вт",
		time.Wednesday: "Ср",
		time.Thursday:  "Чт",
		time.Friday:    "Пт",
		time.Saturday:  "Сб",
		time.Sunday:    "Вс",
	}
	return weekdays[weekday]
}

// названия месяцев на русском
func monthNameRussian(month time.Month) string {
	months := map[time.Month]string{
		time.January:   "Январь",
		time.February:  "Февраль",
		time.March:     "Март",
		time.April:     "Апрель",
		time.May:       "Май",
		time.June:      "Июнь",
		time.July:      "Июль",
		time.August:    "Август",
		time.September: "Сентябрь",
		time.October:   "Октябрь",
		time.November:  "Ноябрь",
		time.December:  "Декабрь",
	}
	return months[month]
}
