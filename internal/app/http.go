package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/metrics"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// maxRangeDays ограничение на длину запрашиваемого диапазона
const maxRangeDays = 92

// ReadyCheck именованная проверка зависимости для /readyz
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// AvailabilityReader чтение доступности для HTTP API
type AvailabilityReader interface {
	ListAvailability(ctx context.Context, r model.DateRange) ([]model.Schedule, error)
	Catalog() []string
}

type availabilityResponse struct {
	From      string        `json:"from"`
	To        string        `json:"to"`
	TimeSlots []string      `json:"time_slots"`
	Days      []dayResponse `json:"days"`
}

type dayResponse struct {
	Date        string         `json:"date"`
	FullyBooked bool           `json:"fully_booked"`
	Available   int            `json:"available"`
	Slots       []slotResponse `json:"slots"`
}

type slotResponse struct {
	TimeOfDay   string `json:"time_of_day"`
	IsAvailable bool   `json:"is_available"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPMux собирает служебные эндпоинты и API доступности
func NewHTTPMux(reader AvailabilityReader, gatherer prometheus.Gatherer, logger *zap.Logger, checks ...ReadyCheck) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", readyHandler(checks))
	mux.Handle("GET /metrics", metrics.Handler(gatherer))
	mux.Handle("GET /api/v1/availability", otelhttp.NewHandler(availabilityHandler(reader, logger), "availability"))

	return mux
}

// NewHTTPServer http.Server с таймаутами
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

func readyHandler(checks []ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var failures []string
		for _, check := range checks {
			if check.Check == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := check.Check(ctx)
			cancel()
			if err != nil {
				failures = append(failures, check.Name+": "+err.Error())
			}
		}

		if len(failures) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(strings.Join(failures, "; ")))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func availabilityHandler(reader AvailabilityReader, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dateRange, err := parseRangeQuery(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		schedules, err := reader.ListAvailability(r.Context(), dateRange)
		if err != nil {
			if errors.Is(err, service.ErrStoreUnavailable) {
				logger.Error("Failed to list availability", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "slot store unavailable"})
				return
			}
			logger.Error("Unexpected availability error", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityResponse(dateRange, reader.Catalog(), schedules))
	})
}

// parseRangeQuery разбирает ?from=YYYY-MM-DD&to=YYYY-MM-DD (to по умолчанию равен from)
func parseRangeQuery(r *http.Request) (model.DateRange, error) {
	q := r.URL.Query()
	fromRaw := q.Get("from")
	if fromRaw == "" {
		return model.DateRange{}, errors.New("query parameter from is required")
	}
	from, err := model.ParseDate(fromRaw)
	if err != nil {
		return model.DateRange{}, err
	}

	to := from
	if toRaw := q.Get("to"); toRaw != "" {
		if to, err = model.ParseDate(toRaw); err != nil {
			return model.DateRange{}, err
		}
	}

	dateRange, err := model.NewDateRange(from, to)
	if err != nil {
		return model.DateRange{}, err
	}
	if len(dateRange.Dates()) > maxRangeDays {
		return model.DateRange{}, errors.New("date range is too long")
	}
	return dateRange, nil
}

func toAvailabilityResponse(dateRange model.DateRange, catalog []string, schedules []model.Schedule) availabilityResponse {
	resp := availabilityResponse{
		From:      model.FormatDate(dateRange.From),
		To:        model.FormatDate(dateRange.To),
		TimeSlots: catalog,
		Days:      make([]dayResponse, 0, len(schedules)),
	}

	for _, schedule := range schedules {
		day := dayResponse{
			Date:  model.FormatDate(schedule.Date),
			Slots: make([]slotResponse, 0, len(schedule.Slots)),
		}
		for _, slot := range schedule.Slots {
			if slot.IsAvailable {
				day.Available++
			}
			day.Slots = append(day.Slots, slotResponse{TimeOfDay: slot.TimeOfDay, IsAvailable: slot.IsAvailable})
		}
		day.FullyBooked = len(day.Slots) > 0 && day.Available == 0
		resp.Days = append(resp.Days, day)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
