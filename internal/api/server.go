// Package api exposes the booking operations over HTTP. It is thin glue:
// requests are parsed, handed to the orchestrator, and its results rendered
// into a JSON envelope.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"apptbot/internal/booking"
	"apptbot/internal/catalog"
	"apptbot/internal/export"
	"apptbot/internal/metrics"
	"apptbot/internal/slots"
)

// BookingService is the orchestrator surface the HTTP layer depends on.
type BookingService interface {
	GetSlots(ctx context.Context, date, serviceID string) ([]slots.Slot, error)
	Book(ctx context.Context, req booking.BookRequest) (booking.Reservation, error)
	Cancel(ctx context.Context, appointmentID string) (booking.CancelResult, error)
	Reschedule(ctx context.Context, appointmentID string, newStart, newEnd time.Time) (booking.Reservation, error)
	Find(ctx context.Context, appointmentID string) (booking.Reservation, error)
}

// Server is the HTTP API server.
type Server struct {
	svc      BookingService
	catalog  *catalog.Catalog
	reporter *export.Reporter

	rdb      *redis.Client
	cacheTTL time.Duration

	log *zerolog.Logger
}

// NewServer builds the API server. rdb may be nil to disable slot caching.
func NewServer(svc BookingService, cat *catalog.Catalog, reporter *export.Reporter, rdb *redis.Client, cacheTTL time.Duration, log *zerolog.Logger) *Server {
	return &Server{svc: svc, catalog: cat, reporter: reporter, rdb: rdb, cacheTTL: cacheTTL, log: log}
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/services", s.handleServices)
	mux.HandleFunc("/api/slots", s.handleSlots)
	mux.HandleFunc("/api/appointments", s.handleAppointments)
	mux.HandleFunc("/api/appointments/", s.handleAppointmentByID)
	mux.HandleFunc("/api/export", s.handleExport)
	return mux
}

type envelope struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Error     *apiError `json:"error,omitempty"`
}

type apiError struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   true,
		Timestamp: time.Now().UTC(),
		Message:   message,
		Data:      data,
	})
}

func writeErr(w http.ResponseWriter, err error) {
	kind := booking.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case booking.KindValidation, booking.KindInvalidDate:
		status = http.StatusBadRequest
	case booking.KindNotFound:
		status = http.StatusNotFound
	case booking.KindConflict:
		status = http.StatusConflict
	case booking.KindStoreUnavailable:
		status = http.StatusBadGateway
	}

	out := &apiError{Kind: string(kind), Message: err.Error()}
	if out.Kind == "" {
		out.Kind = "internal"
	}
	var be *booking.Error
	if errors.As(err, &be) {
		if be.Msg != "" {
			out.Message = be.Msg
		}
		out.Fields = be.Fields
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Error:     out,
	})
}

func writeBadRequest(w http.ResponseWriter, msg string, fields ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Error:     &apiError{Kind: string(booking.KindValidation), Message: msg, Fields: fields},
	})
}

// handleServices lists the bookable services.
// GET /api/services
func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("services")
	if r.Method != http.MethodGet {
		writeBadRequest(w, "method not allowed; use GET")
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"services": s.catalog.List()})
}

// handleSlots returns available slots for a date and service.
// GET /api/slots?date=YYYY-MM-DD&service_id=...
func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")
	if r.Method != http.MethodGet {
		writeBadRequest(w, "method not allowed; use GET")
		return
	}
	date := r.URL.Query().Get("date")
	serviceID := r.URL.Query().Get("service_id")

	if cached, ok := s.readSlotCache(r.Context(), serviceID, date); ok {
		writeData(w, http.StatusOK, "", map[string]any{"slots": cached, "cached": true})
		return
	}

	available, err := s.svc.GetSlots(r.Context(), date, serviceID)
	if err != nil {
		writeErr(w, err)
		return
	}

	s.writeSlotCache(r.Context(), serviceID, date, available)
	writeData(w, http.StatusOK, "", map[string]any{"slots": available})
}

type bookRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	ServiceID     string `json:"service_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// handleAppointments books a new appointment.
// POST /api/appointments
func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")
	if r.Method != http.MethodPost {
		writeBadRequest(w, "method not allowed; use POST")
		return
	}

	var req bookRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	start, end, err := parseInterval(req.StartTime, req.EndTime)
	if err != nil {
		writeBadRequest(w, err.Error(), "start_time")
		return
	}

	res, err := s.svc.Book(r.Context(), booking.BookRequest{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		ServiceID:     req.ServiceID,
		Start:         start,
		End:           end,
		Notes:         req.Notes,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	s.invalidateSlotCache(r.Context(), res.Start)
	writeData(w, http.StatusCreated, "appointment booked", res)
}

type rescheduleRequest struct {
	NewStart string `json:"new_start"`
	NewEnd   string `json:"new_end,omitempty"`
}

// handleAppointmentByID serves GET (lookup), DELETE (cancel) and PATCH
// (reschedule) for /api/appointments/{id}.
func (s *Server) handleAppointmentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/appointments/")
	if id == "" || strings.Contains(id, "/") {
		writeBadRequest(w, "appointment id is required", "appointment_id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		metrics.IncHTTP("find")
		res, err := s.svc.Find(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, "", res)

	case http.MethodDelete:
		metrics.IncHTTP("cancel")
		res, findErr := s.svc.Find(r.Context(), id)
		result, err := s.svc.Cancel(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		if findErr == nil {
			s.invalidateSlotCache(r.Context(), res.Start)
		}
		writeData(w, http.StatusOK, "appointment cancelled", result)

	case http.MethodPatch:
		metrics.IncHTTP("reschedule")
		var req rescheduleRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
		newStart, err := time.Parse(time.RFC3339, req.NewStart)
		if err != nil {
			writeBadRequest(w, "invalid new_start; expected RFC3339", "new_start")
			return
		}
		var newEnd time.Time
		if req.NewEnd != "" {
			newEnd, err = time.Parse(time.RFC3339, req.NewEnd)
			if err != nil {
				writeBadRequest(w, "invalid new_end; expected RFC3339", "new_end")
				return
			}
		} else {
			// Keep the reservation's current duration.
			current, err := s.svc.Find(r.Context(), id)
			if err != nil {
				writeErr(w, err)
				return
			}
			newEnd = newStart.Add(current.End.Sub(current.Start))
			s.invalidateSlotCache(r.Context(), current.Start)
		}

		res, err := s.svc.Reschedule(r.Context(), id, newStart, newEnd)
		if err != nil {
			writeErr(w, err)
			return
		}
		s.invalidateSlotCache(r.Context(), res.Start)
		writeData(w, http.StatusOK, "appointment rescheduled", res)

	default:
		writeBadRequest(w, "method not allowed")
	}
}

// handleExport streams an xlsx report of reservations.
// GET /api/export?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")
	if r.Method != http.MethodGet {
		writeBadRequest(w, "method not allowed; use GET")
		return
	}
	if s.reporter == nil {
		writeBadRequest(w, "export is not configured")
		return
	}

	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		writeBadRequest(w, "invalid from date; expected YYYY-MM-DD", "from")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		writeBadRequest(w, "invalid to date; expected YYYY-MM-DD", "to")
		return
	}
	if to.Before(from) {
		writeBadRequest(w, "to must not be before from", "to")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=bookings_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102")))
	count, err := s.reporter.WriteReport(r.Context(), from, to.AddDate(0, 0, 1), w)
	if err != nil {
		s.log.Error().Err(err).Msg("report export failed")
		return
	}
	s.log.Info().Int("reservations", count).Msg("report exported")
}

func parseInterval(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start_time is required")
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_time; expected RFC3339")
	}
	var end time.Time
	if endStr != "" {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_time; expected RFC3339")
		}
	}
	return start, end, nil
}
