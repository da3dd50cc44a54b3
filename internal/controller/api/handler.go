package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Freeeeeet/calendar_sync/internal/app"
	"github.com/Freeeeeet/calendar_sync/internal/ics"
	"github.com/Freeeeeet/calendar_sync/internal/service"
)

// HealthSource - последний результат проверки календаря
type HealthSource interface {
	Current() app.HealthStatus
}

type Handler struct {
	manager      *service.AppointmentManager
	health       HealthSource
	businessName string
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

// NewHandler: health может быть nil, тогда /health проверяет календарь напрямую
func NewHandler(manager *service.AppointmentManager, health HealthSource, businessName string, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		manager:      manager,
		health:       health,
		businessName: businessName,
		loc:          loc,
		now:          time.Now,
		logger:       logger,
	}
}

// Root GET /
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":  "Calendar Sync API",
		"business": h.businessName,
		"timezone": h.loc.String(),
		"endpoints": []string{
			"GET /health",
			"POST /appointments",
			"GET /appointments?date=YYYY-MM-DD",
			"GET /appointments/week?start=YYYY-MM-DD",
			"GET /appointments/week.ics?start=YYYY-MM-DD",
			"GET /appointments/:id",
			"DELETE /appointments/:id",
			"PATCH /appointments/:id/reschedule",
			"PATCH /appointments/:id/notes",
			"GET /slots?date=YYYY-MM-DD&duration=60",
		},
	})
}

// Health GET /health
func (h *Handler) Health(c *gin.Context) {
	var status app.HealthStatus
	if h.health != nil {
		status = h.health.Current()
	} else {
		status = app.HealthStatus{
			Connected: h.manager.CheckConnection(c.Request.Context()),
			CheckedAt: h.now(),
		}
	}

	state := "healthy"
	if !status.Healthy() {
		state = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             state,
		"calendar_connected": status.Connected,
		"checked_at":         status.CheckedAt,
		"business":           h.businessName,
		"timestamp":          h.now(),
	})
}

// CreateAppointment POST /appointments
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	loc := h.loc
	if req.Timezone != "" {
		l, err := time.LoadLocation(req.Timezone)
		if err != nil {
			h.badRequest(c, fmt.Errorf("invalid timezone %q", req.Timezone))
			return
		}
		loc = l
	}

	start, err := parseTime(req.StartTime, loc)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	end, err := parseTime(req.EndTime, loc)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	if err := validateSpan(start, end, h.now()); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := validatePhone(req.PhoneNumber); err != nil {
		h.badRequest(c, err)
		return
	}

	appointment, err := h.manager.CreateAppointment(c.Request.Context(), service.CreateAppointmentInput{
		ClientName:      req.ClientName,
		PhoneNumber:     req.PhoneNumber,
		ServiceType:     req.ServiceType,
		StartTime:       start,
		EndTime:         end,
		AdditionalNotes: req.AdditionalNotes,
		Timezone:        req.Timezone,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     "Appointment created successfully",
		"event_id":    appointment.EventID,
		"event_link":  appointment.HTMLLink,
		"appointment": newAppointmentResponse(appointment),
	})
}

// ListDay GET /appointments?date=
func (h *Handler) ListDay(c *gin.Context) {
	date, err := parseDate(c.Query("date"), h.loc, h.now())
	if err != nil {
		h.badRequest(c, err)
		return
	}

	events, err := h.manager.GetAppointmentsForDay(c.Request.Context(), date)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"date":         date.Format(dateLayout),
		"count":        len(events),
		"appointments": newEventItems(events, h.loc.String()),
	})
}

// ListWeek GET /appointments/week?start=
func (h *Handler) ListWeek(c *gin.Context) {
	start, err := parseDate(c.Query("start"), h.loc, h.now())
	if err != nil {
		h.badRequest(c, err)
		return
	}

	events, err := h.manager.GetAppointmentsForWeek(c.Request.Context(), start)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"start":        start.Format(dateLayout),
		"end":          start.AddDate(0, 0, 7).Format(dateLayout),
		"count":        len(events),
		"appointments": newEventItems(events, h.loc.String()),
	})
}

// ExportWeek GET /appointments/week.ics?start=
func (h *Handler) ExportWeek(c *gin.Context) {
	start, err := parseDate(c.Query("start"), h.loc, h.now())
	if err != nil {
		h.badRequest(c, err)
		return
	}

	events, err := h.manager.GetAppointmentsForWeek(c.Request.Context(), start)
	if err != nil {
		h.writeError(c, err)
		return
	}

	body, skipped := ics.Export(h.businessName, events, h.loc, h.now())
	if len(skipped) > 0 {
		h.logger.Warn("Skipped events in iCalendar export", zap.Strings("event_ids", skipped))
	}

	filename := fmt.Sprintf("appointments-%s.ics", start.Format(dateLayout))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// GetAppointment GET /appointments/:id
func (h *Handler) GetAppointment(c *gin.Context) {
	appointment, err := h.manager.GetAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"appointment": newAppointmentResponse(appointment),
	})
}

// CancelAppointment DELETE /appointments/:id
func (h *Handler) CancelAppointment(c *gin.Context) {
	id := c.Param("id")
	if err := h.manager.CancelAppointment(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Appointment cancelled",
		"event_id": id,
	})
}

// RescheduleAppointment PATCH /appointments/:id/reschedule
func (h *Handler) RescheduleAppointment(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	start, err := parseTime(req.StartTime, h.loc)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	end, err := parseTime(req.EndTime, h.loc)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	if err := validateSpan(start, end, h.now()); err != nil {
		h.badRequest(c, err)
		return
	}

	appointment, err := h.manager.RescheduleAppointment(c.Request.Context(), c.Param("id"), start, end)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Appointment rescheduled",
		"appointment": newAppointmentResponse(appointment),
	})
}

// UpdateNotes PATCH /appointments/:id/notes
func (h *Handler) UpdateNotes(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	appointment, err := h.manager.UpdateAppointmentNotes(c.Request.Context(), c.Param("id"), req.AdditionalNotes)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Notes updated",
		"appointment": newAppointmentResponse(appointment),
	})
}

// Slots GET /slots?date=&duration=
func (h *Handler) Slots(c *gin.Context) {
	date, err := parseDate(c.Query("date"), h.loc, h.now())
	if err != nil {
		h.badRequest(c, err)
		return
	}

	opts := h.manager.DefaultSlotOptions()
	if raw := c.Query("duration"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 || minutes > 24*60 {
			h.badRequest(c, fmt.Errorf("invalid duration %q, expected minutes", raw))
			return
		}
		opts.Duration = time.Duration(minutes) * time.Minute
	}

	slots, err := h.manager.GetAvailableSlots(c.Request.Context(), date, opts)
	if err != nil {
		h.writeError(c, err)
		return
	}

	labels := make([]string, 0, len(slots))
	for _, s := range slots {
		labels = append(labels, s.Format("15:04"))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"date":             date.Format(dateLayout),
		"duration_minutes": int(opts.Duration / time.Minute),
		"count":            len(slots),
		"slots":            labels,
		"slot_times":       slots,
	})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{
		Success: false,
		Error:   service.KindValidation.String(),
		Message: err.Error(),
	})
}

// writeError переводит категорию ошибки в HTTP статус
func (h *Handler) writeError(c *gin.Context, err error) {
	kind := service.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindUnauthorized:
		status = http.StatusBadGateway
	case service.KindTransport:
		status = http.StatusServiceUnavailable
	}

	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}

	h.logger.Error("Request failed",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)

	c.JSON(status, errorResponse{
		Success: false,
		Error:   kind.String(),
		Message: err.Error(),
	})
}
