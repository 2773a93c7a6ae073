package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openmentor/scheduler/internal/model"
	"github.com/openmentor/scheduler/internal/schedule"
	"github.com/openmentor/scheduler/internal/service"
)

type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

type generateRequest struct {
	ProgramID  int64    `json:"program_id"`
	RangeStart string   `json:"range_start"` // ISO-даты; либо диапазон, либо dates
	RangeEnd   string   `json:"range_end"`
	Dates      []string `json:"dates"`
}

// Generate разворачивает шаблон программы в слоты; повторный вызов идемпотентен
func (h *AvailabilityHandler) Generate(c *gin.Context) {
	mentorID, role, ok := requireActor(c)
	if !ok {
		return
	}

	if role != model.RoleMentor {
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "FORBIDDEN", Message: "only mentors can post availability"})
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.RangeStart != "" && len(req.Dates) > 0 {
		badRequest(c, "range and explicit dates are mutually exclusive")
		return
	}

	selector, err := buildSelector(req)
	if err != nil {
		badRequest(c, "invalid date: "+err.Error())
		return
	}

	created, err := h.availability.GenerateSlots(c.Request.Context(), mentorID, req.ProgramID, selector)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"created": created})
}

func buildSelector(req generateRequest) (schedule.DateSelector, error) {
	if len(req.Dates) > 0 {
		dates := make([]time.Time, 0, len(req.Dates))
		for _, raw := range req.Dates {
			parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
			if err != nil {
				return schedule.DateSelector{}, err
			}
			dates = append(dates, parsed)
		}
		return schedule.DatesSelector(dates...), nil
	}

	if req.RangeStart == "" || req.RangeEnd == "" {
		// Пустой селектор: range-based программа подставит собственный диапазон
		return schedule.DateSelector{}, nil
	}

	start, err := time.ParseInLocation("2006-01-02", req.RangeStart, time.Local)
	if err != nil {
		return schedule.DateSelector{}, err
	}

	end, err := time.ParseInLocation("2006-01-02", req.RangeEnd, time.Local)
	if err != nil {
		return schedule.DateSelector{}, err
	}

	return schedule.RangeSelector(start, end), nil
}

// List получает слоты программы; по умолчанию только опубликованные
func (h *AvailabilityHandler) List(c *gin.Context) {
	programID, err := strconv.ParseInt(c.Query("program_id"), 10, 64)
	if err != nil {
		badRequest(c, "program_id query parameter is required")
		return
	}

	status := model.SlotStatus(c.DefaultQuery("status", string(model.SlotStatusPosted)))

	slots, err := h.availability.ListProgramSlots(c.Request.Context(), programID, status)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// ListMine получает все слоты ментора начиная с сегодняшнего дня,
// либо с даты из query-параметра from
func (h *AvailabilityHandler) ListMine(c *gin.Context) {
	mentorID, role, ok := requireActor(c)
	if !ok {
		return
	}

	if role != model.RoleMentor {
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "FORBIDDEN", Message: "only mentors have own slots"})
		return
	}

	// Полночь, чтобы сегодняшние слоты попали в выборку
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			badRequest(c, "invalid from date: "+err.Error())
			return
		}
		from = parsed
	}

	slots, err := h.availability.ListMentorSlots(c.Request.Context(), mentorID, from)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// Deactivate снимает опубликованный слот с записи
func (h *AvailabilityHandler) Deactivate(c *gin.Context) {
	mentorID, role, ok := requireActor(c)
	if !ok {
		return
	}

	if role != model.RoleMentor {
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "FORBIDDEN", Message: "only mentors can deactivate slots"})
		return
	}

	slotID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid slot id")
		return
	}

	if err := h.availability.DeactivateSlot(c.Request.Context(), mentorID, slotID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "slot deactivated"})
}

// Delete удаляет незанятый слот
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	mentorID, role, ok := requireActor(c)
	if !ok {
		return
	}

	if role != model.RoleMentor {
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "FORBIDDEN", Message: "only mentors can delete slots"})
		return
	}

	slotID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid slot id")
		return
	}

	if err := h.availability.DeleteSlot(c.Request.Context(), mentorID, slotID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "slot deleted"})
}
