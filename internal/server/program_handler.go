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

type ProgramHandler struct {
	programs *service.ProgramService
}

func NewProgramHandler(programs *service.ProgramService) *ProgramHandler {
	return &ProgramHandler{programs: programs}
}

type programRequest struct {
	CourseID         int64  `json:"course_id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Duration         int    `json:"duration"`
	PhysicalLocation string `json:"physical_location"`
	VirtualLink      string `json:"virtual_link"`
	AutoApprove      bool   `json:"auto_approve"`
	IsDropins        bool   `json:"is_dropins"`
	IsRangeBased     bool   `json:"is_range_based"`
	RangeStart       string `json:"range_start"` // ISO-дата, для range-based
	RangeEnd         string `json:"range_end"`
	MaxDaily         int    `json:"max_daily"`
	MaxWeekly        int    `json:"max_weekly"`
	MaxMonthly       int    `json:"max_monthly"`
	IsActive         *bool  `json:"is_active"`
	EditedLimit      string `json:"edited_limit"` // max_daily | max_weekly | max_monthly
}

func (req *programRequest) toModel(mentorID int64) (*model.Program, error) {
	program := &model.Program{
		CourseID:         req.CourseID,
		MentorID:         mentorID,
		Name:             req.Name,
		Description:      req.Description,
		Duration:         req.Duration,
		PhysicalLocation: req.PhysicalLocation,
		VirtualLink:      req.VirtualLink,
		AutoApprove:      req.AutoApprove,
		IsDropins:        req.IsDropins,
		IsRangeBased:     req.IsRangeBased,
		MaxDaily:         req.MaxDaily,
		MaxWeekly:        req.MaxWeekly,
		MaxMonthly:       req.MaxMonthly,
		IsActive:         true,
	}

	if req.IsActive != nil {
		program.IsActive = *req.IsActive
	}

	for _, field := range []struct {
		value string
		dest  **time.Time
	}{
		{req.RangeStart, &program.RangeStart},
		{req.RangeEnd, &program.RangeEnd},
	} {
		if field.value == "" {
			continue
		}
		parsed, err := time.ParseInLocation("2006-01-02", field.value, time.Local)
		if err != nil {
			return nil, err
		}
		*field.dest = &parsed
	}

	return program, nil
}

// Create создаёт программу ментора
func (h *ProgramHandler) Create(c *gin.Context) {
	mentorID, role, ok := requireActor(c)
	if !ok {
		return
	}

	if role != model.RoleMentor {
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "FORBIDDEN", Message: "only mentors can create programs"})
		return
	}

	var req programRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	program, err := req.toModel(mentorID)
	if err != nil {
		badRequest(c, "invalid date: "+err.Error())
		return
	}

	created, err := h.programs.CreateProgram(c.Request.Context(), program)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// List получает программы ментора из query-параметра
func (h *ProgramHandler) List(c *gin.Context) {
	mentorID, err := strconv.ParseInt(c.Query("mentor_id"), 10, 64)
	if err != nil {
		badRequest(c, "mentor_id query parameter is required")
		return
	}

	programs, err := h.programs.ListByMentor(c.Request.Context(), mentorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"programs": programs})
}

// Get получает одну программу
func (h *ProgramHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid program id")
		return
	}

	program, err := h.programs.GetProgram(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, program)
}

// Update обновляет программу; правка лимитов проходит через клампинг
func (h *ProgramHandler) Update(c *gin.Context) {
	mentorID, role, ok := requireActor(c)
	if !ok {
		return
	}

	if role != model.RoleMentor {
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "FORBIDDEN", Message: "only mentors can update programs"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid program id")
		return
	}

	var req programRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	program, err := req.toModel(mentorID)
	if err != nil {
		badRequest(c, "invalid date: "+err.Error())
		return
	}
	program.ID = id

	updated, err := h.programs.UpdateProgram(c.Request.Context(), mentorID, program, schedule.LimitField(req.EditedLimit))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

type templateEntryRequest struct {
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"` // "HH:MM"
	EndTime   string `json:"end_time"`
	Remove    bool   `json:"remove"` // true = убрать день из шаблона
}

// SetTemplateEntry заменяет или убирает окно одного дня недели
func (h *ProgramHandler) SetTemplateEntry(c *gin.Context) {
	mentorID, role, ok := requireActor(c)
	if !ok {
		return
	}

	if role != model.RoleMentor {
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "FORBIDDEN", Message: "only mentors can edit availability"})
		return
	}

	programID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid program id")
		return
	}

	var req templateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.Remove {
		if err := h.programs.ClearTemplateEntry(c.Request.Context(), mentorID, programID, req.Weekday); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "template entry removed"})
		return
	}

	start, err := model.ParseTimeOfDay(req.StartTime)
	if err != nil {
		badRequest(c, "invalid start_time: "+err.Error())
		return
	}

	end, err := model.ParseTimeOfDay(req.EndTime)
	if err != nil {
		badRequest(c, "invalid end_time: "+err.Error())
		return
	}

	entry, err := h.programs.SetTemplateEntry(c.Request.Context(), mentorID, programID, req.Weekday, start, end)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// GetTemplate получает недельный шаблон программы
func (h *ProgramHandler) GetTemplate(c *gin.Context) {
	programID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid program id")
		return
	}

	entries, err := h.programs.GetTemplate(c.Request.Context(), programID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
