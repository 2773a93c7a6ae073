package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/openmentor/scheduler/internal/model"
	"github.com/openmentor/scheduler/internal/service"
)

type AppointmentHandler struct {
	reservations *service.ReservationService
	appointments *service.AppointmentService
}

func NewAppointmentHandler(reservations *service.ReservationService, appointments *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{
		reservations: reservations,
		appointments: appointments,
	}
}

type reserveRequest struct {
	Notes string `json:"notes"`
}

// Reserve атомарно занимает слот за студентом
func (h *AppointmentHandler) Reserve(c *gin.Context) {
	studentID, role, ok := requireActor(c)
	if !ok {
		return
	}

	if role != model.RoleStudent {
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "FORBIDDEN", Message: "only students can reserve slots"})
		return
	}

	slotID, err := strconv.ParseInt(c.Param("slotID"), 10, 64)
	if err != nil {
		badRequest(c, "invalid slot id")
		return
	}

	// Тело с заметкой опционально
	var req reserveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	appt, err := h.reservations.Reserve(c.Request.Context(), slotID, studentID, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, appt)
}

type statusRequest struct {
	Event string `json:"event"` // approve | attended | missed | cancel
}

// UpdateStatus применяет событие жизненного цикла к записи
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	actorID, role, ok := requireActor(c)
	if !ok {
		return
	}

	apptID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid appointment id")
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	event := model.AppointmentEvent(req.Event)
	switch event {
	case model.EventApprove, model.EventAttended, model.EventMissed, model.EventCancel:
	default:
		badRequest(c, "unknown event: "+req.Event)
		return
	}

	appt, err := h.appointments.ApplyEvent(c.Request.Context(), apptID, event, actorID, role)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, appt)
}

// Cancel отменяет запись от имени любой из сторон
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	actorID, role, ok := requireActor(c)
	if !ok {
		return
	}

	apptID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid appointment id")
		return
	}

	appt, err := h.appointments.Cancel(c.Request.Context(), apptID, actorID, role)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, appt)
}

type meetingURLRequest struct {
	MeetingURL string `json:"meeting_url"`
}

// SetMeetingURL задаёт ссылку на встречу для записи
func (h *AppointmentHandler) SetMeetingURL(c *gin.Context) {
	mentorID, role, ok := requireActor(c)
	if !ok {
		return
	}

	if role != model.RoleMentor {
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "FORBIDDEN", Message: "only mentors can set the meeting url"})
		return
	}

	apptID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid appointment id")
		return
	}

	var req meetingURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	appt, err := h.appointments.SetMeetingURL(c.Request.Context(), apptID, mentorID, req.MeetingURL)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, appt)
}

// List получает записи актора, опционально по вкладке upcoming/pending/past
func (h *AppointmentHandler) List(c *gin.Context) {
	actorID, role, ok := requireActor(c)
	if !ok {
		return
	}

	bucket := service.AppointmentBucket(c.Query("bucket"))
	switch bucket {
	case "", service.BucketUpcoming, service.BucketPending, service.BucketPast:
	default:
		badRequest(c, "unknown bucket: "+string(bucket))
		return
	}

	appts, err := h.appointments.ListForActor(c.Request.Context(), actorID, role, bucket)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appointments": appts})
}

// FeedbackAllowed сообщает можно ли уже оставлять отзыв по записи.
// Хранение самих отзывов — забота внешнего сервиса.
func (h *AppointmentHandler) FeedbackAllowed(c *gin.Context) {
	apptID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid appointment id")
		return
	}

	allowed, err := h.appointments.FeedbackAllowed(c.Request.Context(), apptID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback_allowed": allowed})
}
