package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/openmentor/scheduler/internal/service"
)

// NewRouter собирает gin-роутер движка
func NewRouter(
	programs *service.ProgramService,
	availability *service.AvailabilityService,
	reservations *service.ReservationService,
	appointments *service.AppointmentService,
	env string,
) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", headerUserID, headerUserRole},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(ActorMiddleware())

	programHandler := NewProgramHandler(programs)
	availabilityHandler := NewAvailabilityHandler(availability)
	appointmentHandler := NewAppointmentHandler(reservations, appointments)

	api := r.Group("/api")
	{
		api.POST("/programs", programHandler.Create)
		api.GET("/programs", programHandler.List)
		api.GET("/programs/:id", programHandler.Get)
		api.PUT("/programs/:id", programHandler.Update)
		api.GET("/programs/:id/template", programHandler.GetTemplate)
		api.PUT("/programs/:id/template", programHandler.SetTemplateEntry)

		api.POST("/availability", availabilityHandler.Generate)
		api.GET("/availability", availabilityHandler.List)
		api.GET("/slots", availabilityHandler.ListMine)
		api.POST("/slots/:id/deactivate", availabilityHandler.Deactivate)
		api.DELETE("/slots/:id", availabilityHandler.Delete)

		api.POST("/appointments/reserve/:slotID", appointmentHandler.Reserve)
		api.POST("/appointments/:id/status", appointmentHandler.UpdateStatus)
		api.POST("/appointments/:id/cancel", appointmentHandler.Cancel)
		api.PUT("/appointments/:id/meeting-url", appointmentHandler.SetMeetingURL)
		api.GET("/appointments", appointmentHandler.List)
		api.GET("/appointments/:id/feedback-allowed", appointmentHandler.FeedbackAllowed)
	}

	return r
}
