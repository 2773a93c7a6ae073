package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openmentor/scheduler/internal/app"
	"github.com/openmentor/scheduler/internal/config"
	"github.com/openmentor/scheduler/internal/repository"
	"github.com/openmentor/scheduler/internal/server"
	"github.com/openmentor/scheduler/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := app.NewPool(ctx, cfg.DBDSN, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}

	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	programRepo := repository.NewProgramRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	apptRepo := repository.NewAppointmentRepository(pool)

	programService := service.NewProgramService(programRepo, templateRepo, slotRepo, logger)
	availabilityService := service.NewAvailabilityService(programRepo, templateRepo, slotRepo, logger)
	reservationService := service.NewReservationService(pool, programRepo, slotRepo, apptRepo, logger)
	appointmentService := service.NewAppointmentService(apptRepo, slotRepo, logger)

	horizon := app.NewHorizon(availabilityService, logger)
	horizon.Start(ctx)
	defer horizon.Stop()

	router := server.NewRouter(programService, availabilityService, reservationService, appointmentService, cfg.Environment)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info("Starting scheduling engine",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
