package app

import (
	"context"
	"time"

	"github.com/openmentor/scheduler/internal/service"
	"go.uber.org/zap"
)

// Horizon управляет фоновой догенерацией слотов для range-based программ:
// по мере движения календаря в пределах диапазона программы должны появляться
// новые опубликованные слоты без участия ментора
type Horizon struct {
	availability *service.AvailabilityService
	logger       *zap.Logger
	stopChan     chan struct{}
}

// NewHorizon создаёт фоновую задачу горизонта
func NewHorizon(availability *service.AvailabilityService, logger *zap.Logger) *Horizon {
	return &Horizon{
		availability: availability,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start запускает фоновую задачу
func (h *Horizon) Start(ctx context.Context) {
	h.logger.Info("Starting slot horizon task")
	go h.run(ctx)
}

// Stop останавливает фоновую задачу
func (h *Horizon) Stop() {
	h.logger.Info("Stopping slot horizon task")
	close(h.stopChan)
}

func (h *Horizon) run(ctx context.Context) {
	// Первый запуск сразу при старте
	h.generate(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.generate(ctx)
		case <-h.stopChan:
			h.logger.Info("Slot horizon task stopped")
			return
		case <-ctx.Done():
			h.logger.Info("Slot horizon task cancelled")
			return
		}
	}
}

func (h *Horizon) generate(ctx context.Context) {
	if err := h.availability.GenerateForRangePrograms(ctx); err != nil {
		h.logger.Error("Failed to generate horizon slots", zap.Error(err))
	}
}
