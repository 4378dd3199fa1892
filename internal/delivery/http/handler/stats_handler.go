package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stationhub/internal/pkg/utils"
	"github.com/stationhub/internal/usecase"
	"go.uber.org/zap"
)

type StatsHandler struct {
	statsUC *usecase.StatsUseCase
	logger  *zap.Logger
}

func NewStatsHandler(statsUC *usecase.StatsUseCase, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		statsUC: statsUC,
		logger:  logger,
	}
}

// Get serves GET /stats and GET /:country/stats.
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	stats, err := h.statsUC.Get(c.Context(), c.Params("country"))
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, stats, nil)
}
