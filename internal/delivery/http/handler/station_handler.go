package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/pkg/utils"
	"github.com/stationhub/internal/pkg/validator"
	"github.com/stationhub/internal/usecase"
	"github.com/stationhub/internal/usecase/dto"
	"go.uber.org/zap"
)

type StationHandler struct {
	stationUC *usecase.StationUseCase
	logger    *zap.Logger
}

func NewStationHandler(stationUC *usecase.StationUseCase, logger *zap.Logger) *StationHandler {
	return &StationHandler{
		stationUC: stationUC,
		logger:    logger,
	}
}

// List serves GET /stations and GET /:country/stations.
func (h *StationHandler) List(c *fiber.Ctx) error {
	var req dto.StationListRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid query parameters"})
	}
	if country := c.Params("country"); country != "" {
		req.Country = country
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.stationUC.List(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		Total: len(result),
	})
}

// ByKey serves GET /:country/stations/:id.
func (h *StationHandler) ByKey(c *fiber.Ctx) error {
	key := domain.StationKey{
		Country: c.Params("country"),
		ID:      c.Params("id"),
	}

	station, err := h.stationUC.ByKey(c.Context(), key)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, station, nil)
}

// Search serves GET /stations/search?name=...
func (h *StationHandler) Search(c *fiber.Ctx) error {
	req := dto.StationSearchRequest{Name: c.Query("name")}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.stationUC.SearchByName(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		Total: len(result),
	})
}

// Photographers serves GET /photographers and GET /:country/photographers.
func (h *StationHandler) Photographers(c *fiber.Ctx) error {
	result, err := h.stationUC.PhotographerCounts(c.Context(), c.Params("country"))
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		Total: len(result),
	})
}

// Countries serves GET /countries.
func (h *StationHandler) Countries(c *fiber.Ctx) error {
	result := h.stationUC.Countries()
	return utils.SendSuccess(c, result, &utils.Meta{
		Total: len(result),
	})
}

// Refresh serves POST /admin/refresh: a forced, coalesced reload.
func (h *StationHandler) Refresh(c *fiber.Ctx) error {
	h.stationUC.Refresh(c.Context())
	return utils.SendSuccess(c, fiber.Map{"refreshed": true}, nil)
}
