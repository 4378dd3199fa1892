package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/stationhub/internal/pkg/errors"
	"github.com/stationhub/internal/pkg/utils"
	"github.com/stationhub/internal/pkg/validator"
	"github.com/stationhub/internal/usecase"
	"github.com/stationhub/internal/usecase/dto"
	"go.uber.org/zap"
)

type InboxHandler struct {
	inboxUC *usecase.InboxUseCase
	logger  *zap.Logger
}

func NewInboxHandler(inboxUC *usecase.InboxUseCase, logger *zap.Logger) *InboxHandler {
	return &InboxHandler{
		inboxUC: inboxUC,
		logger:  logger,
	}
}

// Submit serves POST /inbox. A duplicate submission is answered with 409
// but is persisted anyway for manual review; the body carries the entry
// id either way.
func (h *InboxHandler) Submit(c *fiber.Ctx) error {
	var req dto.InboxSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.inboxUC.Submit(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	if result.Duplicate {
		c.Status(fiber.StatusConflict)
	}
	return utils.SendSuccess(c, result, nil)
}

// Pending serves GET /inbox/pending for moderators.
func (h *InboxHandler) Pending(c *fiber.Ctx) error {
	result, err := h.inboxUC.PendingEntries(c.Context())
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		Total: len(result),
	})
}

// Accept serves POST /inbox/:id/accept.
func (h *InboxHandler) Accept(c *fiber.Ctx) error {
	id, err := entryID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	if err := h.inboxUC.Accept(c.Context(), id); err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, fiber.Map{"id": id, "accepted": true}, nil)
}

// Reject serves POST /inbox/:id/reject.
func (h *InboxHandler) Reject(c *fiber.Ctx) error {
	id, err := entryID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.InboxRejectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	if err := h.inboxUC.Reject(c.Context(), id, req.Reason); err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, fiber.Map{"id": id, "rejected": true}, nil)
}

// Checksum serves POST /inbox/:id/checksum.
func (h *InboxHandler) Checksum(c *fiber.Ctx) error {
	id, err := entryID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.InboxChecksumRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.inboxUC.UpdateChecksum(c.Context(), id, req.Crc32)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, nil)
}

func entryID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.ErrInvalidRequest
	}
	return id, nil
}
