package cards

import (
	"errors"

	"cardsync/core/catalog"
	"cardsync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the catalog.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the catalog routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/cards", h.HandleList)
	app.Get("/cards/:number", h.HandleCard)
	app.Get("/plan", h.HandlePlan)
	app.Get("/integrity", h.HandleIntegrity)
	app.Post("/integrity/refresh", h.HandleRefresh)
}

func filterFrom(c *fiber.Ctx) catalog.Filter {
	return catalog.Filter{Number: c.Query("number"), Expansion: c.Query("expansion")}
}

// HandleList returns the cards matching the number and expansion query.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	cards, err := h.service.Cards(filterFrom(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"count": len(cards), "cards": cards})
}

// HandleCard returns every variant of one card number.
func (h *Handler) HandleCard(c *fiber.Ctx) error {
	cards, err := h.service.Cards(catalog.Filter{Number: c.Params("number")})
	if err != nil {
		return h.fail(c, err)
	}
	if len(cards) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "card not found"})
	}
	return c.JSON(fiber.Map{"card_number": cards[0].Number, "variants": cards})
}

// HandlePlan returns the work plan of the current store.
func (h *Handler) HandlePlan(c *fiber.Ctx) error {
	plan, err := h.service.Plan(c.Context(), filterFrom(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(plan)
}

// HandleIntegrity returns per-state asset counts.
func (h *Handler) HandleIntegrity(c *fiber.Ctx) error {
	report, err := h.service.Integrity(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(report)
}

// HandleRefresh forces the next request to rescan the store.
func (h *Handler) HandleRefresh(c *fiber.Ctx) error {
	h.service.Refresh()
	return c.JSON(fiber.Map{"status": "refreshed"})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	logger.WithRayID(h.service.logger, c).Error("Request failed", zap.Error(err))
	status := fiber.StatusInternalServerError
	if errors.Is(err, catalog.ErrCatalogCorrupt) {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
