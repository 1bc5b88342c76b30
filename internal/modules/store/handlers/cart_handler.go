package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vkornilov/docuscan-be/internal/modules/store/services"
	"github.com/vkornilov/docuscan-be/internal/shared/apperr"
)

// CartHandler handles cart and pricing requests
type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// AddToCartRequest is the body for POST /cart/add
type AddToCartRequest struct {
	Username   string `json:"username"`
	DocumentID uint   `json:"document_id"`
}

// AddToCart handles POST /cart/add
func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	var req AddToCartRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("invalid request body"))
	}

	item, err := h.cartService.AddToCart(c.Context(), req.Username, req.DocumentID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

// ViewCart handles GET /cart?username=
func (h *CartHandler) ViewCart(c *fiber.Ctx) error {
	view, err := h.cartService.ViewCart(c.Context(), c.Query("username"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(view)
}

// PayCart handles POST /cart/pay?username=
func (h *CartHandler) PayCart(c *fiber.Ctx) error {
	count, err := h.cartService.Pay(c.Context(), c.Query("username"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"detail":     "payment accepted",
		"items_paid": count,
	})
}

// PaidText handles GET /cart/text?username=&document_id=
func (h *CartHandler) PaidText(c *fiber.Ctx) error {
	id := c.QueryInt("document_id")
	if id <= 0 {
		return respondError(c, apperr.Validation("document_id is required"))
	}

	text, err := h.cartService.PaidText(c.Context(), c.Query("username"), uint(id))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"text":         text.Text,
		"confidence":   text.Confidence,
		"processed_at": text.ProcessedAt,
	})
}

// ListPrices handles GET /prices
func (h *CartHandler) ListPrices(c *fiber.Ctx) error {
	prices, err := h.cartService.ListPrices(c.Context())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"prices": prices,
	})
}

// SetPriceRequest is the body for PUT /prices
type SetPriceRequest struct {
	FileType   string  `json:"file_type"`
	PricePerKB float64 `json:"price_per_kb"`
}

// SetPrice handles PUT /prices
func (h *CartHandler) SetPrice(c *fiber.Ctx) error {
	var req SetPriceRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("invalid request body"))
	}

	price, err := h.cartService.SetPrice(c.Context(), req.FileType, req.PricePerKB)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(price)
}

func respondError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	return c.Status(apperr.HTTPStatus(kind)).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  kind,
	})
}
