package handlers

import (
	"github.com/gofiber/fiber/v2"

	"gardenly/internal/domain"
	applog "gardenly/internal/log"
	"gardenly/internal/services"
	"gardenly/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(currentAccount(c).ID)
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(cv)
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	buyer := currentAccount(c)
	var req struct {
		ProductID string `json:"productId"`
		Qty       int    `json:"qty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badBody(err))
	}
	if _, ok := validate.ID(req.ProductID); !ok {
		return fail(c, domain.E(domain.KindInvalidArgument, "missing productId"))
	}
	if err := h.Cart.Add(buyer.ID, req.ProductID, req.Qty); err != nil {
		return fail(c, err)
	}
	return h.View(c)
}

func (h *CartHandler) SetQty(c *fiber.Ctx) error {
	buyer := currentAccount(c)
	id, ok := validate.ID(c.Params("productId"))
	if !ok {
		return fail(c, domain.E(domain.KindInvalidArgument, "missing productId"))
	}
	var req struct {
		Qty int `json:"qty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badBody(err))
	}
	if err := h.Cart.SetQty(buyer.ID, id, req.Qty); err != nil {
		return fail(c, err)
	}
	return h.View(c)
}

// Remove never errors on an absent line.
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	buyer := currentAccount(c)
	id, ok := validate.ID(c.Params("productId"))
	if !ok {
		return fail(c, domain.E(domain.KindInvalidArgument, "missing productId"))
	}
	if err := h.Cart.Remove(buyer.ID, id); err != nil {
		return fail(c, err)
	}
	return h.View(c)
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	if err := h.Cart.Clear(currentAccount(c).ID); err != nil {
		return fail(c, err)
	}
	return h.View(c)
}
