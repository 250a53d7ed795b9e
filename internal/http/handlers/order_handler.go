package handlers

import (
	"github.com/gofiber/fiber/v2"

	"gardenly/internal/domain"
	applog "gardenly/internal/log"
	"gardenly/internal/services"
	"gardenly/internal/validate"
)

type OrderHandler struct {
	Order *services.OrderService
}

// Checkout starts the OTP-gated order flow. The response only promises
// "code sent" because the service awaits the notifier before returning.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	buyer := currentAccount(c)
	var billing domain.Billing
	if err := c.BodyParser(&billing); err != nil {
		return fail(c, badBody(err))
	}
	orderID, err := h.Order.InitiateCheckout(buyer.ID, billing)
	if err != nil {
		applog.Security(c, "order.checkout.fail", map[string]any{"buyer": buyer.ID, "error": err.Error()})
		return fail(c, err)
	}
	applog.Audit(c, "order.checkout", map[string]any{"order_id": orderID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"orderId": orderID, "status": string(domain.OrderPendingOTP)})
}

func (h *OrderHandler) VerifyOTP(c *fiber.Ctx) error {
	buyer := currentAccount(c)
	orderID, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "order not found"))
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badBody(err))
	}
	o, err := h.Order.VerifyOTP(orderID, buyer.ID, req.Code)
	if err != nil {
		applog.Security(c, "order.verify.fail", map[string]any{"order_id": orderID, "kind": string(domain.KindOf(err))})
		return fail(c, err)
	}
	applog.Audit(c, "order.confirmed", map[string]any{"order_id": orderID, "total": o.Total.String()})
	return c.JSON(o)
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	buyer := currentAccount(c)
	orderID, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "order not found"))
	}
	if err := h.Order.Cancel(orderID, buyer.ID); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.cancel", map[string]any{"order_id": orderID})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *OrderHandler) View(c *fiber.Ctx) error {
	actor := currentAccount(c)
	orderID, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "order not found"))
	}
	o, err := h.Order.Get(orderID, actor)
	if err != nil {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": orderID})
		return fail(c, err)
	}
	return c.JSON(o)
}

func (h *OrderHandler) History(c *fiber.Ctx) error {
	orders, err := h.Order.History(currentAccount(c).ID)
	if err != nil {
		applog.Error(c, "order.history.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(orders)
}
