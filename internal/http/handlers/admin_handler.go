package handlers

import (
	"github.com/gofiber/fiber/v2"

	"gardenly/internal/domain"
	applog "gardenly/internal/log"
	"gardenly/internal/repos"
	"gardenly/internal/validate"
)

type AdminHandler struct {
	Orders   *repos.OrderRepo
	Accounts *repos.AccountRepo
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	ords, err := h.Orders.ListLatest(c.QueryInt("limit", 100))
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(ords)
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "order not found"))
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badBody(err))
	}
	status := domain.OrderStatus(req.Status)
	if status != domain.OrderConfirmed && status != domain.OrderCancelled && status != domain.OrderPendingOTP {
		return fail(c, domain.E(domain.KindInvalidArgument, "unknown order status %q", req.Status))
	}
	if err := h.Orders.UpdateStatus(id, status); err != nil {
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id})
		return fail(c, err)
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": req.Status})
	return c.JSON(fiber.Map{"ok": true})
}

// GET /admin/accounts
func (h *AdminHandler) AccountsPage(c *fiber.Ctx) error {
	accounts, err := h.Accounts.List()
	if err != nil {
		applog.Error(c, "admin.accounts.list.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(accounts)
}

// DELETE /admin/accounts/:id — cancels pending orders, drops cart,
// sessions and tickets; confirmed orders stay for audit.
func (h *AdminHandler) DeleteAccount(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "account not found"))
	}
	if err := h.Accounts.DeleteAccountCascade(id); err != nil {
		applog.Error(c, "admin.accounts.delete.fail", err, map[string]any{"account": id})
		return fail(c, err)
	}
	applog.Audit(c, "admin.accounts.delete", map[string]any{"account": id})
	return c.JSON(fiber.Map{"ok": true})
}
