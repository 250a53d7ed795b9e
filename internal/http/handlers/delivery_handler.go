package handlers

import (
	"github.com/gofiber/fiber/v2"

	"gardenly/internal/domain"
	applog "gardenly/internal/log"
	"gardenly/internal/repos"
	"gardenly/internal/services"
	"gardenly/internal/validate"
)

type DeliveryHandler struct {
	Delivery *services.DeliveryService
	Accounts *repos.AccountRepo
}

// Assign: manager hands a confirmed order to an agent.
func (h *DeliveryHandler) Assign(c *fiber.Ctx) error {
	actor := currentAccount(c)
	orderID, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "order not found"))
	}
	var req struct {
		AgentID string `json:"agentId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badBody(err))
	}
	o, err := h.Delivery.Assign(orderID, req.AgentID, actor.ID)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "delivery.assign", map[string]any{"order_id": orderID, "agent": req.AgentID})
	return c.JSON(o)
}

// Advance: the assigned agent moves the delivery state forward.
func (h *DeliveryHandler) Advance(c *fiber.Ctx) error {
	agent := currentAccount(c)
	orderID, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "order not found"))
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badBody(err))
	}
	o, err := h.Delivery.Advance(orderID, agent.ID, req.Status)
	if err != nil {
		applog.Security(c, "delivery.advance.fail", map[string]any{"order_id": orderID, "target": req.Status})
		return fail(c, err)
	}
	applog.Audit(c, "delivery.advance", map[string]any{"order_id": orderID, "status": req.Status})
	return c.JSON(o)
}

func (h *DeliveryHandler) Unassigned(c *fiber.Ctx) error {
	orders, err := h.Delivery.ListUnassigned()
	if err != nil {
		applog.Error(c, "delivery.unassigned.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(orders)
}

func (h *DeliveryHandler) Mine(c *fiber.Ctx) error {
	orders, err := h.Delivery.ListMine(currentAccount(c).ID)
	if err != nil {
		applog.Error(c, "delivery.mine.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(orders)
}

func (h *DeliveryHandler) History(c *fiber.Ctx) error {
	orderID, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "order not found"))
	}
	recs, err := h.Delivery.History(orderID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(recs)
}

// Agents lists the delivery-agent directory for the manager's assign UI.
func (h *DeliveryHandler) Agents(c *fiber.Ctx) error {
	agents, err := h.Accounts.ListByRole(domain.RoleAgent)
	if err != nil {
		applog.Error(c, "delivery.agents.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(agents)
}
