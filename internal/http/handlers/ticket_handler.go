package handlers

import (
	"github.com/gofiber/fiber/v2"

	"gardenly/internal/domain"
	applog "gardenly/internal/log"
	"gardenly/internal/services"
	"gardenly/internal/validate"
)

type TicketHandler struct {
	Tickets *services.TicketService
}

func (h *TicketHandler) Open(c *fiber.Ctx) error {
	buyer := currentAccount(c)
	var req struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badBody(err))
	}
	t, err := h.Tickets.Open(buyer.ID, req.Subject, req.Body)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "ticket.open", map[string]any{"ticket": t.ID})
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *TicketHandler) Mine(c *fiber.Ctx) error {
	ts, err := h.Tickets.ListMine(currentAccount(c).ID)
	if err != nil {
		applog.Error(c, "ticket.mine.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(ts)
}

func (h *TicketHandler) OpenQueue(c *fiber.Ctx) error {
	ts, err := h.Tickets.ListOpen()
	if err != nil {
		applog.Error(c, "ticket.queue.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(ts)
}

func (h *TicketHandler) Thread(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "ticket not found"))
	}
	th, err := h.Tickets.Thread(id, currentAccount(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(th)
}

func (h *TicketHandler) Reply(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "ticket not found"))
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badBody(err))
	}
	if err := h.Tickets.Reply(id, currentAccount(c), req.Body); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "ticket.reply", map[string]any{"ticket": id})
	return h.Thread(c)
}

func (h *TicketHandler) Close(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "ticket not found"))
	}
	if err := h.Tickets.Close(id, currentAccount(c)); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "ticket.close", map[string]any{"ticket": id})
	return c.JSON(fiber.Map{"ok": true})
}
