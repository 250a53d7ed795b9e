package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	applog "gardenly/internal/log"
	"gardenly/internal/services"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false, // enable true behind TLS
		})
	}
	return sid
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var reg services.Registration
	if err := c.BodyParser(&reg); err != nil {
		return fail(c, badBody(err))
	}
	a, err := h.Auth.Register(reg)
	if err != nil {
		applog.Security(c, "auth.register.fail", map[string]any{"username": reg.Username})
		return fail(c, err)
	}
	applog.Audit(c, "auth.register", map[string]any{"account": a.ID, "role": string(a.Role)})
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badBody(err))
	}
	a, err := h.Auth.Login(sid, req.Email, req.Password)
	if err != nil {
		applog.Security(c, "auth.login.fail", map[string]any{"email": req.Email})
		return fail(c, err)
	}
	applog.Audit(c, "auth.login.success", map[string]any{"account": a.ID})
	return c.JSON(a)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	_ = h.Auth.Logout(sid)
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	applog.Audit(c, "auth.logout", nil)
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(currentAccount(c))
}
