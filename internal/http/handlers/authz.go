package handlers

import (
	"github.com/gofiber/fiber/v2"

	"gardenly/internal/domain"
	applog "gardenly/internal/log"
	"gardenly/internal/services"
)

func currentAccount(c *fiber.Ctx) *domain.Account {
	a, _ := c.Locals("user").(*domain.Account)
	return a
}

// RequireUser resolves the session cookie to an account and stores it in
// locals; 401 otherwise.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return fail(c, domain.E(domain.KindUnauthenticated, "not logged in"))
		}
		a, err := auth.CurrentAccount(sid)
		if err != nil || a == nil {
			return fail(c, domain.E(domain.KindUnauthenticated, "not logged in"))
		}
		c.Locals("user", a)
		c.Locals("account_id", a.ID)
		return c.Next()
	}
}

// RequireRole gates a route on the account's role claim. The role was
// normalized at creation so comparison is a plain ==.
func RequireRole(auth *services.AuthService, roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return fail(c, domain.E(domain.KindUnauthenticated, "not logged in"))
		}
		a, err := auth.CurrentAccount(sid)
		if err != nil || a == nil {
			return fail(c, domain.E(domain.KindUnauthenticated, "not logged in"))
		}
		for _, r := range roles {
			if a.Role == r {
				c.Locals("user", a)
				c.Locals("account_id", a.ID)
				return c.Next()
			}
		}
		applog.Security(c, "access.denied.role", map[string]any{"account": a.ID, "role": string(a.Role)})
		return fail(c, domain.E(domain.KindForbidden, "access denied"))
	}
}
