package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"gardenly/internal/domain"
	applog "gardenly/internal/log"
	"gardenly/internal/services"
	"gardenly/internal/validate"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
}

func badBody(err error) error {
	return domain.E(domain.KindInvalidArgument, "invalid request body: %v", err)
}

func (h *CatalogHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories()
	if err != nil {
		applog.Error(c, "catalog.categories.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(cats)
}

func (h *CatalogHandler) ListByCategory(c *fiber.Ctx) error {
	catID, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindInvalidArgument, "invalid category id"))
	}
	products, err := h.Catalog.ListProductsByCategory(catID, c.QueryInt("page", 1), c.QueryInt("pageSize", 12))
	if err != nil {
		applog.Error(c, "catalog.list.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(products)
}

func (h *CatalogHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "product not found"))
	}
	p, err := h.Catalog.GetProduct(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

func (h *CatalogHandler) Search(c *fiber.Ctx) error {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	category := strings.TrimSpace(c.Query("category"))
	if category != "" {
		if _, ok := validate.ID(category); !ok {
			applog.Security(c, "validation.fail", map[string]any{"field": "category"})
			return fail(c, domain.E(domain.KindInvalidArgument, "invalid category"))
		}
	}
	products, err := h.Catalog.Search(q, category, c.QueryInt("page", 1), c.QueryInt("pageSize", 20))
	if err != nil {
		applog.Error(c, "catalog.search.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"products": products, "count": len(products)})
}

func (h *CatalogHandler) Availability(c *fiber.Ctx) error {
	productID, ok := validate.ID(c.Query("productId"))
	if !ok {
		return fail(c, domain.E(domain.KindInvalidArgument, "missing productId"))
	}
	avail, err := h.Catalog.Availability(productID)
	if err != nil {
		applog.Error(c, "catalog.availability.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(avail)
}

// Create adds a product owned by the calling seller.
func (h *CatalogHandler) Create(c *fiber.Ctx) error {
	seller := currentAccount(c)
	var np services.NewProduct
	if err := c.BodyParser(&np); err != nil {
		return fail(c, badBody(err))
	}
	if fields := validate.Check(np); fields != nil {
		return fail(c, &domain.Error{Kind: domain.KindInvalidArgument, Message: "missing or invalid fields", Fields: fields})
	}
	p, err := h.Catalog.CreateProduct(seller, np)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "catalog.product.create", map[string]any{"product": p.ID})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// Update edits a listing owned by the calling seller (admins bypass).
func (h *CatalogHandler) Update(c *fiber.Ctx) error {
	actor := currentAccount(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "product not found"))
	}
	var up services.ProductUpdate
	if err := c.BodyParser(&up); err != nil {
		return fail(c, badBody(err))
	}
	if fields := validate.Check(up); fields != nil {
		return fail(c, &domain.Error{Kind: domain.KindInvalidArgument, Message: "missing or invalid fields", Fields: fields})
	}
	p, err := h.Catalog.UpdateProduct(actor, id, up)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "catalog.product.update", map[string]any{"product": p.ID})
	return c.JSON(p)
}

func (h *CatalogHandler) Restock(c *fiber.Ctx) error {
	actor := currentAccount(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, domain.E(domain.KindNotFound, "product not found"))
	}
	var req struct {
		Stock int `json:"stock"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badBody(err))
	}
	if err := h.Catalog.Restock(actor, id, req.Stock); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "catalog.product.restock", map[string]any{"product": id, "stock": req.Stock})
	return c.JSON(fiber.Map{"ok": true})
}
