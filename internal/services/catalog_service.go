package services

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gardenly/internal/domain"
	"gardenly/internal/repos"
)

type CatalogService struct {
	Cats    *repos.CategoryRepo
	Catalog *repos.CatalogRepo
}

func NewCatalogService(cats *repos.CategoryRepo, catalog *repos.CatalogRepo) *CatalogService {
	return &CatalogService{Cats: cats, Catalog: catalog}
}

func (s *CatalogService) ListCategories() ([]domain.Category, error) {
	return s.Cats.List()
}

func (s *CatalogService) ListProductsByCategory(catID string, page, pageSize int) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 12
	}
	return s.Catalog.ListByCategory(catID, pageSize, (page-1)*pageSize)
}

func (s *CatalogService) GetProduct(id string) (domain.Product, error) {
	p, err := s.Catalog.Get(id)
	if err == sql.ErrNoRows {
		return domain.Product{}, domain.E(domain.KindNotFound, "product not found")
	}
	return p, err
}

func (s *CatalogService) Search(q, category string, page, pageSize int) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 12
	}
	return s.Catalog.Search(q, category, pageSize, (page-1)*pageSize)
}

type NewProduct struct {
	CategoryID  string `json:"categoryId" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Price       string `json:"price" validate:"required"`
	Stock       int    `json:"stock" validate:"min=0"`
}

// CreateProduct adds a seller-owned listing. Price must be a positive
// decimal.
func (s *CatalogService) CreateProduct(seller *domain.Account, np NewProduct) (domain.Product, error) {
	price, err := decimal.NewFromString(np.Price)
	if err != nil || !price.IsPositive() {
		return domain.Product{}, domain.E(domain.KindInvalidArgument, "price must be a positive decimal")
	}
	p := domain.Product{
		ID:          uuid.NewString(),
		CategoryID:  np.CategoryID,
		SellerID:    seller.ID,
		Name:        np.Name,
		Description: np.Description,
		Price:       price,
		Stock:       np.Stock,
		Active:      true,
	}
	if err := s.Catalog.Create(p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

type ProductUpdate struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Price       string `json:"price" validate:"required"`
	Active      *bool  `json:"active"`
}

// UpdateProduct edits a listing; only the owning seller or an admin. Orders
// already initiated keep their snapshot prices.
func (s *CatalogService) UpdateProduct(actor *domain.Account, productID string, up ProductUpdate) (domain.Product, error) {
	p, err := s.GetProduct(productID)
	if err != nil {
		return domain.Product{}, err
	}
	if actor.Role != domain.RoleAdmin && p.SellerID != actor.ID {
		return domain.Product{}, domain.E(domain.KindForbidden, "not your product")
	}
	price, err := decimal.NewFromString(up.Price)
	if err != nil || !price.IsPositive() {
		return domain.Product{}, domain.E(domain.KindInvalidArgument, "price must be a positive decimal")
	}
	p.Name = up.Name
	p.Description = up.Description
	p.Price = price
	if up.Active != nil {
		p.Active = *up.Active
	}
	if err := s.Catalog.Update(p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// Restock overwrites the stock level; only the owning seller or an admin.
func (s *CatalogService) Restock(actor *domain.Account, productID string, stock int) error {
	if stock < 0 {
		return domain.E(domain.KindInvalidArgument, "stock must be >= 0")
	}
	p, err := s.GetProduct(productID)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin && p.SellerID != actor.ID {
		return domain.E(domain.KindForbidden, "not your product")
	}
	return s.Catalog.SetStock(productID, stock)
}

// Availability maps live stock into the coarse buckets the storefront
// shows.
func (s *CatalogService) Availability(productID string) (domain.Availability, error) {
	qty, err := s.Catalog.Stock(productID)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Availability{Status: "OUT_OF_STOCK", Qty: 0}, nil
		}
		return domain.Availability{}, err
	}
	status := "OUT_OF_STOCK"
	switch {
	case qty >= 5:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}, nil
}
