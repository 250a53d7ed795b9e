package services

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"gardenly/internal/domain"
	"gardenly/internal/repos"
)

type CartService struct {
	Carts   *repos.CartRepo
	Catalog *repos.CatalogRepo
}

func NewCartService(carts *repos.CartRepo, catalog *repos.CatalogRepo) *CartService {
	return &CartService{Carts: carts, Catalog: catalog}
}

// Add merges qty into the buyer's line for the product, creating the cart
// lazily on first touch.
func (s *CartService) Add(buyerID, productID string, qty int) error {
	if qty < 1 {
		return domain.E(domain.KindInvalidArgument, "quantity must be at least 1")
	}
	cartID, err := s.Carts.GetOrCreate(buyerID)
	if err != nil {
		return err
	}
	if _, err := s.Catalog.Get(productID); err != nil {
		if err == sql.ErrNoRows {
			return domain.E(domain.KindNotFound, "product not found")
		}
		return err
	}
	return s.Carts.UpsertLine(cartID, productID, qty)
}

// SetQty overwrites the line quantity.
func (s *CartService) SetQty(buyerID, productID string, qty int) error {
	if qty < 1 {
		return domain.E(domain.KindInvalidArgument, "quantity must be at least 1")
	}
	cartID, err := s.Carts.GetOrCreate(buyerID)
	if err != nil {
		return err
	}
	if _, err := s.Catalog.Get(productID); err != nil {
		if err == sql.ErrNoRows {
			return domain.E(domain.KindNotFound, "product not found")
		}
		return err
	}
	return s.Carts.SetLine(cartID, productID, qty)
}

// Remove is a no-op when the line is absent.
func (s *CartService) Remove(buyerID, productID string) error {
	cartID, err := s.Carts.GetOrCreate(buyerID)
	if err != nil {
		return err
	}
	return s.Carts.RemoveLine(cartID, productID)
}

func (s *CartService) Clear(buyerID string) error {
	cartID, err := s.Carts.GetOrCreate(buyerID)
	if err != nil {
		return err
	}
	return s.Carts.Clear(cartID)
}

type CartView struct {
	Lines []repos.CartLine `json:"lines"`
	Total decimal.Decimal  `json:"total"`
}

func (s *CartService) View(buyerID string) (CartView, error) {
	cartID, err := s.Carts.GetOrCreate(buyerID)
	if err != nil {
		return CartView{}, err
	}
	lines, err := s.Carts.Lines(cartID)
	if err != nil {
		return CartView{}, err
	}
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	return CartView{Lines: lines, Total: total}, nil
}
