package repos

import (
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"gardenly/internal/domain"
)

type CatalogRepo struct{ db *sqlx.DB }

func NewCatalogRepo(db *sqlx.DB) *CatalogRepo { return &CatalogRepo{db: db} }

const productCols = `id, category_id, seller_id, name, description, price, stock, sold, active,
    created_at, updated_at`

func (r *CatalogRepo) Get(id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	return p, err
}

func (r *CatalogRepo) ListByCategory(catID string, limit, offset int) ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE category_id = ? AND active = 1
	  ORDER BY created_at DESC
	  LIMIT ? OFFSET ?
	`, catID, limit, offset)
	return out, err
}

func (r *CatalogRepo) ListBySeller(sellerID string) ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE seller_id = ?
	  ORDER BY created_at DESC
	`, sellerID)
	return out, err
}

func (r *CatalogRepo) Search(q, catID string, limit, offset int) ([]domain.Product, error) {
	where := `active = 1`
	args := []any{}
	if q != "" {
		where += ` AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)`
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	if catID != "" {
		where += ` AND category_id = ?`
		args = append(args, catID)
	}
	args = append(args, limit, offset)

	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE `+where+`
	  ORDER BY created_at DESC
	  LIMIT ? OFFSET ?`, args...)
	return out, err
}

func (r *CatalogRepo) Create(p domain.Product) error {
	_, err := r.db.Exec(`
	  INSERT INTO products(id, category_id, seller_id, name, description, price, stock, active, created_at)
	  VALUES(?, ?, ?, ?, ?, ?, ?, 1, CURRENT_TIMESTAMP)
	`, p.ID, p.CategoryID, p.SellerID, p.Name, p.Description, p.Price, p.Stock)
	return err
}

func (r *CatalogRepo) Update(p domain.Product) error {
	_, err := r.db.Exec(`
	  UPDATE products
	  SET name = ?, description = ?, price = ?, active = ?, updated_at = CURRENT_TIMESTAMP
	  WHERE id = ?
	`, p.Name, p.Description, p.Price, p.Active, p.ID)
	return err
}

// SetStock overwrites the stock level (seller/admin restock path).
func (r *CatalogRepo) SetStock(productID string, stock int) error {
	_, err := r.db.Exec(`
	  UPDATE products SET stock = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, stock, productID)
	return err
}

// SetPrice changes the live catalog price. Orders already initiated keep
// their snapshot prices.
func (r *CatalogRepo) SetPrice(productID string, price decimal.Decimal) error {
	_, err := r.db.Exec(`
	  UPDATE products SET price = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, price, productID)
	return err
}

func (r *CatalogRepo) Stock(productID string) (int, error) {
	var qty int
	err := r.db.Get(&qty, `SELECT stock FROM products WHERE id = ?`, productID)
	return qty, err
}

func (r *CatalogRepo) Sold(productID string) (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT sold FROM products WHERE id = ?`, productID)
	return n, err
}
