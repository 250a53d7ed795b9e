package repos

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

// CartLine joins a cart line with its live product for display; the price
// here is the current catalog price, not a snapshot.
type CartLine struct {
	ProductID string          `db:"product_id" json:"productId"`
	Name      string          `db:"name" json:"name"`
	Qty       int             `db:"qty" json:"qty"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

// GetOrCreate returns the buyer's cart id, creating an empty cart on first
// access. The cart id is the buyer id; the UNIQUE constraint keeps the
// relation 1:1.
func (r *CartRepo) GetOrCreate(buyerID string) (string, error) {
	var cartID string
	if err := r.db.Get(&cartID, `SELECT id FROM carts WHERE buyer_id = ?`, buyerID); err == nil {
		return cartID, nil
	}
	_, err := r.db.Exec(`INSERT INTO carts(id,buyer_id,updated_at) VALUES(?,?,?)
	  ON CONFLICT(buyer_id) DO NOTHING`,
		buyerID, buyerID, time.Now().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return buyerID, nil
}

// UpsertLine merges qty into an existing line or appends a new one.
func (r *CartRepo) UpsertLine(cartID, productID string, qty int) error {
	_, err := r.db.Exec(`
		INSERT INTO cart_items(cart_id,product_id,qty,created_at)
		VALUES(?,?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(cart_id,product_id) DO UPDATE
		SET qty = cart_items.qty + excluded.qty, updated_at = CURRENT_TIMESTAMP
	`, cartID, productID, qty)
	return err
}

// SetLine overwrites the quantity of a line (or creates it).
func (r *CartRepo) SetLine(cartID, productID string, qty int) error {
	_, err := r.db.Exec(`
		INSERT INTO cart_items(cart_id,product_id,qty,created_at)
		VALUES(?,?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(cart_id,product_id) DO UPDATE
		SET qty = excluded.qty, updated_at = CURRENT_TIMESTAMP
	`, cartID, productID, qty)
	return err
}

// RemoveLine is a no-op when the line is absent.
func (r *CartRepo) RemoveLine(cartID, productID string) error {
	_, err := r.db.Exec(`DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?`, cartID, productID)
	return err
}

func (r *CartRepo) Lines(cartID string) ([]CartLine, error) {
	out := []CartLine{}
	err := r.db.Select(&out, `
	  SELECT ci.product_id, p.name, ci.qty, p.price
	  FROM cart_items ci JOIN products p ON p.id = ci.product_id
	  WHERE ci.cart_id = ?
	  ORDER BY ci.created_at
	`, cartID)
	return out, err
}

func (r *CartRepo) Clear(cartID string) error {
	_, err := r.db.Exec(`DELETE FROM cart_items WHERE cart_id = ?`, cartID)
	return err
}
