package repos

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gardenly/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderCols = `id, buyer_id, status, total,
    billing_name, billing_email, billing_phone, billing_address1, billing_address2,
    billing_city, billing_state, billing_zip,
    otp_code, otp_expires_at,
    delivery_status, agent_id, picked_up_at, delivered_at, created_at`

// Create inserts the order header and its item snapshot in one transaction.
func (r *OrderRepo) Create(o domain.Order) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO orders
	    (id, buyer_id, status, total,
	     billing_name, billing_email, billing_phone, billing_address1, billing_address2,
	     billing_city, billing_state, billing_zip,
	     otp_code, otp_expires_at, created_at)
	  VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
	`, o.ID, o.BuyerID, o.Status, o.Total,
		o.Billing.Name, o.Billing.Email, o.Billing.Phone, o.Billing.Address1, o.Billing.Address2,
		o.Billing.City, o.Billing.State, o.Billing.Zip,
		o.OTPCode, o.OTPExpiresAt); err != nil {
		return err
	}
	for _, it := range o.Items {
		if _, err := tx.Exec(`
		  INSERT INTO order_items(order_id, product_id, name, qty, price)
		  VALUES(?, ?, ?, ?, ?)
		`, o.ID, it.ProductID, it.Name, it.Qty, it.Price); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes a half-created order (compensating action when the OTP
// notification could not be sent). Items cascade.
func (r *OrderRepo) Delete(orderID string) error {
	_, err := r.db.Exec(`DELETE FROM orders WHERE id = ?`, orderID)
	return err
}

func (r *OrderRepo) Get(orderID string) (domain.Order, error) {
	var o domain.Order
	if err := r.db.Get(&o, `SELECT `+orderCols+` FROM orders WHERE id = ?`, orderID); err != nil {
		return domain.Order{}, err
	}
	if err := r.db.Select(&o.Items, `
	  SELECT order_id, product_id, name, qty, price
	  FROM order_items
	  WHERE order_id = ?
	  ORDER BY rowid
	`, orderID); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// Confirm commits a verified order as one unit: the order flips to
// confirmed with the delivery sub-lifecycle started and the OTP material
// erased, every item's stock is conditionally deducted (and sold
// incremented), and the buyer's cart is emptied. Short-circuits with
// insufficient_stock on the first short item, in item order, deducting
// nothing.
func (r *OrderRepo) Confirm(o domain.Order) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// The flip runs first and gates everything below: of two racing
	// verifications only one moves pending_otp to confirmed, the other
	// sees zero rows and rolls back without touching stock.
	res, err := tx.Exec(`
	  UPDATE orders
	  SET status = ?, delivery_status = ?, otp_code = '', otp_expires_at = ''
	  WHERE id = ? AND status = ?
	`, domain.OrderConfirmed, domain.DeliveryUnassigned, o.ID, domain.OrderPendingOTP)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.E(domain.KindOTPAlreadyUsed, "this order has already been confirmed or cancelled")
	}

	for _, it := range o.Items {
		var row struct {
			Name  string `db:"name"`
			Stock int    `db:"stock"`
		}
		if err := tx.Get(&row, `SELECT name, stock FROM products WHERE id = ?`, it.ProductID); err != nil {
			if err == sql.ErrNoRows {
				return domain.ErrInsufficientStock(it.Name, 0)
			}
			return err
		}
		if row.Stock < it.Qty {
			return domain.ErrInsufficientStock(row.Name, row.Stock)
		}
		res, err := tx.Exec(`
			UPDATE products
			SET stock = stock - ?, sold = sold + ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND stock >= ?
		`, it.Qty, it.Qty, it.ProductID, it.Qty)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrInsufficientStock(row.Name, row.Stock)
		}
	}

	if _, err := tx.Exec(`
	  DELETE FROM cart_items
	  WHERE cart_id = (SELECT id FROM carts WHERE buyer_id = ?)
	`, o.BuyerID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OrderRepo) Cancel(orderID string) error {
	_, err := r.db.Exec(`
	  UPDATE orders SET status = ?, otp_code = '', otp_expires_at = ''
	  WHERE id = ? AND status = ?
	`, domain.OrderCancelled, orderID, domain.OrderPendingOTP)
	return err
}

func (r *OrderRepo) ListByBuyer(buyerID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `
	  SELECT `+orderCols+` FROM orders
	  WHERE buyer_id = ?
	  ORDER BY datetime(created_at) DESC
	`, buyerID)
	return out, err
}

func (r *OrderRepo) ListLatest(limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Order
	err := r.db.Select(&out, `
	  SELECT `+orderCols+` FROM orders
	  ORDER BY datetime(created_at) DESC
	  LIMIT ?
	`, limit)
	return out, err
}

// ListUnassigned returns confirmed orders awaiting an agent.
func (r *OrderRepo) ListUnassigned() ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `
	  SELECT `+orderCols+` FROM orders
	  WHERE status = ? AND delivery_status = ?
	  ORDER BY datetime(created_at)
	`, domain.OrderConfirmed, domain.DeliveryUnassigned)
	return out, err
}

func (r *OrderRepo) ListByAgent(agentID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `
	  SELECT `+orderCols+` FROM orders
	  WHERE agent_id = ?
	  ORDER BY datetime(created_at) DESC
	`, agentID)
	return out, err
}

// Assign sets the agent and appends the history entry in one transaction.
func (r *OrderRepo) Assign(orderID, agentID, actorID string, now string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  UPDATE orders SET agent_id = ?, delivery_status = ? WHERE id = ?
	`, agentID, domain.DeliveryAssigned, orderID); err != nil {
		return err
	}
	if err := appendHistory(tx, orderID, agentID, actorID, domain.DeliveryAssigned, now); err != nil {
		return err
	}
	return tx.Commit()
}

// AdvanceDelivery moves the sub-state forward, stamping pickup/delivery
// times on the matching transitions, and appends the history entry.
func (r *OrderRepo) AdvanceDelivery(orderID, agentID, actorID string, target domain.DeliveryStatus, now string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	q := `UPDATE orders SET delivery_status = ?`
	args := []any{target}
	switch target {
	case domain.DeliveryPickedUp:
		q += `, picked_up_at = ?`
		args = append(args, now)
	case domain.DeliveryDelivered:
		q += `, delivered_at = ?`
		args = append(args, now)
	}
	q += ` WHERE id = ?`
	args = append(args, orderID)
	if _, err := tx.Exec(q, args...); err != nil {
		return err
	}
	if err := appendHistory(tx, orderID, agentID, actorID, target, now); err != nil {
		return err
	}
	return tx.Commit()
}

func appendHistory(tx *sqlx.Tx, orderID, agentID, actorID string, status domain.DeliveryStatus, now string) error {
	_, err := tx.Exec(`
	  INSERT INTO assignment_history(id, order_id, agent_id, actor_id, status, created_at)
	  VALUES(?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), orderID, agentID, actorID, status, now)
	return err
}

func (r *OrderRepo) History(orderID string) ([]domain.AssignmentRecord, error) {
	out := []domain.AssignmentRecord{}
	err := r.db.Select(&out, `
	  SELECT id, order_id, agent_id, actor_id, status, created_at
	  FROM assignment_history
	  WHERE order_id = ?
	  ORDER BY datetime(created_at), rowid
	`, orderID)
	return out, err
}

// UpdateStatus is the admin escape hatch for order status.
func (r *OrderRepo) UpdateStatus(id string, status domain.OrderStatus) error {
	_, err := r.db.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, id)
	return err
}
