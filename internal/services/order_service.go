package services

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gardenly/internal/domain"
	"gardenly/internal/notify"
	"gardenly/internal/otp"
	"gardenly/internal/repos"
	"gardenly/internal/validate"
)

// OrderService is the order lifecycle manager: it turns a cart into a
// pending order behind an OTP challenge and commits stock only at
// verification time.
type OrderService struct {
	Carts    *repos.CartRepo
	Catalog  *repos.CatalogRepo
	Orders   *repos.OrderRepo
	Accounts *repos.AccountRepo
	OTP      *otp.Issuer
	Notify   notify.Notifier
}

func NewOrderService(carts *repos.CartRepo, catalog *repos.CatalogRepo, orders *repos.OrderRepo,
	accounts *repos.AccountRepo, issuer *otp.Issuer, notifier notify.Notifier) *OrderService {
	return &OrderService{Carts: carts, Catalog: catalog, Orders: orders, Accounts: accounts, OTP: issuer, Notify: notifier}
}

// InitiateCheckout snapshots the buyer's cart into a pending_otp order and
// dispatches the confirmation code. Stock is not touched here; the
// verification-time conditional deduction is the single consistency
// boundary. Success is only reported after the notifier returned; if the
// send fails the half-created order is compensating-deleted so a retry
// cannot strand a second pending order.
func (s *OrderService) InitiateCheckout(buyerID string, billing domain.Billing) (string, error) {
	if fields := validate.Check(billing); fields != nil {
		return "", &domain.Error{Kind: domain.KindInvalidArgument, Message: "missing or invalid billing fields", Fields: fields}
	}

	buyer, err := s.Accounts.ByID(buyerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", domain.E(domain.KindNotFound, "account not found")
		}
		return "", err
	}

	cartID, err := s.Carts.GetOrCreate(buyerID)
	if err != nil {
		return "", err
	}
	lines, err := s.Carts.Lines(cartID)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", domain.E(domain.KindEmptyCart, "your cart is empty")
	}

	// Snapshot: price-at-this-moment, immune to later catalog changes.
	items := make([]domain.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Qty:       l.Qty,
			Price:     l.Price,
		})
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Qty))))
	}

	ch, err := s.OTP.Issue()
	if err != nil {
		return "", err
	}

	o := domain.Order{
		ID:           uuid.NewString(),
		BuyerID:      buyerID,
		Status:       domain.OrderPendingOTP,
		Total:        total,
		Billing:      billing,
		OTPCode:      ch.Code,
		OTPExpiresAt: ch.ExpiresAt.Format(time.RFC3339),
		Items:        items,
	}
	if err := s.Orders.Create(o); err != nil {
		return "", err
	}

	if err := s.Notify.SendOTP(buyer.Email, buyer.Username, ch.Code, ch.ExpiresAt); err != nil {
		_ = s.Orders.Delete(o.ID)
		return "", domain.E(domain.KindNotificationFailed, "could not send the confirmation code, please try again")
	}
	return o.ID, nil
}

// VerifyOTP confirms a pending order. On a matching, unexpired code the
// stock deduction, sold increment, cart clear and status flip commit as
// one unit; any short item fails the whole call with insufficient_stock
// and the order stays pending_otp, retriable until expiry.
func (s *OrderService) VerifyOTP(orderID, buyerID, code string) (domain.Order, error) {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Order{}, domain.E(domain.KindNotFound, "order not found")
		}
		return domain.Order{}, err
	}
	if o.BuyerID != buyerID {
		return domain.Order{}, domain.E(domain.KindNotFound, "order not found")
	}
	if o.Status == domain.OrderCancelled {
		return domain.Order{}, domain.E(domain.KindInvalidState, "order has been cancelled")
	}

	if err := s.OTP.Verify(o, code); err != nil {
		return domain.Order{}, err
	}
	if err := s.Orders.Confirm(o); err != nil {
		return domain.Order{}, err
	}
	return s.Orders.Get(orderID)
}

// Cancel abandons a pending order. Not reachable from confirmed.
func (s *OrderService) Cancel(orderID, buyerID string) error {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.E(domain.KindNotFound, "order not found")
		}
		return err
	}
	if o.BuyerID != buyerID {
		return domain.E(domain.KindNotFound, "order not found")
	}
	if o.Status != domain.OrderPendingOTP {
		return domain.E(domain.KindInvalidState, "only pending orders can be cancelled")
	}
	return s.Orders.Cancel(orderID)
}

// Get returns an order to its owner (admins bypass ownership).
func (s *OrderService) Get(orderID string, actor *domain.Account) (domain.Order, error) {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Order{}, domain.E(domain.KindNotFound, "order not found")
		}
		return domain.Order{}, err
	}
	if actor == nil || (o.BuyerID != actor.ID && actor.Role != domain.RoleAdmin) {
		return domain.Order{}, domain.E(domain.KindNotFound, "order not found")
	}
	return o, nil
}

func (s *OrderService) History(buyerID string) ([]domain.Order, error) {
	return s.Orders.ListByBuyer(buyerID)
}
