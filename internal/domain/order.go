package domain

import "github.com/shopspring/decimal"

type OrderStatus string

const (
	OrderPendingOTP OrderStatus = "pending_otp"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderCancelled  OrderStatus = "cancelled"
)

// DeliveryStatus is the sub-lifecycle a confirmed order moves through.
type DeliveryStatus string

const (
	DeliveryUnassigned DeliveryStatus = "unassigned"
	DeliveryAssigned   DeliveryStatus = "assigned"
	DeliveryPickedUp   DeliveryStatus = "picked_up"
	DeliveryInTransit  DeliveryStatus = "in_transit"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryFailed     DeliveryStatus = "failed"
	DeliveryCancelled  DeliveryStatus = "cancelled"
)

// deliveryPrev maps each forward target to the state it may be entered from.
var deliveryPrev = map[DeliveryStatus]DeliveryStatus{
	DeliveryPickedUp:  DeliveryAssigned,
	DeliveryInTransit: DeliveryPickedUp,
	DeliveryDelivered: DeliveryInTransit,
}

// Terminal reports whether no further delivery transition is possible.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryFailed || s == DeliveryCancelled
}

// CanAdvance reports whether a transition from s to target is legal.
// Forward moves are strictly ordered; failed/cancelled are reachable from
// any open state.
func (s DeliveryStatus) CanAdvance(target DeliveryStatus) bool {
	if s.Terminal() {
		return false
	}
	if target == DeliveryFailed || target == DeliveryCancelled {
		return true
	}
	prev, ok := deliveryPrev[target]
	return ok && s == prev
}

// Billing is the address block captured at checkout. Address2 is the only
// optional field.
type Billing struct {
	Name     string `db:"billing_name" json:"name" validate:"required"`
	Email    string `db:"billing_email" json:"email" validate:"required,email"`
	Phone    string `db:"billing_phone" json:"phone" validate:"required"`
	Address1 string `db:"billing_address1" json:"address1" validate:"required"`
	Address2 string `db:"billing_address2" json:"address2"`
	City     string `db:"billing_city" json:"city" validate:"required"`
	State    string `db:"billing_state" json:"state" validate:"required"`
	Zip      string `db:"billing_zip" json:"zip" validate:"required"`
}

// OrderItem is an immutable snapshot of a cart line: the price is the
// catalog price at the moment checkout was initiated, not a live reference.
type OrderItem struct {
	OrderID   string          `db:"order_id" json:"-"`
	ProductID string          `db:"product_id" json:"productId"`
	Name      string          `db:"name" json:"name"`
	Qty       int             `db:"qty" json:"qty"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

type Order struct {
	ID      string          `db:"id" json:"id"`
	BuyerID string          `db:"buyer_id" json:"buyerId"`
	Status  OrderStatus     `db:"status" json:"status"`
	Total   decimal.Decimal `db:"total" json:"total"`
	Billing `json:"billing"`

	// OTP material; erased once the order is confirmed.
	OTPCode      string `db:"otp_code" json:"-"`
	OTPExpiresAt string `db:"otp_expires_at" json:"-"`

	DeliveryStatus DeliveryStatus `db:"delivery_status" json:"deliveryStatus,omitempty"`
	AgentID        string         `db:"agent_id" json:"agentId,omitempty"`
	PickedUpAt     string         `db:"picked_up_at" json:"pickedUpAt,omitempty"`
	DeliveredAt    string         `db:"delivered_at" json:"deliveredAt,omitempty"`

	CreatedAt string      `db:"created_at" json:"createdAt"`
	Items     []OrderItem `db:"-" json:"items,omitempty"`
}

// AssignmentRecord is one entry of the append-only delivery history.
type AssignmentRecord struct {
	ID        string         `db:"id" json:"id"`
	OrderID   string         `db:"order_id" json:"orderId"`
	AgentID   string         `db:"agent_id" json:"agentId"`
	ActorID   string         `db:"actor_id" json:"actorId"`
	Status    DeliveryStatus `db:"status" json:"status"`
	CreatedAt string         `db:"created_at" json:"createdAt"`
}

type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketAnswered TicketStatus = "answered"
	TicketClosed   TicketStatus = "closed"
)

type Ticket struct {
	ID        string       `db:"id" json:"id"`
	BuyerID   string       `db:"buyer_id" json:"buyerId"`
	Subject   string       `db:"subject" json:"subject"`
	Body      string       `db:"body" json:"body"`
	Status    TicketStatus `db:"status" json:"status"`
	CreatedAt string       `db:"created_at" json:"createdAt"`
	UpdatedAt string       `db:"updated_at" json:"updatedAt"`
}

type TicketReply struct {
	ID        string `db:"id" json:"id"`
	TicketID  string `db:"ticket_id" json:"ticketId"`
	AuthorID  string `db:"author_id" json:"authorId"`
	Body      string `db:"body" json:"body"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}
