package services

import (
	"database/sql"
	"time"

	"github.com/juju/clock"

	"gardenly/internal/domain"
	"gardenly/internal/repos"
)

// DeliveryService runs the assignment/delivery sub-lifecycle of confirmed
// orders: unassigned -> assigned -> picked_up -> in_transit -> delivered,
// with failed/cancelled as terminal alternates from any open state.
type DeliveryService struct {
	Orders   *repos.OrderRepo
	Accounts *repos.AccountRepo
	Clock    clock.Clock
}

func NewDeliveryService(orders *repos.OrderRepo, accounts *repos.AccountRepo, clk clock.Clock) *DeliveryService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &DeliveryService{Orders: orders, Accounts: accounts, Clock: clk}
}

var deliveryTargets = map[string]domain.DeliveryStatus{
	string(domain.DeliveryPickedUp):  domain.DeliveryPickedUp,
	string(domain.DeliveryInTransit): domain.DeliveryInTransit,
	string(domain.DeliveryDelivered): domain.DeliveryDelivered,
	string(domain.DeliveryFailed):    domain.DeliveryFailed,
	string(domain.DeliveryCancelled): domain.DeliveryCancelled,
}

// Assign hands a confirmed order to a delivery agent and records the
// transition in the append-only history.
func (s *DeliveryService) Assign(orderID, agentID, actorID string) (domain.Order, error) {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Order{}, domain.E(domain.KindNotFound, "order not found")
		}
		return domain.Order{}, err
	}
	agent, err := s.Accounts.ByID(agentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Order{}, domain.E(domain.KindNotFound, "agent not found")
		}
		return domain.Order{}, err
	}
	if agent.Role != domain.RoleAgent {
		return domain.Order{}, domain.E(domain.KindInvalidArgument, "account %s is not a delivery agent", agent.Username)
	}
	if o.Status != domain.OrderConfirmed {
		return domain.Order{}, domain.E(domain.KindInvalidState, "only confirmed orders can be assigned")
	}
	if o.DeliveryStatus == domain.DeliveryDelivered || o.DeliveryStatus == domain.DeliveryCancelled {
		return domain.Order{}, domain.E(domain.KindInvalidState, "delivery already closed")
	}

	now := s.Clock.Now().UTC().Format(time.RFC3339)
	if err := s.Orders.Assign(orderID, agentID, actorID, now); err != nil {
		return domain.Order{}, err
	}
	return s.Orders.Get(orderID)
}

// Advance moves the delivery state forward on behalf of the assigned
// agent. Transitions are strictly forward-only.
func (s *DeliveryService) Advance(orderID, agentID, targetRaw string) (domain.Order, error) {
	target, ok := deliveryTargets[targetRaw]
	if !ok {
		return domain.Order{}, domain.E(domain.KindInvalidArgument, "unknown delivery status %q", targetRaw)
	}

	o, err := s.Orders.Get(orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Order{}, domain.E(domain.KindNotFound, "order not found")
		}
		return domain.Order{}, err
	}
	if o.AgentID == "" || o.AgentID != agentID {
		return domain.Order{}, domain.E(domain.KindForbidden, "order is not assigned to you")
	}
	if !o.DeliveryStatus.CanAdvance(target) {
		return domain.Order{}, domain.E(domain.KindInvalidState,
			"cannot move delivery from %s to %s", o.DeliveryStatus, target)
	}

	now := s.Clock.Now().UTC().Format(time.RFC3339)
	if err := s.Orders.AdvanceDelivery(orderID, agentID, agentID, target, now); err != nil {
		return domain.Order{}, err
	}
	return s.Orders.Get(orderID)
}

// ListUnassigned returns confirmed orders with no agent (manager view).
func (s *DeliveryService) ListUnassigned() ([]domain.Order, error) {
	return s.Orders.ListUnassigned()
}

// ListMine returns the orders assigned to the calling agent.
func (s *DeliveryService) ListMine(agentID string) ([]domain.Order, error) {
	return s.Orders.ListByAgent(agentID)
}

func (s *DeliveryService) History(orderID string) ([]domain.AssignmentRecord, error) {
	if _, err := s.Orders.Get(orderID); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.E(domain.KindNotFound, "order not found")
		}
		return nil, err
	}
	return s.Orders.History(orderID)
}
