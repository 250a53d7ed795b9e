package services_test

import (
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gardenly/internal/domain"
	"gardenly/internal/services"
)

// confirmedOrder walks a buyer through checkout and OTP verification so
// delivery tests start from a confirmed, unassigned order.
func confirmedOrder(t *testing.T, e *env, buyerID string) string {
	t.Helper()
	require.NoError(t, e.cart.Add(buyerID, "rose-001", 1))
	oid, err := e.order.InitiateCheckout(buyerID, validBilling())
	require.NoError(t, err)
	_, err = e.order.VerifyOTP(oid, buyerID, e.otpCode(t, oid))
	require.NoError(t, err)
	return oid
}

func newDelivery(e *env) (*services.DeliveryService, *testclock.Clock) {
	clk := testclock.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	return services.NewDeliveryService(e.orders, e.accounts, clk), clk
}

func TestAssignConfirmedOrder(t *testing.T) {
	e := newEnv(t, nil)
	d, _ := newDelivery(e)
	oid := confirmedOrder(t, e, "b1")

	o, err := d.Assign(oid, "ag1", "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryAssigned, o.DeliveryStatus)
	assert.Equal(t, "ag1", o.AgentID)

	recs, err := d.History(oid)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.DeliveryAssigned, recs[0].Status)
	assert.Equal(t, "m1", recs[0].ActorID)
}

func TestAssignRejectsNonAgentsAndPendingOrders(t *testing.T) {
	e := newEnv(t, nil)
	d, _ := newDelivery(e)

	// still pending_otp
	require.NoError(t, e.cart.Add("b1", "rose-001", 1))
	pending, err := e.order.InitiateCheckout("b1", validBilling())
	require.NoError(t, err)
	_, err = d.Assign(pending, "ag1", "m1")
	assert.True(t, domain.IsKind(err, domain.KindInvalidState), "got %v", err)

	oid := confirmedOrder(t, e, "b2")
	_, err = d.Assign(oid, "b1", "m1") // a buyer, not an agent
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument), "got %v", err)
	_, err = d.Assign(oid, "nobody", "m1")
	assert.True(t, domain.IsKind(err, domain.KindNotFound), "got %v", err)
	_, err = d.Assign("no-such-order", "ag1", "m1")
	assert.True(t, domain.IsKind(err, domain.KindNotFound), "got %v", err)
}

func TestAdvanceWalksForwardOnly(t *testing.T) {
	e := newEnv(t, nil)
	d, _ := newDelivery(e)
	oid := confirmedOrder(t, e, "b1")
	_, err := d.Assign(oid, "ag1", "m1")
	require.NoError(t, err)

	// skipping straight to delivered is illegal
	_, err = d.Advance(oid, "ag1", "delivered")
	assert.True(t, domain.IsKind(err, domain.KindInvalidState), "got %v", err)

	o, err := d.Advance(oid, "ag1", "picked_up")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryPickedUp, o.DeliveryStatus)
	assert.NotEmpty(t, o.PickedUpAt)

	// no going back
	_, err = d.Advance(oid, "ag1", "picked_up")
	assert.True(t, domain.IsKind(err, domain.KindInvalidState), "got %v", err)

	o, err = d.Advance(oid, "ag1", "in_transit")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryInTransit, o.DeliveryStatus)

	o, err = d.Advance(oid, "ag1", "delivered")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryDelivered, o.DeliveryStatus)
	assert.NotEmpty(t, o.DeliveredAt)

	// delivered is terminal
	_, err = d.Advance(oid, "ag1", "failed")
	assert.True(t, domain.IsKind(err, domain.KindInvalidState), "got %v", err)

	recs, err := d.History(oid)
	require.NoError(t, err)
	// assigned, picked_up, in_transit, delivered
	require.Len(t, recs, 4)
	assert.Equal(t, domain.DeliveryDelivered, recs[3].Status)
}

func TestAdvanceRejectsWrongAgentAndUnknownTarget(t *testing.T) {
	e := newEnv(t, nil)
	d, _ := newDelivery(e)
	oid := confirmedOrder(t, e, "b1")
	_, err := d.Assign(oid, "ag1", "m1")
	require.NoError(t, err)

	_, err = d.Advance(oid, "ag2", "picked_up")
	assert.True(t, domain.IsKind(err, domain.KindForbidden), "got %v", err)

	_, err = d.Advance(oid, "ag1", "teleported")
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument), "got %v", err)
}

func TestFailedDeliveryCanBeReassigned(t *testing.T) {
	e := newEnv(t, nil)
	d, _ := newDelivery(e)
	oid := confirmedOrder(t, e, "b1")

	_, err := d.Assign(oid, "ag1", "m1")
	require.NoError(t, err)
	o, err := d.Advance(oid, "ag1", "failed")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryFailed, o.DeliveryStatus)

	// manager hands the failed order to a second agent
	o, err = d.Assign(oid, "ag2", "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryAssigned, o.DeliveryStatus)
	assert.Equal(t, "ag2", o.AgentID)

	// the first agent lost the order
	_, err = d.Advance(oid, "ag1", "picked_up")
	assert.True(t, domain.IsKind(err, domain.KindForbidden), "got %v", err)
}

func TestUnassignedAndMineViews(t *testing.T) {
	e := newEnv(t, nil)
	d, _ := newDelivery(e)

	o1 := confirmedOrder(t, e, "b1")
	o2 := confirmedOrder(t, e, "b2")

	un, err := d.ListUnassigned()
	require.NoError(t, err)
	require.Len(t, un, 2)

	_, err = d.Assign(o1, "ag1", "m1")
	require.NoError(t, err)

	un, err = d.ListUnassigned()
	require.NoError(t, err)
	require.Len(t, un, 1)
	assert.Equal(t, o2, un[0].ID)

	mine, err := d.ListMine("ag1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, o1, mine[0].ID)

	mine, err = d.ListMine("ag2")
	require.NoError(t, err)
	assert.Empty(t, mine)
}
