package services_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/juju/clock"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"gardenly/internal/domain"
	"gardenly/internal/notify"
	"gardenly/internal/otp"
	"gardenly/internal/repos"
	"gardenly/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// one connection so every statement sees the same in-memory database
	db.SetMaxOpenConns(1)
	if err := repos.EnsureSchema(db); err != nil {
		t.Fatal(err)
	}

	seed := `
	INSERT INTO accounts(id,username,email,mobile,password_hash,role) VALUES
	  ('b1','daisy','daisy@test','111','x','buyer'),
	  ('b2','fern','fern@test','222','x','buyer'),
	  ('s1','greenthumb','seller@test','333','x','seller'),
	  ('m1','dispatch','manager@test','444','x','manager'),
	  ('ag1','wheels','agent@test','555','x','agent'),
	  ('ag2','pedals','agent2@test','666','x','agent');
	INSERT INTO categories(id,name) VALUES ('plants','Plants');
	INSERT INTO products(id,category_id,seller_id,name,price,stock) VALUES
	  ('rose-001','plants','s1','Damask Rose','100',5);
	`
	if _, err := db.Exec(seed); err != nil {
		t.Fatal(err)
	}
	return db
}

type env struct {
	db       *sqlx.DB
	carts    *repos.CartRepo
	catalog  *repos.CatalogRepo
	orders   *repos.OrderRepo
	accounts *repos.AccountRepo

	cart  *services.CartService
	order *services.OrderService
}

func newEnv(t *testing.T, notifier notify.Notifier) *env {
	t.Helper()
	db := memdb(t)
	e := &env{
		db:       db,
		carts:    repos.NewCartRepo(db),
		catalog:  repos.NewCatalogRepo(db),
		orders:   repos.NewOrderRepo(db),
		accounts: repos.NewAccountRepo(db),
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	issuer := otp.NewIssuer(10*time.Minute, clock.WallClock)
	e.cart = services.NewCartService(e.carts, e.catalog)
	e.order = services.NewOrderService(e.carts, e.catalog, e.orders, e.accounts, issuer, notifier)
	return e
}

func validBilling() domain.Billing {
	return domain.Billing{
		Name:     "Daisy Buyer",
		Email:    "daisy@test.example",
		Phone:    "5551234567",
		Address1: "12 Rose Lane",
		City:     "College Park",
		State:    "MD",
		Zip:      "20742",
	}
}

// otpCode reads the persisted challenge; tests stand in for the e-mail.
func (e *env) otpCode(t *testing.T, orderID string) string {
	t.Helper()
	var code string
	if err := e.db.Get(&code, `SELECT otp_code FROM orders WHERE id=?`, orderID); err != nil {
		t.Fatal(err)
	}
	return code
}

func TestCheckoutConfirmDeductsStockAndClearsCart(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 2); err != nil {
		t.Fatal(err)
	}

	oid, err := e.order.InitiateCheckout("b1", validBilling())
	if err != nil {
		t.Fatal(err)
	}
	o, err := e.orders.Get(oid)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.OrderPendingOTP {
		t.Fatalf("want pending_otp, got %s", o.Status)
	}
	if o.Total.String() != "200" {
		t.Fatalf("want total 200, got %s", o.Total)
	}
	// stock untouched while pending
	if qty, _ := e.catalog.Stock("rose-001"); qty != 5 {
		t.Fatalf("pending order must not touch stock, got %d", qty)
	}

	confirmed, err := e.order.VerifyOTP(oid, "b1", e.otpCode(t, oid))
	if err != nil {
		t.Fatal(err)
	}
	if confirmed.Status != domain.OrderConfirmed {
		t.Fatalf("want confirmed, got %s", confirmed.Status)
	}
	if confirmed.DeliveryStatus != domain.DeliveryUnassigned {
		t.Fatalf("want unassigned delivery, got %s", confirmed.DeliveryStatus)
	}
	if confirmed.OTPCode != "" || confirmed.OTPExpiresAt != "" {
		t.Fatal("otp material must be erased after confirmation")
	}

	if qty, _ := e.catalog.Stock("rose-001"); qty != 3 {
		t.Fatalf("want stock 3, got %d", qty)
	}
	if sold, _ := e.catalog.Sold("rose-001"); sold != 2 {
		t.Fatalf("want sold 2, got %d", sold)
	}
	cv, err := e.cart.View("b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(cv.Lines) != 0 {
		t.Fatalf("cart must be empty after confirm, got %d lines", len(cv.Lines))
	}
}

func TestInsufficientStockLeavesOrderPending(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 2); err != nil {
		t.Fatal(err)
	}
	oid, err := e.order.InitiateCheckout("b1", validBilling())
	if err != nil {
		t.Fatal(err)
	}

	// stock drops below the snapshot quantity during the OTP window
	if err := e.catalog.SetStock("rose-001", 1); err != nil {
		t.Fatal(err)
	}

	_, err = e.order.VerifyOTP(oid, "b1", e.otpCode(t, oid))
	if !domain.IsKind(err, domain.KindInsufficientStock) {
		t.Fatalf("want insufficient_stock, got %v", err)
	}

	o, _ := e.orders.Get(oid)
	if o.Status != domain.OrderPendingOTP {
		t.Fatalf("order must stay pending, got %s", o.Status)
	}
	if qty, _ := e.catalog.Stock("rose-001"); qty != 1 {
		t.Fatalf("stock must be unchanged, got %d", qty)
	}
	cv, _ := e.cart.View("b1")
	if len(cv.Lines) != 1 {
		t.Fatal("cart must be untouched while the order is pending")
	}
}

func TestOTPSingleUse(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 1); err != nil {
		t.Fatal(err)
	}
	oid, err := e.order.InitiateCheckout("b1", validBilling())
	if err != nil {
		t.Fatal(err)
	}
	code := e.otpCode(t, oid)

	if _, err := e.order.VerifyOTP(oid, "b1", code); err != nil {
		t.Fatal(err)
	}
	_, err = e.order.VerifyOTP(oid, "b1", code)
	if !domain.IsKind(err, domain.KindOTPAlreadyUsed) {
		t.Fatalf("second verify must fail otp_already_used, got %v", err)
	}
}

func TestOTPMismatchIsRetriable(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 1); err != nil {
		t.Fatal(err)
	}
	oid, err := e.order.InitiateCheckout("b1", validBilling())
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.order.VerifyOTP(oid, "b1", "000000")
	if !domain.IsKind(err, domain.KindOTPMismatch) {
		t.Fatalf("want otp_mismatch, got %v", err)
	}
	// still pending, correct code still works
	if _, err := e.order.VerifyOTP(oid, "b1", e.otpCode(t, oid)); err != nil {
		t.Fatal(err)
	}
}

func TestPriceSnapshotImmutable(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 2); err != nil {
		t.Fatal(err)
	}
	oid, err := e.order.InitiateCheckout("b1", validBilling())
	if err != nil {
		t.Fatal(err)
	}

	p, _ := e.catalog.Get("rose-001")
	if err := e.catalog.SetPrice("rose-001", p.Price.Mul(decimal.NewFromInt(3))); err != nil {
		t.Fatal(err)
	}

	o, err := e.orders.Get(oid)
	if err != nil {
		t.Fatal(err)
	}
	if o.Total.String() != "200" {
		t.Fatalf("total must keep the snapshot price, got %s", o.Total)
	}
	if len(o.Items) != 1 || o.Items[0].Price.String() != "100" {
		t.Fatalf("item must keep price-at-order-time, got %+v", o.Items)
	}
}

func TestCheckoutRejectsEmptyCartAndBadBilling(t *testing.T) {
	e := newEnv(t, nil)

	_, err := e.order.InitiateCheckout("b1", validBilling())
	if !domain.IsKind(err, domain.KindEmptyCart) {
		t.Fatalf("want empty_cart, got %v", err)
	}

	if err := e.cart.Add("b1", "rose-001", 1); err != nil {
		t.Fatal(err)
	}
	b := validBilling()
	b.City = ""
	b.Zip = ""
	_, err = e.order.InitiateCheckout("b1", b)
	if !domain.IsKind(err, domain.KindInvalidArgument) {
		t.Fatalf("want invalid_argument, got %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatal("want *domain.Error")
	}
	if _, ok := de.Fields["city"]; !ok {
		t.Fatalf("missing city in field errors: %v", de.Fields)
	}
	if _, ok := de.Fields["zip"]; !ok {
		t.Fatalf("missing zip in field errors: %v", de.Fields)
	}
	// address2 is optional
	if _, ok := de.Fields["address2"]; ok {
		t.Fatal("address2 must not be required")
	}
}

type failingNotifier struct{}

func (failingNotifier) SendOTP(string, string, string, time.Time) error {
	return errors.New("smtp: connection refused")
}

func TestNotifierFailureRemovesHalfCreatedOrder(t *testing.T) {
	e := newEnv(t, failingNotifier{})

	if err := e.cart.Add("b1", "rose-001", 1); err != nil {
		t.Fatal(err)
	}
	_, err := e.order.InitiateCheckout("b1", validBilling())
	if !domain.IsKind(err, domain.KindNotificationFailed) {
		t.Fatalf("want notification_failed, got %v", err)
	}

	var n int
	if err := e.db.Get(&n, `SELECT COUNT(*) FROM orders WHERE buyer_id='b1'`); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("half-created order must be deleted, found %d", n)
	}
	// cart survives, the buyer can retry
	cv, _ := e.cart.View("b1")
	if len(cv.Lines) != 1 {
		t.Fatal("cart must survive a failed checkout")
	}
}

func TestVerifyOTPOwnershipAndMissingOrder(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 1); err != nil {
		t.Fatal(err)
	}
	oid, err := e.order.InitiateCheckout("b1", validBilling())
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.order.VerifyOTP(oid, "b2", e.otpCode(t, oid))
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("foreign order must read as not_found, got %v", err)
	}
	_, err = e.order.VerifyOTP("no-such-order", "b1", "123456")
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestCancelOnlyFromPending(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 1); err != nil {
		t.Fatal(err)
	}
	oid, err := e.order.InitiateCheckout("b1", validBilling())
	if err != nil {
		t.Fatal(err)
	}
	code := e.otpCode(t, oid)

	if err := e.order.Cancel(oid, "b1"); err != nil {
		t.Fatal(err)
	}
	o, _ := e.orders.Get(oid)
	if o.Status != domain.OrderCancelled {
		t.Fatalf("want cancelled, got %s", o.Status)
	}
	// cancelled orders cannot be confirmed
	_, err = e.order.VerifyOTP(oid, "b1", code)
	if !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("want invalid_state, got %v", err)
	}
	if err := e.order.Cancel(oid, "b1"); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("double cancel must fail invalid_state, got %v", err)
	}
}

// Two pending orders race for the last unit: exactly one confirms.
func TestConcurrentConfirmNeverOversells(t *testing.T) {
	e := newEnv(t, nil)
	if err := e.catalog.SetStock("rose-001", 3); err != nil {
		t.Fatal(err)
	}

	// five buyers, one unit each
	type pending struct{ buyer, order, code string }
	var orders []pending
	for i := 0; i < 5; i++ {
		buyer := fmt.Sprintf("c%d", i)
		if _, err := e.db.Exec(`INSERT INTO accounts(id,username,email,mobile,password_hash,role)
		  VALUES(?,?,?,?,'x','buyer')`, buyer, buyer, buyer+"@test", fmt.Sprintf("9%d", i)); err != nil {
			t.Fatal(err)
		}
		if err := e.cart.Add(buyer, "rose-001", 1); err != nil {
			t.Fatal(err)
		}
		oid, err := e.order.InitiateCheckout(buyer, validBilling())
		if err != nil {
			t.Fatal(err)
		}
		orders = append(orders, pending{buyer: buyer, order: oid, code: e.otpCode(t, oid)})
	}

	var wg sync.WaitGroup
	results := make([]error, len(orders))
	for i, p := range orders {
		wg.Add(1)
		go func(i int, p pending) {
			defer wg.Done()
			_, results[i] = e.order.VerifyOTP(p.order, p.buyer, p.code)
		}(i, p)
	}
	wg.Wait()

	confirmed, short := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			confirmed++
		case domain.IsKind(err, domain.KindInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if confirmed != 3 || short != 2 {
		t.Fatalf("want 3 confirmed / 2 short, got %d / %d", confirmed, short)
	}
	if qty, _ := e.catalog.Stock("rose-001"); qty != 0 {
		t.Fatalf("stock must end at 0, got %d", qty)
	}
	if sold, _ := e.catalog.Sold("rose-001"); sold != 3 {
		t.Fatalf("sold must equal deducted qty, got %d", sold)
	}
}

// Two racing verifications of the same order: exactly one confirms and
// the stock is deducted exactly once.
func TestConcurrentVerifySameOrderDeductsOnce(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 2); err != nil {
		t.Fatal(err)
	}
	oid, err := e.order.InitiateCheckout("b1", validBilling())
	if err != nil {
		t.Fatal(err)
	}
	code := e.otpCode(t, oid)

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.order.VerifyOTP(oid, "b1", code)
		}(i)
	}
	wg.Wait()

	confirmed, used := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			confirmed++
		case domain.IsKind(err, domain.KindOTPAlreadyUsed):
			used++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if confirmed != 1 {
		t.Fatalf("exactly one verification may succeed, got %d", confirmed)
	}
	if used != 3 {
		t.Fatalf("losers must see otp_already_used, got %d", used)
	}
	if qty, _ := e.catalog.Stock("rose-001"); qty != 3 {
		t.Fatalf("stock must be deducted exactly once, got %d", qty)
	}
	if sold, _ := e.catalog.Sold("rose-001"); sold != 2 {
		t.Fatalf("sold must increment exactly once, got %d", sold)
	}
}

func TestDeleteAccountKeepsConfirmedOrders(t *testing.T) {
	e := newEnv(t, nil)

	// one confirmed order, one still pending
	if err := e.cart.Add("b1", "rose-001", 1); err != nil {
		t.Fatal(err)
	}
	confirmed, err := e.order.InitiateCheckout("b1", validBilling())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.order.VerifyOTP(confirmed, "b1", e.otpCode(t, confirmed)); err != nil {
		t.Fatal(err)
	}
	if err := e.cart.Add("b1", "rose-001", 1); err != nil {
		t.Fatal(err)
	}
	pending, err := e.order.InitiateCheckout("b1", validBilling())
	if err != nil {
		t.Fatal(err)
	}

	if err := e.accounts.DeleteAccountCascade("b1"); err != nil {
		t.Fatal(err)
	}

	if _, err := e.accounts.ByID("b1"); err == nil {
		t.Fatal("account must be gone")
	}
	o, err := e.orders.Get(confirmed)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.OrderConfirmed {
		t.Fatalf("confirmed order must survive for audit, got %s", o.Status)
	}
	o, err = e.orders.Get(pending)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.OrderCancelled {
		t.Fatalf("pending order must be cancelled, got %s", o.Status)
	}
	var carts int
	if err := e.db.Get(&carts, `SELECT COUNT(*) FROM carts WHERE buyer_id='b1'`); err != nil {
		t.Fatal(err)
	}
	if carts != 0 {
		t.Fatal("cart must be removed with the account")
	}
}
