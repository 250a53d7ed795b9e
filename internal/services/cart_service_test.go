package services_test

import (
	"testing"

	"gardenly/internal/domain"
)

func TestCartAddMergesQuantities(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 2); err != nil {
		t.Fatal(err)
	}
	if err := e.cart.Add("b1", "rose-001", 3); err != nil {
		t.Fatal(err)
	}

	cv, err := e.cart.View("b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(cv.Lines) != 1 || cv.Lines[0].Qty != 5 {
		t.Fatalf("want one line of qty 5, got %+v", cv.Lines)
	}
	if cv.Total.String() != "500" {
		t.Fatalf("want total 500, got %s", cv.Total)
	}
}

func TestCartSetQtyOverwrites(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 4); err != nil {
		t.Fatal(err)
	}
	if err := e.cart.SetQty("b1", "rose-001", 1); err != nil {
		t.Fatal(err)
	}
	cv, _ := e.cart.View("b1")
	if cv.Lines[0].Qty != 1 {
		t.Fatalf("want qty 1, got %d", cv.Lines[0].Qty)
	}
}

func TestCartRejectsBadInput(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 0); !domain.IsKind(err, domain.KindInvalidArgument) {
		t.Fatalf("want invalid_argument, got %v", err)
	}
	if err := e.cart.Add("b1", "no-such-product", 1); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestCartRemoveIsIdempotent(t *testing.T) {
	e := newEnv(t, nil)

	// removing a line that was never added is a no-op
	if err := e.cart.Remove("b1", "rose-001"); err != nil {
		t.Fatal(err)
	}

	if err := e.cart.Add("b1", "rose-001", 2); err != nil {
		t.Fatal(err)
	}
	if err := e.cart.Remove("b1", "rose-001"); err != nil {
		t.Fatal(err)
	}
	if err := e.cart.Remove("b1", "rose-001"); err != nil {
		t.Fatal(err)
	}
	cv, _ := e.cart.View("b1")
	if len(cv.Lines) != 0 {
		t.Fatalf("want empty cart, got %+v", cv.Lines)
	}
}

func TestCartsAreIsolatedPerBuyer(t *testing.T) {
	e := newEnv(t, nil)

	if err := e.cart.Add("b1", "rose-001", 2); err != nil {
		t.Fatal(err)
	}
	cv, err := e.cart.View("b2")
	if err != nil {
		t.Fatal(err)
	}
	if len(cv.Lines) != 0 {
		t.Fatalf("b2 must not see b1's cart, got %+v", cv.Lines)
	}

	if err := e.cart.Clear("b1"); err != nil {
		t.Fatal(err)
	}
	cv, _ = e.cart.View("b1")
	if len(cv.Lines) != 0 {
		t.Fatal("clear must empty the cart")
	}
}
