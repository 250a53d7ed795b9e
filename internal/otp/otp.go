// Package otp issues and verifies the numeric challenges that gate order
// confirmation.
package otp

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/juju/clock"

	"gardenly/internal/domain"
)

// Challenge is a freshly issued code with its expiry.
type Challenge struct {
	Code      string
	ExpiresAt time.Time
}

type Issuer struct {
	ttl time.Duration
	clk clock.Clock
}

func NewIssuer(ttl time.Duration, clk clock.Clock) *Issuer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Issuer{ttl: ttl, clk: clk}
}

// Issue produces a 6-digit code uniform over 100000-999999.
func (i *Issuer) Issue() (Challenge, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{
		Code:      strconv.FormatInt(n.Int64()+100000, 10),
		ExpiresAt: i.clk.Now().Add(i.ttl).UTC(),
	}, nil
}

// Verify checks a supplied code against the challenge persisted on the
// order. At most one verification can ever succeed per order: once the
// order leaves pending_otp the challenge reports otp_already_used. There
// is deliberately no attempt counting; callers may retry until expiry.
func (i *Issuer) Verify(o domain.Order, supplied string) error {
	if o.Status != domain.OrderPendingOTP {
		return domain.E(domain.KindOTPAlreadyUsed, "this order has already been confirmed or cancelled")
	}
	if supplied != o.OTPCode {
		return domain.E(domain.KindOTPMismatch, "the code does not match")
	}
	expiry, err := time.Parse(time.RFC3339, o.OTPExpiresAt)
	if err != nil {
		return domain.E(domain.KindOTPExpired, "the code is no longer valid")
	}
	if i.clk.Now().After(expiry) {
		return domain.E(domain.KindOTPExpired, "the code has expired, please restart checkout")
	}
	return nil
}
