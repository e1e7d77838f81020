// Package payment implements the pure parts of the gateway payment
// contract: integrity signatures, order identifiers and minor-unit
// amounts with the included-tax breakdown.
package payment

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

const (
	// DefaultCurrency is the currency every order is charged in.
	DefaultCurrency = "COP"

	// OrderIDPrefix marks event-registration orders at the gateway.
	OrderIDPrefix = "EVT"

	// MaxOrderIDLength is the longest order id the gateway accepts.
	MaxOrderIDLength = 60

	// MinAmount is the smallest charge the gateway accepts, in minor units.
	MinAmount = 1000

	// TaxRatePercent is the VAT rate included in event prices.
	TaxRatePercent = 19

	// ExpirationHorizon is the logical lifetime of an order. It is not an
	// active timer; the reconciliation sweep evaluates it lazily.
	ExpirationHorizon = 24 * time.Hour
)

// Signature computes the tamper-evidence hash over an order's identity,
// amount and currency. Any change to amount or currency for a fixed
// order id produces a different signature.
func Signature(orderID string, amount int64, currency, secret string) string {
	sum := sha256.Sum256([]byte(orderID + strconv.FormatInt(amount, 10) + currency + secret))
	return hex.EncodeToString(sum[:])
}

var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidOrderID reports whether id satisfies the gateway's order id
// contract: non-empty, at most MaxOrderIDLength characters, restricted
// to alphanumerics, underscores and hyphens.
func ValidOrderID(id string) bool {
	return id != "" && len(id) <= MaxOrderIDLength && orderIDPattern.MatchString(id)
}

const orderIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderID generates a gateway-safe order identifier of the form
// PREFIX-<unix millis>-<6 random characters>.
func NewOrderID(prefix string, now time.Time) string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = orderIDAlphabet[int(b)%len(orderIDAlphabet)]
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), buf)
}

// MinorUnits converts a price to the integer minor-unit amount the
// gateway requires. Fractional values are rounded, never truncated.
func MinorUnits(price float64) int64 {
	return int64(math.Round(price))
}

// TaxBreakdown splits an amount that already includes tax at the given
// rate into its taxable base and tax portion. base + tax == amount.
func TaxBreakdown(amount int64, ratePercent int) (base, tax int64) {
	base = int64(math.Round(float64(amount) / (1 + float64(ratePercent)/100)))
	return base, amount - base
}
