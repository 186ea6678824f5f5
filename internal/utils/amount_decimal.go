package utils

import (
	"fmt"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"

	"github.com/shopspring/decimal"
)

// maxAmountDigits is the digit count of 2^128-1.
const maxAmountDigits = 39

// ToBaseUnits scales a token amount such as "1.01" into base units, the way
// parseEther does for 18 decimals. Fractions finer than one base unit are
// rejected rather than rounded.
func ToBaseUnits(d decimal.Decimal, decimals int32) (models.Amount, error) {
	if d.IsNegative() {
		return models.Amount{}, fmt.Errorf("amount %s is negative", d.String())
	}
	if d.IsZero() {
		return models.Amount{}, nil
	}

	// Exponents come straight from client input ("1e5000000"); decide fit
	// from digit counts before Shift materializes the integer.
	digits := int64(len(d.Coefficient().String()))
	exp := int64(d.Exponent()) + int64(decimals)
	if exp >= 0 && digits+exp > maxAmountDigits {
		return models.Amount{}, fmt.Errorf("amount with %d integer digits: %w", digits+exp, models.ErrAmountOverflow)
	}
	if exp < 0 && -exp >= digits {
		return models.Amount{}, fmt.Errorf("amount has more than %d decimals", decimals)
	}

	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return models.Amount{}, fmt.Errorf("amount %s has more than %d decimals", d.String(), decimals)
	}
	return models.AmountFromBig(scaled.BigInt())
}

// FromBaseUnits is the inverse of ToBaseUnits.
func FromBaseUnits(a models.Amount, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(a.Big(), -decimals)
}
