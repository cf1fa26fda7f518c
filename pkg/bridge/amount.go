package bridge

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts an amount string into the smallest unit of an asset with
// the given decimals. A bare integer ("100000000") is already in the smallest
// unit; "raw:" is accepted as an explicit form of the same. Whole-unit input
// ("1.5") must carry the "decimal:" prefix.
func ParseAmount(s string, decimals int32) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrValidation)
	}
	if whole, ok := strings.CutPrefix(s, "decimal:"); ok {
		return parseWholeUnits(whole, decimals)
	}
	raw, _ := strings.CutPrefix(s, "raw:")
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%w: amount %q is not an integer in base units (use decimal:<n> for whole units)", ErrValidation, raw)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return v, nil
}

func parseWholeUnits(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount %q: %v", ErrValidation, s, err)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: amount %s has more than %d decimals", ErrValidation, s, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatAmount renders a smallest-unit amount in whole asset units
func FormatAmount(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}
