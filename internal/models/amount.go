package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"strconv"
	"strings"
)

var (
	ErrAmountOverflow  = errors.New("amount overflows 128 bits")
	ErrAmountUnderflow = errors.New("amount underflows zero")
	ErrAmountFormat    = errors.New("amount is not a non-negative base-10 integer")
)

// Amount is an unsigned 128-bit count of base units. All arithmetic is
// checked; nothing wraps.
type Amount struct {
	hi, lo uint64
}

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

func NewAmount(v uint64) Amount {
	return Amount{lo: v}
}

func (a Amount) IsZero() bool {
	return a.hi == 0 && a.lo == 0
}

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.hi < b.hi:
		return -1
	case a.hi > b.hi:
		return 1
	case a.lo < b.lo:
		return -1
	case a.lo > b.lo:
		return 1
	}
	return 0
}

func (a Amount) Add(b Amount) (Amount, error) {
	lo, carry := bits.Add64(a.lo, b.lo, 0)
	hi, carry := bits.Add64(a.hi, b.hi, carry)
	if carry != 0 {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{hi: hi, lo: lo}, nil
}

func (a Amount) Sub(b Amount) (Amount, error) {
	lo, borrow := bits.Sub64(a.lo, b.lo, 0)
	hi, borrow := bits.Sub64(a.hi, b.hi, borrow)
	if borrow != 0 {
		return Amount{}, ErrAmountUnderflow
	}
	return Amount{hi: hi, lo: lo}, nil
}

func (a Amount) Mul64(m uint64) (Amount, error) {
	carry, lo := bits.Mul64(a.lo, m)
	over, hi := bits.Mul64(a.hi, m)
	if over != 0 {
		return Amount{}, ErrAmountOverflow
	}
	hi, c := bits.Add64(hi, carry, 0)
	if c != 0 {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{hi: hi, lo: lo}, nil
}

// QuoRem64 divides by d, rounding toward zero. d must be nonzero.
func (a Amount) QuoRem64(d uint64) (Amount, uint64) {
	qhi := a.hi / d
	r := a.hi % d
	qlo, r := bits.Div64(r, a.lo, d)
	return Amount{hi: qhi, lo: qlo}, r
}

// MulDiv64 returns floor(a*m/d) for m <= d without a 192-bit intermediate.
func (a Amount) MulDiv64(m, d uint64) (Amount, error) {
	if d == 0 {
		return Amount{}, fmt.Errorf("division by zero")
	}
	if m > d {
		return Amount{}, fmt.Errorf("multiplier %d exceeds divisor %d", m, d)
	}
	q, r := a.QuoRem64(d)
	whole, err := q.Mul64(m)
	if err != nil {
		return Amount{}, err
	}
	// r < d and m <= d, so the high word of r*m stays below d.
	hi, lo := bits.Mul64(r, m)
	frac, _ := bits.Div64(hi, lo, d)
	return whole.Add(NewAmount(frac))
}

func (a Amount) Big() *big.Int {
	b := new(big.Int).SetUint64(a.hi)
	b.Lsh(b, 64)
	return b.Or(b, new(big.Int).SetUint64(a.lo))
}

func AmountFromBig(b *big.Int) (Amount, error) {
	if b.Sign() < 0 {
		return Amount{}, ErrAmountUnderflow
	}
	if b.BitLen() > 128 {
		return Amount{}, ErrAmountOverflow
	}
	lo := new(big.Int).And(b, maxUint64).Uint64()
	hi := new(big.Int).Rsh(b, 64).Uint64()
	return Amount{hi: hi, lo: lo}, nil
}

func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Amount{}, fmt.Errorf("%w: %q", ErrAmountFormat, s)
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return NewAmount(v), nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrAmountFormat, s)
	}
	return AmountFromBig(b)
}

// MustParseAmount panics on malformed input. Intended for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) String() string {
	if a.hi == 0 {
		return strconv.FormatUint(a.lo, 10)
	}
	return a.Big().String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores amounts as decimal text so NUMERIC(39,0) columns hold them exactly.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case []byte:
		parsed, err := ParseAmount(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case string:
		parsed, err := ParseAmount(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case int64:
		if v < 0 {
			return ErrAmountUnderflow
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("Amount: Scan failed, unsupported type %T", src)
	}
}
