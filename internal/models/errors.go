package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrorKind names a settlement precondition. Callers branch on it.
type ErrorKind string

const (
	KindZeroAddress           ErrorKind = "ZeroAddress"
	KindInvalidAmount         ErrorKind = "InvalidAmount"
	KindInvalidPolicy         ErrorKind = "InvalidPolicy"
	KindNotOwner              ErrorKind = "NotOwner"
	KindNotProvider           ErrorKind = "NotProvider"
	KindNotBeneficiary        ErrorKind = "NotBeneficiary"
	KindPolicyActive          ErrorKind = "PolicyActive"
	KindPolicyInactive        ErrorKind = "PolicyInactive"
	KindAlreadyClaimed        ErrorKind = "AlreadyClaimed"
	KindInsufficientLiquidity ErrorKind = "InsufficientLiquidity"
	KindBadTimeWindow         ErrorKind = "BadTimeWindow"
	KindPaused                ErrorKind = "Paused"
	KindReentrancy            ErrorKind = "Reentrancy"
)

// Code renders the kind as an UPPER_SNAKE response code.
func (k ErrorKind) Code() string {
	var b strings.Builder
	for i, r := range string(k) {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

type SettlementError struct {
	Kind   ErrorKind
	Detail string
}

func (e *SettlementError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is matches any SettlementError of the same kind, so errors.Is works against
// the sentinels below regardless of detail.
func (e *SettlementError) Is(target error) bool {
	var other *SettlementError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrZeroAddress           = &SettlementError{Kind: KindZeroAddress}
	ErrInvalidAmount         = &SettlementError{Kind: KindInvalidAmount}
	ErrInvalidPolicy         = &SettlementError{Kind: KindInvalidPolicy}
	ErrNotOwner              = &SettlementError{Kind: KindNotOwner}
	ErrNotProvider           = &SettlementError{Kind: KindNotProvider}
	ErrNotBeneficiary        = &SettlementError{Kind: KindNotBeneficiary}
	ErrPolicyActive          = &SettlementError{Kind: KindPolicyActive}
	ErrPolicyInactive        = &SettlementError{Kind: KindPolicyInactive}
	ErrAlreadyClaimed        = &SettlementError{Kind: KindAlreadyClaimed}
	ErrInsufficientLiquidity = &SettlementError{Kind: KindInsufficientLiquidity}
	ErrBadTimeWindow         = &SettlementError{Kind: KindBadTimeWindow}
	ErrPaused                = &SettlementError{Kind: KindPaused}
	ErrReentrancy            = &SettlementError{Kind: KindReentrancy}
)

func NewSettlementError(kind ErrorKind, format string, args ...any) error {
	return &SettlementError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the settlement kind from err, if it carries one.
func KindOf(err error) (ErrorKind, bool) {
	var se *SettlementError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}
