package models

import (
	"fmt"
	"strings"
)

type FeeMode string

const (
	FeeModeStandard  FeeMode = "standard"
	FeeModeExecution FeeMode = "execution"
)

// ParseFeeMode accepts the names above and the numeric codes 0 (standard)
// and 1 (execution).
func ParseFeeMode(s string) (FeeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", string(FeeModeStandard):
		return FeeModeStandard, nil
	case "1", string(FeeModeExecution):
		return FeeModeExecution, nil
	}
	return "", fmt.Errorf("unknown fee mode %q", s)
}

func (m FeeMode) Valid() bool {
	return m == FeeModeStandard || m == FeeModeExecution
}

type EventKind string

const (
	EventPolicyCreated      EventKind = "PolicyCreated"
	EventPolicyFunded       EventKind = "PolicyFunded"
	EventPremiumPaid        EventKind = "PremiumPaid"
	EventClaimPaid          EventKind = "ClaimPaid"
	EventLiquidityWithdrawn EventKind = "LiquidityWithdrawn"
	EventPolicyStatus       EventKind = "PolicyStatus"
	EventFeesUpdated        EventKind = "FeesUpdated"
	EventFeeWalletUpdated   EventKind = "FeeWalletUpdated"
	EventPausedSet          EventKind = "PausedSet"
)

// MaxBps is 100% in basis points.
const MaxBps uint16 = 10000
