package services

import (
	"errors"
	"fmt"

	"quest-reward-service/models"
)

// ErrAuthenticationFailed is deliberately uniform: it does not reveal whether
// the wallet, quest, or signature was the problem, nor whether the address is
// known to the system.
var ErrAuthenticationFailed = errors.New("signature verification failed")

// ClaimError is a recoverable rejection carrying exactly one reason.
// The engine never retries these; they go straight back to the caller.
type ClaimError struct {
	Reason models.RejectReason
	Detail string
}

func (e *ClaimError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func rejection(reason models.RejectReason, detail string) *ClaimError {
	return &ClaimError{Reason: reason, Detail: detail}
}

// SettlementRecordingError is the critical dual-write inconsistency: the
// on-chain settlement succeeded but the off-chain commit did not. It carries
// the settlement proof, which doubles as the idempotency key for the
// reconciliation path. It is never folded into an ordinary rejection.
type SettlementRecordingError struct {
	Proof      string // settlement transaction hash
	QuestID    string
	UserWallet string
	Err        error
}

func (e *SettlementRecordingError) Error() string {
	return fmt.Sprintf("settlement %s recorded on-chain but off-chain commit failed: %v", e.Proof, e.Err)
}

func (e *SettlementRecordingError) Unwrap() error { return e.Err }
