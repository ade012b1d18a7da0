package models

// RejectReason is the single, precise reason a claim was turned down.
// A rejection carries exactly one of these, determined in a fixed order.
type RejectReason string

const (
	RejectAuthenticationFailed RejectReason = "AuthenticationFailed"
	RejectNotFound             RejectReason = "NotFound"
	RejectQuestInactive        RejectReason = "QuestInactive"
	RejectAlreadyCompleted     RejectReason = "AlreadyCompleted"
	RejectBudgetExhausted      RejectReason = "BudgetExhausted"
	RejectCapacityExhausted    RejectReason = "CapacityExhausted"
	RejectKycRequired          RejectReason = "KycRequired"
	RejectOnChainSettlement    RejectReason = "OnChainSettlementFailed"

	// RejectPostSettlementRecording is the critical inconsistency: value has
	// moved on-chain but the system of record has not caught up. It must never
	// be mistaken for "nothing happened".
	RejectPostSettlementRecording RejectReason = "PostSettlementRecordingFailure"
)
