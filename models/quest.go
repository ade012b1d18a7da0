package models

// QuestStatus indicates the lifecycle state of a quest
type QuestStatus string

const (
	QuestStatusActive    QuestStatus = "Active"
	QuestStatusPaused    QuestStatus = "Paused"
	QuestStatusCompleted QuestStatus = "Completed"
)

// Quest is a funded, budgeted task with a per-completion reward.
// budget_spent and total_completions are mutated ONLY through the budget
// ledger's conditional update; everything else is owner/admin territory.
type Quest struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	OwnerWallet string `gorm:"index;not null" json:"owner_wallet"` // lowercased 0x address
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"type:text" json:"image_url"`
	Category    string `gorm:"type:varchar(32)" json:"category"`   // DeFi, NFT, Gaming, Social, Infrastructure
	Difficulty  string `gorm:"type:varchar(16)" json:"difficulty"` // Easy, Medium, Hard

	Status QuestStatus `gorm:"type:varchar(16);not null;default:'Active';index" json:"status"`

	// Reward configuration (MON, 2 decimal places)
	BaseReward  float64 `gorm:"not null" json:"base_reward"`
	KycBonus    float64 `gorm:"default:0" json:"kyc_bonus"`
	StakerBonus float64 `gorm:"default:0" json:"staker_bonus"`

	// Budget accounting. Invariant: budget_spent <= total_budget and
	// total_completions <= max_completions, even under concurrent claims.
	TotalBudget      float64 `gorm:"not null" json:"total_budget"`
	BudgetSpent      float64 `gorm:"default:0" json:"budget_spent"`
	MaxCompletions   int64   `gorm:"not null" json:"max_completions"`
	TotalCompletions int64   `gorm:"default:0" json:"total_completions"`

	RequiresKYC     bool `gorm:"default:false" json:"requires_kyc"`
	RequiresStaking bool `gorm:"default:false" json:"requires_staking"`

	// Settlement reference on the distributed ledger.
	// nil = off-chain-only quest; the DB commit is directly authoritative.
	ContractQuestID *int64  `json:"contract_quest_id,omitempty"`
	TxHash          *string `json:"tx_hash,omitempty"` // creation deposit transaction

	Timestamps
}

// ContractBacked reports whether completions of this quest must settle on-chain
// before being recorded.
func (q *Quest) ContractBacked() bool {
	return q.ContractQuestID != nil
}
