package services

import (
	"context"
	"errors"
	"testing"

	"quest-reward-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeSettler scripts the on-chain boundary.
type fakeSettler struct {
	txHash      string
	submitErr   error
	onChainDone bool
	submits     int
}

func (f *fakeSettler) SubmitSettlement(ctx context.Context, contractQuestID int64, userWallet string, actionProof string) (string, error) {
	f.submits++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.txHash, nil
}

func (f *fakeSettler) HasCompleted(ctx context.Context, contractQuestID int64, userWallet string) (bool, error) {
	return f.onChainDone, nil
}

func (f *fakeSettler) CreateQuest(ctx context.Context, title, description string, baseReward, totalBudget float64, maxCompletions int64) (int64, string, error) {
	return 1, f.txHash, nil
}

func newSettlement(db *gorm.DB, settler ChainSettler) *SettlementService {
	return NewSettlementService(db, DefaultPlatformConfig(), settler, NewDBNotifier(db))
}

func claimFor(t *testing.T, questID string) (ClaimRequest, string) {
	t.Helper()
	key, address := newSigner(t)
	message := "complete quest " + questID
	return ClaimRequest{
		QuestID:    questID,
		UserWallet: address,
		Signature:  signMessage(t, key, message),
		Message:    message,
	}, NormalizeWallet(address)
}

func TestCompleteQuestOffChain(t *testing.T) {
	db := newTestDB(t)
	quest := newTestQuest(t, db, nil)
	svc := newSettlement(db, nil)

	req, wallet := claimFor(t, quest.ID)
	result, err := svc.CompleteQuest(context.Background(), req)
	if err != nil {
		t.Fatalf("CompleteQuest failed: %v", err)
	}
	if result.RewardAmount != quest.BaseReward {
		t.Errorf("reward = %v, want base %v for user with no bonuses", result.RewardAmount, quest.BaseReward)
	}
	if result.Completion.TxHash != nil {
		t.Error("off-chain completion must carry no settlement proof")
	}

	var got models.Quest
	db.First(&got, "id = ?", quest.ID)
	if got.BudgetSpent != quest.BaseReward || got.TotalCompletions != 1 {
		t.Errorf("quest counters = %v/%d, want %v/1", got.BudgetSpent, got.TotalCompletions, quest.BaseReward)
	}

	var user models.User
	if err := db.First(&user, "wallet_address = ?", wallet).Error; err != nil {
		t.Fatalf("user row not created: %v", err)
	}
	if user.TotalEarned != quest.BaseReward || user.QuestCompletedCount != 1 {
		t.Errorf("user stats = %v/%d, want %v/1", user.TotalEarned, user.QuestCompletedCount, quest.BaseReward)
	}

	var badges int64
	db.Model(&models.Badge{}).Where("user_wallet = ? AND badge_type = ?", wallet, "first_quest").Count(&badges)
	if badges != 1 {
		t.Errorf("first_quest badges = %d, want 1", badges)
	}

	var notifications int64
	db.Model(&models.Notification{}).Where("user_id = ?", wallet).Count(&notifications)
	if notifications != 1 {
		t.Errorf("notifications = %d, want 1", notifications)
	}
}

func TestCompleteQuestAppliesBonuses(t *testing.T) {
	db := newTestDB(t)
	quest := newTestQuest(t, db, nil) // base 10, kyc 5, staker 2.5
	svc := newSettlement(db, nil)

	req, wallet := claimFor(t, quest.ID)
	if err := db.Create(&models.User{ID: "u1", WalletAddress: wallet, IsKYCVerified: true}).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&models.Stake{ID: "s1", UserWallet: wallet, Amount: 50, IsActive: true}).Error; err != nil {
		t.Fatal(err)
	}

	result, err := svc.CompleteQuest(context.Background(), req)
	if err != nil {
		t.Fatalf("CompleteQuest failed: %v", err)
	}
	if result.RewardAmount != 17.5 {
		t.Errorf("reward = %v, want 17.5 with both bonuses", result.RewardAmount)
	}
}

func TestCompleteQuestInactiveStakeEarnsNoBonus(t *testing.T) {
	db := newTestDB(t)
	quest := newTestQuest(t, db, nil)
	svc := newSettlement(db, nil)

	req, wallet := claimFor(t, quest.ID)
	if err := db.Create(&models.Stake{ID: "s1", UserWallet: wallet, Amount: 50, IsActive: false}).Error; err != nil {
		t.Fatal(err)
	}

	result, err := svc.CompleteQuest(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.RewardAmount != quest.BaseReward {
		t.Errorf("reward = %v, want base only for inactive stake", result.RewardAmount)
	}
}

func TestCompleteQuestBadSignature(t *testing.T) {
	db := newTestDB(t)
	quest := newTestQuest(t, db, nil)
	svc := newSettlement(db, nil)

	req, _ := claimFor(t, quest.ID)
	req.Message = "something else entirely"

	_, err := svc.CompleteQuest(context.Background(), req)
	var claimErr *ClaimError
	if !errors.As(err, &claimErr) || claimErr.Reason != models.RejectAuthenticationFailed {
		t.Fatalf("err = %v, want AuthenticationFailed rejection", err)
	}
}

func TestCompleteQuestDuplicateClaim(t *testing.T) {
	db := newTestDB(t)
	quest := newTestQuest(t, db, nil)
	svc := newSettlement(db, nil)

	req, _ := claimFor(t, quest.ID)
	if _, err := svc.CompleteQuest(context.Background(), req); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	_, err := svc.CompleteQuest(context.Background(), req)
	var claimErr *ClaimError
	if !errors.As(err, &claimErr) || claimErr.Reason != models.RejectAlreadyCompleted {
		t.Fatalf("err = %v, want AlreadyCompleted rejection", err)
	}

	var got models.Quest
	db.First(&got, "id = ?", quest.ID)
	if got.TotalCompletions != 1 {
		t.Errorf("TotalCompletions = %d, want 1 after duplicate rejection", got.TotalCompletions)
	}
}

func TestCompleteQuestContractBackedSettlesFirst(t *testing.T) {
	db := newTestDB(t)
	contractID := int64(7)
	quest := newTestQuest(t, db, func(q *models.Quest) {
		q.ContractQuestID = &contractID
	})
	settler := &fakeSettler{txHash: "0xabc123"}
	svc := newSettlement(db, settler)

	req, _ := claimFor(t, quest.ID)
	result, err := svc.CompleteQuest(context.Background(), req)
	if err != nil {
		t.Fatalf("CompleteQuest failed: %v", err)
	}
	if settler.submits != 1 {
		t.Errorf("submits = %d, want 1", settler.submits)
	}
	if result.Completion.TxHash == nil || *result.Completion.TxHash != "0xabc123" {
		t.Error("contract-backed completion must record the settlement proof")
	}
}

func TestCompleteQuestOnChainFailureLeavesNoTrace(t *testing.T) {
	db := newTestDB(t)
	contractID := int64(7)
	quest := newTestQuest(t, db, func(q *models.Quest) {
		q.ContractQuestID = &contractID
	})
	settler := &fakeSettler{submitErr: errors.New("rpc timeout")}
	svc := newSettlement(db, settler)

	req, _ := claimFor(t, quest.ID)
	_, err := svc.CompleteQuest(context.Background(), req)
	var claimErr *ClaimError
	if !errors.As(err, &claimErr) || claimErr.Reason != models.RejectOnChainSettlement {
		t.Fatalf("err = %v, want OnChainSettlementFailed rejection", err)
	}

	var completions, pendings int64
	db.Model(&models.QuestCompletion{}).Count(&completions)
	db.Model(&models.PendingSettlement{}).Count(&pendings)
	if completions != 0 || pendings != 0 {
		t.Errorf("completions = %d, pendings = %d, want 0/0 after settlement failure", completions, pendings)
	}
	var got models.Quest
	db.First(&got, "id = ?", quest.ID)
	if got.BudgetSpent != 0 {
		t.Errorf("BudgetSpent = %v, want 0", got.BudgetSpent)
	}
}

func TestCompleteQuestContractBackedWithoutSettler(t *testing.T) {
	db := newTestDB(t)
	contractID := int64(7)
	quest := newTestQuest(t, db, func(q *models.Quest) {
		q.ContractQuestID = &contractID
	})
	svc := newSettlement(db, nil)

	req, _ := claimFor(t, quest.ID)
	_, err := svc.CompleteQuest(context.Background(), req)
	var claimErr *ClaimError
	if !errors.As(err, &claimErr) || claimErr.Reason != models.RejectOnChainSettlement {
		t.Fatalf("err = %v, want OnChainSettlementFailed rejection", err)
	}
}

func TestCompleteQuestOnChainDuplicateDefense(t *testing.T) {
	db := newTestDB(t)
	contractID := int64(7)
	quest := newTestQuest(t, db, func(q *models.Quest) {
		q.ContractQuestID = &contractID
	})
	settler := &fakeSettler{txHash: "0xabc", onChainDone: true}
	svc := newSettlement(db, settler)

	req, _ := claimFor(t, quest.ID)
	_, err := svc.CompleteQuest(context.Background(), req)
	var claimErr *ClaimError
	if !errors.As(err, &claimErr) || claimErr.Reason != models.RejectAlreadyCompleted {
		t.Fatalf("err = %v, want AlreadyCompleted from contract-side record", err)
	}
	if settler.submits != 0 {
		t.Error("must not settle a claim the contract already recorded")
	}
}

// A settled claim whose off-chain commit loses the budget race must surface
// the critical recording error and park the proof, never a plain rejection.
func TestCommitClaimAfterSettlementParksOnFailure(t *testing.T) {
	db := newTestDB(t)
	quest := newTestQuest(t, db, func(q *models.Quest) {
		q.BudgetSpent = q.TotalBudget // exhausted by the time we commit
	})
	svc := newSettlement(db, nil)

	proof := "0xsettled"
	_, err := svc.commitClaim(quest, "0x00000000000000000000000000000000000000cc", 10, &proof)

	var recErr *SettlementRecordingError
	if !errors.As(err, &recErr) {
		t.Fatalf("err = %v, want SettlementRecordingError", err)
	}
	if recErr.Proof != proof {
		t.Errorf("Proof = %s, want %s", recErr.Proof, proof)
	}

	var pending models.PendingSettlement
	if err := db.First(&pending, "tx_hash = ?", proof).Error; err != nil {
		t.Fatalf("pending settlement not parked: %v", err)
	}
	if pending.QuestID != quest.ID || pending.RewardAmount != 10 {
		t.Errorf("parked row = %+v, want quest %s / reward 10", pending, quest.ID)
	}
}

func TestRecordSettledClaimReplays(t *testing.T) {
	db := newTestDB(t)
	quest := newTestQuest(t, db, nil)
	svc := newSettlement(db, nil)
	wallet := "0x00000000000000000000000000000000000000cc"

	pending := models.PendingSettlement{
		ID: "p1", TxHash: "0xsettled", QuestID: quest.ID, UserWallet: wallet, RewardAmount: 10,
	}
	if err := db.Create(&pending).Error; err != nil {
		t.Fatal(err)
	}

	if err := svc.RecordSettledClaim(&pending); err != nil {
		t.Fatalf("RecordSettledClaim failed: %v", err)
	}

	var completion models.QuestCompletion
	if err := db.First(&completion, "quest_id = ? AND user_wallet = ?", quest.ID, wallet).Error; err != nil {
		t.Fatalf("completion not recorded: %v", err)
	}
	if completion.TxHash == nil || *completion.TxHash != "0xsettled" {
		t.Error("replayed completion must carry the original proof")
	}

	var remaining int64
	db.Model(&models.PendingSettlement{}).Count(&remaining)
	if remaining != 0 {
		t.Errorf("pending rows = %d, want 0 after replay", remaining)
	}

	var got models.Quest
	db.First(&got, "id = ?", quest.ID)
	if got.BudgetSpent != 10 || got.TotalCompletions != 1 {
		t.Errorf("quest counters = %v/%d, want 10/1", got.BudgetSpent, got.TotalCompletions)
	}
}

// Two overlapping replays of the same parked settlement: the one that loses
// the completion insert must not credit the user a second time.
func TestRecordSettledClaimLosingReplaySkipsSideEffects(t *testing.T) {
	db := newTestDB(t)
	quest := newTestQuest(t, db, nil)
	svc := newSettlement(db, nil)
	wallet := "0x00000000000000000000000000000000000000cc"

	pending := models.PendingSettlement{
		ID: "p1", TxHash: "0xsettled", QuestID: quest.ID, UserWallet: wallet, RewardAmount: 10,
	}
	if err := db.Create(&pending).Error; err != nil {
		t.Fatal(err)
	}

	// Slip the winning replay's row in between this replay's existence check
	// and its insert, so the insert loses on the (quest, user) unique index.
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("race_completion", func(tx *gorm.DB) {
		if injected || tx.Statement.Table != "quest_completions" {
			return
		}
		injected = true
		tx.Exec(
			"INSERT INTO quest_completions (id, quest_id, user_wallet, reward_amount, tx_hash) VALUES (?, ?, ?, ?, ?)",
			uuid.NewString(), quest.ID, wallet, 10.0, "0xsettled",
		)
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.RecordSettledClaim(&pending); err != nil {
		t.Fatalf("losing replay must still resolve cleanly: %v", err)
	}
	if !injected {
		t.Fatal("racing row was never injected")
	}

	// The loser recorded nothing, so the user gets nothing from it.
	var user models.User
	err = db.First(&user, "wallet_address = ?", wallet).Error
	if err == nil && (user.TotalEarned != 0 || user.QuestCompletedCount != 0) {
		t.Errorf("losing replay credited user: earned %v, count %d, want 0/0", user.TotalEarned, user.QuestCompletedCount)
	}

	var remaining int64
	db.Model(&models.PendingSettlement{}).Count(&remaining)
	if remaining != 0 {
		t.Errorf("pending rows = %d, want 0 (parked row cleared either way)", remaining)
	}
}

func TestRecordSettledClaimIdempotent(t *testing.T) {
	db := newTestDB(t)
	quest := newTestQuest(t, db, nil)
	svc := newSettlement(db, nil)
	wallet := "0x00000000000000000000000000000000000000cc"

	pending := models.PendingSettlement{
		ID: "p1", TxHash: "0xsettled", QuestID: quest.ID, UserWallet: wallet, RewardAmount: 10,
	}
	if err := db.Create(&pending).Error; err != nil {
		t.Fatal(err)
	}

	if err := svc.RecordSettledClaim(&pending); err != nil {
		t.Fatal(err)
	}
	// Second replay of the same proof must change nothing.
	if err := svc.RecordSettledClaim(&pending); err != nil {
		t.Fatalf("second replay failed: %v", err)
	}

	var completions int64
	db.Model(&models.QuestCompletion{}).Where("quest_id = ?", quest.ID).Count(&completions)
	if completions != 1 {
		t.Errorf("completions = %d, want 1", completions)
	}
	var got models.Quest
	db.First(&got, "id = ?", quest.ID)
	if got.BudgetSpent != 10 {
		t.Errorf("BudgetSpent = %v, want 10 (no double spend on replay)", got.BudgetSpent)
	}
}
