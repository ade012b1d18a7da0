package handlers

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"quest-reward-service/models"
	"quest-reward-service/services"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func claimTestApp(t *testing.T) (*fiber.App, *gorm.DB, *models.Quest) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Quest{}, &models.User{}, &models.QuestCompletion{}, &models.Badge{},
		&models.Stake{}, &models.DailyCheckin{}, &models.Notification{}, &models.PendingSettlement{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	quest := &models.Quest{
		ID:             uuid.NewString(),
		OwnerWallet:    "0x00000000000000000000000000000000000000aa",
		Title:          "Swap on the DEX",
		Status:         models.QuestStatusActive,
		BaseReward:     10,
		TotalBudget:    100,
		MaxCompletions: 10,
	}
	if err := db.Create(quest).Error; err != nil {
		t.Fatal(err)
	}

	settlement := services.NewSettlementService(db, services.DefaultPlatformConfig(), nil, services.NewDBNotifier(db))
	app := fiber.New()
	SetupClaimRoutes(app, settlement)
	return app, db, quest
}

func signClaim(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		t.Fatal(err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func postClaim(t *testing.T, app *fiber.App, payload map[string]string) (int, map[string]interface{}) {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/quests/complete", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

func TestClaimEndpointSuccess(t *testing.T) {
	app, db, quest := claimTestApp(t)

	key, _ := crypto.GenerateKey()
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	message := "complete quest " + quest.ID

	status, body := postClaim(t, app, map[string]string{
		"quest_id":    quest.ID,
		"user_wallet": address,
		"signature":   signClaim(t, key, message),
		"message":     message,
	})
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["reward_amount"].(float64) != 10 {
		t.Errorf("reward_amount = %v, want 10", body["reward_amount"])
	}

	var completions int64
	db.Model(&models.QuestCompletion{}).Count(&completions)
	if completions != 1 {
		t.Errorf("completions = %d, want 1", completions)
	}
}

func TestClaimEndpointRejectionStatuses(t *testing.T) {
	app, db, quest := claimTestApp(t)

	key, _ := crypto.GenerateKey()
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	message := "complete quest " + quest.ID
	signature := signClaim(t, key, message)

	valid := func() map[string]string {
		return map[string]string{
			"quest_id":    quest.ID,
			"user_wallet": address,
			"signature":   signature,
			"message":     message,
		}
	}

	t.Run("forged signature", func(t *testing.T) {
		payload := valid()
		payload["message"] = "tampered"
		status, body := postClaim(t, app, payload)
		if status != fiber.StatusUnauthorized {
			t.Errorf("status = %d, want 401 (%v)", status, body)
		}
	})

	t.Run("unknown quest", func(t *testing.T) {
		payload := valid()
		payload["quest_id"] = uuid.NewString()
		status, _ := postClaim(t, app, payload)
		if status != fiber.StatusNotFound {
			t.Errorf("status = %d, want 404", status)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		status, _ := postClaim(t, app, map[string]string{"quest_id": quest.ID})
		if status != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("paused quest", func(t *testing.T) {
		db.Model(quest).Update("status", models.QuestStatusPaused)
		status, body := postClaim(t, app, valid())
		if status != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400 (%v)", status, body)
		}
		if body["reason"] != string(models.RejectQuestInactive) {
			t.Errorf("reason = %v, want %s", body["reason"], models.RejectQuestInactive)
		}
		db.Model(quest).Update("status", models.QuestStatusActive)
	})

	t.Run("duplicate claim conflicts", func(t *testing.T) {
		if status, body := postClaim(t, app, valid()); status != fiber.StatusOK {
			t.Fatalf("setup claim failed: %d %v", status, body)
		}
		status, body := postClaim(t, app, valid())
		if status != fiber.StatusConflict {
			t.Errorf("status = %d, want 409 (%v)", status, body)
		}
	})
}

func TestClaimEndpointKycForbidden(t *testing.T) {
	app, db, quest := claimTestApp(t)
	db.Model(quest).Update("requires_kyc", true)

	key, _ := crypto.GenerateKey()
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	message := "complete quest " + quest.ID

	status, body := postClaim(t, app, map[string]string{
		"quest_id":    quest.ID,
		"user_wallet": address,
		"signature":   signClaim(t, key, message),
		"message":     message,
	})
	if status != fiber.StatusForbidden {
		t.Errorf("status = %d, want 403 (%v)", status, body)
	}
}
