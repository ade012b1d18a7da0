package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"

	"quest-reward-service/models"
	"quest-reward-service/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestCompletedEvent is the outbound event emitted after a successful claim.
type QuestCompletedEvent struct {
	UserWallet   string  `json:"user"`
	QuestID      string  `json:"quest"`
	QuestTitle   string  `json:"quest_title"`
	RewardAmount float64 `json:"reward_amount"`
}

// Notifier is the notification sink boundary. Delivery beyond the outbox row
// is someone else's job; failures here never fail a claim.
type Notifier interface {
	NotifyQuestCompleted(event QuestCompletedEvent) error
}

// DBNotifier writes notifications into the outbox table.
type DBNotifier struct {
	DB *gorm.DB
}

func NewDBNotifier(db *gorm.DB) *DBNotifier {
	return &DBNotifier{DB: db}
}

func (n *DBNotifier) NotifyQuestCompleted(event QuestCompletedEvent) error {
	metadata, _ := json.Marshal(map[string]interface{}{
		"quest_id":      event.QuestID,
		"quest_title":   event.QuestTitle,
		"reward_amount": event.RewardAmount,
	})

	notification := models.Notification{
		ID:       uuid.NewString(),
		UserID:   event.UserWallet,
		Type:     models.NotificationQuestCompleted,
		Title:    "Quest Completed! 🎉",
		Message:  fmt.Sprintf("You earned %g MON from %q", event.RewardAmount, event.QuestTitle),
		Metadata: string(metadata),
	}
	if err := n.DB.Create(&notification).Error; err != nil {
		log.Printf("❌ Failed to write quest_completed notification for %s: %v", event.UserWallet, err)
		return err
	}
	return nil
}

// WebhookNotifier posts the completion event to an external endpoint in
// addition to writing the outbox row. Used when NOTIFY_WEBHOOK_URL is set.
type WebhookNotifier struct {
	Inner      Notifier
	WebhookURL string
}

func NewWebhookNotifier(inner Notifier, webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{Inner: inner, WebhookURL: webhookURL}
}

func (n *WebhookNotifier) NotifyQuestCompleted(event QuestCompletedEvent) error {
	if err := n.Inner.NotifyQuestCompleted(event); err != nil {
		return err
	}

	payload, _ := json.Marshal(event)
	resp, err := utils.HTTPClient.Post(n.WebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("⚠️ Notification webhook unreachable: %v", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("⚠️ Notification webhook returned %d", resp.StatusCode)
	}
	return nil
}
