// workers/reward_notifier.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"invest-engine/models"
	"invest-engine/utils"

	"gorm.io/gorm"
)

// NotifyClient delivers queued reward notifications to the messaging
// collaborator. Delivery is fire-and-forget: a failed POST leaves the row
// undelivered for the next pass and never touches the ledger.
type NotifyClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewNotifyClient(db *gorm.DB) *NotifyClient {
	baseURL := os.Getenv("NOTIFY_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("NOTIFY_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("CORE_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("CORE_SERVICE_TOKEN environment variable is required for notification delivery")
	}

	return &NotifyClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

func (c *NotifyClient) deliver(ctx context.Context, n *models.RewardNotification) error {
	payload, err := json.Marshal(noticePayload(n))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/v1/notify/reward", c.BaseURL), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call notify service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify service returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func noticePayload(n *models.RewardNotification) map[string]interface{} {
	return map[string]interface{}{
		"referrer_external_id": n.ReferrerExternalID,
		"amount":               n.Amount.String(),
		"level":                n.Level,
		"source_username":      n.SourceUsername,
		"source_external_id":   n.SourceExternalID,
		"reward_type":          n.RewardType,
	}
}

// PollNotifications drains undelivered reward notifications on an interval.
func PollNotifications(ctx context.Context, client *NotifyClient, pollInterval time.Duration) {
	log.Println("Starting reward notification polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reward notification polling stopped.")
			return
		case <-ticker.C:
			var pending []models.RewardNotification
			err := client.DB.Where("delivered = ?", false).
				Order("created_at ASC").
				Limit(100).
				Find(&pending).Error
			if err != nil {
				log.Printf("❌ Error fetching pending notifications: %v", err)
				continue
			}
			if len(pending) == 0 {
				continue
			}

			delivered := 0
			for i := range pending {
				if err := client.deliver(ctx, &pending[i]); err != nil {
					log.Printf("❌ Failed to deliver notification %s: %v", pending[i].ID, err)
					continue
				}
				now := time.Now().UTC()
				if err := client.DB.Model(&models.RewardNotification{}).
					Where("id = ?", pending[i].ID).
					Updates(map[string]interface{}{"delivered": true, "delivered_at": now}).Error; err != nil {
					log.Printf("❌ Failed to mark notification %s delivered: %v", pending[i].ID, err)
					continue
				}
				delivered++
			}
			log.Printf("📤 Delivered %d/%d reward notification(s)", delivered, len(pending))
		}
	}
}
