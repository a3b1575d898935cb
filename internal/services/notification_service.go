package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"seller-analytics-service/internal/adapters"
	"seller-analytics-service/internal/models"
	"seller-analytics-service/internal/repository"
)

const telegramAPIBase = "https://api.telegram.org"

// notifyBatchSize caps how many alerts one dispatch pass delivers
const notifyBatchSize = 100

// NotificationService forwards undelivered alerts to each integration's
// Telegram chat. Delivery failures leave the alert untouched so the next pass
// retries it; an alert row is never removed because a message could not be
// sent.
type NotificationService struct {
	alertRepo       repository.AlertRepositoryInterface
	integrationRepo repository.IntegrationRepositoryInterface
	botToken        string
	httpClient      *http.Client
	retrier         *adapters.Retrier
	logger          *zap.Logger
}

// NewNotificationService creates a new notification service. An empty
// botToken disables delivery entirely.
func NewNotificationService(
	alertRepo repository.AlertRepositoryInterface,
	integrationRepo repository.IntegrationRepositoryInterface,
	botToken string,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		alertRepo:       alertRepo,
		integrationRepo: integrationRepo,
		botToken:        botToken,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		retrier:         adapters.NewRetrier(adapters.DefaultRetryConfig()),
		logger:          logger.Named("notify"),
	}
}

// DispatchPending delivers undelivered alerts and stamps the ones that went
// out. Returns the number delivered.
func (s *NotificationService) DispatchPending(ctx context.Context) (int, error) {
	if s.botToken == "" {
		return 0, nil
	}

	alerts, err := s.alertRepo.ListUnnotified(ctx, notifyBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unnotified alerts: %w", err)
	}

	chatIDs := make(map[uuid.UUID]string)
	delivered := 0
	for _, alert := range alerts {
		chatID, ok := chatIDs[alert.IntegrationID]
		if !ok {
			integration, err := s.integrationRepo.GetByID(ctx, alert.IntegrationID)
			if err != nil {
				s.logger.Warn("skipping alert for unknown integration",
					zap.String("alert_id", alert.ID.String()),
					zap.String("integration_id", alert.IntegrationID.String()))
				continue
			}
			chatID = integration.NotifyChatID
			chatIDs[alert.IntegrationID] = chatID
		}
		if chatID == "" {
			continue
		}

		if err := s.sendMessage(ctx, chatID, formatAlertMessage(&alert)); err != nil {
			s.logger.Warn("alert delivery failed",
				zap.String("alert_id", alert.ID.String()),
				zap.Error(err))
			continue
		}

		if err := s.alertRepo.MarkNotified(ctx, alert.ID, time.Now().UTC()); err != nil {
			s.logger.Error("failed to mark alert notified",
				zap.String("alert_id", alert.ID.String()),
				zap.Error(err))
			continue
		}
		delivered++
	}

	return delivered, nil
}

// sendMessage posts one message to the Telegram Bot API
func (s *NotificationService) sendMessage(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, s.botToken)
	resp, err := s.retrier.DoHTTP(ctx, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return s.httpClient.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}
	return nil
}

// formatAlertMessage renders one alert as a human-readable notification
func formatAlertMessage(alert *models.Alert) string {
	icon := map[models.AlertSeverity]string{
		models.SeverityLow:      "ℹ️",
		models.SeverityMedium:   "⚠️",
		models.SeverityHigh:     "🔴",
		models.SeverityCritical: "🚨",
	}[alert.Severity]

	return fmt.Sprintf("%s [%s] %s\n%s", icon, alert.Severity, alert.Type, alert.Message)
}
