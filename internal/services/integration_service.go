package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"seller-analytics-service/internal/models"
	"seller-analytics-service/internal/repository"
)

// ErrNotOwned is returned when a user addresses another user's integration
var ErrNotOwned = errors.New("integration does not belong to user")

// CreateIntegrationRequest contains the data for registering an integration
type CreateIntegrationRequest struct {
	MarketplaceType models.MarketplaceType `json:"marketplaceType" binding:"required"`
	DisplayName     string                 `json:"displayName" binding:"required"`
	Credentials     map[string]interface{} `json:"credentials" binding:"required"`
	NotifyChatID    string                 `json:"notifyChatId"`
}

// UpdateIntegrationRequest contains the mutable integration fields. Nil
// fields are left unchanged.
type UpdateIntegrationRequest struct {
	DisplayName  *string                   `json:"displayName"`
	Status       *models.IntegrationStatus `json:"status"`
	Credentials  map[string]interface{}    `json:"credentials"`
	NotifyChatID *string                   `json:"notifyChatId"`
}

// IntegrationService manages integration lifecycle: registration, credential
// storage, connection testing and removal
type IntegrationService struct {
	integrationRepo repository.IntegrationRepositoryInterface
	credentials     *CredentialSource
	logger          *zap.Logger
}

// NewIntegrationService creates a new integration service
func NewIntegrationService(
	integrationRepo repository.IntegrationRepositoryInterface,
	credentials *CredentialSource,
	logger *zap.Logger,
) *IntegrationService {
	return &IntegrationService{
		integrationRepo: integrationRepo,
		credentials:     credentials,
		logger:          logger.Named("integrations"),
	}
}

// Create registers a new integration. The marketplace type and credential
// shape are validated by constructing the adapter; a live connection test
// then decides whether the integration starts out ACTIVE or stays PENDING.
func (s *IntegrationService) Create(ctx context.Context, userID string, req *CreateIntegrationRequest) (*models.Integration, error) {
	adapter, err := NewAdapter(req.MarketplaceType, req.Credentials)
	if err != nil {
		return nil, err
	}

	integration := &models.Integration{
		ID:              uuid.New(),
		UserID:          userID,
		MarketplaceType: req.MarketplaceType,
		DisplayName:     req.DisplayName,
		Status:          models.IntegrationPending,
		NotifyChatID:    req.NotifyChatID,
	}
	if adapter.ValidateToken(ctx) {
		integration.Status = models.IntegrationActive
	}

	if err := s.credentials.Store(ctx, integration, req.Credentials); err != nil {
		return nil, err
	}

	if err := s.integrationRepo.Create(ctx, integration); err != nil {
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}

	s.logger.Info("integration created",
		zap.String("integration_id", integration.ID.String()),
		zap.String("user_id", userID),
		zap.String("marketplace", string(req.MarketplaceType)),
		zap.String("status", string(integration.Status)))
	return integration, nil
}

// Get retrieves one integration, enforcing ownership
func (s *IntegrationService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Integration, error) {
	integration, err := s.integrationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if integration.UserID != userID {
		return nil, ErrNotOwned
	}
	return integration, nil
}

// List retrieves a user's integrations
func (s *IntegrationService) List(ctx context.Context, userID string) ([]models.Integration, error) {
	return s.integrationRepo.GetByUser(ctx, userID)
}

// Update applies the given changes to an owned integration. Replacing
// credentials re-runs the connection test and resets the status accordingly.
func (s *IntegrationService) Update(ctx context.Context, userID string, id uuid.UUID, req *UpdateIntegrationRequest) (*models.Integration, error) {
	integration, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		integration.DisplayName = *req.DisplayName
	}
	if req.NotifyChatID != nil {
		integration.NotifyChatID = *req.NotifyChatID
	}
	if req.Status != nil {
		integration.Status = *req.Status
	}

	if req.Credentials != nil {
		adapter, err := NewAdapter(integration.MarketplaceType, req.Credentials)
		if err != nil {
			return nil, err
		}
		if adapter.ValidateToken(ctx) {
			integration.Status = models.IntegrationActive
		} else {
			integration.Status = models.IntegrationPending
		}
		if err := s.credentials.Store(ctx, integration, req.Credentials); err != nil {
			return nil, err
		}
	}

	if err := s.integrationRepo.Update(ctx, integration); err != nil {
		return nil, fmt.Errorf("failed to update integration: %w", err)
	}
	return integration, nil
}

// Delete removes an owned integration and its stored secret
func (s *IntegrationService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	integration, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.credentials.Remove(ctx, integration); err != nil {
		s.logger.Warn("failed to delete stored secret",
			zap.String("integration_id", id.String()),
			zap.Error(err))
	}

	return s.integrationRepo.Delete(ctx, id)
}

// TestConnection runs a live credential check against the marketplace and
// updates the integration status to match the outcome
func (s *IntegrationService) TestConnection(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	integration, err := s.Get(ctx, userID, id)
	if err != nil {
		return false, err
	}

	credentials, err := s.credentials.Resolve(ctx, integration)
	if err != nil {
		return false, err
	}
	adapter, err := NewAdapter(integration.MarketplaceType, credentials)
	if err != nil {
		return false, err
	}

	ok := adapter.ValidateToken(ctx)
	switch {
	case ok && integration.Status != models.IntegrationActive:
		integration.Status = models.IntegrationActive
	case !ok && integration.Status == models.IntegrationActive:
		integration.Status = models.IntegrationError
	default:
		return ok, nil
	}
	if err := s.integrationRepo.Update(ctx, integration); err != nil {
		return ok, fmt.Errorf("failed to update integration status: %w", err)
	}
	return ok, nil
}

// IsNotFound reports whether err means the integration does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
