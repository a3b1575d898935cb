package services

import (
	"fmt"

	"github.com/google/uuid"
)

// SyncError wraps any failure during one integration's sync pass. It is
// reported at the orchestrator boundary and never aborts other integrations.
type SyncError struct {
	IntegrationID uuid.UUID
	Err           error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed for integration %s: %v", e.IntegrationID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// MissingIntegrationError is returned when a sync is requested for a
// nonexistent integration
type MissingIntegrationError struct {
	IntegrationID uuid.UUID
}

func (e *MissingIntegrationError) Error() string {
	return fmt.Sprintf("integration not found: %s", e.IntegrationID)
}
