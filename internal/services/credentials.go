package services

import (
	"context"
	"fmt"

	"seller-analytics-service/internal/encryption"
	"seller-analytics-service/internal/models"
	"seller-analytics-service/internal/secrets"
)

// ciphertextField is the single key used when credentials are stored inline
// in encrypted form
const ciphertextField = "ciphertext"

// CredentialSource stores and resolves integration credentials. Preference
// order: GCP Secret Manager when configured, encrypted inline storage when an
// encryptor is set, plain inline storage otherwise.
type CredentialSource struct {
	secretManager *secrets.GCPSecretManager
	encryptor     *encryption.CredentialEncryptor
}

// NewCredentialSource creates a credential source. Both arguments may be nil.
func NewCredentialSource(secretManager *secrets.GCPSecretManager, encryptor *encryption.CredentialEncryptor) *CredentialSource {
	return &CredentialSource{
		secretManager: secretManager,
		encryptor:     encryptor,
	}
}

// Store persists credentials for the integration, updating its
// SecretReference and inline Credentials fields to match the storage used
func (cs *CredentialSource) Store(ctx context.Context, integration *models.Integration, credentials map[string]interface{}) error {
	if cs.secretManager != nil {
		secretName := cs.secretManager.BuildSecretName(integration.UserID, integration.ID.String(), string(integration.MarketplaceType))
		err := cs.secretManager.CreateOrUpdateSecret(ctx, secretName, &secrets.StoredCredentials{
			MarketplaceType: string(integration.MarketplaceType),
			Credentials:     credentials,
		})
		if err != nil {
			return fmt.Errorf("failed to store credentials: %w", err)
		}
		integration.SecretReference = secretName
		integration.Credentials = models.JSONB{}
		return nil
	}

	integration.SecretReference = ""
	if cs.encryptor != nil {
		blob, err := cs.encryptor.Encrypt(credentials)
		if err != nil {
			return fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		integration.Credentials = models.JSONB{ciphertextField: blob}
		return nil
	}

	integration.Credentials = credentials
	return nil
}

// Resolve returns the adapter credentials for an integration
func (cs *CredentialSource) Resolve(ctx context.Context, integration *models.Integration) (map[string]interface{}, error) {
	if cs.secretManager != nil && integration.SecretReference != "" {
		stored, err := cs.secretManager.GetSecret(ctx, integration.SecretReference)
		if err != nil {
			return nil, err
		}
		return stored.Credentials, nil
	}

	if blob, ok := integration.Credentials[ciphertextField].(string); ok {
		if cs.encryptor == nil {
			return nil, fmt.Errorf("credentials are encrypted but no encryption key is configured")
		}
		return cs.encryptor.Decrypt(blob)
	}

	return integration.Credentials, nil
}

// Remove deletes the stored secret, if any. Inline credentials go away with
// the integration row.
func (cs *CredentialSource) Remove(ctx context.Context, integration *models.Integration) error {
	if cs.secretManager != nil && integration.SecretReference != "" {
		return cs.secretManager.DeleteSecret(ctx, integration.SecretReference)
	}
	return nil
}
