package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"seller-analytics-service/internal/encryption"
	"seller-analytics-service/internal/models"
)

func TestCredentialSourcePlainInline(t *testing.T) {
	ctx := context.Background()
	cs := NewCredentialSource(nil, nil)
	integration := &models.Integration{ID: uuid.New(), UserID: "user-1", MarketplaceType: models.MarketplaceWildberries}
	credentials := map[string]interface{}{"api_key": "key", "seller_id": "seller-1"}

	assert.NoError(t, cs.Store(ctx, integration, credentials))
	assert.Empty(t, integration.SecretReference)
	assert.Equal(t, "key", integration.Credentials["api_key"])

	resolved, err := cs.Resolve(ctx, integration)
	assert.NoError(t, err)
	assert.Equal(t, "seller-1", resolved["seller_id"])
}

func TestCredentialSourceEncryptedInline(t *testing.T) {
	ctx := context.Background()
	encryptor, err := encryption.New("test-passphrase")
	assert.NoError(t, err)
	cs := NewCredentialSource(nil, encryptor)

	integration := &models.Integration{ID: uuid.New(), UserID: "user-1", MarketplaceType: models.MarketplaceOzon}
	credentials := map[string]interface{}{"client_id": "client-1", "api_key": "secret"}

	assert.NoError(t, cs.Store(ctx, integration, credentials))
	blob, ok := integration.Credentials[ciphertextField].(string)
	assert.True(t, ok)
	assert.NotContains(t, blob, "secret")
	assert.Len(t, integration.Credentials, 1)

	resolved, err := cs.Resolve(ctx, integration)
	assert.NoError(t, err)
	assert.Equal(t, "secret", resolved["api_key"])
}

func TestCredentialSourceEncryptedWithoutKey(t *testing.T) {
	ctx := context.Background()
	encryptor, err := encryption.New("test-passphrase")
	assert.NoError(t, err)

	integration := &models.Integration{ID: uuid.New(), UserID: "user-1", MarketplaceType: models.MarketplaceOzon}
	writeSide := NewCredentialSource(nil, encryptor)
	assert.NoError(t, writeSide.Store(ctx, integration, map[string]interface{}{"api_key": "secret"}))

	readSide := NewCredentialSource(nil, nil)
	_, err = readSide.Resolve(ctx, integration)
	assert.Error(t, err)
}
