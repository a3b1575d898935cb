package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"seller-analytics-service/internal/models"
)

// ProductRepositoryInterface defines the product persistence operations
// consumed by services
type ProductRepositoryInterface interface {
	Upsert(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByIntegration(ctx context.Context, integrationID uuid.UUID) ([]models.Product, error)
	GetByUser(ctx context.Context, userID string, marketplace *models.MarketplaceType) ([]models.Product, error)
	MapSKUs(ctx context.Context, integrationID uuid.UUID) (map[string]uuid.UUID, error)
	LastSaleDates(ctx context.Context, userID string, marketplace *models.MarketplaceType) (map[uuid.UUID]time.Time, error)
	LastSaleDatesByIntegration(ctx context.Context, integrationID uuid.UUID) (map[uuid.UUID]time.Time, error)
}

// ProductRepository handles database operations for products
type ProductRepository struct {
	db *gorm.DB
}

var _ ProductRepositoryInterface = (*ProductRepository)(nil)

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Upsert creates a product or, when (integration_id, sku) already exists,
// updates the mutable catalog fields in place. Identity (id, created_at) is
// preserved so re-syncs never duplicate rows.
func (r *ProductRepository) Upsert(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "integration_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "category", "cost_price", "price", "stock",
				"weight", "length", "width", "height", "updated_at",
			}),
		}).
		Create(product).Error
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetByIntegration retrieves all products of one integration
func (r *ProductRepository) GetByIntegration(ctx context.Context, integrationID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Find(&products).Error
	return products, err
}

// GetByUser retrieves all products across a user's integrations, optionally
// narrowed to one marketplace
func (r *ProductRepository) GetByUser(ctx context.Context, userID string, marketplace *models.MarketplaceType) ([]models.Product, error) {
	var products []models.Product
	err := scopeToUser(r.db.WithContext(ctx), userID, marketplace).
		Find(&products).Error
	return products, err
}

// MapSKUs returns the sku → product id mapping for one integration
func (r *ProductRepository) MapSKUs(ctx context.Context, integrationID uuid.UUID) (map[string]uuid.UUID, error) {
	var rows []struct {
		ID  uuid.UUID
		SKU string
	}
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("id", "sku").
		Where("integration_id = ?", integrationID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	m := make(map[string]uuid.UUID, len(rows))
	for _, row := range rows {
		m[row.SKU] = row.ID
	}
	return m, nil
}

// LastSaleDates returns, per product of the user, the date of the most recent
// sale ever recorded. Products with no sales are absent from the map.
func (r *ProductRepository) LastSaleDates(ctx context.Context, userID string, marketplace *models.MarketplaceType) (map[uuid.UUID]time.Time, error) {
	var rows []struct {
		ProductID uuid.UUID
		LastSale  time.Time
	}
	err := scopeToUser(r.db.WithContext(ctx).Model(&models.Sale{}), userID, marketplace).
		Select("product_id", "MAX(date) AS last_sale").
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	m := make(map[uuid.UUID]time.Time, len(rows))
	for _, row := range rows {
		m[row.ProductID] = row.LastSale
	}
	return m, nil
}

// LastSaleDatesByIntegration returns, per product of one integration, the date
// of the most recent sale ever recorded
func (r *ProductRepository) LastSaleDatesByIntegration(ctx context.Context, integrationID uuid.UUID) (map[uuid.UUID]time.Time, error) {
	var rows []struct {
		ProductID uuid.UUID
		LastSale  time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("product_id", "MAX(date) AS last_sale").
		Where("integration_id = ?", integrationID).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	m := make(map[uuid.UUID]time.Time, len(rows))
	for _, row := range rows {
		m[row.ProductID] = row.LastSale
	}
	return m, nil
}
