package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"shelflife-service/internal/clients"
	"shelflife-service/internal/models"
	"shelflife-service/internal/repository"
)

// MockShelfLifeRepository is a mock implementation of ShelfLifeRepository
type MockShelfLifeRepository struct {
	mock.Mock
}

var _ repository.ShelfLifeRepository = (*MockShelfLifeRepository)(nil)

func (m *MockShelfLifeRepository) Upsert(ctx context.Context, item *models.ShelfLifeItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockShelfLifeRepository) GetByID(ctx context.Context, shop string, id uuid.UUID) (*models.ShelfLifeItem, error) {
	args := m.Called(ctx, shop, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShelfLifeItem), args.Error(1)
}

func (m *MockShelfLifeRepository) GetByVariantID(ctx context.Context, shop, variantID string) (*models.ShelfLifeItem, error) {
	args := m.Called(ctx, shop, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShelfLifeItem), args.Error(1)
}

func (m *MockShelfLifeRepository) List(ctx context.Context, shop string, filter repository.ShelfLifeFilter, opts repository.ListOptions) ([]models.ShelfLifeItem, int64, error) {
	args := m.Called(ctx, shop, filter, opts)
	return args.Get(0).([]models.ShelfLifeItem), args.Get(1).(int64), args.Error(2)
}

func (m *MockShelfLifeRepository) ListPending(ctx context.Context, shop string) ([]models.ShelfLifeItem, error) {
	args := m.Called(ctx, shop)
	return args.Get(0).([]models.ShelfLifeItem), args.Error(1)
}

func (m *MockShelfLifeRepository) ListMatchedExpiringBy(ctx context.Context, shop string, before time.Time) ([]models.ShelfLifeItem, error) {
	args := m.Called(ctx, shop, before)
	return args.Get(0).([]models.ShelfLifeItem), args.Error(1)
}

func (m *MockShelfLifeRepository) Update(ctx context.Context, item *models.ShelfLifeItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockShelfLifeRepository) UpdateWithVersion(ctx context.Context, item *models.ShelfLifeItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockShelfLifeRepository) Delete(ctx context.Context, shop string, id uuid.UUID) error {
	args := m.Called(ctx, shop, id)
	return args.Error(0)
}

func (m *MockShelfLifeRepository) DeleteBulk(ctx context.Context, shop string, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, shop, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockShelfLifeRepository) DeleteAll(ctx context.Context, shop string) (int64, error) {
	args := m.Called(ctx, shop)
	return args.Get(0).(int64), args.Error(1)
}

// MockPriceChangeRepository is a mock implementation of PriceChangeRepository
type MockPriceChangeRepository struct {
	mock.Mock
}

var _ repository.PriceChangeRepository = (*MockPriceChangeRepository)(nil)

func (m *MockPriceChangeRepository) Create(ctx context.Context, change *models.ShelfLifeItemPriceChange) error {
	args := m.Called(ctx, change)
	if args.Error(0) == nil && change.ID == uuid.Nil {
		change.ID = uuid.New()
		change.AppliedAt = time.Now().UTC()
	}
	return args.Error(0)
}

func (m *MockPriceChangeRepository) List(ctx context.Context, shop string, filter repository.PriceChangeFilter, opts repository.ListOptions) ([]models.ShelfLifeItemPriceChange, int64, error) {
	args := m.Called(ctx, shop, filter, opts)
	return args.Get(0).([]models.ShelfLifeItemPriceChange), args.Get(1).(int64), args.Error(2)
}

func (m *MockPriceChangeRepository) ListForItem(ctx context.Context, shop string, itemID uuid.UUID) ([]models.ShelfLifeItemPriceChange, error) {
	args := m.Called(ctx, shop, itemID)
	return args.Get(0).([]models.ShelfLifeItemPriceChange), args.Error(1)
}

func (m *MockPriceChangeRepository) LatestForItem(ctx context.Context, shop string, itemID uuid.UUID) (*models.ShelfLifeItemPriceChange, error) {
	args := m.Called(ctx, shop, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShelfLifeItemPriceChange), args.Error(1)
}

func (m *MockPriceChangeRepository) LatestForVariant(ctx context.Context, shop, variantID string) (*models.ShelfLifeItemPriceChange, error) {
	args := m.Called(ctx, shop, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShelfLifeItemPriceChange), args.Error(1)
}

func (m *MockPriceChangeRepository) ListActiveAutomatic(ctx context.Context, shop string) ([]models.ShelfLifeItemPriceChange, error) {
	args := m.Called(ctx, shop)
	return args.Get(0).([]models.ShelfLifeItemPriceChange), args.Error(1)
}

func (m *MockPriceChangeRepository) MarkReverted(ctx context.Context, shop, variantID string, exceptID uuid.UUID) error {
	args := m.Called(ctx, shop, variantID, exceptID)
	return args.Error(0)
}

// MockDailyDiscountRepository is a mock implementation of DailyDiscountRepository
type MockDailyDiscountRepository struct {
	mock.Mock
}

var _ repository.DailyDiscountRepository = (*MockDailyDiscountRepository)(nil)

func (m *MockDailyDiscountRepository) Create(ctx context.Context, log *models.DailyDiscountLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockDailyDiscountRepository) ListActive(ctx context.Context, shop string) ([]models.DailyDiscountLog, error) {
	args := m.Called(ctx, shop)
	return args.Get(0).([]models.DailyDiscountLog), args.Error(1)
}

func (m *MockDailyDiscountRepository) List(ctx context.Context, shop string, opts repository.ListOptions) ([]models.DailyDiscountLog, int64, error) {
	args := m.Called(ctx, shop, opts)
	return args.Get(0).([]models.DailyDiscountLog), args.Get(1).(int64), args.Error(2)
}

func (m *MockDailyDiscountRepository) Update(ctx context.Context, log *models.DailyDiscountLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

// MockCatalogClient is a mock implementation of clients.CatalogClient
type MockCatalogClient struct {
	mock.Mock
}

var _ clients.CatalogClient = (*MockCatalogClient)(nil)

func (m *MockCatalogClient) GetProducts(ctx context.Context, shop, cursor string, pageSize int) (*clients.ProductsPage, error) {
	args := m.Called(ctx, shop, cursor, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.ProductsPage), args.Error(1)
}

func (m *MockCatalogClient) UpdateVariantPrice(ctx context.Context, shop, productID, variantID string, price float64, compareAt *float64) error {
	args := m.Called(ctx, shop, productID, variantID, price, compareAt)
	return args.Error(0)
}
