package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/models"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/services"
)

// --- Mocks ---

// MockOfferService implements services.IOfferService
type MockOfferService struct {
	mock.Mock
}

func (m *MockOfferService) AddOffer(ctx context.Context, offer *models.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockOfferService) AcceptOffer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOfferService) DeclineOffer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOfferService) UndoAccept(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOfferService) GetOfferStatus(id string) (models.OfferStatus, error) {
	args := m.Called(id)
	return args.Get(0).(models.OfferStatus), args.Error(1)
}

func (m *MockOfferService) CanUndoAccept(id string) bool {
	args := m.Called(id)
	return args.Bool(0)
}

func (m *MockOfferService) CheckExpiredOffers() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *MockOfferService) RetrySyncQueue(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOfferService) HasPendingSync() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockOfferService) PendingOffers() []*models.Offer {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*models.Offer)
}

func (m *MockOfferService) AcceptedOffers() []*models.Offer {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*models.Offer)
}

func (m *MockOfferService) RemainingUndoTime(id string) (time.Duration, error) {
	args := m.Called(id)
	return args.Get(0).(time.Duration), args.Error(1)
}

func (m *MockOfferService) RemainingLifetime(id string) (time.Duration, error) {
	args := m.Called(id)
	return args.Get(0).(time.Duration), args.Error(1)
}

func (m *MockOfferService) SyncStatus() services.SyncStatusReport {
	args := m.Called()
	return args.Get(0).(services.SyncStatusReport)
}

func (m *MockOfferService) ForceRetryDeadLetters(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
