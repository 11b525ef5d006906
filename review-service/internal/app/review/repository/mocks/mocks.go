package mocks

import (
	"context"
	"time"

	"jobber/review-service/internal/app/review/entity"

	"github.com/stretchr/testify/mock"
)

// MockReviewRepository мок для ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByGigID(ctx context.Context, gigID string) ([]entity.Review, error) {
	args := m.Called(ctx, gigID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewRepository) GetBySellerID(ctx context.Context, sellerID string) ([]entity.Review, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewRepository) GetGigRatingSummary(ctx context.Context, gigID string) (*entity.RatingSummary, error) {
	args := m.Called(ctx, gigID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RatingSummary), args.Error(1)
}

// MockMessagePublisher мок для Kafka MessagePublisher
type MockMessagePublisher struct {
	mock.Mock
	Messages [][]byte
}

func (m *MockMessagePublisher) PublishMessage(ctx context.Context, key string, value []byte) error {
	m.Messages = append(m.Messages, value)
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockReviewCache мок для Redis ReviewCache
type MockReviewCache struct {
	mock.Mock
}

func (m *MockReviewCache) GetReviews(ctx context.Context, key string) ([]entity.Review, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewCache) SetReviews(ctx context.Context, key string, reviews []entity.Review, ttl time.Duration, version int64) error {
	args := m.Called(ctx, key, reviews, ttl, version)
	return args.Error(0)
}

func (m *MockReviewCache) GetSummary(ctx context.Context, gigID string) (*entity.RatingSummary, error) {
	args := m.Called(ctx, gigID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RatingSummary), args.Error(1)
}

func (m *MockReviewCache) SetSummary(ctx context.Context, summary *entity.RatingSummary, ttl time.Duration, version int64) error {
	args := m.Called(ctx, summary, ttl, version)
	return args.Error(0)
}

func (m *MockReviewCache) Version(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReviewCache) Invalidate(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockReviewCache) PushPendingEvent(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockReviewCache) RequeuePendingEvent(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockReviewCache) PopPendingEvent(ctx context.Context) (string, []byte, error) {
	args := m.Called(ctx)
	var value []byte
	if v := args.Get(1); v != nil {
		value = v.([]byte)
	}
	return args.String(0), value, args.Error(2)
}

func (m *MockReviewCache) Close() error {
	args := m.Called()
	return args.Error(0)
}
