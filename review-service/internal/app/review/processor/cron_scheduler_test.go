package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobber/review-service/internal/app/review/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockReviewService мок для ReviewServiceInterface
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) AddReview(ctx context.Context, req *entity.CreateReviewRequest) (*entity.Review, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewService) GetReviewsByGigID(ctx context.Context, gigID string) ([]entity.Review, error) {
	args := m.Called(ctx, gigID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewService) GetReviewsBySellerID(ctx context.Context, sellerID string) ([]entity.Review, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewService) GetGigRatingSummary(ctx context.Context, gigID string) (*entity.RatingSummary, error) {
	args := m.Called(ctx, gigID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RatingSummary), args.Error(1)
}

func (m *MockReviewService) RelayPendingEvents(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// ===================== NewCronScheduler Tests =====================

func TestNewCronScheduler(t *testing.T) {
	mockSvc := new(MockReviewService)

	scheduler := NewCronScheduler(mockSvc)

	assert.NotNil(t, scheduler)
	assert.NotNil(t, scheduler.cron)
	assert.Equal(t, mockSvc, scheduler.reviewSvc)
}

// ===================== Start Tests =====================

func TestCronScheduler_Start_Success(t *testing.T) {
	mockSvc := new(MockReviewService)
	scheduler := NewCronScheduler(mockSvc)

	err := scheduler.Start(context.Background(), "@every 1m")

	assert.NoError(t, err)
	assert.Len(t, scheduler.GetEntries(), 1)

	scheduler.Stop()
	mockSvc.AssertNotCalled(t, "RelayPendingEvents", mock.Anything)
}

func TestCronScheduler_Start_InvalidSchedule(t *testing.T) {
	mockSvc := new(MockReviewService)
	scheduler := NewCronScheduler(mockSvc)

	err := scheduler.Start(context.Background(), "every minute please")

	assert.Error(t, err)
	assert.Empty(t, scheduler.GetEntries())
}

func TestCronScheduler_RunsRelay(t *testing.T) {
	mockSvc := new(MockReviewService)
	scheduler := NewCronScheduler(mockSvc)

	called := make(chan struct{}, 1)
	mockSvc.On("RelayPendingEvents", mock.Anything).Return(2, nil).Run(func(args mock.Arguments) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	err := scheduler.Start(context.Background(), "@every 1s")
	assert.NoError(t, err)
	defer scheduler.Stop()

	select {
	case <-called:
	case <-time.After(3 * time.Second):
		t.Fatal("relay was not triggered by the scheduler")
	}
}

// ===================== relay Tests =====================

func TestCronScheduler_Relay_Error(t *testing.T) {
	mockSvc := new(MockReviewService)
	scheduler := NewCronScheduler(mockSvc)

	mockSvc.On("RelayPendingEvents", mock.Anything).Return(1, errors.New("kafka down")).Once()

	assert.NotPanics(t, func() { scheduler.relay(context.Background()) })
	mockSvc.AssertExpectations(t)
}
