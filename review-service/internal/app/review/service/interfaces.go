package service

import (
	"context"

	"jobber/review-service/internal/app/review/entity"
)

// ReviewServiceInterface - контракт сервиса для handler и cron relay
type ReviewServiceInterface interface {
	AddReview(ctx context.Context, req *entity.CreateReviewRequest) (*entity.Review, error)
	GetReviewsByGigID(ctx context.Context, gigID string) ([]entity.Review, error)
	GetReviewsBySellerID(ctx context.Context, sellerID string) ([]entity.Review, error)
	GetGigRatingSummary(ctx context.Context, gigID string) (*entity.RatingSummary, error)
	RelayPendingEvents(ctx context.Context) (int, error)
}
