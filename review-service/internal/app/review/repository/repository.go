package repository

import (
	"context"
	"errors"

	"jobber/review-service/internal/app/review/entity"
)

var (
	// Стандартные ошибки репозитория для обработки в service layer
	ErrReviewAlreadyExists = errors.New("review for this order already exists")
)

const serviceName = "review-service"

// ReviewRepository определяет методы хранилища отзывов
// Реализации: MongoDB (по умолчанию) и PostgreSQL через GORM
type ReviewRepository interface {
	// Create сохраняет отзыв, заполняя ID и CreatedAt
	Create(ctx context.Context, review *entity.Review) error
	GetByGigID(ctx context.Context, gigID string) ([]entity.Review, error)
	GetBySellerID(ctx context.Context, sellerID string) ([]entity.Review, error)
	GetGigRatingSummary(ctx context.Context, gigID string) (*entity.RatingSummary, error)
}
