package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobber/pkg/metrics"
	"jobber/review-service/internal/app/review/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolationCode = "23505"

// postgresReviewRepository реализует ReviewRepository для PostgreSQL через GORM
type postgresReviewRepository struct {
	db *gorm.DB
}

// NewPostgresReviewRepository создает репозиторий отзывов в PostgreSQL
func NewPostgresReviewRepository(db *gorm.DB) ReviewRepository {
	return &postgresReviewRepository{db: db}
}

// Migrate создает таблицу reviews и индексы
// Уникальный индекс (order_id, reviewer_id) частичный: отзывы без заказа в него не входят
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entity.Review{}); err != nil {
		return fmt.Errorf("failed to migrate reviews table: %w", err)
	}
	return nil
}

func (r *postgresReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, reviewsCollection)
	defer timer.ObserveDuration()

	review.ID = uuid.NewString()
	review.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpInsert)
		if isUniqueViolation(err) {
			return ErrReviewAlreadyExists
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

func (r *postgresReviewRepository) GetByGigID(ctx context.Context, gigID string) ([]entity.Review, error) {
	return r.find(ctx, "gig_id = ?", gigID)
}

func (r *postgresReviewRepository) GetBySellerID(ctx context.Context, sellerID string) ([]entity.Review, error) {
	return r.find(ctx, "seller_id = ?", sellerID)
}

func (r *postgresReviewRepository) find(ctx context.Context, query string, arg string) ([]entity.Review, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, reviewsCollection)
	defer timer.ObserveDuration()

	reviews := make([]entity.Review, 0)
	result := r.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at DESC").
		Find(&reviews)

	if result.Error != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to find reviews: %w", result.Error)
	}

	return reviews, nil
}

func (r *postgresReviewRepository) GetGigRatingSummary(ctx context.Context, gigID string) (*entity.RatingSummary, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpAggregate, reviewsCollection)
	defer timer.ObserveDuration()

	var row struct {
		RatingsCount int
		RatingSum    int
	}

	result := r.db.WithContext(ctx).
		Model(&entity.Review{}).
		Select("COUNT(*) AS ratings_count, COALESCE(SUM(rating), 0) AS rating_sum").
		Where("gig_id = ?", gigID).
		Scan(&row)

	if result.Error != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpAggregate)
		return nil, fmt.Errorf("failed to aggregate ratings: %w", result.Error)
	}

	summary := &entity.RatingSummary{
		GigID:        gigID,
		RatingsCount: row.RatingsCount,
		RatingSum:    row.RatingSum,
	}
	summary.ComputeAverage()

	return summary, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
