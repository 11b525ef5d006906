package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"jobber/pkg/logger"
	"jobber/pkg/metrics"
	"jobber/review-service/internal/app/review/entity"
	"jobber/review-service/internal/app/review/infrastructure"
	"jobber/review-service/internal/app/review/repository"

	"github.com/go-playground/validator/v10"
)

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrValidation          = errors.New("validation failed")
	ErrReviewAlreadyExists = errors.New("review already exists")
)

// maxRelayBatch ограничивает число событий за один запуск relay
const maxRelayBatch = 500

// ReviewService валидирует и сохраняет отзывы
// Координирует работу репозитория, Redis кеша и Kafka
type ReviewService struct {
	reviewRepo    repository.ReviewRepository
	cache         infrastructure.ReviewCache
	kafkaProducer infrastructure.MessagePublisher
	validator     *validator.Validate
	cacheTTL      time.Duration
}

// NewReviewService создает новый сервис отзывов с внедрением зависимостей
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	cache infrastructure.ReviewCache,
	kafkaProducer infrastructure.MessagePublisher,
	cacheTTL time.Duration,
) *ReviewService {
	return &ReviewService{
		reviewRepo:    reviewRepo,
		cache:         cache,
		kafkaProducer: kafkaProducer,
		validator:     newValidator(),
		cacheTTL:      cacheTTL,
	}
}

// AddReview создает новый отзыв
// 1. Валидирует запрос
// 2. Сохраняет отзыв в хранилище
// 3. Сбрасывает кеш gig, продавца и сводки оценок
// 4. Отправляет событие REVIEW_CREATED в Kafka
func (s *ReviewService) AddReview(ctx context.Context, req *entity.CreateReviewRequest) (*entity.Review, error) {
	req.Normalize()

	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, formatValidationError(err))
	}

	review := &entity.Review{
		GigID:            req.GigID,
		OrderID:          req.OrderID,
		ReviewerID:       req.ReviewerID,
		SellerID:         req.SellerID,
		ReviewerImage:    req.ReviewerImage,
		ReviewerUsername: req.ReviewerUsername,
		Country:          req.Country,
		Rating:           req.Rating,
		Review:           req.Review,
		ReviewType:       req.ReviewType,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrReviewAlreadyExists) {
			return nil, ErrReviewAlreadyExists
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	metrics.RecordReviewCreated(review.ReviewType, review.Rating)

	// Отзыв уже сохранен, проблемы с кешем и Kafka не критичны
	if err := s.cache.Invalidate(ctx, affectedCacheKeys(review)...); err != nil {
		logger.Warn().Err(err).Str("review_id", review.ID).Msg("Failed to invalidate review cache")
	}

	s.publishReviewEvent(ctx, entity.NewReviewCreatedEvent(review))

	logger.Info().
		Str("review_id", review.ID).
		Str("gig_id", review.GigID).
		Str("review_type", review.ReviewType).
		Int("rating", review.Rating).
		Msg("Review created")

	return review, nil
}

// GetReviewsByGigID получает отзывы по gig с кешированием в Redis
func (s *ReviewService) GetReviewsByGigID(ctx context.Context, gigID string) ([]entity.Review, error) {
	return s.cachedReviews(ctx, infrastructure.GigReviewsKey(gigID), func() ([]entity.Review, error) {
		return s.reviewRepo.GetByGigID(ctx, gigID)
	})
}

// GetReviewsBySellerID получает отзывы о продавце с кешированием в Redis
func (s *ReviewService) GetReviewsBySellerID(ctx context.Context, sellerID string) ([]entity.Review, error) {
	return s.cachedReviews(ctx, infrastructure.SellerReviewsKey(sellerID), func() ([]entity.Review, error) {
		return s.reviewRepo.GetBySellerID(ctx, sellerID)
	})
}

// GetGigRatingSummary возвращает количество и сумму оценок gig
func (s *ReviewService) GetGigRatingSummary(ctx context.Context, gigID string) (*entity.RatingSummary, error) {
	summary, err := s.cache.GetSummary(ctx, gigID)
	if err == nil && summary != nil {
		return summary, nil
	}
	if err != nil {
		logger.Warn().Err(err).Str("gig_id", gigID).Msg("Failed to read rating summary from cache")
	}

	version, versionErr := s.cache.Version(ctx, infrastructure.SummaryKey(gigID))
	if versionErr != nil {
		logger.Warn().Err(versionErr).Str("gig_id", gigID).Msg("Failed to read rating summary cache version")
	}

	summary, err = s.reviewRepo.GetGigRatingSummary(ctx, gigID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rating summary: %w", err)
	}

	// Без версии нельзя проверить, что сводка не устарела, поэтому не кешируем
	if versionErr == nil {
		if err := s.cache.SetSummary(ctx, summary, s.cacheTTL, version); err != nil {
			logger.Warn().Err(err).Str("gig_id", gigID).Msg("Failed to cache rating summary")
		}
	}

	return summary, nil
}

// RelayPendingEvents переотправляет события, которые не удалось отправить в Kafka
// Событие, снова не отправленное, возвращается в очередь и обработка прекращается
func (s *ReviewService) RelayPendingEvents(ctx context.Context) (int, error) {
	relayed := 0

	for relayed < maxRelayBatch {
		key, value, err := s.cache.PopPendingEvent(ctx)
		if err != nil {
			if errors.Is(err, infrastructure.ErrNoPendingEvents) {
				return relayed, nil
			}
			return relayed, fmt.Errorf("failed to read pending events: %w", err)
		}

		if err := s.kafkaProducer.PublishMessage(ctx, key, value); err != nil {
			metrics.ReviewEventsRelayed.WithLabelValues("failed").Inc()
			if pushErr := s.cache.RequeuePendingEvent(ctx, key, value); pushErr != nil {
				logger.Error().Err(pushErr).Str("review_id", key).Msg("Review event lost")
			}
			return relayed, fmt.Errorf("failed to relay review event: %w", err)
		}

		metrics.ReviewEventsRelayed.WithLabelValues("success").Inc()
		relayed++
	}

	return relayed, nil
}

func (s *ReviewService) cachedReviews(ctx context.Context, key string, load func() ([]entity.Review, error)) ([]entity.Review, error) {
	reviews, err := s.cache.GetReviews(ctx, key)
	if err == nil && reviews != nil {
		return reviews, nil
	}
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Failed to read reviews from cache")
	}

	// Версия читается до запроса в БД: если отзыв создан во время чтения,
	// Invalidate увеличит ее и устаревший список не попадет в кеш
	version, versionErr := s.cache.Version(ctx, key)
	if versionErr != nil {
		logger.Warn().Err(versionErr).Str("key", key).Msg("Failed to read reviews cache version")
	}

	reviews, err = load()
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}

	if versionErr == nil {
		if err := s.cache.SetReviews(ctx, key, reviews, s.cacheTTL, version); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to cache reviews")
		}
	}

	return reviews, nil
}

// affectedCacheKeys - ключи, которые устаревают после создания отзыва
// gigId и sellerId необязательны, пустые пропускаются
func affectedCacheKeys(review *entity.Review) []string {
	keys := make([]string, 0, 3)
	if review.GigID != "" {
		keys = append(keys, infrastructure.GigReviewsKey(review.GigID), infrastructure.SummaryKey(review.GigID))
	}
	if review.SellerID != "" {
		keys = append(keys, infrastructure.SellerReviewsKey(review.SellerID))
	}
	return keys
}

// publishReviewEvent отправляет событие в Kafka с ключом = ReviewID
// При ошибке событие откладывается в Redis до следующего запуска relay
func (s *ReviewService) publishReviewEvent(ctx context.Context, event entity.ReviewEvent) {
	eventData, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("review_id", event.ReviewID).Msg("Failed to marshal review event")
		return
	}

	if err := s.kafkaProducer.PublishMessage(ctx, event.ReviewID, eventData); err != nil {
		logger.Warn().Err(err).Str("review_id", event.ReviewID).Msg("Failed to publish review event, parking it")

		if err := s.cache.PushPendingEvent(ctx, event.ReviewID, eventData); err != nil {
			logger.Error().Err(err).Str("review_id", event.ReviewID).Msg("Review event lost")
		}
	}
}

// newValidator использует json-имена полей в сообщениях об ошибках
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		msg := fieldError.Field() + " is " + fieldError.Tag()
		if fieldError.Param() != "" {
			msg += "=" + fieldError.Param()
		}
		messages = append(messages, msg)
	}
	return strings.Join(messages, ", ")
}
