package infrastructure

import (
	"context"
	"errors"
	"strings"
	"time"

	"jobber/review-service/internal/app/review/entity"
)

// ErrNoPendingEvents - очередь неотправленных событий пуста
var ErrNoPendingEvents = errors.New("no pending events")

// MessagePublisher интерфейс для отправки сообщений в очередь (Kafka)
// Используется для dependency injection и упрощения тестирования
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}

// ReviewCache интерфейс Redis кеша отзывов
// GetReviews и GetSummary возвращают nil без ошибки при промахе кеша.
// Каждый ключ имеет версию: Invalidate ее увеличивает, а SetReviews/SetSummary
// пишут только если версия не изменилась с момента чтения через Version
type ReviewCache interface {
	GetReviews(ctx context.Context, key string) ([]entity.Review, error)
	SetReviews(ctx context.Context, key string, reviews []entity.Review, ttl time.Duration, version int64) error
	GetSummary(ctx context.Context, gigID string) (*entity.RatingSummary, error)
	SetSummary(ctx context.Context, summary *entity.RatingSummary, ttl time.Duration, version int64) error
	Version(ctx context.Context, key string) (int64, error)
	Invalidate(ctx context.Context, keys ...string) error

	// PushPendingEvent сохраняет событие, которое не удалось отправить в Kafka
	PushPendingEvent(ctx context.Context, key string, value []byte) error
	// RequeuePendingEvent возвращает событие в начало очереди, оно будет извлечено следующим
	RequeuePendingEvent(ctx context.Context, key string, value []byte) error
	// PopPendingEvent извлекает самое старое событие или ErrNoPendingEvents
	PopPendingEvent(ctx context.Context) (string, []byte, error)
	Close() error
}

const (
	GigReviewsPrefix    = "reviews:gig:"
	SellerReviewsPrefix = "reviews:seller:"
	SummaryPrefix       = "reviews:summary:"
)

func GigReviewsKey(gigID string) string {
	return GigReviewsPrefix + gigID
}

func SellerReviewsKey(sellerID string) string {
	return SellerReviewsPrefix + sellerID
}

func SummaryKey(gigID string) string {
	return SummaryPrefix + gigID
}

// KeyKind возвращает тип ключа без идентификатора: reviews:gig:a:b -> reviews:gig
// Неизвестные ключи относятся к "reviews"
func KeyKind(key string) string {
	for _, prefix := range []string{GigReviewsPrefix, SellerReviewsPrefix, SummaryPrefix} {
		if strings.HasPrefix(key, prefix) {
			return strings.TrimSuffix(prefix, ":")
		}
	}
	return "reviews"
}
