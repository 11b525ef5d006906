package repository

import (
	"context"
	"fmt"
	"time"

	"jobber/pkg/logger"
	"jobber/pkg/metrics"
	"jobber/review-service/internal/app/review/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const reviewsCollection = "reviews"

type mongoReviewRepository struct {
	collection *mongo.Collection
}

// NewMongoReviewRepository создает репозиторий отзывов в MongoDB
// Автоматически создает индексы по gig_id, seller_id и уникальный (order_id, reviewer_id)
func NewMongoReviewRepository(db *mongo.Database) ReviewRepository {
	collection := db.Collection(reviewsCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, reviewIndexes()); err != nil {
		// Индексы могут уже существовать - не прерываем запуск
		logger.Warn().Err(err).Str("collection", reviewsCollection).Msg("Failed to create review indexes")
	}

	return &mongoReviewRepository{collection: collection}
}

// reviewIndexes - индексы коллекции reviews
// Уникальность (order_id, reviewer_id) проверяется только для отзывов с заказом
func reviewIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "gig_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("gig_id_idx"),
		},
		{
			Keys:    bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("seller_id_idx"),
		},
		{
			Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "reviewer_id", Value: 1}},
			Options: options.Index().
				SetName("order_reviewer_uniq").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"order_id": bson.M{"$gt": ""}}),
		},
	}
}

func (r *mongoReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, reviewsCollection)
	defer timer.ObserveDuration()

	review.ID = primitive.NewObjectID().Hex()
	review.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, review); err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpInsert)
		if mongo.IsDuplicateKeyError(err) {
			return ErrReviewAlreadyExists
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

// GetByGigID получает отзывы по gig, новые первыми
func (r *mongoReviewRepository) GetByGigID(ctx context.Context, gigID string) ([]entity.Review, error) {
	return r.find(ctx, bson.M{"gig_id": gigID})
}

// GetBySellerID получает отзывы о продавце, новые первыми
func (r *mongoReviewRepository) GetBySellerID(ctx context.Context, sellerID string) ([]entity.Review, error) {
	return r.find(ctx, bson.M{"seller_id": sellerID})
}

func (r *mongoReviewRepository) find(ctx context.Context, filter bson.M) ([]entity.Review, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, reviewsCollection)
	defer timer.ObserveDuration()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to find reviews: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := make([]entity.Review, 0)
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}

	return reviews, nil
}

// GetGigRatingSummary считает количество и сумму оценок агрегацией
func (r *mongoReviewRepository) GetGigRatingSummary(ctx context.Context, gigID string) (*entity.RatingSummary, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpAggregate, reviewsCollection)
	defer timer.ObserveDuration()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"gig_id": gigID}}},
		{{Key: "$group", Value: bson.M{
			"_id":           "$gig_id",
			"ratings_count": bson.M{"$sum": 1},
			"rating_sum":    bson.M{"$sum": "$rating"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpAggregate)
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	summary := &entity.RatingSummary{GigID: gigID}
	if cursor.Next(ctx) {
		if err := cursor.Decode(summary); err != nil {
			return nil, fmt.Errorf("failed to decode rating summary: %w", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rating summary: %w", err)
	}

	summary.ComputeAverage()
	return summary, nil
}
