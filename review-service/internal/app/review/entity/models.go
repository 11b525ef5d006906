package entity

import (
	"time"
)

// Типы отзывов: покупатель оценивает продавца и наоборот
const (
	ReviewTypeBuyer  = "buyer-review"
	ReviewTypeSeller = "seller-review"
)

const EventTypeReviewCreated = "REVIEW_CREATED"

// Review - отзыв по выполненному заказу (gig/order)
// После создания не изменяется и не удаляется.
// Один отзыв на (order_id, reviewer_id); отзывы без заказа под это правило не попадают
type Review struct {
	ID               string    `json:"id" bson:"_id" gorm:"type:uuid;primaryKey"`
	GigID            string    `json:"gigId" bson:"gig_id" gorm:"type:varchar(64);not null;index:idx_reviews_gig_id"`
	OrderID          string    `json:"orderId,omitempty" bson:"order_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_reviews_order_reviewer,where:order_id <> ''"`
	ReviewerID       string    `json:"reviewerId" bson:"reviewer_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_reviews_order_reviewer,where:order_id <> ''"`
	SellerID         string    `json:"sellerId,omitempty" bson:"seller_id" gorm:"type:varchar(64);not null;index:idx_reviews_seller_id"`
	ReviewerImage    string    `json:"reviewerImage,omitempty" bson:"reviewer_image,omitempty" gorm:"type:text"`
	ReviewerUsername string    `json:"reviewerUsername,omitempty" bson:"reviewer_username,omitempty" gorm:"type:varchar(255)"`
	Country          string    `json:"country,omitempty" bson:"country,omitempty" gorm:"type:varchar(255)"`
	Rating           int       `json:"rating" bson:"rating" gorm:"not null"`
	Review           string    `json:"review" bson:"review" gorm:"type:text;not null"`
	ReviewType       string    `json:"reviewType" bson:"review_type" gorm:"type:varchar(32);not null"`
	CreatedAt        time.Time `json:"createdAt" bson:"created_at" gorm:"not null"`
}

func (Review) TableName() string {
	return "reviews"
}

// RatingSummary - агрегированные оценки по gig
type RatingSummary struct {
	GigID        string  `json:"gigId" bson:"_id"`
	RatingsCount int     `json:"ratingsCount" bson:"ratings_count"`
	RatingSum    int     `json:"ratingSum" bson:"rating_sum"`
	Average      float64 `json:"average" bson:"-"`
}

// ComputeAverage пересчитывает среднюю оценку, для пустой сводки - 0
func (s *RatingSummary) ComputeAverage() {
	if s.RatingsCount == 0 {
		s.Average = 0
		return
	}
	s.Average = float64(s.RatingSum) / float64(s.RatingsCount)
}

// ReviewEvent - событие в топике review_events
type ReviewEvent struct {
	EventType  string    `json:"event_type"` // REVIEW_CREATED
	ReviewID   string    `json:"review_id"`
	GigID      string    `json:"gig_id"`
	OrderID    string    `json:"order_id"`
	ReviewerID string    `json:"reviewer_id"`
	SellerID   string    `json:"seller_id"`
	Rating     int       `json:"rating"`
	ReviewType string    `json:"review_type"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewReviewCreatedEvent(review *Review) ReviewEvent {
	return ReviewEvent{
		EventType:  EventTypeReviewCreated,
		ReviewID:   review.ID,
		GigID:      review.GigID,
		OrderID:    review.OrderID,
		ReviewerID: review.ReviewerID,
		SellerID:   review.SellerID,
		Rating:     review.Rating,
		ReviewType: review.ReviewType,
		Timestamp:  time.Now(),
	}
}
