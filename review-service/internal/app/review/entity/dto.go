package entity

// CreateReviewRequest - тело запроса на создание отзыва
// Handler не валидирует запрос, правила проверяются в ReviewService.
// Достаточно одного из gigId/orderId, sellerId необязателен
type CreateReviewRequest struct {
	GigID            string `json:"gigId" validate:"required_without=OrderID,max=64"`
	OrderID          string `json:"orderId" validate:"required_without=GigID,max=64"`
	ReviewerID       string `json:"reviewerId" validate:"required,max=64"`
	SellerID         string `json:"sellerId" validate:"max=64"`
	ReviewerImage    string `json:"reviewerImage" validate:"omitempty,max=2048"`
	ReviewerUsername string `json:"reviewerUsername" validate:"omitempty,max=255"`
	Country          string `json:"country" validate:"omitempty,max=255"`
	Rating           int    `json:"rating" validate:"required,min=1,max=5"`
	Review           string `json:"review" validate:"required,min=1,max=1000"`
	// Comment - альтернативное имя поля review
	Comment    string `json:"comment,omitempty" validate:"-"`
	ReviewType string `json:"reviewType" validate:"required,oneof=buyer-review seller-review"`
}

// Normalize заполняет значения по умолчанию перед валидацией
func (r *CreateReviewRequest) Normalize() {
	if r.Review == "" && r.Comment != "" {
		r.Review = r.Comment
	}
	if r.ReviewType == "" {
		r.ReviewType = ReviewTypeBuyer
	}
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ReviewCreatedResponse - ответ на создание отзыва
type ReviewCreatedResponse struct {
	Message string  `json:"message"`
	Review  *Review `json:"review"`
}

// ReviewListResponse - ответ со списком отзывов
type ReviewListResponse struct {
	Message string   `json:"message"`
	Reviews []Review `json:"reviews"`
}

// RatingSummaryResponse - ответ со сводкой оценок
type RatingSummaryResponse struct {
	Message string         `json:"message"`
	Summary *RatingSummary `json:"summary"`
}
