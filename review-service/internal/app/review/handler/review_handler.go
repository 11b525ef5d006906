package handler

import (
	"net/http"

	"jobber/review-service/internal/app/review/entity"
	"jobber/review-service/internal/app/review/service"

	"github.com/gin-gonic/gin"
)

const ReviewCreatedMessage = "Review created successfully."

type ReviewHandler struct {
	reviewService service.ReviewServiceInterface
}

func NewReviewHandler(reviewService service.ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
	}
}

// CreateReview передает тело запроса в ReviewService без проверок
// Ошибки не обрабатываются здесь: они записываются в контекст Gin как есть
// и превращаются в ответ в ErrorHandler
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	var req entity.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	review, err := h.reviewService.AddReview(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, entity.ReviewCreatedResponse{
		Message: ReviewCreatedMessage,
		Review:  review,
	})
}

func (h *ReviewHandler) GetReviewsByGigID(c *gin.Context) {
	reviews, err := h.reviewService.GetReviewsByGigID(c.Request.Context(), c.Param("gigId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, entity.ReviewListResponse{
		Message: "Gig reviews by gig id",
		Reviews: reviews,
	})
}

func (h *ReviewHandler) GetReviewsBySellerID(c *gin.Context) {
	reviews, err := h.reviewService.GetReviewsBySellerID(c.Request.Context(), c.Param("sellerId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, entity.ReviewListResponse{
		Message: "Gig reviews by seller id",
		Reviews: reviews,
	})
}

func (h *ReviewHandler) GetGigRatingSummary(c *gin.Context) {
	summary, err := h.reviewService.GetGigRatingSummary(c.Request.Context(), c.Param("gigId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, entity.RatingSummaryResponse{
		Message: "Gig rating summary",
		Summary: summary,
	})
}
