package handler

import (
	"errors"
	"net/http"

	"jobber/pkg/logger"
	"jobber/review-service/internal/app/review/entity"
	"jobber/review-service/internal/app/review/service"

	"github.com/gin-gonic/gin"
)

// ErrorHandler превращает последнюю ошибку из c.Errors в JSON ответ
// Срабатывает только если handler сам ничего не записал
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		status, response := errorResponse(c.Errors.Last())
		if status >= http.StatusInternalServerError {
			logger.Error().
				Str("request_id", c.GetString(logger.RequestIDKey)).
				Str("path", c.Request.URL.Path).
				Err(c.Errors.Last().Err).
				Msg("Request failed")
		}

		c.AbortWithStatusJSON(status, response)
	}
}

func errorResponse(err *gin.Error) (int, entity.ErrorResponse) {
	switch {
	case err.IsType(gin.ErrorTypeBind):
		return http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body", Message: err.Error()}
	case errors.Is(err.Err, service.ErrValidation):
		return http.StatusBadRequest, entity.ErrorResponse{Error: "Validation failed", Message: err.Error()}
	case errors.Is(err.Err, service.ErrReviewAlreadyExists):
		return http.StatusConflict, entity.ErrorResponse{Error: "Review already exists"}
	default:
		return http.StatusInternalServerError, entity.ErrorResponse{Error: "Internal server error"}
	}
}
