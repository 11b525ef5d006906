package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobber/review-service/internal/app/review/entity"
	"jobber/review-service/internal/app/review/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key"

func init() {
	gin.SetMode(gin.TestMode)
}

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) AddReview(ctx context.Context, req *entity.CreateReviewRequest) (*entity.Review, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewService) GetReviewsByGigID(ctx context.Context, gigID string) ([]entity.Review, error) {
	args := m.Called(ctx, gigID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewService) GetReviewsBySellerID(ctx context.Context, sellerID string) ([]entity.Review, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewService) GetGigRatingSummary(ctx context.Context, gigID string) (*entity.RatingSummary, error) {
	args := m.Called(ctx, gigID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RatingSummary), args.Error(1)
}

func (m *MockReviewService) RelayPendingEvents(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newTestRouter(svc *MockReviewService, checks ...HealthCheck) *gin.Engine {
	return SetupRoutes(
		NewReviewHandler(svc),
		NewHealthHandler(serviceName, checks...),
		NewAuthMiddleware(testJWTSecret),
		[]string{"http://localhost:3000"},
	)
}

func newTestToken(t *testing.T, secret string, expiresIn time.Duration) string {
	claims := JWTClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+newTestToken(t, testJWTSecret, time.Hour))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ==================== CreateReview ====================

func TestCreateReview_Success(t *testing.T) {
	svc := new(MockReviewService)
	router := newTestRouter(svc)

	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stored := &entity.Review{
		ID:         "r1",
		GigID:      "g1",
		ReviewerID: "u1",
		Rating:     5,
		Review:     "Great!",
		ReviewType: entity.ReviewTypeBuyer,
		CreatedAt:  createdAt,
	}

	svc.On("AddReview", mock.Anything, mock.MatchedBy(func(req *entity.CreateReviewRequest) bool {
		return req.GigID == "g1" && req.ReviewerID == "u1" && req.Rating == 5 && req.Comment == "Great!"
	})).Return(stored, nil)

	body := []byte(`{"gigId":"g1","reviewerId":"u1","rating":5,"comment":"Great!"}`)
	rec := doRequest(t, router, http.MethodPost, "/api/v1/review", body)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response entity.ReviewCreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Review created successfully.", response.Message)
	assert.Equal(t, stored, response.Review)

	svc.AssertExpectations(t)
}

func TestCreateReview_ForwardsBodyWithoutValidation(t *testing.T) {
	svc := new(MockReviewService)
	router := newTestRouter(svc)

	// Рейтинг вне диапазона доходит до сервиса без изменений
	svc.On("AddReview", mock.Anything, mock.MatchedBy(func(req *entity.CreateReviewRequest) bool {
		return req.Rating == 42
	})).Return(&entity.Review{ID: "r1", Rating: 42}, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/review", []byte(`{"rating":42}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateReview_ErrorIsPassedToFramework(t *testing.T) {
	svc := new(MockReviewService)
	failure := errors.New("persistence exploded")
	svc.On("AddReview", mock.Anything, mock.Anything).Return(nil, failure)

	var observed error
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Next()
		if last := c.Errors.Last(); last != nil {
			observed = last.Err
		}
	})
	router.POST("/review", NewReviewHandler(svc).CreateReview)

	req := httptest.NewRequest(http.MethodPost, "/review", bytes.NewBufferString(`{"gigId":"g1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Same(t, failure, observed)
	assert.Empty(t, rec.Body.String())
}

func TestCreateReview_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", fmt.Errorf("%w: rating is max=5", service.ErrValidation), http.StatusBadRequest, "Validation failed"},
		{"duplicate", service.ErrReviewAlreadyExists, http.StatusConflict, "Review already exists"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockReviewService)
			svc.On("AddReview", mock.Anything, mock.Anything).Return(nil, tc.err)
			router := newTestRouter(svc)

			rec := doRequest(t, router, http.MethodPost, "/api/v1/review", []byte(`{"gigId":"g1"}`))

			assert.Equal(t, tc.status, rec.Code)

			var response entity.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.Equal(t, tc.body, response.Error)
			assert.NotContains(t, rec.Body.String(), "connection reset")
		})
	}
}

func TestCreateReview_MalformedJSON(t *testing.T) {
	svc := new(MockReviewService)
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/review", []byte(`{"gigId":`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "AddReview", mock.Anything, mock.Anything)
}

// ==================== Auth ====================

func TestCreateReview_Unauthorized(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"bad format", "Token abc"},
		{"wrong secret", "Bearer " + newTestToken(t, "other-secret", time.Hour)},
		{"expired", "Bearer " + newTestToken(t, testJWTSecret, -time.Hour)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockReviewService)
			router := newTestRouter(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/review", bytes.NewBufferString(`{}`))
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			svc.AssertNotCalled(t, "AddReview", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthMiddleware_SetsOnlyUserID(t *testing.T) {
	router := gin.New()
	router.GET("/protected", NewAuthMiddleware(testJWTSecret).Authenticate(), func(c *gin.Context) {
		assert.Equal(t, "u1", c.GetString(UserIDKey))
		assert.Len(t, c.Keys, 1)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+newTestToken(t, testJWTSecret, time.Hour))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ==================== Queries ====================

func TestGetReviewsByGigID(t *testing.T) {
	svc := new(MockReviewService)
	router := newTestRouter(svc)
	reviews := []entity.Review{{ID: "r1", GigID: "g1", Rating: 5}, {ID: "r2", GigID: "g1", Rating: 4}}

	svc.On("GetReviewsByGigID", mock.Anything, "g1").Return(reviews, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/review/gig/g1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response entity.ReviewListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Gig reviews by gig id", response.Message)
	assert.Len(t, response.Reviews, 2)
}

func TestGetReviewsBySellerID_Error(t *testing.T) {
	svc := new(MockReviewService)
	router := newTestRouter(svc)

	svc.On("GetReviewsBySellerID", mock.Anything, "s1").Return(nil, errors.New("db error"))

	rec := doRequest(t, router, http.MethodGet, "/api/v1/review/seller/s1", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetGigRatingSummary(t *testing.T) {
	svc := new(MockReviewService)
	router := newTestRouter(svc)
	summary := &entity.RatingSummary{GigID: "g1", RatingsCount: 2, RatingSum: 9, Average: 4.5}

	svc.On("GetGigRatingSummary", mock.Anything, "g1").Return(summary, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/review/gig/g1/summary", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response entity.RatingSummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, summary, response.Summary)
}

// ==================== Health / CORS ====================

func TestHealth(t *testing.T) {
	router := newTestRouter(new(MockReviewService))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), serviceName)
}

func TestReadiness(t *testing.T) {
	healthy := HealthCheck{Name: "mongodb", Check: func(ctx context.Context) error { return nil }}
	broken := HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return errors.New("refused") }}

	router := newTestRouter(new(MockReviewService), healthy, broken)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "unhealthy", response.Status)
	assert.Equal(t, "healthy", response.Checks["mongodb"])
	assert.Equal(t, "unhealthy: refused", response.Checks["redis"])
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(new(MockReviewService))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/review", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsConfig_Wildcard(t *testing.T) {
	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
	assert.True(t, corsConfig(nil).AllowAllOrigins)
	assert.Equal(t, []string{"http://a"}, corsConfig([]string{"http://a"}).AllowOrigins)
}
