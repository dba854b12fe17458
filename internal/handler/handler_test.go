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

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/dto"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) result(args mock.Arguments) (*domain.AuthResult, error) {
	res, _ := args.Get(0).(*domain.AuthResult)
	return res, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	return m.result(m.Called(ctx, email, password))
}

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	return m.result(m.Called(ctx, email, password))
}

func (m *mockAuthService) LoginWithFederatedProvider(ctx context.Context, identityToken string) (*domain.AuthResult, error) {
	return m.result(m.Called(ctx, identityToken))
}

func (m *mockAuthService) LoginWithLinkedIn(ctx context.Context, code string) (*domain.AuthResult, error) {
	return m.result(m.Called(ctx, code))
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	return m.result(m.Called(ctx, refreshToken))
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) {
	m.Called(ctx, refreshToken)
}

func (m *mockAuthService) ValidateAccessToken(ctx context.Context, token string) (*domain.AccessClaims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(0).(*domain.AccessClaims)
	return claims, args.Error(1)
}

func (m *mockAuthService) AvailableStrategies() []string {
	return m.Called().Get(0).([]string)
}

type mockAccountService struct {
	mock.Mock
}

func (m *mockAccountService) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*domain.UserProfile)
	return profile, args.Error(1)
}

func (m *mockAccountService) Activate(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockAccountService) Deactivate(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockAccountService) Lock(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockAccountService) Unlock(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type fakeLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
}

func (f fakeLimiter) Allow(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return f.allowed, f.retryAfter, f.err
}

func (f fakeLimiter) Remaining(context.Context, string, int, time.Duration) (int, error) {
	return 4, nil
}

var sampleResult = &domain.AuthResult{
	UserID:       "u-1",
	Email:        "a@x.com",
	AccessToken:  "access",
	RefreshToken: "refresh",
	Roles:        []string{domain.RoleUser},
	IsNewUser:    true,
	ExpiresIn:    86400,
}

func init() {
	gin.SetMode(gin.TestMode)
}

func jsonRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("bad email: %w", domain.ErrInvalidArgument), http.StatusBadRequest},
		{domain.ErrUnsupportedAuthMethod, http.StatusBadRequest},
		{domain.ErrTokenNotFound, http.StatusBadRequest},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrTokenExpired, http.StatusUnauthorized},
		{domain.ErrIdentityVerificationFailed, http.StatusUnauthorized},
		{domain.ErrAccountDisabled, http.StatusForbidden},
		{domain.ErrAccountLocked, http.StatusForbidden},
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrNotImplemented, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, _ := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestRegisterSetsCookieAndBody(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Register", mock.Anything, "a@x.com", "Aa1!aaaa").Return(sampleResult, nil)

	h := NewAuthHandler(svc, 3600, true, zap.NewNop())
	router := gin.New()
	router.POST("/register", h.Register)

	rec := serve(router, jsonRequest(http.MethodPost, "/register", dto.RegisterRequest{Email: "a@x.com", Password: "Aa1!aaaa"}))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body dto.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "access", body.AccessToken)
	assert.Equal(t, "refresh", body.RefreshToken)
	assert.Equal(t, "u-1", body.User.ID)
	assert.True(t, body.IsNewUser)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "refresh_token", cookies[0].Name)
	assert.Equal(t, "refresh", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	svc.AssertExpectations(t)
}

func TestRegisterValidation(t *testing.T) {
	svc := new(mockAuthService)
	h := NewAuthHandler(svc, 3600, true, zap.NewNop())
	router := gin.New()
	router.POST("/register", h.Register)

	rec := serve(router, jsonRequest(http.MethodPost, "/register", map[string]string{"email": "not-an-email"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginHidesInternalErrors(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Login", mock.Anything, "a@x.com", "pw").Return(nil, errors.New("connection reset by peer"))

	h := NewAuthHandler(svc, 3600, true, zap.NewNop())
	router := gin.New()
	router.POST("/login", h.Login)

	rec := serve(router, jsonRequest(http.MethodPost, "/login", dto.LoginRequest{Email: "a@x.com", Password: "pw"}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestRefreshReadsCookieFirst(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Refresh", mock.Anything, "from-cookie").Return(sampleResult, nil)

	h := NewAuthHandler(svc, 3600, false, zap.NewNop())
	router := gin.New()
	router.POST("/refresh", h.Refresh)

	req := jsonRequest(http.MethodPost, "/refresh", dto.RefreshRequest{RefreshToken: "from-body"})
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "from-cookie"})

	rec := serve(router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestRefreshMapsMissingOwnerToUnauthorized(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Refresh", mock.Anything, "tok").Return(nil, domain.ErrUserNotFound)

	h := NewAuthHandler(svc, 3600, false, zap.NewNop())
	router := gin.New()
	router.POST("/refresh", h.Refresh)

	rec := serve(router, jsonRequest(http.MethodPost, "/refresh", dto.RefreshRequest{RefreshToken: "tok"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Logout", mock.Anything, "").Return()

	h := NewAuthHandler(svc, 3600, false, zap.NewNop())
	router := gin.New()
	router.POST("/logout", h.Logout)

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestAuthMiddleware(t *testing.T) {
	claims := &domain.AccessClaims{UserID: "u-1", Email: "a@x.com", Roles: []string{domain.RoleUser}}

	svc := new(mockAuthService)
	svc.On("ValidateAccessToken", mock.Anything, "good").Return(claims, nil)
	svc.On("ValidateAccessToken", mock.Anything, "bad").Return(nil, domain.ErrTokenExpired)

	h := NewAuthHandler(svc, 3600, false, zap.NewNop())
	router := gin.New()
	router.GET("/me", AuthMiddleware(svc), h.GetMe)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer good", status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", status: http.StatusOK},
		{name: "expired", header: "Bearer bad", status: http.StatusUnauthorized},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(router, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	accounts := new(mockAccountService)
	accounts.On("Lock", mock.Anything, "u-2").Return(nil)

	h := NewUserHandler(accounts, zap.NewNop())

	withClaims := func(roles ...string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(claimsKey, &domain.AccessClaims{UserID: "u-1", Roles: roles})
		}
	}

	router := gin.New()
	router.POST("/user/:id/lock", withClaims(domain.RoleUser), RequireRole(domain.RoleAdmin), h.Lock)
	router.POST("/admin/:id/lock", withClaims(domain.RoleAdmin, domain.RoleUser), RequireRole(domain.RoleAdmin), h.Lock)

	assert.Equal(t, http.StatusForbidden, serve(router, httptest.NewRequest(http.MethodPost, "/user/u-2/lock", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodPost, "/admin/u-2/lock", nil)).Code)
	accounts.AssertNumberOfCalls(t, "Lock", 1)
}

func TestGetProfileSelfOnly(t *testing.T) {
	accounts := new(mockAccountService)
	accounts.On("GetProfile", mock.Anything, "u-1").Return(&domain.UserProfile{ID: "u-1", Email: "a@x.com"}, nil)

	h := NewUserHandler(accounts, zap.NewNop())
	router := gin.New()
	router.GET("/users/:id/profile", func(c *gin.Context) {
		c.Set(claimsKey, &domain.AccessClaims{UserID: "u-1", Roles: []string{domain.RoleUser}})
	}, h.GetProfile)

	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/users/u-1/profile", nil)).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, httptest.NewRequest(http.MethodGet, "/users/u-2/profile", nil)).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	newRouter := func(l Limiter) *gin.Engine {
		router := gin.New()
		router.POST("/login", RateLimitMiddleware(l, 5, time.Minute, IPBasedKey, zap.NewNop()), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return router
	}

	rec := serve(newRouter(fakeLimiter{allowed: true}), httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(newRouter(fakeLimiter{allowed: false, retryAfter: 1500 * time.Millisecond}), httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	rec = serve(newRouter(fakeLimiter{err: errors.New("redis down")}), httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"http://app.example.com"}, []string{"GET", "POST"}, []string{"Content-Type"}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://app.example.com")
	rec := serve(router, req)
	assert.Equal(t, "http://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = serve(router, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://app.example.com")
	rec = serve(router, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLoggerMiddlewareSetsRequestID(t *testing.T) {
	router := gin.New()
	router.Use(LoggerMiddleware(zap.NewNop()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = serve(router, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}
