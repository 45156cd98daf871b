package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/authkey/http/dto"
	"github.com/allisson/authkeys/internal/authkey/usecase/mocks"
)

var testPolicy = Policy{
	Operation:       "project_create",
	Action:          "project.create",
	Level:           domain.LevelHigh,
	SuperuserBypass: true,
}

func setupGuardRouter(t *testing.T, policy Policy) (*gin.Engine, *mocks.MockVerificationUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	verifier := &mocks.MockVerificationUseCase{}
	guard := NewGuard(
		verifier,
		NewHeaderIdentityResolver("X-Forwarded-User", "X-Forwarded-Superuser"),
		nil,
		newTestLogger(),
		"staff",
		"/",
	)

	router := gin.New()
	protected := func(c *gin.Context) {
		var body struct {
			Name string `json:"name"`
		}
		_ = c.ShouldBindBodyWith(&body, binding.JSON)
		c.JSON(http.StatusOK, gin.H{"done": true, "name": body.Name})
	}
	router.GET("/projects/:id", guard.Require(policy), protected)
	router.POST("/projects/:id", guard.Require(policy), protected)

	return router, verifier
}

func newGuardRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestGuard_Require(t *testing.T) {
	t.Run("Success_UnprotectedMethodPassesThrough", func(t *testing.T) {
		router, verifier := setupGuardRouter(t, testPolicy)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newGuardRequest(http.MethodGet, "/projects/7", ""))

		assert.Equal(t, http.StatusOK, w.Code)
		verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("Success_GrantedRunsHandlerWithBodyIntact", func(t *testing.T) {
		router, verifier := setupGuardRouter(t, testPolicy)
		keyID := uuid.Must(uuid.NewV7())
		level := domain.LevelCritical

		verifier.On("Verify", mock.Anything, mock.MatchedBy(func(in *domain.VerifyInput) bool {
			return in.PresentedKey == "body-key" &&
				in.Action == "project.create" &&
				in.RequiredLevel == domain.LevelHigh &&
				*in.Actor == "alice" &&
				!in.Bypass &&
				in.Target.ID == "7" &&
				in.Target.Kind == "project_create" &&
				in.UserAgent == "guard-test"
		})).Return(&domain.VerifyResult{OK: true, KeyID: &keyID, KeyLevel: &level}, nil).Once()

		req := newGuardRequest(http.MethodPost, "/projects/7", `{"auth_key":"body-key","name":"apollo"}`)
		req.Header.Set("Authorization", "Key header-key")
		req.Header.Set("X-Forwarded-User", "alice")
		req.Header.Set("User-Agent", "guard-test")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"done":true,"name":"apollo"}`, w.Body.String())
		verifier.AssertExpectations(t)
	})

	t.Run("Success_ReservedMetadataKeysDropped", func(t *testing.T) {
		router, verifier := setupGuardRouter(t, testPolicy)

		verifier.On("Verify", mock.Anything, mock.MatchedBy(func(in *domain.VerifyInput) bool {
			_, hasBypass := in.Metadata[domain.MetaBypass]
			_, hasReason := in.Metadata[domain.MetaReason]
			_, hasRequestID := in.Metadata[domain.MetaRequestID]
			return !hasBypass && !hasReason && !hasRequestID && in.Metadata["ticket"] == "OPS-7"
		})).Return(&domain.VerifyResult{OK: true}, nil).Once()

		body := `{"auth_key":"body-key","metadata":{"bypass":true,"reason":"expired",` +
			`"request_id":"forged","ticket":"OPS-7"}}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newGuardRequest(http.MethodPost, "/projects/7", body))

		assert.Equal(t, http.StatusOK, w.Code)
		verifier.AssertExpectations(t)
	})

	t.Run("Success_SuperuserBypassRequested", func(t *testing.T) {
		router, verifier := setupGuardRouter(t, testPolicy)

		verifier.On("Verify", mock.Anything, mock.MatchedBy(func(in *domain.VerifyInput) bool {
			return in.Bypass && *in.Actor == "root" && in.PresentedKey == ""
		})).Return(&domain.VerifyResult{OK: true, Bypass: true}, nil).Once()

		req := newGuardRequest(http.MethodPost, "/projects/7", "")
		req.Header.Set("X-Forwarded-User", "root")
		req.Header.Set("X-Forwarded-Superuser", "true")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		verifier.AssertExpectations(t)
	})

	t.Run("Success_BypassDisabledByPolicy", func(t *testing.T) {
		policy := testPolicy
		policy.SuperuserBypass = false
		router, verifier := setupGuardRouter(t, policy)

		verifier.On("Verify", mock.Anything, mock.MatchedBy(func(in *domain.VerifyInput) bool {
			return !in.Bypass
		})).Return(&domain.VerifyResult{OK: true}, nil).Once()

		req := newGuardRequest(http.MethodPost, "/projects/7", "")
		req.Header.Set("X-Forwarded-User", "root")
		req.Header.Set("X-Forwarded-Superuser", "true")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		verifier.AssertExpectations(t)
	})

	t.Run("Denied_ProgrammaticCallerGetsJSON", func(t *testing.T) {
		router, verifier := setupGuardRouter(t, testPolicy)
		level := domain.LevelMedium

		verifier.On("Verify", mock.Anything, mock.Anything).Return(&domain.VerifyResult{
			Reason:        domain.ReasonInsufficientLevel,
			KeyLevel:      &level,
			RequiredLevel: domain.LevelHigh,
		}, nil).Once()

		req := newGuardRequest(http.MethodPost, "/projects/7", "")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		req.Header.Set("X-Auth-Key", "weak-key")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Key realm=staff, required_level=High", w.Header().Get("WWW-Authenticate"))

		var response dto.DenialResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.OK)
		assert.Equal(t, "insufficient_level", response.Error)
		assert.Equal(t, "Insufficient authorization key level (required: High, key: Medium).", response.Message)
		assert.Equal(t, 30, response.RequiredLevel)
		assert.Equal(t, "High", response.RequiredLevelName)
		require.NotNil(t, response.KeyLevel)
		assert.Equal(t, 20, *response.KeyLevel)
		assert.Equal(t, "Medium", *response.KeyLevelName)
	})

	t.Run("Denied_Return403PolicyOmitsKeyLevelWithoutMatch", func(t *testing.T) {
		policy := testPolicy
		policy.Return403 = true
		router, verifier := setupGuardRouter(t, policy)

		verifier.On("Verify", mock.Anything, mock.Anything).Return(&domain.VerifyResult{
			Reason:        domain.ReasonMissingOrInvalid,
			RequiredLevel: domain.LevelHigh,
		}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newGuardRequest(http.MethodPost, "/projects/7", ""))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NotContains(t, w.Body.String(), "key_level")
		assert.Contains(t, w.Body.String(), "Authorization key required or invalid.")
	})

	t.Run("Denied_BrowserRedirectedToReferer", func(t *testing.T) {
		router, verifier := setupGuardRouter(t, testPolicy)

		verifier.On("Verify", mock.Anything, mock.Anything).Return(&domain.VerifyResult{
			Reason:        domain.ReasonExpired,
			RequiredLevel: domain.LevelHigh,
		}, nil).Once()

		req := newGuardRequest(http.MethodPost, "/projects/7", "")
		req.Host = "staff.example"
		req.Header.Set("Referer", "https://staff.example/projects/7/edit?tab=2")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/projects/7/edit?tab=2", w.Header().Get("Location"))
		assert.Equal(t, "Key realm=staff, required_level=High", w.Header().Get("WWW-Authenticate"))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, FlashCookie, cookies[0].Name)
		flash, err := url.QueryUnescape(cookies[0].Value)
		require.NoError(t, err)
		assert.Equal(t, "Authorization key expired.", flash)
	})

	t.Run("Denied_BrowserForeignRefererUsesFallback", func(t *testing.T) {
		router, verifier := setupGuardRouter(t, testPolicy)

		verifier.On("Verify", mock.Anything, mock.Anything).Return(&domain.VerifyResult{
			Reason:        domain.ReasonExhausted,
			RequiredLevel: domain.LevelHigh,
		}, nil).Once()

		req := newGuardRequest(http.MethodPost, "/projects/7", "")
		req.Host = "staff.example"
		req.Header.Set("Referer", "https://evil.example/phish")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("Error_VerificationUnavailableFailsClosed", func(t *testing.T) {
		router, verifier := setupGuardRouter(t, testPolicy)

		verifier.On("Verify", mock.Anything, mock.Anything).Return(nil, errors.New("database down")).Once()

		req := newGuardRequest(http.MethodPost, "/projects/7", "")
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "verification_unavailable")
		assert.NotContains(t, w.Body.String(), "done")
	})

	t.Run("Error_VerificationUnavailableBrowserRedirect", func(t *testing.T) {
		router, verifier := setupGuardRouter(t, testPolicy)

		verifier.On("Verify", mock.Anything, mock.Anything).Return(nil, errors.New("database down")).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newGuardRequest(http.MethodPost, "/projects/7", ""))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})
}

func TestExtractKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		target string
		body   string
		form   bool
		header map[string]string
		want   string
	}{
		{
			name:   "json body wins",
			target: "/?auth_key=query",
			body:   `{"auth_key":"body"}`,
			header: map[string]string{"Authorization": "Key header", "X-Auth-Key": "custom"},
			want:   "body",
		},
		{
			name:   "form body wins",
			target: "/?auth_key=query",
			body:   "auth_key=form",
			form:   true,
			header: map[string]string{"Authorization": "Key header"},
			want:   "form",
		},
		{
			name:   "authorization key scheme",
			target: "/?auth_key=query",
			header: map[string]string{"Authorization": "Key header", "X-Auth-Key": "custom"},
			want:   "header",
		},
		{
			name:   "authorization bearer scheme case insensitive",
			target: "/",
			header: map[string]string{"Authorization": "BEARER bearer-token"},
			want:   "bearer-token",
		},
		{
			name:   "malformed authorization falls through to custom header",
			target: "/",
			header: map[string]string{"Authorization": "Key a b", "X-Auth-Key": "custom"},
			want:   "custom",
		},
		{
			name:   "unknown scheme falls through to query",
			target: "/?auth_key=query",
			header: map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			want:   "query",
		},
		{
			name:   "empty body field falls through",
			target: "/",
			body:   `{"auth_key":""}`,
			header: map[string]string{"X-Auth-Key": "custom"},
			want:   "custom",
		},
		{
			name:   "nothing presented",
			target: "/",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			switch {
			case tt.form:
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			case tt.body != "":
				req.Header.Set("Content-Type", "application/json")
			}
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			c.Request = req

			assert.Equal(t, tt.want, ExtractKey(c))
		})
	}
}

func TestIsProgrammatic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		header map[string]string
		policy Policy
		want   bool
	}{
		{name: "browser", header: map[string]string{"Accept": "text/html"}, want: false},
		{name: "xhr", header: map[string]string{"X-Requested-With": "xmlhttprequest"}, want: true},
		{name: "auth request", header: map[string]string{"X-Auth-Request": "1"}, want: true},
		{name: "json accept", header: map[string]string{"Accept": "application/json"}, want: true},
		{name: "return 403 policy", policy: Policy{Return403: true}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := createTestContext(http.MethodPost, "/", nil)
			for k, v := range tt.header {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, IsProgrammatic(c, tt.policy))
		})
	}
}
