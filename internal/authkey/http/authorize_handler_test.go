package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/authkey/http/dto"
	"github.com/allisson/authkeys/internal/authkey/usecase/mocks"
)

func setupAuthorizeRouter(t *testing.T) (*gin.Engine, *mocks.MockVerificationUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	verifier := &mocks.MockVerificationUseCase{}
	logger := newTestLogger()
	guard := NewGuard(
		verifier,
		NewHeaderIdentityResolver("X-Forwarded-User", "X-Forwarded-Superuser"),
		nil,
		logger,
		"staff",
		"/",
	)
	handler := NewAuthorizeHandler(guard, DefaultPolicyTable(), logger)

	router := gin.New()
	router.POST("/v1/authorize/:operation", handler.AuthorizeHandler)

	return router, verifier
}

func TestAuthorizeHandler_AuthorizeHandler(t *testing.T) {
	t.Run("Success_Granted", func(t *testing.T) {
		router, verifier := setupAuthorizeRouter(t)
		keyID := uuid.Must(uuid.NewV7())

		verifier.On("Verify", mock.Anything, mock.MatchedBy(func(in *domain.VerifyInput) bool {
			return in.Action == "application_unapprove" &&
				in.RequiredLevel == domain.LevelCritical &&
				in.PresentedKey == "secret" &&
				in.Target == domain.TargetRef{Kind: "application", ID: "12", Display: "Jane Doe"} &&
				in.Metadata["source"] == "proxy"
		})).Return(&domain.VerifyResult{OK: true, KeyID: &keyID}, nil).Once()

		body := `{"auth_key":"secret","target":{"kind":"application","id":"12","display":"Jane Doe"},` +
			`"metadata":{"source":"proxy"}}`
		req := httptest.NewRequest(http.MethodPost, "/v1/authorize/application_unapprove", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.AuthorizeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.OK)
		assert.False(t, response.Bypass)
		assert.Equal(t, keyID.String(), *response.KeyID)
		verifier.AssertExpectations(t)
	})

	t.Run("Denied_AlwaysJSON", func(t *testing.T) {
		router, verifier := setupAuthorizeRouter(t)

		verifier.On("Verify", mock.Anything, mock.Anything).Return(&domain.VerifyResult{
			Reason:        domain.ReasonActionNotAllowed,
			RequiredLevel: domain.LevelLow,
		}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/v1/authorize/invite_cancel", nil)
		req.Header.Set("Authorization", "Key secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Key realm=staff, required_level=Low", w.Header().Get("WWW-Authenticate"))
		assert.Contains(t, w.Body.String(), "action_not_allowed")
	})

	t.Run("Error_UnknownOperation", func(t *testing.T) {
		router, verifier := setupAuthorizeRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/authorize/launch_rockets", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("Error_Unavailable", func(t *testing.T) {
		router, verifier := setupAuthorizeRouter(t)

		verifier.On("Verify", mock.Anything, mock.Anything).Return(nil, errors.New("database down")).Once()

		req := httptest.NewRequest(http.MethodPost, "/v1/authorize/project_create", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "verification_unavailable")
	})
}
