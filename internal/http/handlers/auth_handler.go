// Auth service HTTP handlers.
//
// This file exposes the token-issuing endpoints:
//   - POST /token   (form-encoded credentials -> bearer token)
//   - GET  /verify  (Authorization header -> username)
//
// Verification is stateless and side-effect free, so this service can be
// replicated freely; it is the only process holding the signing secret.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rag-chatbot/internal/token"
)

// TokenService issues and verifies identity tokens.
type TokenService interface {
	Issue(ctx context.Context, username, password string) (string, error)
	Verify(authorization string) (string, error)
}

// AuthHandlers groups the auth service endpoints.
type AuthHandlers struct {
	svc TokenService
}

// NewAuth constructs AuthHandlers bound to the given token service.
func NewAuth(svc TokenService) *AuthHandlers {
	return &AuthHandlers{svc: svc}
}

// TokenResponse is the success body of POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// VerifyResponse is the success body of GET /verify.
type VerifyResponse struct {
	Username string `json:"username"`
}

// PostToken exchanges form-encoded credentials for a signed bearer token.
// Bad credentials answer 401; the response never distinguishes an unknown
// user from a wrong password.
func (h *AuthHandlers) PostToken(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password are required")
		return
	}

	tok, err := h.svc.Issue(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, token.ErrInvalidCredentials) {
			c.Header("WWW-Authenticate", "Bearer")
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "incorrect username or password")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, TokenResponse{AccessToken: tok, TokenType: "bearer"})
}

// GetVerify validates the Authorization header and returns the subject.
// All verification failures answer 401 with a code describing the cause.
func (h *AuthHandlers) GetVerify(c *gin.Context) {
	username, err := h.svc.Verify(c.GetHeader("Authorization"))
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
		return
	}
	ok(c, http.StatusOK, VerifyResponse{Username: username})
}
