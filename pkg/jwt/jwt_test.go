package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"teamflow/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(secret, issuer string) *JWTService {
	return NewJWTService(config.JWTConfig{Secret: secret, Issuer: issuer, ExpireTime: time.Hour})
}

func TestIssueAndIdentity(t *testing.T) {
	svc := newTestService("secret", "teamflow")

	token, err := svc.IssueForUser(7, "alice")
	require.NoError(t, err)

	id, username, err := svc.Identity(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
	assert.Equal(t, "alice", username)

	_, err = svc.IssueForUser(0, "nobody")
	assert.Error(t, err)
}

func TestIdentityRejects(t *testing.T) {
	svc := newTestService("secret", "teamflow")
	token, err := svc.IssueForUser(7, "alice")
	require.NoError(t, err)

	expired := newTestService("secret", "teamflow")
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	tests := []struct {
		name  string
		svc   *JWTService
		token string
	}{
		{"empty", svc, ""},
		{"garbage", svc, "not.a.token"},
		{"wrong secret", newTestService("other", "teamflow"), token},
		{"wrong issuer", newTestService("secret", "someone-else"), token},
		{"expired", expired, token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.svc.Identity(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header map[string]string
		want   string
	}{
		{"bearer header", "/x?token=q", map[string]string{"Authorization": "Bearer h"}, "h"},
		{"malformed header wins", "/x?token=q", map[string]string{"Authorization": "Basic abc"}, ""},
		{"query", "/x?token=q", nil, "q"},
		{"subprotocol", "/x", map[string]string{"Sec-WebSocket-Protocol": "Bearer p"}, "p"},
		{"none", "/x", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, TokenFromRequest(r))
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestService("secret", "teamflow")
	token, err := svc.IssueForUser(3, "carol")
	require.NoError(t, err)

	engine := gin.New()
	engine.GET("/me", svc.AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "name": GetUsername(c)})
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication required")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token=bogus", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token")

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":3,"name":"carol"}`, w.Body.String())
}
