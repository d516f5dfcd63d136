package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"billing/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/write", RequireRole(testSecret, RoleAdmin, RoleCashier), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return r
}

func TestRequireRole(t *testing.T) {
	valid := jwt.MapClaims{"sub": "user-1", "role": RoleCashier, "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, response.CodeUnauthorized},
		{"wrong scheme", "Token abc", http.StatusUnauthorized, response.CodeUnauthorized},
		{"bad signature", "Bearer " + signToken(t, []byte("other"), valid), http.StatusUnauthorized, response.CodeUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "u", "role": RoleAdmin, "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized, response.CodeUnauthorized},
		{"no role", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "u"}), http.StatusForbidden, response.CodeForbidden},
		{"wrong role", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "u", "role": RoleAuditor}), http.StatusForbidden, response.CodeForbidden},
		{"allowed", "Bearer " + signToken(t, testSecret, valid), http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/write", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code == "" {
				assert.Equal(t, "user-1", w.Body.String())
				return
			}
			var body response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestRequireRole_Cookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/write", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: signToken(t, testSecret, jwt.MapClaims{"sub": "cookie-user", "role": RoleAdmin})})
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cookie-user", w.Body.String())
}
