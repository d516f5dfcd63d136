package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"billing/internal/config"
	"billing/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func testConfig() *config.Config {
	return &config.Config{
		GinMode:     "test",
		JWTSecret:   "router-secret",
		CORSOrigins: []string{"http://localhost:5173"},
		LockWait:    time.Second,
		RetryDelay:  time.Millisecond,
	}
}

func TestRouter(t *testing.T) {
	a := NewWithDB(testConfig(), testutil.NewDB(t))
	t.Cleanup(a.Hub.Stop)
	router := a.Router()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/swagger/doc.json", http.StatusOK},
		{http.MethodGet, "/api/invoices", http.StatusUnauthorized},
		{http.MethodPost, "/api/invoices/1/payments", http.StatusUnauthorized},
		{http.MethodGet, "/api/reconciliation/mismatches", http.StatusUnauthorized},
		{http.MethodGet, "/ws", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	a := NewWithDB(testConfig(), testutil.NewDB(t))
	t.Cleanup(a.Hub.Stop)

	req := httptest.NewRequest(http.MethodOptions, "/api/invoices", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
