package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorsMiddleware(t *testing.T) {
	testCases := []struct {
		name           string
		allowedOrigin  string
		origin         string
		method         string
		expectedOrigin string
		expectedStatus int
	}{
		{
			name:           "ConfiguredOrigin",
			allowedOrigin:  "https://dashboard.example.com",
			origin:         "https://dashboard.example.com",
			method:         "GET",
			expectedOrigin: "https://dashboard.example.com",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "AllowAllMirrorsRequestOrigin",
			allowedOrigin:  "",
			origin:         "https://anything.example.com",
			method:         "GET",
			expectedOrigin: "https://anything.example.com",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "NoOriginNoCorsHeaders",
			allowedOrigin:  "",
			origin:         "",
			method:         "GET",
			expectedOrigin: "",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "PreflightShortCircuits",
			allowedOrigin:  "https://dashboard.example.com",
			origin:         "https://dashboard.example.com",
			method:         "OPTIONS",
			expectedOrigin: "https://dashboard.example.com",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			nextCalled := false
			handler := Cors(tc.allowedOrigin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tc.method, "/api/admin/me", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Equal(t, tc.expectedOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			if tc.expectedOrigin != "" {
				assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
			}
			if tc.method == "OPTIONS" {
				assert.False(t, nextCalled)
				assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Methods"))
			} else {
				assert.True(t, nextCalled)
			}
		})
	}
}
