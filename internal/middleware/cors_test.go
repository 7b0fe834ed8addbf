package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	cases := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantCreds  string
		wantStatus int
	}{
		{"wildcard echoes origin", []string{"*"}, "http://shop.test", http.MethodGet, "http://shop.test", "", http.StatusTeapot},
		{"explicit allows credentials", []string{"http://shop.test"}, "http://shop.test", http.MethodGet, "http://shop.test", "true", http.StatusTeapot},
		{"unlisted origin", []string{"http://shop.test"}, "http://evil.test", http.MethodGet, "", "", http.StatusTeapot},
		{"preflight short-circuits", []string{"*"}, "http://shop.test", http.MethodOptions, "http://shop.test", "", http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/session", nil)
			req.Header.Set("Origin", tc.origin)
			rr := httptest.NewRecorder()

			CORS(tc.allowed)(next).ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d", rr.Code, tc.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("allow-origin: got %q want %q", got, tc.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != tc.wantCreds {
				t.Fatalf("allow-credentials: got %q want %q", got, tc.wantCreds)
			}
		})
	}
}
