package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/conversation"
	"github.com/zhouzirui/elio-helpdesk/client/internal/model/persona"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/attachment"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
)

type nopBackend struct{}

func (nopBackend) History(context.Context, string) ([]conversation.Entry, error) {
	return nil, nil
}

func (nopBackend) Chat(context.Context, conversation.Report) (conversation.Reply, error) {
	return conversation.Reply{Text: "ok"}, nil
}

func newTestRouter() http.Handler {
	return NewRouter(RouterConfig{
		Session:        session.New(nopBackend{}),
		Personas:       persona.NewCatalog(persona.Seed()),
		Limits:         attachment.DefaultLimits(),
		AllowedOrigins: []string{"http://shop.test"},
		Logger:         zerolog.Nop(),
	})
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/personas", http.StatusOK},
		{http.MethodGet, "/api/session", http.StatusOK},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, resp.Code)
		}
	}
}

func TestRouterAppliesCORS(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/session/history", nil)
	req.Header.Set("Origin", "http://shop.test")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://shop.test" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}
