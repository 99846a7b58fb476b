package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/botcentral/internal/config"
)

func newContext(req *http.Request) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestReadBearer(t *testing.T) {
	m := NewManager(config.Config{})
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer bat_abc", want: "bat_abc", ok: true},
		{header: "bearer  bat_abc ", want: "bat_abc", ok: true},
		{header: "Basic dXNlcjpwYXNz", ok: false},
		{header: "Bearer ", ok: false},
		{header: "", ok: false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		got, ok := m.ReadBearer(newContext(req))
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ReadBearer(%q) = %q,%v want %q,%v", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}

func TestReadToken(t *testing.T) {
	m := NewManager(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "raw-session"})

	got, ok := m.ReadToken(newContext(req))
	if !ok || got != "raw-session" {
		t.Fatalf("expected cookie token, got %q,%v", got, ok)
	}

	_, ok = m.ReadToken(newContext(httptest.NewRequest(http.MethodGet, "/", nil)))
	if ok {
		t.Fatal("expected no token without cookie")
	}
}
