package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-mutabakat/internal/services"
)

func newRouter(buf *bytes.Buffer, trustProxy bool, h http.HandlerFunc) *mux.Router {
	logger := services.NewLogrusLogger("test", logrus.DebugLevel, true, buf)
	r := mux.NewRouter()
	r.Use(ClientInfo(trustProxy))
	r.Use(RecoverPanic(logger))
	r.Use(Logging(logger))
	r.HandleFunc("/api/reconciliation/{code}", h)
	return r
}

func TestClientInfo_StoresRequestDetails(t *testing.T) {
	var gotIP, gotUA, gotID string
	r := newRouter(&bytes.Buffer{}, true, func(w http.ResponseWriter, r *http.Request) {
		gotIP = ClientIP(r.Context())
		gotUA = UserAgent(r.Context())
		gotID = RequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/reconciliation/abc", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", strings.Repeat("x", 600))
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "203.0.113.9", gotIP)
	assert.Len(t, gotUA, maxUserAgentLength)
	assert.Equal(t, "req-1", gotID)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestLogging_UsesRouteTemplate(t *testing.T) {
	var buf bytes.Buffer
	r := newRouter(&buf, false, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	code := strings.Repeat("ab", 32)
	req := httptest.NewRequest(http.MethodGet, "/api/reconciliation/"+code, nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request handled", entry["msg"])
	assert.Equal(t, "/api/reconciliation/{code}", entry["route"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.NotContains(t, buf.String(), code)
}

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	r := newRouter(&buf, false, func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reconciliation/abc", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestClientInfo_TruncatesUserAgentOnRuneBoundary(t *testing.T) {
	var gotUA string
	r := newRouter(&bytes.Buffer{}, false, func(w http.ResponseWriter, r *http.Request) {
		gotUA = UserAgent(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/reconciliation/abc", nil)
	req.Header.Set("User-Agent", strings.Repeat("x", maxUserAgentLength-1)+"ğüş")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, utf8.ValidString(gotUA))
	assert.Equal(t, strings.Repeat("x", maxUserAgentLength-1), gotUA)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"kısa", 10, "kısa"},
		{"abcdef", 3, "abc"},
		{"aşb", 2, "a"},
		{"aşb", 3, "aş"},
		{"şşş", 1, ""},
		{"", 0, ""},
	}
	for _, tt := range tests {
		got := Truncate(tt.in, tt.max)
		assert.Equal(t, tt.want, got, "Truncate(%q, %d)", tt.in, tt.max)
		assert.True(t, utf8.ValidString(got))
	}
}
