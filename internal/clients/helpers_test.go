package clients

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{
	ClientID:     "client-id",
	ClientSecret: "client-secret",
	UserAgent:    "reddit-mcp-test/1.0",
}

type stubReddit struct {
	server        *httptest.Server
	tokenRequests atomic.Int32
	apiRequests   atomic.Int32
	api           http.HandlerFunc
	lastRequest   atomic.Pointer[http.Request]
	lastForm      atomic.Pointer[map[string][]string]
}

// newStubReddit serves a token endpoint at /api/v1/access_token and hands
// every other path to api.
func newStubReddit(t *testing.T, api http.HandlerFunc) *stubReddit {
	t.Helper()
	s := &stubReddit{api: api}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		s.tokenRequests.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "token-" + time.Now().Format("150405.000000000"),
			"token_type":   "bearer",
			"expires_in":   3600,
			"scope":        "*",
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.apiRequests.Add(1)
		if r.Method == http.MethodPost {
			assert.NoError(t, r.ParseForm())
			form := map[string][]string(r.PostForm)
			s.lastForm.Store(&form)
		}
		s.lastRequest.Store(r)
		s.api(w, r)
	})
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func (s *stubReddit) client(t *testing.T, clock Clock) *RedditClient {
	t.Helper()
	rc, err := NewRedditClient(testCreds, Options{
		AuthURL:    s.server.URL + "/api/v1/access_token",
		APIURL:     s.server.URL,
		HTTPClient: s.server.Client(),
		Clock:      clock,
	})
	require.NoError(t, err)
	return rc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func listing(children ...map[string]any) map[string]any {
	things := make([]map[string]any, 0, len(children))
	for _, c := range children {
		things = append(things, map[string]any{"kind": "t3", "data": c})
	}
	return map[string]any{"kind": "Listing", "data": map[string]any{"after": nil, "children": things}}
}
