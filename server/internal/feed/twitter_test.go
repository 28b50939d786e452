package feed

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeinthehole/sitefeeds/server/internal/config"
)

// timeline is a trimmed user_timeline.json response.
const timeline = `[
  {"id": 3, "text": "Reading http://golang.org #go", "created_at": "Wed Aug 27 13:08:45 +0000 2008"},
  {"id": 2, "text": "@bob thanks for the tip", "created_at": "Wed Aug 27 12:00:00 +0000 2008"},
  {"id": 1, "text": "Hello @alice", "created_at": "Tue Aug 26 09:30:00 +0000 2008"}
]`

func twitterServer(t *testing.T, status int, body string, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTwitter(t *testing.T, src config.Source) *Twitter {
	t.Helper()
	tw, err := NewTwitter(src, nil)
	require.NoError(t, err)
	return tw
}

func TestTwitter_Fetch(t *testing.T) {
	var gotQuery string
	srv := twitterServer(t, http.StatusOK, timeline, func(r *http.Request) {
		gotQuery = r.URL.Query().Get("screen_name")
	})

	tweets, err := newTwitter(t, config.Source{Endpoint: srv.URL + "/timeline.json"}).
		Fetch(context.Background(), "gopher")
	require.NoError(t, err)

	assert.Equal(t, "gopher", gotQuery)
	require.Len(t, tweets, 2, "reply should be skipped")

	assert.Equal(t,
		`Reading <a href="http://golang.org">http://golang.org</a> <a href="http://twitter.com/#!/search/%23go">#go</a>`,
		tweets[0].Text)
	assert.True(t, tweets[0].CreatedAt.Equal(time.Date(2008, 8, 27, 13, 8, 45, 0, time.UTC)))

	assert.Equal(t, `Hello <a href="http://twitter.com/alice">@alice</a>`, tweets[1].Text)
	assert.Equal(t, time.UTC, tweets[1].CreatedAt.Location())
}

func TestTwitter_Fetch_ErrorObjectIsEmpty(t *testing.T) {
	srv := twitterServer(t, http.StatusOK, `{"error": "Not authorized", "request": "/statuses/user_timeline.json"}`, nil)

	tweets, err := newTwitter(t, config.Source{Endpoint: srv.URL}).Fetch(context.Background(), "gopher")
	require.NoError(t, err)
	assert.Empty(t, tweets)
}

func TestTwitter_Fetch_ErrorObjectWithErrorStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound} {
		srv := twitterServer(t, status, `{"error": "Not authorized.", "request": "/statuses/user_timeline.json"}`, nil)

		tweets, err := newTwitter(t, config.Source{Endpoint: srv.URL}).Fetch(context.Background(), "protected")
		require.NoError(t, err, "status %d", status)
		assert.NotNil(t, tweets)
		assert.Empty(t, tweets)
	}
}

func TestTwitter_Fetch_OnlyReplies(t *testing.T) {
	srv := twitterServer(t, http.StatusOK, `[{"text": "@a hi", "created_at": "not even a date"}]`, nil)

	tweets, err := newTwitter(t, config.Source{Endpoint: srv.URL}).Fetch(context.Background(), "gopher")
	require.NoError(t, err)
	assert.NotNil(t, tweets)
	assert.Empty(t, tweets)
}

func TestTwitter_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"non-200", http.StatusServiceUnavailable, `[]`, "status 503"},
		{"malformed json", http.StatusOK, `[{"text":`, "decode json"},
		{"unexpected object", http.StatusOK, `{"statuses": []}`, "unexpected object"},
		{"bad created_at", http.StatusOK, `[{"text": "hi", "created_at": "yesterday"}]`, "parse created_at"},
		{"non-utc offset", http.StatusOK, `[{"text": "hi", "created_at": "Wed Aug 27 13:08:45 +0100 2008"}]`, "parse created_at"},
		{"401 without error object", http.StatusUnauthorized, `Unauthorized`, "status 401"},
		{"404 with other object", http.StatusNotFound, `{"errors": [{"code": 34}]}`, "status 404"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := twitterServer(t, tc.status, tc.body, nil)
			_, err := newTwitter(t, config.Source{Endpoint: srv.URL}).Fetch(context.Background(), "gopher")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.NotContains(t, err.Error(), "gopher")
		})
	}
}

func TestTwitter_Fetch_Non200IsUpstreamError(t *testing.T) {
	srv := twitterServer(t, http.StatusBadGateway, "", nil)
	_, err := newTwitter(t, config.Source{Endpoint: srv.URL}).Fetch(context.Background(), "gopher")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestTwitter_Fetch_Unreachable(t *testing.T) {
	srv := twitterServer(t, http.StatusOK, timeline, nil)
	endpoint := srv.URL
	srv.Close()

	_, err := newTwitter(t, config.Source{Endpoint: endpoint}).Fetch(context.Background(), "gopher")
	assert.Error(t, err)
}

func TestTwitter_Fetch_KeepsExistingQuery(t *testing.T) {
	var q map[string][]string
	srv := twitterServer(t, http.StatusOK, `[]`, func(r *http.Request) { q = r.URL.Query() })

	_, err := newTwitter(t, config.Source{Endpoint: srv.URL + "?count=20"}).Fetch(context.Background(), "gopher")
	require.NoError(t, err)
	assert.Equal(t, []string{"20"}, q["count"])
	assert.Equal(t, []string{"gopher"}, q["screen_name"])
}

func TestTwitter_Fetch_BearerAuth(t *testing.T) {
	t.Setenv("TEST_TWITTER_TOKEN", "tok123")
	var auth, ua string
	srv := twitterServer(t, http.StatusOK, `[]`, func(r *http.Request) {
		auth = r.Header.Get("Authorization")
		ua = r.Header.Get("User-Agent")
	})

	src := config.Source{
		Endpoint: srv.URL,
		Auth:     config.AuthConfig{Mode: "bearer", TokenEnv: "TEST_TWITTER_TOKEN"},
	}
	_, err := newTwitter(t, src).Fetch(context.Background(), "gopher")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok123", auth)
	assert.Equal(t, userAgent, ua)
}

func TestNewTwitter_BadCAFile(t *testing.T) {
	_, err := NewTwitter(config.Source{Endpoint: "https://example.com", TLS: config.TLSConfig{CAFile: filepath.Join(t.TempDir(), "missing.pem")}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read ca file")

	junk := filepath.Join(t.TempDir(), "junk.pem")
	require.NoError(t, os.WriteFile(junk, []byte("not a cert"), 0o600))
	_, err = NewTwitter(config.Source{Endpoint: "https://example.com", TLS: config.TLSConfig{CAFile: junk}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid certs")
}

func TestTwitter_Fetch_TrustsCAFile(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(timeline))
	}))
	defer srv.Close()

	// Without the server's CA the handshake fails.
	_, err := newTwitter(t, config.Source{Endpoint: srv.URL}).Fetch(context.Background(), "gopher")
	require.Error(t, err)

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(caFile, caPEM, 0o600))

	src := config.Source{Endpoint: srv.URL, TLS: config.TLSConfig{CAFile: caFile}}
	tweets, err := newTwitter(t, src).Fetch(context.Background(), "gopher")
	require.NoError(t, err)
	assert.Len(t, tweets, 2)
}

func TestNewTwitter_BadEndpoint(t *testing.T) {
	_, err := NewTwitter(config.Source{Endpoint: "http://[::1"}, nil)
	assert.Error(t, err)
}
