package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeinthehole/sitefeeds/server/internal/annotate"
	"github.com/codeinthehole/sitefeeds/server/internal/config"
)

// activityAtom is a trimmed github.com/{user}.atom document.
const activityAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <id>tag:github.com,2008:/gopher</id>
  <title>gopher's Activity</title>
  <updated>2024-05-01T10:00:00Z</updated>
  <entry>
    <id>tag:github.com,2008:PushEvent/1</id>
    <published>2024-05-01T09:00:00Z</published>
    <updated>2024-05-01T10:00:00Z</updated>
    <title>gopher pushed to main at gopher/site</title>
    <summary type="html">&lt;a href="/gopher/site"&gt;gopher/site&lt;/a&gt;</summary>
  </entry>
  <entry>
    <id>tag:github.com,2008:WatchEvent/2</id>
    <published>2024-04-30T08:00:00Z</published>
    <title>gopher starred x/y</title>
    <content type="html">&lt;a href="/x/y"&gt;x/y&lt;/a&gt;</content>
  </entry>
  <entry>
    <id>tag:github.com,2008:Undated/3</id>
    <title>undated</title>
    <summary>nothing here</summary>
  </entry>
</feed>`

func githubServer(t *testing.T, status int, body string, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHub_Fetch(t *testing.T) {
	var path string
	srv := githubServer(t, http.StatusOK, activityAtom, func(r *http.Request) { path = r.URL.Path })

	gh, err := NewGitHub(config.Source{Endpoint: srv.URL + "/"}, nil)
	require.NoError(t, err)

	items, err := gh.Fetch(context.Background(), "gopher")
	require.NoError(t, err)

	assert.Equal(t, "/gopher.atom", path)
	require.Len(t, items, 2, "undated entry should be skipped")

	assert.Contains(t, items[0].Summary, `href="https://github.com/gopher/site"`)
	assert.NotContains(t, items[0].Summary, `href="/`)
	assert.True(t, items[0].UpdatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))

	assert.Contains(t, items[1].Summary, `href="https://github.com/x/y"`)
	assert.True(t, items[1].UpdatedAt.Equal(time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)))
}

func TestGitHub_Fetch_CustomLinkBase(t *testing.T) {
	srv := githubServer(t, http.StatusOK, activityAtom, nil)

	gh, err := NewGitHub(config.Source{Endpoint: srv.URL}, annotate.New("", "https://ghe.example"))
	require.NoError(t, err)

	items, err := gh.Fetch(context.Background(), "gopher")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Contains(t, items[0].Summary, `href="https://ghe.example/gopher/site"`)
}

func TestGitHub_Fetch_EmptyFeed(t *testing.T) {
	srv := githubServer(t, http.StatusOK,
		`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><title>empty</title></feed>`, nil)

	gh, err := NewGitHub(config.Source{Endpoint: srv.URL}, nil)
	require.NoError(t, err)

	items, err := gh.Fetch(context.Background(), "gopher")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestGitHub_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"not found", http.StatusNotFound, "Not Found", "get atom feed: upstream error: status 404"},
		{"not a feed", http.StatusOK, "this is not xml", "parse atom"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := githubServer(t, tc.status, tc.body, nil)
			gh, err := NewGitHub(config.Source{Endpoint: srv.URL}, nil)
			require.NoError(t, err)

			_, err = gh.Fetch(context.Background(), "gopher")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.NotContains(t, err.Error(), "github")
		})
	}
}

func TestGitHub_Fetch_BasicAuth(t *testing.T) {
	t.Setenv("TEST_GH_PASSWORD", "s3cret")
	var user, pass string
	var ok bool
	srv := githubServer(t, http.StatusOK, activityAtom, func(r *http.Request) {
		user, pass, ok = r.BasicAuth()
	})

	src := config.Source{
		Endpoint: srv.URL,
		Auth:     config.AuthConfig{Mode: "basic", Username: "gopher", PasswordEnv: "TEST_GH_PASSWORD"},
	}
	gh, err := NewGitHub(src, nil)
	require.NoError(t, err)
	_, err = gh.Fetch(context.Background(), "gopher")
	require.NoError(t, err)

	assert.True(t, ok)
	assert.Equal(t, "gopher", user)
	assert.Equal(t, "s3cret", pass)
}

func TestGitHub_Fetch_APIKeyHeader(t *testing.T) {
	t.Setenv("TEST_GH_KEY", "k-1")
	var got string
	srv := githubServer(t, http.StatusOK, activityAtom, func(r *http.Request) {
		got = r.Header.Get("X-Api-Key")
	})

	src := config.Source{
		Endpoint: srv.URL,
		Auth:     config.AuthConfig{Mode: "apikey", Header: "X-Api-Key", KeyEnv: "TEST_GH_KEY"},
	}
	gh, err := NewGitHub(src, nil)
	require.NoError(t, err)
	_, err = gh.Fetch(context.Background(), "gopher")
	require.NoError(t, err)
	assert.Equal(t, "k-1", got)
}
