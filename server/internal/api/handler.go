package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/codeinthehole/sitefeeds/pkg/types"
)

// TweetSource returns a user's (cached) tweets.
type TweetSource interface {
	Get(ctx context.Context, username string) ([]types.Tweet, error)
	TTL() time.Duration
}

// ActivitySource returns a user's (cached) GitHub activity.
type ActivitySource interface {
	Get(ctx context.Context, username string) ([]types.Activity, error)
	TTL() time.Duration
}

// Counter reports how many entries the cache holds.
type Counter interface {
	Count() int
}

// Deps are the collaborators a Handler reads from.
type Deps struct {
	Tweets      TweetSource
	TwitterUser string
	GitHub      ActivitySource
	GitHubUser  string
	Cache       Counter
}

var validUsername = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	tweets TweetSource
	github ActivitySource
	cache  Counter
	mux    *http.ServeMux

	mu          sync.RWMutex
	twitterUser string
	githubUser  string
}

// New creates a Handler wired to deps and registers all routes.
func New(deps Deps) *Handler {
	h := &Handler{
		tweets:      deps.Tweets,
		github:      deps.GitHub,
		cache:       deps.Cache,
		mux:         http.NewServeMux(),
		twitterUser: deps.TwitterUser,
		githubUser:  deps.GitHubUser,
	}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/tweets", h.getTweets)
	h.mux.HandleFunc("/api/v1/tweets/", h.getTweets) // subtree, extracts {user}
	h.mux.HandleFunc("/api/v1/github", h.getActivity)
	h.mux.HandleFunc("/api/v1/github/", h.getActivity)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// SetDefaultUsers replaces the users served when a request names none.
// Empty values leave the current default unchanged.
func (h *Handler) SetDefaultUsers(twitterUser, githubUser string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if twitterUser != "" {
		h.twitterUser = twitterUser
	}
	if githubUser != "" {
		h.githubUser = githubUser
	}
}

func (h *Handler) defaults() (twitterUser, githubUser string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.twitterUser, h.githubUser
}

// --- route handlers ---------------------------------------------------------

// getTweets returns GET /api/v1/tweets[/{user}].
func (h *Handler) getTweets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	def, _ := h.defaults()
	user, ok := username(w, r.URL.Path, "/api/v1/tweets", def)
	if !ok {
		return
	}

	tweets, err := h.tweets.Get(r.Context(), user)
	if err != nil {
		slog.Warn("api: tweets fetch failed", "user", user, "err", err)
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, TweetsResponse{Username: user, Tweets: tweets})
}

// getActivity returns GET /api/v1/github[/{user}].
func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	_, def := h.defaults()
	user, ok := username(w, r.URL.Path, "/api/v1/github", def)
	if !ok {
		return
	}

	activity, err := h.github.Get(r.Context(), user)
	if err != nil {
		slog.Warn("api: github fetch failed", "user", user, "err", err)
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, ActivityResponse{Username: user, Activity: activity})
}

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tw, gh := h.defaults()
	resp := HealthResponse{
		Status: "ok",
		Sources: []SourceStatus{
			{Name: "twitter", DefaultUser: tw, TTLSeconds: int(h.tweets.TTL().Seconds())},
			{Name: "github", DefaultUser: gh, TTLSeconds: int(h.github.TTL().Seconds())},
		},
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if h.cache != nil {
		resp.CachedEntries = h.cache.Count()
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ----------------------------------------------------------------

// username extracts {user} from path below prefix, falling back to def.
// It writes a 400 and returns false when the name is not acceptable.
func username(w http.ResponseWriter, path, prefix, def string) (string, bool) {
	user := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if user == "" {
		user = def
	}
	if !validUsername.MatchString(user) {
		jsonErr(w, http.StatusBadRequest, "invalid username")
		return "", false
	}
	return user, true
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
