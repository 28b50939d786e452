package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeinthehole/sitefeeds/pkg/types"
	"github.com/codeinthehole/sitefeeds/server/internal/annotate"
	"github.com/codeinthehole/sitefeeds/server/internal/config"
)

// twitterTimeLayout is the created_at format of the v1 timeline API. The
// offset is always UTC and is matched literally.
const twitterTimeLayout = "Mon Jan 02 15:04:05 +0000 2006"

// rawTweet is the subset of a timeline status we read.
type rawTweet struct {
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// Twitter fetches a user's timeline.
type Twitter struct {
	endpoint string
	client   *http.Client
	ann      *annotate.Annotator
}

// NewTwitter returns a Twitter fetcher for src. ann may be nil, in which case
// the default link targets are used.
func NewTwitter(src config.Source, ann *annotate.Annotator) (*Twitter, error) {
	if _, err := url.Parse(src.Endpoint); err != nil {
		return nil, fmt.Errorf("twitter: parse endpoint: %w", err)
	}
	if ann == nil {
		ann = annotate.New("", "")
	}
	client, err := newHTTPClient(src)
	if err != nil {
		return nil, fmt.Errorf("twitter: build http client: %w", err)
	}
	return &Twitter{endpoint: src.Endpoint, client: client, ann: ann}, nil
}

// Fetch returns username's non-reply tweets, newest first as served.
//
// An API error object ({"error": ...}) yields an empty list, not an error,
// whatever the response status. Twitter sends those with 401 and 404 for
// protected or unknown accounts.
func (t *Twitter) Fetch(ctx context.Context, username string) ([]types.Tweet, error) {
	u, err := t.timelineURL(username)
	if err != nil {
		return nil, err
	}

	body, err := get(ctx, t.client, u, "application/json")
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			if msg, ok := apiError(se.Body); ok {
				slog.Warn("feed: twitter returned an error object",
					"user", username, "status", se.Code, "error", msg)
				return []types.Tweet{}, nil
			}
		}
		return nil, fmt.Errorf("get timeline: %w", err)
	}

	raw, err := decodeTimeline(body)
	if err != nil {
		return nil, err
	}

	out := make([]types.Tweet, 0, len(raw))
	for _, rt := range raw {
		if strings.HasPrefix(rt.Text, "@") {
			continue
		}
		created, err := time.Parse(twitterTimeLayout, rt.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", rt.CreatedAt, err)
		}
		out = append(out, types.Tweet{
			Text:      t.ann.HTMLify(rt.Text),
			CreatedAt: created.UTC(),
		})
	}
	slog.Debug("feed: fetched tweets", "user", username, "raw", len(raw), "kept", len(out))
	return out, nil
}

func (t *Twitter) timelineURL(username string) (string, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return "", fmt.Errorf("twitter: parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("screen_name", username)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodeTimeline accepts either a status array or an error object.
func decodeTimeline(body []byte) ([]rawTweet, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if msg, ok := apiError(trimmed); ok {
			slog.Warn("feed: twitter returned an error object", "error", msg)
			return nil, nil
		}
		return nil, fmt.Errorf("decode json: unexpected object response")
	}

	var raw []rawTweet
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return raw, nil
}

// apiError reports whether body is a JSON object with an "error" key and
// returns that key's raw value.
func apiError(body []byte) (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &obj); err != nil {
		return "", false
	}
	msg, ok := obj["error"]
	return string(msg), ok
}
