package feed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/codeinthehole/sitefeeds/pkg/types"
	"github.com/codeinthehole/sitefeeds/server/internal/annotate"
	"github.com/codeinthehole/sitefeeds/server/internal/config"
)

// GitHub fetches a user's public activity Atom feed.
type GitHub struct {
	endpoint string
	client   *http.Client
	ann      *annotate.Annotator
}

// NewGitHub returns a GitHub fetcher for src. ann may be nil.
func NewGitHub(src config.Source, ann *annotate.Annotator) (*GitHub, error) {
	if _, err := url.Parse(src.Endpoint); err != nil {
		return nil, fmt.Errorf("github: parse endpoint: %w", err)
	}
	if ann == nil {
		ann = annotate.New("", "")
	}
	client, err := newHTTPClient(src)
	if err != nil {
		return nil, fmt.Errorf("github: build http client: %w", err)
	}
	return &GitHub{
		endpoint: strings.TrimSuffix(src.Endpoint, "/"),
		client:   client,
		ann:      ann,
	}, nil
}

// Fetch returns the entries of {endpoint}/{username}.atom in feed order.
// Entries without an updated or published time are skipped.
func (g *GitHub) Fetch(ctx context.Context, username string) ([]types.Activity, error) {
	u := g.endpoint + "/" + url.PathEscape(username) + ".atom"

	body, err := get(ctx, g.client, u, "application/atom+xml")
	if err != nil {
		return nil, fmt.Errorf("get atom feed: %w", err)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse atom: %w", err)
	}

	out := make([]types.Activity, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		ts := entryTime(item)
		if ts.IsZero() {
			slog.Debug("feed: skipping github entry without timestamp", "user", username, "id", item.GUID)
			continue
		}
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		out = append(out, types.Activity{
			Summary:   g.ann.AnchorGitHubLinks(summary),
			UpdatedAt: ts,
		})
	}
	slog.Debug("feed: fetched github activity", "user", username, "entries", len(out))
	return out, nil
}

func entryTime(item *gofeed.Item) time.Time {
	switch {
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	default:
		return time.Time{}
	}
}
