package research

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"news-shorts-pipeline/types"

	"github.com/vartanbeno/go-reddit/v2/reddit"
)

// RedditFetcher reads a subreddit's hot listing through the read-only API
type RedditFetcher struct {
	client  *reddit.Client
	cleaner *Cleaner
	limit   int
	minLen  int
	maxLen  int
}

// NewRedditFetcher builds a read-only client. baseURL overrides the API host when set.
func NewRedditFetcher(httpClient *http.Client, userAgent, baseURL string, cleaner *Cleaner, limit, minLen, maxLen int) (*RedditFetcher, error) {
	opts := []reddit.Opt{reddit.WithHTTPClient(httpClient)}
	if userAgent != "" {
		opts = append(opts, reddit.WithUserAgent(userAgent))
	}
	if baseURL != "" {
		opts = append(opts, reddit.WithBaseURL(baseURL))
	}
	client, err := reddit.NewReadonlyClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return &RedditFetcher{client: client, cleaner: cleaner, limit: limit, minLen: minLen, maxLen: maxLen}, nil
}

func (f *RedditFetcher) Fetch(ctx context.Context, src types.Source, seen map[string]bool) ([]types.NewsItem, error) {
	name := subredditName(src.URL)
	if name == "" {
		return nil, fmt.Errorf("cannot derive subreddit from %q", src.URL)
	}
	limit := f.limit
	if limit <= 0 {
		limit = 25
	}
	posts, _, err := f.client.Subreddit.HotPosts(ctx, name, &reddit.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("r/%s hot: %w", name, err)
	}

	var items []types.NewsItem
	for _, p := range posts {
		if p.Stickied || p.NSFW {
			continue
		}
		id := postURL(p)
		if id == "" || seen[id] {
			continue
		}
		title := f.cleaner.Clean(p.Title)
		summary := f.cleaner.Summary(p.Body)
		if title == "" || !SummaryFits(summary, f.minLen, f.maxLen) {
			continue
		}
		items = append(items, types.NewsItem{ID: id, Title: title, Summary: summary, Source: src.Name})
	}
	return items, nil
}

// postURL is the external link for link posts and the permalink for self posts
func postURL(p *reddit.Post) string {
	if p.URL != "" && !p.IsSelfPost {
		return p.URL
	}
	if strings.HasPrefix(p.Permalink, "http") {
		return p.Permalink
	}
	if p.Permalink != "" {
		return "https://www.reddit.com" + p.Permalink
	}
	return p.URL
}

// subredditName accepts "worldnews", "r/worldnews" or a full subreddit URL
func subredditName(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "/r/"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimPrefix(s, "r/")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}
