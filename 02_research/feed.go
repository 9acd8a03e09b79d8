package research

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"news-shorts-pipeline/types"

	"github.com/mmcdole/gofeed"
)

// FeedFetcher reads RSS / Atom sources
type FeedFetcher struct {
	client    *http.Client
	userAgent string
	cleaner   *Cleaner
	limit     int
	minLen    int
	maxLen    int
}

func (f *FeedFetcher) Fetch(ctx context.Context, src types.Source, seen map[string]bool) ([]types.NewsItem, error) {
	fp := gofeed.NewParser()
	fp.Client = f.client
	fp.UserAgent = f.userAgent

	feed, err := fp.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := feed.Items
	if f.limit > 0 && len(entries) > f.limit {
		entries = entries[:f.limit]
	}

	var items []types.NewsItem
	for _, entry := range entries {
		link := strings.TrimSpace(entry.Link)
		if link == "" || seen[link] {
			continue
		}
		title := f.cleaner.Clean(entry.Title)
		if title == "" || entry.Description == "" {
			continue
		}
		summary := f.cleaner.Summary(entry.Description)
		if !SummaryFits(summary, f.minLen, f.maxLen) {
			continue
		}
		items = append(items, types.NewsItem{ID: link, Title: title, Summary: summary, Source: src.Name})
	}
	return items, nil
}
