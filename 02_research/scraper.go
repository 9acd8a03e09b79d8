package research

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"news-shorts-pipeline/config"
	"news-shorts-pipeline/types"
)

// Fetcher pulls candidate items from one kind of source.
// seen lets a fetcher skip expensive per-item work for used identifiers.
type Fetcher interface {
	Fetch(ctx context.Context, src types.Source, seen map[string]bool) ([]types.NewsItem, error)
}

// Scraper holds all scraping dependencies
type Scraper struct {
	fetchers map[types.SourceKind]Fetcher
	rng      *rand.Rand
	timeout  time.Duration
}

// New creates a Scraper with the feed, custom and reddit fetchers wired from config
func New(cfg *config.Config) (*Scraper, error) {
	rc := cfg.Research
	cleaner, err := NewCleaner(rc.JunkPatterns)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: rc.Timeout}

	reddit, err := NewRedditFetcher(httpClient, rc.UserAgent, "", cleaner, rc.PerSourceLimit, rc.MinSummaryLen, rc.MaxSummaryLen)
	if err != nil {
		return nil, err
	}
	fetchers := map[types.SourceKind]Fetcher{
		types.KindFeed: &FeedFetcher{
			client: httpClient, userAgent: rc.UserAgent, cleaner: cleaner,
			limit: rc.PerSourceLimit, minLen: rc.MinSummaryLen, maxLen: rc.MaxSummaryLen,
		},
		types.KindCustom: &CustomFetcher{
			client: httpClient, userAgent: rc.UserAgent, cleaner: cleaner, limit: rc.PerSourceLimit,
		},
		types.KindReddit: reddit,
	}
	// custom sources visit every linked article, so they get a longer budget
	timeout := rc.Timeout * time.Duration(rc.PerSourceLimit+1)
	return NewScraper(fetchers, rand.New(rand.NewSource(time.Now().UnixNano())), timeout), nil
}

// NewScraper builds a Scraper from explicit fetchers. timeout bounds each source; zero disables it.
func NewScraper(fetchers map[types.SourceKind]Fetcher, rng *rand.Rand, timeout time.Duration) *Scraper {
	return &Scraper{fetchers: fetchers, rng: rng, timeout: timeout}
}

// Scrape fetches every source, drops seen and duplicate items, shuffles and keeps at most limit.
// A failing source is logged and contributes nothing.
func (s *Scraper) Scrape(ctx context.Context, sources []types.Source, seen map[string]bool, limit int) []types.NewsItem {
	log.Println("[research] Starting headline scrape...")

	var all []types.NewsItem
	for _, src := range sources {
		items, err := s.fetchSource(ctx, src, seen)
		if err != nil {
			log.Printf("[research] Failed to scrape %s (%s): %v", src.Name, src.Kind, err)
			continue
		}
		log.Printf("[research] %s (%s): found %d items", src.Name, src.Kind, len(items))
		all = append(all, items...)
	}

	unique := Dedupe(all, seen)
	if len(unique) == 0 {
		log.Println("[research] Could not find any new, unprocessed headlines")
		return nil
	}

	s.rng.Shuffle(len(unique), func(i, j int) { unique[i], unique[j] = unique[j], unique[i] })
	if limit > 0 && len(unique) > limit {
		unique = unique[:limit]
	}
	log.Printf("[research] ✅ Selected %d of %d unique headlines", len(unique), len(all))
	return unique
}

func (s *Scraper) fetchSource(ctx context.Context, src types.Source, seen map[string]bool) ([]types.NewsItem, error) {
	f, ok := s.fetchers[src.Kind]
	if !ok {
		return nil, fmt.Errorf("no fetcher for kind %q", src.Kind)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return f.Fetch(ctx, src, seen)
}

// Dedupe drops seen identifiers and collapses duplicates. The last occurrence's
// content wins; position is that of the first occurrence.
func Dedupe(items []types.NewsItem, seen map[string]bool) []types.NewsItem {
	index := make(map[string]int, len(items))
	var out []types.NewsItem
	for _, it := range items {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		if i, ok := index[it.ID]; ok {
			out[i] = it
			continue
		}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}
