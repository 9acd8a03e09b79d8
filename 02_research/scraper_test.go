package research

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"news-shorts-pipeline/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	bySource map[string][]types.NewsItem
	fail     map[string]bool
	calls    []string
}

func (f *stubFetcher) Fetch(_ context.Context, src types.Source, _ map[string]bool) ([]types.NewsItem, error) {
	f.calls = append(f.calls, src.Name)
	if f.fail[src.Name] {
		return nil, errors.New("connection refused")
	}
	return f.bySource[src.Name], nil
}

func ids(items []types.NewsItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	sort.Strings(out)
	return out
}

func TestScrapeTwoSourceDedup(t *testing.T) {
	stub := &stubFetcher{bySource: map[string][]types.NewsItem{
		"A": {{ID: "u1", Title: "one"}, {ID: "u2", Title: "two"}},
		"B": {{ID: "u2", Title: "two again"}, {ID: "u3", Title: "three"}},
	}}
	s := NewScraper(map[types.SourceKind]Fetcher{types.KindFeed: stub}, rand.New(rand.NewSource(1)), 0)

	sources := []types.Source{{Name: "A", Kind: types.KindFeed}, {Name: "B", Kind: types.KindFeed}}
	got := s.Scrape(context.Background(), sources, map[string]bool{"u2": true}, 4)

	assert.Equal(t, []string{"u1", "u3"}, ids(got))
}

func TestScrapeTruncatesToLimit(t *testing.T) {
	var many []types.NewsItem
	for i := 0; i < 10; i++ {
		many = append(many, types.NewsItem{ID: fmt.Sprintf("u%d", i)})
	}
	stub := &stubFetcher{bySource: map[string][]types.NewsItem{"A": many}}
	s := NewScraper(map[types.SourceKind]Fetcher{types.KindFeed: stub}, rand.New(rand.NewSource(7)), 0)

	got := s.Scrape(context.Background(), []types.Source{{Name: "A", Kind: types.KindFeed}}, nil, 4)
	require.Len(t, got, 4)
	uniq := map[string]bool{}
	for _, it := range got {
		uniq[it.ID] = true
	}
	assert.Len(t, uniq, 4)
}

func TestScrapeSourceFailureIsIsolated(t *testing.T) {
	stub := &stubFetcher{
		bySource: map[string][]types.NewsItem{"B": {{ID: "u9"}}},
		fail:     map[string]bool{"A": true},
	}
	s := NewScraper(map[types.SourceKind]Fetcher{types.KindFeed: stub}, rand.New(rand.NewSource(1)), 0)

	sources := []types.Source{
		{Name: "A", Kind: types.KindFeed},
		{Name: "X", Kind: "ftp"},
		{Name: "B", Kind: types.KindFeed},
	}
	got := s.Scrape(context.Background(), sources, nil, 4)
	assert.Equal(t, []string{"u9"}, ids(got))
	assert.Equal(t, []string{"A", "B"}, stub.calls)
}

func TestScrapeAllSeenIsEmpty(t *testing.T) {
	stub := &stubFetcher{bySource: map[string][]types.NewsItem{"A": {{ID: "u1"}}}}
	s := NewScraper(map[types.SourceKind]Fetcher{types.KindFeed: stub}, rand.New(rand.NewSource(1)), 0)

	got := s.Scrape(context.Background(), []types.Source{{Name: "A", Kind: types.KindFeed}}, map[string]bool{"u1": true}, 4)
	assert.Empty(t, got)
}

func TestDedupeLastWins(t *testing.T) {
	got := Dedupe([]types.NewsItem{
		{ID: "u1", Title: "first"},
		{ID: "u2", Title: "other"},
		{ID: "u1", Title: "second"},
		{ID: "", Title: "no id"},
	}, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Title)
	assert.Equal(t, "u2", got[1].ID)
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test</title>
<item><title>Storm hits coast</title><link>https://news.example/storm</link>
<description><![CDATA[<p>A powerful storm made landfall early on Monday morning. Officials urged residents to stay indoors. Continue reading</p>]]></description></item>
<item><title>Used story</title><link>https://news.example/used</link>
<description>This story has already been used in an earlier video, so it must be skipped.</description></item>
<item><title>Too short</title><link>https://news.example/short</link><description>Tiny.</description></item>
</channel></rss>`

func TestFeedFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeed)
	}))
	defer srv.Close()

	f := &FeedFetcher{client: srv.Client(), cleaner: newTestCleaner(t), limit: 10, minLen: 50, maxLen: 600}
	items, err := f.Fetch(context.Background(), types.Source{Name: "Test", URL: srv.URL, Kind: types.KindFeed},
		map[string]bool{"https://news.example/used": true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://news.example/storm", items[0].ID)
	assert.Equal(t, "Storm hits coast", items[0].Title)
	assert.Equal(t, "A powerful storm made landfall early on Monday morning. Officials urged residents to stay indoors.", items[0].Summary)
	assert.Equal(t, "Test", items[0].Source)
}

func TestCustomFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<article><h3 class="entry-title"><a href="/a1">First &amp; Foremost</a></h3></article>
<article><h3 class="entry-title"><a href="/a2">Seen Already</a></h3></article>
<article><h3 class="entry-title"><a href="/missing">Broken Link</a></h3></article>
</body></html>`)
	})
	mux.HandleFunc("/a1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="entry-content">
<p>The council approved the new budget late on Thursday night.</p>
<p>Residents will see the changes from next spring onwards.</p>
</div></body></html>`)
	})
	mux.HandleFunc("/missing", http.NotFound)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := &CustomFetcher{client: srv.Client(), cleaner: newTestCleaner(t), limit: 10}
	items, err := f.Fetch(context.Background(), types.Source{Name: "Custom", URL: srv.URL + "/", Kind: types.KindCustom},
		map[string]bool{srv.URL + "/a2": true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, srv.URL+"/a1", items[0].ID)
	assert.Equal(t, "First & Foremost", items[0].Title)
	assert.True(t, strings.HasPrefix(items[0].Summary, "The council approved"))
}

const testHotListing = `{"kind":"Listing","data":{"after":"","children":[
{"kind":"t3","data":{"id":"a1","name":"t3_a1","title":"Council approves transit plan","selftext":"The city council approved a new transit plan on Tuesday evening. Construction on the first line begins next spring.","permalink":"/r/news/comments/a1/council/","url":"https://www.reddit.com/r/news/comments/a1/council/","is_self":true}},
{"kind":"t3","data":{"id":"a2","name":"t3_a2","title":"Weekly discussion thread","selftext":"Use this thread for all general discussion about the news of the week and related topics.","permalink":"/r/news/comments/a2/weekly/","is_self":true,"stickied":true}},
{"kind":"t3","data":{"id":"a3","name":"t3_a3","title":"Graphic footage","selftext":"This post contains graphic footage from the scene that is not suitable for all viewers.","permalink":"/r/news/comments/a3/graphic/","is_self":true,"over_18":true}},
{"kind":"t3","data":{"id":"a4","name":"t3_a4","title":"Tiny post","selftext":"Tiny.","permalink":"/r/news/comments/a4/tiny/","is_self":true}},
{"kind":"t3","data":{"id":"a5","name":"t3_a5","title":"Port strike ends","selftext":"Dock workers voted to end the strike after a three week standoff. Shipping resumes at dawn tomorrow.","permalink":"/r/news/comments/a5/port/","url":"https://news.example/port","is_self":false}},
{"kind":"t3","data":{"id":"a6","name":"t3_a6","title":"Old story","selftext":"This story has already been used in an earlier video, so it must be skipped.","permalink":"/r/news/comments/a6/old/","url":"https://news.example/old","is_self":false}}
]}}`

func TestRedditFetcher(t *testing.T) {
	var path, limit, agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, limit, agent = r.URL.Path, r.URL.Query().Get("limit"), r.UserAgent()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testHotListing)
	}))
	defer srv.Close()

	f, err := NewRedditFetcher(srv.Client(), "news-shorts-test/1.0", srv.URL+"/", newTestCleaner(t), 10, 50, 600)
	require.NoError(t, err)

	items, err := f.Fetch(context.Background(), types.Source{Name: "r/news", URL: "https://www.reddit.com/r/news/", Kind: types.KindReddit},
		map[string]bool{"https://news.example/old": true})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "/r/news/hot"), path)
	assert.Equal(t, "10", limit)
	assert.Equal(t, "news-shorts-test/1.0", agent)

	require.Len(t, items, 2, "stickied, NSFW, short and seen posts are skipped")
	assert.Equal(t, "https://www.reddit.com/r/news/comments/a1/council/", items[0].ID)
	assert.Equal(t, "Council approves transit plan", items[0].Title)
	assert.Equal(t, "The city council approved a new transit plan on Tuesday evening. Construction on the first line begins next spring.", items[0].Summary)
	assert.Equal(t, "r/news", items[0].Source)
	assert.Equal(t, "https://news.example/port", items[1].ID)
}

func TestRedditFetcherRejectsBadSource(t *testing.T) {
	f, err := NewRedditFetcher(&http.Client{}, "", "", newTestCleaner(t), 10, 50, 600)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), types.Source{Name: "bad", URL: "", Kind: types.KindReddit}, nil)
	assert.Error(t, err)
}

func TestSubredditName(t *testing.T) {
	assert.Equal(t, "worldnews", subredditName("worldnews"))
	assert.Equal(t, "worldnews", subredditName("r/worldnews"))
	assert.Equal(t, "worldnews", subredditName("https://www.reddit.com/r/worldnews/hot?limit=5"))
}
