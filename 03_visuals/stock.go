package visuals

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"news-shorts-pipeline/nlp"
	"news-shorts-pipeline/types"

	"github.com/tidwall/gjson"
)

const (
	unsplashAPI = "https://api.unsplash.com"
	giphyAPI    = "https://api.giphy.com"
)

// stockClient is shared by the stock providers
type stockClient struct {
	client      *http.Client
	orientation string
	maxTerms    int
	extractor   nlp.Extractor
}

func (c *stockClient) query(ctx context.Context, item types.NewsItem) string {
	if c.extractor == nil {
		return item.Title
	}
	return nlp.SearchQuery(ctx, c.extractor, item.Title, c.maxTerms)
}

// UnsplashSearch finds a stock photo for the headline's salient terms
type UnsplashSearch struct {
	*stockClient
	key  string
	base string
}

// GiphySearch finds a GIF for the headline's salient terms
type GiphySearch struct {
	*stockClient
	key  string
	base string
}

// NewStockSources returns the stock stages in fallback order, Unsplash then
// Giphy. Providers without a key are left out. Each is its own stage so an
// Unsplash image that fails to download still falls through to Giphy.
func NewStockSources(client *http.Client, unsplashKey, giphyKey, orientation string, maxTerms int, extractor nlp.Extractor) []ImageSource {
	shared := &stockClient{client: client, orientation: orientation, maxTerms: maxTerms, extractor: extractor}
	var out []ImageSource
	if unsplashKey != "" {
		out = append(out, &UnsplashSearch{stockClient: shared, key: unsplashKey, base: unsplashAPI})
	}
	if giphyKey != "" {
		out = append(out, &GiphySearch{stockClient: shared, key: giphyKey, base: giphyAPI})
	}
	return out
}

func (s *UnsplashSearch) Provenance() types.Provenance { return types.ProvenanceStockSearch }

func (s *UnsplashSearch) Find(ctx context.Context, item types.NewsItem) (string, error) {
	query := s.query(ctx, item)
	log.Printf("[visuals] Searching Unsplash for: %q", query)

	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", "1")
	if s.orientation != "" {
		q.Set("orientation", s.orientation)
	}
	body, err := s.getJSON(ctx, s.base+"/search/photos?"+q.Encode(), "Client-ID "+s.key)
	if err != nil {
		return "", fmt.Errorf("unsplash: %w", err)
	}
	return gjson.GetBytes(body, "results.0.urls.regular").String(), nil
}

func (s *GiphySearch) Provenance() types.Provenance { return types.ProvenanceStockSearch }

func (s *GiphySearch) Find(ctx context.Context, item types.NewsItem) (string, error) {
	query := s.query(ctx, item)
	log.Printf("[visuals] Searching Giphy for: %q", query)

	q := url.Values{}
	q.Set("api_key", s.key)
	q.Set("q", query)
	q.Set("limit", "1")
	q.Set("rating", "pg")
	body, err := s.getJSON(ctx, s.base+"/v1/gifs/search?"+q.Encode(), "")
	if err != nil {
		return "", fmt.Errorf("giphy: %w", err)
	}
	return gjson.GetBytes(body, "data.0.images.original.url").String(), nil
}

func (c *stockClient) getJSON(ctx context.Context, reqURL, auth string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.Header.Set("Accept-Version", "v1")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response")
	}
	return body, nil
}
