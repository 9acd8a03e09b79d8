package visuals

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"news-shorts-pipeline/types"

	"github.com/PuerkitoBio/goquery"
)

// metaImageSelectors are checked in order; the first non-empty value wins
var metaImageSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="og:image"]`, "content"},
	{`meta[property="og:image:secure_url"]`, "content"},
	{`meta[name="twitter:image"]`, "content"},
	{`meta[property="twitter:image"]`, "content"},
	{`meta[name="twitter:image:src"]`, "content"},
	{`link[rel="image_src"]`, "href"},
}

// MetadataImage reads the hero image a page declares for link previews
type MetadataImage struct {
	client    *http.Client
	userAgent string
}

func (m *MetadataImage) Provenance() types.Provenance { return types.ProvenancePageMetadata }

func (m *MetadataImage) Find(ctx context.Context, item types.NewsItem) (string, error) {
	base, err := url.Parse(item.ID)
	if err != nil || base.Scheme == "" {
		return "", fmt.Errorf("item id %q is not a page url", item.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.ID, nil)
	if err != nil {
		return "", err
	}
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	return metadataImage(doc, base), nil
}

func metadataImage(doc *goquery.Document, base *url.URL) string {
	for _, m := range metaImageSelectors {
		val, ok := doc.Find(m.selector).First().Attr(m.attr)
		val = strings.TrimSpace(val)
		if !ok || val == "" {
			continue
		}
		ref, err := url.Parse(val)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String()
	}
	return ""
}
