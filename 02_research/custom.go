package research

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"news-shorts-pipeline/types"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const (
	defaultLinkSelector    = "article h3.entry-title a"
	defaultSummarySelector = "div.entry-content p"
	summaryParagraphs      = 3
	maxPageBytes           = 5 << 20
)

// CustomFetcher scrapes an HTML listing page, then each linked article for its summary
type CustomFetcher struct {
	client    *http.Client
	userAgent string
	cleaner   *Cleaner
	limit     int
}

type listingLink struct {
	url   string
	title string
}

func (f *CustomFetcher) Fetch(ctx context.Context, src types.Source, seen map[string]bool) ([]types.NewsItem, error) {
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("bad source url: %w", err)
	}
	body, err := getPage(ctx, f.client, f.userAgent, src.URL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	linkSel := src.LinkSelector
	if linkSel == "" {
		linkSel = defaultLinkSelector
	}
	var links []listingLink
	doc.Find(linkSel).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if f.limit > 0 && i >= f.limit {
			return false
		}
		href, ok := s.Attr("href")
		title := f.cleaner.Clean(s.Text())
		if !ok || title == "" {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		links = append(links, listingLink{url: base.ResolveReference(ref).String(), title: title})
		return true
	})

	summarySel := src.SummarySelector
	if summarySel == "" {
		summarySel = defaultSummarySelector
	}
	var items []types.NewsItem
	for _, l := range links {
		if seen[l.url] {
			continue
		}
		summary, err := f.articleSummary(ctx, l.url, summarySel)
		if err != nil {
			log.Printf("[research] %s: failed to process article page %s: %v", src.Name, l.url, err)
			continue
		}
		if summary == "" {
			continue
		}
		items = append(items, types.NewsItem{ID: l.url, Title: l.title, Summary: summary, Source: src.Name})
		log.Printf("[research]   -> Scraped: %s", truncate(l.title, 50))
	}
	return items, nil
}

// articleSummary reads the first paragraphs under sel, falling back to readability extraction
func (f *CustomFetcher) articleSummary(ctx context.Context, pageURL, sel string) (string, error) {
	body, err := getPage(ctx, f.client, f.userAgent, pageURL)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse article: %w", err)
	}

	var parts []string
	doc.Find(sel).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= summaryParagraphs {
			return false
		}
		parts = append(parts, s.Text())
		return true
	})
	if summary := f.cleaner.Summary(strings.Join(parts, " ")); summary != "" {
		return summary, nil
	}

	u, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return f.cleaner.Summary(article.TextContent), nil
}

// getPage GETs a URL with the browser user agent and returns its body
func getPage(ctx context.Context, client *http.Client, userAgent, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", pageURL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
