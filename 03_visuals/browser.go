package visuals

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"news-shorts-pipeline/config"
	"news-shorts-pipeline/types"

	"github.com/chromedp/chromedp"
)

// inPageScript picks the largest sufficiently big image under the first
// structural selector that has one
const inPageScript = `(() => {
  const minW = %d, minH = %d;
  const selectors = %s;
  const src = (img) => img.currentSrc || img.src || '';
  for (const sel of selectors) {
    let best = '', bestArea = 0;
    for (const img of document.querySelectorAll(sel)) {
      const r = img.getBoundingClientRect();
      const s = src(img);
      if (r.width < minW || r.height < minH || !/^https?:/i.test(s)) continue;
      const area = r.width * r.height;
      if (area > bestArea) { best = s; bestArea = area; }
    }
    if (best) return best;
  }
  return '';
})()`

// BrowserSearch renders the page in headless Chrome and scans its images
type BrowserSearch struct {
	allocOpts []chromedp.ExecAllocatorOption
	timeout   time.Duration
	script    string
	sem       chan struct{}
}

func NewBrowserSearch(vc config.VisualsConfig, userAgent string) *BrowserSearch {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1280, 2000),
		chromedp.Flag("blink-settings", "imagesEnabled=true"),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if vc.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(vc.ChromePath))
	}
	n := vc.BrowserConcurrency
	if n <= 0 {
		n = 1
	}
	return &BrowserSearch{
		allocOpts: opts,
		timeout:   vc.BrowserTimeout,
		script:    buildInPageScript(vc.MinImageWidth, vc.MinImageHeight, vc.ImageSelectors),
		sem:       make(chan struct{}, n),
	}
}

func buildInPageScript(minW, minH int, selectors []string) string {
	sel, _ := json.Marshal(selectors)
	return fmt.Sprintf(inPageScript, minW, minH, sel)
}

func (b *BrowserSearch) Provenance() types.Provenance { return types.ProvenanceInPage }

func (b *BrowserSearch) Find(ctx context.Context, item types.NewsItem) (string, error) {
	if !strings.HasPrefix(item.ID, "http") {
		return "", nil
	}

	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		browserCtx, cancel = context.WithTimeout(browserCtx, b.timeout)
		defer cancel()
	}

	var found string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(item.ID),
		chromedp.Evaluate(b.script, &found),
	)
	if err != nil {
		return "", fmt.Errorf("headless render: %w", err)
	}
	return strings.TrimSpace(found), nil
}
