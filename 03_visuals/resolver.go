package visuals

import (
	"context"
	"fmt"
	"image"
	"log"
	"net/http"

	"news-shorts-pipeline/config"
	"news-shorts-pipeline/nlp"
	"news-shorts-pipeline/types"
)

// ImageSource is one stage of the visual fallback chain.
// Find returns "" with a nil error when the stage has nothing for the item.
type ImageSource interface {
	Provenance() types.Provenance
	Find(ctx context.Context, item types.NewsItem) (string, error)
}

// ImageLoader downloads and decodes a remote image
type ImageLoader interface {
	Load(ctx context.Context, imageURL string) (image.Image, error)
}

// Resolver finds a visual for an item and composes its canvas
type Resolver struct {
	sources []ImageSource
	loader  ImageLoader
	canvas  *Canvas
}

// New wires the page-metadata, in-page and stock stages from config
func New(cfg *config.Config, extractor nlp.Extractor) (*Resolver, error) {
	canvas, err := NewCanvas(cfg.Canvas)
	if err != nil {
		return nil, err
	}
	vc := cfg.Visuals
	client := &http.Client{Timeout: vc.PageTimeout}
	ua := cfg.Research.UserAgent

	var sources []ImageSource
	for _, stage := range vc.Stages {
		switch types.Provenance(stage) {
		case types.ProvenancePageMetadata:
			sources = append(sources, &MetadataImage{client: client, userAgent: ua})
		case types.ProvenanceInPage:
			if vc.BrowserEnabled {
				sources = append(sources, NewBrowserSearch(vc, ua))
			}
		case types.ProvenanceStockSearch:
			sources = append(sources, NewStockSources(client, cfg.Credentials.UnsplashAccessKey, cfg.Credentials.GiphyAPIKey, vc.StockOrientation, vc.MaxQueryTerms, extractor)...)
		default:
			return nil, fmt.Errorf("unknown visuals stage %q", stage)
		}
	}

	return NewResolver(sources, NewDownloader(client, ua, vc.MaxDownloadBytes), canvas), nil
}

func NewResolver(sources []ImageSource, loader ImageLoader, canvas *Canvas) *Resolver {
	return &Resolver{sources: sources, loader: loader, canvas: canvas}
}

// Canvas exposes the compositor for other stages that draw frames
func (r *Resolver) Canvas() *Canvas { return r.canvas }

// Resolve runs the fallback chain and writes the composed canvas to outPath.
// Only a failure to write the canvas is an error.
func (r *Resolver) Resolve(ctx context.Context, item types.NewsItem, outPath string) (types.VisualResolutionResult, error) {
	result := types.VisualResolutionResult{Provenance: types.ProvenanceNone}
	var img image.Image

	for _, src := range r.sources {
		if ctx.Err() != nil {
			break
		}
		name := src.Provenance()
		imageURL, err := src.Find(ctx, item)
		if err != nil {
			log.Printf("[visuals] %s failed for %s: %v", name, item.ID, err)
			continue
		}
		if imageURL == "" {
			log.Printf("[visuals] %s: nothing for %s", name, item.ID)
			continue
		}
		decoded, err := r.loader.Load(ctx, imageURL)
		if err != nil {
			log.Printf("[visuals] %s image unusable (%s): %v", name, truncate(imageURL, 80), err)
			continue
		}
		img = decoded
		result = types.VisualResolutionResult{ImageURL: imageURL, Provenance: name}
		break
	}

	if img == nil {
		log.Printf("[visuals] No image for %q, using plain canvas", truncate(item.Title, 60))
	} else {
		log.Printf("[visuals] ✅ Image via %s: %s", result.Provenance, truncate(result.ImageURL, 80))
	}

	if err := r.canvas.Compose(item.Title, item.Summary, img, outPath); err != nil {
		return result, fmt.Errorf("compose canvas: %w", err)
	}
	return result, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
