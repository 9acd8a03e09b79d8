package nlp

import (
	"context"
	"fmt"
	"log"
	"strings"

	"news-shorts-pipeline/config"
)

// Entity labels
const (
	LabelPerson = "PERSON"
	LabelOrg    = "ORG"
	LabelPlace  = "GPE"
	// LabelProper marks a proper-noun span the extractor could not classify
	LabelProper = "PROPN"
)

type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Result is what an extractor finds in a piece of text
type Result struct {
	Entities []Entity `json:"entities"`
	// Keywords are salient nouns / proper nouns in order of appearance
	Keywords []string `json:"keywords"`
}

// Extractor finds named entities and salient tokens in text
type Extractor interface {
	Extract(ctx context.Context, text string) (Result, error)
}

// New returns the extractor selected by nlp.engine
func New(cfg *config.Config) (Extractor, error) {
	switch cfg.NLP.Engine {
	case "openai":
		return NewOpenAI(cfg.Credentials.OpenAIAPIKey, cfg.NLP.BaseURL, cfg.NLP.Model, cfg.NLP.Timeout, NewHeuristic(cfg.NLP.MinTokenLen, cfg.NLP.ExtraStopwords)), nil
	case "heuristic", "":
		return NewHeuristic(cfg.NLP.MinTokenLen, cfg.NLP.ExtraStopwords), nil
	default:
		return nil, fmt.Errorf("unknown nlp engine %q", cfg.NLP.Engine)
	}
}

// SearchQuery builds a stock-search query from a headline's salient terms.
// It falls back to the headline itself when nothing is extracted.
func SearchQuery(ctx context.Context, ex Extractor, title string, maxTerms int) string {
	res, err := ex.Extract(ctx, title)
	if err != nil {
		log.Printf("[nlp] Extraction failed, searching by headline: %v", err)
		return title
	}
	terms := res.Keywords
	if maxTerms > 0 && len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	if len(terms) == 0 {
		return title
	}
	return strings.Join(terms, " ")
}
