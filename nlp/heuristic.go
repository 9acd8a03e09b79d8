package nlp

import (
	"context"
	"strings"
	"unicode"
)

var stopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any", "are",
	"as", "at", "be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
	"can", "could", "did", "do", "does", "doing", "down", "during", "each", "even", "ever", "every",
	"few", "for", "from", "further", "had", "has", "have", "having", "he", "her", "here", "hers",
	"him", "his", "how", "however", "i", "if", "in", "into", "is", "it", "its", "just", "least",
	"less", "many", "may", "me", "might", "more", "most", "much", "must", "my", "never", "new",
	"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or", "other", "our", "out",
	"over", "own", "per", "perhaps", "same", "says", "said", "she", "should", "since", "so",
	"some", "still", "such", "than", "that", "the", "their", "them", "then", "there", "these",
	"they", "this", "those", "though", "through", "thus", "to", "too", "under", "until", "up",
	"upon", "very", "via", "was", "we", "were", "what", "whatever", "when", "where", "whether",
	"which", "while", "who", "whom", "whose", "why", "will", "with", "within", "without", "would",
	"yet", "you", "your", "amid", "across", "among", "along", "around", "toward", "towards",
	"nobody", "somebody", "everyone", "anyone", "three", "two", "one", "first", "last", "year",
	"years", "week", "today", "tomorrow", "yesterday", "report", "reports", "update",
}

// Heuristic extracts capitalized spans as entities and non-stopword tokens as keywords
type Heuristic struct {
	minLen int
	stop   map[string]bool
}

// NewHeuristic builds the extractor. Tokens shorter than minLen are never keywords.
func NewHeuristic(minLen int, extraStopwords []string) *Heuristic {
	stop := make(map[string]bool, len(stopwords)+len(extraStopwords))
	for _, w := range stopwords {
		stop[w] = true
	}
	for _, w := range extraStopwords {
		stop[strings.ToLower(w)] = true
	}
	return &Heuristic{minLen: minLen, stop: stop}
}

func (h *Heuristic) Extract(_ context.Context, text string) (Result, error) {
	var res Result
	seenKW := make(map[string]bool)
	seenEnt := make(map[string]bool)

	for _, sentence := range splitClauses(text) {
		words := tokenize(sentence)
		var span []string
		flush := func() {
			if len(span) == 0 {
				return
			}
			ent := strings.Join(span, " ")
			label := LabelProper
			if len(span) == 1 && isAcronym(span[0]) {
				label = LabelOrg
			}
			if !seenEnt[ent] {
				seenEnt[ent] = true
				res.Entities = append(res.Entities, Entity{Text: ent, Label: label})
			}
			span = nil
		}

		for _, w := range words {
			lower := strings.ToLower(w)
			if isCapitalized(w) && !h.stop[lower] {
				span = append(span, w)
			} else {
				flush()
			}
			if len([]rune(w)) >= h.minLen && !h.stop[lower] && !isNumeric(w) && !seenKW[lower] {
				seenKW[lower] = true
				res.Keywords = append(res.Keywords, w)
			}
		}
		flush()
	}
	return res, nil
}

// splitClauses breaks on sentence punctuation so entity spans never cross it
func splitClauses(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ';' || r == ':' || r == ',' || r == '|'
	})
}

func tokenize(text string) []string {
	var out []string
	for _, f := range strings.Fields(text) {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		w = strings.TrimSuffix(strings.TrimSuffix(w, "'s"), "’s")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func isCapitalized(w string) bool {
	r := []rune(w)
	return len(r) > 0 && unicode.IsUpper(r[0])
}

func isAcronym(w string) bool {
	r := []rune(w)
	if len(r) < 2 {
		return false
	}
	for _, c := range r {
		if !unicode.IsUpper(c) && !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

func isNumeric(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
