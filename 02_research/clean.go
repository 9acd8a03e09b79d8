package research

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	tagRe   = regexp.MustCompile(`<[^<]+?>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// abbreviations never end a sentence
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "st": true, "jr": true, "sr": true,
	"gov": true, "sen": true, "rep": true, "gen": true, "vs": true, "etc": true, "no": true,
}

// Cleaner normalizes scraped titles and summaries
type Cleaner struct {
	junk []*regexp.Regexp
}

// NewCleaner compiles the junk patterns. Matching is case-insensitive.
func NewCleaner(patterns []string) (*Cleaner, error) {
	c := &Cleaner{}
	for _, p := range patterns {
		if !strings.HasPrefix(p, "(?i)") {
			p = "(?i)" + p
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("junk pattern %q: %w", p, err)
		}
		c.junk = append(c.junk, re)
	}
	return c, nil
}

// Clean unescapes entities, strips markup and junk phrases, collapses whitespace
func (c *Cleaner) Clean(raw string) string {
	text := html.UnescapeString(raw)
	text = tagRe.ReplaceAllString(text, " ")
	for _, re := range c.junk {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

// Summary cleans raw and keeps the first two or three substantial sentences
func (c *Cleaner) Summary(raw string) string {
	return SelectSentences(SplitSentences(c.Clean(raw)))
}

// SelectSentences keeps sentences longer than 20 chars, stopping after two
// once the text passes 180 chars, or after three
func SelectSentences(sentences []string) string {
	var b strings.Builder
	count := 0
	for _, s := range sentences {
		if len(s) <= 20 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
		count++
		if count >= 2 && b.Len() > 180 {
			break
		}
		if count >= 3 {
			break
		}
	}
	return b.String()
}

// SplitSentences breaks text after terminal punctuation followed by whitespace
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		for end < len(runes) && strings.ContainsRune(`"')]”’`, runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isAbbreviation(before []rune) bool {
	j := len(before)
	for j > 0 && !unicode.IsSpace(before[j-1]) {
		j--
	}
	word := strings.Trim(string(before[j:]), `"'(`)
	if word == "" {
		return false
	}
	// single letters and dotted initials like "U.S"
	if len([]rune(word)) == 1 || strings.Contains(word, ".") {
		return true
	}
	return abbreviations[strings.ToLower(word)]
}

// SummaryFits reports whether a cleaned summary is within the accepted length window
func SummaryFits(summary string, min, max int) bool {
	n := len(summary)
	return n > min && n < max
}
