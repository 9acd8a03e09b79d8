package metadata

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"news-shorts-pipeline/config"
	"news-shorts-pipeline/nlp"
	"news-shorts-pipeline/types"
)

// entity labels worth turning into hashtags
var buzzLabels = map[string]bool{
	nlp.LabelPerson: true,
	nlp.LabelOrg:    true,
	nlp.LabelPlace:  true,
	nlp.LabelProper: true,
}

// Generator writes the video description and hashtags
type Generator struct {
	extractor nlp.Extractor
	mc        config.MetadataConfig
	uc        config.UploadConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a metadata Generator
func New(cfg *config.Config, extractor nlp.Extractor) *Generator {
	return NewGenerator(extractor, cfg.Metadata, cfg.Upload, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func NewGenerator(extractor nlp.Extractor, mc config.MetadataConfig, uc config.UploadConfig, rng *rand.Rand) *Generator {
	return &Generator{extractor: extractor, mc: mc, uc: uc, rng: rng}
}

// Summarize returns the description block for the produced titles
func (g *Generator) Summarize(ctx context.Context, titles []string, segment string) (string, error) {
	md, err := g.Run(ctx, titles, segment)
	if err != nil {
		return "", err
	}
	return md.Description, nil
}

// Run builds the full upload metadata: title, description and hashtag tags
func (g *Generator) Run(ctx context.Context, titles []string, segment string) (*types.VideoMetadata, error) {
	if len(titles) == 0 {
		return nil, fmt.Errorf("no titles to describe")
	}
	log.Println("[metadata] Generating video description and hashtags...")

	buzzwords := g.buzzwords(ctx, titles)
	hashtags := Hashtags(segment, g.mc.StaticHashtags, buzzwords)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Today's %s News Briefing:\n\n", segment)
	for _, t := range titles {
		fmt.Fprintf(&sb, "📌 %s\n", t)
	}
	if closing := closingLine(buzzwords, g.mc.ClosingBuzzwords); closing != "" {
		sb.WriteString("\n" + closing + "\n")
	}
	sb.WriteString("\n---\n")
	sb.WriteString(strings.Join(hashtags, " "))

	tags := make([]string, len(hashtags))
	for i, h := range hashtags {
		tags[i] = strings.TrimPrefix(h, "#")
	}

	md := &types.VideoMetadata{
		Title:       segment + " News Briefing",
		Description: sb.String(),
		Tags:        tags,
		CategoryID:  g.uc.CategoryID,
		Visibility:  g.uc.Visibility,
	}
	log.Printf("[metadata] ✅ %d buzzword(s), %d hashtag(s)", len(buzzwords), len(hashtags))
	return md, nil
}

// Write overwrites path with the description text
func Write(path, description string) error {
	if err := os.WriteFile(path, []byte(description), 0644); err != nil {
		return fmt.Errorf("write description: %w", err)
	}
	log.Printf("[metadata] Saved description to %s", path)
	return nil
}

// buzzwords is the shuffled union of entities and keywords, capped at MaxBuzzwords.
// Extraction failure yields none.
func (g *Generator) buzzwords(ctx context.Context, titles []string) []string {
	res, err := g.extractor.Extract(ctx, strings.Join(titles, ". "))
	if err != nil {
		log.Printf("[metadata] Extraction failed, hashtags limited to static set: %v", err)
		return nil
	}

	seen := make(map[string]bool)
	var words []string
	add := func(w string) {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" || seen[key] {
			return
		}
		seen[key] = true
		words = append(words, w)
	}
	for _, e := range res.Entities {
		if buzzLabels[e.Label] {
			add(e.Text)
		}
	}
	for _, k := range res.Keywords {
		add(k)
	}

	g.mu.Lock()
	g.rng.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	g.mu.Unlock()

	if g.mc.MaxBuzzwords > 0 && len(words) > g.mc.MaxBuzzwords {
		words = words[:g.mc.MaxBuzzwords]
	}
	return words
}

func closingLine(buzzwords []string, n int) string {
	if n <= 0 || len(buzzwords) == 0 {
		return ""
	}
	if len(buzzwords) > n {
		buzzwords = buzzwords[:n]
	}
	var list string
	switch len(buzzwords) {
	case 1:
		list = buzzwords[0]
	default:
		list = strings.Join(buzzwords[:len(buzzwords)-1], ", ") + " and " + buzzwords[len(buzzwords)-1]
	}
	return fmt.Sprintf("Stay informed on %s and more.", list)
}

// Hashtags returns the segment tag, then static tags, then one tag per buzzword.
// Duplicates (case-insensitive) keep their first position.
func Hashtags(segment string, static, buzzwords []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(tag string) {
		if tag == "#" || tag == "" {
			return
		}
		key := strings.ToLower(tag)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, tag)
	}

	add("#" + strings.ReplaceAll(segment, " ", "") + "News")
	for _, s := range static {
		if !strings.HasPrefix(s, "#") {
			s = "#" + s
		}
		add(s)
	}
	for _, w := range buzzwords {
		if camel := CamelCase(w); camel != "" {
			add("#" + camel)
		}
	}
	return out
}

// CamelCase splits on runs of non-alphanumerics and capitalizes each part
func CamelCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var sb strings.Builder
	for _, p := range parts {
		rs := []rune(strings.ToLower(p))
		rs[0] = unicode.ToUpper(rs[0])
		sb.WriteString(string(rs))
	}
	return sb.String()
}
