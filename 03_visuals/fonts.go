package visuals

import (
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// FontSource resolves the configured font file, or the bundled Go Bold face
type FontSource struct {
	font *opentype.Font
	name string
}

// LoadFont tries path, then each candidate, then the built-in face when allowed
func LoadFont(path string, candidates []string, builtin bool) (*FontSource, error) {
	tried := []string{}
	if path != "" {
		f, err := parseFontFile(path)
		if err != nil {
			return nil, fmt.Errorf("font %s: %w", path, err)
		}
		return &FontSource{font: f, name: path}, nil
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err != nil {
			tried = append(tried, c)
			continue
		}
		f, err := parseFontFile(c)
		if err != nil {
			log.Printf("[visuals] Skipping font %s: %v", c, err)
			continue
		}
		log.Printf("[visuals] Using font: %s", c)
		return &FontSource{font: f, name: c}, nil
	}
	if builtin {
		f, err := opentype.Parse(gobold.TTF)
		if err != nil {
			return nil, fmt.Errorf("parse built-in font: %w", err)
		}
		log.Println("[visuals] No system font found, using built-in Go Bold")
		return &FontSource{font: f, name: "gobold"}, nil
	}
	return nil, fmt.Errorf("no usable font; tried %s", strings.Join(tried, ", "))
}

// Face returns a face at size points (72 DPI, so points equal pixels)
func (s *FontSource) Face(size float64) (font.Face, error) {
	return opentype.NewFace(s.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func (s *FontSource) Name() string { return s.name }

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(strings.ToLower(path), ".ttc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		return coll.Font(0)
	}
	return opentype.Parse(data)
}
