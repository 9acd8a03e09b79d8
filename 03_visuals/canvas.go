package visuals

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strconv"
	"strings"

	"news-shorts-pipeline/config"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Canvas draws the fixed-size still that each clip pans across
type Canvas struct {
	cfg      config.CanvasConfig
	fonts    *FontSource
	headline font.Face
	summary  font.Face

	background    color.Color
	headlineColor color.Color
	summaryColor  color.Color
}

func NewCanvas(cc config.CanvasConfig) (*Canvas, error) {
	fonts, err := LoadFont(cc.FontPath, cc.FontCandidates, cc.BuiltinFont)
	if err != nil {
		return nil, err
	}
	headline, err := fonts.Face(cc.HeadlineSize)
	if err != nil {
		return nil, fmt.Errorf("headline face: %w", err)
	}
	summary, err := fonts.Face(cc.SummarySize)
	if err != nil {
		return nil, fmt.Errorf("summary face: %w", err)
	}

	c := &Canvas{cfg: cc, fonts: fonts, headline: headline, summary: summary}
	for _, p := range []struct {
		dst *color.Color
		hex string
	}{
		{&c.background, cc.Background},
		{&c.headlineColor, cc.HeadlineColor},
		{&c.summaryColor, cc.SummaryColor},
	} {
		col, err := ParseHexColor(p.hex)
		if err != nil {
			return nil, err
		}
		*p.dst = col
	}
	return c, nil
}

// Size returns the canvas dimensions in pixels
func (c *Canvas) Size() (int, int) { return c.cfg.Width, c.cfg.Height }

// Compose draws the headline and summary into the text band and crops img into
// the band below. A nil img leaves the background showing.
func (c *Canvas) Compose(title, summary string, img image.Image, outPath string) error {
	w, h := c.cfg.Width, c.cfg.Height
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)

	y := c.drawWrapped(dst, title, c.headline, c.cfg.HeadlineWidth, c.cfg.HeadlineTop, c.headlineColor)
	if c.cfg.IncludeSummary && summary != "" {
		c.drawWrapped(dst, summary, c.summary, c.cfg.SummaryWidth, y+c.cfg.SummaryGap, c.summaryColor)
	}

	if img != nil {
		band := CropToFill(img, w, h-c.cfg.TextAreaHeight)
		draw.Draw(dst, image.Rect(0, c.cfg.TextAreaHeight, w, h), band, image.Point{}, draw.Src)
	}
	return savePNG(dst, outPath)
}

// Poster draws centred lines of large text on the background colour
func (c *Canvas) Poster(lines []string, size float64, top, step int, outPath string) error {
	face, err := c.fonts.Face(size)
	if err != nil {
		return err
	}
	defer face.Close()

	dst := image.NewRGBA(image.Rect(0, 0, c.cfg.Width, c.cfg.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)
	y := top
	for _, line := range lines {
		c.drawCentered(dst, line, face, y, c.headlineColor)
		y += step
	}
	return savePNG(dst, outPath)
}

// drawWrapped draws text centred, starting with its first baseline at y.
// It returns the baseline after the last line.
func (c *Canvas) drawWrapped(dst *image.RGBA, text string, face font.Face, maxWidth, y int, col color.Color) int {
	lineHeight := int(float64(face.Metrics().Ascent.Ceil()) * c.cfg.LineSpacing)
	for _, line := range WrapText(text, maxWidth, measurer(face)) {
		c.drawCentered(dst, line, face, y, col)
		y += lineHeight
	}
	return y
}

func (c *Canvas) drawCentered(dst *image.RGBA, line string, face font.Face, y int, col color.Color) {
	width := font.MeasureString(face, line).Ceil()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P((c.cfg.Width-width)/2, y),
	}
	d.DrawString(line)
}

func measurer(face font.Face) func(string) int {
	return func(s string) int { return font.MeasureString(face, s).Ceil() }
}

// WrapText packs words greedily into lines no wider than maxWidth.
// A single word wider than maxWidth gets a line of its own.
func WrapText(text string, maxWidth int, measure func(string) int) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate) <= maxWidth || current == "" {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// CropToFill centre-crops src to the w:h aspect ratio and scales it to w x h
func CropToFill(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 || w <= 0 || h <= 0 {
		return dst
	}

	target := float64(w) / float64(h)
	var crop image.Rectangle
	if float64(sw)/float64(sh) > target {
		nw := max(1, int(target*float64(sh)))
		left := (sw - nw) / 2
		crop = image.Rect(b.Min.X+left, b.Min.Y, b.Min.X+left+nw, b.Max.Y)
	} else {
		nh := max(1, int(float64(sw)/target))
		top := (sh - nh) / 2
		crop = image.Rect(b.Min.X, b.Min.Y+top, b.Max.X, b.Min.Y+top+nh)
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}

// ParseHexColor parses #RGB or #RRGGBB
func ParseHexColor(s string) (color.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return nil, fmt.Errorf("bad colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("bad colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func savePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
