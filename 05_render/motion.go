package render

import (
	"fmt"
	"math"
	"strings"
)

// Motion is a zoompan camera path. X and Y may reference the frame count via %[1]d.
type Motion struct {
	Name string
	X    string
	Y    string
}

const (
	centerX = "iw/2-(iw/zoom/2)"
	centerY = "ih/2-(ih/zoom/2)"
)

var palette = map[string]Motion{
	"center":              {Name: "center", X: centerX, Y: centerY},
	"pan-right":           {Name: "pan-right", X: "(iw-iw/zoom)*on/%[1]d", Y: centerY},
	"pan-left":            {Name: "pan-left", X: "(iw-iw/zoom)*(1-on/%[1]d)", Y: centerY},
	"pan-down":            {Name: "pan-down", X: centerX, Y: "(ih-ih/zoom)*on/%[1]d"},
	"pan-up":              {Name: "pan-up", X: centerX, Y: "(ih-ih/zoom)*(1-on/%[1]d)"},
	"corner-top-left":     {Name: "corner-top-left", X: "0", Y: "0"},
	"corner-bottom-right": {Name: "corner-bottom-right", X: "iw-iw/zoom", Y: "ih-ih/zoom"},
}

// MotionNames lists the built-in palette
func MotionNames() []string {
	return []string{"center", "pan-right", "pan-left", "pan-down", "pan-up", "corner-top-left", "corner-bottom-right"}
}

// LookupMotions resolves configured names against the palette
func LookupMotions(names []string) ([]Motion, error) {
	out := make([]Motion, 0, len(names))
	for _, n := range names {
		m, ok := palette[strings.TrimSpace(n)]
		if !ok {
			return nil, fmt.Errorf("unknown motion %q (known: %s)", n, strings.Join(MotionNames(), ", "))
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no motions configured")
	}
	return out, nil
}

// Frames is the exact frame count for duration seconds at fps
func Frames(duration float64, fps int) int {
	return max(1, int(math.Round(duration*float64(fps))))
}

// ZoomStep is the per-frame zoom increment that reaches ceiling on the last frame
func ZoomStep(ceiling float64, frames int) float64 {
	return (ceiling - 1.0) / float64(frames)
}

// ZoompanFilter builds the upscale + zoompan chain for one still
func ZoompanFilter(m Motion, frames, fps, width, height int, ceiling float64) string {
	return fmt.Sprintf(
		"scale=%d:-2,zoompan=z='min(zoom+%.6f,%.4f)':d=%d:x='%s':y='%s':s=%dx%d:fps=%d",
		width*2, ZoomStep(ceiling, frames), ceiling, frames,
		motionExpr(m.X, frames), motionExpr(m.Y, frames),
		width, height, fps,
	)
}

func motionExpr(expr string, frames int) string {
	if !strings.Contains(expr, "%[1]d") {
		return expr
	}
	return fmt.Sprintf(expr, frames)
}
