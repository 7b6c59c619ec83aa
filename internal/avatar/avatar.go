// Package avatar renders deterministic SVG identicons from a seed string.
package avatar

import (
	"crypto/sha256"
	"strings"

	svg "github.com/ajstarks/svgo"
)

const (
	grid = 5
	cell = 20
)

// DefaultPalette is used when no palette is configured.
var DefaultPalette = []string{"#264653", "#2a9d8f", "#e9c46a", "#f4a261", "#e76f51", "#6d597a"}

// Generator produces an SVG document for a seed. The same seed and palette
// always yield the same image. Clients embed the markup as an
// image/svg+xml data URI, so the output must stay SVG.
type Generator struct {
	palette    []string
	background string
}

func NewGenerator(palette []string) *Generator {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &Generator{palette: palette, background: "#f5f5f5"}
}

// Generate returns the SVG markup for seed.
func (g *Generator) Generate(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	fill := "fill:" + g.palette[int(sum[0])%len(g.palette)]

	var b strings.Builder
	size := grid * cell
	canvas := svg.New(&b)
	canvas.Startview(size, size, 0, 0, size, size)
	canvas.Rect(0, 0, size, size, "fill:"+g.background)

	// Left half plus the middle column; mirrored to the right.
	half := (grid + 1) / 2
	for row := 0; row < grid; row++ {
		for col := 0; col < half; col++ {
			if sum[1+row*half+col]%2 == 0 {
				continue
			}
			canvas.Rect(col*cell, row*cell, cell, cell, fill)
			if mirror := grid - 1 - col; mirror != col {
				canvas.Rect(mirror*cell, row*cell, cell, cell, fill)
			}
		}
	}
	canvas.End()
	return b.String()
}
