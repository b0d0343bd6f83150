// Package accent derives a representative color from album art.
package accent

import (
	"fmt"
	"image"
)

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// Fallback is used when an image has no usable pixels.
var Fallback = Color{R: 29, G: 185, B: 84}

const (
	maxSamples    = 200
	minBrightness = 30 // samples whose brightest channel is below this are too dark
	minSaturation = 20 // samples whose channel spread is below this are too grey
)

// Hex returns the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Extract samples up to ~200 evenly spaced pixels, discards dark and
// desaturated ones, and averages the rest. Fallback is returned for a nil or
// empty image, or when every sample is discarded.
func Extract(img image.Image) Color {
	if img == nil {
		return Fallback
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	total := w * h
	if total <= 0 {
		return Fallback
	}

	step := total / maxSamples
	if step < 1 {
		step = 1
	}

	var sumR, sumG, sumB, count int
	for i := 0; i < total; i += step {
		x := bounds.Min.X + i%w
		y := bounds.Min.Y + i/w
		r, g, b := rgb8(img, x, y)

		hi := max(r, g, b)
		lo := min(r, g, b)
		if hi < minBrightness || hi-lo < minSaturation {
			continue
		}

		sumR += r
		sumG += g
		sumB += b
		count++
	}

	if count == 0 {
		return Fallback
	}

	return Color{
		R: uint8(sumR / count),
		G: uint8(sumG / count),
		B: uint8(sumB / count),
	}
}

// rgb8 returns the 8-bit channels of the pixel at (x, y), ignoring alpha.
func rgb8(img image.Image, x, y int) (int, int, int) {
	r, g, b, _ := img.At(x, y).RGBA()
	return int(r >> 8), int(g >> 8), int(b >> 8)
}
