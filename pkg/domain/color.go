package domain

import (
	"fmt"
	"hash/fnv"
	"math"
)

// GenerateColor derives a stable display color from an identifier. The same
// identifier always maps to the same color, which is what lets the UI
// visually correlate join sets and child executions across views.
func GenerateColor(s string) string {
	h := fnv.New64a()
	h.Write([]byte(s))
	return GenerateColorFromHash(h.Sum64())
}

// GenerateColorFromHash maps a hash to an HSL color string. Saturation and
// lightness are constrained to ranges that stay readable on a dark
// background.
func GenerateColorFromHash(hash uint64) string {
	h := hash % 360
	s := 70 + ((hash >> 16) % 31)
	l := 65 + ((hash >> 32) % 21)
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", h, s, l)
}

// GenerateColorHex is GenerateColor in "#rrggbb" form for sinks that do not
// understand HSL, like terminal renderers.
func GenerateColorHex(s string) string {
	h := fnv.New64a()
	h.Write([]byte(s))
	hash := h.Sum64()

	hue := float64(hash % 360)
	sat := float64(70+((hash>>16)%31)) / 100
	light := float64(65+((hash>>32)%21)) / 100

	r, g, b := hslToRGB(hue, sat, light)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return uint8((r + m) * 255), uint8((g + m) * 255), uint8((b + m) * 255)
}
