package entity

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// DefaultAnnotationStyle is used when an annotation is created without one.
const DefaultAnnotationStyle = "20px sans-serif"

// MeasureFunc returns the extents of text drawn in style.
type MeasureFunc func(text, style string) (w, h float64)

var pxSize = regexp.MustCompile(`(\d+(?:\.\d+)?)px`)

// StyleSize returns the pixel size named in a CSS-like font style such as
// "20px sans-serif". It falls back to the basic face height.
func StyleSize(style string) float64 {
	m := pxSize.FindStringSubmatch(style)
	if m == nil {
		return float64(basicfont.Face7x13.Height)
	}
	size, err := strconv.ParseFloat(m[1], 64)
	if err != nil || size <= 0 {
		return float64(basicfont.Face7x13.Height)
	}
	return size
}

// MeasureBasic measures text with the fixed 7x13 face scaled to the style's
// pixel size. Each line break adds one line of height.
func MeasureBasic(text, style string) (w, h float64) {
	face := basicfont.Face7x13
	size := StyleSize(style)
	scale := size / float64(face.Height)

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		lw := float64(font.MeasureString(face, line).Ceil()) * scale
		if lw > w {
			w = lw
		}
	}
	return w, size * float64(len(lines))
}
