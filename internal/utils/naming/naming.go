// Package naming builds filesystem-safe names for downloaded imagery.
package naming

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// MaxarGridZoom is the zoom level of the Maxar Open Data quadkey grid
const MaxarGridZoom = 12

// SanitizeComponent makes a metadata value safe for use as a filename part.
// Path separators and characters rejected on Windows become '-'; empty
// input stays empty so callers can apply their own fallback.
func SanitizeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// QuadkeyForBound derives the quadkey of the tile whose center covers the
// bound at the given zoom. Used as a fallback when a footprint carries no
// quadkey of its own.
func QuadkeyForBound(bound orb.Bound, zoom int) string {
	center := bound.Center()
	lat := center.Lat()
	lon := center.Lon()

	n := math.Pow(2, float64(zoom))
	x := int((lon + 180.0) / 360.0 * n)
	y := int((1.0 - math.Log(math.Tan(lat*math.Pi/180.0)+1.0/math.Cos(lat*math.Pi/180.0))/math.Pi) / 2.0 * n)

	var quadkey strings.Builder
	for i := zoom; i > 0; i-- {
		digit := 0
		mask := 1 << (i - 1)
		if (x & mask) != 0 {
			digit++
		}
		if (y & mask) != 0 {
			digit += 2
		}
		quadkey.WriteByte(byte('0' + digit))
	}
	return quadkey.String()
}
