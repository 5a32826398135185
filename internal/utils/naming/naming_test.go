package naming

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeComponent(t *testing.T) {
	assert.Equal(t, "10504100109C5A00", SanitizeComponent("10504100109C5A00"))
	assert.Equal(t, "a-b-c", SanitizeComponent(`a/b\c`))
	assert.Equal(t, "x-y", SanitizeComponent("x:y"))
	assert.Equal(t, "", SanitizeComponent("  "))
}

func TestQuadkeyForBound(t *testing.T) {
	// A bound around Kahramanmaras, Turkey
	bound := orb.Bound{
		Min: orb.Point{36.9, 37.2},
		Max: orb.Point{37.0, 37.3},
	}

	quadkey := QuadkeyForBound(bound, MaxarGridZoom)

	assert.Len(t, quadkey, MaxarGridZoom)
	for _, r := range quadkey {
		assert.Contains(t, "0123", string(r))
	}

	// Northern hemisphere, eastern longitude lands in quadrant 1 at zoom 1
	assert.Equal(t, "1", QuadkeyForBound(bound, 1))
}
