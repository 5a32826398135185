package common

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndFormatISO8601(t *testing.T) {
	parsed, err := ParseISO8601("2023-02-06")
	require.NoError(t, err)
	assert.Equal(t, time.February, parsed.Month())
	assert.Equal(t, "2023-02-06", FormatISO8601(parsed))
}

func TestValidateISO8601(t *testing.T) {
	assert.True(t, ValidateISO8601("2023-02-06"))
	assert.False(t, ValidateISO8601(""))
	assert.False(t, ValidateISO8601("2023-2-6"))
	assert.False(t, ValidateISO8601("06/02/2023"))
	assert.False(t, ValidateISO8601("2023-02-30"))
}

func TestBoundingBoxValidate(t *testing.T) {
	valid := BoundingBox{South: 37.2, West: 36.9, North: 37.3, East: 37.0}
	assert.NoError(t, valid.Validate())

	assert.Error(t, BoundingBox{South: 38, West: 36.9, North: 37, East: 37.0}.Validate())
	assert.Error(t, BoundingBox{South: 37.2, West: 38, North: 37.3, East: 37.0}.Validate())
	assert.Error(t, BoundingBox{South: -91, West: 36.9, North: 37.3, East: 37.0}.Validate())
	assert.Error(t, BoundingBox{South: 37.2, West: 36.9, North: 37.3, East: 181}.Validate())
}

func TestBoundingBoxFromBound(t *testing.T) {
	bound := orb.Bound{
		Min: orb.Point{36.9, 37.2},
		Max: orb.Point{37.0, 37.3},
	}

	bbox := BoundingBoxFromBound(bound)

	assert.Equal(t, 37.2, bbox.South)
	assert.Equal(t, 36.9, bbox.West)
	assert.Equal(t, 37.3, bbox.North)
	assert.Equal(t, 37.0, bbox.East)
}
