package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Product identifies an imagery product offered per footprint
type Product string

const (
	ProductVisual      Product = "visual"
	ProductMSAnalytic  Product = "ms_analytic"
	ProductPanAnalytic Product = "pan_analytic"
)

// Valid reports whether the product is one of the known kinds
func (p Product) Valid() bool {
	switch p {
	case ProductVisual, ProductMSAnalytic, ProductPanAnalytic:
		return true
	}
	return false
}

// Label returns a human-readable name for status messages
func (p Product) Label() string {
	switch p {
	case ProductVisual:
		return "Visual"
	case ProductMSAnalytic:
		return "Multispectral"
	case ProductPanAnalytic:
		return "Panchromatic"
	}
	return string(p)
}

// Event represents one disaster event from the catalog index
type Event struct {
	Name      string `json:"name"`
	TileCount int    `json:"tileCount"`
}

// FootprintProperties is the property bag attached to each footprint feature
type FootprintProperties struct {
	Datetime      string   `json:"datetime"`
	Platform      string   `json:"platform"`
	GSD           float64  `json:"gsd"`
	CloudsPercent *float64 `json:"tile:clouds_percent,omitempty"`
	CatalogID     string   `json:"catalog_id"`
	Quadkey       string   `json:"quadkey"`
	Visual        string   `json:"visual,omitempty"`
	MSAnalytic    string   `json:"ms_analytic,omitempty"`
	PanAnalytic   string   `json:"pan_analytic,omitempty"`
}

// CloudCover returns the cloud cover percentage, treating a missing
// property as fully clear (0%)
func (p FootprintProperties) CloudCover() float64 {
	if p.CloudsPercent == nil {
		return 0
	}
	return *p.CloudsPercent
}

// Date returns the date portion (YYYY-MM-DD) of the capture datetime,
// or an empty string when the datetime is missing or too short
func (p FootprintProperties) Date() string {
	if len(p.Datetime) < 10 {
		return ""
	}
	return p.Datetime[:10]
}

// AssetURL returns the download URL for the given product, or "" when the
// footprint does not carry that product
func (p FootprintProperties) AssetURL(product Product) string {
	switch product {
	case ProductVisual:
		return p.Visual
	case ProductMSAnalytic:
		return p.MSAnalytic
	case ProductPanAnalytic:
		return p.PanAnalytic
	}
	return ""
}

// Footprint is one satellite image tile outline with capture metadata
type Footprint struct {
	Type       string              `json:"type"`
	Geometry   *geojson.Geometry   `json:"geometry"`
	Properties FootprintProperties `json:"properties"`
}

// Bound returns the geographic bounding box of the footprint geometry
func (f Footprint) Bound() (orb.Bound, bool) {
	if f.Geometry == nil {
		return orb.Bound{}, false
	}
	return f.Geometry.Geometry().Bound(), true
}

// FootprintCollection is a GeoJSON FeatureCollection of footprints.
// The CRS member is carried through untouched so a filtered subset keeps
// the same reference system declaration as the source file.
type FootprintCollection struct {
	Type     string          `json:"type"`
	CRS      json.RawMessage `json:"crs,omitempty"`
	Features []Footprint     `json:"features"`
}

// Subset returns a collection containing only the given features while
// preserving the CRS declaration of the receiver
func (c FootprintCollection) Subset(features []Footprint) FootprintCollection {
	if features == nil {
		features = []Footprint{}
	}
	return FootprintCollection{
		Type:     "FeatureCollection",
		CRS:      c.CRS,
		Features: features,
	}
}

// MarshalGeoJSON serializes the collection for handing to a vector layer
func (c FootprintCollection) MarshalGeoJSON() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal footprint collection: %w", err)
	}
	return data, nil
}
