package selection

import (
	"sort"

	"github.com/paulmach/orb"

	"opendata-desktop/internal/catalog"
)

// LayerStyle describes how the footprint layer is drawn on the map
type LayerStyle struct {
	FillColor      string  `json:"fillColor"`
	OutlineColor   string  `json:"outlineColor"`
	OutlineWidth   float64 `json:"outlineWidth"`
	Opacity        float64 `json:"opacity"`
	SelectionColor string  `json:"selectionColor"`
}

// DefaultLayerStyle returns the semi-transparent blue footprint style with
// a yellow selection highlight
func DefaultLayerStyle(opacity float64) LayerStyle {
	return LayerStyle{
		FillColor:      "rgba(31,120,180,0.5)",
		OutlineColor:   "rgb(0,0,255)",
		OutlineWidth:   0.5,
		Opacity:        opacity,
		SelectionColor: "rgba(255,255,0,0.8)",
	}
}

// LayerModel is the backend state of the footprints vector layer: the
// filtered feature list plus the selected-feature set. Feature indices are
// the layer's feature ids.
type LayerModel struct {
	name       string
	collection catalog.FootprintCollection
	style      LayerStyle
	selected   map[int]struct{}
	listeners  []func()
}

// NewLayerModel creates an empty layer model
func NewLayerModel() *LayerModel {
	return &LayerModel{
		selected: make(map[int]struct{}),
	}
}

// AddListener registers a callback fired after every selection change
func (l *LayerModel) AddListener(fn func()) {
	l.listeners = append(l.listeners, fn)
}

func (l *LayerModel) notify() {
	for _, fn := range l.listeners {
		fn()
	}
}

// SetFeatures replaces the layer contents and clears the selection. An
// empty collection is a valid layer, not an error.
func (l *LayerModel) SetFeatures(name string, collection catalog.FootprintCollection, style LayerStyle) {
	l.name = name
	l.collection = collection
	l.style = style
	l.selected = make(map[int]struct{})
	l.notify()
}

// Name returns the layer display name
func (l *LayerModel) Name() string {
	return l.name
}

// Style returns the layer style
func (l *LayerModel) Style() LayerStyle {
	return l.style
}

// FeatureCount returns the number of features on the layer
func (l *LayerModel) FeatureCount() int {
	return len(l.collection.Features)
}

// Features returns the layer's feature list
func (l *LayerModel) Features() []catalog.Footprint {
	return l.collection.Features
}

// GeoJSON serializes the layer contents for the map canvas
func (l *LayerModel) GeoJSON() ([]byte, error) {
	return l.collection.Subset(l.collection.Features).MarshalGeoJSON()
}

// SelectByIDs replaces the selected-feature set with exactly the given
// feature ids. Ids outside the layer are ignored.
func (l *LayerModel) SelectByIDs(ids []int) {
	l.selected = make(map[int]struct{})
	for _, id := range ids {
		if id >= 0 && id < len(l.collection.Features) {
			l.selected[id] = struct{}{}
		}
	}
	l.notify()
}

// SelectedIDs returns the selected feature ids in ascending order
func (l *LayerModel) SelectedIDs() []int {
	ids := make([]int, 0, len(l.selected))
	for id := range l.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SelectedFeatures returns the selected footprints in id order
func (l *LayerModel) SelectedFeatures() []catalog.Footprint {
	ids := l.SelectedIDs()
	features := make([]catalog.Footprint, 0, len(ids))
	for _, id := range ids {
		features = append(features, l.collection.Features[id])
	}
	return features
}

// Extent returns the union bounding box of all features on the layer
func (l *LayerModel) Extent() (orb.Bound, bool) {
	return unionBound(l.collection.Features)
}

// SelectionExtent returns the union bounding box of the selected features
func (l *LayerModel) SelectionExtent() (orb.Bound, bool) {
	return unionBound(l.SelectedFeatures())
}

// Clear empties the layer
func (l *LayerModel) Clear() {
	l.name = ""
	l.collection = catalog.FootprintCollection{}
	l.selected = make(map[int]struct{})
	l.notify()
}

// unionBound merges the bounds of all footprint geometries
func unionBound(footprints []catalog.Footprint) (orb.Bound, bool) {
	var bound orb.Bound
	found := false
	for _, fp := range footprints {
		b, ok := fp.Bound()
		if !ok {
			continue
		}
		if !found {
			bound = b
			found = true
		} else {
			bound = bound.Union(b)
		}
	}
	return bound, found
}
