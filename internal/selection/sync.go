// Package selection keeps the footprint results table and the map layer's
// feature selection mutually consistent. Rows and features correlate by the
// feature index captured when the table is populated, never by geometry or
// property equality, so the correlation survives any later re-sort.
package selection

// Synchronizer mirrors selection changes between a table model and a layer
// model. A re-entrancy guard stops the two directions from re-triggering
// each other.
type Synchronizer struct {
	table    *TableModel
	layer    *LayerModel
	updating bool
}

// NewSynchronizer wires the two models together. All subsequent selection
// changes on either model are mirrored to the other.
func NewSynchronizer(table *TableModel, layer *LayerModel) *Synchronizer {
	s := &Synchronizer{table: table, layer: layer}
	table.AddListener(s.onTableChanged)
	layer.AddListener(s.onLayerChanged)
	return s
}

// onTableChanged pushes the table selection onto the layer as the exact
// selected-feature set
func (s *Synchronizer) onTableChanged() {
	if s.updating {
		return
	}
	s.updating = true
	defer func() { s.updating = false }()

	s.layer.SelectByIDs(s.table.SelectedFeatureIndices())
}

// onLayerChanged pulls the layer selection back into the table, selecting
// the matching rows and revealing the first match
func (s *Synchronizer) onLayerChanged() {
	if s.updating {
		return
	}
	s.updating = true
	defer func() { s.updating = false }()

	s.table.SelectFeatures(s.layer.SelectedIDs())
}
