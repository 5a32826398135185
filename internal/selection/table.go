package selection

import (
	"sort"
	"strings"

	"opendata-desktop/internal/catalog"
)

// Column identifies a sortable footprint table column
type Column string

const (
	ColumnDate      Column = "date"
	ColumnPlatform  Column = "platform"
	ColumnGSD       Column = "gsd"
	ColumnCloud     Column = "cloud"
	ColumnCatalogID Column = "catalogId"
	ColumnQuadkey   Column = "quadkey"
)

// Row is one footprint rendered as a table row. FeatureIndex is the
// position of the originating feature in the filtered feature list,
// captured at population time; it never changes when the table re-sorts.
type Row struct {
	FeatureIndex int     `json:"featureIndex"`
	Date         string  `json:"date"`
	Platform     string  `json:"platform"`
	GSD          float64 `json:"gsd"`
	CloudPercent float64 `json:"cloudPercent"`
	CatalogID    string  `json:"catalogId"`
	Quadkey      string  `json:"quadkey"`
}

// TableModel is the backend state of the footprints results table
type TableModel struct {
	rows      []Row
	selected  map[int]struct{} // row positions in the current row order
	scrollRow int              // row to reveal after a layer-driven selection, -1 when none
	sortAsc   map[Column]bool  // last applied direction per column
	listeners []func()
}

// NewTableModel creates an empty table model
func NewTableModel() *TableModel {
	return &TableModel{
		selected:  make(map[int]struct{}),
		scrollRow: -1,
		sortAsc:   make(map[Column]bool),
	}
}

// AddListener registers a callback fired after every selection change
func (t *TableModel) AddListener(fn func()) {
	t.listeners = append(t.listeners, fn)
}

func (t *TableModel) notify() {
	for _, fn := range t.listeners {
		fn()
	}
}

// Populate replaces the table contents with one row per footprint, in
// feature order, and clears the selection
func (t *TableModel) Populate(footprints []catalog.Footprint) {
	t.rows = make([]Row, len(footprints))
	for i, fp := range footprints {
		props := fp.Properties
		t.rows[i] = Row{
			FeatureIndex: i,
			Date:         props.Date(),
			Platform:     props.Platform,
			GSD:          props.GSD,
			CloudPercent: props.CloudCover(),
			CatalogID:    props.CatalogID,
			Quadkey:      props.Quadkey,
		}
	}
	t.selected = make(map[int]struct{})
	t.scrollRow = -1
	t.notify()
}

// Rows returns the rows in their current display order
func (t *TableModel) Rows() []Row {
	rows := make([]Row, len(t.rows))
	copy(rows, t.rows)
	return rows
}

// RowCount returns the number of rows
func (t *TableModel) RowCount() int {
	return len(t.rows)
}

// Select replaces the selection with the given row positions. Positions
// outside the table are ignored.
func (t *TableModel) Select(rows []int) {
	t.selected = make(map[int]struct{})
	for _, row := range rows {
		if row >= 0 && row < len(t.rows) {
			t.selected[row] = struct{}{}
		}
	}
	t.scrollRow = -1
	t.notify()
}

// SelectedRows returns the selected row positions in ascending order
func (t *TableModel) SelectedRows() []int {
	rows := make([]int, 0, len(t.selected))
	for row := range t.selected {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows
}

// SelectedFeatureIndices returns the originating feature indices of the
// selected rows
func (t *TableModel) SelectedFeatureIndices() []int {
	ids := make([]int, 0, len(t.selected))
	for row := range t.selected {
		ids = append(ids, t.rows[row].FeatureIndex)
	}
	sort.Ints(ids)
	return ids
}

// SelectFeatures selects the rows corresponding to the given feature
// indices and marks the first matching row for scroll-into-view. The
// feature-to-row mapping is rebuilt by scanning the stored indices, so it
// stays correct after any re-sort.
func (t *TableModel) SelectFeatures(featureIndices []int) {
	featureToRow := make(map[int]int, len(t.rows))
	for row, r := range t.rows {
		featureToRow[r.FeatureIndex] = row
	}

	t.selected = make(map[int]struct{})
	first := -1
	for _, idx := range featureIndices {
		row, ok := featureToRow[idx]
		if !ok {
			continue
		}
		t.selected[row] = struct{}{}
		if first == -1 || row < first {
			first = row
		}
	}
	t.scrollRow = first
	t.notify()
}

// ScrollRow returns the row to reveal after the last layer-driven
// selection, or -1 when no reveal is pending
func (t *TableModel) ScrollRow() int {
	return t.scrollRow
}

// SortBy re-sorts the rows by a column, toggling direction on repeated
// sorts of the same column. Selection follows the rows: selected features
// stay selected at their new positions.
func (t *TableModel) SortBy(column Column) {
	asc := !t.sortAsc[column]
	t.sortAsc[column] = asc

	selectedFeatures := t.SelectedFeatureIndices()

	sort.SliceStable(t.rows, func(i, j int) bool {
		less := rowLess(t.rows[i], t.rows[j], column)
		if asc {
			return less
		}
		return rowLess(t.rows[j], t.rows[i], column)
	})

	// Re-derive selected row positions from the stored feature indices
	t.selected = make(map[int]struct{})
	wanted := make(map[int]struct{}, len(selectedFeatures))
	for _, idx := range selectedFeatures {
		wanted[idx] = struct{}{}
	}
	for row, r := range t.rows {
		if _, ok := wanted[r.FeatureIndex]; ok {
			t.selected[row] = struct{}{}
		}
	}
	t.scrollRow = -1
}

// rowLess compares two rows on a column; GSD and cloud cover compare
// numerically, the rest lexicographically
func rowLess(a, b Row, column Column) bool {
	switch column {
	case ColumnDate:
		return a.Date < b.Date
	case ColumnPlatform:
		return strings.ToLower(a.Platform) < strings.ToLower(b.Platform)
	case ColumnGSD:
		return a.GSD < b.GSD
	case ColumnCloud:
		return a.CloudPercent < b.CloudPercent
	case ColumnCatalogID:
		return a.CatalogID < b.CatalogID
	case ColumnQuadkey:
		return a.Quadkey < b.Quadkey
	}
	return false
}
