package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opendata-desktop/internal/catalog"
)

func testFootprints() []catalog.Footprint {
	seeds := []struct {
		date     string
		platform string
		gsd      float64
		clouds   float64
		quadkey  string
	}{
		{"2023-02-07T08:29:14Z", "GE01", 0.51, 40, "031133221101"},
		{"2023-02-06T08:30:00Z", "WV02", 0.46, 10, "031133221103"},
		{"2023-02-09T08:31:00Z", "WV03", 0.31, 25, "031133221110"},
		{"2023-02-08T08:32:00Z", "ge01", 0.52, 5, "031133221112"},
	}

	footprints := make([]catalog.Footprint, len(seeds))
	for i, s := range seeds {
		clouds := s.clouds
		footprints[i] = catalog.Footprint{
			Type: "Feature",
			Properties: catalog.FootprintProperties{
				Datetime:      s.date,
				Platform:      s.platform,
				GSD:           s.gsd,
				CloudsPercent: &clouds,
				Quadkey:       s.quadkey,
			},
		}
	}
	return footprints
}

func newSyncedModels(t *testing.T) (*TableModel, *LayerModel) {
	t.Helper()
	table := NewTableModel()
	layer := NewLayerModel()
	NewSynchronizer(table, layer)

	footprints := testFootprints()
	table.Populate(footprints)
	layer.SetFeatures("test", catalog.FootprintCollection{
		Type:     "FeatureCollection",
		Features: footprints,
	}, DefaultLayerStyle(0.5))
	return table, layer
}

func TestTableSelectionMirrorsToLayer(t *testing.T) {
	table, layer := newSyncedModels(t)

	table.Select([]int{0, 2})

	assert.Equal(t, []int{0, 2}, layer.SelectedIDs())
	assert.Equal(t, []int{0, 2}, table.SelectedRows())
}

func TestLayerSelectionMirrorsToTable(t *testing.T) {
	table, layer := newSyncedModels(t)

	layer.SelectByIDs([]int{1, 3})

	assert.Equal(t, []int{1, 3}, table.SelectedRows())
	assert.Equal(t, 1, table.ScrollRow()) // first matching row revealed
}

func TestSelectionSurvivesResort(t *testing.T) {
	table, layer := newSyncedModels(t)

	// Select the cloudiest footprint (feature 0, 40%) then sort by cloud
	// cover ascending; it lands on the last row but stays selected
	table.Select([]int{0})
	table.SortBy(ColumnCloud)

	assert.Equal(t, []int{3}, table.SelectedRows())
	assert.Equal(t, []int{0}, table.SelectedFeatureIndices())
	assert.Equal(t, []int{0}, layer.SelectedIDs())
}

func TestLayerSelectionAfterResortFindsNewRows(t *testing.T) {
	table, layer := newSyncedModels(t)

	table.SortBy(ColumnDate) // rows now 2023-02-06 .. 2023-02-09

	layer.SelectByIDs([]int{2}) // 2023-02-09, sorted last

	assert.Equal(t, []int{3}, table.SelectedRows())
	assert.Equal(t, 3, table.ScrollRow())
	assert.Equal(t, []int{2}, table.SelectedFeatureIndices())
}

func TestSyncIsIdempotent(t *testing.T) {
	table, layer := newSyncedModels(t)

	table.Select([]int{1})
	layer.SelectByIDs(layer.SelectedIDs())
	table.Select(table.SelectedRows())

	assert.Equal(t, []int{1}, table.SelectedRows())
	assert.Equal(t, []int{1}, layer.SelectedIDs())
}

func TestGuardStopsPingPong(t *testing.T) {
	table, layer := newSyncedModels(t)

	var tableNotifies, layerNotifies int
	table.AddListener(func() { tableNotifies++ })
	layer.AddListener(func() { layerNotifies++ })

	table.Select([]int{0})

	// One table change, one mirrored layer change, nothing further
	assert.Equal(t, 1, tableNotifies)
	assert.Equal(t, 1, layerNotifies)
}

func TestOutOfRangeSelectionsIgnored(t *testing.T) {
	table, layer := newSyncedModels(t)

	table.Select([]int{-1, 1, 99})
	assert.Equal(t, []int{1}, table.SelectedRows())
	assert.Equal(t, []int{1}, layer.SelectedIDs())

	layer.SelectByIDs([]int{-5, 2, 100})
	assert.Equal(t, []int{2}, layer.SelectedIDs())
	assert.Equal(t, []int{2}, table.SelectedRows())
}

func TestPopulateClearsSelection(t *testing.T) {
	table, layer := newSyncedModels(t)

	table.Select([]int{0, 1})
	require.NotEmpty(t, layer.SelectedIDs())

	table.Populate(testFootprints()[:2])

	assert.Empty(t, table.SelectedRows())
	assert.Empty(t, layer.SelectedIDs())
	assert.Equal(t, -1, table.ScrollRow())
}

func TestSortToggleDirection(t *testing.T) {
	table, _ := newSyncedModels(t)

	table.SortBy(ColumnGSD)
	rows := table.Rows()
	assert.Equal(t, 0.31, rows[0].GSD)

	table.SortBy(ColumnGSD)
	rows = table.Rows()
	assert.Equal(t, 0.52, rows[0].GSD)
}

func TestSortPlatformCaseInsensitive(t *testing.T) {
	table, _ := newSyncedModels(t)

	table.SortBy(ColumnPlatform)
	rows := table.Rows()

	// "GE01" and "ge01" sort together ahead of the WorldView platforms
	assert.Equal(t, "GE01", rows[0].Platform)
	assert.Equal(t, "ge01", rows[1].Platform)
	assert.Equal(t, "WV02", rows[2].Platform)
	assert.Equal(t, "WV03", rows[3].Platform)
}
