package downloads

import (
	"fmt"

	"opendata-desktop/internal/catalog"
	"opendata-desktop/internal/utils/naming"
)

// Task is a single file to download: one product asset of one footprint
type Task struct {
	URL      string          `json:"url"`
	Filename string          `json:"filename"`
	Product  catalog.Product `json:"product"`
}

// TaskFilename builds the artifact name for a footprint's product asset:
// {catalog_id}_{quadkey}_{date}_{product}.tif
func TaskFilename(fp catalog.Footprint, product catalog.Product) string {
	props := fp.Properties

	catalogID := naming.SanitizeComponent(props.CatalogID)
	if catalogID == "" {
		catalogID = "unknown"
	}

	quadkey := naming.SanitizeComponent(props.Quadkey)
	if quadkey == "" {
		if bound, ok := fp.Bound(); ok {
			quadkey = naming.QuadkeyForBound(bound, naming.MaxarGridZoom)
		}
	}

	return fmt.Sprintf("%s_%s_%s_%s.tif", catalogID, quadkey, props.Date(), product)
}

// BuildTasks collects download tasks for the given product across the
// selected footprints. Footprints without that product asset are counted
// but produce no task, so one event carrying only Visual imagery still
// downloads cleanly.
func BuildTasks(footprints []catalog.Footprint, product catalog.Product) (tasks []Task, notAvailable int) {
	for _, fp := range footprints {
		url := fp.Properties.AssetURL(product)
		if url == "" {
			notAvailable++
			continue
		}
		tasks = append(tasks, Task{
			URL:      url,
			Filename: TaskFilename(fp, product),
			Product:  product,
		})
	}
	return tasks, notAvailable
}
