package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
	"github.com/spf13/afero"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"opendata-desktop/internal/cache"
	"opendata-desktop/internal/catalog"
	"opendata-desktop/internal/common"
	"opendata-desktop/internal/config"
	"opendata-desktop/internal/downloads"
	"opendata-desktop/internal/selection"
)

// Linker flags
var (
	PostHogKey  string
	PostHogHost string
	AppVersion  string = "0.0.0-dev"
)

// EventItem is one catalog event prepared for the event dropdown
type EventItem struct {
	Name      string `json:"name"`
	TileCount int    `json:"tileCount"`
	Label     string `json:"label"`
}

// FootprintsResult summarizes a footprint load for the frontend
type FootprintsResult struct {
	Event    string              `json:"event"`
	Total    int                 `json:"total"`
	Filtered int                 `json:"filtered"`
	Rows     []selection.Row     `json:"rows"`
	Extent   *common.BoundingBox `json:"extent,omitempty"`
}

// LayerPayload is the vector-layer descriptor pushed to the map canvas
type LayerPayload struct {
	Name     string               `json:"name"`
	GeoJSON  json.RawMessage      `json:"geojson"`
	Style    selection.LayerStyle `json:"style"`
	Extent   *common.BoundingBox  `json:"extent,omitempty"`
	AutoZoom bool                 `json:"autoZoom"`
}

// SelectionState mirrors the table and layer selection to the frontend.
// ScrollRow is the table row to reveal, -1 when none.
type SelectionState struct {
	Rows       []int `json:"rows"`
	FeatureIDs []int `json:"featureIds"`
	ScrollRow  int   `json:"scrollRow"`
}

// RasterLayer describes one COG imagery layer streamed over HTTP
type RasterLayer struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Product string `json:"product"`
}

// LoadImageryResult reports how many raster layers could be opened
type LoadImageryResult struct {
	Loaded       int           `json:"loaded"`
	NotAvailable int           `json:"notAvailable"`
	Layers       []RasterLayer `json:"layers"`
}

// DownloadProgress reports batch download progress
type DownloadProgress struct {
	BatchID     string `json:"batchId"`
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	Filename    string `json:"filename"`
	FilePercent int    `json:"filePercent"`
	Status      string `json:"status"`
}

// DownloadFinished is the terminal report of a batch download
type DownloadFinished struct {
	BatchID      string `json:"batchId"`
	Succeeded    int    `json:"succeeded"`
	Failed       int    `json:"failed"`
	NotAvailable int    `json:"notAvailable"`
	Cancelled    bool   `json:"cancelled"`
	OutputDir    string `json:"outputDir"`
	Product      string `json:"product"`
}

// App struct
type App struct {
	ctx           context.Context
	client        *catalog.Client
	resourceCache *cache.ResourceCache
	settings      *config.UserSettings
	mu            sync.Mutex
	devMode       bool // Enable verbose logging in dev mode only
	phClient      posthog.Client

	events     []catalog.Event
	eventName  string
	collection *catalog.FootprintCollection // unfiltered footprints of the last load

	table *selection.TableModel
	layer *selection.LayerModel
	sync  *selection.Synchronizer

	fetchingEvents     bool
	fetchingFootprints bool
	downloader         *downloads.Downloader
	downloadBatch      string
}

// NewApp creates a new App application struct
func NewApp() *App {
	settings, err := config.LoadSettings()
	if err != nil {
		log.Printf("Failed to load settings, using defaults: %v", err)
		settings = config.DefaultSettings()
	}
	log.Printf("Settings loaded from: %s", config.GetSettingsPath())

	var resourceCache *cache.ResourceCache
	if settings.CacheEnabled {
		cacheDir := cache.GetCacheDir()
		resourceCache, err = cache.NewResourceCache(cacheDir, settings.CacheMaxSizeMB, settings.CacheTTLDays)
		if err != nil {
			log.Printf("Failed to initialize catalog cache: %v", err)
			resourceCache = nil // Continue without cache
		} else {
			log.Printf("Catalog cache initialized at %s (max %d MB)", cacheDir, settings.CacheMaxSizeMB)
		}
	}

	// Initialize PostHog
	var phClient posthog.Client
	if PostHogKey != "" {
		phConfig := posthog.Config{
			Endpoint: PostHogHost,
		}
		client, err := posthog.NewWithConfig(PostHogKey, phConfig)
		if err != nil {
			log.Printf("Failed to initialize PostHog: %v", err)
		} else {
			phClient = client
		}
	}

	table := selection.NewTableModel()
	layer := selection.NewLayerModel()

	a := &App{
		settings:      settings,
		resourceCache: resourceCache,
		phClient:      phClient,
		table:         table,
		layer:         layer,
		sync:          selection.NewSynchronizer(table, layer),
	}
	a.client = a.newCatalogClient()

	return a
}

// newCatalogClient builds a catalog client from the current settings
func (a *App) newCatalogClient() *catalog.Client {
	opts := catalog.Options{
		Timeout: time.Duration(a.settings.RequestTimeoutSec) * time.Second,
	}
	if a.settings.CacheEnabled {
		opts.Cache = a.resourceCache
	}
	if a.settings.UseLocalData {
		opts.LocalDir = a.settings.LocalDataPath
	}
	return catalog.NewClient(opts)
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	// Create download directory if it doesn't exist
	os.MkdirAll(a.settings.DownloadPath, 0755)

	// Mirror every selection change to the frontend. The synchronizer was
	// registered first, so by the time these fire both views agree.
	a.table.AddListener(func() {
		wailsRuntime.EventsEmit(ctx, "selection-changed", a.selectionState())
	})
	a.layer.AddListener(func() {
		wailsRuntime.EventsEmit(ctx, "selection-changed", a.selectionState())
	})

	// Track app start
	a.TrackEvent("app_started", map[string]interface{}{
		"version": a.GetAppVersion(),
		"os":      goruntime.GOOS,
		"arch":    goruntime.GOARCH,
	})
}

// TrackEvent sends an event to PostHog
func (a *App) TrackEvent(event string, props map[string]interface{}) {
	if a.phClient != nil {
		a.phClient.Enqueue(posthog.Capture{
			DistinctId: "backend_user",
			Event:      event,
			Properties: props,
		})
	}
}

// Shutdown cleans up resources
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	if a.downloader != nil {
		a.downloader.Cancel()
	}
	a.mu.Unlock()

	if a.phClient != nil {
		a.phClient.Close()
	}
}

// GetAppVersion returns the current application version
func (a *App) GetAppVersion() string {
	return AppVersion
}

// emitLog sends a log message to the frontend (only in dev mode)
func (a *App) emitLog(message string) {
	if a.devMode {
		wailsRuntime.EventsEmit(a.ctx, "log", message)
	}
}

// selectionState snapshots the current selection of both views
func (a *App) selectionState() SelectionState {
	return SelectionState{
		Rows:       a.table.SelectedRows(),
		FeatureIDs: a.layer.SelectedIDs(),
		ScrollRow:  a.table.ScrollRow(),
	}
}

// ===================
// Catalog
// ===================

// RefreshEvents fetches the event index and returns dropdown entries
func (a *App) RefreshEvents() ([]EventItem, error) {
	a.mu.Lock()
	if a.fetchingEvents {
		a.mu.Unlock()
		return nil, fmt.Errorf("an event refresh is already in progress")
	}
	a.fetchingEvents = true
	client := a.client
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.fetchingEvents = false
		a.mu.Unlock()
	}()

	a.emitLog("Fetching event index...")
	events, err := client.FetchEvents(a.ctx)
	if err != nil {
		wailsRuntime.LogError(a.ctx, fmt.Sprintf("Failed to load events: %v", err))
		return nil, err
	}

	a.mu.Lock()
	a.events = events
	a.mu.Unlock()

	items := make([]EventItem, len(events))
	for i, event := range events {
		items[i] = EventItem{
			Name:      event.Name,
			TileCount: event.TileCount,
			Label:     fmt.Sprintf("%s (%d tiles)", event.Name, event.TileCount),
		}
	}

	log.Printf("Loaded %d events", len(items))
	return items, nil
}

// LoadFootprints fetches footprints for an event, applies the filters, and
// replaces the results table and the map layer with the filtered subset.
// Prior table and layer state stays untouched when the fetch fails.
func (a *App) LoadFootprints(eventName string, opts catalog.FilterOptions) (*FootprintsResult, error) {
	if eventName == "" {
		return nil, fmt.Errorf("no event selected")
	}
	if opts.DateRange != nil {
		if !common.ValidateISO8601(opts.DateRange.Start) || !common.ValidateISO8601(opts.DateRange.End) {
			return nil, fmt.Errorf("date range bounds must be YYYY-MM-DD")
		}
	}

	a.mu.Lock()
	if a.fetchingFootprints {
		a.mu.Unlock()
		return nil, fmt.Errorf("a footprint load is already in progress")
	}
	a.fetchingFootprints = true
	client := a.client
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.fetchingFootprints = false
		a.mu.Unlock()
	}()

	a.emitLog(fmt.Sprintf("Loading footprints for %s...", eventName))
	collection, err := client.FetchFootprints(a.ctx, eventName)
	if err != nil {
		wailsRuntime.LogError(a.ctx, fmt.Sprintf("Failed to load footprints for %s: %v", eventName, err))
		return nil, err
	}

	filtered := catalog.Filter(collection.Features, opts)
	subset := collection.Subset(filtered)
	geoJSON, err := subset.MarshalGeoJSON()
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.eventName = eventName
	a.collection = collection

	layerName := fmt.Sprintf("Maxar - %s Footprints", eventName)
	style := selection.DefaultLayerStyle(float64(a.settings.FootprintOpacity) / 100.0)
	a.layer.SetFeatures(layerName, subset, style)
	a.table.Populate(filtered)
	rows := a.table.Rows()
	autoZoom := a.settings.AutoZoom
	extent, hasExtent := a.layer.Extent()
	a.mu.Unlock()

	result := &FootprintsResult{
		Event:    eventName,
		Total:    len(collection.Features),
		Filtered: len(filtered),
		Rows:     rows,
	}
	payload := LayerPayload{
		Name:     layerName,
		GeoJSON:  geoJSON,
		Style:    style,
		AutoZoom: autoZoom,
	}
	if hasExtent {
		bbox := common.BoundingBoxFromBound(extent)
		result.Extent = &bbox
		payload.Extent = &bbox
	}

	wailsRuntime.EventsEmit(a.ctx, "footprints-layer", payload)
	log.Printf("Loaded %d footprints for %s (filtered from %d total)",
		len(filtered), eventName, len(collection.Features))

	a.TrackEvent("footprints_loaded", map[string]interface{}{
		"event":    eventName,
		"total":    len(collection.Features),
		"filtered": len(filtered),
	})

	return result, nil
}

// ClearLayers drops the footprint layer and table state
func (a *App) ClearLayers() {
	a.mu.Lock()
	a.layer.Clear()
	a.table.Populate(nil)
	a.collection = nil
	a.eventName = ""
	a.mu.Unlock()

	wailsRuntime.EventsEmit(a.ctx, "layers-cleared")
	log.Printf("Cleared all layers")
}

// ===================
// Selection
// ===================

// SelectTableRows replaces the table selection; the map layer follows
func (a *App) SelectTableRows(rows []int) SelectionState {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.table.Select(rows)
	return a.selectionState()
}

// SelectLayerFeatures replaces the layer selection; the table follows and
// the first matching row is revealed
func (a *App) SelectLayerFeatures(featureIDs []int) SelectionState {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.layer.SelectByIDs(featureIDs)
	return a.selectionState()
}

// SortTable re-sorts the results table by a column and returns the new row
// order. Selected footprints stay selected at their new positions.
func (a *App) SortTable(column string) []selection.Row {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.table.SortBy(selection.Column(column))
	rows := a.table.Rows()

	wailsRuntime.EventsEmit(a.ctx, "table-sorted", map[string]interface{}{
		"rows":      rows,
		"selection": a.selectionState(),
	})
	return rows
}

// ZoomToSelected returns the union extent of the selected footprints
func (a *App) ZoomToSelected() (*common.BoundingBox, error) {
	a.mu.Lock()
	bound, ok := a.layer.SelectionExtent()
	a.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no footprints selected")
	}

	bbox := common.BoundingBoxFromBound(bound)
	wailsRuntime.EventsEmit(a.ctx, "zoom-extent", bbox)
	return &bbox, nil
}

// ===================
// Imagery
// ===================

// LoadImagery opens the selected footprints' imagery as streaming COG
// raster layers on the map
func (a *App) LoadImagery(product string) (*LoadImageryResult, error) {
	p := catalog.Product(product)
	if !p.Valid() {
		return nil, fmt.Errorf("invalid imagery product: %s", product)
	}

	a.mu.Lock()
	features := a.layer.SelectedFeatures()
	a.mu.Unlock()

	if len(features) == 0 {
		return nil, fmt.Errorf("please select one or more footprints from the table")
	}

	result := &LoadImageryResult{Layers: []RasterLayer{}}
	for _, fp := range features {
		props := fp.Properties
		url := props.AssetURL(p)
		if url == "" {
			result.NotAvailable++
			continue
		}

		catalogID := props.CatalogID
		if catalogID == "" {
			catalogID = "unknown"
		}
		result.Layers = append(result.Layers, RasterLayer{
			Name:    fmt.Sprintf("Maxar %s - %s - %s (%s)", p.Label(), catalogID, props.Quadkey, props.Date()),
			URL:     url,
			Product: string(p),
		})
		result.Loaded++
	}

	if result.Loaded > 0 {
		wailsRuntime.EventsEmit(a.ctx, "raster-layers", result.Layers)
	}
	log.Printf("Prepared %d %s raster layer(s), %d footprint(s) without that product",
		result.Loaded, p.Label(), result.NotAvailable)

	a.TrackEvent("imagery_loaded", map[string]interface{}{
		"product": string(p),
		"loaded":  result.Loaded,
	})

	return result, nil
}

// ===================
// Downloads
// ===================

// DownloadImagery downloads the selected footprints' imagery for one
// product into a user-chosen directory. Returns the batch ID used in
// progress events, or an empty string when the user cancels the directory
// dialog.
func (a *App) DownloadImagery(product string) (string, error) {
	p := catalog.Product(product)
	if !p.Valid() {
		return "", fmt.Errorf("invalid imagery product: %s", product)
	}

	a.mu.Lock()
	if a.downloader != nil {
		a.mu.Unlock()
		return "", fmt.Errorf("a download is already in progress")
	}
	features := a.layer.SelectedFeatures()
	defaultDir := a.settings.LastDownloadDir
	if defaultDir == "" {
		defaultDir = a.settings.DownloadPath
	}
	timeout := time.Duration(a.settings.RequestTimeoutSec) * time.Second
	a.mu.Unlock()

	if len(features) == 0 {
		return "", fmt.Errorf("please select one or more footprints from the table")
	}

	tasks, notAvailable := downloads.BuildTasks(features, p)
	if len(tasks) == 0 {
		return "", fmt.Errorf("%s imagery not available for selected footprints", p.Label())
	}

	outputDir, err := wailsRuntime.OpenDirectoryDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title:            fmt.Sprintf("Select Download Directory for %s Imagery", p.Label()),
		DefaultDirectory: defaultDir,
	})
	if err != nil {
		return "", err
	}
	if outputDir == "" {
		return "", nil // User cancelled
	}

	downloader := downloads.NewDownloader(afero.NewOsFs(), &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
	})
	batchID := uuid.NewString()

	a.mu.Lock()
	if a.downloader != nil {
		a.mu.Unlock()
		return "", fmt.Errorf("a download is already in progress")
	}
	a.downloader = downloader
	a.downloadBatch = batchID
	a.settings.LastDownloadDir = outputDir
	if err := config.SaveSettings(a.settings); err != nil {
		log.Printf("Failed to persist last download directory: %v", err)
	}
	a.mu.Unlock()

	log.Printf("Starting download batch %s: %d %s file(s) to %s",
		batchID, len(tasks), p.Label(), outputDir)

	go a.runDownload(downloader, batchID, tasks, outputDir, p, notAvailable)

	return batchID, nil
}

// runDownload drives one batch on a background goroutine and reports
// progress through events
func (a *App) runDownload(d *downloads.Downloader, batchID string, tasks []downloads.Task, outputDir string, p catalog.Product, notAvailable int) {
	progress := DownloadProgress{
		BatchID: batchID,
		Total:   len(tasks),
		Status:  "downloading",
	}

	result := d.Run(a.ctx, tasks, outputDir, downloads.Callbacks{
		OnFileStart: func(current, total int, filename string) {
			progress.Current = current
			progress.Filename = filename
			progress.FilePercent = 0
			wailsRuntime.EventsEmit(a.ctx, "download-progress", progress)
		},
		OnFileProgress: func(percent int) {
			progress.FilePercent = percent
			wailsRuntime.EventsEmit(a.ctx, "download-progress", progress)
		},
		OnFileError: func(filename string, err error) {
			wailsRuntime.LogError(a.ctx, fmt.Sprintf("Failed to download %s: %v", filename, err))
			wailsRuntime.EventsEmit(a.ctx, "download-error", map[string]interface{}{
				"batchId":  batchID,
				"filename": filename,
				"error":    err.Error(),
			})
		},
	})

	a.mu.Lock()
	a.downloader = nil
	a.downloadBatch = ""
	a.mu.Unlock()

	wailsRuntime.EventsEmit(a.ctx, "download-finished", DownloadFinished{
		BatchID:      batchID,
		Succeeded:    result.Succeeded,
		Failed:       result.Failed,
		NotAvailable: notAvailable,
		Cancelled:    result.Cancelled,
		OutputDir:    outputDir,
		Product:      string(p),
	})
	log.Printf("Download batch %s finished: %d succeeded, %d failed, cancelled=%v",
		batchID, result.Succeeded, result.Failed, result.Cancelled)

	a.TrackEvent("download_finished", map[string]interface{}{
		"product":   string(p),
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"cancelled": result.Cancelled,
	})
}

// CancelDownload requests cancellation of the download batch in flight
func (a *App) CancelDownload() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.downloader == nil {
		return fmt.Errorf("no download in progress")
	}
	a.downloader.Cancel()
	log.Printf("Cancellation requested for batch %s", a.downloadBatch)
	return nil
}

// SelectDownloadFolder opens a folder picker dialog and persists the choice
func (a *App) SelectDownloadFolder() (string, error) {
	a.mu.Lock()
	defaultDir := a.settings.DownloadPath
	a.mu.Unlock()

	path, err := wailsRuntime.OpenDirectoryDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title:            "Select Download Folder",
		DefaultDirectory: defaultDir,
	})
	if err != nil {
		return "", err
	}

	if path != "" {
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
		a.mu.Lock()
		a.settings.DownloadPath = path
		err = config.SaveSettings(a.settings)
		a.mu.Unlock()
		if err != nil {
			return "", err
		}
	}

	return path, nil
}
