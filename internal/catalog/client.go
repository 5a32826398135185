package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"opendata-desktop/internal/cache"
)

const (
	// Maxar Open Data repository served as static files
	DefaultBaseURL = "https://raw.githubusercontent.com/opengeos/maxar-open-data/master"

	// User agent sent with catalog requests
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

	// DefaultTimeout bounds a single catalog request
	DefaultTimeout = 30 * time.Second

	datasetsIndex = "datasets.csv"
)

// StatusError is returned when the catalog host answers with a non-OK status
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP Error: %d fetching %s", e.Code, e.URL)
}

// Options configures a catalog client
type Options struct {
	// BaseURL overrides the catalog host. Default: DefaultBaseURL.
	BaseURL string

	// Timeout bounds each request. Default: DefaultTimeout.
	Timeout time.Duration

	// LocalDir, when set, reads catalog files from a local checkout of the
	// open-data repository instead of the network.
	LocalDir string

	// Cache is an optional disk cache for fetched resources.
	Cache *cache.ResourceCache
}

// Client fetches the event index and per-event footprint collections
type Client struct {
	httpClient *http.Client
	baseURL    string
	localDir   string
	cache      *cache.ResourceCache
}

// NewClient creates a catalog client with system proxy support
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		baseURL:  opts.BaseURL,
		localDir: opts.LocalDir,
		cache:    opts.Cache,
	}
}

// FetchEvents downloads and parses the event index, sorted by name
func (c *Client) FetchEvents(ctx context.Context) ([]Event, error) {
	data, err := c.fetchResource(ctx, datasetsIndex)
	if err != nil {
		return nil, err
	}

	events, err := parseEvents(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event index: %w", err)
	}

	sort.Slice(events, func(i, j int) bool {
		return strings.ToLower(events[i].Name) < strings.ToLower(events[j].Name)
	})

	return events, nil
}

// FetchFootprints downloads and parses the footprint collection for an event
func (c *Client) FetchFootprints(ctx context.Context, event string) (*FootprintCollection, error) {
	data, err := c.fetchResource(ctx, fmt.Sprintf("datasets/%s.geojson", event))
	if err != nil {
		return nil, err
	}

	var collection FootprintCollection
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, fmt.Errorf("JSON Parse Error: %w", err)
	}

	return &collection, nil
}

// fetchResource reads a catalog file from the local directory, the cache,
// or the network, in that order
func (c *Client) fetchResource(ctx context.Context, name string) ([]byte, error) {
	if c.localDir != "" {
		data, err := os.ReadFile(filepath.Join(c.localDir, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("failed to read local catalog file: %w", err)
		}
		return data, nil
	}

	url := c.baseURL + "/" + name
	if c.cache != nil {
		if data, ok := c.cache.Get(url); ok {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("URL Error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.cache != nil {
		c.cache.Put(url, data)
	}

	return data, nil
}

// parseEvents parses the CSV index: a header row followed by name,count rows.
// Rows with a missing or malformed tile count are skipped rather than
// failing the whole index.
func parseEvents(data []byte) ([]Event, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty event index")
	}

	events := make([]Event, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			continue
		}
		events = append(events, Event{
			Name:      strings.TrimSpace(record[0]),
			TileCount: count,
		})
	}

	return events, nil
}
