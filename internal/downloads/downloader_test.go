package downloads

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opendata-desktop/internal/catalog"
)

func testServer(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunDownloadsAllFiles(t *testing.T) {
	payload := bytes.Repeat([]byte("tile"), 1024)
	server := testServer(t, map[string][]byte{
		"/a.tif": payload,
		"/b.tif": payload,
	})

	fs := afero.NewMemMapFs()
	d := NewDownloader(fs, server.Client())

	var started []string
	result := d.Run(context.Background(), []Task{
		{URL: server.URL + "/a.tif", Filename: "a.tif"},
		{URL: server.URL + "/b.tif", Filename: "b.tif"},
	}, "/out", Callbacks{
		OnFileStart: func(current, total int, filename string) {
			assert.Equal(t, 2, total)
			started = append(started, filename)
		},
	})

	assert.Equal(t, Result{Succeeded: 2}, result)
	assert.Equal(t, []string{"a.tif", "b.tif"}, started)

	for _, name := range []string{"a.tif", "b.tif"} {
		data, err := afero.ReadFile(fs, filepath.Join("/out", name))
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	}
}

func TestRunContinuesPastFailedFile(t *testing.T) {
	server := testServer(t, map[string][]byte{
		"/good1.tif": []byte("one"),
		"/good2.tif": []byte("two"),
		"/good3.tif": []byte("three"),
		"/good4.tif": []byte("four"),
	})

	fs := afero.NewMemMapFs()
	d := NewDownloader(fs, server.Client())

	var failed []string
	result := d.Run(context.Background(), []Task{
		{URL: server.URL + "/good1.tif", Filename: "good1.tif"},
		{URL: server.URL + "/missing.tif", Filename: "missing.tif"},
		{URL: server.URL + "/good2.tif", Filename: "good2.tif"},
		{URL: server.URL + "/good3.tif", Filename: "good3.tif"},
		{URL: server.URL + "/good4.tif", Filename: "good4.tif"},
	}, "/out", Callbacks{
		OnFileError: func(filename string, err error) {
			failed = append(failed, filename)
			assert.Contains(t, err.Error(), "404")
		},
	})

	assert.Equal(t, Result{Succeeded: 4, Failed: 1}, result)
	assert.Equal(t, []string{"missing.tif"}, failed)

	// The bad URL left nothing behind, every good one completed
	exists, _ := afero.Exists(fs, "/out/missing.tif")
	assert.False(t, exists)
	for _, name := range []string{"good1.tif", "good2.tif", "good3.tif", "good4.tif"} {
		exists, _ = afero.Exists(fs, "/out/"+name)
		assert.True(t, exists, name)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := NewDownloader(fs, nil)
	d.Cancel()

	result := d.Run(context.Background(), []Task{
		{URL: "http://127.0.0.1:1/never.tif", Filename: "never.tif"},
	}, "/out", Callbacks{})

	assert.Equal(t, Result{Cancelled: true}, result)
}

func TestCancelMidBatchRemovesPartialFile(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 8)
	server := testServer(t, map[string][]byte{
		"/1.tif": payload,
		"/2.tif": payload,
		"/3.tif": payload,
	})

	fs := afero.NewMemMapFs()
	d := NewDownloader(fs, server.Client())

	result := d.Run(context.Background(), []Task{
		{URL: server.URL + "/1.tif", Filename: "1.tif"},
		{URL: server.URL + "/2.tif", Filename: "2.tif"},
		{URL: server.URL + "/3.tif", Filename: "3.tif"},
	}, "/out", Callbacks{
		OnFileStart: func(current, total int, filename string) {
			if current == 2 {
				d.Cancel()
			}
		},
	})

	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 0, result.Failed)

	// The completed file stays, the in-flight one was cleaned up, the
	// remaining task never started
	exists, _ := afero.Exists(fs, "/out/1.tif")
	assert.True(t, exists)
	exists, _ = afero.Exists(fs, "/out/2.tif")
	assert.False(t, exists)
	exists, _ = afero.Exists(fs, "/out/3.tif")
	assert.False(t, exists)
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := afero.NewMemMapFs()
	d := NewDownloader(fs, nil)

	result := d.Run(ctx, []Task{
		{URL: "http://127.0.0.1:1/never.tif", Filename: "never.tif"},
	}, "/out", Callbacks{})

	assert.Equal(t, Result{Cancelled: true}, result)
	assert.False(t, d.IsCancelled()) // only the context was cancelled
}

func TestProgressReachesFullWithContentLength(t *testing.T) {
	payload := bytes.Repeat([]byte("p"), 4096)
	server := testServer(t, map[string][]byte{"/p.tif": payload})

	fs := afero.NewMemMapFs()
	d := NewDownloader(fs, server.Client())

	var lastPercent int
	result := d.Run(context.Background(), []Task{
		{URL: server.URL + "/p.tif", Filename: "p.tif"},
	}, "/out", Callbacks{
		OnFileProgress: func(percent int) {
			assert.GreaterOrEqual(t, percent, lastPercent)
			lastPercent = percent
		},
	})

	assert.Equal(t, Result{Succeeded: 1}, result)
	assert.Equal(t, 100, lastPercent)
}

func TestBuildTasks(t *testing.T) {
	clouds := 4.2
	footprints := []catalog.Footprint{
		{
			Properties: catalog.FootprintProperties{
				Datetime:      "2023-02-07T08:29:14Z",
				CloudsPercent: &clouds,
				CatalogID:     "10504100109C5A00",
				Quadkey:       "031133221101",
				Visual:        "https://example.com/visual.tif",
			},
		},
		{
			// No visual asset on this footprint
			Properties: catalog.FootprintProperties{
				Datetime:  "2023-02-08T08:30:00Z",
				CatalogID: "10300100E0DA8F00",
				Quadkey:   "031133221103",
			},
		},
	}

	tasks, notAvailable := BuildTasks(footprints, catalog.ProductVisual)

	require.Len(t, tasks, 1)
	assert.Equal(t, 1, notAvailable)
	assert.Equal(t, "https://example.com/visual.tif", tasks[0].URL)
	assert.Equal(t, "10504100109C5A00_031133221101_2023-02-07_visual.tif", tasks[0].Filename)
}

func TestBuildTasksNoAssetsAtAll(t *testing.T) {
	footprints := []catalog.Footprint{
		{Properties: catalog.FootprintProperties{Quadkey: "0311"}},
	}

	tasks, notAvailable := BuildTasks(footprints, catalog.ProductPanAnalytic)
	assert.Empty(t, tasks)
	assert.Equal(t, 1, notAvailable)
}

func TestTaskFilenameFallbacks(t *testing.T) {
	fp := catalog.Footprint{
		Properties: catalog.FootprintProperties{
			Datetime: "2023-02-07T08:29:14Z",
			Quadkey:  "031133221101",
		},
	}

	name := TaskFilename(fp, catalog.ProductVisual)
	assert.Equal(t, "unknown_031133221101_2023-02-07_visual.tif", name)
}

func TestTaskFilenameSanitizesComponents(t *testing.T) {
	fp := catalog.Footprint{
		Properties: catalog.FootprintProperties{
			Datetime:  "2023-02-07T08:29:14Z",
			CatalogID: "105041/0010:9C5A00",
			Quadkey:   "031133221101",
		},
	}

	name := TaskFilename(fp, catalog.ProductVisual)
	assert.Equal(t, "105041-0010-9C5A00_031133221101_2023-02-07_visual.tif", name)
}
