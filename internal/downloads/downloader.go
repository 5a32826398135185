package downloads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
)

const (
	// ChunkSize is the streaming write granularity. Cancellation latency is
	// bounded by the time to transfer one chunk.
	ChunkSize = 1024 * 1024 // 1 MiB

	// DefaultFileTimeout bounds a single file transfer
	DefaultFileTimeout = 60 * time.Second
)

// ErrCancelled is returned by downloadFile when cancellation interrupts a
// transfer mid-file; Run folds it into Result.Cancelled
var ErrCancelled = errors.New("download cancelled")

// Result is the terminal outcome of a batch
type Result struct {
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Cancelled bool `json:"cancelled"`
}

// Callbacks receive progress during a batch. Any callback may be nil.
type Callbacks struct {
	// OnFileStart is called before each task with its 1-based position.
	OnFileStart func(current, total int, filename string)

	// OnFileProgress reports percent complete for the active file, derived
	// from Content-Length. Stays at 0 when the length is unknown.
	OnFileProgress func(percent int)

	// OnFileError reports a per-file failure. The batch continues.
	OnFileError func(filename string, err error)
}

// Downloader streams a batch of files to disk, one at a time
type Downloader struct {
	fs         afero.Fs
	httpClient *http.Client
	cancelled  atomic.Bool
}

// NewDownloader creates a downloader writing through the given filesystem
func NewDownloader(fs afero.Fs, httpClient *http.Client) *Downloader {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   DefaultFileTimeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		}
	}
	return &Downloader{
		fs:         fs,
		httpClient: httpClient,
	}
}

// Cancel requests cooperative cancellation. The flag is checked at every
// task boundary and between chunks; the partial file in flight at cancel
// time is removed.
func (d *Downloader) Cancel() {
	d.cancelled.Store(true)
}

// IsCancelled reports whether cancellation has been requested
func (d *Downloader) IsCancelled() bool {
	return d.cancelled.Load()
}

// Run processes tasks strictly in submission order. A failing task is
// counted and reported but does not stop the remaining queue; only
// cancellation stops it early.
func (d *Downloader) Run(ctx context.Context, tasks []Task, outputDir string, cb Callbacks) Result {
	var result Result
	total := len(tasks)

	for i, task := range tasks {
		if d.cancelled.Load() || ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		if cb.OnFileStart != nil {
			cb.OnFileStart(i+1, total, task.Filename)
		}

		outputPath := filepath.Join(outputDir, task.Filename)
		err := d.downloadFile(ctx, task.URL, outputPath, cb)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				result.Cancelled = true
				break
			}
			result.Failed++
			if cb.OnFileError != nil {
				cb.OnFileError(task.Filename, err)
			}
			continue
		}

		result.Succeeded++
	}

	return result
}

// downloadFile streams one URL to disk in fixed-size chunks. On
// cancellation the partially written file is removed and ErrCancelled is
// returned.
func (d *Downloader) downloadFile(ctx context.Context, url, outputPath string, cb Callbacks) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}

	totalSize := resp.ContentLength // -1 when the server omits Content-Length

	out, err := d.fs.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	var downloaded int64
	buf := make([]byte, ChunkSize)
	for {
		if d.cancelled.Load() || ctx.Err() != nil {
			out.Close()
			d.fs.Remove(outputPath) // Best effort cleanup of the partial file
			return ErrCancelled
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				d.fs.Remove(outputPath)
				return fmt.Errorf("failed to write file: %w", writeErr)
			}
			downloaded += int64(n)

			if totalSize > 0 && cb.OnFileProgress != nil {
				cb.OnFileProgress(int(downloaded * 100 / totalSize))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			d.fs.Remove(outputPath)
			return fmt.Errorf("failed to read response: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	return nil
}
