// Package downloader saves episode streams to disk and records each
// download in the local library.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/alvarorichard/hianime/internal/models"
	"github.com/alvarorichard/hianime/internal/tracking"
	"github.com/alvarorichard/hianime/internal/util"
)

// ErrNoSource is returned when an episode has no downloadable link
var ErrNoSource = errors.New("no downloadable source")

// progress is written to the library at most every progressStep
const progressStep = 0.05

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ProgressFunc receives the bytes written so far and the expected total,
// zero when the server sent no length
type ProgressFunc func(received, total int64)

// Recorder stores download records
type Recorder interface {
	AddDownload(anime models.Anime, episode models.Episode, filePath string, status tracking.DownloadStatus) (tracking.Download, error)
	UpdateDownload(id string, update tracking.DownloadUpdate) (bool, error)
}

// Request is one episode to save
type Request struct {
	Anime   models.Anime
	Episode models.Episode
	URL     string
}

// Downloader writes episodes below OutputDir, one folder per title
type Downloader struct {
	client    *http.Client
	outputDir string
	recorder  Recorder
}

// Option configures a Downloader
type Option func(*Downloader)

// WithHTTPClient replaces the default client, which has no overall timeout
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// New creates a downloader. recorder may be nil.
func New(outputDir string, recorder Recorder, opts ...Option) *Downloader {
	d := &Downloader{
		client:    &http.Client{},
		outputDir: outputDir,
		recorder:  recorder,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OutputDir returns the download root
func (d *Downloader) OutputDir() string {
	return d.outputDir
}

// Path is the file an episode is saved to
func (d *Downloader) Path(anime models.Anime, episode models.Episode) string {
	folder := safeName(anime.ID)
	if folder == "" {
		folder = "unknown"
	}
	return filepath.Join(d.outputDir, folder, strconv.Itoa(episode.Number)+".mp4")
}

func safeName(s string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(s, "_"), "._")
}

// sanitizeDestPath ensures the destination path stays within the output dir
func (d *Downloader) sanitizeDestPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty destination path")
	}
	absDir, err := filepath.Abs(filepath.Clean(d.outputDir))
	if err != nil {
		return "", err
	}
	absFile, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absDir, absFile)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("destination escapes output directory: %s", p)
	}
	return absFile, nil
}

// Download saves req and keeps its library record current: pending, then
// downloading with progress, then completed or failed.
func (d *Downloader) Download(ctx context.Context, req Request, onProgress ProgressFunc) (tracking.Download, error) {
	dest, err := d.sanitizeDestPath(d.Path(req.Anime, req.Episode))
	if err != nil {
		return tracking.Download{}, fmt.Errorf("invalid destination path: %w", err)
	}

	record := tracking.Download{
		ID:       tracking.DownloadID(req.Anime.ID, req.Episode.Number),
		Anime:    req.Anime,
		Episode:  req.Episode,
		FilePath: dest,
		Status:   tracking.StatusPending,
	}
	if d.recorder != nil {
		if record, err = d.recorder.AddDownload(req.Anime, req.Episode, dest, tracking.StatusPending); err != nil {
			return tracking.Download{}, fmt.Errorf("failed to record download: %w", err)
		}
	}

	if strings.TrimSpace(req.URL) == "" {
		d.update(record.ID, tracking.StatusFailed, nil)
		record.Status = tracking.StatusFailed
		return record, ErrNoSource
	}

	d.update(record.ID, tracking.StatusDownloading, nil)

	if err := d.fetch(ctx, req.URL, dest, record.ID, onProgress); err != nil {
		d.update(record.ID, tracking.StatusFailed, nil)
		record.Status = tracking.StatusFailed
		return record, err
	}

	done := 1.0
	d.update(record.ID, tracking.StatusCompleted, &done)
	record.Status = tracking.StatusCompleted
	record.Progress = done
	util.Info("Download completed", "id", record.ID, "path", dest)
	return record, nil
}

func (d *Downloader) update(id string, status tracking.DownloadStatus, progress *float64) {
	if d.recorder == nil {
		return
	}
	if _, err := d.recorder.UpdateDownload(id, tracking.DownloadUpdate{Status: &status, Progress: progress}); err != nil {
		util.Warn("Failed to update download record", "id", id, "error", err)
	}
}

func (d *Downloader) updateProgress(id string, progress float64) {
	if d.recorder == nil {
		return
	}
	if _, err := d.recorder.UpdateDownload(id, tracking.DownloadUpdate{Progress: &progress}); err != nil {
		util.Warn("Failed to update download progress", "id", id, "error", err)
	}
}

// fetch streams url into dest through a .part file
func (d *Downloader) fetch(ctx context.Context, url, dest, id string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", util.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to start download: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			util.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	part := dest + ".part"
	// #nosec G304: dest validated by sanitizeDestPath
	out, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	w := &progressWriter{total: total, onProgress: func(received int64) {
		if onProgress != nil {
			onProgress(received, total)
		}
	}}
	w.onStep = func(fraction float64) { d.updateProgress(id, fraction) }

	_, copyErr := io.Copy(io.MultiWriter(out, w), resp.Body)
	closeErr := out.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(part)
		return fmt.Errorf("failed to write episode: %w", copyErr)
	}

	if err := os.Rename(part, dest); err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("failed to finish download: %w", err)
	}
	return nil
}

// progressWriter counts bytes and reports progress in steps
type progressWriter struct {
	total      int64
	received   int64
	lastStep   float64
	onProgress func(received int64)
	onStep     func(fraction float64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.received += int64(len(p))
	w.onProgress(w.received)

	if w.total > 0 {
		fraction := float64(w.received) / float64(w.total)
		if fraction-w.lastStep >= progressStep && fraction < 1 {
			w.lastStep = fraction
			w.onStep(fraction)
		}
	}
	return len(p), nil
}
