// internal/create/workflow.go
package create

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/equibase/jobdash/internal/jobcache"
	"github.com/equibase/jobdash/pkg/schema"
)

// DefaultMaxUploadMB is the file-size cap applied when none is
// configured. Deployments have run with 4 and with 10; the cap is a
// configuration point, not a law.
const DefaultMaxUploadMB = 4

// ValidationError rejects a file before any network call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Phase tracks the creation dialog's state machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSelected  Phase = "selected"
	PhaseUploading Phase = "uploading"
	PhaseCreating  Phase = "creating"
	PhaseSuccess   Phase = "success"
	PhaseError     Phase = "error"
)

// Uploader is the slice of the storage client the workflow needs.
type Uploader interface {
	UploadPDF(ctx context.Context, r io.Reader, filename string) (string, error)
	ResolveURL(object string) (string, error)
}

// JobCreator is the slice of the API client the workflow needs.
type JobCreator interface {
	CreateJob(ctx context.Context, req schema.CreateJobRequest) (*schema.Job, error)
}

// File is an accepted, not yet uploaded selection.
type File struct {
	Path string
	Name string
	Size int64
}

// Snapshot is a point-in-time view model of the dialog.
type Snapshot struct {
	Phase     Phase
	File      *File
	SizeLabel string
	Estimate  string
	Err       error
}

// Workflow drives job creation: validate a selected file locally, then
// on submit upload it, resolve a fetchable URL, and create the job. A
// failed submit keeps the file so the user can resubmit; a successful
// one resets the dialog and invalidates the job list.
type Workflow struct {
	uploader Uploader
	api      JobCreator
	cache    *jobcache.Cache
	maxBytes int64
	logger   *slog.Logger

	mu    sync.Mutex
	phase Phase
	file  *File
	err   error
}

// NewWorkflow builds a workflow with the given upload cap in megabytes.
// Zero or negative falls back to DefaultMaxUploadMB.
func NewWorkflow(uploader Uploader, api JobCreator, cache *jobcache.Cache, maxUploadMB int, logger *slog.Logger) *Workflow {
	if maxUploadMB <= 0 {
		maxUploadMB = DefaultMaxUploadMB
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		uploader: uploader,
		api:      api,
		cache:    cache,
		maxBytes: int64(maxUploadMB) << 20,
		logger:   logger,
	}
}

// Select validates the file at path and holds it for submission.
// Rejections return a *ValidationError and leave the dialog where it
// was: no file is held, nothing advances.
func (w *Workflow) Select(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect file type: %w", err)
	}
	if !mt.Is("application/pdf") {
		return &ValidationError{Reason: "Please select a PDF file."}
	}
	if info.Size() > w.maxBytes {
		return &ValidationError{Reason: fmt.Sprintf("File size must be less than %dMB.", w.maxBytes>>20)}
	}

	w.mu.Lock()
	w.file = &File{Path: path, Name: filepath.Base(path), Size: info.Size()}
	w.phase = PhaseSelected
	w.err = nil
	w.mu.Unlock()
	return nil
}

// Submit runs the upload-then-create pipeline for the held file. On
// success the dialog resets and the list cache is invalidated so the
// new job shows up on the next fetch. On failure the file stays held
// and the error is kept for display; calling Submit again retries.
func (w *Workflow) Submit(ctx context.Context) (*schema.Job, error) {
	w.mu.Lock()
	file := w.file
	if file == nil {
		w.mu.Unlock()
		return nil, &ValidationError{Reason: "No file selected."}
	}
	w.phase = PhaseUploading
	w.err = nil
	w.mu.Unlock()

	reader, err := os.Open(file.Path)
	if err != nil {
		return nil, w.fail(fmt.Errorf("open %s: %w", file.Name, err))
	}
	defer reader.Close()

	object, err := w.uploader.UploadPDF(ctx, reader, file.Name)
	if err != nil {
		return nil, w.fail(err)
	}

	url, err := w.uploader.ResolveURL(object)
	if err != nil {
		return nil, w.fail(err)
	}

	w.mu.Lock()
	w.phase = PhaseCreating
	w.mu.Unlock()

	job, err := w.api.CreateJob(ctx, schema.CreateJobRequest{
		Title:  strings.TrimSuffix(file.Name, filepath.Ext(file.Name)),
		PDFURL: url,
	})
	if err != nil {
		return nil, w.fail(err)
	}

	w.mu.Lock()
	w.phase = PhaseSuccess
	w.file = nil
	w.mu.Unlock()

	w.logger.Info("job created", "job_id", job.ID, "title", job.Title)
	w.cache.InvalidateLists()
	return job, nil
}

func (w *Workflow) fail(err error) error {
	w.mu.Lock()
	w.phase = PhaseError
	w.err = err
	w.mu.Unlock()
	w.logger.Warn("job creation failed", "err", err)
	return err
}

// Reset clears the held file and any error, returning to idle.
func (w *Workflow) Reset() {
	w.mu.Lock()
	w.phase = PhaseIdle
	w.file = nil
	w.err = nil
	w.mu.Unlock()
}

// Snapshot returns the dialog view model, including the advisory size
// and processing-time labels for the held file.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{Phase: w.phase, Err: w.err}
	if snap.Phase == "" {
		snap.Phase = PhaseIdle
	}
	if w.file != nil {
		f := *w.file
		snap.File = &f
		snap.SizeLabel = FormatFileSize(f.Size)
		snap.Estimate = EstimateLabel(f.Size)
	}
	return snap
}
