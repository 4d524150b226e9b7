package create

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/equibase/jobdash/internal/jobcache"
	"github.com/equibase/jobdash/pkg/schema"
)

type fakeUploader struct {
	uploads    []string
	resolved   []string
	uploadErr  error
	resolveErr error
}

func (f *fakeUploader) UploadPDF(ctx context.Context, r io.Reader, filename string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	object := "uploads/fake_" + filename
	f.uploads = append(f.uploads, object)
	return object, nil
}

func (f *fakeUploader) ResolveURL(object string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	f.resolved = append(f.resolved, object)
	return "https://example.com/" + object, nil
}

type fakeCreator struct {
	requests []schema.CreateJobRequest
	err      error
}

func (f *fakeCreator) CreateJob(ctx context.Context, req schema.CreateJobRequest) (*schema.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &schema.Job{ID: "j1", Title: req.Title, Status: schema.StatusProcessing}, nil
}

func writePDF(t *testing.T, name string, size int) string {
	t.Helper()
	body := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{'x'}, size)...)
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeText(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("hello, not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newWorkflow(up *fakeUploader, creator *fakeCreator, cache *jobcache.Cache, maxMB int) *Workflow {
	return NewWorkflow(up, creator, cache, maxMB, nil)
}

func TestSelectRejectsNonPDF(t *testing.T) {
	w := newWorkflow(&fakeUploader{}, &fakeCreator{}, jobcache.New(), 0)

	err := w.Select(writeText(t, "notes.txt"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if snap := w.Snapshot(); snap.File != nil || snap.Phase != PhaseIdle {
		t.Fatalf("rejected file must not be held: %+v", snap)
	}
}

func TestSelectRejectsOversizedPDF(t *testing.T) {
	w := newWorkflow(&fakeUploader{}, &fakeCreator{}, jobcache.New(), 1)

	err := w.Select(writePDF(t, "big.pdf", 1<<20+64))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Reason != "File size must be less than 1MB." {
		t.Fatalf("unexpected message %q", verr.Reason)
	}
	if w.Snapshot().File != nil {
		t.Fatal("oversized file must not be held")
	}
}

func TestSelectAcceptsValidPDF(t *testing.T) {
	w := newWorkflow(&fakeUploader{}, &fakeCreator{}, jobcache.New(), 0)

	if err := w.Select(writePDF(t, "report.pdf", 4096)); err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	snap := w.Snapshot()
	if snap.Phase != PhaseSelected || snap.File == nil {
		t.Fatalf("valid file not held: %+v", snap)
	}
	if snap.File.Name != "report.pdf" {
		t.Fatalf("unexpected file name %q", snap.File.Name)
	}
	if snap.SizeLabel == "" || snap.Estimate == "" {
		t.Fatalf("missing display labels: %+v", snap)
	}
}

func TestSubmitCreatesJobAndInvalidatesList(t *testing.T) {
	up := &fakeUploader{}
	creator := &fakeCreator{}
	cache := jobcache.New()
	invalidated := 0
	cache.Subscribe(func() { invalidated++ })

	w := newWorkflow(up, creator, cache, 0)
	if err := w.Select(writePDF(t, "q3 report.pdf", 2048)); err != nil {
		t.Fatal(err)
	}

	job, err := w.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if job.ID != "j1" {
		t.Fatalf("unexpected job %+v", job)
	}

	if len(up.uploads) != 1 || len(up.resolved) != 1 {
		t.Fatalf("upload pipeline not exercised: %+v", up)
	}
	if len(creator.requests) != 1 {
		t.Fatalf("expected one create call, got %d", len(creator.requests))
	}
	req := creator.requests[0]
	if req.Title != "q3 report" {
		t.Fatalf("title must be the filename without extension, got %q", req.Title)
	}
	if req.PDFURL != "https://example.com/"+up.uploads[0] {
		t.Fatalf("unexpected pdf_url %q", req.PDFURL)
	}

	if invalidated != 1 {
		t.Fatalf("list cache not invalidated, signals=%d", invalidated)
	}
	if snap := w.Snapshot(); snap.Phase != PhaseSuccess || snap.File != nil {
		t.Fatalf("dialog not reset after success: %+v", snap)
	}
}

func TestSubmitUploadFailureKeepsFile(t *testing.T) {
	up := &fakeUploader{uploadErr: errors.New("bucket unavailable")}
	creator := &fakeCreator{}
	w := newWorkflow(up, creator, jobcache.New(), 0)

	if err := w.Select(writePDF(t, "a.pdf", 128)); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Submit(context.Background()); err == nil {
		t.Fatal("expected upload error")
	}

	snap := w.Snapshot()
	if snap.Phase != PhaseError || snap.Err == nil {
		t.Fatalf("expected error phase, got %+v", snap)
	}
	if snap.File == nil {
		t.Fatal("file must stay held for resubmission")
	}

	// Resubmission after the transient failure clears.
	up.uploadErr = nil
	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("resubmission failed: %v", err)
	}
	if len(creator.requests) != 1 {
		t.Fatalf("expected one create call after retry, got %d", len(creator.requests))
	}
}

func TestSubmitCreateFailureKeepsFile(t *testing.T) {
	up := &fakeUploader{}
	creator := &fakeCreator{err: errors.New("title already taken")}
	w := newWorkflow(up, creator, jobcache.New(), 0)

	if err := w.Select(writePDF(t, "a.pdf", 128)); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Submit(context.Background()); err == nil {
		t.Fatal("expected create error")
	}
	if snap := w.Snapshot(); snap.File == nil || snap.Phase != PhaseError {
		t.Fatalf("failed create must keep the dialog open: %+v", snap)
	}
}

func TestSubmitWithoutSelection(t *testing.T) {
	w := newWorkflow(&fakeUploader{}, &fakeCreator{}, jobcache.New(), 0)

	_, err := w.Submit(context.Background())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReset(t *testing.T) {
	w := newWorkflow(&fakeUploader{}, &fakeCreator{}, jobcache.New(), 0)
	if err := w.Select(writePDF(t, "a.pdf", 128)); err != nil {
		t.Fatal(err)
	}
	w.Reset()
	if snap := w.Snapshot(); snap.Phase != PhaseIdle || snap.File != nil || snap.Err != nil {
		t.Fatalf("reset incomplete: %+v", snap)
	}
}
