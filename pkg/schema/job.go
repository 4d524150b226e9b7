// pkg/schema/job.go
package schema

import "time"

// JobStatus is the backend-owned lifecycle state of a job. Only
// "processing" is non-terminal; transitions happen server-side and the
// client never changes a status locally.
type JobStatus string

const (
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job is one PDF-to-CSV conversion task as the backend reports it.
type Job struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Status          JobStatus `json:"status"`
	PDFURL          string    `json:"pdf_url"`
	FileDownloadURL string    `json:"file_download_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// CanDownload reports whether the result file is ready to fetch.
// A completed job without a download URL is valid but incomplete; callers
// must disable the download rather than treat it as an error.
func (j Job) CanDownload() bool {
	return j.Status == StatusCompleted && j.FileDownloadURL != ""
}

// Processing reports whether the job still needs synchronization.
func (j Job) Processing() bool {
	return j.Status == StatusProcessing
}

// JobsPage is the paginated list envelope returned by GET /jobs.
type JobsPage struct {
	Data        []Job `json:"data"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"has_next_page"`
}

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	Title  string `json:"title"`
	PDFURL string `json:"pdf_url"`
}

// Health is the GET /health response.
type Health struct {
	Status string `json:"status"`
}
