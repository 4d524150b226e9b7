package schema

import "testing"

func TestCanDownload(t *testing.T) {
	cases := []struct {
		name   string
		status JobStatus
		url    string
		want   bool
	}{
		{"completed with url", StatusCompleted, "https://cdn/result.csv", true},
		{"completed without url", StatusCompleted, "", false},
		{"processing with url", StatusProcessing, "https://cdn/result.csv", false},
		{"processing without url", StatusProcessing, "", false},
		{"failed with url", StatusFailed, "https://cdn/result.csv", false},
		{"failed without url", StatusFailed, "", false},
	}

	for _, tc := range cases {
		job := Job{ID: "1", Status: tc.status, FileDownloadURL: tc.url}
		if got := job.CanDownload(); got != tc.want {
			t.Fatalf("%s: CanDownload() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestProcessing(t *testing.T) {
	if !(Job{Status: StatusProcessing}).Processing() {
		t.Fatal("processing job not reported as processing")
	}
	if (Job{Status: StatusCompleted}).Processing() {
		t.Fatal("completed job reported as processing")
	}
}
