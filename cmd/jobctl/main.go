// cmd/jobctl is a one-shot CLI against the job service, sharing the
// dashboard's client stack.
//
// Usage:
//   ./jobctl -list -page 2 -limit 10
//   ./jobctl -get 42
//   ./jobctl -create report.pdf
//   ./jobctl -delete 42 -yes
//   ./jobctl -wake
//   ./jobctl -poke 42
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/equibase/jobdash/internal/api"
	"github.com/equibase/jobdash/internal/availability"
	"github.com/equibase/jobdash/internal/bus"
	"github.com/equibase/jobdash/internal/create"
	"github.com/equibase/jobdash/internal/jobcache"
	"github.com/equibase/jobdash/internal/session"
	"github.com/equibase/jobdash/internal/upload"
	"github.com/equibase/jobdash/pkg/schema"
)

func main() {
	list := flag.Bool("list", false, "List jobs")
	page := flag.Int("page", 1, "Page number for -list")
	limit := flag.Int("limit", 10, "Page size for -list")
	get := flag.String("get", "", "Fetch one job by id")
	createPath := flag.String("create", "", "Create a job from a PDF file")
	del := flag.String("delete", "", "Delete a job by id")
	yes := flag.Bool("yes", false, "Skip the delete confirmation")
	wake := flag.Bool("wake", false, "Try to wake the server")
	poke := flag.String("poke", "", "Publish a job update event for id (testing)")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	baseURL := getenv("API_BASE_URL", "")
	if baseURL == "" {
		fmt.Println("Error: API_BASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()

	var refresher session.Refresher
	if tokenURL := getenv("AUTH_TOKEN_URL", ""); tokenURL != "" {
		refresher = session.NewHTTPRefresher(tokenURL, getenv("AUTH_API_KEY", ""), nil)
	}
	sessions := session.NewStore(refresher, logger)
	if token := getenv("ACCESS_TOKEN", ""); token != "" {
		sessions.Set(&session.Session{
			AccessToken:  token,
			RefreshToken: getenv("REFRESH_TOKEN", ""),
		})
	}

	tracker := availability.New(logger)
	client := api.New(baseURL, api.Options{
		Tokens: sessions,
		Status: tracker,
		Notify: func(message string) { fmt.Println(message) },
		Logger: logger,
	})

	switch {
	case *list:
		resp, err := client.ListJobs(ctx, *page, *limit)
		if err != nil {
			die("list jobs", err)
		}
		fmt.Printf("page %d (limit %d, more: %t)\n", resp.Page, resp.Limit, resp.HasNextPage)
		for _, job := range resp.Data {
			line := fmt.Sprintf("%s  %-10s  %s", job.ID, job.Status, job.Title)
			if job.CanDownload() {
				line += "  [csv ready]"
			}
			fmt.Println(line)
		}

	case *get != "":
		job, err := client.GetJob(ctx, *get)
		if err != nil {
			die("get job", err)
		}
		fmt.Printf("id:      %s\ntitle:   %s\nstatus:  %s\n", job.ID, job.Title, job.Status)
		if job.CanDownload() {
			fmt.Printf("csv:     %s\n", job.FileDownloadURL)
		}
		if job.ErrorMessage != "" {
			fmt.Printf("error:   %s\n", job.ErrorMessage)
		}

	case *createPath != "":
		createJob(ctx, client, logger, *createPath)

	case *del != "":
		confirm := func(job schema.Job) bool {
			if *yes {
				return true
			}
			fmt.Printf("Delete job %q? Re-run with -yes to confirm.\n", job.ID)
			return false
		}
		if !confirm(schema.Job{ID: *del}) {
			return
		}
		if err := client.DeleteJob(ctx, *del); err != nil {
			die("delete job", err)
		}
		fmt.Printf("deleted %s\n", *del)

	case *wake:
		err := tracker.WakeUp(ctx, func(ctx context.Context) error {
			_, err := client.CheckHealth(ctx)
			return err
		})
		if err != nil {
			die("wake server", err)
		}
		fmt.Printf("server is %s\n", tracker.Status())

	case *poke != "":
		nc, err := bus.Connect(getenv("NATS_URL", "nats://127.0.0.1:4222"))
		if err != nil {
			die("connect to NATS", err)
		}
		defer nc.Close()
		subject := getenv("JOB_UPDATE_SUBJECT", "jobs.updates") + "." + *poke
		err = nc.PublishJSON(subject, schema.JobUpdateEvent{
			JobID:      *poke,
			HappenedAt: time.Now().UnixMilli(),
		})
		if err != nil {
			die("publish update", err)
		}
		fmt.Printf("published update on %s\n", subject)

	default:
		flag.Usage()
		os.Exit(1)
	}
}

func createJob(ctx context.Context, client *api.Client, logger *slog.Logger, path string) {
	bucketName := getenv("GCS_BUCKET", "")
	if bucketName == "" {
		fmt.Println("Error: GCS_BUCKET is required for -create")
		os.Exit(1)
	}
	bucket, err := upload.NewGCSBucket(ctx, bucketName)
	if err != nil {
		die("open bucket", err)
	}
	uploader := upload.NewClient(bucket, getenv("GCS_PUBLIC", "") == "true", logger)

	maxMB := 0
	if v := getenv("MAX_UPLOAD_SIZE_MB", ""); v != "" {
		maxMB, err = strconv.Atoi(v)
		if err != nil {
			die("parse MAX_UPLOAD_SIZE_MB", err)
		}
	}

	wf := create.NewWorkflow(uploader, client, jobcache.New(), maxMB, logger)
	if err := wf.Select(path); err != nil {
		die("select file", err)
	}

	snap := wf.Snapshot()
	fmt.Printf("uploading %s (%s, estimated %s)\n", snap.File.Name, snap.SizeLabel, snap.Estimate)

	job, err := wf.Submit(ctx)
	if err != nil {
		die("create job", err)
	}
	fmt.Printf("created job %s (%s)\n", job.ID, job.Status)
}

func die(msg string, err error) {
	fmt.Printf("Error: %s: %v\n", msg, err)
	os.Exit(1)
}

func getenv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
