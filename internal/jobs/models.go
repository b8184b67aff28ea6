package jobs

import "time"

// Status is the lifecycle state of an extraction job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Origin names the front end that started a job.
type Origin string

const (
	OriginCLI    Origin = "cli"
	OriginServer Origin = "server"
	OriginWatch  Origin = "watch"
)

// Job is one recorded extraction.
type Job struct {
	ID                string
	SourcePath        string
	Origin            Origin
	Status            Status
	Region            string
	FrameInterval     float64
	SampledFrames     int
	SkippedFrames     int
	Entries           int
	OutputPath        string
	ErrorMessage      string
	ProcessingSeconds float64
	CreatedAt         time.Time
	FinishedAt        time.Time
}

// Outcome carries the figures recorded when a job succeeds.
type Outcome struct {
	SampledFrames     int
	SkippedFrames     int
	Entries           int
	OutputPath        string
	ProcessingSeconds float64
}
