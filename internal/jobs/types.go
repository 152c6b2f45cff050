package jobs

import (
	"context"
	"errors"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeCategorize categorizes a batch of freshly synced transactions.
	JobTypeCategorize JobType = "categorize_transactions"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

var (
	// ErrQueueFull is returned when a non-blocking publish finds no free buffer slot.
	ErrQueueFull = errors.New("jobs: queue is full")
	// ErrQueueClosed is returned when publishing to a stopped queue.
	ErrQueueClosed = errors.New("jobs: queue is closed")
	// ErrJobNotFound is returned by JobStore lookups.
	ErrJobNotFound = errors.New("jobs: job not found")
)

// CategorizeJob asks the categorizer to process a set of transactions.
type CategorizeJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	UserID    string `json:"user_id"`
	AccountID string `json:"account_id,omitempty"`

	// TransactionIDs are the ids created by one sync.
	TransactionIDs []string `json:"transaction_ids"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	// MaxRetries of zero means the job runs at most once.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *CategorizeJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *CategorizeJob) GetType() JobType {
	return JobTypeCategorize
}

// GetStatus implements the Job interface.
func (j *CategorizeJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher submits jobs to a queue.
type Publisher interface {
	// PublishCategorize enqueues a categorization job without blocking.
	// It returns ErrQueueFull when the queue has no room.
	PublishCategorize(ctx context.Context, job *CategorizeJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// A returned error is logged and, if the job allows it, retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state for the jobs API.
type JobStore interface {
	SaveJob(ctx context.Context, job *CategorizeJob) error
	GetJob(ctx context.Context, jobID string) (*CategorizeJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*CategorizeJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID    string
	AccountID string
	Status    JobStatus
	Limit     int
	Offset    int
}
