package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusRetrying   JobStatus = "retrying"
	StatusCancelled  JobStatus = "cancelled"
)

// JobPriority represents the priority of a job
type JobPriority int

const (
	PriorityLow      JobPriority = 0
	PriorityNormal   JobPriority = 5
	PriorityHigh     JobPriority = 10
	PriorityCritical JobPriority = 20
)

// Job represents a background job in the database
type Job struct {
	ID      uuid.UUID      `gorm:"type:uuid;primary_key"`
	Queue   string         `gorm:"type:varchar(100);not null;index"`
	Type    string         `gorm:"type:varchar(100);not null"`
	Payload datatypes.JSON `gorm:"type:jsonb"`

	// DedupKey suppresses duplicate in-flight jobs: while a job with the
	// same key is pending, retrying or processing, Enqueue returns it
	// instead of creating another.
	DedupKey string `gorm:"type:varchar(200);index"`

	Status   JobStatus   `gorm:"type:varchar(20);not null;default:'pending';index"`
	Priority JobPriority `gorm:"type:int;not null;default:5;index"`

	Attempts   int `gorm:"not null;default:0"`
	MaxRetries int `gorm:"not null;default:3"`

	ScheduledAt *time.Time `gorm:"index"` // For delayed jobs and retry backoff
	StartedAt   *time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time

	Error  string         `gorm:"type:text"`
	Result datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for Job model
func (Job) TableName() string {
	return "jobs"
}

// BeforeCreate sets the job ID
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// OutcomeKind classifies how a handler finished.
type OutcomeKind int

const (
	// OutcomeDone means the job succeeded.
	OutcomeDone OutcomeKind = iota
	// OutcomeRetry means the job failed recoverably and should be
	// re-attempted while attempts remain.
	OutcomeRetry
	// OutcomeAbort means the job failed terminally; retrying cannot help.
	OutcomeAbort
)

// Outcome is the explicit result a handler returns to the queue adapter,
// which decides on retry based on its kind rather than on re-raised errors.
type Outcome struct {
	Kind   OutcomeKind
	Result interface{}
	Err    error
}

func Done(result interface{}) Outcome {
	return Outcome{Kind: OutcomeDone, Result: result}
}

func Retry(err error) Outcome {
	return Outcome{Kind: OutcomeRetry, Err: err}
}

func Abort(err error) Outcome {
	return Outcome{Kind: OutcomeAbort, Err: err}
}

// Handler is the interface that job handlers must implement
type Handler interface {
	Handle(ctx context.Context, job *Job) Outcome
	GetType() string
}

// EnqueueOptions contains options for enqueueing a job
type EnqueueOptions struct {
	Queue      string
	Priority   JobPriority
	MaxRetries int
	ScheduleAt *time.Time
	DedupKey   string
}

// DefaultEnqueueOptions returns default enqueue options
func DefaultEnqueueOptions() EnqueueOptions {
	return EnqueueOptions{
		Queue:      "default",
		Priority:   PriorityNormal,
		MaxRetries: 3,
	}
}

// WorkerConfig contains configuration for job workers
type WorkerConfig struct {
	Queue        string
	Concurrency  int           // Number of concurrent workers
	PollInterval time.Duration // How often to poll for new jobs
	Timeout      time.Duration // Maximum time for job execution
}

// DefaultWorkerConfig returns default worker configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Queue:        "default",
		Concurrency:  2,
		PollInterval: 1 * time.Second,
		Timeout:      5 * time.Minute,
	}
}
