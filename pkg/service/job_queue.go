package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dasmlab/vakya/pkg/translate"
)

// TranslationJobStatus represents the status of a translation job.
type TranslationJobStatus string

const (
	JobStatusQueued     TranslationJobStatus = "queued"
	JobStatusProcessing TranslationJobStatus = "processing"
	JobStatusCompleted  TranslationJobStatus = "completed"
	JobStatusFailed     TranslationJobStatus = "failed"
)

// Done reports whether the status is terminal.
func (s TranslationJobStatus) Done() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// TranslationJob represents an asynchronous translation job.
type TranslationJob struct {
	ID        string
	Method    translate.Method
	Text      string
	CreatedAt time.Time

	mu              sync.RWMutex
	status          TranslationJobStatus
	startedAt       *time.Time
	completedAt     *time.Time
	err             string
	result          *translate.Result
	progressPercent int32
	progressMessage string
	chunks          int
}

// JobSnapshot is a consistent copy of a job's state.
type JobSnapshot struct {
	ID              string               `json:"jobId"`
	Method          translate.Method     `json:"method"`
	Status          TranslationJobStatus `json:"status"`
	ProgressPercent int32                `json:"progressPercent"`
	ProgressMessage string               `json:"progressMessage"`
	Chunks          int                  `json:"chunks,omitempty"`
	Error           string               `json:"error,omitempty"`
	Result          *translate.Result    `json:"result,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	StartedAt       *time.Time           `json:"startedAt,omitempty"`
	CompletedAt     *time.Time           `json:"completedAt,omitempty"`
}

// Snapshot returns a copy of the job state (thread-safe).
func (j *TranslationJob) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return JobSnapshot{
		ID:              j.ID,
		Method:          j.Method,
		Status:          j.status,
		ProgressPercent: j.progressPercent,
		ProgressMessage: j.progressMessage,
		Chunks:          j.chunks,
		Error:           j.err,
		Result:          j.result,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.startedAt,
		CompletedAt:     j.completedAt,
	}
}

// Status returns the current status and progress (thread-safe).
func (j *TranslationJob) Status() (TranslationJobStatus, int32) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status, j.progressPercent
}

func (j *TranslationJob) start(chunks int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	j.status = JobStatusProcessing
	j.startedAt = &now
	j.chunks = chunks
	j.progressPercent = 10
	j.progressMessage = "Starting translation..."
}

func (j *TranslationJob) updateProgress(percent int32, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.progressPercent = percent
	j.progressMessage = message
}

func (j *TranslationJob) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	j.err = err.Error()
	j.status = JobStatusFailed
	j.completedAt = &now
	j.progressMessage = "Translation failed"
}

func (j *TranslationJob) complete(result *translate.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	j.result = result
	j.status = JobStatusCompleted
	j.completedAt = &now
	j.progressPercent = 100
	j.progressMessage = "Translation completed"
}

// JobQueue manages asynchronous translation jobs.
type JobQueue struct {
	jobs      map[string]*TranslationJob
	jobsMu    sync.RWMutex
	logger    *logrus.Logger
	processor *JobProcessor
}

// NewJobQueue creates a new job queue.
func NewJobQueue(processor *JobProcessor, logger *logrus.Logger) *JobQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &JobQueue{
		jobs:      make(map[string]*TranslationJob),
		logger:    logger,
		processor: processor,
	}
}

// CreateJob validates the request, stores a new job and hands it to the
// processor. The returned job is already queued.
func (q *JobQueue) CreateJob(text string, method translate.Method) (*TranslationJob, error) {
	if strings.TrimSpace(text) == "" {
		return nil, translate.ErrEmptyText
	}
	method, err := translate.ParseMethod(string(method))
	if err != nil {
		return nil, err
	}

	job := &TranslationJob{
		ID:              uuid.New().String(),
		Method:          method,
		Text:            text,
		CreatedAt:       time.Now(),
		status:          JobStatusQueued,
		progressMessage: "Queued",
	}

	q.jobsMu.Lock()
	q.jobs[job.ID] = job
	q.jobsMu.Unlock()

	q.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"method":      method,
		"text_length": len(text),
	}).Info("Created translation job")

	if q.processor != nil {
		q.processor.Submit(job)
	}

	return job, nil
}

// GetJob retrieves a job by ID.
func (q *JobQueue) GetJob(jobID string) (*TranslationJob, error) {
	q.jobsMu.RLock()
	defer q.jobsMu.RUnlock()

	job, exists := q.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// Len returns the number of stored jobs.
func (q *JobQueue) Len() int {
	q.jobsMu.RLock()
	defer q.jobsMu.RUnlock()
	return len(q.jobs)
}

// CleanupOldJobs removes finished jobs completed more than maxAge ago.
func (q *JobQueue) CleanupOldJobs(maxAge time.Duration) int {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()

	now := time.Now()
	removed := 0

	for id, job := range q.jobs {
		snap := job.Snapshot()
		if snap.Status.Done() && snap.CompletedAt != nil && now.Sub(*snap.CompletedAt) > maxAge {
			delete(q.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		q.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(q.jobs),
		}).Info("Cleaned up old translation jobs")
	}
	return removed
}
