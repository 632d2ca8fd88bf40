package mcp

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a generation job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

func (s JobStatus) active() bool {
	return s == JobStatusPending || s == JobStatusRunning
}

// Job represents a background sitemap generation run
type Job struct {
	ID           string    `json:"id"`
	Status       JobStatus `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
	RunID        string    `json:"run_id,omitempty"` // ID of the stored run record
	IndexURL     string    `json:"index_url,omitempty"`
	Files        int       `json:"file_count"`
	Entries      int       `json:"entries"`
	ErrorMessage string    `json:"error_message,omitempty"`

	// Internal fields
	ctx    context.Context
	cancel context.CancelFunc
}

// JobManager manages background generation jobs.
// At most one job is active at a time since every run writes the same store dir.
type JobManager struct {
	jobs   map[string]*Job
	mu     sync.RWMutex
	active string // ID of the pending or running job
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{jobs: make(map[string]*Job)}
}

// CreateJob creates a pending job. When a job is already active it is returned
// instead and created is false.
func (m *JobManager) CreateJob() (job *Job, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.jobs[m.active]; existing != nil && existing.Status.active() {
		return snapshot(existing), false
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		ID:        uuid.New().String(),
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	m.jobs[j.ID] = j
	m.active = j.ID
	return snapshot(j), true
}

// snapshot copies a job so callers can read it without holding the lock
func snapshot(j *Job) *Job {
	c := *j
	return &c
}

// GetJob returns a copy of the job, or nil when unknown
func (m *JobManager) GetJob(jobID string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, exists := m.jobs[jobID]; exists {
		return snapshot(job)
	}
	return nil
}

// ActiveJob returns a copy of the pending or running job, or nil
func (m *JobManager) ActiveJob() *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job := m.jobs[m.active]; job != nil && job.Status.active() {
		return snapshot(job)
	}
	return nil
}

// IsRunning checks if a job is currently active
func (m *JobManager) IsRunning() bool {
	return m.ActiveJob() != nil
}

// UpdateStatus updates the status of a job. Terminal states are final.
func (m *JobManager) UpdateStatus(jobID string, status JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || !job.Status.active() {
		return
	}
	job.Status = status
	if !status.active() {
		job.CompletedAt = time.Now()
		job.cancel()
		if m.active == jobID {
			m.active = ""
		}
	}
	if errorMsg != "" {
		job.ErrorMessage = errorMsg
	}
}

// SetResult records the outcome counters of a job's run
func (m *JobManager) SetResult(jobID, runID, indexURL string, files, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists {
		job.RunID = runID
		job.IndexURL = indexURL
		job.Files = files
		job.Entries = entries
	}
}

// CancelJob cancels an active job
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || !job.Status.active() {
		return false
	}
	job.cancel()
	job.Status = JobStatusCancelled
	job.CompletedAt = time.Now()
	if m.active == jobID {
		m.active = ""
	}
	return true
}

// CancelAll cancels the active job, if any
func (m *JobManager) CancelAll() {
	m.mu.RLock()
	active := m.active
	m.mu.RUnlock()
	if active != "" {
		m.CancelJob(active)
	}
}

// ListJobs returns copies of all jobs, oldest first
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, snapshot(job))
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.Before(jobs[j].StartedAt) })
	return jobs
}

// GetContext returns the context for a job (for running the generator)
func (m *JobManager) GetContext(jobID string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if job, exists := m.jobs[jobID]; exists {
		return job.ctx
	}
	return context.Background()
}
