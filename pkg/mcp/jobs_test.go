package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestJob(t *testing.T, jm *JobManager) *Job {
	t.Helper()
	job, created := jm.CreateJob()
	require.True(t, created)
	require.NotNil(t, job)
	return job
}

func TestNewJobManager(t *testing.T) {
	jm := NewJobManager()
	require.NotNil(t, jm)
	assert.Empty(t, jm.ListJobs())
	assert.Nil(t, jm.ActiveJob())
}

func TestCreateJob(t *testing.T) {
	t.Run("new job fields correct", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm)

		assert.NotEmpty(t, job.ID)
		assert.Equal(t, JobStatusPending, job.Status)
		assert.False(t, job.StartedAt.IsZero())
		assert.True(t, job.CompletedAt.IsZero())
		assert.Zero(t, job.Files)
		assert.Zero(t, job.Entries)
		assert.Empty(t, job.ErrorMessage)
	})

	t.Run("active job is returned instead of a new one", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm)
		job2, created := jm.CreateJob()
		assert.False(t, created)
		assert.Equal(t, job1.ID, job2.ID)
	})

	t.Run("new job allowed after completion", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm)
		jm.UpdateStatus(job1.ID, JobStatusCompleted, "")

		job2 := createTestJob(t, jm)
		assert.NotEqual(t, job1.ID, job2.ID)
	})
}

func TestGetJob(t *testing.T) {
	jm := NewJobManager()

	t.Run("exists returns copy", func(t *testing.T) {
		job := createTestJob(t, jm)
		got := jm.GetJob(job.ID)
		require.NotNil(t, got)
		assert.Equal(t, job.ID, got.ID)

		got.Status = JobStatusFailed
		assert.Equal(t, JobStatusPending, jm.GetJob(job.ID).Status)
	})

	t.Run("missing returns nil", func(t *testing.T) {
		assert.Nil(t, jm.GetJob("nonexistent-id"))
	})
}

func TestIsRunning(t *testing.T) {
	tests := []struct {
		name   string
		status JobStatus
		want   bool
	}{
		{"true for pending", JobStatusPending, true},
		{"true for running", JobStatusRunning, true},
		{"false for completed", JobStatusCompleted, false},
		{"false for failed", JobStatusFailed, false},
		{"false for cancelled", JobStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jm := NewJobManager()
			job := createTestJob(t, jm)
			if tt.status != JobStatusPending {
				jm.UpdateStatus(job.ID, tt.status, "")
			}
			assert.Equal(t, tt.want, jm.IsRunning())
		})
	}

	t.Run("false without jobs", func(t *testing.T) {
		assert.False(t, NewJobManager().IsRunning())
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("to running", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm)
		jm.UpdateStatus(job.ID, JobStatusRunning, "")
		assert.Equal(t, JobStatusRunning, jm.GetJob(job.ID).Status)
		assert.NoError(t, jm.GetContext(job.ID).Err())
	})

	t.Run("to completed sets CompletedAt and frees the slot", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm)
		jm.UpdateStatus(job.ID, JobStatusCompleted, "")

		got := jm.GetJob(job.ID)
		assert.Equal(t, JobStatusCompleted, got.Status)
		assert.False(t, got.CompletedAt.IsZero())
		assert.Nil(t, jm.ActiveJob())
	})

	t.Run("to failed sets ErrorMessage", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm)
		jm.UpdateStatus(job.ID, JobStatusFailed, "record attribute missing")

		got := jm.GetJob(job.ID)
		assert.Equal(t, JobStatusFailed, got.Status)
		assert.Equal(t, "record attribute missing", got.ErrorMessage)
	})

	t.Run("terminal state is final", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm)
		jm.CancelJob(job.ID)
		jm.UpdateStatus(job.ID, JobStatusCompleted, "")
		assert.Equal(t, JobStatusCancelled, jm.GetJob(job.ID).Status)
	})

	t.Run("nonexistent is no-op", func(t *testing.T) {
		jm := NewJobManager()
		jm.UpdateStatus("fake-id", JobStatusRunning, "")
		assert.Empty(t, jm.ListJobs())
	})
}

func TestSetResult(t *testing.T) {
	jm := NewJobManager()
	job := createTestJob(t, jm)
	jm.SetResult(job.ID, "run-1", "https://example.com/sitemap.xml", 3, 42)

	got := jm.GetJob(job.ID)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "https://example.com/sitemap.xml", got.IndexURL)
	assert.Equal(t, 3, got.Files)
	assert.Equal(t, 42, got.Entries)

	jm.SetResult("fake-id", "run-2", "", 1, 1)
	assert.Len(t, jm.ListJobs(), 1)
}

func TestCancelJob(t *testing.T) {
	t.Run("running job cancelled", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm)
		jm.UpdateStatus(job.ID, JobStatusRunning, "")

		assert.True(t, jm.CancelJob(job.ID))

		got := jm.GetJob(job.ID)
		assert.Equal(t, JobStatusCancelled, got.Status)
		assert.False(t, got.CompletedAt.IsZero())
		assert.Error(t, jm.GetContext(job.ID).Err())
		assert.False(t, jm.IsRunning())
	})

	t.Run("completed job not cancellable", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm)
		jm.UpdateStatus(job.ID, JobStatusCompleted, "")
		assert.False(t, jm.CancelJob(job.ID))
	})

	t.Run("nonexistent returns false", func(t *testing.T) {
		assert.False(t, NewJobManager().CancelJob("nope"))
	})
}

func TestCancelAll(t *testing.T) {
	jm := NewJobManager()
	done := createTestJob(t, jm)
	jm.UpdateStatus(done.ID, JobStatusCompleted, "")
	running := createTestJob(t, jm)

	jm.CancelAll()

	assert.Equal(t, JobStatusCompleted, jm.GetJob(done.ID).Status)
	assert.Equal(t, JobStatusCancelled, jm.GetJob(running.ID).Status)

	next := createTestJob(t, jm)
	assert.NotEqual(t, running.ID, next.ID)
}

func TestListJobs(t *testing.T) {
	jm := NewJobManager()
	ids := make(map[string]bool)
	for i := 0; i < 3; i++ {
		job := createTestJob(t, jm)
		jm.UpdateStatus(job.ID, JobStatusCompleted, "")
		ids[job.ID] = true
	}

	jobs := jm.ListJobs()
	require.Len(t, jobs, 3)
	for _, j := range jobs {
		assert.True(t, ids[j.ID])
	}
	for i := 1; i < len(jobs); i++ {
		assert.False(t, jobs[i].StartedAt.Before(jobs[i-1].StartedAt))
	}
}

func TestGetContext(t *testing.T) {
	t.Run("pending job returns live context", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm)
		assert.NoError(t, jm.GetContext(job.ID).Err())
	})

	t.Run("nonexistent returns background context", func(t *testing.T) {
		jm := NewJobManager()
		ctx := jm.GetContext("nope")
		require.NoError(t, ctx.Err())
		assert.Equal(t, context.Background(), ctx)
	})
}
