//go:build !integration

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
)

func seedJob(t *testing.T, repo *memQueueJobRepo, job *model.QueueJob) {
	t.Helper()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if err := repo.Save(context.Background(), nil, job); err != nil {
		t.Fatalf("seed job %s: %v", job.ID, err)
	}
}

func TestAddJob(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults applied", func(t *testing.T) {
		repo := newMemQueueJobRepo()
		uc := NewQueueUseCase(repo, 3, newTestLogger())

		id, err := uc.AddJob(ctx, "posting.reanalyze", nil, AddJobOptions{})
		if err != nil {
			t.Fatalf("AddJob: %v", err)
		}
		job, err := repo.FindByID(ctx, nil, id)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if job.Status != model.QueueJobPending || job.Attempts != 0 || job.MaxAttempts != 3 {
			t.Errorf("unexpected job: %+v", job)
		}
		if string(job.Payload) != "{}" {
			t.Errorf("empty payload not defaulted: %q", job.Payload)
		}
	})

	t.Run("blank type rejected", func(t *testing.T) {
		uc := NewQueueUseCase(newMemQueueJobRepo(), 3, newTestLogger())
		if _, err := uc.AddJob(ctx, "   ", nil, AddJobOptions{}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("ids are sortable by creation", func(t *testing.T) {
		uc := NewQueueUseCase(newMemQueueJobRepo(), 3, newTestLogger())
		first, _ := uc.AddJob(ctx, "a", json.RawMessage(`{"n":1}`), AddJobOptions{})
		second, _ := uc.AddJob(ctx, "a", json.RawMessage(`{"n":2}`), AddJobOptions{})
		if first >= second {
			t.Errorf("ids not monotonic: %q then %q", first, second)
		}
	})
}

func TestJobsByStatus(t *testing.T) {
	ctx := context.Background()
	repo := newMemQueueJobRepo()
	base := time.Now().Add(-time.Hour)
	seedJob(t, repo, &model.QueueJob{ID: "low-old", Type: "t", Status: model.QueueJobPending, Priority: 0, MaxAttempts: 3, CreatedAt: base})
	seedJob(t, repo, &model.QueueJob{ID: "high", Type: "t", Status: model.QueueJobPending, Priority: 5, MaxAttempts: 3, CreatedAt: base.Add(time.Minute)})
	seedJob(t, repo, &model.QueueJob{ID: "low-new", Type: "t", Status: model.QueueJobPending, Priority: 0, MaxAttempts: 3, CreatedAt: base.Add(2 * time.Minute)})
	seedJob(t, repo, &model.QueueJob{ID: "done", Type: "t", Status: model.QueueJobCompleted, MaxAttempts: 3, CreatedAt: base})
	uc := NewQueueUseCase(repo, 3, newTestLogger())

	jobs, err := uc.JobsByStatus(ctx, model.QueueJobPending)
	if err != nil {
		t.Fatalf("JobsByStatus: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}
	if jobs[0].ID != "high" || jobs[1].ID != "low-old" || jobs[2].ID != "low-new" {
		t.Errorf("order: %s, %s, %s", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}

	if _, err := uc.JobsByStatus(ctx, "bogus"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown status, got %v", err)
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("failed job with attempts left", func(t *testing.T) {
		repo := newMemQueueJobRepo()
		started := time.Now()
		seedJob(t, repo, &model.QueueJob{
			ID: "j1", Type: "t", Status: model.QueueJobFailed,
			Attempts: 1, MaxAttempts: 3, LastError: "boom", StartedAt: &started,
		})
		uc := NewQueueUseCase(repo, 3, newTestLogger())

		ok, err := uc.Retry(ctx, "j1")
		if err != nil || !ok {
			t.Fatalf("Retry = %v, %v", ok, err)
		}
		job, _ := repo.FindByID(ctx, nil, "j1")
		if job.Status != model.QueueJobPending || job.Attempts != 2 {
			t.Errorf("unexpected job: %+v", job)
		}
		if job.LastError != "" || job.StartedAt != nil || job.CompletedAt != nil {
			t.Errorf("stale run state not cleared: %+v", job)
		}
	})

	t.Run("terminal failed job", func(t *testing.T) {
		repo := newMemQueueJobRepo()
		seedJob(t, repo, &model.QueueJob{ID: "j1", Type: "t", Status: model.QueueJobFailed, Attempts: 3, MaxAttempts: 3})
		uc := NewQueueUseCase(repo, 3, newTestLogger())

		ok, err := uc.Retry(ctx, "j1")
		if err != nil {
			t.Fatalf("Retry: %v", err)
		}
		if ok {
			t.Error("terminal job must not be retryable")
		}
	})

	t.Run("non-failed statuses", func(t *testing.T) {
		repo := newMemQueueJobRepo()
		seedJob(t, repo, &model.QueueJob{ID: "p", Type: "t", Status: model.QueueJobPending, MaxAttempts: 3})
		seedJob(t, repo, &model.QueueJob{ID: "r", Type: "t", Status: model.QueueJobProcessing, MaxAttempts: 3})
		seedJob(t, repo, &model.QueueJob{ID: "c", Type: "t", Status: model.QueueJobCompleted, MaxAttempts: 3})
		uc := NewQueueUseCase(repo, 3, newTestLogger())

		for _, id := range []string{"p", "r", "c"} {
			if ok, err := uc.Retry(ctx, id); err != nil || ok {
				t.Errorf("Retry(%s) = %v, %v; want false, nil", id, ok, err)
			}
		}
	})

	t.Run("missing job", func(t *testing.T) {
		uc := NewQueueUseCase(newMemQueueJobRepo(), 3, newTestLogger())
		if ok, err := uc.Retry(ctx, "nope"); err != nil || ok {
			t.Errorf("Retry = %v, %v; want false, nil", ok, err)
		}
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	repo := newMemQueueJobRepo()
	seedJob(t, repo, &model.QueueJob{ID: "p", Type: "t", Status: model.QueueJobPending, MaxAttempts: 3})
	seedJob(t, repo, &model.QueueJob{ID: "f", Type: "t", Status: model.QueueJobFailed, Attempts: 3, MaxAttempts: 3})
	seedJob(t, repo, &model.QueueJob{ID: "r", Type: "t", Status: model.QueueJobProcessing, MaxAttempts: 3})
	seedJob(t, repo, &model.QueueJob{ID: "c", Type: "t", Status: model.QueueJobCompleted, MaxAttempts: 3})
	uc := NewQueueUseCase(repo, 3, newTestLogger())

	for _, id := range []string{"p", "f"} {
		ok, err := uc.Cancel(ctx, id)
		if err != nil || !ok {
			t.Errorf("Cancel(%s) = %v, %v; want true, nil", id, ok, err)
		}
		if _, err := repo.FindByID(ctx, nil, id); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("job %s not deleted", id)
		}
	}
	for _, id := range []string{"r", "c"} {
		ok, err := uc.Cancel(ctx, id)
		if err != nil || ok {
			t.Errorf("Cancel(%s) = %v, %v; want false, nil", id, ok, err)
		}
		if _, err := repo.FindByID(ctx, nil, id); err != nil {
			t.Errorf("job %s should survive cancel: %v", id, err)
		}
	}
}

func TestClearFailed(t *testing.T) {
	ctx := context.Background()
	repo := newMemQueueJobRepo()
	seedJob(t, repo, &model.QueueJob{ID: "terminal", Type: "t", Status: model.QueueJobFailed, Attempts: 3, MaxAttempts: 3})
	seedJob(t, repo, &model.QueueJob{ID: "retryable", Type: "t", Status: model.QueueJobFailed, Attempts: 1, MaxAttempts: 3})
	seedJob(t, repo, &model.QueueJob{ID: "pending", Type: "t", Status: model.QueueJobPending, MaxAttempts: 3})
	uc := NewQueueUseCase(repo, 3, newTestLogger())

	n, err := uc.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("ClearFailed: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if _, err := repo.FindByID(ctx, nil, "terminal"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("terminal job should be gone")
	}
	for _, id := range []string{"retryable", "pending"} {
		if _, err := repo.FindByID(ctx, nil, id); err != nil {
			t.Errorf("job %s should survive: %v", id, err)
		}
	}
}

func TestQueueStats(t *testing.T) {
	ctx := context.Background()
	repo := newMemQueueJobRepo()
	seedJob(t, repo, &model.QueueJob{ID: "1", Type: "t", Status: model.QueueJobPending, MaxAttempts: 3})
	seedJob(t, repo, &model.QueueJob{ID: "2", Type: "t", Status: model.QueueJobPending, MaxAttempts: 3})
	seedJob(t, repo, &model.QueueJob{ID: "3", Type: "t", Status: model.QueueJobCompleted, MaxAttempts: 3})
	seedJob(t, repo, &model.QueueJob{ID: "4", Type: "t", Status: model.QueueJobFailed, Attempts: 3, MaxAttempts: 3})
	uc := NewQueueUseCase(repo, 3, newTestLogger())

	stats, err := uc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := model.QueueStats{Pending: 2, Completed: 1, Failed: 1}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
}
