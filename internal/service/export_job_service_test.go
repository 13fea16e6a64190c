package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/srp-dev/consolidation-api/internal/dto"
	"github.com/srp-dev/consolidation-api/internal/models"
	"github.com/srp-dev/consolidation-api/internal/repository"
	"github.com/srp-dev/consolidation-api/pkg/jobs"
)

type exportRepoStub struct {
	jobs map[string]*models.ExportJob
}

func newExportRepoStub() *exportRepoStub {
	return &exportRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (r *exportRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	var finished []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			finished = append(finished, *job)
		}
	}
	return finished, nil
}

type queueStub struct {
	enqueued []jobs.Job
	err      error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

type generatorStub struct {
	result *ExportResult
	err    error
	calls  int
}

func (g *generatorStub) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	g.calls++
	return g.result, g.err
}

func newTestJobService(repo exportJobStore, queue jobDispatcher) *ExportJobService {
	return NewExportJobService(repo, queue, nil, zap.NewNop(), ExportJobServiceConfig{})
}

func TestCreateJobEnqueues(t *testing.T) {
	repo := newExportRepoStub()
	queue := &queueStub{}
	svc := newTestJobService(repo, queue)

	resp, err := svc.CreateJob(context.Background(), dto.ExportRequest{Format: "xlsx"}, "user-1")
	require.NoError(t, err)

	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)

	stored := repo.jobs[resp.ID]
	require.NotNil(t, stored)
	assert.Equal(t, "user-1", stored.CreatedBy)
	assert.Equal(t, models.GroupByGrade, stored.Params.Grouping, "grouping defaults to grade")
}

func TestCreateJobRejectsUnknownFormat(t *testing.T) {
	svc := newTestJobService(newExportRepoStub(), &queueStub{})

	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{Format: "docx"}, "user-1")

	require.Error(t, err)
}

func TestCreateJobCSVWithoutSubmissionRejected(t *testing.T) {
	svc := newTestJobService(newExportRepoStub(), &queueStub{})

	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{Format: "csv"}, "user-1")

	require.Error(t, err)
}

func TestCreateJobEnqueueFailureMarksJobFailed(t *testing.T) {
	repo := newExportRepoStub()
	queue := &queueStub{err: errors.New("queue full")}
	svc := newTestJobService(repo, queue)

	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{Format: "xlsx"}, "user-1")
	require.Error(t, err)

	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestGetStatusOwnership(t *testing.T) {
	repo := newExportRepoStub()
	repo.jobs["job-1"] = &models.ExportJob{
		ID:        "job-1",
		Status:    models.ExportStatusQueued,
		CreatedBy: "owner",
		Params:    models.ExportJobParams{Format: models.ExportFormatXLSX},
	}
	svc := newTestJobService(repo, &queueStub{})

	_, err := svc.GetStatus(context.Background(), "job-1", "someone-else", models.RoleCoordinator)
	require.Error(t, err)

	status, err := svc.GetStatus(context.Background(), "job-1", "owner", models.RoleCoordinator)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, status.Status)

	_, err = svc.GetStatus(context.Background(), "job-1", "someone-else", models.RoleAdmin)
	require.NoError(t, err, "admins can read any job")
}

func TestRecoverPendingJobs(t *testing.T) {
	repo := newExportRepoStub()
	repo.jobs["q1"] = &models.ExportJob{ID: "q1", Status: models.ExportStatusQueued, Params: models.ExportJobParams{Format: models.ExportFormatXLSX}}
	repo.jobs["f1"] = &models.ExportJob{ID: "f1", Status: models.ExportStatusFinished, Params: models.ExportJobParams{Format: models.ExportFormatXLSX}}
	queue := &queueStub{}
	svc := newTestJobService(repo, queue)

	svc.RecoverPendingJobs(context.Background())

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "q1", queue.enqueued[0].ID)
}

func TestWorkerHandleSuccess(t *testing.T) {
	repo := newExportRepoStub()
	repo.jobs["job-1"] = &models.ExportJob{ID: "job-1", Status: models.ExportStatusQueued, Params: models.ExportJobParams{Format: models.ExportFormatXLSX}}
	gen := &generatorStub{result: &ExportResult{URL: "/api/v1/exports/download/tok"}}
	worker := NewExportWorker(repo, gen, nil, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.NoError(t, err)

	job := repo.jobs["job-1"]
	assert.Equal(t, models.ExportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/exports/download/tok", *job.ResultURL)
	require.NotNil(t, job.FinishedAt)
}

func TestWorkerHandleRequeuesBeforeGivingUp(t *testing.T) {
	repo := newExportRepoStub()
	repo.jobs["job-1"] = &models.ExportJob{ID: "job-1", Status: models.ExportStatusQueued, Params: models.ExportJobParams{Format: models.ExportFormatXLSX}}
	gen := &generatorStub{err: errors.New("render failed")}
	worker := NewExportWorker(repo, gen, nil, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusQueued, repo.jobs["job-1"].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 3})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
	require.NotNil(t, repo.jobs["job-1"].ErrorMessage)
	assert.Equal(t, "render failed", *repo.jobs["job-1"].ErrorMessage)
}
