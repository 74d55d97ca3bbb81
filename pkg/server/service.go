package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/deep-research/pkg/database"
	"github.com/mikeboe/deep-research/pkg/gateway"
	"github.com/mikeboe/deep-research/pkg/research"
)

// Service owns research jobs: it persists them, runs each one in a
// background worker, and exposes lookups for the HTTP handler.
type Service struct {
	DB      *database.PostgresDB
	Cfg     research.Config
	LLM     llms.Model
	Search  research.SearchProvider
	Fetcher research.ContentFetcher
}

func NewService(db *database.PostgresDB, cfg research.Config, llm llms.Model, search research.SearchProvider, fetcher research.ContentFetcher) *Service {
	return &Service{
		DB:      db,
		Cfg:     cfg,
		LLM:     llm,
		Search:  search,
		Fetcher: fetcher,
	}
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Query     string          `json:"query"`
	Status    string          `json:"status"`
	Report    *string         `json:"report,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Config    json.RawMessage `json:"config"`
	State     json.RawMessage `json:"state,omitempty"`
}

type CreateJobRequest struct {
	Query string `json:"query"`
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	configJSON, _ := json.Marshal(map[string]interface{}{
		"max_iterations":    s.Cfg.MaxIterations,
		"concurrency_limit": s.Cfg.ConcurrencyLimit,
	})

	jobID := uuid.New()
	query := `
		INSERT INTO research_jobs (id, query, status, config)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id, query, status, created_at, updated_at
	`

	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, jobID, req.Query, configJSON).Scan(
		&job.ID, &job.Query, &job.Status, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	// Start background worker
	go s.runWorker(job.ID, req.Query)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, query, status, report, created_at, updated_at, config, state
		FROM research_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Query, &job.Status, &job.Report, &job.CreatedAt, &job.UpdatedAt, &job.Config, &job.State,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, query, status, report, created_at, updated_at, config, state
		FROM research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Query, &job.Status, &job.Report, &job.CreatedAt, &job.UpdatedAt, &job.Config, &job.State); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (s *Service) runWorker(jobID uuid.UUID, originalQuery string) {
	ctx := context.Background()

	// Update status to running
	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", jobID)

	// All engine and gateway logs for this job go to the database.
	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))

	gw := gateway.New(s.LLM)
	gw.Logger = dbLogger

	engine := research.NewEngine(gw, s.Search, s.Fetcher, s.Cfg)
	engine.Logger = dbLogger

	// Hook for state persistence
	engine.OnStateUpdate = func(state research.ResearchState) {
		stateJSON, err := json.Marshal(state)
		if err != nil {
			dbLogger.Error("Failed to marshal state", "error", err)
			return
		}

		_, err = s.DB.Pool.Exec(context.Background(),
			"UPDATE research_jobs SET state = $2, updated_at = NOW() WHERE id = $1",
			jobID, stateJSON)
		if err != nil {
			dbLogger.Error("Failed to save state to DB", "error", err)
		}
	}

	state := engine.Run(ctx, originalQuery, nil, nil)

	report, err := engine.WriteFinalReport(ctx, originalQuery, state.Learnings, state.VisitedURLs)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Report generation failed: %v", err))
		return
	}

	// Update job with report
	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE research_jobs SET status = 'completed', report = $2, updated_at = NOW() WHERE id = $1",
		jobID, report)
	if err != nil {
		dbLogger.Error("Failed to save final report to DB", "error", err)
	}
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'failed', updated_at = NOW() WHERE id = $1", jobID)
}
