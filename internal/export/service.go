package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/heimdex/heimdex-editor/internal/project"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/session"
)

// Service creates export jobs from edit sessions and answers queries about
// them. Jobs are executed by a Runner.
type Service struct {
	sessions *session.Manager
	repo     project.Repository
	runner   *Runner
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(sessions *session.Manager, repo project.Repository, runner *Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions: sessions,
		repo:     repo,
		runner:   runner,
		logger:   logger,
		now:      time.Now,
	}
}

// Create snapshots the session's timeline and queues an export of it. Later
// edits to the session do not affect the queued job. An empty timeline is
// rejected before anything is persisted.
func (s *Service) Create(ctx context.Context, sessionID string, req Request) (*project.Export, error) {
	format := req.format()
	if format != project.FormatMP4 && format != project.FormatEDL {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	info, tl, err := s.sessions.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	switch format {
	case project.FormatMP4:
		if !tl.HasVisualContent() {
			return nil, render.ErrEmptyTimelineExport
		}
	case project.FormatEDL:
		if len(tl.Videos) == 0 {
			return nil, render.ErrEmptyTimelineExport
		}
	}

	snapshot, err := json.Marshal(tl)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.sessions.Save(ctx, sessionID); err != nil {
		return nil, err
	}

	now := s.now()
	e := &project.Export{
		ID:           project.NewID(),
		ProjectID:    info.ProjectID,
		SessionID:    sessionID,
		Format:       format,
		Status:       project.ExportStatusPending,
		SnapshotJSON: string(snapshot),
		OutputPath:   req.fileName(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateExport(ctx, e); err != nil {
		return nil, fmt.Errorf("create export: %w", err)
	}
	s.logger.Info("export queued",
		"export_id", e.ID,
		"session_id", sessionID,
		"project_id", info.ProjectID,
		"format", format,
	)

	if req.CloseSession {
		if err := s.sessions.Close(sessionID); err != nil {
			s.logger.Warn("failed to close session after export", "session_id", sessionID, "error", err)
		}
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, id string) (*project.Export, error) {
	e, err := s.repo.GetExport(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrExportNotFound, id)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, projectID string, limit int) ([]*project.Export, error) {
	exports, err := s.repo.ListExports(ctx, projectID, limit)
	if err != nil {
		return nil, err
	}
	if exports == nil {
		exports = []*project.Export{}
	}
	return exports, nil
}

// Cancel stops a running export or withdraws a pending one.
func (s *Service) Cancel(ctx context.Context, id string) (*project.Export, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrExportFinished, id, e.Status)
	}

	if s.runner == nil || !s.runner.Cancel(id) {
		cancelled, err := s.repo.CancelPendingExport(ctx, id)
		if err != nil {
			return nil, err
		}
		// The runner registers a job before claiming it, so it is cancellable now.
		if !cancelled && (s.runner == nil || !s.runner.Cancel(id)) {
			return nil, fmt.Errorf("%w: %s", ErrExportFinished, id)
		}
	}
	s.logger.Info("export cancel requested", "export_id", id)
	return s.Get(ctx, id)
}

// Output returns the local file of a completed export.
func (s *Service) Output(ctx context.Context, id string) (*project.Export, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != project.ExportStatusCompleted || e.OutputPath == "" {
		return nil, fmt.Errorf("%w: %s is %s", ErrOutputNotAvailable, id, e.Status)
	}
	return e, nil
}
