package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var ErrProjectNotFound = errors.New("project not found")

// DefaultName is given to projects first persisted from a blank session.
const DefaultName = "Untitled"

// Store keeps project timelines as JSON documents. It backs edit sessions.
type Store struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(repo Repository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{repo: repo, logger: logger, now: time.Now}
}

// Create persists a new project with an empty timeline.
func (s *Store) Create(ctx context.Context, name string, width, height int) (*Project, error) {
	if name == "" {
		name = DefaultName
	}
	data, err := json.Marshal(timeline.New(width, height))
	if err != nil {
		return nil, err
	}
	now := s.now()
	p := &Project{
		ID:           NewID(),
		Name:         name,
		TimelineJSON: string(data),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.logger.Info("project created", "project_id", p.ID, "name", name)
	return p, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return p, nil
}

func (s *Store) List(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, id)
}

// LoadTimeline decodes the stored timeline of a project.
func (s *Store) LoadTimeline(ctx context.Context, projectID string) (*timeline.Timeline, error) {
	p, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tl, err := timeline.Decode([]byte(p.TimelineJSON))
	if err != nil {
		return nil, fmt.Errorf("decode timeline of %s: %w", projectID, err)
	}
	return tl, nil
}

// SaveTimeline writes tl to the project, creating the project when a blank
// session is saved for the first time.
func (s *Store) SaveTimeline(ctx context.Context, projectID string, tl *timeline.Timeline) error {
	data, err := json.Marshal(tl)
	if err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	existing, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if existing == nil {
		now := s.now()
		return s.repo.CreateProject(ctx, &Project{
			ID:           projectID,
			Name:         DefaultName,
			TimelineJSON: string(data),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return s.repo.UpdateProjectTimeline(ctx, projectID, string(data))
}
