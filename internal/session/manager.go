// Package session keeps the live, editable timelines. Every session owns a
// lock that serializes its mutations; idle sessions are swept on a timer.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const (
	DefaultIdleTimeout   = time.Hour
	DefaultSweepInterval = time.Hour
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists timelines by project id.
type Store interface {
	LoadTimeline(ctx context.Context, projectID string) (*timeline.Timeline, error)
	SaveTimeline(ctx context.Context, projectID string, tl *timeline.Timeline) error
}

// Info describes a session without exposing its timeline.
type Info struct {
	ID         string    `json:"session_id"`
	ProjectID  string    `json:"project_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
}

type session struct {
	mu       sync.Mutex
	info     Info
	timeline *timeline.Timeline
	closed   bool
}

// Config configures a Manager.
type Config struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	CanvasWidth   int
	CanvasHeight  int
	Logger        *slog.Logger
}

// Manager is the registry of live sessions.
type Manager struct {
	store Store
	cfg   Config
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewManager(store Store, cfg Config) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		cfg.CanvasWidth, cfg.CanvasHeight = timeline.DefaultCanvasWidth, timeline.DefaultCanvasHeight
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Start opens a session. With a project id the persisted timeline is loaded;
// without one a blank timeline is created under a fresh project id.
func (m *Manager) Start(ctx context.Context, projectID string) (Info, error) {
	var tl *timeline.Timeline
	if projectID != "" {
		loaded, err := m.store.LoadTimeline(ctx, projectID)
		if err != nil {
			return Info{}, fmt.Errorf("load project %s: %w", projectID, err)
		}
		tl = loaded
	} else {
		projectID = uuid.NewString()
		tl = timeline.New(m.cfg.CanvasWidth, m.cfg.CanvasHeight)
	}

	now := m.now()
	s := &session{
		info: Info{
			ID:         uuid.NewString(),
			ProjectID:  projectID,
			CreatedAt:  now,
			LastAccess: now,
		},
		timeline: tl,
	}

	m.mu.Lock()
	m.sessions[s.info.ID] = s
	m.mu.Unlock()

	m.cfg.Logger.Info("edit session started", "session_id", s.info.ID, "project_id", projectID)
	return s.info, nil
}

// acquire returns the session locked. A session reclaimed between lookup and
// lock reports ErrSessionNotFound.
func (m *Manager) acquire(id string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.info.LastAccess = m.now()
	return s, nil
}

// Info returns session metadata and refreshes its access time.
func (m *Manager) Info(id string) (Info, error) {
	s, err := m.acquire(id)
	if err != nil {
		return Info{}, err
	}
	defer s.mu.Unlock()
	return s.info, nil
}

// Get returns a deep copy of the session's timeline.
func (m *Manager) Get(id string) (*timeline.Timeline, error) {
	s, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.timeline.Clone(), nil
}

// Snapshot returns a deep copy of the timeline together with the project id.
func (m *Manager) Snapshot(id string) (Info, *timeline.Timeline, error) {
	s, err := m.acquire(id)
	if err != nil {
		return Info{}, nil, err
	}
	defer s.mu.Unlock()
	return s.info, s.timeline.Clone(), nil
}

// Update runs fn against a clone of the timeline while holding the session
// lock. The clone replaces the timeline only when fn succeeds, so a failed
// mutation leaves the session exactly as before.
func (m *Manager) Update(id string, fn func(tl *timeline.Timeline) error) (*timeline.Timeline, error) {
	s, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	draft := s.timeline.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}
	s.timeline = draft
	return draft.Clone(), nil
}

// View runs fn against the live timeline under the session lock. fn must not
// retain or modify it.
func (m *Manager) View(id string, fn func(tl *timeline.Timeline) error) error {
	s, err := m.acquire(id)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	return fn(s.timeline)
}

// Save persists the current timeline. The session stays open.
func (m *Manager) Save(ctx context.Context, id string) error {
	info, tl, err := m.Snapshot(id)
	if err != nil {
		return err
	}
	if err := m.store.SaveTimeline(ctx, info.ProjectID, tl); err != nil {
		return fmt.Errorf("save project %s: %w", info.ProjectID, err)
	}
	m.cfg.Logger.Info("edit session saved", "session_id", id, "project_id", info.ProjectID)
	return nil
}

// Close destroys a session without saving.
func (m *Manager) Close(id string) error {
	s, err := m.acquire(id)
	if err != nil {
		return err
	}
	s.closed = true
	s.mu.Unlock()

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	m.cfg.Logger.Info("edit session closed", "session_id", id)
	return nil
}

// List returns every live session ordered by creation.
func (m *Manager) List() []Info {
	m.mu.RLock()
	all := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(all))
	for _, s := range all {
		s.mu.Lock()
		if !s.closed {
			out = append(out, s.info)
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Sweep removes sessions idle longer than the idle timeout and returns their
// ids. Sessions busy with an operation are skipped.
func (m *Manager) Sweep(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id, s := range m.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if now.Sub(s.info.LastAccess) > m.cfg.IdleTimeout {
			s.closed = true
			delete(m.sessions, id)
			removed = append(removed, id)
		}
		s.mu.Unlock()
	}
	if len(removed) > 0 {
		m.cfg.Logger.Info("idle sessions swept", "count", len(removed))
	}
	return removed
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	m.cfg.Logger.Info("session sweeper started",
		"interval", m.cfg.SweepInterval.String(),
		"idle_timeout", m.cfg.IdleTimeout.String(),
	)

	for {
		select {
		case <-ctx.Done():
			m.cfg.Logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
