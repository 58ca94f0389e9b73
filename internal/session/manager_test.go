package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var errNoProject = errors.New("project not found")

type memStore struct {
	mu    sync.Mutex
	saved map[string]*timeline.Timeline
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]*timeline.Timeline)}
}

func (s *memStore) LoadTimeline(ctx context.Context, projectID string) (*timeline.Timeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tl, ok := s.saved[projectID]
	if !ok {
		return nil, errNoProject
	}
	return tl.Clone(), nil
}

func (s *memStore) SaveTimeline(ctx context.Context, projectID string, tl *timeline.Timeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[projectID] = tl.Clone()
	return nil
}

func addVideo(start, end float64) func(tl *timeline.Timeline) error {
	return func(tl *timeline.Timeline) error {
		return tl.Insert(&timeline.VideoSegment{
			Base:      timeline.Base{ID: timeline.NewID(), TimelineStart: start, TimelineEnd: end},
			Source:    "a.mp4",
			SourceEnd: end - start,
			Opacity:   1,
		})
	}
}

func TestStart_BlankAndSaveRoundTrip(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, Config{})
	ctx := context.Background()

	info, err := m.Start(ctx, "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if info.ProjectID == "" || info.ID == "" {
		t.Fatalf("Start() = %+v", info)
	}
	tl, _ := m.Get(info.ID)
	if tl.Width != 1920 || tl.Height != 1080 {
		t.Errorf("blank canvas = %dx%d", tl.Width, tl.Height)
	}

	if _, err := m.Update(info.ID, addVideo(0, 5)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := m.Save(ctx, info.ID); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := m.Get(info.ID); err != nil {
		t.Errorf("session should survive Save: %v", err)
	}

	again, err := m.Start(ctx, info.ProjectID)
	if err != nil {
		t.Fatalf("Start(project) error = %v", err)
	}
	loaded, _ := m.Get(again.ID)
	if len(loaded.Videos) != 1 {
		t.Errorf("loaded videos = %d, want 1", len(loaded.Videos))
	}
}

func TestStart_UnknownProject(t *testing.T) {
	m := NewManager(newMemStore(), Config{})
	if _, err := m.Start(context.Background(), "nope"); !errors.Is(err, errNoProject) {
		t.Errorf("Start() error = %v, want errNoProject", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	m := NewManager(newMemStore(), Config{})
	if _, err := m.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	m := NewManager(newMemStore(), Config{})
	info, _ := m.Start(context.Background(), "")
	m.Update(info.ID, addVideo(0, 5))

	_, err := m.Update(info.ID, func(tl *timeline.Timeline) error {
		tl.Videos[0].TimelineEnd = 50
		tl.Clear()
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("Update() should return the mutation error")
	}

	tl, _ := m.Get(info.ID)
	if len(tl.Videos) != 1 || tl.Videos[0].TimelineEnd != 5 {
		t.Errorf("timeline changed after failed update: %+v", tl.Videos)
	}
}

func TestGet_ReturnsIsolatedCopy(t *testing.T) {
	m := NewManager(newMemStore(), Config{})
	info, _ := m.Start(context.Background(), "")
	m.Update(info.ID, addVideo(0, 5))

	snap, _ := m.Get(info.ID)
	m.Update(info.ID, addVideo(5, 10))
	snap.Videos[0].TimelineEnd = 1

	if len(snap.Videos) != 1 {
		t.Errorf("snapshot observed later mutation: %d videos", len(snap.Videos))
	}
	live, _ := m.Get(info.ID)
	if live.Videos[0].TimelineEnd == 1 {
		t.Error("mutating the snapshot changed the session")
	}
}

func TestSweep_RemovesIdleSessions(t *testing.T) {
	m := NewManager(newMemStore(), Config{IdleTimeout: time.Hour})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	idle, _ := m.Start(context.Background(), "")
	fresh, _ := m.Start(context.Background(), "")

	m.now = func() time.Time { return base.Add(50 * time.Minute) }
	m.Info(fresh.ID)

	removed := m.Sweep(base.Add(61 * time.Minute))
	if len(removed) != 1 || removed[0] != idle.ID {
		t.Fatalf("Sweep() = %v, want [%s]", removed, idle.ID)
	}
	if _, err := m.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(idle) error = %v, want ErrSessionNotFound", err)
	}
	if _, err := m.Get(fresh.ID); err != nil {
		t.Errorf("Get(fresh) error = %v", err)
	}
}

func TestSweep_SkipsBusySession(t *testing.T) {
	m := NewManager(newMemStore(), Config{IdleTimeout: time.Minute})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	info, _ := m.Start(context.Background(), "")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)
	go func() {
		_, err := m.Update(info.ID, func(tl *timeline.Timeline) error {
			close(entered)
			<-release
			return addVideo(0, 1)(tl)
		})
		done <- err
	}()
	<-entered

	if removed := m.Sweep(base.Add(time.Hour)); len(removed) != 0 {
		t.Errorf("Sweep() removed a busy session: %v", removed)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	tl, err := m.Get(info.ID)
	if err != nil || len(tl.Videos) != 1 {
		t.Errorf("Get() = %v, %v", tl, err)
	}
}

func TestUpdate_ConcurrentMutationsSerialize(t *testing.T) {
	m := NewManager(newMemStore(), Config{})
	info, _ := m.Start(context.Background(), "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := float64(i)
			if _, err := m.Update(info.ID, addVideo(start, start+1)); err != nil {
				t.Errorf("Update(%d) error = %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	tl, _ := m.Get(info.ID)
	if len(tl.Videos) != 50 {
		t.Errorf("videos = %d, want 50", len(tl.Videos))
	}
	if err := tl.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	m := NewManager(newMemStore(), Config{})
	info, _ := m.Start(context.Background(), "")
	if err := m.Close(info.ID); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(info.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Close() error = %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	m := NewManager(newMemStore(), Config{SweepInterval: 10 * time.Millisecond, IdleTimeout: time.Nanosecond})
	m.Start(context.Background(), "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for m.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if m.Len() != 0 {
		t.Errorf("sweeper left %d sessions", m.Len())
	}
}
