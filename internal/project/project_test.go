package project

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRepository(database.Conn())
}

func TestStore_CreateLoadSave(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestRepo(t), nil)

	p, err := store.Create(ctx, "", 1280, 720)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Name != DefaultName {
		t.Errorf("Name = %q, want %q", p.Name, DefaultName)
	}

	tl, err := store.LoadTimeline(ctx, p.ID)
	if err != nil {
		t.Fatalf("LoadTimeline() error = %v", err)
	}
	if tl.Width != 1280 || len(tl.All()) != 0 {
		t.Errorf("loaded timeline = %+v", tl)
	}

	if err := tl.Insert(&timeline.TextSegment{
		Base:    timeline.Base{ID: "t1", TimelineEnd: 2},
		Content: "hello",
		Style:   timeline.DefaultTextStyle(),
		Opacity: 1,
	}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.SaveTimeline(ctx, p.ID, tl); err != nil {
		t.Fatalf("SaveTimeline() error = %v", err)
	}

	again, err := store.LoadTimeline(ctx, p.ID)
	if err != nil {
		t.Fatalf("LoadTimeline() error = %v", err)
	}
	if len(again.Texts) != 1 || again.Texts[0].Content != "hello" {
		t.Errorf("saved timeline not loaded back: %+v", again.Texts)
	}
}

func TestStore_SaveCreatesMissingProject(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestRepo(t), nil)

	if err := store.SaveTimeline(ctx, "fresh", timeline.New(0, 0)); err != nil {
		t.Fatalf("SaveTimeline() error = %v", err)
	}
	p, err := store.Get(ctx, "fresh")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Name != DefaultName {
		t.Errorf("Name = %q", p.Name)
	}
}

func TestStore_NotFound(t *testing.T) {
	store := NewStore(newTestRepo(t), nil)
	if _, err := store.LoadTimeline(context.Background(), "missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("LoadTimeline() error = %v, want ErrProjectNotFound", err)
	}
	if err := store.Delete(context.Background(), "missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Delete() error = %v, want ErrProjectNotFound", err)
	}
}

func TestRepository_ExportLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	store := NewStore(repo, nil)
	p, err := store.Create(ctx, "Demo", 0, 0)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"e1", "e2"} {
		created := base.Add(time.Duration(i) * time.Second)
		if err := repo.CreateExport(ctx, &Export{
			ID:           id,
			ProjectID:    p.ID,
			Format:       FormatMP4,
			Status:       ExportStatusPending,
			SnapshotJSON: "{}",
			CreatedAt:    created,
			UpdatedAt:    created,
		}); err != nil {
			t.Fatalf("CreateExport(%s) error = %v", id, err)
		}
	}

	pending, err := repo.ListPendingExports(ctx)
	if err != nil {
		t.Fatalf("ListPendingExports() error = %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "e1" {
		t.Errorf("pending = %v, want e1 first", pending)
	}

	if err := repo.UpdateExportProgress(ctx, "e1", 40); err != nil {
		t.Fatalf("UpdateExportProgress() error = %v", err)
	}
	if err := repo.CompleteExport(ctx, "e1", "/out/e1.mp4", "s3://bucket/e1.mp4"); err != nil {
		t.Fatalf("CompleteExport() error = %v", err)
	}
	if err := repo.FailExport(ctx, "e2", "render engine failed", "tail"); err != nil {
		t.Fatalf("FailExport() error = %v", err)
	}

	e1, err := repo.GetExport(ctx, "e1")
	if err != nil || e1 == nil {
		t.Fatalf("GetExport(e1) = %v, %v", e1, err)
	}
	if e1.Status != ExportStatusCompleted || e1.Progress != 100 || e1.Location != "s3://bucket/e1.mp4" || !e1.IsTerminal() {
		t.Errorf("e1 = %+v", e1)
	}
	e2, _ := repo.GetExport(ctx, "e2")
	if e2.Status != ExportStatusFailed || e2.Diagnostics != "tail" {
		t.Errorf("e2 = %+v", e2)
	}

	list, err := repo.ListExports(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("ListExports() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "e2" {
		t.Errorf("ListExports() = %v, want newest first", list)
	}

	missing, err := repo.GetExport(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetExport(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestRepository_Config(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	got, err := repo.GetConfig(ctx, "missing")
	if err != nil || got != "" {
		t.Errorf("GetConfig(missing) = %q, %v", got, err)
	}
	if err := repo.SetConfig(ctx, "canvas", "1920x1080"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "canvas", "1280x720"); err != nil {
		t.Fatalf("SetConfig() overwrite error = %v", err)
	}
	got, _ = repo.GetConfig(ctx, "canvas")
	if got != "1280x720" {
		t.Errorf("GetConfig() = %q, want 1280x720", got)
	}
}

func TestRepository_ClaimAndCancelPending(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p, err := NewStore(repo, nil).Create(ctx, "Demo", 0, 0)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	now := time.Now()
	for _, id := range []string{"a", "b"} {
		if err := repo.CreateExport(ctx, &Export{
			ID: id, ProjectID: p.ID, Format: FormatMP4, Status: ExportStatusPending,
			SnapshotJSON: "{}", CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("CreateExport(%s) error = %v", id, err)
		}
	}

	if ok, err := repo.ClaimExport(ctx, "a"); err != nil || !ok {
		t.Fatalf("ClaimExport(a) = %v, %v, want true", ok, err)
	}
	if ok, _ := repo.ClaimExport(ctx, "a"); ok {
		t.Error("second ClaimExport(a) should fail")
	}
	if ok, _ := repo.CancelPendingExport(ctx, "a"); ok {
		t.Error("CancelPendingExport on a running export should fail")
	}

	if ok, err := repo.CancelPendingExport(ctx, "b"); err != nil || !ok {
		t.Fatalf("CancelPendingExport(b) = %v, %v, want true", ok, err)
	}
	if ok, _ := repo.ClaimExport(ctx, "b"); ok {
		t.Error("ClaimExport on a cancelled export should fail")
	}

	a, _ := repo.GetExport(ctx, "a")
	b, _ := repo.GetExport(ctx, "b")
	if a.Status != ExportStatusRunning || b.Status != ExportStatusCancelled {
		t.Errorf("statuses = %s, %s; want running, cancelled", a.Status, b.Status)
	}
}
