package project

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProjectTimeline(ctx context.Context, id, timelineJSON string) error
	DeleteProject(ctx context.Context, id string) error

	CreateExport(ctx context.Context, e *Export) error
	GetExport(ctx context.Context, id string) (*Export, error)
	ListExports(ctx context.Context, projectID string, limit int) ([]*Export, error)
	ListPendingExports(ctx context.Context) ([]*Export, error)
	UpdateExportStatus(ctx context.Context, id, status, errorMsg string) error
	ClaimExport(ctx context.Context, id string) (bool, error)
	CancelPendingExport(ctx context.Context, id string) (bool, error)
	UpdateExportProgress(ctx context.Context, id string, progress int) error
	CompleteExport(ctx context.Context, id, outputPath, location string) error
	FailExport(ctx context.Context, id, errorMsg, diagnostics string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(timeLayout)
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, timeline_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.TimelineJSON, p.CreatedAt.UTC().Format(timeLayout), p.UpdatedAt.UTC().Format(timeLayout))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, timeline_json, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*Project, error) {
	var p Project
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Name, &p.TimelineJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, timeline_json, created_at, updated_at
		FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) UpdateProjectTimeline(ctx context.Context, id, timelineJSON string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET timeline_json = ?, updated_at = ? WHERE id = ?
	`, timelineJSON, r.stamp(), id)
	return err
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

const exportColumns = `id, project_id, session_id, format, status, progress, error, diagnostics,
	snapshot_json, output_path, location, created_at, updated_at`

func (r *SQLiteRepository) CreateExport(ctx context.Context, e *Export) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (`+exportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.ProjectID, nullString(e.SessionID), e.Format, e.Status, e.Progress,
		nullString(e.Error), nullString(e.Diagnostics), e.SnapshotJSON,
		nullString(e.OutputPath), nullString(e.Location),
		e.CreatedAt.UTC().Format(timeLayout), e.UpdatedAt.UTC().Format(timeLayout))
	return err
}

func (r *SQLiteRepository) GetExport(ctx context.Context, id string) (*Export, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+exportColumns+` FROM exports WHERE id = ?`, id)
	e, err := scanExport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func scanExport(row scanner) (*Export, error) {
	var e Export
	var sessionID, errMsg, diagnostics, outputPath, location sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&e.ID, &e.ProjectID, &sessionID, &e.Format, &e.Status, &e.Progress,
		&errMsg, &diagnostics, &e.SnapshotJSON, &outputPath, &location, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	e.SessionID = sessionID.String
	e.Error = errMsg.String
	e.Diagnostics = diagnostics.String
	e.OutputPath = outputPath.String
	e.Location = location.String
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &e, nil
}

func (r *SQLiteRepository) ListExports(ctx context.Context, projectID string, limit int) ([]*Export, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + exportColumns + ` FROM exports`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExports(rows)
}

func (r *SQLiteRepository) ListPendingExports(ctx context.Context) ([]*Export, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+exportColumns+`
		FROM exports WHERE status = 'pending' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExports(rows)
}

func scanExports(rows *sql.Rows) ([]*Export, error) {
	var exports []*Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

func (r *SQLiteRepository) UpdateExportStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errorMsg), r.stamp(), id)
	return err
}

// ClaimExport moves a pending export to running. It reports false when the
// export is no longer pending.
func (r *SQLiteRepository) ClaimExport(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, ExportStatusPending, ExportStatusRunning)
}

// CancelPendingExport cancels an export that has not been claimed yet.
func (r *SQLiteRepository) CancelPendingExport(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, ExportStatusPending, ExportStatusCancelled)
}

func (r *SQLiteRepository) transition(ctx context.Context, id, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE exports SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`, to, r.stamp(), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) UpdateExportProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET progress = ?, updated_at = ? WHERE id = ?
	`, progress, r.stamp(), id)
	return err
}

func (r *SQLiteRepository) CompleteExport(ctx context.Context, id, outputPath, location string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET status = ?, progress = 100, error = NULL, output_path = ?, location = ?, updated_at = ?
		WHERE id = ?
	`, ExportStatusCompleted, nullString(outputPath), nullString(location), r.stamp(), id)
	return err
}

func (r *SQLiteRepository) FailExport(ctx context.Context, id, errorMsg, diagnostics string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET status = ?, error = ?, diagnostics = ?, updated_at = ? WHERE id = ?
	`, ExportStatusFailed, nullString(errorMsg), nullString(diagnostics), r.stamp(), id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
