package catalog

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	FinishRun(ctx context.Context, id, status, errorMsg string, total, succeeded, failed int) error

	CreateVideoResult(ctx context.Context, res *VideoResult) error
	GetVideoResult(ctx context.Context, id string) (*VideoResult, error)
	ListVideoResults(ctx context.Context, limit int) ([]*VideoResult, error)
	ListVideoResultsByRun(ctx context.Context, runID string) ([]*VideoResult, error)
	LatestVideoResult(ctx context.Context, videoID string) (*VideoResult, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, input_path, status, total, succeeded, failed, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.InputPath, run.Status, run.Total, run.Succeeded, run.Failed,
		run.Error, run.StartedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, input_path, status, total, succeeded, failed, error, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)
	return r.scanRun(row)
}

func (r *SQLiteRepository) scanRun(row *sql.Row) (*Run, error) {
	var run Run
	var startedAt string
	var finishedAt sql.NullString

	err := row.Scan(&run.ID, &run.InputPath, &run.Status, &run.Total,
		&run.Succeeded, &run.Failed, &run.Error, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finishedAt.Valid {
		run.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt.String)
	}
	return &run, nil
}

func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, input_path, status, total, succeeded, failed, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt string
		var finishedAt sql.NullString

		if err := rows.Scan(&run.ID, &run.InputPath, &run.Status, &run.Total,
			&run.Succeeded, &run.Failed, &run.Error, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if finishedAt.Valid {
			run.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt.String)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRepository) FinishRun(ctx context.Context, id, status, errorMsg string, total, succeeded, failed int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, total = ?, succeeded = ?, failed = ?,
			finished_at = ? WHERE id = ?
	`, status, errorMsg, total, succeeded, failed, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) CreateVideoResult(ctx context.Context, res *VideoResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO videos (id, run_id, video_id, path, status, failure_kind, error,
			output_path, duration_s, shots, words, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, res.ID, res.RunID, res.VideoID, res.Path, res.Status, res.FailureKind, res.Error,
		res.OutputPath, res.DurationS, res.Shots, res.Words,
		res.ProcessedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetVideoResult(ctx context.Context, id string) (*VideoResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, video_id, path, status, failure_kind, error,
			output_path, duration_s, shots, words, processed_at
		FROM videos WHERE id = ?
	`, id)
	return r.scanVideoResult(row)
}

func (r *SQLiteRepository) LatestVideoResult(ctx context.Context, videoID string) (*VideoResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, video_id, path, status, failure_kind, error,
			output_path, duration_s, shots, words, processed_at
		FROM videos WHERE video_id = ? ORDER BY processed_at DESC LIMIT 1
	`, videoID)
	return r.scanVideoResult(row)
}

func (r *SQLiteRepository) scanVideoResult(row *sql.Row) (*VideoResult, error) {
	var v VideoResult
	var processedAt string

	err := row.Scan(&v.ID, &v.RunID, &v.VideoID, &v.Path, &v.Status, &v.FailureKind,
		&v.Error, &v.OutputPath, &v.DurationS, &v.Shots, &v.Words, &processedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v.ProcessedAt, _ = time.Parse(time.RFC3339, processedAt)
	return &v, nil
}

func (r *SQLiteRepository) ListVideoResults(ctx context.Context, limit int) ([]*VideoResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, video_id, path, status, failure_kind, error,
			output_path, duration_s, shots, words, processed_at
		FROM videos ORDER BY processed_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanVideoResults(rows)
}

func (r *SQLiteRepository) ListVideoResultsByRun(ctx context.Context, runID string) ([]*VideoResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, video_id, path, status, failure_kind, error,
			output_path, duration_s, shots, words, processed_at
		FROM videos WHERE run_id = ? ORDER BY processed_at ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanVideoResults(rows)
}

func (r *SQLiteRepository) scanVideoResults(rows *sql.Rows) ([]*VideoResult, error) {
	var results []*VideoResult
	for rows.Next() {
		var v VideoResult
		var processedAt string

		if err := rows.Scan(&v.ID, &v.RunID, &v.VideoID, &v.Path, &v.Status, &v.FailureKind,
			&v.Error, &v.OutputPath, &v.DurationS, &v.Shots, &v.Words, &processedAt); err != nil {
			return nil, err
		}
		v.ProcessedAt, _ = time.Parse(time.RFC3339, processedAt)
		results = append(results, &v)
	}
	return results, rows.Err()
}
