package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/zombar/viralrank/internal/models"
)

var runColumns = []string{"id", "status", "config", "top_n", "report", "error", "created_at", "updated_at"}

// CreateRun saves a new run. Clips are stored separately by CompleteRun.
func (db *DB) CreateRun(ctx context.Context, run *models.Run) error {
	configJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	now := time.Now()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = run.CreatedAt
	if run.Status == "" {
		run.Status = models.RunQueued
	}

	query, args, err := db.sb.Insert("ranking_runs").
		Columns(runColumns...).
		Values(run.ID, run.Status, string(configJSON), run.TopN, nil, nil,
			run.CreatedAt.UnixNano(), run.UpdatedAt.UnixNano()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// CompleteRun stores the ranked clips and report of a finished run
func (db *DB) CompleteRun(ctx context.Context, id string, report models.RunReport, clips []models.Candidate) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := db.updateRun(ctx, tx, id, sq.Eq{"status": models.RunCompleted, "report": string(reportJSON), "error": nil}); err != nil {
		return err
	}

	// a retried task replaces the clips of an earlier attempt
	query, args, err := db.sb.Delete("ranked_clips").Where(sq.Eq{"run_id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear clips: %w", err)
	}

	if len(clips) > 0 {
		insert := db.sb.Insert("ranked_clips").
			Columns("run_id", "rank", "start_sec", "end_sec", "score", "text", "candidate")
		for i, c := range clips {
			candidateJSON, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("failed to marshal clip %d: %w", i, err)
			}
			insert = insert.Values(id, i+1, c.Start, c.End, models.ScoreFinal.Value(c), c.Text, string(candidateJSON))
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build clip insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert clips: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FailRun marks a run as failed with the given message
func (db *DB) FailRun(ctx context.Context, id, message string) error {
	return db.updateRun(ctx, db.conn, id, sq.Eq{"status": models.RunFailed, "error": message})
}

// buildRunUpdate renders the update for one run. SetMap sorts the columns so
// the statement text is stable across calls.
func (db *DB) buildRunUpdate(id string, set sq.Eq) (string, []any, error) {
	query, args, err := db.sb.Update("ranking_runs").
		Set("updated_at", time.Now().UnixNano()).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build update: %w", err)
	}
	return query, args, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) updateRun(ctx context.Context, ex execer, id string, set sq.Eq) error {
	query, args, err := db.buildRunUpdate(id, set)
	if err != nil {
		return err
	}

	result, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetRun retrieves a run and its ranked clips by ID
func (db *DB) GetRun(ctx context.Context, id string) (*models.Run, error) {
	query, args, err := db.sb.Select(runColumns...).
		From("ranking_runs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	run, err := scanRun(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	clips, err := db.getClips(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Clips = clips
	return run, nil
}

func (db *DB) getClips(ctx context.Context, runID string) ([]models.Candidate, error) {
	query, args, err := db.sb.Select("candidate").
		From("ranked_clips").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("rank").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build clip select: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clips: %w", err)
	}
	defer rows.Close()

	clips := []models.Candidate{}
	for rows.Next() {
		var candidateJSON string
		if err := rows.Scan(&candidateJSON); err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		var c models.Candidate
		if err := json.Unmarshal([]byte(candidateJSON), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal clip: %w", err)
		}
		clips = append(clips, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return clips, nil
}

// ListRuns retrieves runs newest first, without their clips
func (db *DB) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query, args, err := db.sb.Select(runColumns...).
		From("ranking_runs").
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// DeleteRun deletes a run and its clips by ID
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := db.sb.Delete("ranked_clips").Where(sq.Eq{"run_id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete clips: %w", err)
	}

	query, args, err = db.sb.Delete("ranking_runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		run        models.Run
		configJSON string
		reportJSON sql.NullString
		runErr     sql.NullString
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&run.ID, &run.Status, &configJSON, &run.TopN, &reportJSON, &runErr, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(configJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if reportJSON.Valid && reportJSON.String != "" {
		var report models.RunReport
		if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		run.Report = &report
	}
	run.Error = runErr.String
	run.CreatedAt = time.Unix(0, createdAt)
	run.UpdatedAt = time.Unix(0, updatedAt)
	return &run, nil
}
