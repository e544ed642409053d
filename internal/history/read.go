package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/streamsafe/gdsl/internal/diffengine"
)

// RunSummary is one archived verifier run, as returned by ListRuns.
type RunSummary struct {
	RunID        string
	StreamHash   string
	Level        string
	Success      bool
	ErrorCount   uint64
	WarningCount uint64
	InfoCount    uint64
	CreatedAt    string
}

// RunDetail is a single archived run including its full report body.
type RunDetail struct {
	RunSummary
	ReportJSON string
}

// ListRuns returns archived runs newest-first, capped at limit (0
// means unlimited).
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT run_id, stream_hash, level, success, error_count, warning_count, info_count, created_at
		FROM runs
		ORDER BY created_at DESC, run_id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var success int
		if err := rows.Scan(&r.RunID, &r.StreamHash, &r.Level, &success, &r.ErrorCount, &r.WarningCount, &r.InfoCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: list runs: scan: %w", err)
		}
		r.Success = success != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	return out, nil
}

// GetRun fetches one archived run's full report by id. Returns
// (nil, nil) if no such run exists.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunDetail, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, stream_hash, level, success, error_count, warning_count, info_count, report_json, created_at
		FROM runs WHERE run_id = ?
	`, runID)

	var d RunDetail
	var success int
	err := row.Scan(&d.RunID, &d.StreamHash, &d.Level, &success, &d.ErrorCount, &d.WarningCount, &d.InfoCount, &d.ReportJSON, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: get run %s: %w", runID, err)
	}
	d.Success = success != 0
	return &d, nil
}

// FindVerifiedRun looks up the most recent successful run recorded for
// streamHash at the given level, implementing the verified-hash fast
// path that the force_reverify configuration option bypasses. Returns
// (nil, nil) if no matching successful run is archived.
func (s *Store) FindVerifiedRun(ctx context.Context, streamHash, level string) (*RunDetail, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, stream_hash, level, success, error_count, warning_count, info_count, report_json, created_at
		FROM runs
		WHERE stream_hash = ? AND level = ? AND success = 1
		ORDER BY created_at DESC, run_id DESC
		LIMIT 1
	`, streamHash, level)

	var d RunDetail
	var success int
	err := row.Scan(&d.RunID, &d.StreamHash, &d.Level, &success, &d.ErrorCount, &d.WarningCount, &d.InfoCount, &d.ReportJSON, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: find verified run: %w", err)
	}
	d.Success = success != 0
	return &d, nil
}

// GetDiff fetches an archived diff manifest by run id and decodes it
// back into a diffengine.Result. Returns (nil, nil) if no such run
// has an archived diff.
func (s *Store) GetDiff(ctx context.Context, runID string) (*diffengine.Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT diff_blob FROM diffs WHERE run_id = ?`, runID)

	var blob []byte
	if err := row.Scan(&blob); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("history: get diff %s: %w", runID, err)
	}

	result, err := diffengine.DecodeBytes(blob)
	if err != nil {
		return nil, fmt.Errorf("history: get diff %s: decode: %w", runID, err)
	}
	return result, nil
}
