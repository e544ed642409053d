package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/streamsafe/gdsl/internal/canon"
	"github.com/streamsafe/gdsl/internal/diagnostic"
	"github.com/streamsafe/gdsl/internal/diffengine"
)

// NewRunID mints a time-sortable UUIDv7 run identifier.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RecordRun archives one verifier run. report is serialized with
// canonical JSON before storage so archived reports of byte-identical
// streams at the same level are byte-identical rows.
func (s *Store) RecordRun(ctx context.Context, runID, streamHash, level string, report *diagnostic.Report, createdAt string) error {
	reportJSON, err := canonicalReportJSON(report)
	if err != nil {
		return fmt.Errorf("history: record run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, stream_hash, level, success, error_count, warning_count, info_count, report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		runID, streamHash, level, boolToInt(report.Success),
		report.ErrorCount, report.WarningCount, report.InfoCount,
		reportJSON, createdAt,
	)
	if err != nil {
		return fmt.Errorf("history: record run: %w", err)
	}
	return nil
}

// RecordDiff archives one diff manifest: its header fields as columns
// and its whole wire encoding, payload included, as a blob, so GetDiff
// can return a Result that Patch accepts.
func (s *Store) RecordDiff(ctx context.Context, runID, baseHash, targetHash string, result *diffengine.Result, createdAt string) error {
	blob, err := diffengine.EncodeBytes(result)
	if err != nil {
		return fmt.Errorf("history: record diff: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO diffs
		(run_id, base_hash, target_hash, page_size, chunk_count, target_length, diff_blob, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		runID, baseHash, targetHash, result.Header.PageSize,
		len(result.Chunks), result.Header.TargetLength, blob, createdAt,
	)
	if err != nil {
		return fmt.Errorf("history: record diff: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// canonicalReportJSON re-encodes a Report through canon.Marshal so
// archived reports are byte-stable, then falls back to storing the
// canonical bytes directly as the row's TEXT payload.
func canonicalReportJSON(report *diagnostic.Report) (string, error) {
	// Report already round-trips cleanly through encoding/json into
	// the plain map/slice shapes canon.Marshal accepts.
	raw, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	obj, err := toCanonValue(generic)
	if err != nil {
		return "", err
	}
	canonical, err := canon.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(canonical), nil
}

// toCanonValue converts the generic any produced by encoding/json
// (float64 for every JSON number) into the int64-typed shape
// canon.Marshal requires: canonical output must never carry a float,
// and every field a Report ever carries is an integer, string, or
// bool.
func toCanonValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("history: unexpected null in report JSON")
	case float64:
		return int64(val), nil
	case string, bool:
		return val, nil
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			c, err := toCanonValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			c, err := toCanonValue(e)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("history: unsupported report field type %T", v)
	}
}
