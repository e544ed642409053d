package history

import (
	"context"
	"testing"

	"github.com/streamsafe/gdsl/internal/diagnostic"
)

func TestFindVerifiedRun_HitsOnMatchingHashAndLevel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := diagnostic.BuildReport(diagnostic.NewBuffer(4), 3)
	runID := NewRunID()
	if err := s.RecordRun(ctx, runID, "streamhash-abc", "domain", report, "2026-08-02T00:00:00Z"); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	detail, err := s.FindVerifiedRun(ctx, "streamhash-abc", "domain")
	if err != nil {
		t.Fatalf("FindVerifiedRun() failed: %v", err)
	}
	if detail == nil {
		t.Fatal("FindVerifiedRun() returned nil for a hash/level that was just recorded successfully")
	}
	if detail.RunID != runID {
		t.Errorf("run_id = %q, want %q", detail.RunID, runID)
	}
}

func TestFindVerifiedRun_MissesOnDifferentLevel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := diagnostic.BuildReport(diagnostic.NewBuffer(4), 3)
	if err := s.RecordRun(ctx, NewRunID(), "streamhash-abc", "syntax", report, "2026-08-02T00:00:00Z"); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	detail, err := s.FindVerifiedRun(ctx, "streamhash-abc", "domain")
	if err != nil {
		t.Fatalf("FindVerifiedRun() failed: %v", err)
	}
	if detail != nil {
		t.Error("FindVerifiedRun() hit for a level that was never recorded for this hash")
	}
}

func TestFindVerifiedRun_MissesOnFailedRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	buf := diagnostic.NewBuffer(4)
	buf.Add(diagnostic.Err(0, diagnostic.CodeResUnknown, "boom"))
	report := diagnostic.BuildReport(buf, 3)
	if err := s.RecordRun(ctx, NewRunID(), "streamhash-failed", "domain", report, "2026-08-02T00:00:00Z"); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	detail, err := s.FindVerifiedRun(ctx, "streamhash-failed", "domain")
	if err != nil {
		t.Fatalf("FindVerifiedRun() failed: %v", err)
	}
	if detail != nil {
		t.Error("FindVerifiedRun() hit on a run that failed; the fast path must only reuse successful verifications")
	}
}

func TestFindVerifiedRun_ReturnsMostRecentOnMultipleMatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := diagnostic.BuildReport(diagnostic.NewBuffer(4), 3)
	older := NewRunID()
	newer := NewRunID()
	if err := s.RecordRun(ctx, older, "streamhash-multi", "domain", report, "2026-08-01T00:00:00Z"); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}
	if err := s.RecordRun(ctx, newer, "streamhash-multi", "domain", report, "2026-08-02T00:00:00Z"); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	detail, err := s.FindVerifiedRun(ctx, "streamhash-multi", "domain")
	if err != nil {
		t.Fatalf("FindVerifiedRun() failed: %v", err)
	}
	if detail == nil {
		t.Fatal("FindVerifiedRun() returned nil, want the newer run")
	}
	if detail.RunID != newer {
		t.Errorf("run_id = %q, want newer run %q", detail.RunID, newer)
	}
}
