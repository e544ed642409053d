package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindingConstructors_SetSeverity(t *testing.T) {
	e := Err(1, CodeResUnknown, "resource %d missing", 7)
	assert.Equal(t, Error, e.Severity)
	assert.Equal(t, "resource 7 missing", e.Message)
	assert.Equal(t, uint64(1), e.InstructionIndex)

	w := Warn(2, CodePhaseBadTransition, "careful")
	assert.Equal(t, Warning, w.Severity)

	n := Note(3, CodeTermNotFinished, "fyi")
	assert.Equal(t, Info, n.Severity)
}

func TestBuffer_NewBufferDefaultsCapacity(t *testing.T) {
	b := NewBuffer(0)
	assert.Equal(t, DefaultCapacity, b.capacity)

	b2 := NewBuffer(-5)
	assert.Equal(t, DefaultCapacity, b2.capacity)
}

func TestBuffer_RetainsUpToCapacity(t *testing.T) {
	b := NewBuffer(2)
	b.Add(Err(0, CodeResUnknown, "a"))
	b.Add(Err(1, CodeResUnknown, "b"))
	b.Add(Err(2, CodeResUnknown, "c"))

	require.Len(t, b.Findings(), 2)
	assert.Equal(t, uint64(1), b.Dropped())
}

func TestBuffer_DroppedFindingsStillTallySeverity(t *testing.T) {
	b := NewBuffer(1)
	b.Add(Err(0, CodeResUnknown, "kept"))
	b.Add(Warn(1, CodePhaseBadTransition, "dropped but counted"))

	report := BuildReport(b, 10)
	assert.Equal(t, uint64(1), report.ErrorCount)
	assert.Equal(t, uint64(1), report.WarningCount)
	assert.Equal(t, uint64(1), report.Dropped)
	assert.Len(t, report.Diagnostics, 1)
}

func TestBuffer_AddAllPreservesOrder(t *testing.T) {
	b := NewBuffer(10)
	b.AddAll([]Finding{
		Note(0, CodeTermNotFinished, "first"),
		Note(1, CodeTermNotFinished, "second"),
	})
	findings := b.Findings()
	require.Len(t, findings, 2)
	assert.Equal(t, "first", findings[0].Message)
	assert.Equal(t, "second", findings[1].Message)
}

func TestBuildReport_SuccessIffNoErrors(t *testing.T) {
	clean := NewBuffer(10)
	clean.Add(Warn(0, CodePhaseBadTransition, "just a warning"))
	report := BuildReport(clean, 5)
	assert.True(t, report.Success)

	dirty := NewBuffer(10)
	dirty.Add(Err(0, CodeResUnknown, "fatal"))
	report = BuildReport(dirty, 5)
	assert.False(t, report.Success)
}

func TestBuildReport_InstructionCountPassthrough(t *testing.T) {
	b := NewBuffer(10)
	report := BuildReport(b, 42)
	assert.Equal(t, uint64(42), report.InstructionCount)
	assert.Equal(t, uint64(0), report.DiagnosticCount)
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "info", Info.String())
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "unknown", Severity(99).String())
}
