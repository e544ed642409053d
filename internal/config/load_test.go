package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamsafe/gdsl/internal/verify"
)

func TestLoadBytes_DefaultsFillIn(t *testing.T) {
	profile, errs := LoadBytes([]byte(`level: phase`))
	require.Empty(t, errs)
	require.NotNil(t, profile)
	assert.Equal(t, verify.Phase, profile.Level)
	assert.Equal(t, uint32(4096), profile.PageSize)
	assert.Equal(t, 256, profile.DiagnosticCapacity)
	assert.False(t, profile.IgnoreUnknownOpcodes)
}

func TestLoadBytes_FullyExplicit(t *testing.T) {
	doc := []byte(`
level: syntax
ignore_unknown_opcodes: true
continue_on_error: true
force_reverify: true
diagnostic_capacity: 64
page_size: 65536
`)
	profile, errs := LoadBytes(doc)
	require.Empty(t, errs)
	assert.Equal(t, verify.Syntax, profile.Level)
	assert.True(t, profile.IgnoreUnknownOpcodes)
	assert.True(t, profile.ContinueOnError)
	assert.True(t, profile.ForceReverify)
	assert.Equal(t, 64, profile.DiagnosticCapacity)
	assert.Equal(t, uint32(65536), profile.PageSize)
}

func TestLoadBytes_RejectsUnknownLevel(t *testing.T) {
	_, errs := LoadBytes([]byte(`level: ludicrous`))
	require.NotEmpty(t, errs)
	var found bool
	for _, e := range errs {
		if e.Code == ErrCodeSchema || e.Code == ErrCodeLevel {
			found = true
		}
	}
	assert.True(t, found, "expected a schema or level validation error, got %+v", errs)
}

func TestLoadBytes_RejectsNonPowerOfTwoPageSize(t *testing.T) {
	_, errs := LoadBytes([]byte(`
level: domain
page_size: 4097
`))
	require.NotEmpty(t, errs)
	var found bool
	for _, e := range errs {
		if e.Code == ErrCodePageSizeNotPowerOf2 {
			found = true
		}
	}
	assert.True(t, found, "expected page_size power-of-two error, got %+v", errs)
}

func TestLoad_MissingFile(t *testing.T) {
	_, errs := Load("/nonexistent/path/profile.yaml")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNotFound, errs[0].Code)
}

func TestDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, verify.Domain, p.Level)
	assert.Equal(t, uint32(4096), p.PageSize)
}

func TestVerifyOptions_ReturnsOneOptionPerVerifierKnob(t *testing.T) {
	p := Default()
	p.IgnoreUnknownOpcodes = true
	p.ForceReverify = true
	opts := p.VerifyOptions()
	assert.Len(t, opts, 4)
}
