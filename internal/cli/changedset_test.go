package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/streamsafe/gdsl/internal/diffengine"
)

// writeDiffFixture builds a small two-page diff (page 1 changed, page
// 0 unchanged) and writes its wire encoding to dir/name.
func writeDiffFixture(t *testing.T, dir, name string) string {
	t.Helper()

	base := make([]byte, 8192)
	target := make([]byte, 8192)
	target[4096] = 0xFF

	result, err := diffengine.Diff(base, target)
	if err != nil {
		t.Fatalf("Diff() failed: %v", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating fixture file: %v", err)
	}
	defer f.Close()

	if err := diffengine.Encode(f, result); err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	return path
}

func TestChangedSetCommand_JSONOutput(t *testing.T) {
	diffPath := writeDiffFixture(t, t.TempDir(), "sample.gdiff")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"changed-set", diffPath, "--format", "json"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "changed_set_json", buf.Bytes())
}
