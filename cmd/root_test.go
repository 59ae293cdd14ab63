package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := `
store:
  driver: memory
logging:
  development: true
  level: error
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestSourcesListsRegistry(t *testing.T) {
	out, err := run(t, "sources")
	require.NoError(t, err)
	require.Contains(t, out, "ID")
	require.Contains(t, out, "IFB")
	require.Contains(t, out, "https://")
}

func TestNormalizeOnEmptyStore(t *testing.T) {
	out, err := run(t, "--config", writeConfig(t), "normalize")
	require.NoError(t, err)
	require.Contains(t, out, "normalized 0 records")
	require.Contains(t, out, "general_info")
}

func TestHarvestRejectsUnknownSources(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t), "harvest", "nope")
	require.Error(t, err)
}

func TestMissingConfigFileFails(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "normalize")
	require.Error(t, err)
}

func TestResolveAppWithoutApp(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
