package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/checkqueue/internal/cerr"
)

func TestRunProducesAuditTrailJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--timeout", "2s"})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	count, ok := data["eventCount"].(float64)
	require.True(t, ok)
	assert.Greater(t, count, float64(0))
}

func TestRunTextReportsSubmittedAndStopped(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--timeout", "2s"})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "Recorded")
	assert.Contains(t, out, "stopped")
	assert.Contains(t, out, "doc=A")
	assert.Contains(t, out, "doc=B")
}

func TestRunLeavesAReadableAuditDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	runBuf := &bytes.Buffer{}
	runCmd := NewRunCommand(&RootOptions{Format: "text"})
	runCmd.SetOut(runBuf)
	runCmd.SetArgs([]string{"--db", dbPath, "--timeout", "2s"})
	require.NoError(t, runCmd.Execute())

	statusBuf := &bytes.Buffer{}
	statusCmd := NewStatusCommand(&RootOptions{Format: "text"})
	statusCmd.SetOut(statusBuf)
	statusCmd.SetArgs([]string{"--db", dbPath, "--doc", "A"})
	require.NoError(t, statusCmd.Execute())

	assert.Contains(t, statusBuf.String(), "doc=A")
}

func TestRunAcceptsConfigFileOverridingTuning(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	configPath := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
interruptWaitBound: 500
defaultRuleCacheSlot: 3
supportedLanguages: ["en-US"]
`), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--timeout", "2s", "--config", configPath})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestRunRejectsInvalidConfigFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	configPath := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
interruptWaitBound: -1
`), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--config", configPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(cerr.InvalidConfig), resp.Error.Code)
}

func TestRunRespectsTimeoutFlag(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--timeout", "50ms"})

	start := time.Now()
	require.NoError(t, cmd.Execute())
	assert.Less(t, time.Since(start), 10*time.Second)
}
