package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func runTestCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCmd(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCmd(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCmd(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandRunsScenarios(t *testing.T) {
	out, err := runTestCmd(t, "text", harnessScenarios, "--golden", "../harness/testdata/golden")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ auto_pick_worked_example")
	assert.Contains(t, out, "✓ channel_failure_isolated")
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := runTestCmd(t, "json", harnessScenarios, "--filter", "*_skipped")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
}

func TestTestCommandGoldenMismatchAndUpdate(t *testing.T) {
	golden := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(golden, "unknown_order_skipped.golden"), []byte("{}\n"), 0644))

	out, err := runTestCmd(t, "text", harnessScenarios, "--filter", "unknown_*", "--golden", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")

	_, err = runTestCmd(t, "text", harnessScenarios, "--filter", "unknown_*", "--golden", golden, "--update")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(golden, "unknown_order_skipped.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status": "skipped"`)

	_, err = runTestCmd(t, "text", harnessScenarios, "--filter", "unknown_*", "--golden", golden)
	require.NoError(t, err)
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	fixture, err := filepath.Abs("../harness/testdata/fixtures/team_lunch.yaml")
	require.NoError(t, err)
	scenario := "name: wrong\ndescription: expects the wrong status\nfixture: " + fixture +
		"\ntrigger:\n  orderId: order-1\nexpect:\n  status: no_change\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(scenario), 0644))

	out, err := runTestCmd(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "expect.status: got resolved, want no_change")
}

func TestTestCommandUpdateRequiresGolden(t *testing.T) {
	_, err := runTestCmd(t, "text", harnessScenarios, "--update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--update requires --golden")
}
