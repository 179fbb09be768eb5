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

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "kapesync", cmd.Use)
	assert.Contains(t, cmd.Long, "offline-first")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"status", "sync", "catalog", "order", "report"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "kapesync.yaml", configFlag.DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"status", "--format", "xml"})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// demoConfig writes a config selecting demo mode over a temp store.
func demoConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "kapesync.yaml")
	storePath := filepath.Join(dir, "pos.db")
	require.NoError(t, os.WriteFile(path, []byte("store_path: "+storePath+"\n"), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusDemoMode(t *testing.T) {
	cfg := demoConfig(t)

	out, err := runCLI(t, "status", "--config", cfg, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "demo", data["mode"])
	assert.Equal(t, float64(0), data["queue_depth"])
}

func TestPlaceAndPayThroughCLI(t *testing.T) {
	cfg := demoConfig(t)

	out, err := runCLI(t, "catalog", "items", "--config", cfg,
		"--add", "Americano", "--price", "85", "--stocks", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "item created")
	assert.Contains(t, out, "saved locally, will sync later")

	out, err = runCLI(t, "order", "place", "--config", cfg,
		"--line", "Americano=2", "--customer", "Maria")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer: Maria")
	assert.Contains(t, out, "₱170.00")
	assert.Contains(t, out, "not yet synced")

	// Order id is in the listing; reuse it for pay.
	out, err = runCLI(t, "order", "list", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	orders := resp.Data.([]any)
	require.Len(t, orders, 1)
	orderID := orders[0].(map[string]any)["orderId"].(string)

	out, err = runCLI(t, "order", "pay", "--config", cfg, orderID)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: paid")

	out, err = runCLI(t, "report", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Americano")
	assert.Contains(t, out, "orders: 1")
}

func TestOrderPlaceRejectsUnknownItem(t *testing.T) {
	cfg := demoConfig(t)

	out, err := runCLI(t, "order", "place", "--config", cfg, "--line", "Ghost=1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "unknown item")
}

func TestSyncDemoModeReportsNothingReplayed(t *testing.T) {
	cfg := demoConfig(t)

	out, err := runCLI(t, "sync", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "mode: demo")
	assert.Contains(t, out, "nothing replayed")
}
