package nightagent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostepan8/agentbus/message"
)

func TestSpawnAndStopBackgroundTasksDrainsGoroutine(t *testing.T) {
	a := NewBaseAgent("Test")
	started := make(chan struct{})
	stopped := make(chan struct{})

	a.Spawn(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(stopped)
	})

	<-started
	a.StopBackgroundTasks()

	select {
	case <-stopped:
	default:
		t.Fatal("background goroutine was not signalled to stop")
	}
}

type fakeToggler struct {
	activated, deactivated []string
}

func (f *fakeToggler) ActivateCapabilities(name string)   { f.activated = append(f.activated, name) }
func (f *fakeToggler) DeactivateCapabilities(name string) { f.deactivated = append(f.deactivated, name) }

func TestActivateDeactivateCapabilitiesDelegateToToggler(t *testing.T) {
	a := NewBaseAgent("Weather")
	toggler := &fakeToggler{}

	a.ActivateCapabilities(toggler)
	a.DeactivateCapabilities(toggler)

	assert.Equal(t, []string{"Weather"}, toggler.activated)
	assert.Equal(t, []string{"Weather"}, toggler.deactivated)
}

func writeLogLines(t *testing.T, path string, entries []map[string]interface{}) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, e := range entries {
		data, err := json.Marshal(e)
		require.NoError(t, err)
		_, err = f.Write(append(data, '\n'))
		require.NoError(t, err)
	}
}

func TestCleanLogsDropsEntriesOlderThanRetention(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usage.log")

	old := time.Now().AddDate(0, 0, -40).UTC().Format(time.RFC3339)
	recent := time.Now().AddDate(0, 0, -1).UTC().Format(time.RFC3339)
	writeLogLines(t, path, []map[string]interface{}{
		{"timestamp": old, "protocol_name": "stale"},
		{"timestamp": recent, "protocol_name": "fresh"},
	})

	agent := NewLogCleanupAgent([]string{path}, 30, time.Hour, nil)
	result := agent.CleanLogs()

	assert.Equal(t, 2, result.TotalBefore)
	assert.Equal(t, 1, result.TotalAfter)
	assert.Equal(t, 1, result.DeletedCount)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fresh")
	assert.NotContains(t, string(data), "stale")
}

func TestCleanLogsToleratesMissingFile(t *testing.T) {
	agent := NewLogCleanupAgent([]string{filepath.Join(t.TempDir(), "missing.log")}, 30, time.Hour, nil)
	result := agent.CleanLogs()
	assert.Equal(t, 0, result.TotalBefore)
}

func TestReceiveMessageRunsCleanupForMatchingCapability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usage.log")
	writeLogLines(t, path, []map[string]interface{}{
		{"timestamp": time.Now().AddDate(0, 0, -100).UTC().Format(time.RFC3339)},
	})

	agent := NewLogCleanupAgent([]string{path}, 1, time.Hour, nil)
	assert.Equal(t, []string{"clean_logs"}, agent.Capabilities())

	msg := message.New("Jarvis", "LogCleanupAgent", message.TypeCapabilityRequest, map[string]interface{}{"capability": "clean_logs"})
	agent.ReceiveMessage(context.Background(), msg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}
