package protocolfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostepan8/agentbus/internal/corekit"
)

func TestLoadFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blue_lights.json")
	content := `{
		"name": "blue_lights_on",
		"description": "turns the lights blue",
		"trigger_phrases": ["blue lights"],
		"steps": [{"agent": "Lights", "function": "set_color_name", "parameters": {"color_name": "blue"}}],
		"responses": {"mode": "static", "phrases": ["Lights are blue now."]}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "blue_lights_on", p.Name)
	assert.Equal(t, []string{"blue lights"}, p.TriggerPhrases)
	require.NotNil(t, p.Response)
	assert.Equal(t, "static", string(p.Response.Mode))
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wake_up.yaml")
	content := "name: wake_up\ntrigger_phrases:\n  - wake up\nsteps: []\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "wake_up", p.Name)
}

func TestLoadDirMissingDirectoryIsNotAnError(t *testing.T) {
	protocols, err := LoadDir(filepath.Join(t.TempDir(), "missing"), corekit.NoOpLogger{})
	require.NoError(t, err)
	assert.Empty(t, protocols)
}

func TestLoadDirSkipsBadFileButLoadsRest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not valid"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(`{"name":"good","trigger_phrases":["go"],"steps":[]}`), 0o644))

	protocols, err := LoadDir(dir, corekit.NoOpLogger{})
	require.NoError(t, err)
	require.Len(t, protocols, 1)
	assert.Equal(t, "good", protocols[0].Name)
}
