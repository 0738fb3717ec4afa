package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	triggers := s.ForRole(RoleTrigger)
	require.NotEmpty(t, triggers)
	assert.Equal(t, "arduino-trigger", triggers[0].Name)
	assert.Equal(t, 16, s.DisplayWidth(RoleDisplay))
	assert.Equal(t, 0, s.DisplayWidth(RoleTrigger))
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, s.ForRole(RoleDisplay))
}

func TestLoad_UserProfilesWin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := `
- name: custom-lcd
  role: display
  match: ["ftdi"]
  baud: 9600
  displayWidth: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	displays := s.ForRole(RoleDisplay)
	require.NotEmpty(t, displays)
	assert.Equal(t, "custom-lcd", displays[0].Name)
	assert.Equal(t, 20, s.DisplayWidth(RoleDisplay))
	assert.Equal(t, 9600, s.Baud(RoleDisplay, 115200))
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{not yaml"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDetectIn(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "usb-Arduino_Uno_1234-if00"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "usb-Silicon_Labs_CP2102_ESP32-if00"), nil, 0644))

	s, err := Load("")
	require.NoError(t, err)

	port, ok := s.DetectIn(RoleTrigger, dir)
	require.True(t, ok)
	assert.Contains(t, port, "Arduino")

	port, ok = s.DetectIn(RoleDisplay, dir)
	require.True(t, ok)
	assert.Contains(t, port, "ESP32")
}

func TestDetectIn_NoMatch(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	_, ok := s.DetectIn(RoleTrigger, t.TempDir())
	assert.False(t, ok)
}

func TestBaud_Fallback(t *testing.T) {
	s := &Set{}
	assert.Equal(t, 9600, s.Baud(RoleTrigger, 9600))
}
