package power

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSupply(t *testing.T, root, name, typ, capacity string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "type"), []byte(typ+"\n"), 0o644))
	if capacity != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "capacity"), []byte(capacity+"\n"), 0o644))
	}
}

func TestReadBattery(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "AC", "Mains", "")
	writeSupply(t, root, "BAT0", "Battery", "73")

	pct, err := ReadBattery(root)
	require.NoError(t, err)
	assert.Equal(t, 73, pct)
}

func TestReadBatteryNone(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "AC", "Mains", "")

	pct, err := ReadBattery(root)
	assert.Error(t, err)
	assert.Equal(t, BatteryUnknown, pct)
}

func TestReadBatteryGarbage(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT0", "Battery", "full")

	pct, err := ReadBattery(root)
	assert.Error(t, err)
	assert.Equal(t, BatteryUnknown, pct)
}

func TestSystemDryRun(t *testing.T) {
	s := &System{DryRun: true}
	assert.NoError(t, s.PowerOff())
	assert.NoError(t, s.Restart())
}

func TestFakeController(t *testing.T) {
	var c Controller = &FakeController{}
	require.NoError(t, c.PowerOff())
	require.NoError(t, c.Restart())
	require.NoError(t, c.Restart())

	f := c.(*FakeController)
	assert.Equal(t, 1, f.PowerOffs)
	assert.Equal(t, 2, f.Restarts)
}
