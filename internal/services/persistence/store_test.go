package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/greenhouse"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/model/entities"
)

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "state"))

	g := greenhouse.New(3, greenhouse.WithRandSource(greenhouse.SeededSource(3)))
	_, err := g.AddSensor(greenhouse.MoistureSensor)
	require.NoError(t, err)
	_, err = g.AddAppliance(greenhouse.Limer)
	require.NoError(t, err)

	snaps := []entities.GreenhouseSnapshot{g.Snapshot(), greenhouse.New(1).Snapshot()}
	require.NoError(t, store.SaveAll(snaps))

	_, err = os.Stat(filepath.Join(dir, "state", "greenhouse3.json"))
	require.NoError(t, err)

	loaded, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 1, loaded[0].ID)
	assert.Equal(t, snaps[0], loaded[1])

	restored, err := greenhouse.Restore(loaded[1])
	require.NoError(t, err)
	assert.Len(t, restored.Sensors(), 1)
	assert.Len(t, restored.Appliances(), 1)
}

func TestFileStore_OverwritesExisting(t *testing.T) {
	store := NewFileStore(t.TempDir())
	g := greenhouse.New(0)
	require.NoError(t, store.SaveAll([]entities.GreenhouseSnapshot{g.Snapshot()}))

	_, err := g.AddSensor(greenhouse.PHSensor)
	require.NoError(t, err)
	require.NoError(t, store.SaveAll([]entities.GreenhouseSnapshot{g.Snapshot()}))

	loaded, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Len(t, loaded[0].Sensors, 1)
}

func TestFileStore_LoadSkipsJunk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greenhouse7.json"), []byte("{nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greenhouseX.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greenhouse2.json"), []byte(`{"id":2}`), 0o644))

	loaded, err := NewFileStore(dir).LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 2, loaded[0].ID)
}

func TestFileStore_MissingDirIsEmpty(t *testing.T) {
	loaded, err := NewFileStore(filepath.Join(t.TempDir(), "absent")).LoadAll()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
