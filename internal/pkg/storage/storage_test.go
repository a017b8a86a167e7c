package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]Storage {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileStorage(filepath.Join(dir, "kv.json"))
	require.NoError(t, err)

	sqlite, err := NewSQLiteStorage(filepath.Join(dir, "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Storage{"file": file, "sqlite": sqlite}
}

func TestStorageRoundTrip(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := st.Get(KeyUser)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, st.Set(KeyUser, `{"userId":"u-1"}`))
			require.NoError(t, st.Set(KeyAccessToken, "tok"))

			value, ok, err := st.Get(KeyUser)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"userId":"u-1"}`, value)

			require.NoError(t, st.Set(KeyUser, `{"userId":"u-2"}`))
			value, _, err = st.Get(KeyUser)
			require.NoError(t, err)
			assert.Equal(t, `{"userId":"u-2"}`, value)

			require.NoError(t, st.Delete(KeyUser))
			_, ok, err = st.Get(KeyUser)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, st.Clear())
			_, ok, err = st.Get(KeyAccessToken)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestFileStoragePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")

	first, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(KeyDeviceID, "device-1"))

	second, err := NewFileStorage(path)
	require.NoError(t, err)
	value, ok, err := second.Get(KeyDeviceID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "device-1", value)
}

func TestFileStorageCorruptedFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	st, err := NewFileStorage(path)
	require.NoError(t, err)

	_, ok, err := st.Get(KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Set(KeyUser, "x"))
	value, ok, err := st.Get(KeyUser)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", value)
}

func TestSQLiteStoragePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	first, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(KeyRefreshToken, "rt"))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer second.Close()

	value, ok, err := second.Get(KeyRefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "rt", value)
}
