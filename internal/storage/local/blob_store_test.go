package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStore_PutObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "jobs/job-1/results.json", "application/json", []byte(`{"ok":true}`))
	require.NoError(t, err)
	require.Equal(t, "file://"+filepath.Join(dir, "jobs/job-1/results.json"), uri)

	data, err := os.ReadFile(filepath.Join(dir, "jobs", "job-1", "results.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(data))
}

func TestBlobStore_RejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "../escape.json", "application/json", []byte("x"))
	require.Error(t, err)

	_, err = store.PutObject(context.Background(), "  ", "application/json", []byte("x"))
	require.Error(t, err)
}

func TestNew_RequiresDirectory(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = New(file)
	require.Error(t, err)
}
