package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store, err := NewLocalStore(t.TempDir(), logger)
	require.NoError(t, err)
	return store
}

func TestLocalStoreSaveAndOpen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	path, err := store.Save(ctx, "passport scan.pdf", strings.NewReader("document body"))
	require.NoError(t, err)
	assert.Contains(t, path, "passport_scan.pdf")

	rc, err := store.Open(path)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "document body", string(data))
}

func TestLocalStoreRejectsEmptyBaseDir(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	_, err := NewLocalStore("", logger)
	assert.Error(t, err)
}

func TestLocalStoreOpenRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Open("../outside.txt")
	assert.Error(t, err)

	_, err = store.Open("/etc/passwd")
	assert.Error(t, err)
}

func TestLocalStoreOpenMissingFile(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Open("does-not-exist.pdf")
	assert.Error(t, err)
}
