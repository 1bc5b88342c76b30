package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalProvider {
	t.Helper()
	provider, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	return provider
}

func TestLocalSaveAndRead(t *testing.T) {
	provider := newLocal(t)
	ctx := context.Background()

	size, err := provider.Save(ctx, "scan.png", strings.NewReader("fake png bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(14), size)

	data, err := provider.Read(ctx, "scan.png")
	require.NoError(t, err)
	assert.Equal(t, "fake png bytes", string(data))
}

func TestLocalSaveOverwrites(t *testing.T) {
	provider := newLocal(t)
	ctx := context.Background()

	_, err := provider.Save(ctx, "scan.png", strings.NewReader("first version"))
	require.NoError(t, err)

	size, err := provider.Save(ctx, "scan.png", strings.NewReader("second"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), size)

	data, err := provider.Read(ctx, "scan.png")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data), "last write wins")
}

func TestLocalExists(t *testing.T) {
	provider := newLocal(t)
	ctx := context.Background()

	ok, err := provider.Exists(ctx, "scan.png")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = provider.Save(ctx, "scan.png", strings.NewReader("x"))
	require.NoError(t, err)

	ok, err = provider.Exists(ctx, "scan.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalDelete(t *testing.T) {
	provider := newLocal(t)
	ctx := context.Background()

	_, err := provider.Save(ctx, "scan.png", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, provider.Delete(ctx, "scan.png"))

	ok, err := provider.Exists(ctx, "scan.png")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent file is not an error
	assert.NoError(t, provider.Delete(ctx, "scan.png"))
}

func TestLocalReadMissingFile(t *testing.T) {
	provider := newLocal(t)

	_, err := provider.Read(context.Background(), "missing.png")
	assert.ErrorContains(t, err, "file not found")
}

func TestLocalRejectsPathEscape(t *testing.T) {
	base := t.TempDir()
	provider, err := NewLocalProvider(base)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = provider.Save(ctx, "../../etc/passwd", strings.NewReader("nope"))
	if err == nil {
		// Base-name resolution keeps the file inside the store
		_, statErr := os.Stat(filepath.Join(base, "passwd"))
		assert.NoError(t, statErr)
	}

	_, err = provider.Save(ctx, "..", strings.NewReader("nope"))
	assert.Error(t, err)
}
