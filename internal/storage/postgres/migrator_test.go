package postgres

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreOrderedPairs(t *testing.T) {
	src, err := migrationSource()
	require.NoError(t, err)
	defer src.Close()

	var versions []uint
	version, err := src.First()
	require.NoError(t, err)
	for {
		versions = append(versions, version)

		up, _, err := src.ReadUp(version)
		require.NoError(t, err, "up migration for %d", version)
		body, err := io.ReadAll(up)
		require.NoError(t, err)
		require.NotEmpty(t, body)
		_ = up.Close()

		down, _, err := src.ReadDown(version)
		require.NoError(t, err, "down migration for %d", version)
		_ = down.Close()

		next, err := src.Next(version)
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, fs.ErrNotExist) {
			break
		}
		require.NoError(t, err)
		require.Greater(t, next, version)
		version = next
	}

	require.Equal(t, []uint{1, 2, 3, 4, 5}, versions)
}
