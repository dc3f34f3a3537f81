package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(FS(), "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"00001_create_items.sql", "00002_items_serial_index.sql"}, files)

	for _, name := range files {
		data, err := fs.ReadFile(FS(), name)
		require.NoError(t, err)

		s := string(data)
		up := strings.Index(s, "-- +goose Up")
		down := strings.Index(s, "-- +goose Down")
		assert.True(t, up >= 0 && down > up, "%s needs an Up section followed by a Down section", name)
	}
}

func TestItemsTableMatchesStore(t *testing.T) {
	data, err := fs.ReadFile(FS(), "00001_create_items.sql")
	require.NoError(t, err)

	for _, col := range []string{"id", "itemtype", "entities_id", "fields", "date_creation", "date_mod"} {
		assert.Contains(t, string(data), "\n    "+col+" ", "items.%s", col)
	}
}
