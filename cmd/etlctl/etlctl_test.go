package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/etl/internal/core"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOST_STORE", "memory")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "computers.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImport_DryRun(t *testing.T) {
	path := writeCSV(t, "name,serial\npc-01,ab 12\npc-02,cd34\n")

	out, err := execute(t, "import", "--plan", "Computer", "--file", path, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "File: computers.csv")
	assert.Contains(t, out, "Dry run: nothing was stored.")
	assert.Contains(t, out, core.SuccessMessage)
}

func TestImport_FailedRowsReturnError(t *testing.T) {
	path := writeCSV(t, "name,serial\npc-01,ab12\n,cd34\n")

	out, err := execute(t, "import", "--plan", "Computer", "--file", path, "--dry-run")
	require.Error(t, err)

	assert.EqualError(t, err, "1 row(s) failed")
	assert.Contains(t, out, "Row 1:")
	assert.NotContains(t, out, "Row 0:")
}

func TestImport_UnknownPlan(t *testing.T) {
	path := writeCSV(t, "name\npc-01\n")

	_, err := execute(t, "import", "--plan", "Spaceship", "--file", path, "--dry-run")
	require.Error(t, err)
}

func TestImport_DeniedProfile(t *testing.T) {
	path := writeCSV(t, "name\npc-01\n")

	_, err := execute(t, "import", "--plan", "Computer", "--file", path, "--dry-run", "--profile", "observer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestImport_RequiresFlags(t *testing.T) {
	_, err := execute(t, "import", "--plan", "Computer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestItemTypes_ListsBuiltins(t *testing.T) {
	t.Setenv("HOST_ITEMTYPES_PATH", "")

	out, err := execute(t, "itemtypes")
	require.NoError(t, err)

	assert.Contains(t, out, "GROUP")
	assert.Contains(t, out, "Computer")
	assert.Contains(t, out, "Administration")
}

func TestMigrateStatus_NeedsPostgres(t *testing.T) {
	_, err := execute(t, "migrate", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOST_STORE=memory")
}
