package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeQueryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadQueriesFirstColumnOnly(t *testing.T) {
	t.Parallel()

	path := writeQueryFile(t, "cats;extra;columns\ndogs;ignored\nbirds\n")

	queries, err := ReadQueries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cats", "dogs", "birds"}, queries)
}

func TestReadQueriesSkipsBlankRows(t *testing.T) {
	t.Parallel()

	path := writeQueryFile(t, "cats\n \ndogs\n;only second column\n")

	queries, err := ReadQueries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cats", "dogs"}, queries)
}

func TestReadQueriesPreservesOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	path := writeQueryFile(t, "zebra\napple\nzebra\n")

	queries, err := ReadQueries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"zebra", "apple", "zebra"}, queries)
}

func TestReadQueriesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ReadQueries(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestReadQueriesEmptyFile(t *testing.T) {
	t.Parallel()

	path := writeQueryFile(t, "")

	queries, err := ReadQueries(path)
	require.NoError(t, err)
	assert.Empty(t, queries)
}
