package local

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/searchops/serp-harvester/internal/serp"
)

func testDocument() serp.Document {
	return serp.Document{
		Query: "cats & dogs",
		Pages: []serp.PageResult{
			{
				Page: 1,
				Results: []serp.ResultRecord{{
					Title:       "Kätzchen & Hündchen",
					Link:        "https://pets.example/a?x=1&y=2",
					Description: "Résumé of <b>pets</b>",
					FaviconPath: "https://www.google.com/s2/favicons?domain=pets.example",
					Keyword:     "cats & dogs",
				}},
			},
			{Page: 2, Results: []serp.ResultRecord{}},
		},
	}
}

func TestNewRequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, zap.NewNop())
	require.Error(t, err)
}

func TestNewCreatesBaseDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "results")
	_, err := New(Config{BaseDir: dir}, zap.NewNop())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStoreWritesDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := New(Config{BaseDir: dir}, zap.NewNop())
	require.NoError(t, err)

	records, err := sink.Store(context.Background(), "cats__dogs", testDocument())
	require.NoError(t, err)
	assert.Equal(t, 1, records)

	data, err := os.ReadFile(filepath.Join(dir, "cats__dogs.json"))
	require.NoError(t, err)

	var doc serp.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "cats & dogs", doc.Query)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, "Kätzchen & Hündchen", doc.Pages[0].Results[0].Title)
}

func TestStorePreservesTextVerbatim(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := New(Config{BaseDir: dir}, zap.NewNop())
	require.NoError(t, err)

	_, err = sink.Store(context.Background(), "cats__dogs", testDocument())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "cats__dogs.json"))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "Kätzchen & Hündchen", "non-ASCII and ampersands must not be escaped")
	assert.Contains(t, text, "Résumé of <b>pets</b>", "angle brackets must not be escaped")
	assert.NotContains(t, text, `\u0026`)
	assert.NotContains(t, text, `\u003c`)
	assert.True(t, strings.Contains(text, "    \"page\""), "output must be indented")
}

func TestStoreOverwritesSameKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := New(Config{BaseDir: dir}, zap.NewNop())
	require.NoError(t, err)

	first := serp.Document{Query: "cats", Pages: []serp.PageResult{{Page: 1, Results: make([]serp.ResultRecord, 2)}}}
	second := serp.Document{Query: "cats", Pages: []serp.PageResult{{Page: 1, Results: []serp.ResultRecord{}}}}

	_, err = sink.Store(context.Background(), "cats", first)
	require.NoError(t, err)
	_, err = sink.Store(context.Background(), "cats", second)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "cats.json"))
	require.NoError(t, err)

	var doc serp.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 0, doc.RecordCount())
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	sink, err := New(Config{BaseDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)

	_, err = sink.Store(context.Background(), "  ", testDocument())
	require.Error(t, err)
}

func TestStoreHonorsFinishedContext(t *testing.T) {
	t.Parallel()

	sink, err := New(Config{BaseDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sink.Store(ctx, "cats", testDocument())
	require.Error(t, err)
}
