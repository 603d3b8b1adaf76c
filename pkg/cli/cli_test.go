package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv isolates HOME and the database environment, returning a DSN for
// a fresh SQLite file.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, key := range []string{"DB_DRIVER", "DATABASE_URL", "META_DB_PATH", "ENV", "LOG_FORMAT", "JWT_SECRET", "AUTH_ISSUER_URL"} {
		t.Setenv(key, "")
	}
	return filepath.Join(dir, "grid.sqlite")
}

// runCLI executes a fresh root command against dsn and returns stdout.
func runCLI(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	base := []string{"--dsn", dsn, "--env-file", filepath.Join(t.TempDir(), "missing.env")}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRunCLI(t *testing.T, dsn string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, dsn, args...)
	require.NoError(t, err, "gridctl %s", strings.Join(args, " "))
	return out
}

func decodeJSON(t *testing.T, s string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(s), v), s)
}

func TestMigrate(t *testing.T) {
	dsn := testEnv(t)

	out := mustRunCLI(t, dsn, "migrate", "--status")
	assert.Contains(t, out, "sqlite schema at version 0")

	out = mustRunCLI(t, dsn, "migrate")
	assert.Contains(t, out, "sqlite schema at version 1")

	var status map[string]any
	decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "migrate"), &status)
	assert.Equal(t, "sqlite", status["dialect"])
	assert.InDelta(t, 1, status["version"], 0)
}

func TestDatasetAndRecordLifecycle(t *testing.T) {
	dsn := testEnv(t)
	mustRunCLI(t, dsn, "migrate")

	var ds datasetView
	decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "datasets", "create",
		"--name", "books", "--title", "Book", "--plural-title", "Books",
		"--field", "author", "--field", "pages:INTEGER:Page count"), &ds)
	require.NotEmpty(t, ds.ID)
	assert.Regexp(t, `^ds_[0-9a-f]{32}$`, ds.TableName)

	names := make([]string, 0, len(ds.Fields))
	for _, f := range ds.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "title", "author", "pages"}, names)
	assert.Equal(t, "INTEGER", ds.Fields[3].Type)
	assert.Equal(t, "Page count", ds.Fields[3].Title)

	t.Run("list_and_get", func(t *testing.T) {
		out := mustRunCLI(t, dsn, "datasets", "list")
		assert.Contains(t, out, "NAME")
		assert.Contains(t, out, "books")

		out = mustRunCLI(t, dsn, "datasets", "get", ds.ID)
		assert.Contains(t, out, ds.TableName)
		assert.Contains(t, out, "Page count")
	})

	t.Run("update", func(t *testing.T) {
		var updated datasetView
		decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "datasets", "update", ds.ID, "--plural-title", "Library"), &updated)
		assert.Equal(t, "Library", updated.PluralTitle)
		assert.Equal(t, "Book", updated.Title)
		assert.Equal(t, ds.TableName, updated.TableName)
	})

	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "records", "create", ds.ID,
		"--data", `{"title":"1984","author":"Orwell","pages":328}`), &created)
	require.NotEmpty(t, created.ID)
	mustRunCLI(t, dsn, "records", "create", ds.ID, "--data", `{"title":"Dune","author":"Herbert"}`)

	t.Run("query", func(t *testing.T) {
		var res struct {
			Data []map[string]any `json:"data"`
			Meta struct {
				Count int `json:"count"`
			} `json:"meta"`
		}
		decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "records", "query", ds.ID,
			"--fields", "title,author", "--sort", "-title"), &res)
		require.Equal(t, 2, res.Meta.Count)
		assert.Equal(t, "Dune", res.Data[0]["title"])
		assert.Equal(t, "1984", res.Data[1]["title"])

		out := mustRunCLI(t, dsn, "records", "query", ds.ID,
			"--fields", "title", "--filter", `{"field":"author","value":"Orwell"}`)
		assert.Contains(t, out, "1984")
		assert.NotContains(t, out, "Dune")
	})

	t.Run("get_update_delete", func(t *testing.T) {
		out := mustRunCLI(t, dsn, "records", "get", ds.ID, created.ID)
		assert.Contains(t, out, "Orwell")

		out = mustRunCLI(t, dsn, "records", "update", ds.ID, created.ID, "--data", `{"author":"George Orwell"}`)
		assert.Contains(t, out, "1 record(s) updated")

		out = mustRunCLI(t, dsn, "records", "delete", ds.ID, created.ID)
		assert.Contains(t, out, "1 record(s) trashed")

		_, err := runCLI(t, dsn, "records", "get", ds.ID, created.ID)
		require.Error(t, err)
		assert.Equal(t, "NOT_FOUND", errorKind(err))

		var rec map[string]any
		decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "records", "get", ds.ID, created.ID, "--lookup"), &rec)
		assert.Equal(t, "George Orwell", rec["author"])

		_, err = runCLI(t, dsn, "records", "delete", ds.ID, created.ID, "--force")
		require.Error(t, err)
		assert.Equal(t, "INVALID_ARGUMENT", errorKind(err))
	})

	t.Run("delete_dataset", func(t *testing.T) {
		out := mustRunCLI(t, dsn, "datasets", "delete", ds.ID, "--yes")
		assert.Contains(t, out, `Dataset "books" deleted`)

		var all []datasetView
		decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "datasets", "list"), &all)
		assert.Empty(t, all)
	})
}

func TestDatasetsDelete_RequiresConfirmation(t *testing.T) {
	if IsStdinTTY() {
		t.Skip("stdin is a terminal")
	}
	dsn := testEnv(t)
	mustRunCLI(t, dsn, "migrate")

	var ds datasetView
	decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "datasets", "create", "--name", "notes"), &ds)

	_, err := runCLI(t, dsn, "datasets", "delete", ds.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	mustRunCLI(t, dsn, "datasets", "get", ds.ID)
}

const booksYAML = `name: books
title: Book
pluralTitle: Books
fields:
  - name: author
    type: STRING
    title: Author
  - name: pages
    type: integer
---
name: notes
`

func TestDatasetsApply(t *testing.T) {
	dsn := testEnv(t)
	mustRunCLI(t, dsn, "migrate")

	dir := t.TempDir()
	file := filepath.Join(dir, "datasets.yaml")
	require.NoError(t, os.WriteFile(file, []byte(booksYAML), 0o600))

	var actions []applyAction
	decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "datasets", "apply", "--dry-run", "-f", file), &actions)
	require.Len(t, actions, 2)
	assert.Equal(t, "create", actions[0].Action)
	assert.Empty(t, actions[0].DatasetID)

	var all []datasetView
	decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "datasets", "list"), &all)
	assert.Empty(t, all, "dry run must not create datasets")

	decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "datasets", "apply", "-f", file), &actions)
	require.Len(t, actions, 2)
	assert.Equal(t, "create", actions[0].Action)
	assert.Equal(t, "books", actions[0].Name)
	assert.NotEmpty(t, actions[0].DatasetID)
	assert.Equal(t, "create", actions[1].Action)

	decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "datasets", "apply", "-f", file), &actions)
	assert.Equal(t, "unchanged", actions[0].Action)
	assert.Equal(t, "unchanged", actions[1].Action)

	retitled := strings.Replace(booksYAML, "pluralTitle: Books", "pluralTitle: Library", 1)
	require.NoError(t, os.WriteFile(file, []byte(retitled), 0o600))
	decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "datasets", "apply", "-f", file), &actions)
	assert.Equal(t, "update", actions[0].Action)

	var books datasetView
	decodeJSON(t, mustRunCLI(t, dsn, "-o", "json", "datasets", "get", actions[0].DatasetID), &books)
	assert.Equal(t, "Library", books.PluralTitle)

	added := strings.Replace(booksYAML, "---", "  - name: isbn\n---", 1)
	require.NoError(t, os.WriteFile(file, []byte(added), 0o600))
	_, err := runCLI(t, dsn, "datasets", "apply", "-f", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "isbn" cannot be added`)
}

func TestLoadDefinitions(t *testing.T) {
	t.Run("multiple_documents", func(t *testing.T) {
		defs, err := loadDefinitions(strings.NewReader(booksYAML))
		require.NoError(t, err)
		require.Len(t, defs, 2)
		assert.Equal(t, "books", defs[0].Name)
		require.Len(t, defs[0].Fields, 2)
		assert.Equal(t, "Author", defs[0].Fields[0].Title)
		assert.Equal(t, "notes", defs[1].Name)
	})

	t.Run("unknown_key", func(t *testing.T) {
		_, err := loadDefinitions(strings.NewReader("name: books\ncolumns: []\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "columns")
	})

	t.Run("empty", func(t *testing.T) {
		defs, err := loadDefinitions(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, defs)
	})
}

func TestParseFieldFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantTyp string
		title   string
		wantErr bool
	}{
		{in: "author", want: "author"},
		{in: "pages:integer", want: "pages", wantTyp: "INTEGER"},
		{in: "price:FLOAT:Unit price", want: "price", wantTyp: "FLOAT", title: "Unit price"},
		{in: ":STRING", wantErr: true},
		{in: "x:DATE", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			spec, err := parseFieldFlag(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.Name)
			assert.Equal(t, tt.wantTyp, string(spec.Type))
			assert.Equal(t, tt.title, spec.Title)
		})
	}
}

func TestRootCmd_OutputFormat(t *testing.T) {
	dsn := testEnv(t)
	_, err := runCLI(t, dsn, "-o", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")

	out := mustRunCLI(t, dsn, "version")
	assert.Contains(t, out, "gridctl version dev")
}

func TestRecordColumns(t *testing.T) {
	cols := recordColumns(map[string]any{"title": "x", "id": "1", "author": "y"})
	assert.Equal(t, []string{"id", "author", "title"}, cols)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, `{"k":"v"}`, formatValue(map[string]any{"k": "v"}))
	assert.Equal(t, `["a","b"]`, formatValue([]any{"a", "b"}))
	assert.Equal(t, "42", formatValue(int64(42)))
}
