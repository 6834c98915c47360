package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const layout = `
report "r" {
  detail "d" {
    field "n" { value = row.n * 2 }
  }
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_WritesEventStream(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "layout.hcl", layout)

	dbPath := filepath.Join(dir, "data.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE t (n INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t VALUES (1), (2)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	err = run(context.Background(), out, logs, []string{"-dsn", dbPath, "-query", "SELECT n FROM t", layoutPath})
	require.NoError(t, err)

	var values []any
	dec := yaml.NewDecoder(strings.NewReader(out.String()))
	for {
		var doc struct {
			Event      string `yaml:"event"`
			Attributes []struct {
				Name  string `yaml:"name"`
				Value any    `yaml:"value"`
			} `yaml:"attributes"`
		}
		if err := dec.Decode(&doc); err != nil {
			break
		}
		for _, a := range doc.Attributes {
			if doc.Event == "start" && a.Name == "value" {
				values = append(values, a.Value)
			}
		}
	}
	require.Equal(t, []any{"2", "4"}, values)
	require.Contains(t, logs.String(), "Report run finished.")
}

func TestRun_OutputFile(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "layout.hcl", `report "empty" {}`)
	outPath := filepath.Join(dir, "events.yaml")

	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-out", outPath, layoutPath})
	require.NoError(t, err)
	require.Empty(t, out.String())

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(written), "empty")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_InvalidLayout(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "broken.hcl", `report "r" {`)
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{path})

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse")
}
