package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swatch-db/csv-validate/pkg/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) (schemaPath, csvPath string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CSVALIDATE_MAX_FAILS", "")
	t.Setenv("CSVALIDATE_PROCESSES", "")
	t.Setenv("CSVALIDATE_CHUNK_SIZE", "")
	t.Setenv("LOG_LEVEL", "error")

	schemaPath = filepath.Join(dir, "schema.json")
	csvPath = filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{
		"properties": {
			"id":   {"type": "string", "pattern": "^[0-9]+$"},
			"temp": {"type": "number", "minimum": -50, "maximum": 50}
		},
		"required": ["id", "temp"]
	}`), 0o644))
	require.NoError(t, os.WriteFile(csvPath, []byte("id,temp\n1,10\n2,20\nabc,30\n4,100\n5,-5\n"), 0o644))
	return schemaPath, csvPath
}

func TestCLICompleted(t *testing.T) {
	schemaPath, csvPath := setup(t)

	out, err := execute(t, "--schema-path", schemaPath, "--processes", "2", "--max-fails", "5", csvPath)
	require.NoError(t, err)
	require.Equal(t, 0, model.ExitCode(err))
	require.Equal(t, 2, strings.Count(out, "row: "))
	require.Contains(t, out, "Exit Condition: Completed (5 rows validated, 2 failures)")
}

func TestCLIMaxFails(t *testing.T) {
	schemaPath, csvPath := setup(t)

	out, err := execute(t, "--schema-path", schemaPath, "--max-fails", "1", "--chunk-size", "2", csvPath)
	require.ErrorIs(t, err, model.ErrQuotaExceeded)
	require.Equal(t, 1, model.ExitCode(err))
	require.Contains(t, out, "Exit Condition: Max failures reached")
}

func TestCLIConfigErrors(t *testing.T) {
	schemaPath, csvPath := setup(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing schema flag", []string{csvPath}},
		{"missing csv argument", []string{"--schema-path", schemaPath}},
		{"csv does not exist", []string{"--schema-path", schemaPath, csvPath + ".missing"}},
		{"bad processes", []string{"--schema-path", schemaPath, "--processes", "0", csvPath}},
		{"unknown flag", []string{"--schema-path", schemaPath, "--bogus", csvPath}},
		{"non-numeric flag", []string{"--schema-path", schemaPath, "--max-fails", "many", csvPath}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			require.Equal(t, 2, model.ExitCode(err), err.Error())
		})
	}
}
