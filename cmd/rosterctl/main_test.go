package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roster/pkg/model"
)

const inputYAML = `
year: 2026
month: 2
shifts:
  - {code: D, start: "08:00", end: "16:00"}
  - {code: N, start: "00:00", end: "08:00", night: true}
staff:
  - {uid: a, name: 甲}
  - {uid: b, name: 乙}
  - {uid: c, name: 丙, requested_off: [3]}
  - {uid: d, name: 丁}
demand:
  base: {D: 1, N: 1}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.Execute()
	return out.String(), err
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.yaml")
	require.NoError(t, os.WriteFile(path, []byte(inputYAML), 0o644))
	return path
}

func TestGenerateScoreValidate(t *testing.T) {
	input := writeInput(t)
	out := filepath.Join(t.TempDir(), "grid.json")

	stdout, err := run(t, "generate", "-f", input, "--strategy", "v1,v3", "-o", out)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "v1")
	assert.Contains(t, stdout, "v3")
	assert.NotContains(t, stdout, "v2")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var file gridFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Len(t, file.Grid, 4)
	assert.Equal(t, model.CodeReqOff, file.Grid["c"][3])
	require.NotNil(t, file.Metrics)

	stdout, err = run(t, "score", "-f", input, "-g", out)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "fairness")

	stdout, err = run(t, "validate", "-f", input, "-g", out)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "✓")
}

func TestValidateRejectsBrokenGrid(t *testing.T) {
	input := writeInput(t)

	grid := model.Grid{"a": {}, "b": {}, "c": {}, "d": {}}
	for uid := range grid {
		for d := 1; d <= 28; d++ {
			grid[uid][d] = model.CodeOff
		}
	}
	for d := 1; d <= 8; d++ {
		grid["a"][d] = "D"
	}
	path := filepath.Join(t.TempDir(), "bare.json")
	require.NoError(t, writeJSON(path, grid))

	stdout, err := run(t, "validate", "-f", input, "-g", path)
	require.Error(t, err)
	assert.Contains(t, stdout, "max_consecutive_days")
}

func TestGenerateRequiresFile(t *testing.T) {
	_, err := run(t, "generate")
	assert.Error(t, err)
}

func TestRules(t *testing.T) {
	stdout, err := run(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, stdout, "min_rest_gap")
}
