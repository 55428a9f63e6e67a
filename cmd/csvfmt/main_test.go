package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/csvstream"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const jsonl = `{"b":1,"a":null}
{"a":"x, y","c":[1, 2]}
`

func TestRun(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		stdin string
		args  []string
		want  string
	}{
		"first row columns": {
			stdin: jsonl,
			want:  "b,a\n1,(null)\n(missing),\"x, y\"\n",
		},
		"no header": {
			stdin: jsonl,
			args:  []string{"--no-header"},
			want:  "1,(null)\n\"x, y\",\"[1,2]\"\n",
		},
		"array input": {
			stdin: `[{"n":1.50},{"n":true}]`,
			want:  "n\n1.50\ntrue\n",
		},
		"explicit columns": {
			stdin: jsonl,
			args:  []string{"--columns", "c,b", "--missing", "-"},
			want:  "c,b\n-,1\n\"[1,2]\",-\n",
		},
		"custom characters": {
			stdin: `{"a":"p;q","b":"it's"}`,
			args:  []string{"--delimiter", ";", "--enclosure", "'", "--null", "NULL"},
			want:  "a;b\n'p;q';'it''s'\n",
		},
		"empty input": {
			stdin: "",
			want:  "",
		},
		"spill": {
			stdin: jsonl,
			args:  []string{"--max-memory", "1", "--temp-dir", ""},
			want:  "b,a\n1,(null)\n(missing),\"x, y\"\n",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			out, err := execute(t, tc.stdin, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestRunCheckAllRowsFromFile(t *testing.T) {
	t.Parallel()
	path := writeFile(t, jsonl)
	out, err := execute(t, "", "--check-all-rows", path)
	require.NoError(t, err)
	assert.Equal(t, "b,a,c\n1,(null),(missing)\n(missing),\"x, y\",\"[1,2]\"\n", out)
}

func TestRunCheckAllRowsNeedsFile(t *testing.T) {
	t.Parallel()
	_, err := execute(t, jsonl, "--check-all-rows")
	assert.Error(t, err)
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "csv.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("delimiter: \"|\"\nnull_value: \"\"\n"), 0o600))

	out, err := execute(t, jsonl, "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "b|a\n1|\n(missing)|x, y\n", out)

	out, err = execute(t, jsonl, "--config", cfgPath, "--delimiter", ";")
	require.NoError(t, err)
	assert.Equal(t, "b;a\n1;\n(missing);x, y\n", out)
}

func TestRunErrors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		stdin string
		args  []string
	}{
		"bad json":        {stdin: `{"a":`},
		"not an object":   {stdin: `1`},
		"bad delimiter":   {stdin: jsonl, args: []string{"--delimiter", "ab"}},
		"bad log level":   {stdin: jsonl, args: []string{"--log-level", "loud"}},
		"missing file":    {args: []string{"/does/not/exist.jsonl"}},
		"too many args":   {args: []string{"a", "b"}},
		"missing config":  {stdin: jsonl, args: []string{"--config", "/does/not/exist.yaml"}},
		"mixed row types": {stdin: `[{"a":1},[1]]`},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			out, err := execute(t, tc.stdin, tc.args...)
			assert.Error(t, err)
			assert.Empty(t, out)
		})
	}
}

func TestDecodeRowsKeepsOrder(t *testing.T) {
	t.Parallel()
	var rows []csvstream.Record
	for v, err := range decodeRows(strings.NewReader(`{"z":1,"m":{"k": "v"},"a":"s"} {"y":false}`)) {
		require.NoError(t, err)
		rows = append(rows, v.(csvstream.Record))
	}
	require.Len(t, rows, 2)
	assert.Equal(t, csvstream.Record{
		{Key: "z", Value: "1"},
		{Key: "m", Value: `{"k":"v"}`},
		{Key: "a", Value: "s"},
	}, rows[0])
	assert.Equal(t, csvstream.Record{{Key: "y", Value: "false"}}, rows[1])
}

func TestCancelable(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got error
	for _, err := range cancelable(ctx, decodeRows(strings.NewReader(jsonl))) {
		got = err
	}
	assert.True(t, errors.Is(got, context.Canceled))
}
