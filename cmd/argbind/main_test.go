package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/argbind/internal/descfile"
	"github.com/aledsdavies/argbind/pkgs/astfmt"
	"github.com/aledsdavies/argbind/pkgs/params"
	"github.com/aledsdavies/argbind/pkgs/parser"
)

const descriptor = `
sets:
  - name: Copy
    command: copy
    parameters:
      - name: Source
        position: 0
        required: true
      - name: Destination
        position: 1
        required: true
      - name: Force
        type: switch
      - name: Retries
        type: int
        default: 2
        maximum: 5
      - name: Timeout
        type: duration
        default: 90s
  - name: Help
    command: copy
    parameters:
      - name: "?"
        type: switch
        required: true
`

func writeDescriptor(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestTokens(t *testing.T) {
	code, stdout, stderr := runCLI(t, "tokens", "--", "-Name", "'a b'")
	require.Equal(t, ExitSuccess, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `PARAMETER_NAME("Name")@0+5`, lines[0])
	assert.Equal(t, `STRING("a b")@6+5`, lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "EOF"), lines[2])
}

func TestTokensLexicalError(t *testing.T) {
	code, _, stderr := runCLI(t, "tokens", "--", "'abc")
	assert.Equal(t, ExitParseError, code)
	assert.Contains(t, stderr, "Error: ")
}

func TestParseFormats(t *testing.T) {
	want, err := parser.ParseString("-a 1,2 -b:$true")
	require.NoError(t, err)

	for _, f := range []astfmt.Format{astfmt.FormatJSON, astfmt.FormatYAML, astfmt.FormatCBOR} {
		t.Run(string(f), func(t *testing.T) {
			code, stdout, stderr := runCLI(t, "parse", "--format", string(f), "--", "-a", "1,2", "-b:$true")
			require.Equal(t, ExitSuccess, code, stderr)

			got, err := astfmt.Decode(strings.NewReader(stdout), f)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseText(t *testing.T) {
	code, stdout, _ := runCLI(t, "parse", "--", "-a", "1")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "parameter_name -a [0:2] \"-a\"\nliteral numeric 1 [3:4] \"1\"\n", stdout)
}

func TestParseHash(t *testing.T) {
	seq, err := parser.ParseString("copy -Force")
	require.NoError(t, err)
	sum, err := astfmt.Hash(seq)
	require.NoError(t, err)

	code, stdout, _ := runCLI(t, "parse", "--hash", "--", "copy", "-Force")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, hex.EncodeToString(sum[:])+"\n", stdout)
}

func TestParseErrors(t *testing.T) {
	code, _, stderr := runCLI(t, "parse", "--format", "xml", "--", "a")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, `unknown format "xml"`)
	assert.Contains(t, stderr, "Hint: ")

	code, _, stderr = runCLI(t, "parse", "--", "'abc")
	assert.Equal(t, ExitParseError, code)
	assert.Contains(t, stderr, "lexical error")
}

func TestResolveMatch(t *testing.T) {
	path := writeDescriptor(t, descriptor)

	code, stdout, stderr := runCLI(t, "resolve", "--sets", path, "--", "copy", "a.txt", "b.txt", "-f")
	require.Equal(t, ExitSuccess, code, stderr)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, map[string]any{
		"set": "Copy",
		"values": map[string]any{
			"Source":      "a.txt",
			"Destination": "b.txt",
			"Force":       true,
			"Retries":     2.0,
			"Timeout":     "1m30s",
		},
	}, got)
}

func TestResolveNoMatch(t *testing.T) {
	path := writeDescriptor(t, descriptor)

	code, stdout, stderr := runCLI(t, "resolve", "--sets", path, "--", "copy", "a.txt", "-Retries", "9")
	assert.Equal(t, ExitNoMatch, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error: no parameter set matched the command line")
	assert.Contains(t, stderr, "closest parameter set: Copy (copy)")
	assert.Contains(t, stderr, "missing required parameter -Destination")
	assert.Contains(t, stderr, "-Retries")
}

func TestResolveSeveralMatches(t *testing.T) {
	path := writeDescriptor(t, "sets:\n  - name: A\n  - name: B\n")

	code, _, stderr := runCLI(t, "resolve", "--sets", path)
	assert.Equal(t, ExitNoMatch, code)
	assert.Contains(t, stderr, "command line matches 2 parameter sets: A, B")
}

func TestResolveNoValidate(t *testing.T) {
	path := writeDescriptor(t, descriptor)

	code, stdout, stderr := runCLI(t, "resolve", "--sets", path, "--no-validate", "--", "copy", "a", "b", "-Retries", "9")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, `"Retries": 9`)
}

func TestResolveUsageErrors(t *testing.T) {
	code, _, stderr := runCLI(t, "resolve", "--", "copy")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, `required flag(s) "sets" not set`)

	code, _, stderr = runCLI(t, "resolve", "--sets", filepath.Join(t.TempDir(), "missing.yaml"), "--", "copy")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "missing.yaml")

	path := writeDescriptor(t, descriptor)
	code, _, stderr = runCLI(t, "resolve", "--sets", path, "--", "copy", "@(")
	assert.Equal(t, ExitParseError, code)
	assert.Contains(t, stderr, "Error: ")
}

// syncBuffer is a bytes.Buffer safe for the watch goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestResolveWatch(t *testing.T) {
	path := writeDescriptor(t, descriptor)

	var stdout, stderr syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"resolve", "--watch", "--sets", path, "--", "copy", "a", "b"}, &stdout, &stderr)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), `"set": "Copy"`)
	}, 5*time.Second, 10*time.Millisecond)

	// a descriptor that can no longer bind the line is reported, not fatal
	require.NoError(t, os.WriteFile(path, []byte("sets:\n  - name: Other\n    command: move\n"), 0o644))
	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "closest parameter set: Other (move)")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, ExitSuccess, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestSets(t *testing.T) {
	path := writeDescriptor(t, descriptor)

	code, stdout, stderr := runCLI(t, "sets", "--sets", path)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "type: duration")

	sets, err := descfile.Parse(strings.NewReader(stdout))
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "Help", sets[1].Name)
}

func TestSetsInvalid(t *testing.T) {
	path := writeDescriptor(t, "sets:\n  - name: A\n    parameters:\n      - name: X\n        type: date\n")

	code, _, stderr := runCLI(t, "sets", "--sets", path)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, `unknown type "date"`)
}

func TestDebugLogging(t *testing.T) {
	path := writeDescriptor(t, descriptor)

	code, _, stderr := runCLI(t, "--debug", "resolve", "--sets", path, "--", "copy", "a", "b")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, "msg=matched set=Copy")
}

func TestLogFile(t *testing.T) {
	descPath := writeDescriptor(t, descriptor)
	logPath := filepath.Join(t.TempDir(), "argbind.log")

	code, _, _ := runCLI(t, "--debug", "--log-file", logPath, "sets", "--sets", descPath)
	require.Equal(t, ExitSuccess, code)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"loaded descriptor"`)
}

func TestJSONValue(t *testing.T) {
	in := map[string]any{
		"Switch":   params.Switch(true),
		"Duration": 1500 * time.Millisecond,
		"Decimal":  *apd.New(150, -2),
		"Big":      new(big.Int).Lsh(big.NewInt(1), 70),
		"List":     []time.Duration{time.Second},
		"Nested":   map[string]any{"k": []int{1}},
		"Nil":      nil,
	}

	want := map[string]any{
		"Switch":   true,
		"Duration": "1.5s",
		"Decimal":  "1.50",
		"Big":      "1180591620717411303424",
		"List":     []any{"1s"},
		"Nested":   map[string]any{"k": []any{1}},
		"Nil":      nil,
	}
	assert.Equal(t, want, jsonValue(reflect.ValueOf(in)))
}

func TestExitCode(t *testing.T) {
	_, parseErr := parser.ParseString("'abc")
	require.Error(t, parseErr)

	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitFailure, exitCode(errors.New("boom")))
	assert.Equal(t, ExitParseError, exitCode(parseErr))
	assert.Equal(t, ExitNoMatch, exitCode(&exitError{code: ExitNoMatch, err: errors.New("x")}))
}
