package astfmt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/argbind/pkgs/ast"
	"github.com/aledsdavies/argbind/pkgs/parser"
)

const sample = "deploy -Name 'a b' -Tags x,y -Labels @{a=1; b=@(1, $true)} -Force:$false -Note $null"

func mustParse(t *testing.T, input string) *ast.NodeSequence {
	t.Helper()
	seq, err := parser.ParseString(input)
	require.NoError(t, err)
	return seq
}

func TestRoundTrip(t *testing.T) {
	seq := mustParse(t, sample)

	for _, f := range []Format{FormatJSON, FormatYAML, FormatCBOR} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, seq, f))

			got, err := Decode(&buf, f)
			require.NoError(t, err)
			if diff := cmp.Diff(seq, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDocumentShape(t *testing.T) {
	doc := FromSequence(mustParse(t, "-a 1,2"))

	want := &Document{
		Version: Version,
		Input:   "-a 1,2",
		Nodes: []*Node{
			{Kind: "parameter_name", Start: 0, End: 2, Name: "a"},
			{Kind: "sequence", Start: 3, End: 6, Implicit: true, Elements: []*Node{
				{Kind: "literal", Start: 3, End: 4, Type: "numeric", Text: "1"},
				{Kind: "literal", Start: 5, End: 6, Type: "numeric", Text: "2"},
			}},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestHash(t *testing.T) {
	a, err := Hash(mustParse(t, sample))
	require.NoError(t, err)
	b, err := Hash(mustParse(t, sample))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Hash(mustParse(t, "-Name x"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	// spans are part of the document, so spacing changes the hash
	d, err := Hash(mustParse(t, "-Name  x"))
	require.NoError(t, err)
	assert.NotEqual(t, c, d)
}

func TestMarshalBinaryDeterministic(t *testing.T) {
	doc := FromSequence(mustParse(t, sample))
	first, err := doc.MarshalBinary()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := doc.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		message string
	}{
		{"version", `{"version": 2, "input": "", "nodes": []}`, "unsupported document version"},
		{"unknown_kind", `{"version": 1, "input": "x", "nodes": [{"kind": "pipe", "start": 0, "end": 1}]}`, `unknown node kind "pipe"`},
		{"span", `{"version": 1, "input": "x", "nodes": [{"kind": "literal", "type": "string", "start": 0, "end": 5}]}`, "outside input"},
		{"literal_type", `{"version": 1, "input": "x", "nodes": [{"kind": "literal", "type": "date", "start": 0, "end": 1}]}`, "unknown literal type"},
		{"switch_value", `{"version": 1, "input": "-x", "nodes": [{"kind": "switch_parameter", "name": "x", "start": 0, "end": 2}]}`, "missing node"},
		{"unknown_field", `{"version": 1, "input": "", "nodes": [], "extra": true}`, "unknown field"},
		{"syntax", `{"version": 1,`, "decode json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.json), FormatJSON)
			assert.ErrorContains(t, err, tt.message)
		})
	}
}

func TestDecodeText(t *testing.T) {
	_, err := Decode(strings.NewReader(""), FormatText)
	assert.ErrorContains(t, err, "cannot decode")
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, mustParse(t, "-a 1,2 -b:$true @{k='v'}")))

	want := `parameter_name -a [0:2] "-a"
sequence (implicit) [3:6] "1,2"
  literal numeric 1 [3:4] "1"
  literal numeric 2 [5:6] "2"
switch_parameter -b [7:15] "-b:$true"
  value: literal boolean $true [10:15] "$true"
associative_array [16:24] "@{k='v'}"
  key: literal string 'k' [18:19] "k"
  value: literal string 'v' [20:23] "'v'"
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.ErrorContains(t, err, `unknown format "xml"`)
}
