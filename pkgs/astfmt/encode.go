package astfmt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/aledsdavies/argbind/pkgs/ast"
)

// Format selects an encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatCBOR}

// ParseFormat returns the format named s.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// MaxDocumentSize bounds the input accepted by Decode.
const MaxDocumentSize = 16 << 20

// Encode writes seq to w in format f.
func Encode(w io.Writer, seq *ast.NodeSequence, f Format) error {
	if f == FormatText {
		return Fprint(w, seq)
	}

	doc := FromSequence(seq)
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatCBOR:
		data, err := doc.MarshalBinary()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("cannot encode format %q", f)
	}
}

// Decode reads a document in format f and rebuilds the AST. The text
// format is output only.
func Decode(r io.Reader, f Format) (*ast.NodeSequence, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxDocumentSize)
	}

	var doc Document
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
	case FormatCBOR:
		err = cbor.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("cannot decode format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f, err)
	}
	return doc.Sequence()
}

// MarshalBinary produces the deterministic CBOR encoding of the document.
func (d *Document) MarshalBinary() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	// the alias keeps cbor from calling MarshalBinary again
	type documentAlias Document
	data, err := encMode.Marshal((*documentAlias)(d))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Hash returns the BLAKE2b-256 digest of the canonical CBOR encoding of
// seq. Equal inputs parse to equal hashes.
func Hash(seq *ast.NodeSequence) ([32]byte, error) {
	data, err := FromSequence(seq).MarshalBinary()
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(data), nil
}

// Fprint writes an indented tree of seq, one node per line.
func Fprint(w io.Writer, seq *ast.NodeSequence) error {
	var b strings.Builder
	for _, n := range seq.Nodes {
		printNode(&b, seq, n, 0, "")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func printNode(b *strings.Builder, seq *ast.NodeSequence, n ast.Node, depth int, label string) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(label)

	span := n.Span()
	switch v := n.(type) {
	case *ast.Literal:
		fmt.Fprintf(b, "literal %s %s", v.Type, v)
	case *ast.Sequence:
		b.WriteString("sequence")
		if v.Implicit {
			b.WriteString(" (implicit)")
		}
	case *ast.AssociativeArray:
		b.WriteString("associative_array")
	case *ast.ParameterName:
		fmt.Fprintf(b, "parameter_name %s", v)
	case *ast.SwitchParameter:
		fmt.Fprintf(b, "switch_parameter -%s", v.Name)
	}
	fmt.Fprintf(b, " [%d:%d] %q\n", span.Start, span.End, seq.Excerpt(n))

	switch v := n.(type) {
	case *ast.Sequence:
		for _, e := range v.Elements {
			printNode(b, seq, e, depth+1, "")
		}
	case *ast.AssociativeArray:
		for _, e := range v.Entries {
			printNode(b, seq, e.Key, depth+1, "key: ")
			printNode(b, seq, e.Value, depth+1, "value: ")
		}
	case *ast.SwitchParameter:
		printNode(b, seq, v.Value, depth+1, "value: ")
	}
}
