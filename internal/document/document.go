// Package document reads JSON and YAML files into trees.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	airerrors "github.com/airset-dev/airset/internal/errors"
	"github.com/airset-dev/airset/pkg/tree"
	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Stdin is the path that reads a JSON document from standard input.
const Stdin = "-"

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	if path == Stdin {
		return FormatJSON, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", airerrors.New("E040").
		WithDetail(fmt.Sprintf("%s has no recognized extension.", path)).
		WithSuggestion("Rename the file to .json, .yaml or .yml")
}

// Load reads and decodes the document at path. "-" reads JSON from stdin.
func Load(path string) (tree.Value, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	var data []byte
	if path == Stdin {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		e := airerrors.New("E042").Wrap(err)
		if errors.Is(err, fs.ErrNotExist) {
			e.WithDetail(fmt.Sprintf("%s does not exist.", path))
		}
		return nil, e
	}

	v, err := Decode(data, format)
	if err != nil {
		var ae *airerrors.AirsetError
		if errors.As(err, &ae) && path != Stdin {
			ae.WithLocationFromError(path, ae.Wrapped)
		}
		return nil, err
	}
	return v, nil
}

// Decode parses data in the given format. JSON numbers keep their integer
// form, so 42 decodes to the same leaf in both formats.
func Decode(data []byte, format Format) (tree.Value, error) {
	var raw any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, decodeError(data, err)
		}
		if dec.More() {
			return nil, airerrors.New("E041").
				WithDetail("Unexpected data after the top-level JSON value.")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, airerrors.New("E041").Wrap(err)
		}
		raw = normalize(raw)
	default:
		return nil, airerrors.New("E040").WithDetail(fmt.Sprintf("Unknown format %q.", format))
	}
	return tree.FromAny(raw), nil
}

// Encode writes v as indented JSON.
func Encode(w io.Writer, v tree.Value) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tree.ToAny(v))
}

// decodeError turns a JSON syntax error offset into a line so that the
// error can point into the file.
func decodeError(data []byte, err error) error {
	e := airerrors.New("E041")
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		line, col := position(data, syntax.Offset)
		return e.Wrap(fmt.Errorf("line %d, column %d: %w", line, col, err))
	}
	var typ *json.UnmarshalTypeError
	if errors.As(err, &typ) {
		line, col := position(data, typ.Offset)
		return e.Wrap(fmt.Errorf("line %d, column %d: %w", line, col, err))
	}
	return e.Wrap(err)
}

func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line = bytes.Count(before, []byte("\n")) + 1
	col = int(offset) - bytes.LastIndexByte(before, '\n') - 1
	if col < 1 {
		col = 1
	}
	return line, col
}

// normalize rewrites YAML mappings with non-string keys into string-keyed
// maps.
func normalize(x any) any {
	switch v := x.(type) {
	case map[string]any:
		for k, item := range v {
			v[k] = normalize(item)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range v {
			v[i] = normalize(item)
		}
		return v
	case uint64:
		// yaml.v3 only yields uint64 for values beyond int64.
		return float64(v)
	}
	return x
}
