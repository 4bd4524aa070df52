package program

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/example/refsim/internal/simerr"
)

// Decode reads a Program from its JSON wire encoding, the format the
// surface DSL's (out-of-scope) parser is expected to emit. Syntax and
// type errors are translated to simerr.ParseError with a line/column
// computed from the JSON decoder's byte offset, matching the
// `(line L, col C): message` format the command-line surface prints.
func Decode(r io.Reader) (Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Program{}, fmt.Errorf("program: read input: %w", err)
	}

	var prog Program
	if err := json.Unmarshal(data, &prog); err != nil {
		return Program{}, toParseError(data, err)
	}
	return prog, nil
}

func toParseError(data []byte, err error) error {
	var offset int64
	msg := err.Error()

	switch e := err.(type) {
	case *json.SyntaxError:
		offset = e.Offset
	case *json.UnmarshalTypeError:
		offset = e.Offset
		msg = fmt.Sprintf("cannot decode %s as %s (field %s)", e.Value, e.Type, e.Field)
	}

	line, col := lineCol(data, offset)
	return &simerr.ParseError{Line: line, Column: col, Message: msg}
}

// lineCol converts a byte offset into a 1-based (line, column) pair.
func lineCol(data []byte, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	head := data[:offset]
	line := bytes.Count(head, []byte{'\n'}) + 1
	col := len(head) - bytes.LastIndexByte(head, '\n')
	return line, col
}
