package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned by DecodeRoutine for input that cannot be replayed.
var ErrMalformed = errors.New("malformed routine")

// Text is a string field of the portable record. It also accepts JSON numbers
// (kept as their literal text) and null (read as empty), and always encodes as
// a JSON string.
type Text string

func (t Text) String() string { return string(t) }

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*t = Text(n.String())
	return nil
}

// EncodeRoutine renders r as indented JSON with a fixed key order. Nil slices
// are written as empty arrays so that decoding and re-encoding is stable.
func EncodeRoutine(r *Routine) ([]byte, error) {
	out := Routine{Title: r.Title, Exercises: make([]Exercise, len(r.Exercises))}
	for i, ex := range r.Exercises {
		if ex.Sets == nil {
			ex.Sets = []SetEntry{}
		}
		out.Exercises[i] = ex
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encoding routine: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeRoutine parses portable text. Anything that is not a JSON object with
// an "exercises" array, or that names an exercise with an empty name, is
// rejected with ErrMalformed.
func DecodeRoutine(data []byte) (*Routine, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: paste routine JSON first", ErrMalformed)
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformed, err)
	}
	raw, ok := shape["exercises"]
	if !ok {
		return nil, fmt.Errorf("%w: JSON missing exercises array", ErrMalformed)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: exercises is not an array", ErrMalformed)
	}

	var r Routine
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for i := range r.Exercises {
		if strings.TrimSpace(r.Exercises[i].Name) == "" {
			return nil, fmt.Errorf("%w: exercise %d has no name", ErrMalformed, i+1)
		}
		if r.Exercises[i].Sets == nil {
			r.Exercises[i].Sets = []SetEntry{}
		}
	}
	return &r, nil
}
