package dgbdt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

var integerLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`) //nolint:gochecknoglobals // compiled once

// Decode parses an artifact regardless of its formatting and validates it.
// Every numeric literal must be a plain integer that fits in int64.
func Decode(data []byte) (*Model, error) {
	if !json.Valid(data) {
		return nil, formatErr("", "invalid JSON")
	}
	doc, err := scanLiterals(data)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(doc); err != nil {
		return nil, &FormatError{Reason: "schema: " + err.Error(), Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var m Model
	if err := dec.Decode(&m); err != nil {
		return nil, &FormatError{Reason: "decode: " + err.Error(), Err: err}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Encode returns the canonical bytes of m: object keys sorted ascending,
// two-space indentation, integer literals and a trailing newline.
func Encode(m *Model) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return append(out, '\n'), nil
}

// Canonicalize decodes data and returns its canonical encoding.
func Canonicalize(data []byte) ([]byte, error) {
	m, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Encode(m)
}

// IsCanonical reports whether data is byte-identical to the canonical encoding of m.
func IsCanonical(data []byte, m *Model) (bool, error) {
	want, err := Encode(m)
	if err != nil {
		return false, err
	}
	return bytes.Equal(data, want), nil
}

// scanLiterals walks every token, rejecting non-integer numbers, and returns
// the document decoded with json.Number leaves.
func scanLiterals(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &FormatError{Reason: "invalid JSON", Err: err}
		}
		n, ok := tok.(json.Number)
		if !ok {
			continue
		}
		if !integerLiteral.MatchString(n.String()) {
			return nil, formatErr("", "non-integer numeric literal %q at offset %d", n.String(), dec.InputOffset())
		}
		if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
			return nil, formatErr("", "integer literal %q out of range", n.String())
		}
	}

	dec = json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &FormatError{Reason: "invalid JSON", Err: err}
	}
	return doc, nil
}
