package epcis

import (
	"errors"
	"strings"
)

// ErrDocumentShape is returned when the document envelope leading to the
// event list is missing.
var ErrDocumentShape = errors.New("epcis: unexpected document shape")

// ShapeError reports the envelope path that could not be resolved.
type ShapeError struct {
	// Path is the envelope path up to and including the missing element.
	Path []string
}

func (e *ShapeError) Error() string {
	return "missing " + strings.Join(e.Path, "/")
}

// Unwrap lets errors.Is match ErrDocumentShape.
func (e *ShapeError) Unwrap() error {
	return ErrDocumentShape
}

// Stages reported by ParseError.
const (
	StageXML      = "xml"
	StageEnvelope = "envelope"
)

// ParseError wraps a fatal failure with the stage at which it happened.
// Field-level problems never produce a ParseError.
type ParseError struct {
	Stage string
	Err   error
}

func (e *ParseError) Error() string {
	return "epcis: " + e.Stage + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// fieldError describes a field that was present but could not be mapped.
// It never leaves the package; the mapper logs it and substitutes a default.
type fieldError struct {
	field  string
	reason string
}

func (e *fieldError) Error() string {
	return e.field + ": " + e.reason
}
