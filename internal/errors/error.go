package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
)

// Category is the area an error belongs to.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryCLI     Category = "cli"
	CategoryPublish Category = "publish"
)

// Location points into a file, usually a configuration file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// String returns the location as file:line[:column].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// PulseError is a structured error with an optional file location and a
// fix suggestion.
type PulseError struct {
	// Code is the registered identifier (e.g., "P101").
	Code string

	Category Category
	Message  string

	// Detail is a longer explanation.
	Detail string

	Location *Location

	// Context holds the lines around Location.
	Context []string

	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *PulseError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *PulseError) Unwrap() error {
	return e.Wrapped
}

// WithLocation points the error at file:line and reads the lines around it.
func (e *PulseError) WithLocation(file string, line, column int) *PulseError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion.
func (e *PulseError) WithSuggestion(s string) *PulseError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the template explanation.
func (e *PulseError) WithDetail(d string) *PulseError {
	e.Detail = d
	return e
}

// Wrap records the underlying cause.
func (e *PulseError) Wrap(err error) *PulseError {
	e.Wrapped = err
	return e
}

// readContextLines returns up to size lines centered on target.
func readContextLines(filename string, target, size int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	n := 0
	first := target - size/2
	last := target + size/2
	for scanner.Scan() {
		n++
		if n >= first && n <= last {
			lines = append(lines, scanner.Text())
		}
		if n > last {
			break
		}
	}
	return lines
}

// New creates a PulseError from a registered code.
func New(code string) *PulseError {
	tmpl, ok := registry[code]
	if !ok {
		return &PulseError{Code: code, Message: "Unknown error"}
	}
	return &PulseError{
		Code:     code,
		Category: tmpl.Category,
		Message:  tmpl.Message,
		Detail:   tmpl.Detail,
	}
}

// Newf creates an uncoded error with a formatted message.
func Newf(category Category, format string, args ...any) *PulseError {
	return &PulseError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError returns err as a PulseError, wrapping it under code unless it
// already carries one.
func FromError(err error, code string) *PulseError {
	if err == nil {
		return nil
	}
	var pe *PulseError
	if stderrors.As(err, &pe) {
		return pe
	}
	return New(code).Wrap(err)
}
