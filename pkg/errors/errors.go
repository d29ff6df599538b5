package errors

import (
	"fmt"
	"os"
	"strings"
)

// SmlError is the interface implemented by all errors produced by the
// compiler pipeline.
type SmlError interface {
	error // Embed the standard error interface
	Pos() Position
	Kind() string // e.g., "Syntax", "Definition", "Compile", "Runtime"
	// Message returns the specific error message without position info.
	// This might be useful if the caller wants to format the error differently.
	Message() string
	Unwrap() error // For error wrapping support (errors.Is/As)
}

// --- Concrete Error Types ---

// SyntaxError represents an error during lexing or parsing.
type SyntaxError struct {
	Position
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return "Syntax" }
func (e *SyntaxError) Message() string { return e.Msg }
func (e *SyntaxError) Unwrap() error   { return e.Cause }
func (e *SyntaxError) CausedBy(cause error) *SyntaxError {
	e.Cause = cause
	return e
}

// DefinitionError represents a reference to a variable that has no binding
// occurrence. It is reported by the renaming pass, before any code is
// generated.
type DefinitionError struct {
	Position
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("Definition Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *DefinitionError) Pos() Position   { return e.Position }
func (e *DefinitionError) Kind() string    { return "Definition" }
func (e *DefinitionError) Message() string { return e.Msg }
func (e *DefinitionError) Unwrap() error   { return e.Cause }
func (e *DefinitionError) CausedBy(cause error) *DefinitionError {
	e.Cause = cause
	return e
}

// CompileError represents an error during instruction generation or
// register allocation.
type CompileError struct {
	Position
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *CompileError) Error() string {
	// Compile errors might sometimes lack a precise position, but we include
	// it for consistency.
	return fmt.Sprintf("Compile Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *CompileError) Pos() Position   { return e.Position }
func (e *CompileError) Kind() string    { return "Compile" }
func (e *CompileError) Message() string { return e.Msg }
func (e *CompileError) Unwrap() error   { return e.Cause }
func (e *CompileError) CausedBy(cause error) *CompileError {
	e.Cause = cause
	return e
}

// RuntimeError represents an error during program execution on the abstract
// machine (arithmetic faults, bad memory accesses, unknown names).
type RuntimeError struct {
	// Position is usually less precise for runtime errors: the machine does
	// not track source locations, so this often points at the start of the
	// program. We still store it.
	Position
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("Runtime Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *RuntimeError) Pos() Position   { return e.Position }
func (e *RuntimeError) Kind() string    { return "Runtime" }
func (e *RuntimeError) Message() string { return e.Msg }
func (e *RuntimeError) Unwrap() error   { return e.Cause }
func (e *RuntimeError) CausedBy(cause error) *RuntimeError {
	e.Cause = cause
	return e
}

// --- Error Reporting ---

// DisplayErrors prints a list of errors to stderr in a user-friendly format,
// including the source line and position marker.
func DisplayErrors(source string, errors []SmlError) {
	if len(errors) == 0 {
		return
	}

	lines := strings.Split(source, "\n")

	for _, err := range errors {
		pos := err.Pos()
		kind := err.Kind()
		msg := err.Message()

		// Ensure line numbers are within bounds (1-based index)
		lineIdx := pos.Line - 1
		if lineIdx < 0 || lineIdx >= len(lines) {
			// Print a generic error if line info is invalid
			fmt.Fprintf(os.Stderr, "%s Error: %s\n", kind, msg)
			continue
		}

		sourceLine := lines[lineIdx]
		trimmedLine := strings.TrimRight(sourceLine, "\r\n\t ")

		// Format: <Kind> Error at <Line>:<Column>: <Message>
		fmt.Fprintf(os.Stderr, "%s Error at %d:%d: %s\n", kind, pos.Line, pos.Column, msg)

		// Print the source line followed by a marker line
		fmt.Fprintf(os.Stderr, "  %s\n", trimmedLine)
		marker := strings.Repeat(" ", pos.Column) + "^"
		fmt.Fprintf(os.Stderr, "  %s\n", marker)
		fmt.Fprintln(os.Stderr)
	}
}
