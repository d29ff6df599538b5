package driver

import (
	"fmt"
	"io"

	"github.com/lumiis2/building-a-compiler/pkg/compiler"
	"github.com/lumiis2/building-a-compiler/pkg/errors"
	"github.com/lumiis2/building-a-compiler/pkg/lexer"
	"github.com/lumiis2/building-a-compiler/pkg/parser"
	"github.com/lumiis2/building-a-compiler/pkg/source"
	"github.com/lumiis2/building-a-compiler/pkg/vm"
)

const debugDriver = false

func debugPrintf(format string, args ...interface{}) {
	if debugDriver {
		fmt.Printf("[Driver] "+format, args...)
	}
}

// Options configures a compilation session.
type Options struct {
	// MemorySize is the machine memory size in words.
	MemorySize int
	// Allocate runs the register allocator after code generation. Turning
	// it off executes the symbolic (variable-named) code directly, which is
	// useful when debugging the generator.
	Allocate bool
	// Dump, when non-nil, receives the instruction stream after generation
	// and again after allocation. The format is a debugging aid with no
	// stability guarantee.
	Dump io.Writer
}

// DefaultOptions returns the options used by New.
func DefaultOptions() Options {
	return Options{
		MemorySize: 1000,
		Allocate:   true,
	}
}

// Session orchestrates the pipeline: lex, parse, rename, generate code,
// allocate registers, execute.
type Session struct {
	opts Options
}

// New creates a session with default options.
func New() *Session {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a session with the given options.
func NewWithOptions(opts Options) *Session {
	if opts.MemorySize <= 0 {
		opts.MemorySize = DefaultOptions().MemorySize
	}
	return &Session{opts: opts}
}

// CompileSource runs the pipeline up to (and including, when enabled)
// register allocation. It returns the ready-to-run program and the name of
// the variable that will hold the program's result.
func (s *Session) CompileSource(src *source.SourceFile) (*vm.Program, string, []errors.SmlError) {
	l := lexer.NewLexer(src.Content)
	p := parser.NewParser(l)
	exp, parseErrs := p.Parse()
	if len(parseErrs) > 0 {
		return nil, "", parseErrs
	}
	debugPrintf("parsed: %s\n", exp.String())

	renamed, err := compiler.Rename(exp)
	if err != nil {
		return nil, "", []errors.SmlError{asSmlError(err)}
	}
	debugPrintf("renamed: %s\n", renamed.String())

	prog := vm.NewProgram(s.opts.MemorySize)
	gen := compiler.NewGenerator()
	resultVar := gen.Gen(renamed, prog)

	if s.opts.Dump != nil {
		fmt.Fprintf(s.opts.Dump, "-- generated (%d instructions, result in %s)\n", prog.Len(), resultVar)
		prog.Dump(s.opts.Dump)
	}

	if s.opts.Allocate {
		alloc := compiler.NewAllocator(prog)
		alloc.Allocate()
		if s.opts.Dump != nil {
			fmt.Fprintf(s.opts.Dump, "-- allocated (%d instructions)\n", prog.Len())
			prog.Dump(s.opts.Dump)
		}
	}

	return prog, resultVar, nil
}

// RunSource compiles and executes a source file, returning the value of the
// whole expression.
func (s *Session) RunSource(src *source.SourceFile) (int, []errors.SmlError) {
	prog, resultVar, errs := s.CompileSource(src)
	if len(errs) > 0 {
		return 0, errs
	}

	if err := prog.Run(); err != nil {
		return 0, []errors.SmlError{runtimeError(err)}
	}
	val, err := prog.GetValue(resultVar)
	if err != nil {
		return 0, []errors.SmlError{runtimeError(err)}
	}
	debugPrintf("result: %s = %d\n", resultVar, val)
	return val, nil
}

// RunString compiles and executes an inline expression.
func (s *Session) RunString(input string) (int, []errors.SmlError) {
	return s.RunSource(source.NewEvalSource(input))
}

// CompileString compiles an inline expression without executing it.
func (s *Session) CompileString(input string) (*vm.Program, string, []errors.SmlError) {
	return s.CompileSource(source.NewEvalSource(input))
}

// asSmlError passes kinded errors through and wraps anything else as a
// compile error.
func asSmlError(err error) errors.SmlError {
	if se, ok := err.(errors.SmlError); ok {
		return se
	}
	return &errors.CompileError{Msg: err.Error(), Cause: err}
}

// runtimeError wraps a machine fault. The machine does not track source
// positions, so the wrapped error has none.
func runtimeError(err error) errors.SmlError {
	return &errors.RuntimeError{Msg: err.Error(), Cause: err}
}
