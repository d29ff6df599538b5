package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/lumiis2/building-a-compiler/pkg/driver"
	"github.com/lumiis2/building-a-compiler/pkg/errors"
	"github.com/lumiis2/building-a-compiler/pkg/source"
)

func main() {
	evalExpr := flag.String("e", "", "Evaluate an inline expression instead of reading a file")
	memSize := flag.Int("mem", 1000, "Machine memory size in words")
	dump := flag.Bool("dump", false, "Dump the instruction stream before and after allocation")
	noAlloc := flag.Bool("noalloc", false, "Skip register allocation and run the symbolic code")
	flag.Parse()

	src, err := loadSource(*evalExpr, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "smlc: %v\n", err)
		os.Exit(1)
	}

	opts := driver.Options{
		MemorySize: *memSize,
		Allocate:   !*noAlloc,
	}
	if *dump {
		opts.Dump = os.Stderr
	}

	sess := driver.NewWithOptions(opts)
	value, errs := sess.RunSource(src)
	if len(errs) > 0 {
		errors.DisplayErrors(src.Content, errs)
		os.Exit(1)
	}
	fmt.Println(value)
}

// loadSource picks the input: -e expression, a file argument, or stdin.
func loadSource(evalExpr string, args []string) (*source.SourceFile, error) {
	if evalExpr != "" {
		return source.NewEvalSource(evalExpr), nil
	}
	if len(args) > 1 {
		return nil, fmt.Errorf("expected at most one input file, got %d", len(args))
	}
	if len(args) == 1 {
		return source.ReadFile(args[0])
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}
	return source.NewStdinSource(string(data)), nil
}
