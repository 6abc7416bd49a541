// spvdis - SPIR-V disassembler
// Generates .spvasm text, naming SDSL pseudo-instructions of library modules.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gogpu/sdsl/spirv"
)

var validate = flag.Bool("validate", false, "check the identifier invariant")

func run(path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	buf, err := spirv.DecodeBytes(data)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, spirv.Disassemble(buf)); err != nil {
		return err
	}
	if *validate {
		return spirv.Validate(buf)
	}
	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: spvdis [options] <file.spv>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(flag.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
