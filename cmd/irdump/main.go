// Command irdump prints the analysis IR of Go source code, optionally
// annotated with the discovered loop nests.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/edeiana/noelle/ir"
	"github.com/edeiana/noelle/ir/build"
	"github.com/edeiana/noelle/loopnest"
)

const usage = `irdump is a tool for printing the analysis IR of Go source code.

Usage:

  irdump [options] file.go [files.go...]

Options:

`

var (
	buildlogPath string
	outPath      string
	viewFunc     string
	showLoops    bool

	out io.Writer
)

func init() {
	flag.StringVar(&buildlogPath, "log", "", "Specify build log file (use '-' for stdout)")
	flag.StringVar(&outPath, "out", "", "Specify output file (default: stdout)")
	flag.StringVar(&viewFunc, "func", "", "Specify a single function to print (default: all)")
	flag.BoolVar(&showLoops, "loops", false, "Annotate the listing with discovered loops")
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
		os.Exit(0)
	}

	conf := build.FromFiles(flag.Args())

	switch buildlogPath {
	case "":
	case "-":
		conf = conf.WithBuildLog(os.Stdout, log.LstdFlags)
	default:
		f, err := os.Create(buildlogPath)
		if err != nil {
			log.Fatalf("Cannot create log %s: %v", buildlogPath, err)
		}
		defer f.Close()
		conf = conf.WithBuildLog(f, log.LstdFlags)
	}

	switch outPath {
	case "":
		out = os.Stdout
	default:
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatalf("Cannot create output file %s: %v", outPath, err)
		}
		defer f.Close()
		out = f
	}

	info, err := conf.Build()
	if err != nil {
		log.Fatal("Cannot build SSA from files: ", err)
	}

	for _, ssafn := range info.SrcFuncs() {
		if viewFunc != "" && ssafn.Name() != viewFunc && ssafn.String() != viewFunc {
			continue
		}
		fn, err := build.FuncIR(ssafn)
		if err != nil {
			log.Fatalf("Cannot translate %s: %v", ssafn, err)
		}
		if _, err := fn.WriteTo(out); err != nil {
			log.Fatal("Cannot write IR: ", err)
		}
		if showLoops {
			writeLoops(out, fn)
		}
		fmt.Fprintln(out)
	}
}

// writeLoops prints one line per discovered loop: header, depth,
// latches and exits.
func writeLoops(w io.Writer, fn *ir.Func) {
	nest := loopnest.New(fn)
	for _, l := range nest.Loops() {
		fmt.Fprintf(w, "loop %s depth=%d", l.Header, l.Depth())
		for _, latch := range l.Latches {
			fmt.Fprintf(w, " latch=%s", latch)
		}
		for _, exit := range l.ExitBlocks() {
			fmt.Fprintf(w, " exit=%s", exit)
		}
		fmt.Fprintln(w)
	}
}
