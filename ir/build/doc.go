// Package build constructs the analysis IR from Go source code.
//
// There are two ways of supplying source:
//
// Build from a list of source files
//
// This is the normal usage, where a number of files are supplied
// (usually as command line arguments) and treated as a single package.
//
// Build from a Reader
//
// This is mostly used for testing, where the input source code is read
// from a given io.Reader.
//
// Either way the source is parsed, type checked and lowered to
// golang.org/x/tools/go/ssa form, which FuncIR then translates into
// the mutable ir.Func representation consumed by the loop analyses.
package build
