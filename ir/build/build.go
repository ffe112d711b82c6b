package build

import (
	"bufio"
	"bytes"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"log"
	"os"
	"sort"

	"github.com/pkg/errors"
	gossa "golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// srcReader is a wrapper for source code which can be read through a NewReader.
type srcReader interface {
	NewReader() io.Reader
	Names() []string
}

// Builder builds the SSA form of a package and translates functions to IR.
type Builder interface {
	Build() (*Info, error)
}

type Configurer interface {
	Builder
	WithBuildLog(l io.Writer, flags int) Configurer
}

// Config represents a build configuration.
type Config struct {
	bldLog    io.Writer // Build log.
	bldLFlags int       // Build log flags.

	src srcReader // src points to the program source.
}

func newConfig(src srcReader) *Config {
	return &Config{
		bldLog:    io.Discard,
		bldLFlags: log.LstdFlags,
		src:       src,
	}
}

// WithBuildLog adds build log to config.
func (c *Config) WithBuildLog(l io.Writer, flags int) Configurer {
	c.bldLog = l
	c.bldLFlags = flags
	return c
}

// FileSrc is a set of filenames.
type FileSrc struct {
	Files []string
}

// FromFiles returns a non-nil Configurer from a slice of filenames.
// The files are considered part of the same package.
func FromFiles(files []string) Configurer {
	return newConfig(&FileSrc{Files: files})
}

// Reader returns an io.Reader for file[i].
func (s *FileSrc) Reader(i int) io.Reader {
	if i < len(s.Files) {
		f, err := os.Open(s.Files[i])
		defer f.Close()
		if err != nil {
			log.Fatal(errors.Wrapf(err, "failed to read from file: %s", s.Files[i]))
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(bufio.NewReader(f)); err != nil {
			log.Fatal(errors.Wrapf(err, "failed to read from file: %s", s.Files[i]))
		}
		return &buf
	}
	return nil
}

// NewReader returns an io.Reader for reading all files.
func (s *FileSrc) NewReader() io.Reader {
	var rds []io.Reader
	for i := range s.Files {
		rds = append(rds, s.Reader(i))
	}
	return io.MultiReader(rds...)
}

// Names returns the filenames of the source set.
func (s *FileSrc) Names() []string { return s.Files }

// CachedSrc is source read up-front from a reader.
type CachedSrc struct {
	cached []byte
}

// FromReader returns a non-nil Configurer for a reader.
// This is typically used for testing.
func FromReader(r io.Reader) Configurer {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		log.Fatal(errors.Wrap(err, "failed to read from reader"))
	}
	return newConfig(&CachedSrc{cached: buf.Bytes()})
}

// NewReader returns a reader for reading the cached content.
func (s *CachedSrc) NewReader() io.Reader {
	return bytes.NewReader(s.cached)
}

// Names returns a placeholder filename for the cached source.
func (s *CachedSrc) Names() []string { return []string{"input.go"} }

// Info holds the results of a build.
type Info struct {
	FSet *token.FileSet // FileSet for parsed source files.
	Prog *gossa.Program // SSA IR for the built package and its deps.
	Pkg  *gossa.Package // The built package.

	BldLog io.Writer // Build log.
}

// Build parses, type checks and lowers the configured source.
func (c *Config) Build() (*Info, error) {
	bldLog := log.New(c.bldLog, "irbuild: ", c.bldLFlags)

	fset := token.NewFileSet()
	var files []*ast.File
	switch src := c.src.(type) {
	case *FileSrc:
		for i, name := range src.Files {
			f, err := parser.ParseFile(fset, name, src.Reader(i), parser.ParseComments)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse %s", name)
			}
			files = append(files, f)
		}
	default:
		f, err := parser.ParseFile(fset, c.src.Names()[0], c.src.NewReader(), parser.ParseComments)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse source")
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, errors.New("no source files")
	}
	bldLog.Printf("Parsed %d file(s)", len(files))

	tconf := &types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	tpkg := types.NewPackage(files[0].Name.Name, "")
	pkg, _, err := ssautil.BuildPackage(tconf, fset, tpkg, files, gossa.SanityCheckFunctions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build SSA")
	}
	bldLog.Printf("Package %s built", tpkg.Name())

	return &Info{
		FSet:   fset,
		Prog:   pkg.Prog,
		Pkg:    pkg,
		BldLog: c.bldLog,
	}, nil
}

// SrcFuncs returns the built package's source-level functions (those
// with bodies), including anonymous functions, in name order.
func (info *Info) SrcFuncs() []*gossa.Function {
	var fns []*gossa.Function
	for _, mem := range info.Pkg.Members {
		fn, ok := mem.(*gossa.Function)
		if !ok || fn.Blocks == nil {
			continue
		}
		fns = append(fns, fn)
		fns = append(fns, anonFuncs(fn)...)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].String() < fns[j].String() })
	return fns
}

func anonFuncs(fn *gossa.Function) []*gossa.Function {
	var fns []*gossa.Function
	for _, anon := range fn.AnonFuncs {
		if anon.Blocks == nil {
			continue
		}
		fns = append(fns, anon)
		fns = append(fns, anonFuncs(anon)...)
	}
	return fns
}

// FuncNamed finds a source function of the built package by name.
func (info *Info) FuncNamed(name string) (*gossa.Function, error) {
	for _, fn := range info.SrcFuncs() {
		if fn.Name() == name {
			return fn, nil
		}
	}
	return nil, errors.Errorf("no function named %s", name)
}
