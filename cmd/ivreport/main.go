// Command ivreport lists the induction variables of every loop in
// the given Go source files and marks the one governing each loop's
// termination. With -o the same summary is written as a msgpack
// report for downstream tooling.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/edeiana/noelle/analysis"
	"github.com/edeiana/noelle/ir"
	"github.com/edeiana/noelle/ir/build"
	"github.com/edeiana/noelle/report"
)

// fileConfig mirrors the command line flags for repeated runs.
type fileConfig struct {
	Debug       bool     `yaml:"debug"`
	Output      string   `yaml:"output"`
	Funcs       []string `yaml:"funcs"`
	Parallelism int      `yaml:"parallelism"`
}

func main() {
	var (
		configPath string
		cfg        fileConfig
	)

	root := &cobra.Command{
		Use:   "ivreport [flags] file.go [files.go...]",
		Short: "Report induction variables and loop-governing picks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				data, err := os.ReadFile(configPath)
				if err != nil {
					return errors.Wrap(err, "read config")
				}
				if err := yaml.Unmarshal(data, &cfg); err != nil {
					return errors.Wrap(err, "parse config")
				}
			}
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Debug = true
			}
			if out, _ := cmd.Flags().GetString("output"); out != "" {
				cfg.Output = out
			}
			if fns, _ := cmd.Flags().GetStringSlice("func"); len(fns) > 0 {
				cfg.Funcs = fns
			}
			return run(args, cfg)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.Flags().BoolP("debug", "d", false, "Enable debug logging")
	root.Flags().StringP("output", "o", "", "Write msgpack report to file")
	root.Flags().StringSlice("func", nil, "Only analyse the named functions")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(files []string, cfg fileConfig) error {
	logger := zap.NewNop()
	if cfg.Debug {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return errors.Wrap(err, "init logger")
		}
		defer logger.Sync()
	}

	info, err := build.FromFiles(files).Build()
	if err != nil {
		return errors.Wrap(err, "build")
	}

	var fns []*ir.Func
	for _, ssafn := range info.SrcFuncs() {
		if len(cfg.Funcs) > 0 && !contains(cfg.Funcs, ssafn.Name()) {
			continue
		}
		fn, err := build.FuncIR(ssafn)
		if err != nil {
			continue // no body
		}
		fns = append(fns, fn)
	}

	results, err := analysis.Program(fns, analysis.Options{
		Logger:      logger,
		Parallelism: cfg.Parallelism,
	})
	if err != nil {
		return errors.Wrap(err, "analyse")
	}

	printResults(results)

	if cfg.Output != "" {
		data, err := report.New(results).Marshal()
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.Output, data, 0o644); err != nil {
			return errors.Wrap(err, "write report")
		}
	}
	return nil
}

var (
	fnColor     = color.New(color.Bold)
	governColor = color.New(color.FgGreen)
	ivColor     = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
)

func printResults(results []*analysis.Result) {
	for _, res := range results {
		if res == nil || len(res.Nest.Loops()) == 0 {
			continue
		}
		fnColor.Printf("%s\n", res.Func.Name)
		for _, l := range res.Nest.Loops() {
			fmt.Printf("  loop at block #%d (depth %d)\n", l.Header.Index, l.Depth())
			set := res.IVs.Of(l)
			if set.Len() == 0 {
				dimColor.Println("    no induction variables")
				continue
			}
			for i := 0; i < set.Len(); i++ {
				iv := set.At(i)
				line := fmt.Sprintf("    %s: start %s, step %+d, %d member op(s)",
					iv.HeaderPhi.Name(), startName(iv.Start), iv.StepInt(), len(iv.Members()))
				if i == set.GoverningIndex() {
					governColor.Printf("%s [governing]\n", line)
				} else {
					ivColor.Println(line)
				}
			}
		}
	}
}

func startName(v *ir.Value) string {
	if v == nil {
		return "<none>"
	}
	return v.Name()
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
