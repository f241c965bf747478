// Command svtnt-dce runs dead-code elimination over a netlist dump.
//
// Usage:
//
//	svtnt-dce [options] <netlist.json>
//	cat netlist.json | svtnt-dce [options]
//
// Options:
//
//	-pass <name>    Pass to run: modules, dtypes, dtypes-scoped, all,
//	                all-scoped (default: all-scoped)
//	-o <file>       Write surviving netlist to file (default: stdout)
//	-config <file>  Use a specific config file
//	-no-config      Ignore config files
//	-debug <n>      Debug verbosity
//	-dump-tree <n>  Tree dump threshold
//	-dump-dir <dir> Directory for tree dumps
//	-version        Print version and exit
//
// Config file:
//
//	svtnt-dce looks for svtnt.json or .svtntrc in the current directory
//	and parent directories. Config file options are overridden by flags.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mballance/verilator-svtnt/internal/config"
	"github.com/mballance/verilator-svtnt/pkg/api"
)

var version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "svtnt-dce: error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		passName    = flag.String("pass", "all-scoped", "pass to run")
		outPath     = flag.String("o", "", "output file (default stdout)")
		configPath  = flag.String("config", "", "config file")
		noConfig    = flag.Bool("no-config", false, "ignore config files")
		debug       = flag.Int("debug", -1, "debug verbosity")
		dumpTree    = flag.Int("dump-tree", -1, "tree dump threshold")
		dumpDir     = flag.String("dump-dir", "", "directory for tree dumps")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("svtnt-dce %s\n", version)
		return nil
	}

	pass, err := api.ParsePass(*passName)
	if err != nil {
		return err
	}

	opts, err := loadOptions(*configPath, *noConfig)
	if err != nil {
		return err
	}
	if *debug >= 0 {
		opts.Debug = *debug
	}
	if *dumpTree >= 0 {
		opts.DumpTree = *dumpTree
	}
	if *dumpDir != "" {
		opts.DumpDir = *dumpDir
	}

	data, inputName, err := readInput(flag.Args())
	if err != nil {
		return err
	}

	result, err := api.Eliminate(data, pass, opts)
	if err != nil {
		return err
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, result.Output, 0o644); err != nil {
			return err
		}
	} else {
		if _, err := os.Stdout.Write(result.Output); err != nil {
			return err
		}
		fmt.Println()
	}

	fmt.Fprintf(os.Stderr, "%s: %s pass removed %d of %d nodes\n",
		inputName, pass, result.Removed(), result.NodesBefore)
	return nil
}

// loadOptions merges config file settings into API options. Flags are
// applied on top by the caller.
func loadOptions(path string, noConfig bool) (*api.Options, error) {
	opts := &api.Options{}
	if noConfig {
		return opts, nil
	}

	var cfg *config.File
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		wd, werr := os.Getwd()
		if werr != nil {
			return nil, werr
		}
		cfg, _, err = config.Load(wd)
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return opts, nil
	}

	merged := cfg.ToOptions()
	opts.Debug = merged.Debug
	opts.DumpTree = merged.DumpTree
	opts.DumpDir = merged.DumpDir
	return opts, nil
}

func readInput(args []string) ([]byte, string, error) {
	switch len(args) {
	case 0:
		data, err := io.ReadAll(os.Stdin)
		return data, "<stdin>", err
	case 1:
		data, err := os.ReadFile(args[0])
		return data, args[0], err
	default:
		return nil, "", fmt.Errorf("expected at most one input file, got %d", len(args))
	}
}
