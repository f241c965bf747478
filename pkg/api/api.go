// Package api provides the public API for running dead-code
// elimination over a serialized netlist.
//
// This package is intended for programmatic use. For CLI usage, see
// cmd/svtnt-dce.
package api

import (
	"fmt"

	"github.com/mballance/verilator-svtnt/internal/ast"
	"github.com/mballance/verilator-svtnt/internal/config"
	"github.com/mballance/verilator-svtnt/internal/dce"
	"github.com/mballance/verilator-svtnt/internal/diagnostic"
	"github.com/mballance/verilator-svtnt/internal/netio"
)

// Pass selects which elimination entry point to run.
type Pass int

const (
	// PassModules removes only unreferenced modules.
	PassModules Pass = iota
	// PassDTypes also removes unreferenced data types.
	PassDTypes
	// PassDTypesScoped also removes empty scopes (flattened designs).
	PassDTypesScoped
	// PassAll removes user variables, data types and cells.
	PassAll
	// PassAllScoped removes everything PassAll does plus empty scopes.
	PassAllScoped
)

var passNames = map[Pass]string{
	PassModules:      "modules",
	PassDTypes:       "dtypes",
	PassDTypesScoped: "dtypes-scoped",
	PassAll:          "all",
	PassAllScoped:    "all-scoped",
}

func (p Pass) String() string {
	if s, ok := passNames[p]; ok {
		return s
	}
	return fmt.Sprintf("pass(%d)", int(p))
}

// ParsePass returns the pass named by s.
func ParsePass(s string) (Pass, error) {
	for p, name := range passNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown pass %q", s)
}

// Options controls debug output for a run. The zero value is quiet.
type Options struct {
	// Debug is the debug verbosity for all pass sources.
	Debug int

	// DumpTree is the tree-dump threshold for all pass sources.
	DumpTree int

	// DumpDir overrides where tree dumps are written.
	DumpDir string
}

// Result carries the surviving netlist and the elimination counts.
type Result struct {
	// Output is the surviving netlist in JSON form.
	Output []byte

	// NodesBefore and NodesAfter count AST nodes around the pass.
	NodesBefore int
	NodesAfter  int
}

// Removed returns how many nodes the pass deleted.
func (r Result) Removed() int { return r.NodesBefore - r.NodesAfter }

// Eliminate decodes a netlist, runs one elimination pass over it and
// re-encodes the survivors. An invariant violation inside the pass
// (a compiler bug, not bad input) is returned as an error.
func Eliminate(data []byte, pass Pass, opts *Options) (result Result, err error) {
	root, err := netio.Decode(data)
	if err != nil {
		return Result{}, err
	}

	cfg := config.Default()
	if opts != nil {
		cfg.Debug = opts.Debug
		cfg.DumpTree = opts.DumpTree
		if opts.DumpDir != "" {
			cfg.DumpDir = opts.DumpDir
		}
	}

	defer func() {
		if r := recover(); r != nil {
			if ice := diagnostic.AsInternal(r); ice != nil {
				err = ice
				return
			}
			panic(r)
		}
	}()

	result.NodesBefore = ast.CountNodes(root)
	switch pass {
	case PassModules:
		dce.DeadModules(root, cfg)
	case PassDTypes:
		dce.DeadDTypes(root, cfg)
	case PassDTypesScoped:
		dce.DeadDTypesScoped(root, cfg)
	case PassAll:
		dce.DeadAll(root, cfg)
	case PassAllScoped:
		dce.DeadAllScoped(root, cfg)
	default:
		return Result{}, fmt.Errorf("unknown pass %v", pass)
	}
	result.NodesAfter = ast.CountNodes(root)

	result.Output, err = netio.Encode(root)
	if err != nil {
		return Result{}, err
	}
	return result, nil
}
