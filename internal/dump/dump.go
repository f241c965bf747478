// Package dump writes netlist trees out for debugging.
//
// Two forms are produced: an indented one-line-per-node dump for reading
// by eye, and (at higher dump levels) a go-spew deep dump that shows
// every field for pointer-exact comparison between pass stages.
package dump

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/mballance/verilator-svtnt/internal/ast"
	"github.com/mballance/verilator-svtnt/internal/config"
)

// spewConf dumps without following the parent back-pointers forever.
var spewConf = spew.ConfigState{
	Indent:                  "  ",
	MaxDepth:                32,
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Sprint returns the indented human-readable dump of the subtree at n.
func Sprint(n ast.Node) string {
	var sb strings.Builder
	sprintRec(&sb, n, 0)
	return sb.String()
}

func sprintRec(sb *strings.Builder, n ast.Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(ast.Describe(n))
	if t := n.DType(); t != nil && ast.Node(t) != n {
		fmt.Fprintf(sb, " @ %s", ast.Describe(t))
	}
	sb.WriteByte('\n')
	ast.ForEachChild(n, func(c ast.Node) {
		sprintRec(sb, c, depth+1)
	})
}

// CheckGlobalTree writes the post-pass tree dump if the pass asked for
// it. name is the dump file name, e.g. "dead_all.tree". Dump failures
// are reported but never fail the pass.
func CheckGlobalTree(opts *config.Options, root *ast.Netlist, name string, enabled bool) {
	if !enabled {
		return
	}
	if err := os.MkdirAll(opts.DumpDir, 0o755); err != nil {
		opts.Debugf("dump", 1, "cannot create dump dir: %v", err)
		return
	}

	path := filepath.Join(opts.DumpDir, name)
	if err := os.WriteFile(path, []byte(Sprint(root)), 0o644); err != nil {
		opts.Debugf("dump", 1, "cannot write %s: %v", path, err)
		return
	}

	if opts.DumpTreeLevel("dump") >= 9 {
		deep := spewConf.Sdump(root)
		if err := os.WriteFile(path+".spew", []byte(deep), 0o644); err != nil {
			opts.Debugf("dump", 1, "cannot write %s.spew: %v", path, err)
		}
	}
}
