// Package dce deletes netlist entities nothing references any more.
//
// The pass runs between mid-end transformations:
// 1. One traversal counts, for every module, variable, variable
//    instance, scope, cell and data type, how many edges point at it,
//    and collects the entities eligible for removal.
// 2. Kind-specific sweeps then delete the entities whose count is zero,
//    releasing the counts they held, until nothing more dies.
//
// References through packages (on variable references, task calls, type
// references and enum item references) are only metadata once scoping
// has run. In cell-elimination mode the pass clears them so packages
// with no other incoming edges can be reclaimed too.
//
// TODO: replace the fixed-point sweeps with an explicit reference graph
// and SCC reachability so circular and interlinked dependencies resolve
// in one pass.
package dce

import (
	"github.com/mballance/verilator-svtnt/internal/ast"
	"github.com/mballance/verilator-svtnt/internal/config"
	"github.com/mballance/verilator-svtnt/internal/diagnostic"
	"github.com/mballance/verilator-svtnt/internal/dump"
)

const passName = "dce"

// mode selects which entity classes a run may remove.
type mode struct {
	elimUserVars bool // user variables, not just temporaries
	elimDTypes   bool // data types
	elimScopes   bool // scopes (only sound on a flattened design)
	elimCells    bool // cells, empty modports, non-public typedefs
}

// deadVisitor is the per-run state: reference counts, candidate lists
// and the simple-assignment index.
type deadVisitor struct {
	opts *config.Options
	root *ast.Netlist
	mode

	// uses counts the incoming edges observed for each node.
	uses map[ast.Node]int32

	varsp   []*ast.Var      // vars that may be eliminable
	vscsp   []*ast.VarScope // varscopes whose var may be eliminable
	dtypesp []ast.DType     // non-generic, non-member dtypes
	scopesp []*ast.Scope    // empty non-top scopes
	cellsp  []*ast.Cell     // all cells

	// assignMap records, per varscope, the simple side-effect-free
	// assignments targeting it, in traversal order.
	assignMap map[*ast.VarScope][]*ast.Assign

	modp       *ast.Module // module being visited
	sideEffect bool        // outputter seen under the current assign RHS

	deferred *ast.DeleteQueue
}

// ----------------------------------------------------------------------------
// Reference counting
// ----------------------------------------------------------------------------

func (v *deadVisitor) inc(n ast.Node, delta int32) {
	if ast.Deleted(n) {
		diagnostic.ICEf(passName, "reference count touched on deleted node: %s", ast.Describe(n))
	}
	v.uses[n] += delta
	if v.uses[n] < 0 {
		diagnostic.ICEf(passName, "negative reference count on %s", ast.Describe(n))
	}
}

// checkAll counts the data type edges every node may carry. Data types
// reference themselves; the self-loop is not a use.
func (v *deadVisitor) checkAll(n ast.Node) {
	if t := n.DType(); t != nil && ast.Node(t) != n {
		v.inc(t, 1)
	}
	if t := n.ChildDType(); t != nil {
		v.inc(t, 1)
	}
}

// checkDType collects eliminable data types and counts the referenced
// type edge. Generic types never die; member types live and die with
// their class.
func (v *deadVisitor) checkDType(n ast.DType) {
	if !n.Generic() && v.elimDTypes && !ast.IsMemberDType(n) {
		v.dtypesp = append(v.dtypesp, n)
	}
	if sub := n.VirtRef(); sub != nil {
		v.inc(sub, 1)
	}
}

// checkPackage handles a package back-pointer. After scoping the link is
// redundant, so in cell-elimination mode it is cleared instead of
// counted, letting otherwise-unreferenced packages die.
func (v *deadVisitor) checkPackage(pkgp **ast.Module) {
	if *pkgp == nil {
		return
	}
	if v.elimCells {
		*pkgp = nil
	} else {
		v.inc(*pkgp, 1)
	}
}

func (v *deadVisitor) mightElimVar(n *ast.Var) bool {
	return !n.SigPublic && !n.IO &&
		(n.Temp || (n.Param && !n.Trace) || v.elimUserVars)
}

func (v *deadVisitor) iterateChildren(n ast.Node) {
	ast.ForEachChild(n, v.visit)
}

func (v *deadVisitor) visit(n ast.Node) {
	switch n := n.(type) {
	case *ast.Module:
		v.modp = n
		v.iterateChildren(n)
		v.checkAll(n)
		v.modp = nil

	case *ast.CFunc:
		v.iterateChildren(n)
		v.checkAll(n)
		if n.Scope != nil {
			v.inc(n.Scope, 1)
		}

	case *ast.Scope:
		v.iterateChildren(n)
		v.checkAll(n)
		if n.Above != nil {
			v.inc(n.Above, 1)
		}
		if !n.IsTop && len(n.Vars) == 0 && len(n.Blocks) == 0 && len(n.FinalClks) == 0 {
			v.scopesp = append(v.scopesp, n)
		}

	case *ast.Cell:
		v.iterateChildren(n)
		v.checkAll(n)
		v.cellsp = append(v.cellsp, n)
		v.inc(n.Mod, 1)

	case *ast.VarRef:
		v.iterateChildren(n)
		v.checkAll(n)
		if n.VarScope != nil {
			v.inc(n.VarScope, 1)
			v.inc(n.VarScope.Var, 1)
		}
		if n.Var != nil {
			v.inc(n.Var, 1)
		}
		v.checkPackage(&n.Pkg)

	case *ast.FTaskRef:
		v.iterateChildren(n)
		v.checkAll(n)
		v.checkPackage(&n.Pkg)

	case *ast.RefDType:
		v.iterateChildren(n)
		v.checkDType(n)
		v.checkAll(n)
		v.checkPackage(&n.Pkg)

	case *ast.EnumItemRef:
		v.iterateChildren(n)
		v.checkAll(n)
		v.checkPackage(&n.Pkg)

	case *ast.Modport:
		v.iterateChildren(n)
		if v.elimCells && len(n.Vars) == 0 {
			v.deferred.Push(ast.Unlink(n))
			return
		}
		v.checkAll(n)

	case *ast.Typedef:
		v.iterateChildren(n)
		if v.elimCells && !n.AttrPublic {
			v.deferred.Push(ast.Unlink(n))
			return
		}
		v.checkAll(n)
		// Packages whose only content is exported types must not
		// disappear; normal modules may, e.g. parameterized ones
		// elaboration removed every instance of.
		if n.AttrPublic && v.modp != nil && v.modp.IsPackage {
			v.inc(v.modp, 1)
		}

	case *ast.VarScope:
		v.iterateChildren(n)
		v.checkAll(n)
		if n.Scope != nil {
			v.inc(n.Scope, 1)
		}
		if v.mightElimVar(n.Var) {
			v.vscsp = append(v.vscsp, n)
		}

	case *ast.Var:
		v.iterateChildren(n)
		v.checkAll(n)
		if n.SigPublic && v.modp != nil && v.modp.IsPackage {
			v.inc(v.modp, 1)
		}
		if v.mightElimVar(n) {
			v.varsp = append(v.varsp, n)
		}

	case *ast.Assign:
		v.visitAssign(n)

	case ast.DType:
		v.iterateChildren(n)
		v.checkDType(n)
		v.checkAll(n)

	default:
		if n.IsOutputter() {
			v.sideEffect = true
		}
		v.iterateChildren(n)
		v.checkAll(n)
	}
}

// visitAssign looks for simple assignments whose target variable may be
// eliminated, in which case the whole assignment goes with it. The
// store counts as a use only when the write is indirect or the RHS has
// an observable effect.
func (v *deadVisitor) visitAssign(n *ast.Assign) {
	v.sideEffect = false
	if n.Rhs != nil {
		v.visit(n.Rhs)
	}
	v.checkAll(n)
	// Has to be a direct whole-variable write, post-scoping.
	varrefp, _ := n.Lhs.(*ast.VarRef)
	if varrefp != nil && !v.sideEffect && varrefp.VarScope != nil {
		v.assignMap[varrefp.VarScope] = append(v.assignMap[varrefp.VarScope], n)
		v.checkAll(varrefp) // still track the reference to its dtype
	} else if n.Lhs != nil {
		v.visit(n.Lhs)
	}
}

// ----------------------------------------------------------------------------
// Sweeps
// ----------------------------------------------------------------------------

// deadCheckVar deletes unreferenced varscopes with their recorded
// assignments, then vars to fixed point, then data types.
func (v *deadVisitor) deadCheckVar() {
	for _, vscp := range v.vscsp {
		if v.uses[vscp] != 0 {
			continue
		}
		v.opts.Debugf(passName, 4, "  Dead %s", ast.Describe(vscp))
		for _, assp := range v.assignMap[vscp] {
			v.opts.Debugf(passName, 4, "    Dead assign to %s", ast.Describe(vscp))
			if t := assp.DType(); t != nil {
				v.inc(t, -1)
			}
			ast.UnlinkDelete(assp)
		}
		if vscp.Scope != nil {
			v.inc(vscp.Scope, -1)
		}
		if t := vscp.DType(); t != nil {
			v.inc(t, -1)
		}
		ast.UnlinkDelete(vscp)
	}

	// Deleting a varscope above does not release its var's count, and
	// deleting a var releases only its data type edge. The loop repeats
	// until a full pass deletes nothing.
	for retry := true; retry; {
		retry = false
		for i, varp := range v.varsp {
			if varp == nil || v.uses[varp] != 0 {
				continue
			}
			v.opts.Debugf(passName, 4, "  Dead %s", ast.Describe(varp))
			if t := varp.DType(); t != nil {
				v.inc(t, -1)
			}
			ast.UnlinkDelete(varp)
			v.varsp[i] = nil
			retry = true
		}
	}

	for _, dtp := range v.dtypesp {
		if ast.Deleted(dtp) {
			// Owned under a var removed above.
			continue
		}
		if v.uses[dtp] != 0 {
			continue
		}
		// A class type can be unreferenced while individual members
		// still are; member names only resolve through the class, so
		// keep it while any member lives.
		if classp, ok := dtp.(*ast.ClassDType); ok {
			memberLive := false
			for _, memberp := range classp.Members {
				if v.uses[memberp] != 0 {
					memberLive = true
					break
				}
			}
			if memberLive {
				continue
			}
		}
		v.opts.Debugf(passName, 4, "  Dead %s", ast.Describe(dtp))
		ast.UnlinkDelete(dtp)
	}
}

// deadCheckScope deletes unreferenced empty scopes to fixed point.
// Scopes are only eliminated on a flattened design; anywhere else there
// is no sound way to tell whether a scope is used.
func (v *deadVisitor) deadCheckScope() {
	for retry := true; retry; {
		retry = false
		for i, scp := range v.scopesp {
			if scp == nil || v.uses[scp] != 0 {
				continue
			}
			v.opts.Debugf(passName, 4, "  Dead %s", ast.Describe(scp))
			if scp.Above != nil {
				v.inc(scp.Above, -1)
			}
			if t := scp.DType(); t != nil {
				v.inc(t, -1)
			}
			ast.UnlinkDelete(scp)
			v.scopesp[i] = nil
			retry = true
		}
	}
}

// deadCheckCells deletes cells whose target module has nothing left in
// it. An empty target is the proxy for the instance being vestigial.
func (v *deadVisitor) deadCheckCells() {
	for _, cellp := range v.cellsp {
		if v.uses[cellp] != 0 || len(cellp.Mod.Stmts) != 0 {
			continue
		}
		v.opts.Debugf(passName, 4, "  Dead %s", ast.Describe(cellp))
		v.inc(cellp.Mod, -1)
		ast.UnlinkDelete(cellp)
	}
}

// deadCheckMod deletes unreferenced modules to fixed point. Levels 1
// and 2 are the wrapper and the top user module and always stay, as do
// modules the compiler itself planted.
func (v *deadVisitor) deadCheckMod() {
	for retry := true; retry; {
		retry = false
		for _, modp := range append([]*ast.Module(nil), v.root.Mods...) {
			if modp.Level <= 2 || v.uses[modp] != 0 || modp.Internal {
				continue
			}
			v.opts.Debugf(passName, 4, "  Dead module %s", ast.Describe(modp))
			// Its children may now be killable too; correct the counts
			// first. Cells may sit below generate blocks, not directly
			// under the module, so walk the whole subtree.
			v.deadModCleanup(modp)
			ast.UnlinkDelete(modp)
			retry = true
		}
	}
}

// deadModCleanup releases the module references the cells of a dying
// module hold. Expression subtrees contain no cells and are skipped.
func (v *deadVisitor) deadModCleanup(n ast.Node) {
	if ast.IsMath(n) {
		return
	}
	if cellp, ok := n.(*ast.Cell); ok {
		v.inc(cellp.Mod, -1)
		return
	}
	ast.ForEachChild(n, v.deadModCleanup)
}

// ----------------------------------------------------------------------------
// Driver
// ----------------------------------------------------------------------------

func run(root *ast.Netlist, opts *config.Options, m mode) {
	v := &deadVisitor{
		opts:      opts,
		root:      root,
		mode:      m,
		uses:      make(map[ast.Node]int32),
		assignMap: make(map[*ast.VarScope][]*ast.Assign),
		deferred:  ast.NewDeleteQueue(),
	}

	// Data types may be deleted while the table's lookup index is down.
	if root.Types != nil {
		root.Types.ClearCache()
	}

	v.visit(root)

	v.deadCheckVar()
	if m.elimScopes {
		v.deadCheckScope()
	}
	if m.elimCells {
		v.deadCheckCells()
	}
	v.deadCheckMod()

	if root.Types != nil {
		root.Types.RepairCache()
	}
	v.deferred.Flush()
}

// DeadModules removes modules nothing instantiates.
func DeadModules(root *ast.Netlist, opts *config.Options) {
	opts.Debugf(passName, 2, "DeadModules:")
	run(root, opts, mode{})
	dump.CheckGlobalTree(opts, root, "dead_modules.tree", opts.DumpTreeLevel(passName) >= 6)
}

// DeadDTypes removes unreferenced data types as well.
func DeadDTypes(root *ast.Netlist, opts *config.Options) {
	opts.Debugf(passName, 2, "DeadDTypes:")
	run(root, opts, mode{elimDTypes: true})
	dump.CheckGlobalTree(opts, root, "dead_dtypes.tree", opts.DumpTreeLevel(passName) >= 3)
}

// DeadDTypesScoped additionally removes empty scopes; it requires a
// flattened design.
func DeadDTypesScoped(root *ast.Netlist, opts *config.Options) {
	opts.Debugf(passName, 2, "DeadDTypesScoped:")
	run(root, opts, mode{elimDTypes: true, elimScopes: true})
	dump.CheckGlobalTree(opts, root, "dead_dtypes_scoped.tree", opts.DumpTreeLevel(passName) >= 3)
}

// DeadAll removes user variables, data types and cells. Run after
// tracing decisions are final; at that point most anything unreferenced
// can go.
func DeadAll(root *ast.Netlist, opts *config.Options) {
	opts.Debugf(passName, 2, "DeadAll:")
	run(root, opts, mode{elimUserVars: true, elimDTypes: true, elimCells: true})
	dump.CheckGlobalTree(opts, root, "dead_all.tree", opts.DumpTreeLevel(passName) >= 3)
}

// DeadAllScoped removes everything DeadAll does plus empty scopes; it
// requires a flattened design.
func DeadAllScoped(root *ast.Netlist, opts *config.Options) {
	opts.Debugf(passName, 2, "DeadAllScoped:")
	run(root, opts, mode{elimUserVars: true, elimDTypes: true, elimScopes: true, elimCells: true})
	dump.CheckGlobalTree(opts, root, "dead_all_scoped.tree", opts.DumpTreeLevel(passName) >= 3)
}
