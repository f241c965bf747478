package dce

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mballance/verilator-svtnt/internal/ast"
	"github.com/mballance/verilator-svtnt/internal/config"
	"github.com/mballance/verilator-svtnt/internal/test"
)

func quiet() *config.Options {
	opts := config.Default()
	opts.DumpDir = ""
	return opts
}

// assertNoDangling walks the surviving tree and checks that no node
// points at a deleted one.
func assertNoDangling(t *testing.T, root *ast.Netlist) {
	t.Helper()
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		require.False(t, ast.Deleted(n), "deleted node still linked: %s", ast.Describe(n))
		if d := n.DType(); d != nil && ast.Node(d) != n {
			assert.False(t, ast.Deleted(d), "%s has dangling dtype %s", ast.Describe(n), ast.Describe(d))
		}
		switch n := n.(type) {
		case *ast.Cell:
			assert.False(t, ast.Deleted(n.Mod), "%s targets deleted module", ast.Describe(n))
		case *ast.Scope:
			if n.Above != nil {
				assert.False(t, ast.Deleted(n.Above), "%s has dangling above-scope", ast.Describe(n))
			}
		case *ast.VarScope:
			assert.False(t, ast.Deleted(n.Scope), "%s has dangling scope", ast.Describe(n))
			assert.False(t, ast.Deleted(n.Var), "%s has dangling var", ast.Describe(n))
		case *ast.VarRef:
			assert.False(t, ast.Deleted(n.Var), "%s has dangling var", ast.Describe(n))
			if n.VarScope != nil {
				assert.False(t, ast.Deleted(n.VarScope), "%s has dangling varscope", ast.Describe(n))
			}
			if n.Pkg != nil {
				assert.False(t, ast.Deleted(n.Pkg), "%s has dangling package", ast.Describe(n))
			}
		case *ast.CFunc:
			if n.Scope != nil {
				assert.False(t, ast.Deleted(n.Scope), "%s has dangling scope", ast.Describe(n))
			}
		case *ast.RefDType:
			if n.To != nil {
				assert.False(t, ast.Deleted(n.To), "%s has dangling target", ast.Describe(n))
			}
			if n.Pkg != nil {
				assert.False(t, ast.Deleted(n.Pkg), "%s has dangling package", ast.Describe(n))
			}
		}
		ast.ForEachChild(n, walk)
	}
	walk(root)
}

// ----------------------------------------------------------------------------
// Reference counting
// ----------------------------------------------------------------------------

// runCount runs only the counting traversal, for inspecting the counts
// the sweeps would act on.
func runCount(root *ast.Netlist, m mode) *deadVisitor {
	v := &deadVisitor{
		opts:      quiet(),
		root:      root,
		mode:      m,
		uses:      make(map[ast.Node]int32),
		assignMap: make(map[*ast.VarScope][]*ast.Assign),
		deferred:  ast.NewDeleteQueue(),
	}
	v.visit(root)
	return v
}

func TestCountCellReferencesModule(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	sub := f.Module("sub", 3)
	f.Cell(top, "u0", sub)
	f.Cell(top, "u1", sub)

	v := runCount(f.Netlist, mode{})
	assert.Equal(t, int32(2), v.uses[sub])
	assert.Equal(t, int32(0), v.uses[top])
}

func TestCountVarRefCountsVarTwiceWhenScoped(t *testing.T) {
	// A scoped reference counts the var both directly and through its
	// varscope, so the var only dies once both paths are gone.
	f := test.NewFixture()
	top := f.Module("top", 2)
	s := f.Scope(top, "TOP", nil, true)
	v := f.TempVar(top, "t0")
	vs := f.VarScope(s, v)
	b := &ast.Begin{Name: "blk"}
	top.AddStmt(b)
	b.AddStmt(ast.NewVarRef(vs, false))

	dv := runCount(f.Netlist, mode{})
	assert.Equal(t, int32(2), dv.uses[v])
	assert.Equal(t, int32(1), dv.uses[vs])
	// Only the varscope holds the top scope; nothing else points at it.
	assert.Equal(t, int32(1), dv.uses[s])
}

func TestCountDTypeEdges(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	v := f.TempVar(top, "t0")

	dv := runCount(f.Netlist, mode{elimDTypes: true})
	assert.Equal(t, int32(1), dv.uses[f.Logic32], "var dtype edge counted once")
	assert.Contains(t, dv.dtypesp, ast.DType(f.Logic32))
	assert.Contains(t, dv.varsp, v)
}

func TestCountSelfLoopSkipped(t *testing.T) {
	f := test.NewFixture()

	dv := runCount(f.Netlist, mode{elimDTypes: true})
	// The basic type's dtype edge is itself and must not count.
	assert.Equal(t, int32(0), dv.uses[f.Logic32])
}

func TestCountGenericDTypeNotCandidate(t *testing.T) {
	f := test.NewFixture()
	g := &ast.BasicDType{Keyword: "logic", Width: 1}
	g.IsGeneric = true
	f.Netlist.Types.AddDType(g)

	dv := runCount(f.Netlist, mode{elimDTypes: true})
	assert.NotContains(t, dv.dtypesp, ast.DType(g))
}

func TestCountOnDeletedNodeIsInternalError(t *testing.T) {
	v := &ast.Var{Name: "gone"}
	ast.DeleteTree(v)

	dv := runCount(test.NewFixture().Netlist, mode{})
	require.Panics(t, func() { dv.inc(v, 1) })
}

// ----------------------------------------------------------------------------
// End-to-end scenarios
// ----------------------------------------------------------------------------

func TestDeadModules_RemovesUnreferencedModule(t *testing.T) {
	f := test.NewFixture()
	f.Module("a", 2)
	b := f.Module("b", 3)

	DeadModules(f.Netlist, quiet())

	assert.Equal(t, []string{"a"}, f.Survivors())
	assert.True(t, ast.Deleted(b))
	assertNoDangling(t, f.Netlist)
}

func TestDeadModules_KeepsTopAndWrapper(t *testing.T) {
	f := test.NewFixture()
	f.Module("wrapper", 1)
	f.Module("top", 2)

	DeadModules(f.Netlist, quiet())

	assert.Equal(t, []string{"wrapper", "top"}, f.Survivors())
}

func TestDeadModules_KeepsInternalModule(t *testing.T) {
	f := test.NewFixture()
	f.Module("top", 2)
	m := &ast.Module{Name: "cfg", Level: 3, Internal: true}
	f.Netlist.AddModule(m)

	DeadModules(f.Netlist, quiet())

	assert.Equal(t, []string{"top", "cfg"}, f.Survivors())
}

func TestDeadAllScoped_RemovesUnreferencedTempVar(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	s := f.Scope(top, "TOP", nil, true)
	v := f.TempVar(top, "t0")
	vs := f.VarScope(s, v)

	DeadAllScoped(f.Netlist, quiet())

	assert.True(t, ast.Deleted(v))
	assert.True(t, ast.Deleted(vs))
	assert.Equal(t, []string{"top"}, f.Survivors())
	assertNoDangling(t, f.Netlist)
}

func TestDeadAll_PublicVarSurvivesAndPinsPackage(t *testing.T) {
	f := test.NewFixture()
	f.Module("top", 2)
	pkg := f.Package("params_pkg", 3)
	p := &ast.Var{Name: "cfg", SigPublic: true}
	p.SetDType(f.Logic32)
	pkg.AddStmt(p)
	empty := f.Package("dead_pkg", 3)

	DeadAll(f.Netlist, quiet())

	assert.False(t, ast.Deleted(p))
	assert.Equal(t, []string{"top", "params_pkg"}, f.Survivors())
	assert.True(t, ast.Deleted(empty))
	assertNoDangling(t, f.Netlist)
}

func TestDeadDTypes_ClassSurvivesWhileMemberLive(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)

	classp := &ast.ClassDType{Name: "pair_t", Packed: true}
	lo := &ast.MemberDType{Name: "lo", Sub: f.Logic32}
	classp.AddMember(lo)
	f.Netlist.Types.AddDType(classp)

	// A live variable typed directly by the member keeps the whole
	// class alive even though nothing references the class itself.
	v := f.UserVar(top, "u")
	v.SetDType(lo)

	DeadDTypes(f.Netlist, quiet())

	assert.False(t, ast.Deleted(classp))
	assert.False(t, ast.Deleted(lo))
	assertNoDangling(t, f.Netlist)
}

func TestDeadDTypes_ClassWithDeadMembersRemoved(t *testing.T) {
	f := test.NewFixture()
	f.Module("top", 2)
	classp := &ast.ClassDType{Name: "unused_t", Packed: true}
	classp.AddMember(&ast.MemberDType{Name: "lo", Sub: f.Logic32})
	f.Netlist.Types.AddDType(classp)

	DeadDTypes(f.Netlist, quiet())

	assert.True(t, ast.Deleted(classp))
	assertNoDangling(t, f.Netlist)
}

func TestDeadAll_PublicTypedefPinsPackage(t *testing.T) {
	f := test.NewFixture()
	f.Module("top", 2)
	pkg := f.Package("types_pkg", 3)
	word := ast.NewTypedef("word_t", &ast.BasicDType{Keyword: "logic", Width: 16}, true)
	pkg.AddStmt(word)

	DeadAll(f.Netlist, quiet())

	assert.False(t, ast.Deleted(word))
	assert.Equal(t, []string{"top", "types_pkg"}, f.Survivors())
	assertNoDangling(t, f.Netlist)
}

func TestDeadAll_NonPublicTypedefRemoved(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	td := ast.NewTypedef("scratch_t", &ast.BasicDType{Keyword: "logic", Width: 8}, false)
	top.AddStmt(td)

	DeadAll(f.Netlist, quiet())

	assert.True(t, ast.Deleted(td))
	assertNoDangling(t, f.Netlist)
}

func TestDeadDTypes_NonPublicTypedefKeptWithoutElimCells(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	td := ast.NewTypedef("scratch_t", &ast.BasicDType{Keyword: "logic", Width: 8}, false)
	top.AddStmt(td)

	DeadDTypes(f.Netlist, quiet())

	assert.False(t, ast.Deleted(td))
}

func TestDeadDTypesScoped_RemovesEmptyScopeChain(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	s1 := f.Scope(top, "TOP", nil, true)
	s2 := f.Scope(top, "TOP.a", s1, false)
	s3 := f.Scope(top, "TOP.a.b", s2, false)

	// s2 is initially held by s3's above link; both unwind through the
	// fixed-point retry.
	DeadDTypesScoped(f.Netlist, quiet())

	assert.False(t, ast.Deleted(s1))
	assert.True(t, ast.Deleted(s2))
	assert.True(t, ast.Deleted(s3))
	assertNoDangling(t, f.Netlist)
}

func TestDeadDTypes_EmptyScopeKeptWithoutElimScopes(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	s1 := f.Scope(top, "TOP", nil, true)
	s2 := f.Scope(top, "TOP.a", s1, false)

	DeadDTypes(f.Netlist, quiet())

	assert.False(t, ast.Deleted(s2))
}

func TestDeadDTypesScoped_ScopeHeldByCFuncSurvives(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	s1 := f.Scope(top, "TOP", nil, true)
	s2 := f.Scope(top, "TOP.a", s1, false)
	fn := &ast.CFunc{Name: "_eval", Scope: s2}
	s1.AddBlock(fn)

	DeadDTypesScoped(f.Netlist, quiet())

	assert.False(t, ast.Deleted(s2))
}

func TestDeadAllScoped_SimpleAssignDiesWithTarget(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	s := f.Scope(top, "TOP", nil, true)
	v := f.TempVar(top, "t0")
	vs := f.VarScope(s, v)

	fn := &ast.CFunc{Name: "_eval", Scope: s}
	s.AddBlock(fn)
	assign := ast.NewAssign(ast.NewVarRef(vs, true), &ast.Const{Num: 1, Width: 32}, f.Logic32)
	fn.AddStmt(assign)

	DeadAllScoped(f.Netlist, quiet())

	assert.True(t, ast.Deleted(assign))
	assert.True(t, ast.Deleted(vs))
	assert.True(t, ast.Deleted(v))
	assert.False(t, ast.Deleted(fn))
	assertNoDangling(t, f.Netlist)
}

func TestDeadAllScoped_AssignWithSideEffectSurvives(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	s := f.Scope(top, "TOP", nil, true)
	v := f.TempVar(top, "t0")
	vs := f.VarScope(s, v)

	fn := &ast.CFunc{Name: "_eval", Scope: s}
	s.AddBlock(fn)
	// The RHS prints, so removing the assignment would drop output.
	rhs := &ast.FTaskRef{Name: "side"}
	rhs.AddArg(ast.NewDisplay("%m"))
	assign := ast.NewAssign(ast.NewVarRef(vs, true), rhs, f.Logic32)
	fn.AddStmt(assign)

	DeadAllScoped(f.Netlist, quiet())

	assert.False(t, ast.Deleted(assign))
	assert.False(t, ast.Deleted(vs))
	assertNoDangling(t, f.Netlist)
}

func TestDeadAllScoped_PartSelectWriteIsAUse(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	s := f.Scope(top, "TOP", nil, true)
	v := f.TempVar(top, "t0")
	vs := f.VarScope(s, v)

	fn := &ast.CFunc{Name: "_eval", Scope: s}
	s.AddBlock(fn)
	lhs := ast.NewSel(ast.NewVarRef(vs, true), 0, 8, f.Logic32)
	assign := ast.NewAssign(lhs, &ast.Const{Num: 1, Width: 8}, f.Logic32)
	fn.AddStmt(assign)

	DeadAllScoped(f.Netlist, quiet())

	assert.False(t, ast.Deleted(assign))
	assert.False(t, ast.Deleted(vs))
	assert.False(t, ast.Deleted(v))
}

func TestDeadAllScoped_ReadReferenceKeepsVar(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	s := f.Scope(top, "TOP", nil, true)
	v := f.TempVar(top, "t0")
	vs := f.VarScope(s, v)

	fn := &ast.CFunc{Name: "_eval", Scope: s}
	s.AddBlock(fn)
	fn.AddStmt(ast.NewDisplay("%x", ast.NewVarRef(vs, false)))

	DeadAllScoped(f.Netlist, quiet())

	assert.False(t, ast.Deleted(v))
	assert.False(t, ast.Deleted(vs))
}

// ----------------------------------------------------------------------------
// Cells, modports, packages
// ----------------------------------------------------------------------------

func TestDeadAll_CellToEmptyModuleRemoved(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	empty := f.Module("empty", 3)
	cell := f.Cell(top, "u_empty", empty)

	DeadAll(f.Netlist, quiet())

	assert.True(t, ast.Deleted(cell))
	assert.True(t, ast.Deleted(empty))
	assert.Equal(t, []string{"top"}, f.Survivors())
	assertNoDangling(t, f.Netlist)
}

func TestDeadModules_CellPinsTargetWithoutElimCells(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	empty := f.Module("empty", 3)
	cell := f.Cell(top, "u_empty", empty)

	DeadModules(f.Netlist, quiet())

	assert.False(t, ast.Deleted(cell))
	assert.False(t, ast.Deleted(empty))
}

func TestDeadAll_NonEmptyCellTargetKept(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	sub := f.Module("sub", 3)
	// The var must survive the var sweep, which runs first; an
	// eliminable var would leave the module empty by cell-sweep time.
	keep := &ast.Var{Name: "keep", SigPublic: true}
	keep.SetDType(f.Logic32)
	sub.AddStmt(keep)
	cell := f.Cell(top, "u_sub", sub)

	DeadAll(f.Netlist, quiet())

	assert.False(t, ast.Deleted(cell))
	assert.False(t, ast.Deleted(sub))
}

func TestDeadModules_CascadeThroughGenerateBlock(t *testing.T) {
	f := test.NewFixture()
	f.Module("top", 2)
	a := f.Module("a", 3)
	b := f.Module("b", 3)
	f.TempVar(b, "t0")

	// The cell sits below a generate block, and next to expression
	// nodes the cleanup walk skips over.
	gen := &ast.Begin{Name: "genblk1"}
	a.AddStmt(gen)
	cell := &ast.Cell{Name: "u_b", Mod: b}
	gen.AddStmt(cell)
	gen.AddStmt(ast.NewDisplay("%d", &ast.Const{Num: 7, Width: 32}))

	DeadModules(f.Netlist, quiet())

	assert.True(t, ast.Deleted(a))
	assert.True(t, ast.Deleted(b), "b's only cell died with a")
	assert.Equal(t, []string{"top"}, f.Survivors())
}

func TestModportRemovedOnlyWithElimCells(t *testing.T) {
	build := func() (*test.Fixture, *ast.Modport) {
		f := test.NewFixture()
		iface := f.Module("bus_if", 2)
		mp := &ast.Modport{Name: "mon"}
		iface.AddStmt(mp)
		return f, mp
	}

	f, mp := build()
	DeadDTypes(f.Netlist, quiet())
	assert.False(t, ast.Deleted(mp))

	f, mp = build()
	DeadAll(f.Netlist, quiet())
	assert.True(t, ast.Deleted(mp))
}

func TestModportWithVarsKept(t *testing.T) {
	f := test.NewFixture()
	iface := f.Module("bus_if", 2)
	// Modport listings are not counted references, so the var must be
	// a port to outlive the var sweep.
	v := &ast.Var{Name: "req", IO: true}
	v.SetDType(f.Logic32)
	iface.AddStmt(v)
	mp := &ast.Modport{Name: "mon"}
	mp.AddVar(&ast.ModportVarRef{Name: "req", Var: v})
	iface.AddStmt(mp)

	DeadAll(f.Netlist, quiet())

	assert.False(t, ast.Deleted(mp))
	assert.False(t, ast.Deleted(v))
}

func TestPackageBackPointerScrubbedOnlyWithElimCells(t *testing.T) {
	build := func() (*test.Fixture, *ast.VarRef, *ast.Module) {
		f := test.NewFixture()
		top := f.Module("top", 2)
		pkg := f.Package("pkg", 3)
		s := f.Scope(top, "TOP", nil, true)
		v := f.UserVar(top, "x")
		vs := f.VarScope(s, v)
		fn := &ast.CFunc{Name: "_eval", Scope: s}
		s.AddBlock(fn)
		ref := ast.NewVarRef(vs, false)
		ref.Pkg = pkg
		fn.AddStmt(ast.NewDisplay("%x", ref))
		return f, ref, pkg
	}

	// Without cell elimination the link is a real use and pins the
	// package.
	f, ref, pkg := build()
	DeadDTypes(f.Netlist, quiet())
	assert.NotNil(t, ref.Pkg)
	assert.False(t, ast.Deleted(pkg))

	// With cell elimination the redundant link is cleared and the
	// package has nothing else keeping it.
	f, ref, pkg = build()
	DeadAll(f.Netlist, quiet())
	assert.Nil(t, ref.Pkg)
	assert.True(t, ast.Deleted(pkg))
	assertNoDangling(t, f.Netlist)
}

func TestEnumItemRefPinsPackageWithoutElimCells(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	pkg := f.Package("state_pkg", 3)
	b := &ast.Begin{Name: "blk"}
	top.AddStmt(b)
	ref := &ast.EnumItemRef{Name: "IDLE", Pkg: pkg}
	b.AddStmt(ref)

	DeadDTypes(f.Netlist, quiet())

	assert.False(t, ast.Deleted(pkg))
	assert.NotNil(t, ref.Pkg)
}

// ----------------------------------------------------------------------------
// Data types through references
// ----------------------------------------------------------------------------

func TestDeadDTypes_UnusedBasicRemoved(t *testing.T) {
	f := test.NewFixture()
	f.Module("top", 2)
	unused := f.Netlist.Types.FindBasic("bit", 8)

	DeadDTypes(f.Netlist, quiet())

	assert.True(t, ast.Deleted(unused))
}

func TestDeadDTypes_RefTargetRetainedConservatively(t *testing.T) {
	// Deleting a data type does not release the types it refers to;
	// the single-pass sweep leaves the target for a later run rather
	// than chasing chains.
	f := test.NewFixture()
	top := f.Module("top", 2)
	baseT := f.Netlist.Types.FindBasic("bit", 8)
	refT := &ast.RefDType{Name: "byte_t", To: baseT}
	f.Netlist.Types.AddDType(refT)

	v := f.TempVar(top, "t0")
	v.SetDType(refT)

	DeadDTypes(f.Netlist, quiet())

	assert.True(t, ast.Deleted(v))
	assert.True(t, ast.Deleted(refT))
	assert.False(t, ast.Deleted(baseT))
	assertNoDangling(t, f.Netlist)
}

func TestTypeTableCacheRepairedAfterPass(t *testing.T) {
	f := test.NewFixture()
	top := f.Module("top", 2)
	f.UserVar(top, "keep") // holds Logic32

	DeadDTypes(f.Netlist, quiet())

	// A repaired cache serves the surviving type without growth.
	n := len(f.Netlist.Types.Types)
	got := f.Netlist.Types.FindBasic("logic", 32)
	assert.Same(t, f.Logic32, got)
	assert.Equal(t, n, len(f.Netlist.Types.Types))
}

// ----------------------------------------------------------------------------
// Whole-pass properties
// ----------------------------------------------------------------------------

// richNetlist builds a design exercising every entity class: packages,
// typedefs, scope chains, live and dead vars, assigns, cells, class
// types and package-qualified references.
func richNetlist() *test.Fixture {
	f := test.NewFixture()
	top := f.Module("top", 2)
	sub := f.Module("sub", 3)
	orphan := f.Module("orphan", 3)
	pkg := f.Package("pkg", 3)

	pub := &ast.Var{Name: "pub", SigPublic: true}
	pub.SetDType(f.Logic32)
	pkg.AddStmt(pub)
	pkg.AddStmt(ast.NewTypedef("word_t", &ast.BasicDType{Keyword: "logic", Width: 16}, true))

	f.Cell(top, "u_sub", sub)
	ready := &ast.Var{Name: "ready", SigPublic: true}
	ready.SetDType(f.Logic32)
	sub.AddStmt(ready)
	f.TempVar(orphan, "dead_t")

	s1 := f.Scope(top, "TOP", nil, true)
	s2 := f.Scope(top, "TOP.sub", s1, false)
	_ = f.Scope(top, "TOP.empty", s1, false)

	live := f.UserVar(top, "live")
	liveVS := f.VarScope(s1, live)
	deadv := f.TempVar(top, "dead")
	deadVS := f.VarScope(s1, deadv)

	classp := &ast.ClassDType{Name: "pair_t", Packed: true}
	classp.AddMember(&ast.MemberDType{Name: "lo", Sub: f.Logic32})
	f.Netlist.Types.AddDType(classp)

	fn := &ast.CFunc{Name: "_eval", Scope: s2}
	s2.AddBlock(fn)
	readRef := ast.NewVarRef(liveVS, false)
	readRef.Pkg = pkg
	fn.AddStmt(ast.NewDisplay("%x", readRef))
	fn.AddStmt(ast.NewAssign(ast.NewVarRef(deadVS, true), &ast.Const{Num: 0, Width: 32}, f.Logic32))
	fn.AddStmt(ast.NewAssign(ast.NewVarRef(liveVS, true),
		ast.NewBinaryOp("add", &ast.Const{Num: 1, Width: 32}, ast.NewVarRef(liveVS, false), f.Logic32),
		f.Logic32))

	return f
}

func TestDeadAllScoped_RichNetlist(t *testing.T) {
	f := richNetlist()

	DeadAllScoped(f.Netlist, quiet())

	assert.Equal(t, []string{"top", "sub", "pkg"}, f.Survivors())
	assertNoDangling(t, f.Netlist)
}

func TestIdempotence(t *testing.T) {
	entries := map[string]func(*ast.Netlist, *config.Options){
		"modules":       DeadModules,
		"dtypes":        DeadDTypes,
		"dtypes-scoped": DeadDTypesScoped,
		"all":           DeadAll,
		"all-scoped":    DeadAllScoped,
	}
	for name, entry := range entries {
		t.Run(name, func(t *testing.T) {
			f := richNetlist()
			entry(f.Netlist, quiet())
			after := ast.CountNodes(f.Netlist)

			entry(f.Netlist, quiet())
			assert.Equal(t, after, ast.CountNodes(f.Netlist),
				"second run must delete nothing")
			assertNoDangling(t, f.Netlist)
		})
	}
}

func TestModeMonotonicity(t *testing.T) {
	survivors := func(entry func(*ast.Netlist, *config.Options)) int {
		f := richNetlist()
		entry(f.Netlist, quiet())
		return ast.CountNodes(f.Netlist)
	}

	modules := survivors(DeadModules)
	dtypes := survivors(DeadDTypes)
	dtypesScoped := survivors(DeadDTypesScoped)
	allScoped := survivors(DeadAllScoped)

	assert.GreaterOrEqual(t, modules, dtypes)
	assert.GreaterOrEqual(t, dtypes, dtypesScoped)
	assert.GreaterOrEqual(t, dtypesScoped, allScoped)
}

func TestRandomizedNetlists(t *testing.T) {
	fake := gofakeit.New(20170403)

	for trial := 0; trial < 25; trial++ {
		trial := trial
		t.Run(fmt.Sprintf("trial%02d", trial), func(t *testing.T) {
			// The design is flattened: scopes, vars and references all
			// live under the top module; the other modules carry only
			// cells and statements.
			f := test.NewFixture()
			top := f.Module("top", 2)
			topScope := f.Scope(top, "TOP", nil, true)

			scopes := []*ast.Scope{topScope}
			for i, n := 0, fake.Number(0, 4); i < n; i++ {
				above := scopes[fake.Number(0, len(scopes)-1)]
				scopes = append(scopes, f.Scope(top, fmt.Sprintf("TOP.s%d", i), above, false))
			}

			mods := []*ast.Module{top}
			for i, n := 0, fake.Number(1, 5); i < n; i++ {
				name := fmt.Sprintf("m%d_%s", i, strings.ToLower(fake.LetterN(4)))
				mods = append(mods, f.Module(name, fake.Number(3, 5)))
			}

			// Random instantiation edges, possibly leaving orphans.
			// Every submodule keeps a statement so none of them decays
			// to empty between runs.
			for i, m := range mods[1:] {
				if fake.Bool() {
					from := mods[fake.Number(0, i)]
					f.Cell(from, fmt.Sprintf("u%d", i), m)
				}
				m.AddStmt(ast.NewDisplay("%d", &ast.Const{Num: uint64(i), Width: 32}))
			}

			var vss []*ast.VarScope
			for i, n := 0, fake.Number(1, 8); i < n; i++ {
				v := f.TempVar(top, fmt.Sprintf("t%d", i))
				if fake.Bool() {
					vss = append(vss, f.VarScope(topScope, v))
				}
			}
			for i, vs := range vss {
				if fake.Bool() {
					b := &ast.Begin{Name: fmt.Sprintf("blk%d", i)}
					top.AddStmt(b)
					b.AddStmt(ast.NewDisplay("%x", ast.NewVarRef(vs, false)))
				}
			}

			DeadAllScoped(f.Netlist, quiet())
			assertNoDangling(t, f.Netlist)

			after := ast.CountNodes(f.Netlist)
			DeadAllScoped(f.Netlist, quiet())
			assert.Equal(t, after, ast.CountNodes(f.Netlist))
		})
	}
}
