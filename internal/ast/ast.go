// Package ast defines the netlist AST for the svtnt mid-end.
//
// The tree is built by the front-end passes (parse, elaborate, link, scope)
// and transformed in place by the mid-end passes. Nodes are plain structs
// behind a sealed Node interface; passes dispatch on kind with a type
// switch rather than a visitor hierarchy.
package ast

import "fmt"

// ----------------------------------------------------------------------------
// Node interface
// ----------------------------------------------------------------------------

// Node is implemented by every netlist entity. The interface is sealed:
// only types in this package can satisfy it, which keeps the tree surgery
// invariants enforceable in one place.
type Node interface {
	// DType returns the node's resolved data type, nil if none.
	// Data type nodes return themselves.
	DType() DType

	// ChildDType returns a data type owned underneath the node (set
	// before width resolution), nil if none.
	ChildDType() DType

	// IsOutputter reports whether the node has an externally observable
	// effect when executed ($display, $finish).
	IsOutputter() bool

	parent() Node
	setParent(Node)
	forEachChild(fn func(Node))
	removeChild(c Node) bool
	markDeleted()
	isDeleted() bool
}

// base carries the state shared by all nodes.
type base struct {
	up   Node
	typ  DType
	dead bool
}

func (b *base) DType() DType            { return b.typ }
func (b *base) ChildDType() DType       { return nil }
func (b *base) IsOutputter() bool       { return false }
func (b *base) parent() Node            { return b.up }
func (b *base) setParent(p Node)        { b.up = p }
func (b *base) forEachChild(func(Node)) {}
func (b *base) removeChild(Node) bool   { return false }
func (b *base) markDeleted()            { b.dead = true }
func (b *base) isDeleted() bool         { return b.dead }

// SetDType sets the node's resolved data type edge.
func (b *base) SetDType(t DType) { b.typ = t }

// Parent returns the node's parent, nil for an unlinked node or the root.
func Parent(n Node) Node { return n.parent() }

// Deleted reports whether the node has been disposed by DeleteTree.
func Deleted(n Node) bool { return n.isDeleted() }

// ForEachChild calls fn for every direct child of n, in declaration order.
func ForEachChild(n Node, fn func(Node)) { n.forEachChild(fn) }

// ----------------------------------------------------------------------------
// Netlist and modules
// ----------------------------------------------------------------------------

// Netlist is the root of the design. It owns the module list and the
// type table holding the deduplicated data types.
type Netlist struct {
	base
	Mods  []*Module
	Types *TypeTable
}

// NewNetlist returns an empty netlist with an empty type table.
func NewNetlist() *Netlist {
	n := &Netlist{Types: NewTypeTable()}
	n.Types.setParent(n)
	return n
}

func (n *Netlist) forEachChild(fn func(Node)) {
	for _, m := range n.Mods {
		fn(m)
	}
	if n.Types != nil {
		fn(n.Types)
	}
}

func (n *Netlist) removeChild(c Node) bool {
	for i, m := range n.Mods {
		if Node(m) == c {
			n.Mods = append(n.Mods[:i], n.Mods[i+1:]...)
			return true
		}
	}
	if n.Types != nil && Node(n.Types) == c {
		n.Types = nil
		return true
	}
	return false
}

// AddModule appends m to the design's module list.
func (n *Netlist) AddModule(m *Module) {
	m.setParent(n)
	n.Mods = append(n.Mods, m)
}

// Module is an HDL module or package. Level 1 is the generated wrapper,
// level 2 the top user module, 3 and deeper are instantiated below it.
type Module struct {
	base
	Name      string
	Level     int
	Internal  bool
	IsPackage bool
	Stmts     []Node
}

func (m *Module) forEachChild(fn func(Node)) {
	// Snapshot so fn may unlink the child it was handed.
	for _, s := range append([]Node(nil), m.Stmts...) {
		fn(s)
	}
}

func (m *Module) removeChild(c Node) bool { return removeFromNodes(&m.Stmts, c) }

// AddStmt appends statement-level children (vars, scopes, cells, ...).
func (m *Module) AddStmt(kids ...Node) {
	for _, k := range kids {
		k.setParent(m)
		m.Stmts = append(m.Stmts, k)
	}
}

// Cell instantiates a module inside another module.
type Cell struct {
	base
	Name string
	Mod  *Module // instantiated module
}

// ----------------------------------------------------------------------------
// Scopes and variables
// ----------------------------------------------------------------------------

// Scope is a flattened instance context created by the scoping pass.
// Its children are the variable instances, the logic blocks and the
// final-block clock trees that live in the instance.
type Scope struct {
	base
	Name      string
	Above     *Scope // enclosing scope, nil for the top scope
	IsTop     bool
	Vars      []*VarScope
	Blocks    []Node
	FinalClks []Node
}

func (s *Scope) forEachChild(fn func(Node)) {
	for _, v := range s.Vars {
		fn(v)
	}
	for _, b := range s.Blocks {
		fn(b)
	}
	for _, f := range s.FinalClks {
		fn(f)
	}
}

func (s *Scope) removeChild(c Node) bool {
	for i, v := range s.Vars {
		if Node(v) == c {
			s.Vars = append(s.Vars[:i], s.Vars[i+1:]...)
			return true
		}
	}
	if removeFromNodes(&s.Blocks, c) {
		return true
	}
	return removeFromNodes(&s.FinalClks, c)
}

// AddVarScope appends a variable instance to the scope.
func (s *Scope) AddVarScope(vs *VarScope) {
	vs.setParent(s)
	s.Vars = append(s.Vars, vs)
}

// AddBlock appends logic blocks to the scope.
func (s *Scope) AddBlock(kids ...Node) {
	for _, k := range kids {
		k.setParent(s)
		s.Blocks = append(s.Blocks, k)
	}
}

// AddFinalClk appends final-block clock trees to the scope.
func (s *Scope) AddFinalClk(kids ...Node) {
	for _, k := range kids {
		k.setParent(s)
		s.FinalClks = append(s.FinalClks, k)
	}
}

// VarScope is one variable instantiated within one scope. The scope and
// var links are references, not ownership.
type VarScope struct {
	base
	Scope *Scope
	Var   *Var
}

// Var is a variable declaration.
type Var struct {
	base
	Name      string
	SigPublic bool // visible through the user API
	IO        bool // port of its module
	Temp      bool // compiler-generated temporary
	Param     bool // elaboration parameter
	Trace     bool // referenced by the trace harness
	Child     DType
}

func (v *Var) ChildDType() DType { return v.Child }

func (v *Var) forEachChild(fn func(Node)) {
	if v.Child != nil {
		fn(v.Child)
	}
}

func (v *Var) removeChild(c Node) bool {
	if v.Child != nil && Node(v.Child) == c {
		v.Child = nil
		return true
	}
	return false
}

// SetChildDType sets the owned pre-width data type under the var.
func (v *Var) SetChildDType(t DType) {
	if t != nil {
		t.setParent(v)
	}
	v.Child = t
}

// Typedef is a named type declaration. Public typedefs in packages pin
// the package alive.
type Typedef struct {
	base
	Name       string
	AttrPublic bool
	Child      DType
}

func (t *Typedef) ChildDType() DType { return t.Child }

func (t *Typedef) forEachChild(fn func(Node)) {
	if t.Child != nil {
		fn(t.Child)
	}
}

func (t *Typedef) removeChild(c Node) bool {
	if t.Child != nil && Node(t.Child) == c {
		t.Child = nil
		return true
	}
	return false
}

// NewTypedef returns a typedef owning the given type definition.
func NewTypedef(name string, child DType, attrPublic bool) *Typedef {
	t := &Typedef{Name: name, AttrPublic: attrPublic, Child: child}
	if child != nil {
		child.setParent(t)
	}
	return t
}

// Modport is an interface modport listing the variables it exposes.
// Owned by an interface module.
type Modport struct {
	base
	Name string
	Vars []Node
}

func (m *Modport) forEachChild(fn func(Node)) {
	for _, v := range m.Vars {
		fn(v)
	}
}

func (m *Modport) removeChild(c Node) bool { return removeFromNodes(&m.Vars, c) }

// AddVar appends modport variable references.
func (m *Modport) AddVar(kids ...Node) {
	for _, k := range kids {
		k.setParent(m)
		m.Vars = append(m.Vars, k)
	}
}

// ModportVarRef names a variable exposed through a modport. The var link
// is informational, not a counted reference.
type ModportVarRef struct {
	base
	Name string
	Var  *Var
}

// CFunc is a generated backend function, attached below the scope whose
// logic it implements.
type CFunc struct {
	base
	Name  string
	Scope *Scope
	Stmts []Node
}

func (f *CFunc) forEachChild(fn func(Node)) {
	// Snapshot so fn may unlink the child it was handed.
	for _, s := range append([]Node(nil), f.Stmts...) {
		fn(s)
	}
}

func (f *CFunc) removeChild(c Node) bool { return removeFromNodes(&f.Stmts, c) }

// AddStmt appends statements to the function body.
func (f *CFunc) AddStmt(kids ...Node) {
	for _, k := range kids {
		k.setParent(f)
		f.Stmts = append(f.Stmts, k)
	}
}

// Begin is a named block. Generate blocks survive as Begins, so cells may
// sit below a module through one or more of them.
type Begin struct {
	base
	Name  string
	Stmts []Node
}

func (b *Begin) forEachChild(fn func(Node)) {
	// Snapshot so fn may unlink the child it was handed.
	for _, s := range append([]Node(nil), b.Stmts...) {
		fn(s)
	}
}

func (b *Begin) removeChild(c Node) bool { return removeFromNodes(&b.Stmts, c) }

// AddStmt appends statements to the block.
func (b *Begin) AddStmt(kids ...Node) {
	for _, k := range kids {
		k.setParent(b)
		b.Stmts = append(b.Stmts, k)
	}
}

// ----------------------------------------------------------------------------
// Statements and expressions
// ----------------------------------------------------------------------------

// Assign is a blocking or non-blocking assignment.
type Assign struct {
	base
	Lhs Node
	Rhs Node
}

func (a *Assign) forEachChild(fn func(Node)) {
	if a.Lhs != nil {
		fn(a.Lhs)
	}
	if a.Rhs != nil {
		fn(a.Rhs)
	}
}

func (a *Assign) removeChild(c Node) bool {
	if a.Lhs != nil && a.Lhs == c {
		a.Lhs = nil
		return true
	}
	if a.Rhs != nil && a.Rhs == c {
		a.Rhs = nil
		return true
	}
	return false
}

// NewAssign builds an assignment of rhs to lhs with the given result type.
func NewAssign(lhs, rhs Node, typ DType) *Assign {
	a := &Assign{Lhs: lhs, Rhs: rhs}
	if lhs != nil {
		lhs.setParent(a)
	}
	if rhs != nil {
		rhs.setParent(a)
	}
	a.SetDType(typ)
	return a
}

// VarRef is a read or write reference to a variable, resolved to its
// VarScope after the scoping pass.
type VarRef struct {
	base
	Name     string
	Var      *Var
	VarScope *VarScope
	Pkg      *Module // package the name was imported through, if any
	Write    bool
}

func (*VarRef) mathNode() {}

// NewVarRef builds a reference to vs's variable within vs's scope.
func NewVarRef(vs *VarScope, write bool) *VarRef {
	r := &VarRef{Name: vs.Var.Name, Var: vs.Var, VarScope: vs, Write: write}
	r.SetDType(vs.DType())
	return r
}

// FTaskRef is a call to a function or task.
type FTaskRef struct {
	base
	Name string
	Pkg  *Module
	Args []Node
}

func (f *FTaskRef) forEachChild(fn func(Node)) {
	for _, a := range f.Args {
		fn(a)
	}
}

func (f *FTaskRef) removeChild(c Node) bool { return removeFromNodes(&f.Args, c) }

// AddArg appends call arguments.
func (f *FTaskRef) AddArg(kids ...Node) {
	for _, k := range kids {
		k.setParent(f)
		f.Args = append(f.Args, k)
	}
}

// EnumItemRef references one item of an enum, possibly through a package.
type EnumItemRef struct {
	base
	Name string
	Pkg  *Module
}

func (*EnumItemRef) mathNode() {}

// Const is a constant value.
type Const struct {
	base
	Num   uint64
	Width int
}

func (*Const) mathNode() {}

// BinaryOp is a two-operand arithmetic or logical expression.
type BinaryOp struct {
	base
	Op  string
	Lhs Node
	Rhs Node
}

func (*BinaryOp) mathNode() {}

func (b *BinaryOp) forEachChild(fn func(Node)) {
	if b.Lhs != nil {
		fn(b.Lhs)
	}
	if b.Rhs != nil {
		fn(b.Rhs)
	}
}

func (b *BinaryOp) removeChild(c Node) bool {
	if b.Lhs != nil && b.Lhs == c {
		b.Lhs = nil
		return true
	}
	if b.Rhs != nil && b.Rhs == c {
		b.Rhs = nil
		return true
	}
	return false
}

// NewBinaryOp builds a binary expression.
func NewBinaryOp(op string, lhs, rhs Node, typ DType) *BinaryOp {
	b := &BinaryOp{Op: op, Lhs: lhs, Rhs: rhs}
	if lhs != nil {
		lhs.setParent(b)
	}
	if rhs != nil {
		rhs.setParent(b)
	}
	b.SetDType(typ)
	return b
}

// UnaryOp is a one-operand expression.
type UnaryOp struct {
	base
	Op      string
	Operand Node
}

func (*UnaryOp) mathNode() {}

func (u *UnaryOp) forEachChild(fn func(Node)) {
	if u.Operand != nil {
		fn(u.Operand)
	}
}

func (u *UnaryOp) removeChild(c Node) bool {
	if u.Operand != nil && u.Operand == c {
		u.Operand = nil
		return true
	}
	return false
}

// NewUnaryOp builds a unary expression.
func NewUnaryOp(op string, operand Node, typ DType) *UnaryOp {
	u := &UnaryOp{Op: op, Operand: operand}
	if operand != nil {
		operand.setParent(u)
	}
	u.SetDType(typ)
	return u
}

// Sel is a bit- or part-select of an expression. A write through a Sel is
// not a direct write to the underlying variable.
type Sel struct {
	base
	From Node
	Lsb  int
	Bits int
}

func (*Sel) mathNode() {}

func (s *Sel) forEachChild(fn func(Node)) {
	if s.From != nil {
		fn(s.From)
	}
}

func (s *Sel) removeChild(c Node) bool {
	if s.From != nil && s.From == c {
		s.From = nil
		return true
	}
	return false
}

// NewSel builds a part-select over from.
func NewSel(from Node, lsb, bits int, typ DType) *Sel {
	s := &Sel{From: from, Lsb: lsb, Bits: bits}
	if from != nil {
		from.setParent(s)
	}
	s.SetDType(typ)
	return s
}

// Display is a $display-style system call: an outputter.
type Display struct {
	base
	Text string
	Args []Node
}

func (*Display) IsOutputter() bool { return true }

func (d *Display) forEachChild(fn func(Node)) {
	for _, a := range d.Args {
		fn(a)
	}
}

func (d *Display) removeChild(c Node) bool { return removeFromNodes(&d.Args, c) }

// NewDisplay builds a $display call.
func NewDisplay(text string, args ...Node) *Display {
	d := &Display{Text: text}
	for _, a := range args {
		a.setParent(d)
		d.Args = append(d.Args, a)
	}
	return d
}

// Finish is a $finish system call: an outputter.
type Finish struct {
	base
}

func (*Finish) IsOutputter() bool { return true }

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// mathNoder marks expression nodes: constants, operators, selects and
// references. Pass logic uses the marker to short-circuit expression
// subtrees it does not care about.
type mathNoder interface {
	mathNode()
}

// IsMath reports whether n belongs to the expression node family.
func IsMath(n Node) bool {
	_, ok := n.(mathNoder)
	return ok
}

func removeFromNodes(list *[]Node, c Node) bool {
	for i, n := range *list {
		if n == c {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// Describe returns a short human-readable description of n for debug
// output and internal errors.
func Describe(n Node) string {
	switch n := n.(type) {
	case *Netlist:
		return "NETLIST"
	case *Module:
		kind := "MODULE"
		if n.IsPackage {
			kind = "PACKAGE"
		}
		return fmt.Sprintf("%s '%s' l%d", kind, n.Name, n.Level)
	case *Cell:
		return fmt.Sprintf("CELL '%s' -> '%s'", n.Name, n.Mod.Name)
	case *Scope:
		return fmt.Sprintf("SCOPE '%s'", n.Name)
	case *VarScope:
		return fmt.Sprintf("VARSCOPE '%s.%s'", n.Scope.Name, n.Var.Name)
	case *Var:
		return fmt.Sprintf("VAR '%s'", n.Name)
	case *Typedef:
		return fmt.Sprintf("TYPEDEF '%s'", n.Name)
	case *Modport:
		return fmt.Sprintf("MODPORT '%s'", n.Name)
	case *ModportVarRef:
		return fmt.Sprintf("MODPORTVARREF '%s'", n.Name)
	case *CFunc:
		return fmt.Sprintf("CFUNC '%s'", n.Name)
	case *Begin:
		return fmt.Sprintf("BEGIN '%s'", n.Name)
	case *Assign:
		return "ASSIGN"
	case *VarRef:
		return fmt.Sprintf("VARREF '%s'", n.Name)
	case *FTaskRef:
		return fmt.Sprintf("FTASKREF '%s'", n.Name)
	case *EnumItemRef:
		return fmt.Sprintf("ENUMITEMREF '%s'", n.Name)
	case *Const:
		return fmt.Sprintf("CONST %d'd%d", n.Width, n.Num)
	case *BinaryOp:
		return fmt.Sprintf("BINOP '%s'", n.Op)
	case *UnaryOp:
		return fmt.Sprintf("UNOP '%s'", n.Op)
	case *Sel:
		return "SEL"
	case *Display:
		return "DISPLAY"
	case *Finish:
		return "FINISH"
	case *TypeTable:
		return "TYPETABLE"
	case DType:
		return describeDType(n)
	default:
		return fmt.Sprintf("%T", n)
	}
}
