// Package netio reads and writes netlists as JSON.
//
// The format is a nested edge list: shared data types are declared once
// under "types" and referenced by id, owned data types are inlined,
// cross links (cells to modules, references to variables and scopes)
// are written as names. Decoding runs in two passes: the first builds
// every node, the second resolves the name links, so declaration order
// in the file does not matter.
package netio

import (
	"encoding/json"
	"fmt"

	"github.com/mballance/verilator-svtnt/internal/ast"
)

// ----------------------------------------------------------------------------
// Wire form
// ----------------------------------------------------------------------------

type fileJSON struct {
	Types   []*typeJSON   `json:"types,omitempty"`
	Modules []*moduleJSON `json:"modules"`
}

type typeJSON struct {
	ID      string          `json:"id,omitempty"`
	Kind    string          `json:"kind"`
	Keyword string          `json:"keyword,omitempty"`
	Width   int             `json:"width,omitempty"`
	Generic bool            `json:"generic,omitempty"`
	Name    string          `json:"name,omitempty"`
	To      string          `json:"to,omitempty"`
	Sub     string          `json:"sub,omitempty"`
	Pkg     string          `json:"pkg,omitempty"`
	Packed  bool            `json:"packed,omitempty"`
	Members []*memberJSON   `json:"members,omitempty"`
	Items   []*enumItemJSON `json:"items,omitempty"`
}

type memberJSON struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Sub  string `json:"sub,omitempty"`
}

type enumItemJSON struct {
	Name string `json:"name"`
	Val  uint64 `json:"val,omitempty"`
}

type moduleJSON struct {
	Name     string      `json:"name"`
	Level    int         `json:"level"`
	Internal bool        `json:"internal,omitempty"`
	Package  bool        `json:"package,omitempty"`
	Stmts    []*nodeJSON `json:"stmts,omitempty"`
}

// nodeJSON is the union of all statement and expression encodings,
// discriminated by Kind.
type nodeJSON struct {
	Kind  string `json:"kind"`
	Name  string `json:"name,omitempty"`
	DType string `json:"dtype,omitempty"`

	// var
	SigPublic  bool      `json:"sigPublic,omitempty"`
	IO         bool      `json:"io,omitempty"`
	Temp       bool      `json:"temp,omitempty"`
	Param      bool      `json:"param,omitempty"`
	Trace      bool      `json:"trace,omitempty"`
	ChildDType *typeJSON `json:"childDType,omitempty"`

	// typedef
	AttrPublic bool `json:"attrPublic,omitempty"`

	// scope
	Above     string      `json:"above,omitempty"`
	Top       bool        `json:"top,omitempty"`
	Vars      []*nodeJSON `json:"vars,omitempty"`
	Blocks    []*nodeJSON `json:"blocks,omitempty"`
	FinalClks []*nodeJSON `json:"finalClks,omitempty"`

	// varscope
	Scope string `json:"scope,omitempty"`
	Var   string `json:"var,omitempty"`

	// cell
	Mod string `json:"mod,omitempty"`

	// cfunc, begin, display args, ftaskref args
	Stmts []*nodeJSON `json:"stmts,omitempty"`
	Args  []*nodeJSON `json:"args,omitempty"`

	// assign
	Lhs *nodeJSON `json:"lhs,omitempty"`
	Rhs *nodeJSON `json:"rhs,omitempty"`

	// references
	VarScope string `json:"varscope,omitempty"`
	Pkg      string `json:"pkg,omitempty"`
	Write    bool   `json:"write,omitempty"`

	// const
	Num   uint64 `json:"num,omitempty"`
	Width int    `json:"width,omitempty"`

	// operators and selects
	Op      string    `json:"op,omitempty"`
	Operand *nodeJSON `json:"operand,omitempty"`
	From    *nodeJSON `json:"from,omitempty"`
	Lsb     int       `json:"lsb,omitempty"`
	Bits    int       `json:"bits,omitempty"`

	// display
	Text string `json:"text,omitempty"`
}

// ----------------------------------------------------------------------------
// Decoding
// ----------------------------------------------------------------------------

type decoder struct {
	nl        *ast.Netlist
	types     map[string]ast.DType
	mods      map[string]*ast.Module
	scopes    map[string]*ast.Scope
	vars      map[string]*ast.Var
	varscopes map[string]*ast.VarScope
	fixups    []func() error
}

// Decode builds a netlist from its JSON form.
func Decode(data []byte) (*ast.Netlist, error) {
	var file fileJSON
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("netio: %w", err)
	}

	d := &decoder{
		nl:        ast.NewNetlist(),
		types:     make(map[string]ast.DType),
		mods:      make(map[string]*ast.Module),
		scopes:    make(map[string]*ast.Scope),
		vars:      make(map[string]*ast.Var),
		varscopes: make(map[string]*ast.VarScope),
	}

	// Pass 1: build every node and remember its name.
	for _, mj := range file.Modules {
		m := &ast.Module{
			Name:      mj.Name,
			Level:     mj.Level,
			Internal:  mj.Internal,
			IsPackage: mj.Package,
		}
		if _, dup := d.mods[m.Name]; dup {
			return nil, fmt.Errorf("netio: duplicate module %q", m.Name)
		}
		d.mods[m.Name] = m
		d.nl.AddModule(m)
	}
	for _, tj := range file.Types {
		t, err := d.buildType(tj, true)
		if err != nil {
			return nil, err
		}
		d.nl.Types.AddDType(t)
	}
	for _, mj := range file.Modules {
		m := d.mods[mj.Name]
		for _, sj := range mj.Stmts {
			n, err := d.buildNode(sj)
			if err != nil {
				return nil, err
			}
			m.AddStmt(n)
		}
	}

	// Pass 2: resolve name links.
	for _, fix := range d.fixups {
		if err := fix(); err != nil {
			return nil, err
		}
	}

	return d.nl, nil
}

func (d *decoder) registerType(id string, t ast.DType) error {
	if id == "" {
		return nil
	}
	if _, dup := d.types[id]; dup {
		return fmt.Errorf("netio: duplicate type id %q", id)
	}
	d.types[id] = t
	return nil
}

// buildType constructs one data type. Shared types carry ids; inline
// (owned) types may omit them.
func (d *decoder) buildType(tj *typeJSON, shared bool) (ast.DType, error) {
	if tj.ID == "" && shared {
		return nil, fmt.Errorf("netio: shared type of kind %q lacks an id", tj.Kind)
	}

	switch tj.Kind {
	case "basic":
		t := &ast.BasicDType{Keyword: tj.Keyword, Width: tj.Width}
		t.IsGeneric = tj.Generic
		return t, d.registerType(tj.ID, t)

	case "ref":
		t := &ast.RefDType{Name: tj.Name}
		t.IsGeneric = tj.Generic
		if err := d.registerType(tj.ID, t); err != nil {
			return nil, err
		}
		to, pkg := tj.To, tj.Pkg
		d.fixups = append(d.fixups, func() error {
			if to != "" {
				sub, ok := d.types[to]
				if !ok {
					return fmt.Errorf("netio: ref type %q: unknown type %q", t.Name, to)
				}
				t.To = sub
			}
			if pkg != "" {
				p, ok := d.mods[pkg]
				if !ok {
					return fmt.Errorf("netio: ref type %q: unknown package %q", t.Name, pkg)
				}
				t.Pkg = p
			}
			return nil
		})
		return t, nil

	case "class":
		t := &ast.ClassDType{Name: tj.Name, Packed: tj.Packed}
		t.IsGeneric = tj.Generic
		if err := d.registerType(tj.ID, t); err != nil {
			return nil, err
		}
		for _, mj := range tj.Members {
			m := &ast.MemberDType{Name: mj.Name}
			if err := d.registerType(mj.ID, m); err != nil {
				return nil, err
			}
			sub := mj.Sub
			d.fixups = append(d.fixups, func() error {
				if sub == "" {
					return nil
				}
				st, ok := d.types[sub]
				if !ok {
					return fmt.Errorf("netio: member %q: unknown type %q", m.Name, sub)
				}
				m.Sub = st
				return nil
			})
			t.AddMember(m)
		}
		return t, nil

	case "enum":
		t := &ast.EnumDType{Name: tj.Name}
		t.IsGeneric = tj.Generic
		if err := d.registerType(tj.ID, t); err != nil {
			return nil, err
		}
		sub := tj.Sub
		d.fixups = append(d.fixups, func() error {
			if sub == "" {
				return nil
			}
			st, ok := d.types[sub]
			if !ok {
				return fmt.Errorf("netio: enum %q: unknown type %q", t.Name, sub)
			}
			t.Sub = st
			return nil
		})
		for _, ij := range tj.Items {
			t.AddItem(&ast.EnumItem{Name: ij.Name, Val: ij.Val})
		}
		return t, nil

	default:
		return nil, fmt.Errorf("netio: unknown type kind %q", tj.Kind)
	}
}

// linkDType defers setting a node's data type edge by id.
func (d *decoder) linkDType(set func(ast.DType), id, what string) {
	if id == "" {
		return
	}
	d.fixups = append(d.fixups, func() error {
		t, ok := d.types[id]
		if !ok {
			return fmt.Errorf("netio: %s: unknown type %q", what, id)
		}
		set(t)
		return nil
	})
}

func (d *decoder) buildNodes(njs []*nodeJSON) ([]ast.Node, error) {
	nodes := make([]ast.Node, 0, len(njs))
	for _, nj := range njs {
		n, err := d.buildNode(nj)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (d *decoder) buildNode(nj *nodeJSON) (ast.Node, error) {
	switch nj.Kind {
	case "var":
		v := &ast.Var{
			Name:      nj.Name,
			SigPublic: nj.SigPublic,
			IO:        nj.IO,
			Temp:      nj.Temp,
			Param:     nj.Param,
			Trace:     nj.Trace,
		}
		if _, dup := d.vars[v.Name]; dup {
			return nil, fmt.Errorf("netio: duplicate var %q", v.Name)
		}
		d.vars[v.Name] = v
		if t, ok := d.types[nj.DType]; ok {
			// Shared types are all built before any statement, so set
			// the edge now: varscopes and varrefs that derive their type
			// from the var then see it in pass 2 whatever the file order.
			v.SetDType(t)
		} else {
			d.linkDType(v.SetDType, nj.DType, "var "+v.Name)
		}
		if nj.ChildDType != nil {
			child, err := d.buildType(nj.ChildDType, false)
			if err != nil {
				return nil, err
			}
			v.SetChildDType(child)
		}
		return v, nil

	case "typedef":
		var child ast.DType
		if nj.ChildDType != nil {
			var err error
			child, err = d.buildType(nj.ChildDType, false)
			if err != nil {
				return nil, err
			}
		}
		return ast.NewTypedef(nj.Name, child, nj.AttrPublic), nil

	case "scope":
		s := &ast.Scope{Name: nj.Name, IsTop: nj.Top}
		if _, dup := d.scopes[s.Name]; dup {
			return nil, fmt.Errorf("netio: duplicate scope %q", s.Name)
		}
		d.scopes[s.Name] = s
		d.linkDType(s.SetDType, nj.DType, "scope "+s.Name)
		if above := nj.Above; above != "" {
			d.fixups = append(d.fixups, func() error {
				a, ok := d.scopes[above]
				if !ok {
					return fmt.Errorf("netio: scope %q: unknown scope %q", s.Name, above)
				}
				s.Above = a
				return nil
			})
		}
		for _, vj := range nj.Vars {
			if vj.Kind != "varscope" {
				return nil, fmt.Errorf("netio: scope %q: vars must be varscopes, got %q", s.Name, vj.Kind)
			}
			vs, err := d.buildVarScope(vj, s)
			if err != nil {
				return nil, err
			}
			s.AddVarScope(vs)
		}
		blocks, err := d.buildNodes(nj.Blocks)
		if err != nil {
			return nil, err
		}
		s.AddBlock(blocks...)
		finals, err := d.buildNodes(nj.FinalClks)
		if err != nil {
			return nil, err
		}
		s.AddFinalClk(finals...)
		return s, nil

	case "cell":
		c := &ast.Cell{Name: nj.Name}
		mod := nj.Mod
		d.fixups = append(d.fixups, func() error {
			m, ok := d.mods[mod]
			if !ok {
				return fmt.Errorf("netio: cell %q: unknown module %q", c.Name, mod)
			}
			c.Mod = m
			return nil
		})
		return c, nil

	case "modport":
		m := &ast.Modport{Name: nj.Name}
		for _, vj := range nj.Vars {
			mvr := &ast.ModportVarRef{Name: vj.Name}
			varName := vj.Var
			if varName == "" {
				varName = vj.Name
			}
			d.fixups = append(d.fixups, func() error {
				if v, ok := d.vars[varName]; ok {
					mvr.Var = v
				}
				return nil
			})
			m.AddVar(mvr)
		}
		return m, nil

	case "cfunc":
		f := &ast.CFunc{Name: nj.Name}
		if scope := nj.Scope; scope != "" {
			d.fixups = append(d.fixups, func() error {
				s, ok := d.scopes[scope]
				if !ok {
					return fmt.Errorf("netio: cfunc %q: unknown scope %q", f.Name, scope)
				}
				f.Scope = s
				return nil
			})
		}
		stmts, err := d.buildNodes(nj.Stmts)
		if err != nil {
			return nil, err
		}
		f.AddStmt(stmts...)
		return f, nil

	case "begin":
		b := &ast.Begin{Name: nj.Name}
		stmts, err := d.buildNodes(nj.Stmts)
		if err != nil {
			return nil, err
		}
		b.AddStmt(stmts...)
		return b, nil

	case "assign":
		var lhs, rhs ast.Node
		var err error
		if nj.Lhs != nil {
			if lhs, err = d.buildNode(nj.Lhs); err != nil {
				return nil, err
			}
		}
		if nj.Rhs != nil {
			if rhs, err = d.buildNode(nj.Rhs); err != nil {
				return nil, err
			}
		}
		a := ast.NewAssign(lhs, rhs, nil)
		d.linkDType(a.SetDType, nj.DType, "assign")
		return a, nil

	case "varref":
		r := &ast.VarRef{Name: nj.Name, Write: nj.Write}
		d.linkDType(r.SetDType, nj.DType, "varref "+r.Name)
		vsName, varName, pkg := nj.VarScope, nj.Var, nj.Pkg
		if varName == "" {
			varName = nj.Name
		}
		d.fixups = append(d.fixups, func() error {
			if vsName != "" {
				vs, ok := d.varscopes[vsName]
				if !ok {
					return fmt.Errorf("netio: varref %q: unknown varscope %q", r.Name, vsName)
				}
				r.VarScope = vs
			}
			v, ok := d.vars[varName]
			if !ok {
				return fmt.Errorf("netio: varref %q: unknown var %q", r.Name, varName)
			}
			r.Var = v
			if r.DType() == nil {
				r.SetDType(v.DType())
			}
			if pkg != "" {
				p, ok := d.mods[pkg]
				if !ok {
					return fmt.Errorf("netio: varref %q: unknown package %q", r.Name, pkg)
				}
				r.Pkg = p
			}
			return nil
		})
		return r, nil

	case "ftaskref":
		f := &ast.FTaskRef{Name: nj.Name}
		d.linkDType(f.SetDType, nj.DType, "ftaskref "+f.Name)
		if pkg := nj.Pkg; pkg != "" {
			d.fixups = append(d.fixups, func() error {
				p, ok := d.mods[pkg]
				if !ok {
					return fmt.Errorf("netio: ftaskref %q: unknown package %q", f.Name, pkg)
				}
				f.Pkg = p
				return nil
			})
		}
		args, err := d.buildNodes(nj.Args)
		if err != nil {
			return nil, err
		}
		f.AddArg(args...)
		return f, nil

	case "enumitemref":
		r := &ast.EnumItemRef{Name: nj.Name}
		d.linkDType(r.SetDType, nj.DType, "enumitemref "+r.Name)
		if pkg := nj.Pkg; pkg != "" {
			d.fixups = append(d.fixups, func() error {
				p, ok := d.mods[pkg]
				if !ok {
					return fmt.Errorf("netio: enumitemref %q: unknown package %q", r.Name, pkg)
				}
				r.Pkg = p
				return nil
			})
		}
		return r, nil

	case "const":
		c := &ast.Const{Num: nj.Num, Width: nj.Width}
		d.linkDType(c.SetDType, nj.DType, "const")
		return c, nil

	case "binop":
		var lhs, rhs ast.Node
		var err error
		if nj.Lhs != nil {
			if lhs, err = d.buildNode(nj.Lhs); err != nil {
				return nil, err
			}
		}
		if nj.Rhs != nil {
			if rhs, err = d.buildNode(nj.Rhs); err != nil {
				return nil, err
			}
		}
		b := ast.NewBinaryOp(nj.Op, lhs, rhs, nil)
		d.linkDType(b.SetDType, nj.DType, "binop")
		return b, nil

	case "unop":
		var operand ast.Node
		var err error
		if nj.Operand != nil {
			if operand, err = d.buildNode(nj.Operand); err != nil {
				return nil, err
			}
		}
		u := ast.NewUnaryOp(nj.Op, operand, nil)
		d.linkDType(u.SetDType, nj.DType, "unop")
		return u, nil

	case "sel":
		var from ast.Node
		var err error
		if nj.From != nil {
			if from, err = d.buildNode(nj.From); err != nil {
				return nil, err
			}
		}
		s := ast.NewSel(from, nj.Lsb, nj.Bits, nil)
		d.linkDType(s.SetDType, nj.DType, "sel")
		return s, nil

	case "display":
		args, err := d.buildNodes(nj.Args)
		if err != nil {
			return nil, err
		}
		return ast.NewDisplay(nj.Text, args...), nil

	case "finish":
		return &ast.Finish{}, nil

	default:
		return nil, fmt.Errorf("netio: unknown node kind %q", nj.Kind)
	}
}

// buildVarScope builds one variable instance inside s. The var link is
// by name and resolved in pass 2; the varscope registers itself as
// "scope.var".
func (d *decoder) buildVarScope(nj *nodeJSON, s *ast.Scope) (*ast.VarScope, error) {
	if nj.Var == "" {
		return nil, fmt.Errorf("netio: varscope in scope %q lacks a var", s.Name)
	}
	vs := &ast.VarScope{Scope: s}
	key := s.Name + "." + nj.Var
	if _, dup := d.varscopes[key]; dup {
		return nil, fmt.Errorf("netio: duplicate varscope %q", key)
	}
	d.varscopes[key] = vs
	varName, dtype := nj.Var, nj.DType
	d.fixups = append(d.fixups, func() error {
		v, ok := d.vars[varName]
		if !ok {
			return fmt.Errorf("netio: varscope %q: unknown var %q", key, varName)
		}
		vs.Var = v
		if dtype == "" {
			vs.SetDType(v.DType())
		}
		return nil
	})
	d.linkDType(vs.SetDType, dtype, "varscope "+key)
	return vs, nil
}
