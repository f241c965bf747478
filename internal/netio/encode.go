package netio

import (
	"encoding/json"
	"fmt"

	"github.com/mballance/verilator-svtnt/internal/ast"
)

// encoder assigns ids to the shared data types and writes the tree back
// out. Data type edges are encoded by id; edges to types that are not
// in the type table (owned, inlined types) are dropped, mirroring how
// the decoder derives them.
type encoder struct {
	ids map[ast.DType]string
}

// Encode writes a netlist to its JSON form.
func Encode(nl *ast.Netlist) ([]byte, error) {
	e := &encoder{ids: make(map[ast.DType]string)}

	var file fileJSON
	if nl.Types != nil {
		for _, t := range nl.Types.Types {
			e.assignID(t)
		}
		for _, t := range nl.Types.Types {
			tj, err := e.encodeType(t)
			if err != nil {
				return nil, err
			}
			file.Types = append(file.Types, tj)
		}
	}
	for _, m := range nl.Mods {
		mj := &moduleJSON{
			Name:     m.Name,
			Level:    m.Level,
			Internal: m.Internal,
			Package:  m.IsPackage,
		}
		for _, s := range m.Stmts {
			nj, err := e.encodeNode(s)
			if err != nil {
				return nil, err
			}
			mj.Stmts = append(mj.Stmts, nj)
		}
		file.Modules = append(file.Modules, mj)
	}

	return json.MarshalIndent(&file, "", "  ")
}

func (e *encoder) assignID(t ast.DType) {
	if _, ok := e.ids[t]; ok {
		return
	}
	e.ids[t] = fmt.Sprintf("t%d", len(e.ids))
	if c, ok := t.(*ast.ClassDType); ok {
		for _, m := range c.Members {
			e.assignID(m)
		}
	}
}

func (e *encoder) typeID(t ast.DType) string {
	if t == nil {
		return ""
	}
	return e.ids[t]
}

func modName(m *ast.Module) string {
	if m == nil {
		return ""
	}
	return m.Name
}

func (e *encoder) encodeType(t ast.DType) (*typeJSON, error) {
	switch t := t.(type) {
	case *ast.BasicDType:
		return &typeJSON{
			ID:      e.typeID(t),
			Kind:    "basic",
			Keyword: t.Keyword,
			Width:   t.Width,
			Generic: t.Generic(),
		}, nil

	case *ast.RefDType:
		return &typeJSON{
			ID:      e.typeID(t),
			Kind:    "ref",
			Name:    t.Name,
			To:      e.typeID(t.To),
			Pkg:     modName(t.Pkg),
			Generic: t.Generic(),
		}, nil

	case *ast.ClassDType:
		tj := &typeJSON{
			ID:      e.typeID(t),
			Kind:    "class",
			Name:    t.Name,
			Packed:  t.Packed,
			Generic: t.Generic(),
		}
		for _, m := range t.Members {
			tj.Members = append(tj.Members, &memberJSON{
				ID:   e.typeID(m),
				Name: m.Name,
				Sub:  e.typeID(m.Sub),
			})
		}
		return tj, nil

	case *ast.EnumDType:
		tj := &typeJSON{
			ID:      e.typeID(t),
			Kind:    "enum",
			Name:    t.Name,
			Sub:     e.typeID(t.Sub),
			Generic: t.Generic(),
		}
		for _, it := range t.Items {
			tj.Items = append(tj.Items, &enumItemJSON{Name: it.Name, Val: it.Val})
		}
		return tj, nil

	default:
		return nil, fmt.Errorf("netio: cannot encode type %s", ast.Describe(t))
	}
}

func (e *encoder) encodeNodes(nodes []ast.Node) ([]*nodeJSON, error) {
	var out []*nodeJSON
	for _, n := range nodes {
		nj, err := e.encodeNode(n)
		if err != nil {
			return nil, err
		}
		out = append(out, nj)
	}
	return out, nil
}

func (e *encoder) encodeNode(n ast.Node) (*nodeJSON, error) {
	switch n := n.(type) {
	case *ast.Var:
		nj := &nodeJSON{
			Kind:      "var",
			Name:      n.Name,
			DType:     e.typeID(n.DType()),
			SigPublic: n.SigPublic,
			IO:        n.IO,
			Temp:      n.Temp,
			Param:     n.Param,
			Trace:     n.Trace,
		}
		if n.Child != nil {
			tj, err := e.encodeType(n.Child)
			if err != nil {
				return nil, err
			}
			nj.ChildDType = tj
		}
		return nj, nil

	case *ast.Typedef:
		nj := &nodeJSON{Kind: "typedef", Name: n.Name, AttrPublic: n.AttrPublic}
		if n.Child != nil {
			tj, err := e.encodeType(n.Child)
			if err != nil {
				return nil, err
			}
			nj.ChildDType = tj
		}
		return nj, nil

	case *ast.Scope:
		nj := &nodeJSON{
			Kind:  "scope",
			Name:  n.Name,
			Top:   n.IsTop,
			DType: e.typeID(n.DType()),
		}
		if n.Above != nil {
			nj.Above = n.Above.Name
		}
		for _, vs := range n.Vars {
			vj := &nodeJSON{Kind: "varscope", Var: vs.Var.Name}
			if vs.DType() != nil && vs.DType() != vs.Var.DType() {
				vj.DType = e.typeID(vs.DType())
			}
			nj.Vars = append(nj.Vars, vj)
		}
		var err error
		if nj.Blocks, err = e.encodeNodes(n.Blocks); err != nil {
			return nil, err
		}
		if nj.FinalClks, err = e.encodeNodes(n.FinalClks); err != nil {
			return nil, err
		}
		return nj, nil

	case *ast.Cell:
		return &nodeJSON{Kind: "cell", Name: n.Name, Mod: modName(n.Mod)}, nil

	case *ast.Modport:
		nj := &nodeJSON{Kind: "modport", Name: n.Name}
		for _, v := range n.Vars {
			mvr, ok := v.(*ast.ModportVarRef)
			if !ok {
				return nil, fmt.Errorf("netio: cannot encode modport child %s", ast.Describe(v))
			}
			vj := &nodeJSON{Kind: "modportvarref", Name: mvr.Name}
			if mvr.Var != nil {
				vj.Var = mvr.Var.Name
			}
			nj.Vars = append(nj.Vars, vj)
		}
		return nj, nil

	case *ast.CFunc:
		nj := &nodeJSON{Kind: "cfunc", Name: n.Name}
		if n.Scope != nil {
			nj.Scope = n.Scope.Name
		}
		var err error
		if nj.Stmts, err = e.encodeNodes(n.Stmts); err != nil {
			return nil, err
		}
		return nj, nil

	case *ast.Begin:
		nj := &nodeJSON{Kind: "begin", Name: n.Name}
		var err error
		if nj.Stmts, err = e.encodeNodes(n.Stmts); err != nil {
			return nil, err
		}
		return nj, nil

	case *ast.Assign:
		nj := &nodeJSON{Kind: "assign", DType: e.typeID(n.DType())}
		var err error
		if n.Lhs != nil {
			if nj.Lhs, err = e.encodeNode(n.Lhs); err != nil {
				return nil, err
			}
		}
		if n.Rhs != nil {
			if nj.Rhs, err = e.encodeNode(n.Rhs); err != nil {
				return nil, err
			}
		}
		return nj, nil

	case *ast.VarRef:
		nj := &nodeJSON{
			Kind:  "varref",
			Name:  n.Name,
			Write: n.Write,
			Pkg:   modName(n.Pkg),
		}
		if n.Var != nil {
			nj.Var = n.Var.Name
			if n.DType() != nil && n.DType() != n.Var.DType() {
				nj.DType = e.typeID(n.DType())
			}
		} else {
			nj.DType = e.typeID(n.DType())
		}
		if n.VarScope != nil {
			nj.VarScope = n.VarScope.Scope.Name + "." + n.VarScope.Var.Name
		}
		return nj, nil

	case *ast.FTaskRef:
		nj := &nodeJSON{Kind: "ftaskref", Name: n.Name, Pkg: modName(n.Pkg)}
		var err error
		if nj.Args, err = e.encodeNodes(n.Args); err != nil {
			return nil, err
		}
		return nj, nil

	case *ast.EnumItemRef:
		return &nodeJSON{
			Kind:  "enumitemref",
			Name:  n.Name,
			Pkg:   modName(n.Pkg),
			DType: e.typeID(n.DType()),
		}, nil

	case *ast.Const:
		return &nodeJSON{
			Kind:  "const",
			Num:   n.Num,
			Width: n.Width,
			DType: e.typeID(n.DType()),
		}, nil

	case *ast.BinaryOp:
		nj := &nodeJSON{Kind: "binop", Op: n.Op, DType: e.typeID(n.DType())}
		var err error
		if n.Lhs != nil {
			if nj.Lhs, err = e.encodeNode(n.Lhs); err != nil {
				return nil, err
			}
		}
		if n.Rhs != nil {
			if nj.Rhs, err = e.encodeNode(n.Rhs); err != nil {
				return nil, err
			}
		}
		return nj, nil

	case *ast.UnaryOp:
		nj := &nodeJSON{Kind: "unop", Op: n.Op, DType: e.typeID(n.DType())}
		var err error
		if n.Operand != nil {
			if nj.Operand, err = e.encodeNode(n.Operand); err != nil {
				return nil, err
			}
		}
		return nj, nil

	case *ast.Sel:
		nj := &nodeJSON{
			Kind:  "sel",
			Lsb:   n.Lsb,
			Bits:  n.Bits,
			DType: e.typeID(n.DType()),
		}
		var err error
		if n.From != nil {
			if nj.From, err = e.encodeNode(n.From); err != nil {
				return nil, err
			}
		}
		return nj, nil

	case *ast.Display:
		nj := &nodeJSON{Kind: "display", Text: n.Text}
		var err error
		if nj.Args, err = e.encodeNodes(n.Args); err != nil {
			return nil, err
		}
		return nj, nil

	case *ast.Finish:
		return &nodeJSON{Kind: "finish"}, nil

	default:
		return nil, fmt.Errorf("netio: cannot encode node %s", ast.Describe(n))
	}
}
