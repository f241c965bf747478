// Package test provides shared helpers for mid-end pass tests: small
// netlist fixtures wired by hand, and a line diff for dump comparisons.
package test

import (
	"fmt"
	"strings"

	"github.com/mballance/verilator-svtnt/internal/ast"
)

// Fixture accumulates a netlist under construction. Every entity helper
// returns the node it made so tests can wire references directly.
type Fixture struct {
	Netlist *ast.Netlist
	Logic32 *ast.BasicDType // shared default type for fixture entities
}

// NewFixture returns a fixture with an empty netlist and a canonical
// 32-bit logic type.
func NewFixture() *Fixture {
	nl := ast.NewNetlist()
	return &Fixture{
		Netlist: nl,
		Logic32: nl.Types.FindBasic("logic", 32),
	}
}

// Module adds a plain module at the given level.
func (f *Fixture) Module(name string, level int) *ast.Module {
	m := &ast.Module{Name: name, Level: level}
	f.Netlist.AddModule(m)
	return m
}

// Package adds a package module at the given level.
func (f *Fixture) Package(name string, level int) *ast.Module {
	m := &ast.Module{Name: name, Level: level, IsPackage: true}
	f.Netlist.AddModule(m)
	return m
}

// TempVar adds a compiler temporary of the fixture's default type to m.
func (f *Fixture) TempVar(m *ast.Module, name string) *ast.Var {
	v := &ast.Var{Name: name, Temp: true}
	v.SetDType(f.Logic32)
	m.AddStmt(v)
	return v
}

// UserVar adds a plain user variable of the fixture's default type to m.
func (f *Fixture) UserVar(m *ast.Module, name string) *ast.Var {
	v := &ast.Var{Name: name}
	v.SetDType(f.Logic32)
	m.AddStmt(v)
	return v
}

// Scope adds a scope to m, below above (which may be nil).
func (f *Fixture) Scope(m *ast.Module, name string, above *ast.Scope, top bool) *ast.Scope {
	s := &ast.Scope{Name: name, Above: above, IsTop: top}
	m.AddStmt(s)
	return s
}

// VarScope instantiates v in s.
func (f *Fixture) VarScope(s *ast.Scope, v *ast.Var) *ast.VarScope {
	vs := &ast.VarScope{Scope: s, Var: v}
	vs.SetDType(v.DType())
	s.AddVarScope(vs)
	return vs
}

// Cell instantiates target inside m.
func (f *Fixture) Cell(m *ast.Module, name string, target *ast.Module) *ast.Cell {
	c := &ast.Cell{Name: name, Mod: target}
	m.AddStmt(c)
	return c
}

// Survivors returns the names of the netlist's modules, in order.
func (f *Fixture) Survivors() []string {
	names := make([]string, 0, len(f.Netlist.Mods))
	for _, m := range f.Netlist.Mods {
		names = append(names, m.Name)
	}
	return names
}

// Diff produces a line-by-line diff between two strings, with +/-
// prefixes on differing lines.
func Diff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var result strings.Builder
	result.WriteString("--- expected\n+++ actual\n")

	maxLines := len(expectedLines)
	if len(actualLines) > maxLines {
		maxLines = len(actualLines)
	}

	for i := 0; i < maxLines; i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}

		if expLine != actLine {
			if i < len(expectedLines) {
				result.WriteString(fmt.Sprintf("-%s\n", expLine))
			}
			if i < len(actualLines) {
				result.WriteString(fmt.Sprintf("+%s\n", actLine))
			}
		} else {
			result.WriteString(fmt.Sprintf(" %s\n", expLine))
		}
	}

	return result.String()
}
