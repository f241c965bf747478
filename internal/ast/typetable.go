package ast

import (
	"fmt"

	"github.com/mballance/verilator-svtnt/internal/diagnostic"
)

// TypeTable owns the deduplicated data types of a netlist. Passes that
// need a type go through the table so structurally identical types share
// one node.
//
// The lookup cache indexes the table's children by signature. A pass
// that deletes data types must clear the cache first and repair it when
// done; between the two calls lookups are an internal error.
type TypeTable struct {
	base
	Types []DType

	cache      map[string]DType
	cacheValid bool
}

// NewTypeTable returns an empty type table with a valid cache.
func NewTypeTable() *TypeTable {
	return &TypeTable{
		cache:      make(map[string]DType),
		cacheValid: true,
	}
}

func (t *TypeTable) forEachChild(fn func(Node)) {
	for _, d := range t.Types {
		fn(d)
	}
}

func (t *TypeTable) removeChild(c Node) bool {
	for i, d := range t.Types {
		if Node(d) == c {
			t.Types = append(t.Types[:i], t.Types[i+1:]...)
			return true
		}
	}
	return false
}

// AddDType parents d under the table and indexes it.
func (t *TypeTable) AddDType(d DType) {
	d.setParent(t)
	t.Types = append(t.Types, d)
	if t.cacheValid {
		t.cache[dtypeSig(d)] = d
	}
}

// FindBasic returns the canonical basic type for keyword/width, creating
// it if the table has none yet.
func (t *TypeTable) FindBasic(keyword string, width int) *BasicDType {
	if !t.cacheValid {
		diagnostic.ICEf("ast", "type table lookup while cache is cleared")
	}
	sig := basicSig(keyword, width)
	if d, ok := t.cache[sig]; ok {
		return d.(*BasicDType)
	}
	d := &BasicDType{Keyword: keyword, Width: width}
	t.AddDType(d)
	return d
}

// ClearCache drops the lookup index so types may be deleted out from
// under it.
func (t *TypeTable) ClearCache() {
	t.cache = nil
	t.cacheValid = false
}

// RepairCache rebuilds the lookup index from the surviving children.
func (t *TypeTable) RepairCache() {
	t.cache = make(map[string]DType, len(t.Types))
	for _, d := range t.Types {
		t.cache[dtypeSig(d)] = d
	}
	t.cacheValid = true
}

func basicSig(keyword string, width int) string {
	return fmt.Sprintf("basic:%s:%d", keyword, width)
}

func dtypeSig(d DType) string {
	switch d := d.(type) {
	case *BasicDType:
		return basicSig(d.Keyword, d.Width)
	case *RefDType:
		return "ref:" + d.Name
	case *ClassDType:
		return "class:" + d.Name
	case *MemberDType:
		return "member:" + d.Name
	case *EnumDType:
		return "enum:" + d.Name
	default:
		return fmt.Sprintf("%T:%p", d, d)
	}
}
