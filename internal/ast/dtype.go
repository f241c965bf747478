package ast

import "fmt"

// ----------------------------------------------------------------------------
// Data types
// ----------------------------------------------------------------------------

// DType is implemented by every data type node. Data types are shared:
// after width resolution most of them are parented under the netlist's
// type table and referenced from many places.
type DType interface {
	Node

	// Generic reports whether the type is a generic placeholder that
	// must never be removed.
	Generic() bool

	// VirtRef returns the data type this type refers to, nil for
	// self-contained types.
	VirtRef() DType

	dtypeNode()
}

// dtypeBase is the shared state of data type nodes.
type dtypeBase struct {
	base
	IsGeneric bool
}

func (d *dtypeBase) Generic() bool  { return d.IsGeneric }
func (d *dtypeBase) VirtRef() DType { return nil }
func (d *dtypeBase) dtypeNode()     {}

// BasicDType is a primitive type (logic, bit, int, ...). Its data type
// edge is a self-loop.
type BasicDType struct {
	dtypeBase
	Keyword string
	Width   int
}

func (d *BasicDType) DType() DType { return d }

// RefDType refers to a named type, possibly imported through a package.
type RefDType struct {
	dtypeBase
	Name string
	To   DType
	Pkg  *Module
}

func (d *RefDType) DType() DType   { return d }
func (d *RefDType) VirtRef() DType { return d.To }

// ClassDType is a packed class, struct or union type owning its member
// types.
type ClassDType struct {
	dtypeBase
	Name    string
	Packed  bool
	Members []*MemberDType
}

func (d *ClassDType) DType() DType { return d }

func (d *ClassDType) forEachChild(fn func(Node)) {
	for _, m := range d.Members {
		fn(m)
	}
}

func (d *ClassDType) removeChild(c Node) bool {
	for i, m := range d.Members {
		if Node(m) == c {
			d.Members = append(d.Members[:i], d.Members[i+1:]...)
			return true
		}
	}
	return false
}

// AddMember appends a member type to the class.
func (d *ClassDType) AddMember(m *MemberDType) {
	m.setParent(d)
	d.Members = append(d.Members, m)
}

// MemberDType is one member of a class or struct type. Its name only has
// meaning while the enclosing class type exists.
type MemberDType struct {
	dtypeBase
	Name string
	Sub  DType
}

func (d *MemberDType) DType() DType   { return d }
func (d *MemberDType) VirtRef() DType { return d.Sub }

// EnumDType is an enumeration type over a base type.
type EnumDType struct {
	dtypeBase
	Name  string
	Sub   DType
	Items []*EnumItem
}

func (d *EnumDType) DType() DType   { return d }
func (d *EnumDType) VirtRef() DType { return d.Sub }

func (d *EnumDType) forEachChild(fn func(Node)) {
	for _, it := range d.Items {
		fn(it)
	}
}

func (d *EnumDType) removeChild(c Node) bool {
	for i, it := range d.Items {
		if Node(it) == c {
			d.Items = append(d.Items[:i], d.Items[i+1:]...)
			return true
		}
	}
	return false
}

// AddItem appends an item to the enum.
func (d *EnumDType) AddItem(it *EnumItem) {
	it.setParent(d)
	d.Items = append(d.Items, it)
}

// EnumItem is one named value of an enum type.
type EnumItem struct {
	base
	Name string
	Val  uint64
}

// IsMemberDType reports whether d is a class/struct member type.
func IsMemberDType(d DType) bool {
	_, ok := d.(*MemberDType)
	return ok
}

func describeDType(d DType) string {
	switch d := d.(type) {
	case *BasicDType:
		return fmt.Sprintf("BASICDTYPE '%s'[%d]", d.Keyword, d.Width)
	case *RefDType:
		return fmt.Sprintf("REFDTYPE '%s'", d.Name)
	case *ClassDType:
		return fmt.Sprintf("CLASSDTYPE '%s'", d.Name)
	case *MemberDType:
		return fmt.Sprintf("MEMBERDTYPE '%s'", d.Name)
	case *EnumDType:
		return fmt.Sprintf("ENUMDTYPE '%s'", d.Name)
	default:
		return fmt.Sprintf("%T", d)
	}
}
