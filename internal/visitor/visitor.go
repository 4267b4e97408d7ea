// Package visitor provides the traversal building blocks the specification
// compiler composes into a plan: visitor interfaces over the class pool,
// filters on names, access flags and annotations, and the hierarchy
// traveler.
package visitor

import (
	"github.com/715d/jshrink/internal/classfile"
)

// ClassVisitor is applied to individual classes.
type ClassVisitor interface {
	VisitClass(c *classfile.Class)
}

// ClassVisitorFunc adapts a function to the ClassVisitor interface.
type ClassVisitorFunc func(c *classfile.Class)

func (f ClassVisitorFunc) VisitClass(c *classfile.Class) { f(c) }

// MemberVisitor is applied to individual fields and methods, always together
// with their owning class.
type MemberVisitor interface {
	VisitField(c *classfile.Class, f *classfile.Field)
	VisitMethod(c *classfile.Class, m *classfile.Method)
}

// MemberVisitorFuncs adapts functions to the MemberVisitor interface. Nil
// functions ignore the corresponding member kind.
type MemberVisitorFuncs struct {
	Field  func(c *classfile.Class, f *classfile.Field)
	Method func(c *classfile.Class, m *classfile.Method)
}

func (v MemberVisitorFuncs) VisitField(c *classfile.Class, f *classfile.Field) {
	if v.Field != nil {
		v.Field(c, f)
	}
}

func (v MemberVisitorFuncs) VisitMethod(c *classfile.Class, m *classfile.Method) {
	if v.Method != nil {
		v.Method(c, m)
	}
}

// ClassPoolVisitor is a traversal entry point over a whole class pool.
type ClassPoolVisitor interface {
	VisitPool(pool *classfile.Pool)
}

// MultiClassVisitor applies a sequence of class visitors in order.
type MultiClassVisitor struct {
	visitors []ClassVisitor
}

// NewMultiClassVisitor combines the given visitors, skipping nil entries.
func NewMultiClassVisitor(visitors ...ClassVisitor) *MultiClassVisitor {
	m := &MultiClassVisitor{}
	for _, v := range visitors {
		m.Add(v)
	}
	return m
}

// Add appends a visitor; nil visitors are ignored.
func (m *MultiClassVisitor) Add(v ClassVisitor) {
	if v != nil {
		m.visitors = append(m.visitors, v)
	}
}

func (m *MultiClassVisitor) VisitClass(c *classfile.Class) {
	for _, v := range m.visitors {
		v.VisitClass(c)
	}
}

// MultiClassPoolVisitor applies a sequence of pool visitors in order.
type MultiClassPoolVisitor struct {
	visitors []ClassPoolVisitor
}

// NewMultiClassPoolVisitor combines the given pool visitors, skipping nil
// entries.
func NewMultiClassPoolVisitor(visitors ...ClassPoolVisitor) *MultiClassPoolVisitor {
	m := &MultiClassPoolVisitor{}
	for _, v := range visitors {
		m.Add(v)
	}
	return m
}

// Add appends a pool visitor; nil visitors are ignored.
func (m *MultiClassPoolVisitor) Add(v ClassPoolVisitor) {
	if v != nil {
		m.visitors = append(m.visitors, v)
	}
}

func (m *MultiClassPoolVisitor) VisitPool(pool *classfile.Pool) {
	for _, v := range m.visitors {
		v.VisitPool(pool)
	}
}

// NamedClassVisitor looks up exactly one class by name and applies the
// delegate to it, if present.
type NamedClassVisitor struct {
	name     string
	delegate ClassVisitor
}

func NewNamedClassVisitor(name string, delegate ClassVisitor) *NamedClassVisitor {
	return &NamedClassVisitor{name: name, delegate: delegate}
}

func (v *NamedClassVisitor) VisitPool(pool *classfile.Pool) {
	if c := pool.Get(v.name); c != nil {
		v.delegate.VisitClass(c)
	}
}

// AllClassVisitor applies the delegate to every class in the pool.
type AllClassVisitor struct {
	delegate ClassVisitor
}

func NewAllClassVisitor(delegate ClassVisitor) *AllClassVisitor {
	return &AllClassVisitor{delegate: delegate}
}

func (v *AllClassVisitor) VisitPool(pool *classfile.Pool) {
	for _, c := range pool.Classes() {
		v.delegate.VisitClass(c)
	}
}
