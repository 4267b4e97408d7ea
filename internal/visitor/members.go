package visitor

import "github.com/715d/jshrink/internal/classfile"

// AllFieldVisitor applies a member visitor to every field of a class.
type AllFieldVisitor struct {
	delegate MemberVisitor
}

func NewAllFieldVisitor(delegate MemberVisitor) *AllFieldVisitor {
	return &AllFieldVisitor{delegate: delegate}
}

func (v *AllFieldVisitor) VisitClass(c *classfile.Class) {
	for _, f := range c.Fields {
		v.delegate.VisitField(c, f)
	}
}

// AllMethodVisitor applies a member visitor to every method of a class.
type AllMethodVisitor struct {
	delegate MemberVisitor
}

func NewAllMethodVisitor(delegate MemberVisitor) *AllMethodVisitor {
	return &AllMethodVisitor{delegate: delegate}
}

func (v *AllMethodVisitor) VisitClass(c *classfile.Class) {
	for _, m := range c.Methods {
		v.delegate.VisitMethod(c, m)
	}
}

// NamedFieldVisitor looks up one fully specified field directly instead of
// scanning the field table.
type NamedFieldVisitor struct {
	name       string
	descriptor string
	delegate   MemberVisitor
}

func NewNamedFieldVisitor(name, descriptor string, delegate MemberVisitor) *NamedFieldVisitor {
	return &NamedFieldVisitor{name: name, descriptor: descriptor, delegate: delegate}
}

func (v *NamedFieldVisitor) VisitClass(c *classfile.Class) {
	if f := c.FindField(v.name, v.descriptor); f != nil {
		v.delegate.VisitField(c, f)
	}
}

// NamedMethodVisitor looks up one fully specified method directly instead
// of scanning the method table.
type NamedMethodVisitor struct {
	name       string
	descriptor string
	delegate   MemberVisitor
}

func NewNamedMethodVisitor(name, descriptor string, delegate MemberVisitor) *NamedMethodVisitor {
	return &NamedMethodVisitor{name: name, descriptor: descriptor, delegate: delegate}
}

func (v *NamedMethodVisitor) VisitClass(c *classfile.Class) {
	if m := c.FindMethod(v.name, v.descriptor); m != nil {
		v.delegate.VisitMethod(c, m)
	}
}
