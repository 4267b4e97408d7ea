// Package classfile provides the class/field/method entity model, a reader
// for the binary class-file format, and the class pool that owns all loaded
// entities for the duration of a processing run.
package classfile

// Member holds the attributes shared by fields and methods.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string

	// Annotations lists the types of runtime-visible annotations on this
	// member, in internal form ("com/example/Anno").
	Annotations []string
}

// Field represents one field of a class.
type Field struct {
	Member
}

// Method represents one method of a class.
type Method struct {
	Member

	// Code is the method body, or nil for abstract, native and library
	// methods.
	Code *Code
}

// Code is the parsed Code attribute of a method.
type Code struct {
	MaxStack  uint16
	MaxLocals uint16
	Bytecode  []byte
}

// Class represents one class entity in the pool.
type Class struct {
	AccessFlags uint16

	// Name is the internal class name, e.g. "com/example/Foo".
	Name string

	// SuperName is the internal name of the superclass, or "" for
	// java/lang/Object itself.
	SuperName string

	// InterfaceNames lists the internal names of directly implemented
	// interfaces.
	InterfaceNames []string

	Fields  []*Field
	Methods []*Method

	// Annotations lists the types of runtime-visible annotations on the
	// class, in internal form.
	Annotations []string

	// Library marks classes loaded for reference only. Their method bodies
	// are not retained and they are never candidates for removal.
	Library bool

	// PoolIndex is assigned by the pool on Add and identifies the class in
	// bitmap-based traversal bookkeeping.
	PoolIndex uint32

	// Hierarchy links, resolved by Pool.ResolveHierarchy. A nil Super with a
	// non-empty SuperName means the superclass is outside the pool.
	Super      *Class
	Interfaces []*Class
	Subclasses []*Class

	// constants keeps the constant pool around for instruction-level passes
	// that need to resolve class references from bytecode operands.
	constants []constant
}

// FindField returns the field with the given name and descriptor, or nil.
func (c *Class) FindField(name, descriptor string) *Field {
	for _, f := range c.Fields {
		if f.Name == name && f.Descriptor == descriptor {
			return f
		}
	}
	return nil
}

// FindMethod returns the method with the given name and descriptor, or nil.
func (c *Class) FindMethod(name, descriptor string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// MayHaveImplementations reports whether the given method may be overridden
// or implemented elsewhere, in or outside the pool. Private, static and
// final methods, constructors, and methods of final classes cannot be.
func (c *Class) MayHaveImplementations(m *Method) bool {
	return c.AccessFlags&AccFinal == 0 &&
		m.AccessFlags&(AccPrivate|AccStatic|AccFinal) == 0 &&
		m.Name != ConstructorName
}

// ClassConstant resolves a constant-pool index to the internal name of the
// class it refers to. It reports false when the index does not hold a class
// reference.
func (c *Class) ClassConstant(index int) (string, bool) {
	if index <= 0 || index >= len(c.constants) {
		return "", false
	}
	cc, ok := c.constants[index].(classConstant)
	if !ok {
		return "", false
	}
	name, ok := c.constants[int(cc.nameIndex)].(utf8Constant)
	if !ok {
		return "", false
	}
	return string(name), true
}
