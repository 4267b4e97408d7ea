package visitor

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/715d/jshrink/internal/classfile"
)

// Traversal selects which parts of a class hierarchy a HierarchyTraveler
// visits. Modes combine with bitwise or.
type Traversal uint8

const (
	// TraverseThis visits the starting class itself.
	TraverseThis Traversal = 1 << iota
	// TraverseSuperclasses visits the transitive superclass chain.
	TraverseSuperclasses
	// TraverseInterfaces visits transitively implemented interfaces.
	TraverseInterfaces
	// TraverseSubclasses visits all transitive descendants, excluding the
	// starting class.
	TraverseSubclasses
)

// HierarchyTraveler applies a class visitor to a configurable subset of a
// class's hierarchy. Descendant traversal deduplicates diamond-shaped
// interface hierarchies with a bitmap over pool indices.
type HierarchyTraveler struct {
	mode     Traversal
	delegate ClassVisitor
}

func NewHierarchyTraveler(mode Traversal, delegate ClassVisitor) *HierarchyTraveler {
	return &HierarchyTraveler{mode: mode, delegate: delegate}
}

func (t *HierarchyTraveler) VisitClass(c *classfile.Class) {
	if t.mode&TraverseThis != 0 {
		t.delegate.VisitClass(c)
	}
	if t.mode&TraverseSuperclasses != 0 {
		for super := c.Super; super != nil; super = super.Super {
			t.delegate.VisitClass(super)
		}
	}
	if t.mode&TraverseInterfaces != 0 {
		seen := roaring.New()
		t.visitInterfaces(c, seen)
	}
	if t.mode&TraverseSubclasses != 0 {
		seen := roaring.New()
		t.visitSubclasses(c, seen)
	}
}

func (t *HierarchyTraveler) visitInterfaces(c *classfile.Class, seen *roaring.Bitmap) {
	for _, itf := range c.Interfaces {
		if !seen.CheckedAdd(itf.PoolIndex) {
			continue
		}
		t.delegate.VisitClass(itf)
		t.visitInterfaces(itf, seen)
	}
}

func (t *HierarchyTraveler) visitSubclasses(c *classfile.Class, seen *roaring.Bitmap) {
	for _, sub := range c.Subclasses {
		if !seen.CheckedAdd(sub.PoolIndex) {
			continue
		}
		t.delegate.VisitClass(sub)
		t.visitSubclasses(sub, seen)
	}
}
