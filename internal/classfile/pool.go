package classfile

import "slices"

// Pool is the full set of loaded class entities available in one processing
// run. It owns the entities exclusively; iteration order is insertion order.
// Pool is not safe for concurrent mutation; loading fans out parsing and
// serializes Add calls.
type Pool struct {
	byName  map[string]*Class
	classes []*Class
}

// NewPool creates an empty class pool.
func NewPool() *Pool {
	return &Pool{byName: make(map[string]*Class)}
}

// Add puts the class into the pool, replacing any previously added class
// with the same name, and assigns its pool index.
func (p *Pool) Add(c *Class) {
	if prev, ok := p.byName[c.Name]; ok {
		idx := slices.Index(p.classes, prev)
		c.PoolIndex = prev.PoolIndex
		p.classes[idx] = c
		p.byName[c.Name] = c
		return
	}
	c.PoolIndex = uint32(len(p.classes))
	p.classes = append(p.classes, c)
	p.byName[c.Name] = c
}

// Get returns the class with the given internal name, or nil.
func (p *Pool) Get(name string) *Class {
	return p.byName[name]
}

// Classes returns all classes in insertion order. The returned slice is
// shared with the pool and must not be modified.
func (p *Pool) Classes() []*Class {
	return p.classes
}

// Size returns the number of classes in the pool.
func (p *Pool) Size() int {
	return len(p.classes)
}

// ResolveHierarchy links every class to its superclass, interfaces and
// subclasses, as far as they are present in the pool. It must be called
// after loading and before any hierarchy traversal; calling it again after
// further Adds rebuilds all links.
func (p *Pool) ResolveHierarchy() {
	for _, c := range p.classes {
		c.Super = nil
		c.Interfaces = nil
		c.Subclasses = nil
	}

	for _, c := range p.classes {
		if c.SuperName != "" {
			if super := p.byName[c.SuperName]; super != nil {
				c.Super = super
				super.Subclasses = append(super.Subclasses, c)
			}
		}
		for _, name := range c.InterfaceNames {
			if itf := p.byName[name]; itf != nil {
				c.Interfaces = append(c.Interfaces, itf)
				itf.Subclasses = append(itf.Subclasses, c)
			}
		}
	}
}
