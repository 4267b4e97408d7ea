// Package optimize provides the conservative per-method parameter usage
// analysis and the per-class usage records consulted before optimization.
package optimize

import (
	"sync/atomic"

	"github.com/715d/jshrink/internal/attr"
	"github.com/715d/jshrink/internal/classfile"
)

// MaxTrackedParameters is the width of the used-parameter bit-vector.
// Methods with more formal-parameter slots cannot have the excess slots
// tracked individually; analysis saturates the whole vector for them
// instead of truncating. This is a documented precision limit.
const MaxTrackedParameters = 64

const allParameters = ^uint64(0)

// methodInfo is the analysis record attached to one method: the total slot
// width of its parameter list and the monotonically growing bit-vector of
// slots proven used.
type methodInfo struct {
	parameterSize int
	used          atomic.Uint64
}

// ParameterUsage computes and stores which formal-parameter slots of each
// visited method are ever read. Records grow monotonically: a bit, once
// set, is never cleared. Queries on methods without a record fall back to
// the fail-safe default of "everything used".
type ParameterUsage struct {
	methods *attr.Store[*classfile.Method, *methodInfo]
}

// NewParameterUsage creates an analyzer with an empty record store.
func NewParameterUsage() *ParameterUsage {
	return &ParameterUsage{methods: attr.NewStore[*classfile.Method, *methodInfo]()}
}

func (p *ParameterUsage) info(m *classfile.Method) *methodInfo {
	rec, _ := p.methods.LoadOrStore(m, &methodInfo{})
	return rec
}

// ParameterSize returns the stored parameter slot width of the method, or 0
// when it was never analyzed.
func (p *ParameterUsage) ParameterSize(m *classfile.Method) int {
	if rec, ok := p.methods.Load(m); ok {
		return rec.parameterSize
	}
	return 0
}

// IsParameterUsed reports whether the given parameter slot is used. Absence
// of a record, and slots beyond the tracked width, read as used: missing
// information is never permission to eliminate.
func (p *ParameterUsage) IsParameterUsed(m *classfile.Method, slot int) bool {
	rec, ok := p.methods.Load(m)
	if !ok {
		return true
	}
	if slot < 0 || slot >= MaxTrackedParameters {
		return true
	}
	return rec.used.Load()&(1<<uint(slot)) != 0
}

// UsedParameters returns the full used-slot bit-vector of the method, or a
// vector with every bit set when no record exists.
func (p *ParameterUsage) UsedParameters(m *classfile.Method) uint64 {
	if rec, ok := p.methods.Load(m); ok {
		return rec.used.Load()
	}
	return allParameters
}

// MarkUsedParameters ors the given mask into the method's used-slot vector,
// creating an all-zero record first if none existed.
func (p *ParameterUsage) MarkUsedParameters(m *classfile.Method, mask uint64) {
	p.info(m).used.Or(mask)
}

// MarkParameterUsed marks a single parameter slot as used. Slots beyond the
// tracked width saturate the whole vector.
func (p *ParameterUsage) MarkParameterUsed(m *classfile.Method, slot int) {
	if slot < 0 {
		return
	}
	if slot >= MaxTrackedParameters {
		p.MarkUsedParameters(m, allParameters)
		return
	}
	p.MarkUsedParameters(m, 1<<uint(slot))
}

func (p *ParameterUsage) setParameterSize(m *classfile.Method, size int) {
	p.info(m).parameterSize = size
}

// Class usage flag bits.
const (
	classInstantiated uint32 = 1 << iota
	classInstanceofed
	classDotClassed
	classPackageVisibleMembers
)

// classInfo is the analysis record attached to one class. All flags are
// monotonic: marking passes only ever add facts.
type classInfo struct {
	flags atomic.Uint32
}

// ClassUsage records instruction-level facts about how classes are used:
// whether they are instantiated, used in instanceof checks, or referenced
// as class literals.
type ClassUsage struct {
	classes *attr.Store[*classfile.Class, *classInfo]
}

// NewClassUsage creates an analyzer with an empty record store.
func NewClassUsage() *ClassUsage {
	return &ClassUsage{classes: attr.NewStore[*classfile.Class, *classInfo]()}
}

func (u *ClassUsage) info(c *classfile.Class) *classInfo {
	rec, _ := u.classes.LoadOrStore(c, &classInfo{})
	return rec
}

func (u *ClassUsage) flag(c *classfile.Class, bit uint32) bool {
	rec, ok := u.classes.Load(c)
	// Without a record the fail-safe reading is "assume referenced".
	return !ok || rec.flags.Load()&bit != 0
}

// MarkInstantiated records that the class is instantiated somewhere.
func (u *ClassUsage) MarkInstantiated(c *classfile.Class) { u.info(c).flags.Or(classInstantiated) }

// IsInstantiated reports whether the class is instantiated. Classes without
// a record read as instantiated.
func (u *ClassUsage) IsInstantiated(c *classfile.Class) bool { return u.flag(c, classInstantiated) }

// MarkInstanceofed records that the class appears in an instanceof check.
func (u *ClassUsage) MarkInstanceofed(c *classfile.Class) { u.info(c).flags.Or(classInstanceofed) }

// IsInstanceofed reports whether the class appears in an instanceof check.
func (u *ClassUsage) IsInstanceofed(c *classfile.Class) bool { return u.flag(c, classInstanceofed) }

// MarkDotClassed records that the class is referenced as a class literal.
func (u *ClassUsage) MarkDotClassed(c *classfile.Class) { u.info(c).flags.Or(classDotClassed) }

// IsDotClassed reports whether the class is referenced as a class literal.
func (u *ClassUsage) IsDotClassed(c *classfile.Class) bool { return u.flag(c, classDotClassed) }

// MarkPackageVisibleMembers records that the class declares members without
// public, private or protected access.
func (u *ClassUsage) MarkPackageVisibleMembers(c *classfile.Class) {
	u.info(c).flags.Or(classPackageVisibleMembers)
}

// HasPackageVisibleMembers reports whether the class declares
// package-visible members. Classes without a record read as having them.
func (u *ClassUsage) HasPackageVisibleMembers(c *classfile.Class) bool {
	return u.flag(c, classPackageVisibleMembers)
}

// Tracked reports whether the class has a usage record at all.
func (u *ClassUsage) Tracked(c *classfile.Class) bool {
	_, ok := u.classes.Load(c)
	return ok
}
