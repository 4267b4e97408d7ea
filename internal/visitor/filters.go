package visitor

import (
	"github.com/715d/jshrink/internal/classfile"
	"github.com/715d/jshrink/internal/match"
)

// ClassNameFilter forwards only classes whose name matches the pattern.
type ClassNameFilter struct {
	matcher  *match.Matcher
	delegate ClassVisitor
}

func NewClassNameFilter(matcher *match.Matcher, delegate ClassVisitor) *ClassNameFilter {
	return &ClassNameFilter{matcher: matcher, delegate: delegate}
}

func (f *ClassNameFilter) VisitClass(c *classfile.Class) {
	if f.matcher.Matches(c.Name) {
		f.delegate.VisitClass(c)
	}
}

// ClassAccessFilter forwards only classes whose access flags have all
// required bits set and none of the forbidden bits.
type ClassAccessFilter struct {
	requiredSet   uint16
	requiredUnset uint16
	delegate      ClassVisitor
}

func NewClassAccessFilter(requiredSet, requiredUnset uint16, delegate ClassVisitor) *ClassAccessFilter {
	return &ClassAccessFilter{requiredSet: requiredSet, requiredUnset: requiredUnset, delegate: delegate}
}

func (f *ClassAccessFilter) VisitClass(c *classfile.Class) {
	if match.Access(c.AccessFlags, f.requiredSet, f.requiredUnset) {
		f.delegate.VisitClass(c)
	}
}

// ClassAnnotationFilter forwards only classes carrying a matching
// runtime-visible annotation. Annotation checks iterate attribute data and
// are the most expensive filter; plans place them innermost.
type ClassAnnotationFilter struct {
	matcher  *match.Matcher
	delegate ClassVisitor
}

func NewClassAnnotationFilter(matcher *match.Matcher, delegate ClassVisitor) *ClassAnnotationFilter {
	return &ClassAnnotationFilter{matcher: matcher, delegate: delegate}
}

func (f *ClassAnnotationFilter) VisitClass(c *classfile.Class) {
	if match.Annotation(c.Annotations, f.matcher) {
		f.delegate.VisitClass(c)
	}
}

// MemberNameFilter forwards only members whose name matches the pattern.
type MemberNameFilter struct {
	matcher  *match.Matcher
	delegate MemberVisitor
}

func NewMemberNameFilter(matcher *match.Matcher, delegate MemberVisitor) *MemberNameFilter {
	return &MemberNameFilter{matcher: matcher, delegate: delegate}
}

func (f *MemberNameFilter) VisitField(c *classfile.Class, fl *classfile.Field) {
	if f.matcher.Matches(fl.Name) {
		f.delegate.VisitField(c, fl)
	}
}

func (f *MemberNameFilter) VisitMethod(c *classfile.Class, m *classfile.Method) {
	if f.matcher.Matches(m.Name) {
		f.delegate.VisitMethod(c, m)
	}
}

// MemberDescriptorFilter forwards only members whose descriptor matches the
// pattern.
type MemberDescriptorFilter struct {
	matcher  *match.Matcher
	delegate MemberVisitor
}

func NewMemberDescriptorFilter(matcher *match.Matcher, delegate MemberVisitor) *MemberDescriptorFilter {
	return &MemberDescriptorFilter{matcher: matcher, delegate: delegate}
}

func (f *MemberDescriptorFilter) VisitField(c *classfile.Class, fl *classfile.Field) {
	if f.matcher.Matches(fl.Descriptor) {
		f.delegate.VisitField(c, fl)
	}
}

func (f *MemberDescriptorFilter) VisitMethod(c *classfile.Class, m *classfile.Method) {
	if f.matcher.Matches(m.Descriptor) {
		f.delegate.VisitMethod(c, m)
	}
}

// MemberAccessFilter forwards only members with matching access flags.
type MemberAccessFilter struct {
	requiredSet   uint16
	requiredUnset uint16
	delegate      MemberVisitor
}

func NewMemberAccessFilter(requiredSet, requiredUnset uint16, delegate MemberVisitor) *MemberAccessFilter {
	return &MemberAccessFilter{requiredSet: requiredSet, requiredUnset: requiredUnset, delegate: delegate}
}

func (f *MemberAccessFilter) VisitField(c *classfile.Class, fl *classfile.Field) {
	if match.Access(fl.AccessFlags, f.requiredSet, f.requiredUnset) {
		f.delegate.VisitField(c, fl)
	}
}

func (f *MemberAccessFilter) VisitMethod(c *classfile.Class, m *classfile.Method) {
	if match.Access(m.AccessFlags, f.requiredSet, f.requiredUnset) {
		f.delegate.VisitMethod(c, m)
	}
}

// MemberAnnotationFilter forwards only members carrying a matching
// runtime-visible annotation.
type MemberAnnotationFilter struct {
	matcher  *match.Matcher
	delegate MemberVisitor
}

func NewMemberAnnotationFilter(matcher *match.Matcher, delegate MemberVisitor) *MemberAnnotationFilter {
	return &MemberAnnotationFilter{matcher: matcher, delegate: delegate}
}

func (f *MemberAnnotationFilter) VisitField(c *classfile.Class, fl *classfile.Field) {
	if match.Annotation(fl.Annotations, f.matcher) {
		f.delegate.VisitField(c, fl)
	}
}

func (f *MemberAnnotationFilter) VisitMethod(c *classfile.Class, m *classfile.Method) {
	if match.Annotation(m.Annotations, f.matcher) {
		f.delegate.VisitMethod(c, m)
	}
}
