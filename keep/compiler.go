package keep

import (
	"github.com/715d/jshrink/internal/classfile"
	"github.com/715d/jshrink/internal/match"
	"github.com/715d/jshrink/internal/visitor"
)

// CompileKeep compiles a list of keep specifications into one traversal
// plan for the given phase. Rules that allow the phase's transformation
// contribute nothing. The class visitor is applied to matching classes, the
// member visitor to matching members; either may be nil.
func CompileKeep(specs []KeepSpecification, phase Phase, cv visitor.ClassVisitor, mv visitor.MemberVisitor) (visitor.ClassPoolVisitor, error) {
	multi := visitor.NewMultiClassPoolVisitor()

	for i := range specs {
		spec := &specs[i]
		if spec.allows(phase) {
			continue
		}
		pv, err := compileKeepSpecification(spec, cv, mv)
		if err != nil {
			return nil, err
		}
		multi.Add(pv)
	}
	return multi, nil
}

// Compile compiles a list of plain class specifications into one traversal
// plan, without keep semantics.
func Compile(specs []ClassSpecification, cv visitor.ClassVisitor, mv visitor.MemberVisitor) (visitor.ClassPoolVisitor, error) {
	multi := visitor.NewMultiClassPoolVisitor()

	for i := range specs {
		pv, err := compileSpecification(&specs[i], cv, mv)
		if err != nil {
			return nil, err
		}
		multi.Add(pv)
	}
	return multi, nil
}

func compileKeepSpecification(spec *KeepSpecification, cv visitor.ClassVisitor, mv visitor.MemberVisitor) (visitor.ClassPoolVisitor, error) {
	// The class visitor only applies when classes are to be marked.
	if !spec.MarkClasses && !spec.MarkConditionally {
		cv = nil
	}

	if spec.MarkConditionally {
		// Gate class visitation on member presence. The composed visitor
		// already covers the member callback, so it must not be attached a
		// second time below.
		composed, err := combineClassAndMembers(&spec.ClassSpecification, cv, mv)
		if err != nil {
			return nil, err
		}
		cv, err = compileConditional(&spec.ClassSpecification, composed)
		if err != nil {
			return nil, err
		}
		mv = nil
	}

	return compileSpecification(&spec.ClassSpecification, cv, mv)
}

// compileSpecification builds the traversal plan for one specification:
// compose the class and member callbacks, stack the filter gates, and pick
// the cheapest entry point into the pool.
func compileSpecification(spec *ClassSpecification, cv visitor.ClassVisitor, mv visitor.MemberVisitor) (visitor.ClassPoolVisitor, error) {
	composed, err := combineClassAndMembers(spec, cv, mv)
	if err != nil {
		return nil, err
	}
	if composed == nil {
		// Nothing to apply; the plan matches everything and does nothing.
		return visitor.NewMultiClassPoolVisitor(), nil
	}

	// Annotation checks open attribute data, so they sit innermost: access
	// and name gates run first at execution time.
	if spec.AnnotationType != "" {
		m, err := match.NewMatcher(spec.AnnotationType)
		if err != nil {
			return nil, err
		}
		composed = visitor.NewClassAnnotationFilter(m, composed)
	}

	if spec.RequiredSetAccessFlags != 0 || spec.RequiredUnsetAccessFlags != 0 {
		composed = visitor.NewClassAccessFilter(spec.RequiredSetAccessFlags, spec.RequiredUnsetAccessFlags, composed)
	}

	// By default the plan enters at the named class.
	entryName := spec.ClassName

	hasExtends := spec.ExtendsClassName != "" || spec.ExtendsAnnotationType != ""

	// A wildcarded name, or an extends clause, rules out a direct lookup on
	// the class name: the name becomes a filter over a wider scan.
	if entryName != "" && (hasExtends || match.HasWildcards(entryName)) {
		m, err := match.NewMatcher(entryName)
		if err != nil {
			return nil, err
		}
		composed = visitor.NewClassNameFilter(m, composed)
		entryName = ""
	}

	if hasExtends {
		// Traversal starts at the ancestor and runs the composite on every
		// transitive descendant.
		composed = visitor.NewHierarchyTraveler(visitor.TraverseSubclasses, composed)

		if spec.ExtendsAnnotationType != "" {
			m, err := match.NewMatcher(spec.ExtendsAnnotationType)
			if err != nil {
				return nil, err
			}
			composed = visitor.NewClassAnnotationFilter(m, composed)
		}

		if spec.ExtendsClassName != "" {
			if match.HasWildcards(spec.ExtendsClassName) {
				m, err := match.NewMatcher(spec.ExtendsClassName)
				if err != nil {
					return nil, err
				}
				composed = visitor.NewClassNameFilter(m, composed)
			} else {
				// The pattern-free ancestor name is the new direct entry.
				entryName = spec.ExtendsClassName
			}
		}
	}

	if entryName != "" {
		return visitor.NewNamedClassVisitor(entryName, composed), nil
	}
	return visitor.NewAllClassVisitor(composed), nil
}

// combineClassAndMembers composes the class-level callback and the member
// sub-plan. With only one present, it is used directly; with both, they
// apply independently. With neither, the result is nil.
func combineClassAndMembers(spec *ClassSpecification, cv visitor.ClassVisitor, mv visitor.MemberVisitor) (visitor.ClassVisitor, error) {
	if !spec.HasMemberSpecifications() {
		mv = nil
	}
	if mv == nil {
		return cv, nil
	}

	memberPlan, err := compileMemberPlan(spec, mv)
	if err != nil {
		return nil, err
	}
	if cv == nil {
		return memberPlan, nil
	}
	return visitor.NewMultiClassVisitor(cv, memberPlan), nil
}

// compileMemberPlan combines all field and method sub-plans into one class
// visitor that also walks the superclass chain, because a member
// specification may be satisfied by an inherited member.
func compileMemberPlan(spec *ClassSpecification, mv visitor.MemberVisitor) (visitor.ClassVisitor, error) {
	multi := visitor.NewMultiClassVisitor()

	for i := range spec.FieldSpecifications {
		v, err := compileMemberVisitor(&spec.FieldSpecifications[i], true, mv)
		if err != nil {
			return nil, err
		}
		multi.Add(v)
	}
	for i := range spec.MethodSpecifications {
		v, err := compileMemberVisitor(&spec.MethodSpecifications[i], false, mv)
		if err != nil {
			return nil, err
		}
		multi.Add(v)
	}

	return visitor.NewHierarchyTraveler(visitor.TraverseThis|visitor.TraverseSuperclasses, multi), nil
}

// compileMemberVisitor builds the chain for one member specification: a
// direct named lookup when name and descriptor are fully specified, a
// filtered scan otherwise, with access and name gates ahead of the
// annotation check.
func compileMemberVisitor(ms *MemberSpecification, isField bool, mv visitor.MemberVisitor) (visitor.ClassVisitor, error) {
	fullySpecified := ms.Name != "" && ms.Descriptor != "" &&
		!match.HasWildcards(ms.Name) && !match.HasWildcards(ms.Descriptor)

	if ms.AnnotationType != "" {
		m, err := match.NewMatcher(ms.AnnotationType)
		if err != nil {
			return nil, err
		}
		mv = visitor.NewMemberAnnotationFilter(m, mv)
	}

	if !fullySpecified {
		if ms.Descriptor != "" {
			m, err := match.NewMatcher(ms.Descriptor)
			if err != nil {
				return nil, err
			}
			mv = visitor.NewMemberDescriptorFilter(m, mv)
		}
		if ms.Name != "" {
			m, err := match.NewMatcher(ms.Name)
			if err != nil {
				return nil, err
			}
			mv = visitor.NewMemberNameFilter(m, mv)
		}
	}

	if ms.RequiredSetAccessFlags != 0 || ms.RequiredUnsetAccessFlags != 0 {
		mv = visitor.NewMemberAccessFilter(ms.RequiredSetAccessFlags, ms.RequiredUnsetAccessFlags, mv)
	}

	switch {
	case isField && fullySpecified:
		return visitor.NewNamedFieldVisitor(ms.Name, ms.Descriptor, mv), nil
	case isField:
		return visitor.NewAllFieldVisitor(mv), nil
	case fullySpecified:
		return visitor.NewNamedMethodVisitor(ms.Name, ms.Descriptor, mv), nil
	default:
		return visitor.NewAllMethodVisitor(mv), nil
	}
}

// compileConditional builds the conditional gate for a markConditionally
// specification: an ordered list of member conditions evaluated left to
// right, short-circuiting on the first that fails. The delegate runs on the
// subject class only when every listed member is present on the class or
// one of its superclasses. With no member specifications the gate is empty
// and the delegate runs unconditionally.
func compileConditional(spec *ClassSpecification, delegate visitor.ClassVisitor) (visitor.ClassVisitor, error) {
	gate := &conditionalClassVisitor{delegate: delegate}

	appendCondition := func(ms *MemberSpecification, isField bool) error {
		recorder := &matchRecorder{}
		probe, err := compileMemberVisitor(ms, isField, recorder)
		if err != nil {
			return err
		}
		gate.conditions = append(gate.conditions, &memberCondition{
			probe:    visitor.NewHierarchyTraveler(visitor.TraverseThis|visitor.TraverseSuperclasses, probe),
			recorder: recorder,
		})
		return nil
	}

	for i := range spec.FieldSpecifications {
		if err := appendCondition(&spec.FieldSpecifications[i], true); err != nil {
			return nil, err
		}
	}
	for i := range spec.MethodSpecifications {
		if err := appendCondition(&spec.MethodSpecifications[i], false); err != nil {
			return nil, err
		}
	}
	return gate, nil
}

// conditionalClassVisitor forwards a class only when all member conditions
// hold for it. Plan execution is a single pass; the shared recorders make
// this visitor unsafe for concurrent use.
type conditionalClassVisitor struct {
	conditions []*memberCondition
	delegate   visitor.ClassVisitor
}

func (v *conditionalClassVisitor) VisitClass(c *classfile.Class) {
	for _, cond := range v.conditions {
		if !cond.holds(c) {
			return
		}
	}
	if v.delegate != nil {
		v.delegate.VisitClass(c)
	}
}

type memberCondition struct {
	probe    visitor.ClassVisitor
	recorder *matchRecorder
}

func (c *memberCondition) holds(cls *classfile.Class) bool {
	c.recorder.matched = false
	c.probe.VisitClass(cls)
	return c.recorder.matched
}

// matchRecorder is a member visitor that records whether anything reached it.
type matchRecorder struct {
	matched bool
}

func (r *matchRecorder) VisitField(*classfile.Class, *classfile.Field)   { r.matched = true }
func (r *matchRecorder) VisitMethod(*classfile.Class, *classfile.Method) { r.matched = true }
