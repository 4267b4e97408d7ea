// Package keep compiles declarative class and member specifications into a
// single efficient traversal plan over a class pool.
package keep

// ClassSpecification describes which classes, and optionally which of their
// members, to match. Absent criteria (empty strings, zero masks, empty
// lists) are unconstrained, never "match nothing".
type ClassSpecification struct {
	// ClassName matches the internal class name, exactly or by pattern.
	// Empty means any class.
	ClassName string

	// AnnotationType, when non-empty, requires a runtime-visible annotation
	// of this type on the class.
	AnnotationType string

	// RequiredSetAccessFlags and RequiredUnsetAccessFlags constrain the
	// class's access flags: all set bits must be present, no unset bit may
	// be.
	RequiredSetAccessFlags   uint16
	RequiredUnsetAccessFlags uint16

	// ExtendsClassName restricts matches to transitive descendants of a
	// class with this name (exact or pattern).
	ExtendsClassName string

	// ExtendsAnnotationType restricts matches to transitive descendants of
	// classes annotated with this type.
	ExtendsAnnotationType string

	// FieldSpecifications and MethodSpecifications select members within
	// matched classes, in order.
	FieldSpecifications  []MemberSpecification
	MethodSpecifications []MemberSpecification
}

// HasMemberSpecifications reports whether any field or method
// specifications are present.
func (s *ClassSpecification) HasMemberSpecifications() bool {
	return len(s.FieldSpecifications) > 0 || len(s.MethodSpecifications) > 0
}

// MemberSpecification describes which fields or methods to match within a
// class. A name and descriptor that are both present and pattern-free fully
// specify the member and enable a direct lookup.
type MemberSpecification struct {
	// Name matches the member name, exactly or by pattern. Empty means any.
	Name string

	// Descriptor matches the member descriptor, exactly or by pattern.
	// Empty means any.
	Descriptor string

	// AnnotationType, when non-empty, requires a runtime-visible annotation
	// of this type on the member.
	AnnotationType string

	RequiredSetAccessFlags   uint16
	RequiredUnsetAccessFlags uint16
}

// KeepSpecification is a ClassSpecification with keep semantics: whether
// matched classes are marked unconditionally or only when the listed
// members are present, and which processing phases the rule permits.
type KeepSpecification struct {
	ClassSpecification

	// MarkClasses marks matched classes unconditionally.
	MarkClasses bool

	// MarkConditionally marks matched classes only when every listed member
	// specification is satisfied by the class or one of its superclasses.
	// With no member specifications the condition degenerates to true.
	MarkConditionally bool

	// AllowShrinking, AllowOptimization and AllowObfuscation state which
	// transformations the rule tolerates. A rule contributes to a phase's
	// plan only when it does not allow that phase's transformation.
	AllowShrinking    bool
	AllowOptimization bool
	AllowObfuscation  bool
}

// Phase identifies the processing phase a compiled plan serves.
type Phase int

const (
	PhaseShrink Phase = iota
	PhaseOptimize
	PhaseObfuscate
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseShrink:
		return "shrink"
	case PhaseOptimize:
		return "optimize"
	case PhaseObfuscate:
		return "obfuscate"
	default:
		return "unknown"
	}
}

// allows reports whether the rule permits the given phase's transformation
// on its matches.
func (s *KeepSpecification) allows(phase Phase) bool {
	switch phase {
	case PhaseShrink:
		return s.AllowShrinking
	case PhaseOptimize:
		return s.AllowOptimization
	case PhaseObfuscate:
		return s.AllowObfuscation
	default:
		return false
	}
}
