package visitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/jshrink/internal/classfile"
	"github.com/715d/jshrink/internal/match"
)

// recorder collects the names of visited classes and members.
type recorder struct {
	classes []string
	fields  []string
	methods []string
}

func (r *recorder) VisitClass(c *classfile.Class) {
	r.classes = append(r.classes, c.Name)
}

func (r *recorder) VisitField(c *classfile.Class, f *classfile.Field) {
	r.fields = append(r.fields, c.Name+"."+f.Name)
}

func (r *recorder) VisitMethod(c *classfile.Class, m *classfile.Method) {
	r.methods = append(r.methods, c.Name+"."+m.Name)
}

func mustMatcher(t *testing.T, pattern string) *match.Matcher {
	t.Helper()
	m, err := match.NewMatcher(pattern)
	require.NoError(t, err)
	return m
}

func newClass(name string) *classfile.Class {
	return &classfile.Class{Name: name}
}

func TestMultiClassVisitorSkipsNil(t *testing.T) {
	a := &recorder{}
	b := &recorder{}
	multi := NewMultiClassVisitor(a, nil, b)
	multi.Add(nil)

	multi.VisitClass(newClass("com/example/Foo"))
	require.Equal(t, []string{"com/example/Foo"}, a.classes)
	require.Equal(t, []string{"com/example/Foo"}, b.classes)
}

func TestNamedClassVisitor(t *testing.T) {
	pool := classfile.NewPool()
	pool.Add(newClass("com/example/Foo"))
	pool.Add(newClass("com/example/Bar"))

	rec := &recorder{}
	NewNamedClassVisitor("com/example/Bar", rec).VisitPool(pool)
	require.Equal(t, []string{"com/example/Bar"}, rec.classes)

	rec = &recorder{}
	NewNamedClassVisitor("com/example/Missing", rec).VisitPool(pool)
	require.Empty(t, rec.classes)
}

func TestAllClassVisitor(t *testing.T) {
	pool := classfile.NewPool()
	pool.Add(newClass("a/A"))
	pool.Add(newClass("b/B"))

	rec := &recorder{}
	NewAllClassVisitor(rec).VisitPool(pool)
	require.Equal(t, []string{"a/A", "b/B"}, rec.classes)
}

func TestClassFilters(t *testing.T) {
	annotated := newClass("com/example/Foo")
	annotated.AccessFlags = classfile.AccPublic
	annotated.Annotations = []string{"com/example/Keep"}
	plain := newClass("com/example/Bar")
	plain.AccessFlags = classfile.AccPublic | classfile.AccFinal

	t.Run("name", func(t *testing.T) {
		rec := &recorder{}
		f := NewClassNameFilter(mustMatcher(t, "com/example/F*"), rec)
		f.VisitClass(annotated)
		f.VisitClass(plain)
		require.Equal(t, []string{"com/example/Foo"}, rec.classes)
	})

	t.Run("access", func(t *testing.T) {
		rec := &recorder{}
		f := NewClassAccessFilter(classfile.AccPublic, classfile.AccFinal, rec)
		f.VisitClass(annotated)
		f.VisitClass(plain)
		require.Equal(t, []string{"com/example/Foo"}, rec.classes)
	})

	t.Run("annotation", func(t *testing.T) {
		rec := &recorder{}
		f := NewClassAnnotationFilter(mustMatcher(t, "com/example/Keep"), rec)
		f.VisitClass(annotated)
		f.VisitClass(plain)
		require.Equal(t, []string{"com/example/Foo"}, rec.classes)
	})
}

func TestMemberFilters(t *testing.T) {
	cls := newClass("com/example/Foo")
	hit := &classfile.Method{Member: classfile.Member{
		Name:        "run",
		Descriptor:  "()V",
		AccessFlags: classfile.AccPublic,
		Annotations: []string{"com/example/Keep"},
	}}
	miss := &classfile.Method{Member: classfile.Member{
		Name:        "helper",
		Descriptor:  "(I)I",
		AccessFlags: classfile.AccPrivate,
	}}

	tests := []struct {
		name   string
		filter func(delegate MemberVisitor) MemberVisitor
	}{
		{"name", func(d MemberVisitor) MemberVisitor {
			return NewMemberNameFilter(mustMatcher(t, "run"), d)
		}},
		{"descriptor", func(d MemberVisitor) MemberVisitor {
			return NewMemberDescriptorFilter(mustMatcher(t, "()V"), d)
		}},
		{"access", func(d MemberVisitor) MemberVisitor {
			return NewMemberAccessFilter(classfile.AccPublic, classfile.AccPrivate, d)
		}},
		{"annotation", func(d MemberVisitor) MemberVisitor {
			return NewMemberAnnotationFilter(mustMatcher(t, "com/example/Keep"), d)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			f := tt.filter(rec)
			f.VisitMethod(cls, hit)
			f.VisitMethod(cls, miss)
			require.Equal(t, []string{"com/example/Foo.run"}, rec.methods)
		})
	}
}

func TestMemberTableVisitors(t *testing.T) {
	cls := newClass("com/example/Foo")
	cls.Fields = []*classfile.Field{
		{Member: classfile.Member{Name: "a", Descriptor: "I"}},
		{Member: classfile.Member{Name: "b", Descriptor: "J"}},
	}
	cls.Methods = []*classfile.Method{
		{Member: classfile.Member{Name: "run", Descriptor: "()V"}},
		{Member: classfile.Member{Name: "run", Descriptor: "(I)V"}},
	}

	rec := &recorder{}
	NewAllFieldVisitor(rec).VisitClass(cls)
	NewAllMethodVisitor(rec).VisitClass(cls)
	require.Equal(t, []string{"com/example/Foo.a", "com/example/Foo.b"}, rec.fields)
	require.Equal(t, []string{"com/example/Foo.run", "com/example/Foo.run"}, rec.methods)

	rec = &recorder{}
	NewNamedFieldVisitor("b", "J", rec).VisitClass(cls)
	NewNamedFieldVisitor("b", "I", rec).VisitClass(cls)
	require.Equal(t, []string{"com/example/Foo.b"}, rec.fields)

	rec = &recorder{}
	NewNamedMethodVisitor("run", "(I)V", rec).VisitClass(cls)
	NewNamedMethodVisitor("gone", "()V", rec).VisitClass(cls)
	require.Equal(t, []string{"com/example/Foo.run"}, rec.methods)
}

// diamondPool builds:
//
//	Root <- Mid <- Leaf, with Mid and Leaf both implementing Iface,
//	and Iface extending SuperIface.
func diamondPool() *classfile.Pool {
	pool := classfile.NewPool()
	superIface := newClass("p/SuperIface")
	iface := newClass("p/Iface")
	iface.InterfaceNames = []string{"p/SuperIface"}
	root := newClass("p/Root")
	mid := newClass("p/Mid")
	mid.SuperName = "p/Root"
	mid.InterfaceNames = []string{"p/Iface"}
	leaf := newClass("p/Leaf")
	leaf.SuperName = "p/Mid"
	leaf.InterfaceNames = []string{"p/Iface"}

	for _, c := range []*classfile.Class{superIface, iface, root, mid, leaf} {
		pool.Add(c)
	}
	pool.ResolveHierarchy()
	return pool
}

func TestHierarchyTraveler(t *testing.T) {
	pool := diamondPool()

	tests := []struct {
		name  string
		mode  Traversal
		start string
		want  []string
	}{
		{"this only", TraverseThis, "p/Mid", []string{"p/Mid"}},
		{"superclasses exclude this", TraverseSuperclasses, "p/Leaf", []string{"p/Mid", "p/Root"}},
		{"this and superclasses", TraverseThis | TraverseSuperclasses, "p/Leaf", []string{"p/Leaf", "p/Mid", "p/Root"}},
		{"interfaces are transitive", TraverseInterfaces, "p/Mid", []string{"p/Iface", "p/SuperIface"}},
		{"subclasses exclude this", TraverseSubclasses, "p/Root", []string{"p/Mid", "p/Leaf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			NewHierarchyTraveler(tt.mode, rec).VisitClass(pool.Get(tt.start))
			require.Equal(t, tt.want, rec.classes)
		})
	}
}

func TestHierarchyTravelerDeduplicatesDiamond(t *testing.T) {
	pool := diamondPool()

	// Mid and Leaf both implement Iface directly; Leaf must be visited once.
	rec := &recorder{}
	NewHierarchyTraveler(TraverseSubclasses, rec).VisitClass(pool.Get("p/Iface"))
	require.ElementsMatch(t, []string{"p/Mid", "p/Leaf"}, rec.classes)
	require.Len(t, rec.classes, 2)
}
