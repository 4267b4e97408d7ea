package optimize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/jshrink/internal/classfile"
)

func newMethod(name, descriptor string, flags uint16, body *classfile.Code) *classfile.Method {
	return &classfile.Method{
		Member: classfile.Member{Name: name, Descriptor: descriptor, AccessFlags: flags},
		Code:   body,
	}
}

func usedBits(p *ParameterUsage, m *classfile.Method, width int) []bool {
	bits := make([]bool, width)
	for i := range bits {
		bits[i] = p.IsParameterUsed(m, i)
	}
	return bits
}

func TestVisitMethodBodyReads(t *testing.T) {
	cls := &classfile.Class{Name: "com/example/Foo"}
	// private void m(int, long): slots this=0, int=1, long=2+3. The body
	// reads only the long.
	m := newMethod("m", "(IJ)V", classfile.AccPrivate, code(4, 0x20, 0xb1)) // lload_2, return
	cls.Methods = []*classfile.Method{m}

	p := NewParameterUsage()
	p.VisitMethod(cls, m)

	require.Equal(t, 4, p.ParameterSize(m))
	require.Equal(t, []bool{false, false, true, true}, usedBits(p, m, 4))
}

func TestVisitMethodReceiverForcing(t *testing.T) {
	emptyBody := func() *classfile.Code { return code(4, 0xb1) } // return

	tests := []struct {
		name      string
		class     *classfile.Class
		method    *classfile.Method
		wantUsed0 bool
	}{
		{
			name:      "private method leaves receiver unused",
			class:     &classfile.Class{Name: "p/C"},
			method:    newMethod("m", "(I)V", classfile.AccPrivate, emptyBody()),
			wantUsed0: false,
		},
		{
			name:      "synchronized forces the receiver",
			class:     &classfile.Class{Name: "p/C"},
			method:    newMethod("m", "(I)V", classfile.AccPrivate|classfile.AccSynchronized, emptyBody()),
			wantUsed0: true,
		},
		{
			name:      "overridable forces the receiver",
			class:     &classfile.Class{Name: "p/C"},
			method:    newMethod("m", "(I)V", classfile.AccPublic, emptyBody()),
			wantUsed0: true,
		},
		{
			name:      "final class makes public methods non-overridable",
			class:     &classfile.Class{Name: "p/C", AccessFlags: classfile.AccFinal},
			method:    newMethod("m", "(I)V", classfile.AccPublic, emptyBody()),
			wantUsed0: false,
		},
		{
			name:      "constructor forces the receiver",
			class:     &classfile.Class{Name: "p/C", AccessFlags: classfile.AccFinal},
			method:    newMethod(classfile.ConstructorName, "(I)V", classfile.AccPublic, emptyBody()),
			wantUsed0: true,
		},
		{
			name:      "static never has a receiver",
			class:     &classfile.Class{Name: "p/C"},
			method:    newMethod("m", "(I)V", classfile.AccPublic|classfile.AccStatic|classfile.AccSynchronized, emptyBody()),
			wantUsed0: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParameterUsage()
			p.VisitMethod(tt.class, tt.method)
			require.Equal(t, tt.wantUsed0, p.IsParameterUsed(tt.method, 0))
		})
	}
}

func TestVisitMethodNative(t *testing.T) {
	cls := &classfile.Class{Name: "p/C"}
	m := newMethod("m", "(IJ)V", classfile.AccPrivate|classfile.AccNative, nil)

	p := NewParameterUsage()
	p.VisitMethod(cls, m)

	require.Equal(t, allParameters, p.UsedParameters(m))
	require.Equal(t, 4, p.ParameterSize(m))
}

func TestVisitMethodAbstract(t *testing.T) {
	cls := &classfile.Class{Name: "p/C", AccessFlags: classfile.AccAbstract}
	m := newMethod("m", "(IJ)V", classfile.AccPublic|classfile.AccAbstract, nil)

	p := NewParameterUsage()
	p.VisitMethod(cls, m)

	require.Equal(t, []bool{true, false, false, false}, usedBits(p, m, 4))
	require.Equal(t, 4, p.ParameterSize(m))
}

func TestVisitMethodLibraryClass(t *testing.T) {
	lib := &classfile.Class{Name: "java/util/List", Library: true}

	t.Run("overridable keeps everything", func(t *testing.T) {
		m := newMethod("add", "(Ljava/lang/Object;)Z", classfile.AccPublic, nil)
		p := NewParameterUsage()
		p.VisitMethod(lib, m)
		require.Equal(t, allParameters, p.UsedParameters(m))
	})

	t.Run("non-overridable left without a record", func(t *testing.T) {
		m := newMethod("helper", "(I)I", classfile.AccPrivate, nil)
		p := NewParameterUsage()
		p.VisitMethod(lib, m)
		// No record: queries fall back to the fail-safe defaults.
		require.Equal(t, allParameters, p.UsedParameters(m))
		require.True(t, p.IsParameterUsed(m, 1))
		require.Zero(t, p.ParameterSize(m))
	})
}

func TestVisitMethodWidePairing(t *testing.T) {
	cls := &classfile.Class{Name: "p/C"}
	// static void m(long, double): long=0+1, double=2+3. The body touches
	// only the upper half of the double; both halves must come out used.
	m := newMethod("m", "(JD)V", classfile.AccPrivate|classfile.AccStatic,
		code(4, 0x15, 0x03, 0xb1)) // iload 3, return

	p := NewParameterUsage()
	p.VisitMethod(cls, m)

	require.Equal(t, []bool{false, false, true, true}, usedBits(p, m, 4))
}

func TestVisitMethodUnanalyzableBody(t *testing.T) {
	cls := &classfile.Class{Name: "p/C"}
	m := newMethod("m", "(I)V", classfile.AccPrivate|classfile.AccStatic,
		code(1, 0xca)) // reserved opcode

	p := NewParameterUsage()
	p.VisitMethod(cls, m)

	// The scan fails, so every declared slot is kept.
	require.Equal(t, uint64(0b1), p.UsedParameters(m))
}

func TestVisitMethodMissingBody(t *testing.T) {
	cls := &classfile.Class{Name: "p/C", AccessFlags: classfile.AccFinal}
	m := newMethod("m", "(I)V", classfile.AccPublic, nil)

	p := NewParameterUsage()
	p.VisitMethod(cls, m)

	// Concrete program method without code: no record, fail-safe defaults.
	require.Equal(t, allParameters, p.UsedParameters(m))
	require.Zero(t, p.ParameterSize(m))
}

func TestVisitMethodSaturatesWideParameterLists(t *testing.T) {
	cls := &classfile.Class{Name: "p/C"}
	descriptor := "(" + strings.Repeat("J", 33) + ")V" // 66 slots static
	m := newMethod("m", descriptor, classfile.AccPrivate|classfile.AccStatic,
		code(66, 0xb1))

	p := NewParameterUsage()
	p.VisitMethod(cls, m)

	require.Equal(t, 66, p.ParameterSize(m))
	require.Equal(t, allParameters, p.UsedParameters(m))
	require.True(t, p.IsParameterUsed(m, 65))
}

func TestMarksAreMonotonic(t *testing.T) {
	cls := &classfile.Class{Name: "p/C"}
	m := newMethod("m", "(II)V", classfile.AccPrivate|classfile.AccStatic,
		code(2, 0xb1))

	p := NewParameterUsage()
	p.VisitMethod(cls, m)
	require.Zero(t, p.UsedParameters(m))

	p.MarkParameterUsed(m, 1)
	require.Equal(t, uint64(0b10), p.UsedParameters(m))

	// Re-analysis must not clear previously established bits.
	p.VisitMethod(cls, m)
	require.Equal(t, uint64(0b10), p.UsedParameters(m))

	p.MarkUsedParameters(m, 0b01)
	require.Equal(t, uint64(0b11), p.UsedParameters(m))
}

func TestMarkParameterUsedBeyondWidthSaturates(t *testing.T) {
	cls := &classfile.Class{Name: "p/C"}
	m := newMethod("m", "()V", classfile.AccPrivate|classfile.AccStatic, code(0, 0xb1))

	p := NewParameterUsage()
	p.VisitMethod(cls, m)
	p.MarkParameterUsed(m, MaxTrackedParameters)
	require.Equal(t, allParameters, p.UsedParameters(m))

	p2 := NewParameterUsage()
	p2.MarkParameterUsed(m, -1)
	require.Equal(t, allParameters, p2.UsedParameters(m)) // still no record
}

func TestAnalyzePool(t *testing.T) {
	pool := classfile.NewPool()
	var methods []*classfile.Method
	for _, name := range []string{"p/A", "p/B", "p/C"} {
		m := newMethod("m", "(I)V", classfile.AccPrivate, code(2, 0x1b, 0xb1)) // iload_1
		pool.Add(&classfile.Class{Name: name, Methods: []*classfile.Method{m}})
		methods = append(methods, m)
	}

	p := NewParameterUsage()
	require.NoError(t, p.AnalyzePool(pool))

	for _, m := range methods {
		require.Equal(t, 2, p.ParameterSize(m))
		require.Equal(t, []bool{false, true}, usedBits(p, m, 2))
	}
}
