package optimize

import (
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/715d/jshrink/internal/classfile"
)

// VisitMethod computes and persists the method's parameter slot width and a
// conservative used-slot bit-vector. Visiting the same method again only
// grows the vector.
func (p *ParameterUsage) VisitMethod(c *classfile.Class, m *classfile.Method) {
	if c.Library || (m.Code == nil && m.AccessFlags&(classfile.AccNative|classfile.AccAbstract) == 0) {
		// No body is available at all. Any unknown override could depend on
		// any parameter, so overridable methods keep everything; the rest
		// are left without a record and read as all-used by default.
		if c.MayHaveImplementations(m) {
			p.MarkUsedParameters(m, allParameters)
		}
		return
	}

	parameterSize := classfile.MethodParameterSize(m.Descriptor, m.AccessFlags)
	if parameterSize > 0 {
		p.analyzeMethod(c, m, parameterSize)
	}
	p.setParameterSize(m, parameterSize)
}

func (p *ParameterUsage) analyzeMethod(c *classfile.Class, m *classfile.Method, parameterSize int) {
	if parameterSize > MaxTrackedParameters {
		// Beyond the vector width individual slots cannot be tracked;
		// saturate rather than silently truncate.
		p.MarkUsedParameters(m, allParameters)
		return
	}

	switch {
	case m.AccessFlags&classfile.AccNative != 0:
		// The body is opaque; nothing is provably dead.
		p.MarkUsedParameters(m, allParameters)

	case m.AccessFlags&classfile.AccAbstract != 0:
		// No body to analyze; only the receiver is implicitly live.
		p.MarkParameterUsed(m, 0)

	default:
		// Synchronization, dynamic dispatch and construction depend on
		// 'this' even when the body never reads it.
		if m.AccessFlags&classfile.AccStatic == 0 &&
			(m.AccessFlags&classfile.AccSynchronized != 0 ||
				c.MayHaveImplementations(m) ||
				m.Name == classfile.ConstructorName) {
			p.MarkParameterUsed(m, 0)
		}

		p.analyzeBody(c, m, parameterSize)
	}
}

func (p *ParameterUsage) analyzeBody(c *classfile.Class, m *classfile.Method, parameterSize int) {
	if m.Code == nil {
		// Concrete method without code is malformed input; keep everything.
		p.MarkUsedParameters(m, maskOf(parameterSize))
		return
	}

	reads, err := scanVariableReads(m.Code)
	if err != nil {
		slog.Warn("unanalyzable method body, keeping all parameters",
			"class", c.Name, "method", m.Name+m.Descriptor, "error", err)
		p.MarkUsedParameters(m, maskOf(parameterSize))
		return
	}

	for slot := 0; slot < parameterSize && slot < len(reads); slot++ {
		if reads[slot] {
			p.MarkParameterUsed(m, slot)
		}
	}

	// A half-read wide parameter counts as fully read: its two slots cannot
	// be eliminated independently.
	types, err := classfile.ParameterTypes(m.Descriptor)
	if err != nil {
		p.MarkUsedParameters(m, maskOf(parameterSize))
		return
	}

	slot := 0
	if m.AccessFlags&classfile.AccStatic == 0 {
		slot = 1
	}
	for _, typ := range types {
		if classfile.IsWideType(typ) {
			if slotRead(reads, slot) || slotRead(reads, slot+1) {
				p.MarkParameterUsed(m, slot)
				p.MarkParameterUsed(m, slot+1)
			}
			slot++
		}
		slot++
	}
}

// AnalyzeClass runs the parameter analysis over every method of a class.
func (p *ParameterUsage) AnalyzeClass(c *classfile.Class) {
	for _, m := range c.Methods {
		p.VisitMethod(c, m)
	}
}

// AnalyzePool analyzes every method in the pool, fanning out per class.
// Each method's record is owned by that method alone, so concurrent
// analysis of different classes is safe.
func (p *ParameterUsage) AnalyzePool(pool *classfile.Pool) error {
	var wg errgroup.Group
	wg.SetLimit(runtime.NumCPU())

	for _, c := range pool.Classes() {
		wg.Go(func() error {
			p.AnalyzeClass(c)
			return nil
		})
	}
	return wg.Wait()
}

func maskOf(width int) uint64 {
	if width >= MaxTrackedParameters {
		return allParameters
	}
	return (1 << uint(width)) - 1
}

func slotRead(reads []bool, slot int) bool {
	return slot < len(reads) && reads[slot]
}
