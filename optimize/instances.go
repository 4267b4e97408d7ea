package optimize

import (
	"encoding/binary"
	"log/slog"

	"github.com/715d/jshrink/internal/classfile"
)

const (
	opLdc        = 0x12
	opLdcW       = 0x13
	opNew        = 0xbb
	opInstanceof = 0xc1
)

// MarkPool attaches a usage record to every class in the pool, records which
// classes declare package-visible members, and then scans all method bodies
// for instruction-level class references: object creation, instanceof checks
// and class literals. Classes the scan never marks read as unused afterwards;
// classes outside the pool are ignored.
func (u *ClassUsage) MarkPool(pool *classfile.Pool) {
	// Records exist up front so that unmarked classes answer false instead
	// of the no-record default of "assume referenced".
	for _, c := range pool.Classes() {
		u.info(c)
		if declaresPackageVisibleMembers(c) {
			u.MarkPackageVisibleMembers(c)
		}
	}

	for _, c := range pool.Classes() {
		for _, m := range c.Methods {
			if m.Code == nil {
				continue
			}
			if err := u.scanMethod(pool, c, m.Code); err != nil {
				slog.Warn("skipping class usage scan for method",
					"class", c.Name, "method", m.Name+m.Descriptor, "error", err)
			}
		}
	}
}

func (u *ClassUsage) scanMethod(pool *classfile.Pool, c *classfile.Class, code *classfile.Code) error {
	bytecode := code.Bytecode
	pc := 0
	for pc < len(bytecode) {
		op := bytecode[pc]

		switch op {
		case opNew, opInstanceof:
			if pc+2 >= len(bytecode) {
				return errTruncated(pc)
			}
			index := int(binary.BigEndian.Uint16(bytecode[pc+1:]))
			if target := resolveClass(pool, c, index); target != nil {
				if op == opNew {
					u.MarkInstantiated(target)
				} else {
					u.MarkInstanceofed(target)
				}
			}

		case opLdc:
			if pc+1 >= len(bytecode) {
				return errTruncated(pc)
			}
			if target := resolveClass(pool, c, int(bytecode[pc+1])); target != nil {
				u.MarkDotClassed(target)
			}

		case opLdcW:
			if pc+2 >= len(bytecode) {
				return errTruncated(pc)
			}
			index := int(binary.BigEndian.Uint16(bytecode[pc+1:]))
			if target := resolveClass(pool, c, index); target != nil {
				u.MarkDotClassed(target)
			}
		}

		next, err := nextInstruction(bytecode, pc)
		if err != nil {
			return err
		}
		pc = next
	}
	return nil
}

// declaresPackageVisibleMembers reports whether any field or method of the
// class has default (package) access.
func declaresPackageVisibleMembers(c *classfile.Class) bool {
	visibility := classfile.AccPublic | classfile.AccPrivate | classfile.AccProtected
	for _, f := range c.Fields {
		if f.AccessFlags&visibility == 0 {
			return true
		}
	}
	for _, m := range c.Methods {
		if m.AccessFlags&visibility == 0 {
			return true
		}
	}
	return false
}

// resolveClass maps a constant-pool index to a pool class, or nil when the
// index is not a class reference or the class is not loaded.
func resolveClass(pool *classfile.Pool, c *classfile.Class, index int) *classfile.Class {
	name, ok := c.ClassConstant(index)
	if !ok {
		return nil
	}
	return pool.Get(name)
}

// nextInstruction returns the offset of the instruction following the one
// at pc, handling the variable-length instructions.
func nextInstruction(bytecode []byte, pc int) (int, error) {
	switch op := bytecode[pc]; op {
	case opTableSwitch:
		return skipTableSwitch(bytecode, pc)
	case opLookupSwitch:
		return skipLookupSwitch(bytecode, pc)
	case opWide:
		if pc+1 >= len(bytecode) {
			return 0, errTruncated(pc)
		}
		if bytecode[pc+1] == opIInc {
			return pc + 6, nil
		}
		return pc + 4, nil
	default:
		length := int(instructionLengths[op])
		if length == 0 {
			return 0, errUnknownOpcode(op, pc)
		}
		return pc + length, nil
	}
}
