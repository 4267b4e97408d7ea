package optimize

import (
	"encoding/binary"
	"fmt"

	"github.com/715d/jshrink/internal/classfile"
)

// JVM opcodes the variable scan cares about.
const (
	opILoad       = 0x15
	opALoad       = 0x19
	opILoad0      = 0x1a
	opALoad3      = 0x2d
	opIStore      = 0x36
	opAStore      = 0x3a
	opIStore0     = 0x3b
	opAStore3     = 0x56
	opIInc        = 0x84
	opRet         = 0xa9
	opTableSwitch = 0xaa
	opLookupSwitch = 0xab
	opWide        = 0xc4
)

// instructionLengths holds the byte length of each instruction including
// the opcode. Zero marks an opcode that does not occur in valid code;
// variable-length instructions (tableswitch, lookupswitch, wide) are
// handled separately.
var instructionLengths = buildInstructionLengths()

func buildInstructionLengths() [256]uint8 {
	var lengths [256]uint8

	// Most instructions are a bare opcode.
	for op := 0x00; op <= 0xc9; op++ {
		lengths[op] = 1
	}

	two := []int{0x10, 0x12, 0x15, 0x16, 0x17, 0x18, 0x19, 0x36, 0x37, 0x38, 0x39, 0x3a, 0xa9, 0xbc}
	for _, op := range two {
		lengths[op] = 2
	}

	three := []int{0x11, 0x13, 0x14, 0x84, 0xbb, 0xbd, 0xc0, 0xc1, 0xc6, 0xc7}
	for _, op := range three {
		lengths[op] = 3
	}
	// Branches ifeq..jsr and field/method access getstatic..invokestatic.
	for op := 0x99; op <= 0xa8; op++ {
		lengths[op] = 3
	}
	for op := 0xb2; op <= 0xb8; op++ {
		lengths[op] = 3
	}

	lengths[0xc5] = 4                         // multianewarray
	lengths[0xb9], lengths[0xba] = 5, 5       // invokeinterface, invokedynamic
	lengths[0xc8], lengths[0xc9] = 5, 5       // goto_w, jsr_w
	lengths[opTableSwitch], lengths[opLookupSwitch], lengths[opWide] = 0, 0, 0

	return lengths
}

// scanVariableReads walks a method body and reports, per local-variable
// slot, whether the slot is ever read. Wide (category-2) loads read two
// consecutive slots. Stores do not count as reads.
func scanVariableReads(code *classfile.Code) ([]bool, error) {
	reads := make([]bool, code.MaxLocals)

	markRead := func(slot, width int) {
		for i := range width {
			if slot+i < len(reads) {
				reads[slot+i] = true
			}
		}
	}

	bytecode := code.Bytecode
	pc := 0
	for pc < len(bytecode) {
		op := bytecode[pc]

		switch {
		case op >= opILoad && op <= opALoad:
			if pc+1 >= len(bytecode) {
				return nil, fmt.Errorf("truncated load at pc %d", pc)
			}
			markRead(int(bytecode[pc+1]), loadWidth(op))
			pc += 2
			continue

		case op >= opILoad0 && op <= opALoad3:
			// iload_0 .. aload_3: opcode encodes kind and slot.
			kind := (op - opILoad0) / 4
			slot := int((op - opILoad0) % 4)
			markRead(slot, loadWidth(opILoad+kind))
			pc++
			continue

		case op == opIInc:
			if pc+2 >= len(bytecode) {
				return nil, fmt.Errorf("truncated iinc at pc %d", pc)
			}
			markRead(int(bytecode[pc+1]), 1)
			pc += 3
			continue

		case op == opRet:
			if pc+1 >= len(bytecode) {
				return nil, fmt.Errorf("truncated ret at pc %d", pc)
			}
			markRead(int(bytecode[pc+1]), 1)
			pc += 2
			continue

		case op == opWide:
			next, err := scanWide(bytecode, pc, markRead)
			if err != nil {
				return nil, err
			}
			pc = next
			continue

		case op == opTableSwitch:
			next, err := skipTableSwitch(bytecode, pc)
			if err != nil {
				return nil, err
			}
			pc = next
			continue

		case op == opLookupSwitch:
			next, err := skipLookupSwitch(bytecode, pc)
			if err != nil {
				return nil, err
			}
			pc = next
			continue
		}

		length := int(instructionLengths[op])
		if length == 0 {
			return nil, fmt.Errorf("unknown opcode 0x%02x at pc %d", op, pc)
		}
		pc += length
	}

	return reads, nil
}

// loadWidth returns how many slots the load opcode family reads: two for
// lload and dload, one otherwise.
func loadWidth(loadOp uint8) int {
	if loadOp == 0x16 || loadOp == 0x18 { // lload, dload
		return 2
	}
	return 1
}

func scanWide(bytecode []byte, pc int, markRead func(slot, width int)) (int, error) {
	if pc+3 >= len(bytecode) {
		return 0, fmt.Errorf("truncated wide instruction at pc %d", pc)
	}
	op := bytecode[pc+1]
	slot := int(binary.BigEndian.Uint16(bytecode[pc+2:]))

	switch {
	case op >= opILoad && op <= opALoad:
		markRead(slot, loadWidth(op))
		return pc + 4, nil
	case op >= opIStore && op <= opAStore:
		return pc + 4, nil
	case op == opRet:
		markRead(slot, 1)
		return pc + 4, nil
	case op == opIInc:
		if pc+5 >= len(bytecode) {
			return 0, fmt.Errorf("truncated wide iinc at pc %d", pc)
		}
		markRead(slot, 1)
		return pc + 6, nil
	default:
		return 0, fmt.Errorf("invalid wide operand 0x%02x at pc %d", op, pc)
	}
}

func skipTableSwitch(bytecode []byte, pc int) (int, error) {
	// Operands start at the next 4-byte boundary relative to the code start.
	pos := align4(pc + 1)
	if pos+12 > len(bytecode) {
		return 0, fmt.Errorf("truncated tableswitch at pc %d", pc)
	}
	low := int32(binary.BigEndian.Uint32(bytecode[pos+4:]))
	high := int32(binary.BigEndian.Uint32(bytecode[pos+8:]))
	if high < low {
		return 0, fmt.Errorf("malformed tableswitch at pc %d", pc)
	}
	end := pos + 12 + int(high-low+1)*4
	if end > len(bytecode) {
		return 0, fmt.Errorf("truncated tableswitch at pc %d", pc)
	}
	return end, nil
}

func skipLookupSwitch(bytecode []byte, pc int) (int, error) {
	pos := align4(pc + 1)
	if pos+8 > len(bytecode) {
		return 0, fmt.Errorf("truncated lookupswitch at pc %d", pc)
	}
	pairs := int32(binary.BigEndian.Uint32(bytecode[pos+4:]))
	if pairs < 0 {
		return 0, fmt.Errorf("malformed lookupswitch at pc %d", pc)
	}
	end := pos + 8 + int(pairs)*8
	if end > len(bytecode) {
		return 0, fmt.Errorf("truncated lookupswitch at pc %d", pc)
	}
	return end, nil
}

func align4(pos int) int {
	return (pos + 3) &^ 3
}

func errTruncated(pc int) error {
	return fmt.Errorf("truncated code at pc %d", pc)
}

func errUnknownOpcode(op byte, pc int) error {
	return fmt.Errorf("unknown opcode 0x%02x at pc %d", op, pc)
}
