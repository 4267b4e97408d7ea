package classfile

import (
	"encoding/binary"
	"fmt"
)

const classFileMagic = 0xCAFEBABE

// Constant pool entry tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type constant any

type utf8Constant string

type classConstant struct {
	nameIndex uint16
}

// reader is a bounds-checked big-endian cursor over class-file bytes.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) u1() (uint8, error) {
	if r.pos+1 > len(r.data) {
		return 0, fmt.Errorf("truncated class file at offset %d", r.pos)
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u2() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, fmt.Errorf("truncated class file at offset %d", r.pos)
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u4() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("truncated class file at offset %d", r.pos)
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, fmt.Errorf("truncated class file at offset %d", r.pos)
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func (r *reader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

// Read parses the given class-file bytes into a Class entity. It retains
// what the analysis passes need: names, access flags, descriptors, Code
// attributes and runtime-visible annotation types. Other attributes are
// skipped.
func Read(data []byte) (*Class, error) {
	r := &reader{data: data}

	magic, err := r.u4()
	if err != nil {
		return nil, err
	}
	if magic != classFileMagic {
		return nil, fmt.Errorf("bad magic 0x%08X", magic)
	}
	// Minor and major version.
	if err := r.skip(4); err != nil {
		return nil, err
	}

	constants, err := readConstantPool(r)
	if err != nil {
		return nil, fmt.Errorf("constant pool: %w", err)
	}

	cls := &Class{constants: constants}

	if cls.AccessFlags, err = r.u2(); err != nil {
		return nil, err
	}

	thisClass, err := r.u2()
	if err != nil {
		return nil, err
	}
	if cls.Name, err = className(constants, thisClass); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}

	superClass, err := r.u2()
	if err != nil {
		return nil, err
	}
	if superClass != 0 {
		if cls.SuperName, err = className(constants, superClass); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}

	interfaceCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for range interfaceCount {
		idx, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := className(constants, idx)
		if err != nil {
			return nil, fmt.Errorf("interface: %w", err)
		}
		cls.InterfaceNames = append(cls.InterfaceNames, name)
	}

	fieldCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for range fieldCount {
		member, _, err := readMember(r, constants)
		if err != nil {
			return nil, fmt.Errorf("field: %w", err)
		}
		cls.Fields = append(cls.Fields, &Field{Member: member})
	}

	methodCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for range methodCount {
		member, code, err := readMember(r, constants)
		if err != nil {
			return nil, fmt.Errorf("method: %w", err)
		}
		cls.Methods = append(cls.Methods, &Method{Member: member, Code: code})
	}

	if cls.Annotations, err = readAttributes(r, constants, nil); err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}

	return cls, nil
}

func readConstantPool(r *reader) ([]constant, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}

	constants := make([]constant, count)
	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		switch tag {
		case tagUtf8:
			length, err := r.u2()
			if err != nil {
				return nil, err
			}
			b, err := r.bytes(int(length))
			if err != nil {
				return nil, err
			}
			constants[i] = utf8Constant(b)
		case tagClass:
			idx, err := r.u2()
			if err != nil {
				return nil, err
			}
			constants[i] = classConstant{nameIndex: idx}
		case tagInteger, tagFloat, tagFieldref, tagMethodref,
			tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			if err := r.skip(4); err != nil {
				return nil, err
			}
		case tagLong, tagDouble:
			if err := r.skip(8); err != nil {
				return nil, err
			}
			// Wide constants take two pool slots.
			i++
		case tagString, tagMethodType, tagModule, tagPackage:
			if err := r.skip(2); err != nil {
				return nil, err
			}
		case tagMethodHandle:
			if err := r.skip(3); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown constant tag %d at entry %d", tag, i)
		}
	}
	return constants, nil
}

func utf8(constants []constant, index uint16) (string, error) {
	if int(index) >= len(constants) {
		return "", fmt.Errorf("constant index %d out of range", index)
	}
	s, ok := constants[index].(utf8Constant)
	if !ok {
		return "", fmt.Errorf("constant %d is not a UTF-8 entry", index)
	}
	return string(s), nil
}

func className(constants []constant, index uint16) (string, error) {
	if int(index) >= len(constants) {
		return "", fmt.Errorf("constant index %d out of range", index)
	}
	c, ok := constants[index].(classConstant)
	if !ok {
		return "", fmt.Errorf("constant %d is not a class entry", index)
	}
	return utf8(constants, c.nameIndex)
}

func readMember(r *reader, constants []constant) (Member, *Code, error) {
	var m Member
	var err error

	if m.AccessFlags, err = r.u2(); err != nil {
		return m, nil, err
	}
	nameIdx, err := r.u2()
	if err != nil {
		return m, nil, err
	}
	if m.Name, err = utf8(constants, nameIdx); err != nil {
		return m, nil, err
	}
	descIdx, err := r.u2()
	if err != nil {
		return m, nil, err
	}
	if m.Descriptor, err = utf8(constants, descIdx); err != nil {
		return m, nil, err
	}

	var code *Code
	if m.Annotations, err = readAttributes(r, constants, &code); err != nil {
		return m, nil, err
	}
	return m, code, nil
}

// readAttributes walks one attribute table, collecting runtime-visible
// annotation types and, when codeOut is non-nil, the Code attribute.
func readAttributes(r *reader, constants []constant, codeOut **Code) ([]string, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}

	var annotations []string
	for range count {
		nameIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		length, err := r.u4()
		if err != nil {
			return nil, err
		}
		name, err := utf8(constants, nameIdx)
		if err != nil {
			return nil, err
		}

		switch {
		case name == "Code" && codeOut != nil:
			code, err := readCode(r, constants)
			if err != nil {
				return nil, err
			}
			*codeOut = code
		case name == "RuntimeVisibleAnnotations":
			types, err := readAnnotations(r, constants)
			if err != nil {
				return nil, err
			}
			annotations = append(annotations, types...)
		default:
			if err := r.skip(int(length)); err != nil {
				return nil, err
			}
		}
	}
	return annotations, nil
}

func readCode(r *reader, constants []constant) (*Code, error) {
	code := &Code{}
	var err error

	if code.MaxStack, err = r.u2(); err != nil {
		return nil, err
	}
	if code.MaxLocals, err = r.u2(); err != nil {
		return nil, err
	}
	codeLength, err := r.u4()
	if err != nil {
		return nil, err
	}
	bytecode, err := r.bytes(int(codeLength))
	if err != nil {
		return nil, err
	}
	code.Bytecode = bytecode

	exceptionCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	if err := r.skip(int(exceptionCount) * 8); err != nil {
		return nil, err
	}

	// Nested attributes (LineNumberTable etc.) are irrelevant here.
	if _, err := readAttributes(r, constants, nil); err != nil {
		return nil, err
	}
	return code, nil
}

// readAnnotations parses a RuntimeVisibleAnnotations attribute body and
// returns the annotation types in internal form, without the "L...;"
// descriptor framing.
func readAnnotations(r *reader, constants []constant) ([]string, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}

	types := make([]string, 0, count)
	for range count {
		typ, err := readAnnotation(r, constants)
		if err != nil {
			return nil, err
		}
		types = append(types, typ)
	}
	return types, nil
}

func readAnnotation(r *reader, constants []constant) (string, error) {
	typeIdx, err := r.u2()
	if err != nil {
		return "", err
	}
	descriptor, err := utf8(constants, typeIdx)
	if err != nil {
		return "", err
	}

	pairCount, err := r.u2()
	if err != nil {
		return "", err
	}
	for range pairCount {
		if err := r.skip(2); err != nil { // element name
			return "", err
		}
		if err := skipElementValue(r, constants); err != nil {
			return "", err
		}
	}
	return annotationTypeName(descriptor), nil
}

func skipElementValue(r *reader, constants []constant) error {
	tag, err := r.u1()
	if err != nil {
		return err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		return r.skip(2)
	case 'e':
		return r.skip(4)
	case '@':
		_, err := readAnnotation(r, constants)
		return err
	case '[':
		count, err := r.u2()
		if err != nil {
			return err
		}
		for range count {
			if err := skipElementValue(r, constants); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown element value tag %q", tag)
	}
}

// annotationTypeName strips the descriptor framing from an annotation type:
// "Lcom/example/Anno;" becomes "com/example/Anno".
func annotationTypeName(descriptor string) string {
	if len(descriptor) >= 2 && descriptor[0] == 'L' && descriptor[len(descriptor)-1] == ';' {
		return descriptor[1 : len(descriptor)-1]
	}
	return descriptor
}
