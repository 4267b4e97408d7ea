package classfile

import "fmt"

// IsWideType reports whether the given field type occupies two local
// variable slots (category-2: long and double).
func IsWideType(typ string) bool {
	return typ == "J" || typ == "D"
}

// SlotSize returns the number of local variable slots the given field type
// occupies.
func SlotSize(typ string) int {
	if IsWideType(typ) {
		return 2
	}
	return 1
}

// ParameterTypes returns the field types of the parameters in the given
// method descriptor, in declaration order.
func ParameterTypes(descriptor string) ([]string, error) {
	if len(descriptor) < 2 || descriptor[0] != '(' {
		return nil, fmt.Errorf("malformed method descriptor %q", descriptor)
	}

	var types []string
	i := 1
	for i < len(descriptor) && descriptor[i] != ')' {
		start := i

		// Array dimensions prefix the element type.
		for i < len(descriptor) && descriptor[i] == '[' {
			i++
		}
		if i >= len(descriptor) {
			return nil, fmt.Errorf("malformed method descriptor %q", descriptor)
		}

		switch descriptor[i] {
		case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
			i++
		case 'L':
			for i < len(descriptor) && descriptor[i] != ';' {
				i++
			}
			if i >= len(descriptor) {
				return nil, fmt.Errorf("unterminated class type in descriptor %q", descriptor)
			}
			i++
		default:
			return nil, fmt.Errorf("unknown type %q in descriptor %q", descriptor[i], descriptor)
		}

		types = append(types, descriptor[start:i])
	}

	if i >= len(descriptor) || descriptor[i] != ')' {
		return nil, fmt.Errorf("unterminated parameter list in descriptor %q", descriptor)
	}
	return types, nil
}

// MethodParameterSize returns the total slot width of the formal parameter
// list described by the given method descriptor, including the implicit
// receiver slot for non-static methods and the extra slot of each wide
// parameter. Malformed descriptors yield 0.
func MethodParameterSize(descriptor string, accessFlags uint16) int {
	types, err := ParameterTypes(descriptor)
	if err != nil {
		return 0
	}

	size := 0
	if accessFlags&AccStatic == 0 {
		size = 1
	}
	for _, t := range types {
		size += SlotSize(t)
	}
	return size
}
