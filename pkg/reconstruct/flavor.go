package reconstruct

import (
	"fmt"

	"github.com/clayne/resym/pkg/pdb/codeview"
)

// Flavor selects how built-in scalar types are spelled in
// reconstructed output.
type Flavor uint8

const (
	// FlavorPortable uses fixed-width <cstdint> names (uint32_t).
	FlavorPortable Flavor = iota
	// FlavorMicrosoft uses MSVC-native names (unsigned __int64).
	FlavorMicrosoft
	// FlavorRaw uses the underlying CodeView names unchanged.
	FlavorRaw
)

func (f Flavor) String() string {
	switch f {
	case FlavorPortable:
		return "portable"
	case FlavorMicrosoft:
		return "microsoft"
	case FlavorRaw:
		return "raw"
	default:
		return fmt.Sprintf("flavor(%d)", uint8(f))
	}
}

// ParseFlavor parses a flavor name as found in settings and CLI flags.
func ParseFlavor(s string) (Flavor, error) {
	switch s {
	case "portable":
		return FlavorPortable, nil
	case "microsoft":
		return FlavorMicrosoft, nil
	case "raw":
		return FlavorRaw, nil
	default:
		return FlavorPortable, fmt.Errorf("unknown primitive flavor %q", s)
	}
}

var portableNames = map[uint32]string{
	codeview.T_VOID:    "void",
	codeview.T_HRESULT: "HRESULT",
	codeview.T_CHAR:    "char",
	codeview.T_RCHAR:   "char",
	codeview.T_UCHAR:   "unsigned char",
	codeview.T_WCHAR:   "wchar_t",
	codeview.T_SHORT:   "int16_t",
	codeview.T_USHORT:  "uint16_t",
	codeview.T_LONG:    "int32_t",
	codeview.T_ULONG:   "uint32_t",
	codeview.T_QUAD:    "int64_t",
	codeview.T_UQUAD:   "uint64_t",
	codeview.T_INT1:    "int8_t",
	codeview.T_UINT1:   "uint8_t",
	codeview.T_INT2:    "int16_t",
	codeview.T_UINT2:   "uint16_t",
	codeview.T_INT4:    "int32_t",
	codeview.T_UINT4:   "uint32_t",
	codeview.T_INT8:    "int64_t",
	codeview.T_UINT8:   "uint64_t",
	codeview.T_BOOL08:  "bool",
	codeview.T_BOOL16:  "bool",
	codeview.T_BOOL32:  "bool",
	codeview.T_BOOL64:  "bool",
	codeview.T_REAL32:  "float",
	codeview.T_REAL64:  "double",
	codeview.T_REAL80:  "long double",
	codeview.T_CHAR8:   "char8_t",
	codeview.T_CHAR16:  "char16_t",
	codeview.T_CHAR32:  "char32_t",
}

var microsoftNames = map[uint32]string{
	codeview.T_VOID:    "void",
	codeview.T_HRESULT: "HRESULT",
	codeview.T_CHAR:    "char",
	codeview.T_RCHAR:   "char",
	codeview.T_UCHAR:   "unsigned char",
	codeview.T_WCHAR:   "wchar_t",
	codeview.T_SHORT:   "short",
	codeview.T_USHORT:  "unsigned short",
	codeview.T_LONG:    "long",
	codeview.T_ULONG:   "unsigned long",
	codeview.T_QUAD:    "__int64",
	codeview.T_UQUAD:   "unsigned __int64",
	codeview.T_INT1:    "__int8",
	codeview.T_UINT1:   "unsigned __int8",
	codeview.T_INT2:    "__int16",
	codeview.T_UINT2:   "unsigned __int16",
	codeview.T_INT4:    "int",
	codeview.T_UINT4:   "unsigned int",
	codeview.T_INT8:    "__int64",
	codeview.T_UINT8:   "unsigned __int64",
	codeview.T_BOOL08:  "bool",
	codeview.T_BOOL16:  "bool",
	codeview.T_BOOL32:  "BOOL",
	codeview.T_BOOL64:  "bool",
	codeview.T_REAL32:  "float",
	codeview.T_REAL64:  "double",
	codeview.T_REAL80:  "long double",
	codeview.T_CHAR8:   "char8_t",
	codeview.T_CHAR16:  "char16_t",
	codeview.T_CHAR32:  "char32_t",
}

// primitiveName spells a simple type index in the requested flavor,
// falling back to the raw CodeView name for kinds without a flavored
// spelling.
func primitiveName(index codeview.TypeIndex, flavor Flavor) string {
	if flavor == FlavorRaw {
		return codeview.SimpleTypeName(index)
	}

	table := portableNames
	if flavor == FlavorMicrosoft {
		table = microsoftNames
	}

	kind, pointer := codeview.SplitSimple(index)
	name, ok := table[kind]
	if !ok {
		return codeview.SimpleTypeName(index)
	}
	if pointer {
		return name + "*"
	}
	return name
}
