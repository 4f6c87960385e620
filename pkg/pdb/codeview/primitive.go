package codeview

import "fmt"

// Primitive kind codes (low byte of a simple type index).
const (
	T_NOTYPE  = 0x0000
	T_VOID    = 0x0003
	T_HRESULT = 0x0008

	T_CHAR   = 0x0010
	T_SHORT  = 0x0011
	T_LONG   = 0x0012
	T_QUAD   = 0x0013
	T_UCHAR  = 0x0020
	T_USHORT = 0x0021
	T_ULONG  = 0x0022
	T_UQUAD  = 0x0023

	T_BOOL08 = 0x0030
	T_BOOL16 = 0x0031
	T_BOOL32 = 0x0032
	T_BOOL64 = 0x0033

	T_REAL32 = 0x0040
	T_REAL64 = 0x0041
	T_REAL80 = 0x0042

	T_INT1   = 0x0068
	T_UINT1  = 0x0069
	T_RCHAR  = 0x0070
	T_WCHAR  = 0x0071
	T_INT2   = 0x0072
	T_UINT2  = 0x0073
	T_INT4   = 0x0074
	T_UINT4  = 0x0075
	T_INT8   = 0x0076
	T_UINT8  = 0x0077
	T_CHAR16 = 0x007a
	T_CHAR32 = 0x007b
	T_CHAR8  = 0x007c
)

// SplitSimple decomposes a simple type index into its primitive kind
// (low byte) and a flag telling whether the index denotes a pointer to
// that primitive (non-zero mode nibble).
func SplitSimple(ti TypeIndex) (kind uint32, pointer bool) {
	return uint32(ti) & 0xFF, (uint32(ti)>>8)&0xF != 0
}

// SimpleTypeName returns the raw CodeView name of a simple type index,
// with a trailing "*" for pointer modes.
func SimpleTypeName(ti TypeIndex) string {
	if !ti.IsSimple() {
		return ""
	}
	kind, pointer := SplitSimple(ti)

	name := ""
	switch kind {
	case T_NOTYPE:
		name = "..."
	case T_VOID:
		name = "void"
	case T_HRESULT:
		name = "HRESULT"
	case T_CHAR, T_RCHAR:
		name = "char"
	case T_SHORT:
		name = "short"
	case T_LONG:
		name = "long"
	case T_QUAD:
		name = "int64"
	case T_UCHAR:
		name = "unsigned char"
	case T_USHORT:
		name = "unsigned short"
	case T_ULONG:
		name = "unsigned long"
	case T_UQUAD:
		name = "uint64"
	case T_BOOL08, T_BOOL16, T_BOOL32, T_BOOL64:
		name = "bool"
	case T_REAL32:
		name = "float"
	case T_REAL64:
		name = "double"
	case T_REAL80:
		name = "long double"
	case T_INT1:
		name = "int8"
	case T_UINT1:
		name = "uint8"
	case T_WCHAR:
		name = "wchar_t"
	case T_INT2:
		name = "int16"
	case T_UINT2:
		name = "uint16"
	case T_INT4:
		name = "int32"
	case T_UINT4:
		name = "uint32"
	case T_INT8:
		name = "int64"
	case T_UINT8:
		name = "uint64"
	case T_CHAR8:
		name = "char8_t"
	case T_CHAR16:
		name = "char16_t"
	case T_CHAR32:
		name = "char32_t"
	default:
		name = fmt.Sprintf("builtin_0x%04x", uint32(ti))
	}

	if pointer {
		return name + "*"
	}
	return name
}

// SimpleTypeSize returns the byte size of a simple type index, or 0
// when unknown. Pointer modes report the 64-bit pointer size.
func SimpleTypeSize(ti TypeIndex) uint64 {
	if !ti.IsSimple() {
		return 0
	}
	kind, pointer := SplitSimple(ti)
	if pointer {
		return 8
	}
	switch kind {
	case T_CHAR, T_RCHAR, T_UCHAR, T_INT1, T_UINT1, T_BOOL08, T_CHAR8:
		return 1
	case T_SHORT, T_USHORT, T_INT2, T_UINT2, T_WCHAR, T_CHAR16, T_BOOL16:
		return 2
	case T_LONG, T_ULONG, T_INT4, T_UINT4, T_REAL32, T_CHAR32, T_BOOL32, T_HRESULT:
		return 4
	case T_QUAD, T_UQUAD, T_INT8, T_UINT8, T_REAL64, T_BOOL64:
		return 8
	case T_REAL80:
		return 10
	default:
		return 0
	}
}
